package models

// RequestKind distinguishes the two aggregation entry points.
type RequestKind string

const (
	KindHeadlines RequestKind = "headlines"
	KindSearch    RequestKind = "search"
)

// Page is one slice of a merged, sorted result set.
type Page struct {
	Items    []Article `json:"items"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int       `json:"total"`
}
