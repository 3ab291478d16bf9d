package models

import "time"

// Article is the canonical article shape shared by the store, the
// aggregator and the HTTP layer. URL is the identity; ID is the store's
// surrogate key.
type Article struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	ImageURL    string    `json:"image_url"`
	SourceName  string    `json:"source_name"`
	PublishedAt time.Time `json:"published_at"`
	IsHeadline  bool      `json:"is_headline"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}
