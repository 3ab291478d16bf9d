package feed

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/bilgisen/quickbyte/internal/models"
)

// publishedLayouts are tried in order; zone-less values are read as UTC.
var publishedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalizer maps raw provider records onto the canonical Article shape.
type Normalizer struct {
	htmlTagRegex *regexp.Regexp
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		htmlTagRegex: regexp.MustCompile(`<[^>]*>`),
	}
}

// CleanHTML removes HTML tags and normalizes whitespace
func (n *Normalizer) CleanHTML(input string) string {
	cleaned := n.htmlTagRegex.ReplaceAllString(input, " ")
	cleaned = html.UnescapeString(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// Normalize converts one raw record. Missing optional fields stay empty;
// only a missing URL is an error.
func (n *Normalizer) Normalize(raw models.RawArticle, isHeadline bool) (models.Article, error) {
	url := strings.TrimSpace(raw.URL)
	if url == "" {
		return models.Article{}, ErrMissingURL
	}

	return models.Article{
		URL:         url,
		Title:       strings.TrimSpace(raw.Title),
		Description: n.CleanHTML(raw.Description),
		Content:     n.CleanHTML(raw.Content),
		ImageURL:    strings.TrimSpace(raw.URLToImage),
		SourceName:  strings.TrimSpace(raw.Source.Name),
		PublishedAt: ParsePublished(raw.PublishedAt),
		IsHeadline:  isHeadline,
	}, nil
}

// ParsePublished parses a provider timestamp into a UTC instant. Empty or
// unrecognised input yields the zero time.
func ParsePublished(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
