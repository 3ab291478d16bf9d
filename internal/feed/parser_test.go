package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/quickbyte/internal/models"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer()

	var raw models.RawArticle
	raw.Source.Name = " Reuters "
	raw.Title = "  Markets rally  "
	raw.Description = "<p>Stocks &amp; bonds <b>up</b></p>"
	raw.URL = " https://news.example/markets "
	raw.URLToImage = "https://img.example/1.jpg"
	raw.PublishedAt = "2024-01-03T10:15:00Z"
	raw.Content = "Full text [+120 chars]"

	got, err := n.Normalize(raw, true)
	require.NoError(t, err)

	assert.Equal(t, "https://news.example/markets", got.URL)
	assert.Equal(t, "Markets rally", got.Title)
	assert.Equal(t, "Stocks & bonds up", got.Description)
	assert.Equal(t, "Full text [+120 chars]", got.Content)
	assert.Equal(t, "https://img.example/1.jpg", got.ImageURL)
	assert.Equal(t, "Reuters", got.SourceName)
	assert.True(t, got.PublishedAt.Equal(time.Date(2024, 1, 3, 10, 15, 0, 0, time.UTC)))
	assert.True(t, got.IsHeadline)
	assert.Empty(t, got.ID)
}

func TestNormalizeMissingOptionalFields(t *testing.T) {
	got, err := NewNormalizer().Normalize(models.RawArticle{URL: "https://news.example/bare"}, false)
	require.NoError(t, err)

	assert.Equal(t, "https://news.example/bare", got.URL)
	assert.Empty(t, got.Title)
	assert.Empty(t, got.Description)
	assert.Empty(t, got.SourceName)
	assert.True(t, got.PublishedAt.IsZero())
	assert.False(t, got.IsHeadline)
}

func TestNormalizeMissingURL(t *testing.T) {
	_, err := NewNormalizer().Normalize(models.RawArticle{Title: "No identity", URL: "   "}, true)
	assert.ErrorIs(t, err, ErrMissingURL)
}

func TestParsePublished(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-03T10:15:00Z", time.Date(2024, 1, 3, 10, 15, 0, 0, time.UTC)},
		{"2024-01-03T10:15:00.123Z", time.Date(2024, 1, 3, 10, 15, 0, 123000000, time.UTC)},
		{"2024-01-03T12:15:00+02:00", time.Date(2024, 1, 3, 10, 15, 0, 0, time.UTC)},
		{"2024-01-03T10:15:00", time.Date(2024, 1, 3, 10, 15, 0, 0, time.UTC)},
		{"2024-01-03", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParsePublished(tt.in)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}
