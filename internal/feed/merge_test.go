package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bilgisen/quickbyte/internal/models"
)

func at(url string, d int, title string) models.Article {
	return models.Article{
		URL:         url,
		Title:       title,
		PublishedAt: time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC),
	}
}

func urls(items []models.Article) []string {
	out := make([]string, len(items))
	for i, a := range items {
		out[i] = a.URL
	}
	return out
}

func TestMergeKeepsOneEntryPerURLAndPrefersFetched(t *testing.T) {
	fetched := []models.Article{at("b", 1, "B updated"), at("c", 4, "C")}
	stored := []models.Article{at("a", 3, "A"), at("b", 1, "B stale"), at("c", 4, "C stale")}

	merged := Merge(fetched, stored)

	assert.Equal(t, []string{"b", "c", "a"}, urls(merged))
	assert.Equal(t, "B updated", merged[0].Title)
	assert.Equal(t, "C", merged[1].Title)
}

func TestMergeDeduplicatesWithinOneSide(t *testing.T) {
	merged := Merge(nil, []models.Article{at("a", 1, "first"), at("a", 2, "second")})
	assert.Len(t, merged, 1)
	assert.Equal(t, "first", merged[0].Title)
}

func TestSortByPublishedIsStableDescending(t *testing.T) {
	items := []models.Article{at("x", 1, ""), at("y", 5, ""), at("z", 1, ""), at("w", 3, "")}
	SortByPublished(items)

	assert.Equal(t, []string{"y", "w", "x", "z"}, urls(items))
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].PublishedAt.After(items[i-1].PublishedAt))
	}
}

func TestPaginateSizes(t *testing.T) {
	for _, n := range []int{0, 1, 7, 10, 23} {
		items := make([]models.Article, n)
		for i := range items {
			items[i] = at(fmt.Sprintf("u%d", i), 1, "")
		}
		for _, size := range []int{1, 3, 10} {
			for page := 1; page <= 6; page++ {
				got := Paginate(items, page, size)
				want := min(size, max(0, n-(page-1)*size))
				assert.Len(t, got, want, "n=%d page=%d size=%d", n, page, size)
				assert.NotNil(t, got)
				if want > 0 {
					assert.Equal(t, items[(page-1)*size].URL, got[0].URL)
				}
			}
		}
	}
}

func TestPaginateRejectsNonPositive(t *testing.T) {
	items := []models.Article{at("a", 1, "")}
	assert.Empty(t, Paginate(items, 0, 10))
	assert.Empty(t, Paginate(items, 1, 0))
}

func TestUpsertPolicyString(t *testing.T) {
	assert.Equal(t, "overwrite", PolicyOverwrite.String())
	assert.Equal(t, "skip-existing", PolicySkipExisting.String())
	assert.True(t, PolicyOverwrite.headline())
	assert.False(t, PolicySkipExisting.headline())
}
