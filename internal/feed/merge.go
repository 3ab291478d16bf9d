package feed

import (
	"sort"

	"github.com/bilgisen/quickbyte/internal/models"
)

// UpsertPolicy decides what happens when a fetched article's URL is
// already stored.
type UpsertPolicy int

const (
	// PolicyOverwrite replaces the stored record. Used for headlines.
	PolicyOverwrite UpsertPolicy = iota
	// PolicySkipExisting leaves the stored record untouched and drops the
	// fetched one. Used for search.
	PolicySkipExisting
)

func (p UpsertPolicy) String() string {
	switch p {
	case PolicyOverwrite:
		return "overwrite"
	case PolicySkipExisting:
		return "skip-existing"
	default:
		return "unknown"
	}
}

// headline reports the provenance flag records written under p carry.
func (p UpsertPolicy) headline() bool {
	return p == PolicyOverwrite
}

// Merge combines fetched and stored articles into one list with a single
// entry per URL. Fetched entries come first and win over stored ones; input
// order is otherwise preserved.
func Merge(fetched, stored []models.Article) []models.Article {
	merged := make([]models.Article, 0, len(fetched)+len(stored))
	seen := make(map[string]struct{}, len(fetched)+len(stored))

	for _, list := range [][]models.Article{fetched, stored} {
		for _, a := range list {
			if _, ok := seen[a.URL]; ok {
				continue
			}
			seen[a.URL] = struct{}{}
			merged = append(merged, a)
		}
	}
	return merged
}

// SortByPublished orders items newest first. Equal timestamps keep their
// relative order.
func SortByPublished(items []models.Article) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}

// Paginate returns the 1-based page of items. A page past the end is empty.
func Paginate(items []models.Article, page, pageSize int) []models.Article {
	if page < 1 || pageSize < 1 {
		return []models.Article{}
	}

	start := (page - 1) * pageSize
	if start >= len(items) {
		return []models.Article{}
	}

	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
