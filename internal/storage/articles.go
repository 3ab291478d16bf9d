package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bilgisen/quickbyte/internal/models"
)

const articleColumns = `id, url, title, description, content, image_url, source_name,
	published_at, is_headline, created_at, updated_at`

// Upsert inserts the article or, when its URL is already stored, overwrites
// every content field while keeping the existing surrogate ID. The article's
// ID and timestamps are updated to match the stored row.
func (s *Storage) Upsert(ctx context.Context, a *models.Article) error {
	now := formatTime(s.now())
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	var id, createdAt string
	err := s.writeDB.QueryRowContext(ctx, `
		INSERT INTO articles (`+articleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title        = excluded.title,
			description  = excluded.description,
			content      = excluded.content,
			image_url    = excluded.image_url,
			source_name  = excluded.source_name,
			published_at = excluded.published_at,
			is_headline  = excluded.is_headline,
			updated_at   = excluded.updated_at
		RETURNING id, created_at`,
		a.ID, a.URL, a.Title, a.Description, a.Content, a.ImageURL, a.SourceName,
		formatTime(a.PublishedAt), a.IsHeadline, now, now,
	).Scan(&id, &createdAt)
	if err != nil {
		return fmt.Errorf("upserting article %s: %w", a.URL, err)
	}

	a.ID = id
	a.CreatedAt, _ = parseTime(createdAt)
	a.UpdatedAt, _ = parseTime(now)
	return nil
}

// InsertIfAbsent inserts the article only when no article with the same URL
// exists. It reports whether a row was written.
func (s *Storage) InsertIfAbsent(ctx context.Context, a *models.Article) (bool, error) {
	now := s.now()
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}

	res, err := s.writeDB.ExecContext(ctx, `
		INSERT INTO articles (`+articleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		id, a.URL, a.Title, a.Description, a.Content, a.ImageURL, a.SourceName,
		formatTime(a.PublishedAt), a.IsHeadline, formatTime(now), formatTime(now),
	)
	if err != nil {
		return false, fmt.Errorf("inserting article %s: %w", a.URL, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting article %s: %w", a.URL, err)
	}
	if n == 0 {
		return false, nil
	}

	a.ID = id
	a.CreatedAt = now.UTC()
	a.UpdatedAt = a.CreatedAt
	return true, nil
}

// ExistsByURL reports whether an article with the given URL is stored.
func (s *Storage) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.readDB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM articles WHERE url = ?)", url,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking article %s: %w", url, err)
	}
	return exists, nil
}

// FindByURL returns the article stored under url, or ErrNotFound.
func (s *Storage) FindByURL(ctx context.Context, url string) (*models.Article, error) {
	row := s.readDB.QueryRowContext(ctx,
		"SELECT "+articleColumns+" FROM articles WHERE url = ?", url)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding article %s: %w", url, err)
	}
	return a, nil
}

// FindHeadlines returns every article flagged as a headline, newest first.
func (s *Storage) FindHeadlines(ctx context.Context) ([]models.Article, error) {
	return s.query(ctx, "finding headlines",
		"SELECT "+articleColumns+" FROM articles WHERE is_headline = 1 ORDER BY published_at DESC")
}

// FindByTextMatch returns articles whose title or description contains
// query, ignoring case, newest first. Matching happens in Go because
// SQLite's lower() only folds ASCII.
func (s *Storage) FindByTextMatch(ctx context.Context, query string) ([]models.Article, error) {
	all, err := s.query(ctx, "matching articles",
		"SELECT "+articleColumns+" FROM articles ORDER BY published_at DESC")
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matched := make([]models.Article, 0, len(all))
	for _, a := range all {
		if strings.Contains(strings.ToLower(a.Title), needle) ||
			strings.Contains(strings.ToLower(a.Description), needle) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

// FindByIDs returns the articles with the given surrogate IDs. Unknown IDs
// are ignored.
func (s *Storage) FindByIDs(ctx context.Context, ids []string) ([]models.Article, error) {
	if len(ids) == 0 {
		return []models.Article{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	return s.query(ctx, "finding articles by id",
		"SELECT "+articleColumns+" FROM articles WHERE id IN ("+strings.Join(placeholders, ",")+
			") ORDER BY published_at DESC", args...)
}

// FindOlderThan returns the articles published strictly before cutoff.
func (s *Storage) FindOlderThan(ctx context.Context, cutoff time.Time) ([]models.Article, error) {
	return s.query(ctx, "finding old articles",
		"SELECT "+articleColumns+" FROM articles WHERE published_at < ? ORDER BY published_at",
		formatTime(cutoff))
}

// DeleteOlderThan removes every article published strictly before cutoff
// and returns the number of rows removed.
func (s *Storage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.writeDB.ExecContext(ctx,
		"DELETE FROM articles WHERE published_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("deleting articles before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return res.RowsAffected()
}

func (s *Storage) query(ctx context.Context, op, query string, args ...any) ([]models.Article, error) {
	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return articles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticles(rows *sql.Rows) ([]models.Article, error) {
	articles := []models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var (
		a                                 models.Article
		publishedAt, createdAt, updatedAt string
	)
	if err := row.Scan(&a.ID, &a.URL, &a.Title, &a.Description, &a.Content, &a.ImageURL,
		&a.SourceName, &publishedAt, &a.IsHeadline, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if a.PublishedAt, err = parseTime(publishedAt); err != nil {
		return nil, fmt.Errorf("article %s published_at: %w", a.ID, err)
	}
	a.CreatedAt, _ = parseTime(createdAt)
	a.UpdatedAt, _ = parseTime(updatedAt)
	return &a, nil
}
