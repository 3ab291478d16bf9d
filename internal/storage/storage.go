package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups that match no article.
var ErrNotFound = errors.New("article not found")

// timeLayout is fixed width and always UTC so that text comparison of the
// published_at column orders the same way as the instants it encodes.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Storage is the SQLite-backed article store. Writes go through a single
// connection; reads use their own pool.
type Storage struct {
	writeDB *sql.DB
	readDB  *sql.DB
	path    string
	now     func() time.Time
}

// NewStorage opens (creating if needed) the database at dbPath and brings
// its schema up to date.
func NewStorage(dbPath string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)"

	writeDB, err := sql.Open("sqlite", dsn+"&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	if err := migrate(writeDB); err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	readDB, err := sql.Open("sqlite", dsn+"&mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	return &Storage{
		writeDB: writeDB,
		readDB:  readDB,
		path:    dbPath,
		now:     time.Now,
	}, nil
}

// Close closes both connection pools.
func (s *Storage) Close() error {
	return errors.Join(s.readDB.Close(), s.writeDB.Close())
}

// Path returns the database file path.
func (s *Storage) Path() string {
	return s.path
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.readDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Count returns the number of stored articles.
func (s *Storage) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.readDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
