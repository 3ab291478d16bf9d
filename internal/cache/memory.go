package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bilgisen/quickbyte/internal/models"
)

// MemoryCache is an in-process PageCache used when Redis is not configured
// and in tests.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	now  func() time.Time
}

type memoryEntry struct {
	page      models.Page
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

func (m *MemoryCache) Close() error {
	return nil
}

func (m *MemoryCache) Get(ctx context.Context, key string) (*models.Page, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		delete(m.data, key)
		return nil, false, nil
	}

	page := entry.page
	page.Items = copyItems(entry.page.Items)
	return &page, true, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, page *models.Page, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{page: *page}
	entry.page.Items = copyItems(page.Items)
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.data[key] = entry
	return nil
}

func (m *MemoryCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.data {
		if strings.HasPrefix(key, "page:") {
			delete(m.data, key)
		}
	}
	return nil
}

func copyItems(items []models.Article) []models.Article {
	out := make([]models.Article, len(items))
	copy(out, items)
	return out
}
