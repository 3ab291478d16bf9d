package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/bilgisen/quickbyte/internal/models"
	"github.com/bilgisen/quickbyte/internal/utils"
)

// PageCache stores merged result pages for a short time. Implementations
// must be safe for concurrent use.
type PageCache interface {
	Get(ctx context.Context, key string) (*models.Page, bool, error)
	Set(ctx context.Context, key string, page *models.Page, ttl time.Duration) error
	Invalidate(ctx context.Context) error
	Close() error
}

// PageKey builds the cache key for one aggregation request.
func PageKey(kind models.RequestKind, subject, sortHint string, page, pageSize int) string {
	return "page:" + string(kind) + ":" +
		utils.HashKey(subject, sortHint, strconv.Itoa(page), strconv.Itoa(pageSize))
}
