package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/quickbyte/internal/cache"
	"github.com/bilgisen/quickbyte/internal/logger"
	"github.com/bilgisen/quickbyte/internal/models"
)

// ArticleStore is the persistence the aggregator depends on.
type ArticleStore interface {
	Upsert(ctx context.Context, a *models.Article) error
	InsertIfAbsent(ctx context.Context, a *models.Article) (bool, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
	FindHeadlines(ctx context.Context) ([]models.Article, error)
	FindByTextMatch(ctx context.Context, query string) ([]models.Article, error)
}

// Options tunes an Aggregator.
type Options struct {
	// ProviderTimeout bounds each provider call, retries included.
	ProviderTimeout time.Duration
	// CacheTTL is how long a computed page is served from the cache.
	CacheTTL time.Duration
}

// Aggregator reconciles live provider results with stored articles.
type Aggregator struct {
	provider   Provider
	store      ArticleStore
	normalizer *Normalizer
	cache      cache.PageCache
	opts       Options
}

// NewAggregator wires an aggregator. pageCache may be nil.
func NewAggregator(provider Provider, store ArticleStore, pageCache cache.PageCache, opts Options) *Aggregator {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 10 * time.Second
	}
	return &Aggregator{
		provider:   provider,
		store:      store,
		normalizer: NewNormalizer(),
		cache:      pageCache,
		opts:       opts,
	}
}

// FetchHeadlines returns one page of the merged headline set. Provider
// failures degrade to stored headlines; only store failures are returned.
func (a *Aggregator) FetchHeadlines(ctx context.Context, country string, page, pageSize int) (*models.Page, error) {
	if page < 1 || pageSize < 1 {
		return nil, ErrInvalidPage
	}

	key := cache.PageKey(models.KindHeadlines, country, "", page, pageSize)
	if cached, ok := a.cached(ctx, key); ok {
		return cached, nil
	}

	fetched, err := a.fetchAndStore(ctx, PolicyOverwrite, func(ctx context.Context) ([]models.RawArticle, error) {
		return a.provider.FetchHeadlines(ctx, country, page, pageSize)
	})
	if err != nil {
		logger.Get().Warn().
			Err(err).
			Str("country", country).
			Msg("Headline fetch failed, serving stored headlines")
	}

	stored, err := a.store.FindHeadlines(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	result := assemble(fetched, stored, page, pageSize)
	a.remember(ctx, key, result)
	return result, nil
}

// FetchSearch returns one page of the merged search result set for query.
// sortBy is forwarded to the provider; the merged set is always ordered by
// publication time.
func (a *Aggregator) FetchSearch(ctx context.Context, query, sortBy string, page, pageSize int) (*models.Page, error) {
	if page < 1 || pageSize < 1 {
		return nil, ErrInvalidPage
	}

	key := cache.PageKey(models.KindSearch, query, sortBy, page, pageSize)
	if cached, ok := a.cached(ctx, key); ok {
		return cached, nil
	}

	fetched, err := a.fetchAndStore(ctx, PolicySkipExisting, func(ctx context.Context) ([]models.RawArticle, error) {
		return a.provider.FetchSearch(ctx, query, sortBy, page, pageSize)
	})
	if err != nil {
		logger.Get().Warn().
			Err(err).
			Str("query", query).
			Msg("Search fetch failed, serving stored matches")
	}

	stored, err := a.store.FindByTextMatch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	result := assemble(fetched, stored, page, pageSize)
	a.remember(ctx, key, result)
	return result, nil
}

// RefreshHeadlines runs only the fetch-and-store half of FetchHeadlines and
// returns how many articles were written. A provider failure is returned
// so background callers can log it.
func (a *Aggregator) RefreshHeadlines(ctx context.Context, country string, page, pageSize int) (int, error) {
	fetched, err := a.fetchAndStore(ctx, PolicyOverwrite, func(ctx context.Context) ([]models.RawArticle, error) {
		return a.provider.FetchHeadlines(ctx, country, page, pageSize)
	})
	if err != nil {
		return 0, err
	}
	return len(fetched), nil
}

// InvalidateCache drops every cached page.
func (a *Aggregator) InvalidateCache(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Invalidate(ctx)
}

func (a *Aggregator) fetchAndStore(
	ctx context.Context,
	policy UpsertPolicy,
	call func(ctx context.Context) ([]models.RawArticle, error),
) ([]models.Article, error) {
	providerCtx, cancel := context.WithTimeout(ctx, a.opts.ProviderTimeout)
	raws, err := call(providerCtx)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
		return nil, err
	}

	return a.collect(ctx, policy, raws), nil
}

// collect normalizes raw records, applies policy against the store and
// returns the records that were persisted, in provider order.
func (a *Aggregator) collect(ctx context.Context, policy UpsertPolicy, raws []models.RawArticle) []models.Article {
	log := logger.Get()
	fetched := make([]models.Article, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	skipped := 0

	for i, raw := range raws {
		article, err := a.normalizer.Normalize(raw, policy.headline())
		if err != nil {
			log.Debug().
				Err(err).
				Int("index", i).
				Str("title", raw.Title).
				Msg("Skipping provider record")
			skipped++
			continue
		}
		if _, dup := seen[article.URL]; dup {
			continue
		}
		seen[article.URL] = struct{}{}

		ok, err := a.persist(ctx, policy, &article)
		if err != nil {
			log.Warn().
				Err(err).
				Str("url", article.URL).
				Str("policy", policy.String()).
				Msg("Error saving article")
			continue
		}
		if !ok {
			skipped++
			continue
		}
		fetched = append(fetched, article)
	}

	log.Debug().
		Int("received", len(raws)).
		Int("stored", len(fetched)).
		Int("skipped", skipped).
		Str("policy", policy.String()).
		Msg("Collected provider records")

	return fetched
}

func (a *Aggregator) persist(ctx context.Context, policy UpsertPolicy, article *models.Article) (bool, error) {
	switch policy {
	case PolicyOverwrite:
		if err := a.store.Upsert(ctx, article); err != nil {
			return false, err
		}
		return true, nil
	case PolicySkipExisting:
		exists, err := a.store.ExistsByURL(ctx, article.URL)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
		// A concurrent writer may have stored the URL since the check.
		return a.store.InsertIfAbsent(ctx, article)
	default:
		return false, fmt.Errorf("unknown upsert policy %d", policy)
	}
}

func (a *Aggregator) cached(ctx context.Context, key string) (*models.Page, bool) {
	if a.cache == nil {
		return nil, false
	}
	page, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		logger.Get().Warn().Err(err).Str("key", key).Msg("Page cache read failed")
		return nil, false
	}
	return page, ok
}

func (a *Aggregator) remember(ctx context.Context, key string, page *models.Page) {
	if a.cache == nil || a.opts.CacheTTL <= 0 {
		return
	}
	if err := a.cache.Set(ctx, key, page, a.opts.CacheTTL); err != nil {
		logger.Get().Warn().Err(err).Str("key", key).Msg("Page cache write failed")
	}
}

func assemble(fetched, stored []models.Article, page, pageSize int) *models.Page {
	merged := Merge(fetched, stored)
	SortByPublished(merged)
	return &models.Page{
		Items:    Paginate(merged, page, pageSize),
		Page:     page,
		PageSize: pageSize,
		Total:    len(merged),
	}
}
