package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/quickbyte/internal/feed"
	"github.com/bilgisen/quickbyte/internal/logger"
	"github.com/bilgisen/quickbyte/internal/middleware"
	"github.com/bilgisen/quickbyte/internal/models"
	"github.com/bilgisen/quickbyte/internal/scheduler"
	"github.com/bilgisen/quickbyte/internal/storage"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
	maxLookupIDs    = 100
)

// NewsService produces merged result pages.
type NewsService interface {
	FetchHeadlines(ctx context.Context, country string, page, pageSize int) (*models.Page, error)
	FetchSearch(ctx context.Context, query, sortBy string, page, pageSize int) (*models.Page, error)
}

// ArticleReader is the read-only store surface used outside aggregation.
type ArticleReader interface {
	FindByURL(ctx context.Context, url string) (*models.Article, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Article, error)
	Count(ctx context.Context) (int64, error)
}

// Jobs triggers and reports the background tasks.
type Jobs interface {
	RunRefresh(ctx context.Context) (int, error)
	RunEviction(ctx context.Context) (scheduler.EvictionResult, error)
	Status() scheduler.Status
}

type Handlers struct {
	news  NewsService
	store ArticleReader
	jobs  Jobs
}

func NewHandlers(news NewsService, store ArticleReader, jobs Jobs) *Handlers {
	return &Handlers{
		news:  news,
		store: store,
		jobs:  jobs,
	}
}

type headlinesQuery struct {
	Country  string `query:"country" validate:"required,alpha,len=2"`
	Page     int    `query:"page"`
	PageSize int    `query:"pageSize"`
}

func (q *headlinesQuery) SetDefaults() {
	q.Page = 1
	q.PageSize = defaultPageSize
}

type searchQuery struct {
	Query    string `query:"query" validate:"required,max=500"`
	SortBy   string `query:"sortBy" validate:"oneof=publishedAt relevancy popularity"`
	Page     int    `query:"page"`
	PageSize int    `query:"pageSize"`
}

func (q *searchQuery) SetDefaults() {
	q.SortBy = "publishedAt"
	q.Page = 1
	q.PageSize = defaultPageSize
}

type idsQuery struct {
	IDs string `query:"ids" validate:"required"`
}

type lookupQuery struct {
	URL string `query:"url" validate:"required,url"`
}

// clampPage brings page and pageSize into the accepted range.
func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	case pageSize <= 0:
		pageSize = defaultPageSize
	}
	return page, pageSize
}

func serviceUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": "Service unavailable",
	})
}

// HealthCheck handles GET /api/v1/health. It answers 200 even when the
// store is down so that keep-alive pings never fail.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	now := time.Now().UTC().Format(time.RFC3339)

	n, err := h.store.Count(c.UserContext())
	if err != nil {
		logger.Get().Warn().Err(err).Msg("Health check could not reach the store")
		return c.JSON(fiber.Map{
			"status":    "Partially available",
			"database":  "Reconnecting",
			"timestamp": now,
			"error":     err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":    "OK",
		"database":  "Connected",
		"timestamp": now,
		"articles":  n,
	})
}

// TopHeadlines handles GET /api/v1/news/top-headlines
func (h *Handlers) TopHeadlines(c *fiber.Ctx) error {
	q := middleware.Query[headlinesQuery](c)
	page, pageSize := clampPage(q.Page, q.PageSize)

	result, err := h.news.FetchHeadlines(c.UserContext(), strings.ToLower(q.Country), page, pageSize)
	if err != nil {
		return h.aggregationError(c, err)
	}
	return c.JSON(result)
}

// Search handles GET /api/v1/news/search
func (h *Handlers) Search(c *fiber.Ctx) error {
	q := middleware.Query[searchQuery](c)
	page, pageSize := clampPage(q.Page, q.PageSize)

	result, err := h.news.FetchSearch(c.UserContext(), strings.TrimSpace(q.Query), q.SortBy, page, pageSize)
	if err != nil {
		return h.aggregationError(c, err)
	}
	return c.JSON(result)
}

func (h *Handlers) aggregationError(c *fiber.Ctx, err error) error {
	if errors.Is(err, feed.ErrStoreUnavailable) {
		logger.Get().Error().Err(err).Str("path", c.Path()).Msg("Article store unavailable")
		return serviceUnavailable(c)
	}
	return err
}

// ArticlesByIDs handles GET /api/v1/news/articles?ids=a,b,c
func (h *Handlers) ArticlesByIDs(c *fiber.Ctx) error {
	q := middleware.Query[idsQuery](c)

	var ids []string
	for _, id := range strings.Split(q.IDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one article ID is required",
		})
	}
	if len(ids) > maxLookupIDs {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Too many article IDs",
		})
	}

	articles, err := h.store.FindByIDs(c.UserContext(), ids)
	if err != nil {
		logger.Get().Error().Err(err).Int("ids", len(ids)).Msg("Error loading articles by id")
		return serviceUnavailable(c)
	}
	return c.JSON(articles)
}

// LookupByURL handles GET /api/v1/news/lookup?url=
func (h *Handlers) LookupByURL(c *fiber.Ctx) error {
	q := middleware.Query[lookupQuery](c)

	article, err := h.store.FindByURL(c.UserContext(), q.URL)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Article not found",
		})
	}
	if err != nil {
		logger.Get().Error().Err(err).Str("url", q.URL).Msg("Error looking up article")
		return serviceUnavailable(c)
	}
	return c.JSON(article)
}

// Refresh handles POST /api/v1/admin/refresh
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	start := time.Now()

	n, err := h.jobs.RunRefresh(c.UserContext())
	if errors.Is(err, scheduler.ErrAlreadyRunning) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Refresh already running",
		})
	}
	if err != nil {
		logger.Get().Error().Err(err).Msg("Manual headline refresh failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Refresh failed",
			"msg":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":   "completed",
		"stored":   n,
		"duration": time.Since(start).String(),
	})
}

// Evict handles POST /api/v1/admin/evict
func (h *Handlers) Evict(c *fiber.Ctx) error {
	res, err := h.jobs.RunEviction(c.UserContext())
	if errors.Is(err, scheduler.ErrAlreadyRunning) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Eviction already running",
		})
	}
	if err != nil {
		logger.Get().Error().Err(err).Msg("Manual eviction failed")
		return serviceUnavailable(c)
	}

	return c.JSON(fiber.Map{
		"status":   "completed",
		"cutoff":   res.Cutoff,
		"deleted":  res.Deleted,
		"archived": res.Archived,
	})
}

// JobStatus handles GET /api/v1/admin/status
func (h *Handlers) JobStatus(c *fiber.Ctx) error {
	return c.JSON(h.jobs.Status())
}
