package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/quickbyte/internal/config"
	"github.com/bilgisen/quickbyte/internal/feed"
	"github.com/bilgisen/quickbyte/internal/models"
	"github.com/bilgisen/quickbyte/internal/scheduler"
	"github.com/bilgisen/quickbyte/internal/storage"
)

const adminKey = "admin-secret"

type call struct {
	subject  string
	sortBy   string
	page     int
	pageSize int
}

type fakeNews struct {
	err   error
	calls []call
}

func (f *fakeNews) FetchHeadlines(ctx context.Context, country string, page, pageSize int) (*models.Page, error) {
	f.calls = append(f.calls, call{subject: country, page: page, pageSize: pageSize})
	if f.err != nil {
		return nil, f.err
	}
	return &models.Page{
		Items:    []models.Article{{ID: "1", URL: "https://news.example/1", Title: "One"}},
		Page:     page,
		PageSize: pageSize,
		Total:    1,
	}, nil
}

func (f *fakeNews) FetchSearch(ctx context.Context, query, sortBy string, page, pageSize int) (*models.Page, error) {
	f.calls = append(f.calls, call{subject: query, sortBy: sortBy, page: page, pageSize: pageSize})
	if f.err != nil {
		return nil, f.err
	}
	return &models.Page{Items: []models.Article{}, Page: page, PageSize: pageSize}, nil
}

type fakeStore struct {
	articles map[string]models.Article
	err      error
	gotIDs   []string
}

func (f *fakeStore) FindByURL(ctx context.Context, url string) (*models.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.articles {
		if a.URL == url {
			return &a, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) FindByIDs(ctx context.Context, ids []string) ([]models.Article, error) {
	f.gotIDs = ids
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Article{}
	for _, id := range ids {
		if a, ok := f.articles[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) Count(ctx context.Context) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.articles)), nil
}

type fakeJobs struct {
	refreshErr error
	evictErr   error
}

func (f *fakeJobs) RunRefresh(ctx context.Context) (int, error) {
	return 5, f.refreshErr
}

func (f *fakeJobs) RunEviction(ctx context.Context) (scheduler.EvictionResult, error) {
	return scheduler.EvictionResult{Deleted: 3, Archived: 3}, f.evictErr
}

func (f *fakeJobs) Status() scheduler.Status {
	return scheduler.Status{Refresh: scheduler.TaskStatus{Schedule: "@every 3h"}}
}

type fixture struct {
	app   *fiber.App
	news  *fakeNews
	store *fakeStore
	jobs  *fakeJobs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		news: &fakeNews{},
		store: &fakeStore{articles: map[string]models.Article{
			"a1": {ID: "a1", URL: "https://news.example/a1", Title: "A1", PublishedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
			"a2": {ID: "a2", URL: "https://news.example/a2", Title: "A2"},
		}},
		jobs: &fakeJobs{},
	}
	cfg := &config.Config{
		HTTPTimeout: 5 * time.Second,
		AdminAPIKey: adminKey,
		CORSOrigins: "http://localhost:3001",
	}
	f.app = NewApp(NewHandlers(f.news, f.store, f.jobs), cfg)
	return f
}

func (f *fixture) do(t *testing.T, method, target string, headers ...string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(body) > 0 && body[0] == '{' {
		require.NoError(t, json.Unmarshal(body, &out))
	}
	return resp.StatusCode, out
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/api/v1/health")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "Connected", body["database"])
	assert.Equal(t, float64(2), body["articles"])

	f.store.err = errors.New("database is locked")
	status, body = f.do(t, http.MethodGet, "/api/v1/health")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Partially available", body["status"])
	assert.Equal(t, "Reconnecting", body["database"])
}

func TestTopHeadlines(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/api/v1/news/top-headlines?country=US")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["page"])
	assert.Equal(t, float64(12), body["page_size"])
	assert.Equal(t, float64(1), body["total"])
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "https://news.example/1", items[0].(map[string]any)["url"])

	require.Len(t, f.news.calls, 1)
	assert.Equal(t, call{subject: "us", page: 1, pageSize: 12}, f.news.calls[0])
}

func TestTopHeadlinesClampsPaging(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, http.MethodGet, "/api/v1/news/top-headlines?country=gb&page=0&pageSize=500")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, call{subject: "gb", page: 1, pageSize: 100}, f.news.calls[0])

	status, _ = f.do(t, http.MethodGet, "/api/v1/news/top-headlines?country=gb&page=3&pageSize=-4")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, call{subject: "gb", page: 3, pageSize: 12}, f.news.calls[1])
}

func TestTopHeadlinesRequiresCountry(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/api/v1/news/top-headlines")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, map[string]any{"country": "required"}, body["fields"])
	assert.Empty(t, f.news.calls)
}

func TestStoreUnavailableIs503(t *testing.T) {
	f := newFixture(t)
	f.news.err = fmt.Errorf("%w: %w", feed.ErrStoreUnavailable, errors.New("disk I/O error"))

	status, body := f.do(t, http.MethodGet, "/api/v1/news/top-headlines?country=us")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "Service unavailable", body["error"])

	status, body = f.do(t, http.MethodGet, "/api/v1/news/search?query=go")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "Service unavailable", body["error"])
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/api/v1/news/search?query=climate%20change&pageSize=5&page=2")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{}, body["items"])
	assert.Equal(t, call{subject: "climate change", sortBy: "publishedAt", page: 2, pageSize: 5}, f.news.calls[0])

	status, _ = f.do(t, http.MethodGet, "/api/v1/news/search?query=go&sortBy=popularity")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "popularity", f.news.calls[1].sortBy)
}

func TestSearchValidation(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/api/v1/news/search?query=go&sortBy=random")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, map[string]any{"sortBy": "oneof"}, body["fields"])

	status, _ = f.do(t, http.MethodGet, "/api/v1/news/search")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Empty(t, f.news.calls)
}

func TestArticlesByIDs(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/news/articles?ids=a1,%20missing,,a2", nil)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var articles []models.Article
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&articles))
	require.Len(t, articles, 2)
	assert.Equal(t, "a1", articles[0].ID)
	assert.Equal(t, []string{"a1", "missing", "a2"}, f.store.gotIDs)

	status, _ := f.do(t, http.MethodGet, "/api/v1/news/articles?ids=,,")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestLookupByURL(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/api/v1/news/lookup?url=https%3A%2F%2Fnews.example%2Fa1")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "a1", body["id"])
	assert.Equal(t, "2024-01-02T00:00:00Z", body["published_at"])

	status, body = f.do(t, http.MethodGet, "/api/v1/news/lookup?url=https%3A%2F%2Fnews.example%2Fnope")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Article not found", body["error"])

	status, _ = f.do(t, http.MethodGet, "/api/v1/news/lookup?url=not-a-url")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestAdminRoutesRequireKey(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, http.MethodPost, "/api/v1/admin/refresh")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = f.do(t, http.MethodPost, "/api/v1/admin/refresh", "X-API-Key", "wrong")
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := f.do(t, http.MethodPost, "/api/v1/admin/refresh", "X-API-Key", adminKey)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, float64(5), body["stored"])
}

func TestAdminRefreshConflictAndFailure(t *testing.T) {
	f := newFixture(t)

	f.jobs.refreshErr = scheduler.ErrAlreadyRunning
	status, _ := f.do(t, http.MethodPost, "/api/v1/admin/refresh", "X-API-Key", adminKey)
	assert.Equal(t, fiber.StatusConflict, status)

	f.jobs.refreshErr = feed.ErrProviderUnavailable
	status, body := f.do(t, http.MethodPost, "/api/v1/admin/refresh", "X-API-Key", adminKey)
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, "Refresh failed", body["error"])
}

func TestAdminEvictAndStatus(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/v1/admin/evict", "X-API-Key", adminKey)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(3), body["deleted"])

	f.jobs.evictErr = scheduler.ErrAlreadyRunning
	status, _ = f.do(t, http.MethodPost, "/api/v1/admin/evict", "X-API-Key", adminKey)
	assert.Equal(t, fiber.StatusConflict, status)

	status, body = f.do(t, http.MethodGet, "/api/v1/admin/status", "X-API-Key", adminKey)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "@every 3h", body["refresh"].(map[string]any)["schedule"])
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/api/v1/nothing-here")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Endpoint not found", body["error"])
}
