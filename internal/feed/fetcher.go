package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bilgisen/quickbyte/internal/models"
)

// Provider is the external news source.
type Provider interface {
	FetchHeadlines(ctx context.Context, country string, page, pageSize int) ([]models.RawArticle, error)
	FetchSearch(ctx context.Context, query, sortBy string, page, pageSize int) ([]models.RawArticle, error)
}

// NewsAPIClient talks to the NewsAPI v2 REST endpoints.
type NewsAPIClient struct {
	client *resty.Client
}

type newsAPIResponse struct {
	Status       string              `json:"status"`
	Code         string              `json:"code"`
	Message      string              `json:"message"`
	TotalResults int                 `json:"totalResults"`
	Articles     []models.RawArticle `json:"articles"`
}

// NewNewsAPIClient creates a client. timeout bounds each attempt; callers
// bound the whole call through the context.
func NewNewsAPIClient(baseURL, apiKey string, timeout time.Duration, retries int) *NewsAPIClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("X-Api-Key", apiKey).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= http.StatusInternalServerError
		})

	return &NewsAPIClient{client: client}
}

// FetchHeadlines retrieves one page of top headlines for a country.
func (c *NewsAPIClient) FetchHeadlines(ctx context.Context, country string, page, pageSize int) ([]models.RawArticle, error) {
	return c.get(ctx, "/top-headlines", map[string]string{
		"country":  country,
		"page":     strconv.Itoa(page),
		"pageSize": strconv.Itoa(pageSize),
	})
}

// FetchSearch retrieves one page of English articles matching query.
func (c *NewsAPIClient) FetchSearch(ctx context.Context, query, sortBy string, page, pageSize int) ([]models.RawArticle, error) {
	return c.get(ctx, "/everything", map[string]string{
		"q":        query,
		"sortBy":   sortBy,
		"language": "en",
		"page":     strconv.Itoa(page),
		"pageSize": strconv.Itoa(pageSize),
	})
}

func (c *NewsAPIClient) get(ctx context.Context, path string, params map[string]string) ([]models.RawArticle, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %w", ErrProviderUnavailable, path, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, fmt.Errorf("%w: unexpected status code %d from %s", ErrProviderUnavailable, resp.StatusCode(), path)
	}

	var body newsAPIResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrMalformedPayload, path, err)
	}

	if body.Status != "ok" {
		return nil, fmt.Errorf("%w: %s returned status %q (%s: %s)",
			ErrProviderUnavailable, path, body.Status, body.Code, body.Message)
	}

	return body.Articles, nil
}
