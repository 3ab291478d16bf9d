package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestAdminOnly(t *testing.T) {
	app := fiber.New()
	app.Use(AdminOnly("s3cret"))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"key": c.Locals("apiKey")})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong", "nope", fiber.StatusForbidden},
		{"correct", "s3cret", fiber.StatusOK},
		{"bearer", "Bearer s3cret", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAdminOnlyWithoutConfiguredKey(t *testing.T) {
	app := fiber.New()
	app.Use(AdminOnly(""))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "anything")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Admin API is disabled", decode(t, resp)["error"])
}

type listQuery struct {
	Country  string `query:"country" validate:"required,alpha,len=2"`
	Page     int    `query:"page"`
	PageSize int    `query:"pageSize"`
}

func (q *listQuery) SetDefaults() {
	q.Page = 1
	q.PageSize = 12
}

func newQueryApp() *fiber.App {
	app := fiber.New()
	app.Get("/", ValidateQuery[listQuery](), func(c *fiber.Ctx) error {
		return c.JSON(Query[listQuery](c))
	})
	return app
}

func TestValidateQueryAppliesDefaults(t *testing.T) {
	resp, err := newQueryApp().Test(httptest.NewRequest(http.MethodGet, "/?country=us", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, "us", body["Country"])
	assert.Equal(t, float64(1), body["Page"])
	assert.Equal(t, float64(12), body["PageSize"])
}

func TestValidateQueryReportsFieldsByQueryName(t *testing.T) {
	resp, err := newQueryApp().Test(httptest.NewRequest(http.MethodGet, "/?page=2", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, map[string]any{"country": "required"}, body["fields"])
}

func TestValidateQueryRejectsUnparsableValues(t *testing.T) {
	resp, err := newQueryApp().Test(httptest.NewRequest(http.MethodGet, "/?country=us&page=abc", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(RequestLogger())
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "I'm a teapot", decode(t, resp)["error"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal Server Error", decode(t, resp)["error"])
}
