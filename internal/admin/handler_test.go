package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasgomesc1993/financas-api/internal/httpx"
	"github.com/lucasgomesc1993/financas-api/internal/logging"
)

type storeFunc func(ctx context.Context) (Overview, error)

func (f storeFunc) Overview(ctx context.Context) (Overview, error) { return f(ctx) }

func newApp(key string) *fiber.App {
	h := NewHandler(storeFunc(func(ctx context.Context) (Overview, error) {
		return Overview{UsersTotal: 3, InvoicesByStatus: map[string]int64{"overdue": 1}}, nil
	}))
	app := httpx.NewApp(logging.Discard())
	app.Get("/admin/overview", RequireKey(key), h.Overview)
	return app
}

func TestOverview_RequiresKey(t *testing.T) {
	app := newApp("s3cret")

	resp, err := app.Test(httptest.NewRequest("GET", "/admin/overview", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/admin/overview", nil)
	req.Header.Set(KeyHeader, "wrong")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/admin/overview", nil)
	req.Header.Set(KeyHeader, "s3cret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out Overview
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, int64(3), out.UsersTotal)
	assert.Equal(t, int64(1), out.InvoicesByStatus["overdue"])
}

func TestOverview_NoKeyConfigured(t *testing.T) {
	req := httptest.NewRequest("GET", "/admin/overview", nil)
	req.Header.Set(KeyHeader, "")
	resp, err := newApp("").Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
