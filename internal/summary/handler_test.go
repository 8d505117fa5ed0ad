package summary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
	"github.com/lucasgomesc1993/financas-api/internal/logging"
)

const userID = "11111111-1111-1111-1111-111111111111"

type MockStore struct {
	GetFunc func(ctx context.Context, userID string, month, today time.Time) (Summary, error)
}

func (m *MockStore) Get(ctx context.Context, userID string, month, today time.Time) (Summary, error) {
	return m.GetFunc(ctx, userID, month, today)
}

func newApp(store Store) *fiber.App {
	h := NewHandler(store)
	h.Now = func() time.Time { return time.Date(2024, 3, 15, 22, 30, 0, 0, time.UTC) }
	app := httpx.NewApp(logging.Discard())
	app.Use(auth.WithUser(userID))
	app.Get("/summary", h.Get)
	return app
}

func TestGet_DefaultsToCurrentMonth(t *testing.T) {
	store := &MockStore{
		GetFunc: func(ctx context.Context, uid string, month, today time.Time) (Summary, error) {
			assert.Equal(t, userID, uid)
			assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), month)
			assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), today)
			return Summary{Month: "2024-03", Income: 500000, Expense: 320000, Net: 180000, OverdueInvoices: 1}, nil
		},
	}

	resp, err := newApp(store).Test(httptest.NewRequest("GET", "/summary", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, int64(180000), out.Net)
	assert.Equal(t, 1, out.OverdueInvoices)
}

func TestGet_Month(t *testing.T) {
	store := &MockStore{
		GetFunc: func(ctx context.Context, uid string, month, today time.Time) (Summary, error) {
			assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), month)
			return Summary{}, nil
		},
	}
	app := newApp(store)

	resp, err := app.Test(httptest.NewRequest("GET", "/summary?month=2023-12", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/summary?month=12-2023", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGet_StoreError(t *testing.T) {
	store := &MockStore{
		GetFunc: func(ctx context.Context, uid string, month, today time.Time) (Summary, error) {
			return Summary{}, errors.New("db down")
		},
	}
	resp, err := newApp(store).Test(httptest.NewRequest("GET", "/summary", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
