package cards

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
	"github.com/lucasgomesc1993/financas-api/internal/logging"
)

const (
	userID = "11111111-1111-1111-1111-111111111111"
	cardID = "44444444-4444-4444-4444-444444444444"
)

type MockStore struct {
	ListFunc   func(ctx context.Context, userID string, includeArchived bool) ([]Card, error)
	GetFunc    func(ctx context.Context, userID, id string) (Card, error)
	CreateFunc func(ctx context.Context, userID string, req CreateRequest) (Card, error)
	UpdateFunc func(ctx context.Context, userID, id string, req UpdateRequest) (Card, error)
	DeleteFunc func(ctx context.Context, userID, id string) error
}

func (m *MockStore) List(ctx context.Context, userID string, includeArchived bool) ([]Card, error) {
	return m.ListFunc(ctx, userID, includeArchived)
}
func (m *MockStore) Get(ctx context.Context, userID, id string) (Card, error) {
	return m.GetFunc(ctx, userID, id)
}
func (m *MockStore) Create(ctx context.Context, userID string, req CreateRequest) (Card, error) {
	return m.CreateFunc(ctx, userID, req)
}
func (m *MockStore) Update(ctx context.Context, userID, id string, req UpdateRequest) (Card, error) {
	return m.UpdateFunc(ctx, userID, id, req)
}
func (m *MockStore) Delete(ctx context.Context, userID, id string) error {
	return m.DeleteFunc(ctx, userID, id)
}

func newApp(store Store) *fiber.App {
	h := NewHandler(store)
	app := httpx.NewApp(logging.Discard())
	app.Use(auth.WithUser(userID))
	app.Get("/cards", h.List)
	app.Get("/cards/:id", h.Get)
	app.Post("/cards", h.Create)
	app.Put("/cards/:id", h.Update)
	app.Delete("/cards/:id", h.Delete)
	return app
}

func jsonReq(method, path, b string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSetUsage(t *testing.T) {
	c := Card{Limit: 300000}
	c.SetUsage(100000)
	assert.Equal(t, int64(200000), c.Available)
	assert.True(t, decimal.RequireFromString("0.3333").Equal(c.Utilization))

	c.SetUsage(350000)
	assert.Equal(t, int64(-50000), c.Available)

	none := Card{}
	none.SetUsage(100)
	assert.True(t, none.Utilization.IsZero())
}

func TestGet_RendersUsage(t *testing.T) {
	store := &MockStore{
		GetFunc: func(ctx context.Context, uid, id string) (Card, error) {
			c := Card{ID: id, Name: "Nubank", Limit: 200000, ClosingDay: 3, DueDay: 10}
			c.SetUsage(50000)
			return c, nil
		},
	}

	resp, err := newApp(store).Test(httptest.NewRequest("GET", "/cards/"+cardID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	b, _ := io.ReadAll(resp.Body)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, float64(150000), out["available"])
	assert.Equal(t, "0.25", out["utilization"])
}

func TestCreate_Validation(t *testing.T) {
	app := newApp(&MockStore{})
	cases := map[string]string{
		"no name":         `{"closing_day":3,"due_day":10}`,
		"closing day 0":   `{"name":"x","closing_day":0,"due_day":10}`,
		"due day 32":      `{"name":"x","closing_day":3,"due_day":32}`,
		"negative limit":  `{"name":"x","closing_day":3,"due_day":10,"limit":-1}`,
		"bad account ref": `{"name":"x","closing_day":3,"due_day":10,"default_account_id":"abc"}`,
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := app.Test(jsonReq("POST", "/cards", b))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestCreate(t *testing.T) {
	store := &MockStore{
		CreateFunc: func(ctx context.Context, uid string, req CreateRequest) (Card, error) {
			assert.Equal(t, 31, req.ClosingDay)
			assert.Equal(t, 7, req.DueDay)
			return Card{ID: cardID, Name: req.Name}, nil
		},
	}

	resp, err := newApp(store).Test(jsonReq("POST", "/cards", `{"name":"Inter","limit":500000,"closing_day":31,"due_day":7}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestDelete_InUse(t *testing.T) {
	store := &MockStore{
		DeleteFunc: func(ctx context.Context, uid, id string) error { return ErrInUse },
	}

	resp, err := newApp(store).Test(httptest.NewRequest("DELETE", "/cards/"+cardID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUpdate_AccountNotFound(t *testing.T) {
	store := &MockStore{
		UpdateFunc: func(ctx context.Context, uid, id string, req UpdateRequest) (Card, error) {
			return Card{}, ErrAccountNotFound
		},
	}

	resp, err := newApp(store).Test(jsonReq("PUT", "/cards/"+cardID, `{"default_account_id":"`+cardID+`"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
