package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lucasgomesc1993/financas-api/internal/httpx"
	"github.com/lucasgomesc1993/financas-api/internal/logging"
)

type MockUserStore struct {
	CreateUserFunc  func(ctx context.Context, email, passwordHash, fullName string) (User, error)
	FindByEmailFunc func(ctx context.Context, email string) (User, error)
	GetByIDFunc     func(ctx context.Context, id string) (User, error)
}

func (m *MockUserStore) CreateUser(ctx context.Context, email, passwordHash, fullName string) (User, error) {
	return m.CreateUserFunc(ctx, email, passwordHash, fullName)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	return m.FindByEmailFunc(ctx, email)
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (User, error) {
	return m.GetByIDFunc(ctx, id)
}

type seederFunc func(ctx context.Context, userID string) error

func (f seederFunc) SeedDefaults(ctx context.Context, userID string) error { return f(ctx, userID) }

func newTestApp(h *Handler) *fiber.App {
	app := httpx.NewApp(logging.Discard())
	app.Post("/signup", h.Signup)
	app.Post("/login", h.Login)
	app.Get("/me", Middleware(h.Issuer, nil), h.Me)
	return app
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSignup_Success(t *testing.T) {
	seeded := ""
	store := &MockUserStore{
		CreateUserFunc: func(ctx context.Context, email, passwordHash, fullName string) (User, error) {
			assert.Equal(t, "ana@example.com", email)
			assert.Equal(t, "Ana", fullName)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte("s3cretpass")))
			return User{ID: testUserID, Email: email, CreatedAt: time.Now()}, nil
		},
	}
	h := NewHandler(store, NewIssuer("secret", time.Hour), seederFunc(func(ctx context.Context, userID string) error {
		seeded = userID
		return nil
	}), logging.Discard())

	resp, err := newTestApp(h).Test(jsonRequest("POST", "/signup", `{"email":"ana@example.com","password":"s3cretpass","full_name":"Ana"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, testUserID, seeded)

	var out authResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	got, err := h.Issuer.Parse(out.Token)
	require.NoError(t, err)
	assert.Equal(t, testUserID, got)
}

func TestSignup_Validation(t *testing.T) {
	h := NewHandler(&MockUserStore{}, NewIssuer("secret", time.Hour), nil, logging.Discard())
	app := newTestApp(h)

	cases := map[string]string{
		"missing password": `{"email":"ana@example.com"}`,
		"bad email":        `{"email":"nope","password":"s3cretpass"}`,
		"short password":   `{"email":"ana@example.com","password":"123"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest("POST", "/signup", body))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestSignup_EmailTaken(t *testing.T) {
	store := &MockUserStore{
		CreateUserFunc: func(ctx context.Context, email, passwordHash, fullName string) (User, error) {
			return User{}, ErrEmailTaken
		},
	}
	h := NewHandler(store, NewIssuer("secret", time.Hour), nil, logging.Discard())

	resp, err := newTestApp(h).Test(jsonRequest("POST", "/signup", `{"email":"ana@example.com","password":"s3cretpass"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cretpass"), bcrypt.MinCost)
	require.NoError(t, err)

	store := &MockUserStore{
		FindByEmailFunc: func(ctx context.Context, email string) (User, error) {
			if email != "ana@example.com" {
				return User{}, ErrUserNotFound
			}
			return User{ID: testUserID, Email: email, PasswordHash: string(hash)}, nil
		},
	}
	h := NewHandler(store, NewIssuer("secret", time.Hour), nil, logging.Discard())
	app := newTestApp(h)

	resp, err := app.Test(jsonRequest("POST", "/login", `{"email":"ana@example.com","password":"s3cretpass"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "password")

	resp, err = app.Test(jsonRequest("POST", "/login", `{"email":"ana@example.com","password":"wrong-pass"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(jsonRequest("POST", "/login", `{"email":"bob@example.com","password":"s3cretpass"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe_RequiresToken(t *testing.T) {
	store := &MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (User, error) {
			return User{ID: id, Email: "ana@example.com"}, nil
		},
	}
	h := NewHandler(store, NewIssuer("secret", time.Hour), nil, logging.Discard())
	app := newTestApp(h)

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := h.Issuer.Sign(testUserID)
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var u User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&u))
	assert.Equal(t, testUserID, u.ID)
}
