package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasgomesc1993/financas-api/internal/logging"
)

func rangeApp(now time.Time) *fiber.App {
	app := NewApp(logging.Discard())
	app.Get("/r", func(c *fiber.Ctx) error {
		from, to, err := Range(c, now)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"from": from.Format(DateLayout), "to": to.Format(DateLayout)})
	})
	return app
}

func TestRange(t *testing.T) {
	app := rangeApp(time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC))

	cases := []struct {
		query string
		code  int
	}{
		{"", http.StatusOK},
		{"?from=2024-01-01&to=2024-12-31", http.StatusOK},
		{"?from=2024-01-01&to=2025-01-01", http.StatusOK},
		{"?from=2024-01-01&to=2025-01-02", http.StatusBadRequest},
		{"?from=1900-01-01&to=2999-12-31", http.StatusBadRequest},
		{"?from=2024-03-10&to=2024-03-01", http.StatusBadRequest},
		{"?from=2024-03-10&to=março", http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", "/r"+tc.query, nil))
		require.NoError(t, err)
		assert.Equal(t, tc.code, resp.StatusCode, tc.query)
	}
}

func TestLimit(t *testing.T) {
	app := NewApp(logging.Discard())
	var got int
	app.Get("/l", func(c *fiber.Ctx) error {
		got = Limit(c, 20, 100)
		return nil
	})

	for query, want := range map[string]int{"": 20, "?limit=5": 5, "?limit=0": 20, "?limit=x": 20, "?limit=500": 100} {
		_, err := app.Test(httptest.NewRequest("GET", "/l"+query, nil))
		require.NoError(t, err)
		assert.Equal(t, want, got, query)
	}
}
