package invoices

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasgomesc1993/financas-api/internal/audit"
	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
	"github.com/lucasgomesc1993/financas-api/internal/logging"
	"github.com/lucasgomesc1993/financas-api/internal/notify"
)

const (
	userID    = "11111111-1111-1111-1111-111111111111"
	cardID    = "cccccccc-cccc-cccc-cccc-cccccccccccc"
	invoiceID = "dddddddd-dddd-dddd-dddd-dddddddddddd"
	accountID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	paymentID = "eeeeeeee-eeee-eeee-eeee-eeeeeeeeeeee"
)

type MockStore struct {
	AddPurchaseFunc    func(ctx context.Context, userID, cardID string, p Purchase) (PurchaseResult, error)
	DeletePurchaseFunc func(ctx context.Context, userID, purchaseID string) error
	ListByCardFunc     func(ctx context.Context, userID, cardID string) ([]Invoice, error)
	ListFunc           func(ctx context.Context, userID, status string) ([]Invoice, error)
	GetFunc            func(ctx context.Context, userID, id string) (Invoice, error)
	PayFunc            func(ctx context.Context, userID, id string, in PayInput) (Payment, Invoice, error)
	UndoPaymentFunc    func(ctx context.Context, userID, id, paymentID string) (Invoice, error)
}

func (m *MockStore) AddPurchase(ctx context.Context, userID, cardID string, p Purchase) (PurchaseResult, error) {
	return m.AddPurchaseFunc(ctx, userID, cardID, p)
}
func (m *MockStore) DeletePurchase(ctx context.Context, userID, purchaseID string) error {
	return m.DeletePurchaseFunc(ctx, userID, purchaseID)
}
func (m *MockStore) ListByCard(ctx context.Context, userID, cardID string) ([]Invoice, error) {
	return m.ListByCardFunc(ctx, userID, cardID)
}
func (m *MockStore) List(ctx context.Context, userID, status string) ([]Invoice, error) {
	return m.ListFunc(ctx, userID, status)
}
func (m *MockStore) Get(ctx context.Context, userID, id string) (Invoice, error) {
	return m.GetFunc(ctx, userID, id)
}
func (m *MockStore) Pay(ctx context.Context, userID, id string, in PayInput) (Payment, Invoice, error) {
	return m.PayFunc(ctx, userID, id, in)
}
func (m *MockStore) UndoPayment(ctx context.Context, userID, id, paymentID string) (Invoice, error) {
	return m.UndoPaymentFunc(ctx, userID, id, paymentID)
}

type archiverFunc func(ctx context.Context, userID, kind string, data []byte) (string, time.Time, error)

func (f archiverFunc) Archive(ctx context.Context, userID, kind string, data []byte) (string, time.Time, error) {
	return f(ctx, userID, kind, data)
}

type publisherFunc func(ctx context.Context, e notify.Event) error

func (f publisherFunc) Publish(ctx context.Context, e notify.Event) error { return f(ctx, e) }

type recorderFunc func(ctx context.Context, e audit.Entry) error

func (f recorderFunc) Record(ctx context.Context, e audit.Entry) error { return f(ctx, e) }

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newApp(h *Handler) *fiber.App {
	h.Now = func() time.Time { return now }
	if h.Log == nil {
		h.Log = logging.Discard()
	}
	app := httpx.NewApp(logging.Discard())
	app.Use(auth.WithUser(userID))
	app.Post("/cards/:id/purchases", h.AddPurchase)
	app.Get("/cards/:id/invoices", h.ListByCard)
	app.Delete("/purchases/:id", h.DeletePurchase)
	app.Get("/invoices", h.List)
	app.Get("/invoices/:id", h.Get)
	app.Post("/invoices/:id/pay", h.Pay)
	app.Delete("/invoices/:id/payments/:paymentId", h.UndoPayment)
	app.Get("/invoices/:id/statement.pdf", h.StatementPDF)
	app.Post("/invoices/:id/archive", h.Archive)
	return app
}

func jsonReq(method, path, b string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAddPurchase(t *testing.T) {
	var recorded []string
	store := &MockStore{
		AddPurchaseFunc: func(ctx context.Context, uid, cid string, p Purchase) (PurchaseResult, error) {
			assert.Equal(t, cardID, cid)
			assert.Equal(t, "Notebook", p.Description)
			assert.Equal(t, int64(300000), p.Amount)
			assert.Equal(t, 10, p.Installments)
			assert.Equal(t, date(2024, 3, 10), p.Date)
			return PurchaseResult{PurchaseID: "p1", CardID: cid, Amount: p.Amount}, nil
		},
	}
	h := &Handler{Store: store, Audit: recorderFunc(func(ctx context.Context, e audit.Entry) error {
		recorded = append(recorded, e.Action)
		return nil
	})}

	resp, err := newApp(h).Test(jsonReq("POST", "/cards/"+cardID+"/purchases",
		`{"description":" Notebook ","amount":300000,"date":"2024-03-10","installments":10}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{audit.ActionPurchase}, recorded)
}

func TestAddPurchase_DefaultsToOneInstallmentToday(t *testing.T) {
	store := &MockStore{
		AddPurchaseFunc: func(ctx context.Context, uid, cid string, p Purchase) (PurchaseResult, error) {
			assert.Equal(t, 1, p.Installments)
			assert.Equal(t, date(2024, 3, 15), p.Date)
			return PurchaseResult{}, nil
		},
	}

	resp, err := newApp(&Handler{Store: store}).Test(jsonReq("POST", "/cards/"+cardID+"/purchases",
		`{"description":"Café","amount":900}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAddPurchase_Validation(t *testing.T) {
	store := &MockStore{
		AddPurchaseFunc: func(ctx context.Context, uid, cid string, p Purchase) (PurchaseResult, error) {
			t.Error("store must not be called")
			return PurchaseResult{}, nil
		},
	}
	app := newApp(&Handler{Store: store})

	for _, b := range []string{
		`{"description":"","amount":100}`,
		`{"description":"x","amount":0}`,
		`{"description":"x","amount":100,"installments":49}`,
		`{"description":"x","amount":100,"installments":-1}`,
		`{"description":"x","amount":3,"installments":4}`,
		`{"description":"x","amount":100,"date":"10/03/2024"}`,
		`{"description":"x","amount":100,"category_id":"nope"}`,
	} {
		resp, err := app.Test(jsonReq("POST", "/cards/"+cardID+"/purchases", b))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, b)
	}
}

func TestAddPurchase_StoreErrors(t *testing.T) {
	cases := map[error]int{
		ErrCardNotFound:     http.StatusNotFound,
		ErrCardArchived:     http.StatusUnprocessableEntity,
		ErrLimitExceeded:    http.StatusUnprocessableEntity,
		ErrCategoryMismatch: http.StatusUnprocessableEntity,
		errors.New("boom"):  http.StatusInternalServerError,
	}
	for storeErr, want := range cases {
		store := &MockStore{
			AddPurchaseFunc: func(ctx context.Context, uid, cid string, p Purchase) (PurchaseResult, error) {
				return PurchaseResult{}, storeErr
			},
		}
		resp, err := newApp(&Handler{Store: store}).Test(jsonReq("POST", "/cards/"+cardID+"/purchases",
			`{"description":"TV","amount":500000}`))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, storeErr.Error())
	}
}

func TestList_StatusFilter(t *testing.T) {
	store := &MockStore{
		ListFunc: func(ctx context.Context, uid, status string) ([]Invoice, error) {
			assert.Equal(t, StatusOverdue, status)
			return []Invoice{{ID: invoiceID, Status: StatusOverdue}}, nil
		},
	}
	app := newApp(&Handler{Store: store})

	resp, err := app.Test(httptest.NewRequest("GET", "/invoices?status=OVERDUE", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Items []Invoice `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out.Items, 1)

	resp, err = app.Test(httptest.NewRequest("GET", "/invoices?status=late", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListByCard_UnknownCard(t *testing.T) {
	store := &MockStore{
		ListByCardFunc: func(ctx context.Context, uid, cid string) ([]Invoice, error) {
			return nil, ErrCardNotFound
		},
	}
	resp, err := newApp(&Handler{Store: store}).Test(httptest.NewRequest("GET", "/cards/"+cardID+"/invoices", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPay_FullPaymentPublishesEvent(t *testing.T) {
	var events []notify.Event
	var actions []string
	store := &MockStore{
		PayFunc: func(ctx context.Context, uid, id string, in PayInput) (Payment, Invoice, error) {
			assert.Equal(t, invoiceID, id)
			assert.Equal(t, accountID, in.AccountID)
			assert.Nil(t, in.Amount)
			assert.Equal(t, date(2024, 3, 15), in.Date)
			return Payment{ID: paymentID, Amount: 45000, AccountID: in.AccountID},
				Invoice{ID: id, UserID: uid, Status: StatusPaid, PaidAmount: 45000, Reference: "2024-03", DueDate: date(2024, 3, 20)}, nil
		},
	}
	h := &Handler{
		Store: store,
		Events: publisherFunc(func(ctx context.Context, e notify.Event) error {
			events = append(events, e)
			return nil
		}),
		Audit: recorderFunc(func(ctx context.Context, e audit.Entry) error {
			actions = append(actions, e.Action)
			return nil
		}),
	}

	resp, err := newApp(h).Test(jsonReq("POST", "/invoices/"+invoiceID+"/pay", `{"account_id":"`+accountID+`"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Len(t, events, 1)
	assert.Equal(t, notify.EventInvoicePaid, events[0].Type)
	assert.Equal(t, "2024-03-20", events[0].DueDate)
	assert.Equal(t, []string{audit.ActionInvoicePay}, actions)
}

func TestPay_PartialDoesNotPublish(t *testing.T) {
	store := &MockStore{
		PayFunc: func(ctx context.Context, uid, id string, in PayInput) (Payment, Invoice, error) {
			require.NotNil(t, in.Amount)
			assert.Equal(t, int64(1000), *in.Amount)
			assert.Empty(t, in.AccountID)
			return Payment{}, Invoice{Status: StatusPartiallyPaid}, nil
		},
	}
	h := &Handler{Store: store, Events: publisherFunc(func(ctx context.Context, e notify.Event) error {
		t.Error("unexpected event")
		return nil
	})}

	resp, err := newApp(h).Test(jsonReq("POST", "/invoices/"+invoiceID+"/pay", `{"amount":1000}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestPay_Errors(t *testing.T) {
	cases := map[error]int{
		ErrAlreadyPaid:     http.StatusConflict,
		ErrInvalidAmount:   http.StatusUnprocessableEntity,
		ErrNotFound:        http.StatusNotFound,
		ErrAccountNotFound: http.StatusNotFound,
		ErrAccountArchived: http.StatusUnprocessableEntity,
		ErrNoAccount:       http.StatusBadRequest,
	}
	for storeErr, want := range cases {
		store := &MockStore{
			PayFunc: func(ctx context.Context, uid, id string, in PayInput) (Payment, Invoice, error) {
				return Payment{}, Invoice{}, storeErr
			},
		}
		resp, err := newApp(&Handler{Store: store}).Test(jsonReq("POST", "/invoices/"+invoiceID+"/pay", `{}`))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, storeErr.Error())
	}

	resp, err := newApp(&Handler{Store: &MockStore{}}).Test(jsonReq("POST", "/invoices/"+invoiceID+"/pay", `{"amount":-5}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = newApp(&Handler{Store: &MockStore{}}).Test(jsonReq("POST", "/invoices/"+invoiceID+"/pay", `{"account_id":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUndoPayment(t *testing.T) {
	store := &MockStore{
		UndoPaymentFunc: func(ctx context.Context, uid, id, pid string) (Invoice, error) {
			assert.Equal(t, invoiceID, id)
			if pid != paymentID {
				return Invoice{}, ErrPaymentNotFound
			}
			return Invoice{ID: id, Status: StatusClosed}, nil
		},
	}
	app := newApp(&Handler{Store: store})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/invoices/"+invoiceID+"/payments/"+paymentID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/invoices/"+invoiceID+"/payments/"+accountID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeletePurchase(t *testing.T) {
	store := &MockStore{
		DeletePurchaseFunc: func(ctx context.Context, uid, id string) error {
			if id == paymentID {
				return ErrHasPayments
			}
			return nil
		},
	}
	app := newApp(&Handler{Store: store})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/purchases/"+cardID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/purchases/"+paymentID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func sampleInvoice(id string) Invoice {
	return Invoice{
		ID: id, CardName: "Nubank", Reference: "2024-03",
		ClosingDate: date(2024, 3, 5), DueDate: date(2024, 3, 12),
		Total: 1000, Remaining: 1000, Status: StatusClosed,
		Items: []Item{{Description: "Mercado", Amount: 1000, Date: date(2024, 3, 1)}},
	}
}

func TestStatementPDF_Handler(t *testing.T) {
	store := &MockStore{
		GetFunc: func(ctx context.Context, uid, id string) (Invoice, error) { return sampleInvoice(id), nil },
	}

	resp, err := newApp(&Handler{Store: store}).Test(httptest.NewRequest("GET", "/invoices/"+invoiceID+"/statement.pdf", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestArchive(t *testing.T) {
	expires := now.Add(7 * 24 * time.Hour)
	store := &MockStore{
		GetFunc: func(ctx context.Context, uid, id string) (Invoice, error) { return sampleInvoice(id), nil },
	}
	h := &Handler{
		Store: store,
		Archiver: archiverFunc(func(ctx context.Context, uid, kind string, data []byte) (string, time.Time, error) {
			assert.Equal(t, userID, uid)
			assert.Equal(t, "invoice", kind)
			assert.NotEmpty(t, data)
			return "tok123", expires, nil
		}),
	}

	resp, err := newApp(h).Test(httptest.NewRequest("POST", "/invoices/"+invoiceID+"/archive", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		URL       string    `json:"url"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "/r/tok123", out.URL)
	assert.True(t, expires.Equal(out.ExpiresAt))
}

func TestGet_NotFound(t *testing.T) {
	store := &MockStore{
		GetFunc: func(ctx context.Context, uid, id string) (Invoice, error) { return Invoice{}, ErrNotFound },
	}
	app := newApp(&Handler{Store: store})

	for _, path := range []string{"/invoices/" + invoiceID, "/invoices/" + invoiceID + "/statement.pdf", "/invoices/bad-id"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}
