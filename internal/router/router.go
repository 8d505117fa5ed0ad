package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lucasgomesc1993/financas-api/internal/accounts"
	"github.com/lucasgomesc1993/financas-api/internal/admin"
	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/budgets"
	"github.com/lucasgomesc1993/financas-api/internal/cards"
	"github.com/lucasgomesc1993/financas-api/internal/categories"
	"github.com/lucasgomesc1993/financas-api/internal/invoices"
	"github.com/lucasgomesc1993/financas-api/internal/recurring"
	"github.com/lucasgomesc1993/financas-api/internal/reports"
	"github.com/lucasgomesc1993/financas-api/internal/summary"
	"github.com/lucasgomesc1993/financas-api/internal/transactions"
)

type Router struct {
	AuthHandler         *auth.Handler
	AccountsHandler     *accounts.Handler
	CategoriesHandler   *categories.Handler
	TransactionsHandler *transactions.Handler
	CardsHandler        *cards.Handler
	InvoicesHandler     *invoices.Handler
	BudgetsHandler      *budgets.Handler
	RecurringHandler    *recurring.Handler
	SummaryHandler      *summary.Handler
	ReportsHandler      *reports.Handler
	AdminHandler        *admin.Handler

	// Download serves archived statements by token, without auth.
	Download fiber.Handler

	AuthMW      fiber.Handler
	AdminMW     fiber.Handler
	AuthLimit   fiber.Handler
	WriteLimit  fiber.Handler
	Idempotency fiber.Handler
}

// read prepends the auth middleware.
func (r *Router) read(h ...fiber.Handler) []fiber.Handler {
	return r.chain(nil, h)
}

// write prepends auth and the per-user write limiter.
func (r *Router) write(h ...fiber.Handler) []fiber.Handler {
	return r.chain([]fiber.Handler{r.WriteLimit}, h)
}

// money is write plus idempotent replay, for endpoints that move balances.
func (r *Router) money(h ...fiber.Handler) []fiber.Handler {
	return r.chain([]fiber.Handler{r.WriteLimit, r.Idempotency}, h)
}

func (r *Router) chain(extra, h []fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(h)+len(extra)+1)
	if r.AuthMW != nil {
		out = append(out, r.AuthMW)
	}
	for _, mw := range extra {
		if mw != nil {
			out = append(out, mw)
		}
	}
	return append(out, h...)
}

func (r *Router) RegisterRoutes(app *fiber.App) {
	health := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	}
	app.Get("/health", health)
	app.Get("/healthz", health)
	app.Get("/api/health", health)

	if r.Download != nil {
		app.Get("/r/:token", r.Download)
	}

	if r.AuthHandler != nil {
		signup := []fiber.Handler{r.AuthHandler.Signup}
		login := []fiber.Handler{r.AuthHandler.Login}
		if r.AuthLimit != nil {
			signup = append([]fiber.Handler{r.AuthLimit}, signup...)
			login = append([]fiber.Handler{r.AuthLimit}, login...)
		}
		app.Post("/api/auth/signup", signup...)
		app.Post("/api/auth/login", login...)
		app.Get("/api/me", r.read(r.AuthHandler.Me)...)
	}

	if h := r.AccountsHandler; h != nil {
		app.Get("/api/accounts", r.read(h.List)...)
		app.Post("/api/accounts", r.write(h.Create)...)
		app.Get("/api/accounts/:id", r.read(h.Get)...)
		app.Put("/api/accounts/:id", r.write(h.Update)...)
		app.Delete("/api/accounts/:id", r.write(h.Delete)...)

		app.Post("/api/transfers", r.money(h.Transfer)...)
		app.Delete("/api/transfers/:id", r.write(h.DeleteTransfer)...)
	}

	if h := r.CategoriesHandler; h != nil {
		app.Get("/api/categories", r.read(h.List)...)
		app.Post("/api/categories", r.write(h.Create)...)
		app.Put("/api/categories/:id", r.write(h.Update)...)
		app.Delete("/api/categories/:id", r.write(h.Delete)...)
	}

	if h := r.TransactionsHandler; h != nil {
		// static paths before /:id
		app.Get("/api/transactions/export.csv", r.read(h.ExportCSV)...)
		app.Post("/api/transactions/import", r.write(h.ImportCSV)...)

		app.Get("/api/transactions", r.read(h.List)...)
		app.Post("/api/transactions", r.money(h.Create)...)
		app.Get("/api/transactions/:id", r.read(h.Get)...)
		app.Put("/api/transactions/:id", r.write(h.Update)...)
		app.Delete("/api/transactions/:id", r.write(h.Delete)...)
		app.Patch("/api/transactions/:id/paid", r.write(h.SetPaid)...)
	}

	if h := r.CardsHandler; h != nil {
		app.Get("/api/cards", r.read(h.List)...)
		app.Post("/api/cards", r.write(h.Create)...)
		app.Get("/api/cards/:id", r.read(h.Get)...)
		app.Put("/api/cards/:id", r.write(h.Update)...)
		app.Delete("/api/cards/:id", r.write(h.Delete)...)
	}

	if h := r.InvoicesHandler; h != nil {
		app.Post("/api/cards/:id/purchases", r.money(h.AddPurchase)...)
		app.Get("/api/cards/:id/invoices", r.read(h.ListByCard)...)
		app.Delete("/api/purchases/:id", r.write(h.DeletePurchase)...)

		app.Get("/api/invoices", r.read(h.List)...)
		app.Get("/api/invoices/:id", r.read(h.Get)...)
		app.Post("/api/invoices/:id/pay", r.money(h.Pay)...)
		app.Delete("/api/invoices/:id/payments/:paymentId", r.write(h.UndoPayment)...)
		app.Get("/api/invoices/:id/statement.pdf", r.read(h.StatementPDF)...)
		app.Post("/api/invoices/:id/archive", r.write(h.Archive)...)
	}

	if h := r.BudgetsHandler; h != nil {
		app.Get("/api/budgets", r.read(h.List)...)
		app.Post("/api/budgets", r.write(h.Create)...)
		app.Post("/api/budgets/copy", r.write(h.Copy)...)
		app.Put("/api/budgets/:id", r.write(h.Update)...)
		app.Delete("/api/budgets/:id", r.write(h.Delete)...)
	}

	if h := r.RecurringHandler; h != nil {
		app.Get("/api/recurring", r.read(h.List)...)
		app.Post("/api/recurring", r.write(h.Create)...)
		app.Post("/api/recurring/materialize", r.write(h.Materialize)...)
		app.Patch("/api/recurring/:id", r.write(h.Update)...)
		app.Delete("/api/recurring/:id", r.write(h.Delete)...)
		app.Get("/api/recurring/:id/occurrences", r.read(h.Occurrences)...)
	}

	if h := r.SummaryHandler; h != nil {
		app.Get("/api/summary", r.read(h.Get)...)
	}

	if h := r.ReportsHandler; h != nil {
		app.Get("/api/reports/categories", r.read(h.Categories)...)
		app.Get("/api/reports/monthly", r.read(h.Monthly)...)
		app.Get("/api/reports/monthly.pdf", r.read(h.MonthlyPDF)...)
		app.Get("/api/reports/cashflow", r.read(h.Cashflow)...)
	}

	if r.AdminHandler != nil && r.AdminMW != nil {
		app.Get("/api/admin/overview", r.AdminMW, r.AdminHandler.Overview)
	}
}
