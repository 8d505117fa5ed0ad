package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lucasgomesc1993/financas-api/internal/accounts"
	"github.com/lucasgomesc1993/financas-api/internal/admin"
	"github.com/lucasgomesc1993/financas-api/internal/audit"
	"github.com/lucasgomesc1993/financas-api/internal/auth"
	"github.com/lucasgomesc1993/financas-api/internal/budgets"
	"github.com/lucasgomesc1993/financas-api/internal/cards"
	"github.com/lucasgomesc1993/financas-api/internal/categories"
	"github.com/lucasgomesc1993/financas-api/internal/config"
	"github.com/lucasgomesc1993/financas-api/internal/database"
	"github.com/lucasgomesc1993/financas-api/internal/httpx"
	"github.com/lucasgomesc1993/financas-api/internal/idempotency"
	"github.com/lucasgomesc1993/financas-api/internal/invoices"
	"github.com/lucasgomesc1993/financas-api/internal/jobs"
	"github.com/lucasgomesc1993/financas-api/internal/logging"
	"github.com/lucasgomesc1993/financas-api/internal/notify"
	"github.com/lucasgomesc1993/financas-api/internal/recurring"
	"github.com/lucasgomesc1993/financas-api/internal/reports"
	"github.com/lucasgomesc1993/financas-api/internal/router"
	"github.com/lucasgomesc1993/financas-api/internal/storage"
	"github.com/lucasgomesc1993/financas-api/internal/summary"
	"github.com/lucasgomesc1993/financas-api/internal/transactions"
)

func main() {
	conf, loaded, err := config.Load("")
	logger := logging.New(os.Stderr, conf.Log.Level, conf.Log.Format)
	if err != nil {
		logger.Fatal("loading config", "error", err)
	}
	if loaded != "" {
		logger.Info("config loaded", "path", loaded)
	}
	if err := conf.Validate(); err != nil {
		logger.Fatal("invalid config", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Open(ctx, conf.DatabaseURL)
	if err != nil {
		logger.Fatal("error opening database", "error", err)
	}
	defer pool.Close()

	blobs, err := storage.New(conf.Storage, logger)
	if err != nil {
		logger.Fatal("error configuring statement storage", "error", err)
	}
	events, err := notify.New(ctx, conf.Queue, logger)
	if err != nil {
		logger.Fatal("error configuring event queue", "error", err)
	}

	app := httpx.NewApp(logger)
	app.Use(recover.New())
	app.Use(logging.RequestLogger(logger))
	app.Use(router.CorsMiddleware(conf.CORSOrigin))

	recorder := audit.NewLogger(pool)
	links := reports.NewLinks(pool, blobs, conf.Storage.LinkTTL)

	issuer := auth.NewIssuer(conf.Auth.JWTSecret, conf.Auth.TokenTTL)
	users := auth.NewRepository(pool)
	categoryRepo := categories.NewRepository(pool)
	budgetRepo := budgets.NewRepository(pool)
	invoiceRepo := invoices.NewRepository(pool)

	r := &router.Router{
		AuthHandler:         auth.NewHandler(users, issuer, categoryRepo, logger),
		AccountsHandler:     accounts.NewHandler(accounts.NewRepository(pool), recorder, logger),
		CategoriesHandler:   categories.NewHandler(categoryRepo),
		TransactionsHandler: transactions.NewHandler(transactions.NewRepository(pool), recorder, logger),
		CardsHandler:        cards.NewHandler(cards.NewRepository(pool)),
		InvoicesHandler:     invoices.NewHandler(invoiceRepo, links, events, recorder, logger),
		BudgetsHandler:      budgets.NewHandler(budgetRepo),
		RecurringHandler:    recurring.NewHandler(recurring.NewRepository(pool)),
		SummaryHandler:      summary.NewHandler(summary.NewRepository(pool, budgetRepo)),
		ReportsHandler:      reports.NewHandler(reports.NewRepository(pool)),
		AdminHandler:        admin.NewHandler(admin.NewRepository(pool)),
		Download:            reports.DownloadHandler(links),

		AuthMW:      auth.Middleware(issuer, touchLastSeen(users, logger)),
		AdminMW:     admin.RequireKey(conf.Auth.AdminKey),
		AuthLimit:   router.RateLimitAuth(conf.Limits.AuthMax),
		WriteLimit:  router.RateLimitWrite(conf.Limits),
		Idempotency: idempotency.Middleware(idempotency.NewRepository(pool), logger),
	}
	r.RegisterRoutes(app)

	sweeper := startSweeper(ctx, conf.Jobs, invoiceRepo, links, events, logger)

	go func() {
		logger.Info("listening", "port", conf.Port, "env", conf.Env)
		if err := app.Listen(":" + conf.Port); err != nil {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("shutdown", "error", err)
	}
}

// touchLastSeen updates last_seen_at off the request path.
func touchLastSeen(users *auth.Repository, logger *log.Logger) func(string) {
	return func(userID string) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := users.Touch(ctx, userID); err != nil {
				logger.Debug("touch last seen", "user_id", userID, "error", err)
			}
		}()
	}
}

func startSweeper(ctx context.Context, conf config.JobsConfig, inv *invoices.Repository, links *reports.Links, events notify.Publisher, logger *log.Logger) *jobs.Worker {
	if conf.Disabled {
		logger.Info("background jobs disabled")
		return nil
	}

	interval := conf.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	sweep := &jobs.Sweep{
		Invoices: inv,
		Links:    links,
		Events:   events,
		Log:      logger.With("job", "invoice-sweep"),
		Now:      time.Now,
	}
	w := &jobs.Worker{
		Name:    "invoice-sweep",
		Handler: jobs.Every(interval, logger, sweep.Run),
		Log:     logger,
	}
	w.Start(ctx)
	return w
}
