package main

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"sort"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lucasgomesc1993/financas-api/internal/config"
	"github.com/lucasgomesc1993/financas-api/internal/logging"
	"github.com/lucasgomesc1993/financas-api/migrations"
)

func main() {
	conf, _, err := config.Load("")
	logger := logging.New(os.Stderr, conf.Log.Level, conf.Log.Format)
	if err != nil {
		logger.Fatal("loading config", "error", err)
	}
	if conf.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", conf.DatabaseURL)
	if err != nil {
		logger.Fatal("error opening database", "error", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("error pinging database", "error", err)
	}

	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		logger.Fatal("listing migrations", "error", err)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// 001_init creates schema_migrations itself, so the bookkeeping
	// query only runs once it exists.
	for _, name := range names {
		applied, err := isApplied(ctx, db, name)
		if err != nil {
			logger.Fatal("checking migration", "name", name, "error", err)
		}
		if applied {
			logger.Debug("skipping migration", "name", name)
			continue
		}

		body, err := migrations.FS.ReadFile(name)
		if err != nil {
			logger.Fatal("reading migration", "name", name, "error", err)
		}

		logger.Info("applying migration", "name", name)
		if err := apply(ctx, db, name, string(body)); err != nil {
			logger.Fatal("error applying migration", "name", name, "error", err)
		}
	}

	logger.Info("migrations applied successfully", "count", len(names))
}

func isApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT to_regclass('schema_migrations') IS NOT NULL`).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	var applied bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&applied)
	return applied, err
}

func apply(ctx context.Context, db *sql.DB, name, body string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return err
	}
	return tx.Commit()
}
