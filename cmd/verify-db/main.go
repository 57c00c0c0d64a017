package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"invagro/internal/config"
	"invagro/internal/db"
	"invagro/internal/logger"
	"invagro/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const migrationLockID = 7462839

var tables = []string{
	"users", "clients", "categories", "products",
	"invoices", "invoice_lines", "credit_payments",
	"orders", "order_lines", "invoice_sequences",
	"chat_sessions", "chat_messages", "chat_audit",
}

// Connects, applies pending migrations under an advisory lock and prints the
// schema version and per-table row counts.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: "console"})
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	pool := connectDB(ctx, cfg.Database.URL, log)
	defer pool.Close()

	conn := acquireLock(ctx, pool, log)
	defer conn.Release()
	defer conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID) //nolint:errcheck

	if err := migrations.Up(pool); err != nil {
		log.Fatal("[MIGRATE] failed", zap.Error(err))
	}
	version, dirty, err := migrations.Version(pool)
	if err != nil {
		log.Fatal("[MIGRATE] failed to read version", zap.Error(err))
	}
	log.Info("[MIGRATE] schema current", zap.Uint("version", version), zap.Bool("dirty", dirty))

	fmt.Printf("%-20s %10s\n", "TABLE", "ROWS")
	for _, table := range tables {
		var n int64
		// Table names come from the fixed list above.
		if err := pool.QueryRow(ctx, "SELECT count(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&n); err != nil {
			log.Fatal("[COUNT] failed", zap.String("table", table), zap.Error(err))
		}
		fmt.Printf("%-20s %10d\n", table, n)
	}
	log.Info("[DONE] database verified")
}

func connectDB(ctx context.Context, url string, log *zap.Logger) *pgxpool.Pool {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := db.NewPool(connCtx, url)
	if err != nil {
		log.Fatal("[CONNECT] failed", zap.Error(err))
	}
	log.Info("[CONNECT] success")
	return pool
}

func acquireLock(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) *pgxpool.Conn {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		log.Fatal("[LOCK] failed to acquire connection", zap.Error(err))
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockID).Scan(&locked); err != nil {
		log.Fatal("[LOCK] failed to query advisory lock", zap.Error(err))
	}
	if !locked {
		log.Fatal("[LOCK] another migrator is currently running")
	}

	log.Info("[LOCK] success")
	return conn
}
