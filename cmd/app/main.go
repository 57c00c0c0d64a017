package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"

	"invagro/internal/adapters/cli"
	"invagro/internal/adapters/repl"
	"invagro/internal/ai"
	"invagro/internal/analytics"
	"invagro/internal/app"
	"invagro/internal/chat"
	"invagro/internal/config"
	"invagro/internal/core"
	"invagro/internal/db"
	"invagro/internal/logger"
	"invagro/internal/metrics"
	"invagro/internal/report"
	"invagro/internal/seed"
	"invagro/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// cliUser owns the chat sessions opened from the terminal.
const cliUser = "terminal"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// The terminal is for humans; keep logs out of the way unless asked for.
	level := cfg.Log.Level
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	log := logger.New(logger.Config{Level: level, Format: "console"})
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal("Unable to connect to database", zap.Error(err))
	}
	defer pool.Close()

	args := os.Args[1:]
	mode := ""
	if len(args) > 0 {
		mode = args[0]
	}

	switch mode {
	case "migrate":
		if err := migrations.Up(pool); err != nil {
			log.Fatal("migrations failed", zap.Error(err))
		}
		version, dirty, err := migrations.Version(pool)
		if err != nil {
			log.Fatal("failed to read schema version", zap.Error(err))
		}
		fmt.Printf("Esquema en versión %d (dirty=%t)\n", version, dirty)
		return

	case "seed":
		if err := migrations.Up(pool); err != nil {
			log.Fatal("migrations failed", zap.Error(err))
		}
		sum, err := seed.Run(ctx, pool, os.Getenv("SEED_ADMIN_PASSWORD"), log)
		if err != nil {
			log.Fatal("seed failed", zap.Error(err))
		}
		fmt.Printf("Usuario admin creado: %t\nCategorías: %d  Productos: %d  Clientes: %d\n",
			sum.AdminCreated, sum.Categories, sum.Products, sum.Clients)
		return
	}

	svc := buildService(cfg, pool, log)

	if mode == "" || mode == "chat" {
		repl.Run(ctx, svc, bufio.NewReader(os.Stdin), os.Stdout, cliUser)
		return
	}

	if err := cli.Run(ctx, svc, args, os.Stdout, cliUser); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildService(cfg *config.Config, pool *pgxpool.Pool, log *zap.Logger) app.ApplicationService {
	m := metrics.New()
	settings := core.NewSettingsService(pool, cfg.Invoice.AuthorizedRange)

	gateway := ai.NewGateway(ai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.OpenAI.Timeout,
	})
	tools := analytics.NewRegistry(analytics.NewPGStore(pool), log, m)

	return app.NewAppService(app.Deps{
		Users:     core.NewUserService(pool),
		Catalog:   core.NewCatalogService(pool),
		Invoices:  core.NewInvoiceService(pool, settings),
		Credit:    core.NewCreditService(pool),
		Orders:    core.NewOrderService(pool, core.NewDocumentService()),
		Reports:   core.NewReportingService(pool),
		Settings:  settings,
		Assistant: chat.NewOrchestrator(gateway, tools, chat.NewPGStore(pool), log, m, cfg.Company.Name),
		Exporter:  report.NewSalesExporter(cfg.Company.Name, log),
		Company:   cfg.Company,
		Metrics:   m,
		Logger:    log,
	})
}
