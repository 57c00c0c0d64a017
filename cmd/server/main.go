package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "invagro/internal/adapters/web"
	"invagro/internal/ai"
	"invagro/internal/analytics"
	"invagro/internal/app"
	"invagro/internal/chat"
	"invagro/internal/config"
	"invagro/internal/core"
	"invagro/internal/db"
	"invagro/internal/logger"
	"invagro/internal/metrics"
	"invagro/internal/ratelimit"
	"invagro/internal/report"
	"invagro/migrations"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer log.Sync() //nolint:errcheck

	if err := cfg.RequireServer(); err != nil {
		log.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := migrations.Up(pool); err != nil {
		log.Fatal("migrations", zap.Error(err))
	}

	m := metrics.New()

	settings := core.NewSettingsService(pool, cfg.Invoice.AuthorizedRange)
	docService := core.NewDocumentService()

	gateway := ai.NewGateway(ai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.OpenAI.Timeout,
	})
	if !cfg.LLMEnabled() {
		log.Warn("OPENAI_API_KEY or OPENAI_MODEL not set, chat runs on keyword matching only")
	}
	tools := analytics.NewRegistry(analytics.NewPGStore(pool), log, m)
	assistant := chat.NewOrchestrator(gateway, tools, chat.NewPGStore(pool), log, m, cfg.Company.Name)

	svc := app.NewAppService(app.Deps{
		Users:     core.NewUserService(pool),
		Catalog:   core.NewCatalogService(pool),
		Invoices:  core.NewInvoiceService(pool, settings),
		Credit:    core.NewCreditService(pool),
		Orders:    core.NewOrderService(pool, docService),
		Reports:   core.NewReportingService(pool),
		Settings:  settings,
		Assistant: assistant,
		Exporter:  report.NewSalesExporter(cfg.Company.Name, log),
		Company:   cfg.Company,
		Metrics:   m,
		Logger:    log,
	})

	var limiter webAdapter.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, chat rate limiting fails open", zap.Error(err))
		}
		limiter = ratelimit.NewTokenBucket(rdb, cfg.RateLimit.ChatRate, cfg.RateLimit.ChatBurst)
	} else {
		log.Info("REDIS_ADDR not set, chat rate limiting disabled")
	}

	handler := webAdapter.NewHandler(svc, webAdapter.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
		TokenTTL:       cfg.Auth.TokenTTL,
		SecureCookies:  cfg.Server.SecureCookies,
		Logger:         log,
		Metrics:        m,
		Limiter:        limiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.OpenAI.Timeout + 30*time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()

	log.Info("server starting", zap.Int("port", cfg.Server.Port), zap.Bool("llm", cfg.LLMEnabled()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server", zap.Error(err))
	}
	log.Info("server stopped")
}
