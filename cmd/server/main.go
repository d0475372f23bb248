// Package main is the entry point for the bakehouse API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"bakehouse/internal/app"
	"bakehouse/internal/config"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/domain/reports"
	"bakehouse/internal/infrastructure/cache"
	v1 "bakehouse/internal/infrastructure/http/v1"
	"bakehouse/internal/infrastructure/http/v1/handlers"
	"bakehouse/internal/infrastructure/messaging"
	"bakehouse/internal/infrastructure/metrics"
	"bakehouse/internal/infrastructure/realtime"
	"bakehouse/internal/infrastructure/storage/postgres"
	"bakehouse/pkg/logger"
)

// summaryCache is both read by the reports service and invalidated on stock changes.
type summaryCache interface {
	reports.SummaryCache
	cache.Invalidator
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting bakehouse server", "version", cfg.App.Version, "env", cfg.App.Env)

	// --- Database ---
	db, err := app.OpenDatabase(ctx, cfg, "bakehouse-api", cfg.Database.MigrateOnStart)
	if err != nil {
		log.Fatalw("failed to open database", "error", err)
	}
	defer db.Close()
	log.Info("database connection established")

	m := metrics.New()
	m.RegisterPool(db.Pool)

	checks := map[string]handlers.Pinger{"database": db.TxM}

	// --- Dashboard cache ---
	var summaries summaryCache
	if cfg.RedisEnabled() {
		client, err := cache.Connect(ctx, cfg.RedisClient())
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer func() { _ = client.Close() }()
		summaries = cache.NewRedisSummaryCache(client, cfg.Redis.SummaryTTL)
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
		log.Info("redis dashboard cache enabled")
	} else {
		summaries = cache.NewMemorySummaryCache(cfg.Redis.SummaryTTL)
	}

	// --- Services ---
	// Events go to the outbox inside the business transaction; counting and
	// cache invalidation happen once it commits.
	var publisher events.Publisher = postgres.NewOutboxPublisher(db.TxM)
	publisher = metrics.NewCountingPublisher(publisher, db.TxM, m)
	publisher = cache.NewInvalidatingPublisher(publisher, db.TxM, summaries)

	services, err := app.NewServices(cfg, db, app.Options{Publisher: publisher, Summaries: summaries})
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	if created, err := services.Auth.EnsureAdmin(ctx, cfg.Auth.AdminPassword); err != nil {
		log.Fatalw("failed to ensure admin account", "error", err)
	} else if created {
		log.Warnw("admin account created with configured bootstrap password; change it")
	}

	// --- Live event stream ---
	hub := realtime.NewHub()
	hub.OnClientCount(m.SetWSClients)
	defer hub.Close()

	var wg sync.WaitGroup
	if kafkaCfg := cfg.Messaging(); kafkaCfg.Enabled() {
		if kafkaCfg.InstanceID == "" {
			kafkaCfg.InstanceID = messaging.NewInstanceID()
		}
		consumer := messaging.NewConsumer(kafkaCfg, hub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { _ = consumer.Close() }()
			consumer.Run(ctx)
		}()
		log.Infow("streaming events from kafka", "brokers", kafkaCfg.Brokers, "group", kafkaCfg.ConsumerGroup())
	} else {
		relay := postgres.NewOutboxRelay(db.TxM, cfg.Worker.RelayBatchSize, m.InstrumentOutbox(hub))
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx, cfg.Worker.RelayInterval)
		}()
		log.Info("no kafka brokers configured; relaying outbox in-process")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		Metrics:      m,
		Version:      cfg.App.Version,
		HealthChecks: checks,
		JWTValidator: services.Auth,
		Idempotency:  postgres.NewIdempotencyStore(db.TxM, cfg.HTTP.IdempotencyTTL),
		Auth:         services.Auth,
		Ingredients:  services.Ingredients,
		Recipes:      services.Recipes,
		Production:   services.Production,
		Wastage:      services.Wastage,
		Products:     services.Products,
		Sales:        services.Sales,
		Reports:      services.Reports,
		Ledger:       services.Stock,
		Audit:        services.Audit,
		Events:       hub,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("server failed", "error", err)
			stop()
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	wg.Wait()

	log.Info("server stopped")
}
