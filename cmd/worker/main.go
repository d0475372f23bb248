// Package main is the entry point for the bakehouse background worker.
// It relays the transactional outbox to Kafka and purges expired rows.
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
	"time"

	"bakehouse/internal/app"
	"bakehouse/internal/config"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/infrastructure/messaging"
	"bakehouse/internal/infrastructure/metrics"
	"bakehouse/internal/infrastructure/storage/postgres"
	"bakehouse/pkg/logger"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting bakehouse worker")

	db, err := app.OpenDatabase(ctx, cfg, "bakehouse-worker", false)
	if err != nil {
		log.Fatalw("failed to open database", "error", err)
	}
	defer db.Close()

	services, err := app.NewServices(cfg, db, app.Options{Publisher: events.Discard})
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	m := metrics.New()
	m.RegisterPool(db.Pool)

	var relay *postgres.OutboxRelay
	var producer *messaging.Producer
	if kafkaCfg := cfg.Messaging(); kafkaCfg.Enabled() {
		producer = messaging.NewProducer(kafkaCfg)
		defer func() { _ = producer.Close() }()
		relay = postgres.NewOutboxRelay(db.TxM, cfg.Worker.RelayBatchSize, m.InstrumentOutbox(producer))
		log.Infow("relaying outbox to kafka", "brokers", kafkaCfg.Brokers, "topic", kafkaCfg.Topic)
	} else {
		// Without brokers the API server relays the outbox itself.
		relay = postgres.NewOutboxRelay(db.TxM, cfg.Worker.RelayBatchSize, nil)
		log.Warn("no kafka brokers configured; worker only runs cleanup")
	}

	worker := &Worker{
		cfg:         cfg.Worker,
		relay:       relay,
		relayEvents: producer != nil,
		tokens:      services.Auth,
		idempotency: postgres.NewIdempotencyStore(db.TxM, cfg.HTTP.IdempotencyTTL),
		log:         log.WithComponent("worker"),
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Worker.MetricsPort,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	wg.Wait()
	log.Info("worker stopped")
}

type tokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

type idempotencyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Worker runs the outbox relay and the periodic cleanup.
type Worker struct {
	cfg         config.WorkerConfig
	relay       *postgres.OutboxRelay
	relayEvents bool
	tokens      tokenCleaner
	idempotency idempotencyCleaner
	log         *logger.Logger
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	if w.relayEvents {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.relay.Run(ctx, w.cfg.RelayInterval)
		}()
	}

	cleanupTicker := time.NewTicker(w.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	w.cleanup(ctx)
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if n, err := w.tokens.CleanupExpiredTokens(ctx); err != nil {
		w.log.Errorw("failed to clean up refresh tokens", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up expired refresh tokens", "count", n)
	}

	if n, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("failed to clean up idempotency keys", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}

	before := time.Now().UTC().Add(-w.cfg.OutboxRetention)
	if n, err := w.relay.PurgePublished(ctx, before); err != nil {
		w.log.Errorw("failed to purge published outbox messages", "error", err)
	} else if n > 0 {
		w.log.Infow("purged published outbox messages", "count", n)
	}
}
