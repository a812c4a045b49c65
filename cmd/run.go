package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"royale/api"
	"royale/application"
	"royale/config"
	"royale/database"
	"royale/domain/events"
	"royale/localstore"
	"royale/payments"
	"royale/repository"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.WithFields(log.Fields{
		"storage":     cfg.Storage,
		"environment": cfg.Environment,
	}).Info("Starting raffle storefront")

	eventBus := events.NewBus()
	application.RegisterSubscriptions(eventBus)

	uowFactory, cleanup, err := buildStorage(ctx, cfg, eventBus)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Seed {
		if err := application.Seed(ctx, uowFactory); err != nil {
			return fmt.Errorf("failed to seed store: %w", err)
		}
	}

	worker := application.NewResolutionWorker(uowFactory)
	stopWorker := worker.Start(ctx)
	defer stopWorker()

	server := api.NewServer(uowFactory, api.NewSessionManager(), payments.NewGateway(), worker)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", httpServer.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown failed")
	}

	log.Info("Shutdown completed")
	return nil
}

// buildStorage opens the configured backend and returns its unit-of-work
// factory plus a cleanup function.
func buildStorage(ctx context.Context, cfg *config.Config, eventBus *events.Bus) (application.UnitOfWorkFactory, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		log.Info("Connecting to database...")
		db, err := database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return repository.NewUnitOfWorkFactory(db, eventBus), db.Close, nil

	case config.StorageFile:
		store, err := localstore.Open(cfg.DataFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open data file: %w", err)
		}
		return localstore.NewUnitOfWorkFactory(store, eventBus), func() {}, nil

	case config.StorageMemory:
		return localstore.NewUnitOfWorkFactory(localstore.NewMemoryStore(), eventBus), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
