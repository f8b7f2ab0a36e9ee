// Package main запускает HTTP-сервер бэк-офиса магазина на Etsy.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/liamroyal/etsy-software/internal/config"
	"github.com/liamroyal/etsy-software/internal/handler"
	"github.com/liamroyal/etsy-software/internal/ingest"
	"github.com/liamroyal/etsy-software/internal/middleware"
	"github.com/liamroyal/etsy-software/internal/repository"
	"github.com/liamroyal/etsy-software/internal/service"
)

func openRepository(ctx context.Context, cfg *config.Config) (service.Repository, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendFirestore:
		return repository.NewFirestoreRepository(ctx, repository.FirestoreConfig{
			ProjectID:       cfg.FirestoreProjectID,
			EmulatorHost:    cfg.FirestoreEmulatorHost,
			CredentialsFile: cfg.FirebaseCredentialsFile,
		})
	default:
		return repository.NewPostgresRepository(cfg.DatabaseURI)
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		sugar.Fatalw("store initialization error", "backend", cfg.StoreBackend, "error", err.Error())
	}

	var ingestClient service.IngestClient
	if cfg.IngestAddress != "" {
		ingestClient = ingest.NewClient(cfg.IngestAddress)
	}

	svc := service.NewService(repo, ingestClient, service.Options{
		Logger:         logger,
		CacheTTL:       cfg.CacheTTL,
		OverdueDays:    cfg.OverdueDays,
		IngestInterval: cfg.IngestInterval,
	})
	defer svc.Close()

	var verifier middleware.TokenVerifier
	if cfg.FirestoreProjectID != "" {
		fv, err := middleware.NewFirebaseVerifierFromConfig(ctx, cfg.FirestoreProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			sugar.Warnw("firebase auth disabled", "error", err.Error())
		} else {
			verifier = fv
			sugar.Infow("firebase auth enabled", "project", cfg.FirestoreProjectID)
		}
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret, verifier)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Загрузка новых заказов из сервиса разбора писем
	g.Go(func() error {
		svc.StartIngest(ctx)
		return nil
	})

	// Подписка на изменения заказов в хранилище
	g.Go(func() error {
		svc.WatchOrders(ctx)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting back-office server", "addr", cfg.RunAddress, "backend", cfg.StoreBackend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
