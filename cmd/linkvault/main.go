package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/linkvault/internal/config"
	"github.com/mmeshcher/linkvault/internal/handler"
	"github.com/mmeshcher/linkvault/internal/middleware"
	"github.com/mmeshcher/linkvault/internal/repository"
	"github.com/mmeshcher/linkvault/internal/scraper"
	"github.com/mmeshcher/linkvault/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	sugar.Infow("Starting linkvault service")

	cfg, err := config.ParseFlags()
	if err != nil {
		sugar.Fatalw("Configuration error",
			"error", err.Error())
	}

	sugar.Infow(
		"Configuration loaded",
		"server_address", cfg.ServerAddress,
		"base_url", cfg.BaseURL,
		"short_code_length", cfg.ShortCodeLength,
		"store_timeout", cfg.StoreTimeout,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		sugar.Fatalw(err.Error(), "event", "run server")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseDSN, repository.Options{
		ShortCodeLength: cfg.ShortCodeLength,
		MaxCodeAttempts: cfg.MaxCodeAttempts,
		StoreTimeout:    cfg.StoreTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	bookmarkService := service.NewBookmarkService(repo, scraper.New(cfg.ScrapeTimeout, logger), cfg.BaseURL, logger)

	h := handler.NewHandler(
		bookmarkService,
		logger,
		middleware.NewAuthMiddleware(cfg.SecretKey, logger),
		middleware.NewKeyedLimiter(cfg.RedirectRPS, cfg.RedirectBurst),
	)

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("address", cfg.ServerAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
