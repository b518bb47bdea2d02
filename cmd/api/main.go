package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/agrovoice/agri-assistant/internal/adapters/http"
	"github.com/agrovoice/agri-assistant/internal/bootstrap"
	"github.com/agrovoice/agri-assistant/internal/config"
	"github.com/agrovoice/agri-assistant/internal/core/domain"
	"github.com/agrovoice/agri-assistant/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewAPI(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Queue != nil {
		go func() {
			err := app.Queue.SubscribeIndexRebuilt(ctx, func(reloadCtx context.Context, info domain.IndexInfo) error {
				if err := app.Library.Reload(reloadCtx); err != nil {
					return err
				}
				app.Metrics.SetIndexChunks(app.Library.Info().Chunks)
				logger.Info("knowledge base hot-reloaded", "chunks", info.Chunks)
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("index event subscription failed", "error", err)
			}
		}()
	}

	router := httpadapter.NewRouter(app.QueryService, app.Library, app.Metrics, logger, httpadapter.RouterOptions{
		Service:        "api",
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", "error", err)
	}
}
