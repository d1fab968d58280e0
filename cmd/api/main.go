package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/riahunter/firmsearch/internal/adapters/http"
	"github.com/riahunter/firmsearch/internal/bootstrap"
	"github.com/riahunter/firmsearch/internal/config"
	"github.com/riahunter/firmsearch/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup("firmsearch-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.Searcher, app.HTTPMetrics.Handler(), httpadapter.TrafficLimits{
		RequestsPerSecond: cfg.HTTPRateLimit,
		Burst:             cfg.HTTPRateBurst,
		MaxConcurrent:     cfg.HTTPRateBurst,
		QueueTimeout:      100 * time.Millisecond,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      app.HTTPMetrics.Middleware("firmsearch-api", router.Handler()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api_shutdown_error", "error", err)
	}
}
