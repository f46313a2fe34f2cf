package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/api"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/view"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	m := metrics.New()
	client := api.NewClient(cfg.APIURL, cfg.APITimeout)
	tracker := view.NewTracker(client,
		view.WithLogger(logger.WithComponent(log.ComponentFetcher)),
		view.WithObserver(m),
	)

	srv, err := apphttp.NewServer(":"+cfg.Port, tracker, apphttp.Options{
		Logger:             logger,
		Metrics:            m,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		logger.Error("Failed to initialize HTTP server", log.FieldError, err, log.FieldOperation, log.OpStartup)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	// Initial mount: populate the collection before the first request.
	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, cfg.APITimeout)
		defer cancel()
		if err := tracker.Load(loadCtx); err != nil {
			logger.Warn("Initial expense fetch failed", log.FieldError, err, log.FieldAPIURL, client.BaseURL())
		}
	}()

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		log.FieldAPIURL, client.BaseURL(),
		"api_timeout", cfg.APITimeout.String(),
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
