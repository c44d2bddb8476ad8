package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bizledger/internal/backend"
	"bizledger/internal/cache"
	"bizledger/internal/cli"
	apphttp "bizledger/internal/http"
	"bizledger/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	cfg := cli.LoadAndValidateConfig(logger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	res, err := cli.OpenBackend(startCtx, cfg, logger)
	cancelStart()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	caches := cache.NewManager(logger)
	suggester := backend.NewSuggester(cfg, caches, logger)

	opts := []apphttp.Option{
		apphttp.WithLogger(logger),
		apphttp.WithSuggester(suggester),
		apphttp.WithWindows(cfg.ChartWindowDays, cfg.ExportWindowDays),
	}
	for name, check := range res.Checks {
		opts = append(opts, apphttp.WithReadinessCheck(name, apphttp.ReadinessCheck(check)))
	}
	srv := apphttp.NewServer(":"+cfg.Port, res.Ledger, opts...)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})
	caches.Start(ctx, 10*time.Minute)

	logger.Info("Starting bizledger server", log.FieldOperation, log.OpStartup, "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
