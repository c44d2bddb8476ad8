package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bizledger/internal/amqp"
	gcal "bizledger/internal/calendar/google"
	"bizledger/internal/cli"
	"bizledger/internal/core"
	"bizledger/internal/log"
	"bizledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	logger.Info("Starting calendar-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateCalendarWorker(); err != nil {
		logger.Error("Configuration validation failed", log.FieldOperation, log.OpValidate, log.FieldError, err)
		os.Exit(1)
	}
	// The worker only reads records; it must not publish sync requests.
	storeCfg := *cfg
	storeCfg.AMQPURL = ""

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	res, err := cli.OpenBackend(startCtx, &storeCfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer res.Cleanup()

	calendar, err := gcal.NewFromConfig(startCtx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Calendar client", log.FieldError, err)
		os.Exit(1)
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	w := worker.NewCalendarWorker(res.Ledger, calendar,
		worker.WithLogger(logger),
		worker.WithPermanentErrors(gcal.IsPermanent))

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	if cfg.CalendarResyncDays > 0 {
		since := core.TrailingCutoff(core.Today(), cfg.CalendarResyncDays)
		if err := w.Resync(ctx, since); err != nil {
			logger.Error("Startup resync incomplete", log.FieldError, err)
		}
	}

	if err := consumer.ConsumeCalendarSync(ctx, w.HandleSyncMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("calendar-worker stopped")
}
