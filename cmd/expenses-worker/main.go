package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/store/sheets"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	target, err := sheets.New(ctx, backend.SheetsConfig(cfg), logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets store", log.FieldError, err)
		os.Exit(1)
	}
	defer target.Close()

	caches := cache.NewManager(logger)
	if c := target.Cache(); c != nil {
		caches.Register(c)
	}
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	consumer, err := events.NewAMQPConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP consumer", log.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	mirror := worker.NewMirrorWorker(target, logger)
	if err := mirror.Prime(ctx); err != nil {
		logger.Warn("Could not prime mirror target, will retry on first message", log.FieldError, err)
	}

	logger.Info("Starting expenses worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		log.FieldOperation, log.OpStartup)
	if err := consumer.Consume(ctx, mirror.HandleExpenseCreated); err != nil && !errors.Is(err, context.Canceled) {
		// Let the supervisor restart the worker with a fresh connection.
		logger.Error("Consumer stopped", log.FieldError, err)
		consumer.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
