package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/merchflow/echeck-debit-gateway/internal/config"
	"github.com/merchflow/echeck-debit-gateway/internal/gateway"
	"github.com/merchflow/echeck-debit-gateway/internal/processor"
	"github.com/merchflow/echeck-debit-gateway/internal/queue"
	"github.com/merchflow/echeck-debit-gateway/internal/service"
	"github.com/merchflow/echeck-debit-gateway/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting debit worker",
		"brokers", cfg.Queue.Brokers,
		"topic", cfg.Queue.Topic,
		"group_id", cfg.Queue.GroupID,
		"dlq_topic", cfg.Queue.DLQTopic,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()

	var txStore service.TransactionStore
	if cfg.Database.Enabled() {
		db, err := store.Connect(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		txStore = store.NewTransactionStore(db)
	} else {
		logger.Warn("database not configured, debit payloads carry request values only")
	}

	gatewayClient := gateway.NewClient(cfg.Gateway)
	debitService := service.NewDebitService(gatewayClient, txStore, logger)
	msgProcessor := processor.NewProcessor(debitService, logger)

	consumer, err := queue.NewConsumer(cfg.Queue.Brokers, cfg.Queue.GroupID, logger)
	if err != nil {
		logger.Error("failed to create kafka consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	producer, err := queue.NewProducer(cfg.Queue.Brokers, logger)
	if err != nil {
		logger.Error("failed to create kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	bridge := processor.NewBridge(consumer, producer, msgProcessor, cfg.Queue, logger)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- bridge.Run(runCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down worker...")
		cancel()
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("consumer stopped with error", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("consumer stopped with error", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("worker exited")
}
