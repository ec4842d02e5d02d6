package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/merchflow/echeck-debit-gateway/internal/config"
	"github.com/merchflow/echeck-debit-gateway/internal/gateway"
	"github.com/merchflow/echeck-debit-gateway/internal/handler"
	"github.com/merchflow/echeck-debit-gateway/internal/middleware"
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

	logger.Info("starting debit api",
		"port", cfg.Server.Port,
		"gateway_url", cfg.Gateway.BaseURL,
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

	debitHandler := handler.NewDebitHandler(debitService, logger)

	mux := http.NewServeMux()
	debitHandler.RegisterRoutes(mux)

	router := http.Handler(mux)

	h := middleware.Recovery(logger)(router)
	h = middleware.Logging(logger)(h)
	h = middleware.Timeout(cfg.Server.WriteTimeout)(h)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
