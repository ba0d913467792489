package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aqqutelabs/gotoken-ledger/internal/api_gateway"
	"github.com/aqqutelabs/gotoken-ledger/internal/config"
	"github.com/aqqutelabs/gotoken-ledger/internal/conversion"
	mongorepo "github.com/aqqutelabs/gotoken-ledger/internal/data/mongo"
	"github.com/aqqutelabs/gotoken-ledger/internal/data/postgres"
	"github.com/aqqutelabs/gotoken-ledger/internal/gateway"
	"github.com/aqqutelabs/gotoken-ledger/internal/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/logger"
	"github.com/aqqutelabs/gotoken-ledger/internal/notification"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/messaging/producers"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/persistence"
	"github.com/aqqutelabs/gotoken-ledger/internal/referral"
	"github.com/aqqutelabs/gotoken-ledger/internal/taskreward"
	"github.com/aqqutelabs/gotoken-ledger/internal/wallet"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	eventProducer, err := producers.NewWalletEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize wallet event producer", "error", err)
		os.Exit(1)
	}

	// Repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	entryRepo := postgres.NewLedgerRepository(log, postgresDB)
	taskRepo := postgres.NewTaskRepository(log, postgresDB)
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	notificationRepo := mongorepo.NewNotificationRepository(log, mongoDB.Database())

	// Conversion oracle with a Redis-cached rate source
	rateSource := conversion.NewCachedSource(log, redisClient, cfg.Rates.CacheTTL, conversion.NewHTTPSource(log, &cfg.Rates))
	oracle := conversion.NewOracle(log, &cfg.Rates, rateSource)

	paymentGateway := gateway.NewHTTPGateway(log, &cfg.Gateway)
	sink := notification.NewFanoutSink(log, notificationRepo, eventProducer)

	// Core services
	ledgerService := ledger.NewService(log, postgresDB, accountRepo, entryRepo, oracle)
	walletService := wallet.NewService(log, &cfg.Fees, accountRepo, walletRepo, ledgerService, oracle, paymentGateway, sink)
	taskEngine := taskreward.NewEngine(log, postgresDB, taskRepo, ledgerService, sink)
	referralEngine := referral.NewEngine(log, &cfg.Referral, postgresDB, accountRepo, entryRepo, ledgerService, sink)

	server := api_gateway.NewServer(log, cfg, walletService, taskEngine, referralEngine)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing wallet event producer", "error", err)
	}

	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
