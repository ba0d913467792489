package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aqqutelabs/gotoken-ledger/internal/config"
	"github.com/aqqutelabs/gotoken-ledger/internal/conversion"
	mongorepo "github.com/aqqutelabs/gotoken-ledger/internal/data/mongo"
	"github.com/aqqutelabs/gotoken-ledger/internal/data/postgres"
	"github.com/aqqutelabs/gotoken-ledger/internal/gateway"
	"github.com/aqqutelabs/gotoken-ledger/internal/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/logger"
	"github.com/aqqutelabs/gotoken-ledger/internal/notification"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/messaging/consumers"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/messaging/producers"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/persistence"
	"github.com/aqqutelabs/gotoken-ledger/internal/settlement"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("settlement_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Settlement Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	entryRepo := postgres.NewLedgerRepository(log, postgresDB)
	notificationRepo := mongorepo.NewNotificationRepository(log, mongoDB.Database())

	// Kafka consumer and producers
	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer is nil when no DLQ topic is configured; the handler is nil-safe

	eventProducer, err := producers.NewWalletEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize wallet event producer", "error", err)
		os.Exit(1)
	}

	// Core services
	rateSource := conversion.NewCachedSource(log, redisClient, cfg.Rates.CacheTTL, conversion.NewHTTPSource(log, &cfg.Rates))
	oracle := conversion.NewOracle(log, &cfg.Rates, rateSource)
	paymentGateway := gateway.NewHTTPGateway(log, &cfg.Gateway)
	sink := notification.NewFanoutSink(log, notificationRepo, eventProducer)
	ledgerService := ledger.NewService(log, postgresDB, accountRepo, entryRepo, oracle)

	// Settlement processing on a bounded worker pool
	baseProcessor := settlement.NewProcessor(log, ledgerService, sink)
	workerPool, err := settlement.NewWorkerPoolProcessor(log, &cfg.WorkerPool, baseProcessor)
	if err != nil {
		log.Error("Failed to initialize settlement worker pool", "error", err)
		os.Exit(1)
	}

	eventHandler := settlement.NewEventHandler(log, workerPool, dlqProducer)

	// Reconciler for entries stuck in pending
	reconciler := settlement.NewReconciler(&cfg.Reconciler, entryRepo, ledgerService, paymentGateway, log)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.SettlementTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, eventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		reconciler.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	workerPool.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing wallet event producer", "error", err)
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Settlement Processor shutdown with errors", "error", serviceErr)
	} else {
		log.Info("Settlement Processor shutdown completed successfully")
	}
}
