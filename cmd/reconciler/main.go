package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jit-funding-engine/internal/config"
	"github.com/jit-funding-engine/internal/data/cache"
	"github.com/jit-funding-engine/internal/data/mongo"
	"github.com/jit-funding-engine/internal/data/postgres"
	"github.com/jit-funding-engine/internal/logger"
	"github.com/jit-funding-engine/internal/platform/messaging/consumers"
	"github.com/jit-funding-engine/internal/platform/messaging/producers"
	"github.com/jit-funding-engine/internal/platform/persistence"
	"github.com/jit-funding-engine/internal/reconciliation/consumer"
	"github.com/jit-funding-engine/internal/reconciliation/outbox_poller"
	"github.com/jit-funding-engine/internal/reconciliation/service"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("reconciler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Reconciler",
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
	if err := mongoDB.EnsureIndexes(appCtx, mongo.ActivityCollectionName, mongo.IndexModels()); err != nil {
		log.Error("Failed to ensure activity indexes", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}
	decisionCache := cache.NewDecisionCache(log, redisClient, cfg.Decision.CacheTTL)

	ledgerRepo := postgres.NewTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	activityRepo := mongo.NewActivityRepository(log, mongoDB.Database())

	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)

	// dlqProducer is nil when no DLQ topic is configured; the handler is nil-safe
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	baseService := service.NewReconciliationService(postgresDB, ledgerRepo, outboxRepo, decisionCache, log)
	poolService, err := service.NewWorkerPoolReconciliationService(
		baseService,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to create reconciliation worker pool", "error", err)
		os.Exit(1)
	}

	chargeOutcomeHandler := consumer.NewChargeOutcomeHandler(log, poolService, dlqProducer)

	activityPublisher := outbox_poller.NewActivityPublisher(outboxRepo, activityRepo, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, activityPublisher, log)

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.ReconciliationTopic,
		"group", cfg.Kafka.ConsumerGroup,
		"workers", cfg.WorkerPool.Size,
	)
	if err := kafkaConsumer.Subscribe(appCtx, chargeOutcomeHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to reconciliation topic", "error", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case <-kafkaConsumer.Done():
		log.Error("Kafka consumer stopped unexpectedly")
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	stopped := make(chan struct{})
	go func() {
		<-kafkaConsumer.Done()
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("Consumer and poller stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	log.Info("Shutting down worker pool", "running_workers", poolService.Running())
	poolService.Shutdown()

	var shutdownErr error
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
		shutdownErr = err
	}

	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
			shutdownErr = err
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
			shutdownErr = err
		}
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if shutdownErr != nil {
		log.Error("Reconciler shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Reconciler shutdown completed successfully")
}
