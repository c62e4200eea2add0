package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jit-funding-engine/internal/authorization/components"
	"github.com/jit-funding-engine/internal/config"
	"github.com/jit-funding-engine/internal/data/cache"
	"github.com/jit-funding-engine/internal/data/mongo"
	"github.com/jit-funding-engine/internal/data/postgres"
	"github.com/jit-funding-engine/internal/gateway"
	"github.com/jit-funding-engine/internal/gateway/service"
	"github.com/jit-funding-engine/internal/logger"
	"github.com/jit-funding-engine/internal/platform/fundingclient"
	"github.com/jit-funding-engine/internal/platform/messaging/producers"
	"github.com/jit-funding-engine/internal/platform/persistence"
	reconciliation "github.com/jit-funding-engine/internal/reconciliation/service"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("authorizer")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Authorizer",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Migrations run before the pool is opened
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
	decisionCache := cache.NewDecisionCache(log, redisClient, cfg.Decision.CacheTTL)

	// The publisher stays a nil interface when Kafka is unreachable so that
	// charge failures are reconciled inline
	var outcomePublisher producers.ChargeOutcomePublisher
	kafkaProducer, err := producers.NewChargeOutcomeProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Warn("Kafka unavailable, charge failures will be reconciled inline", "error", err)
	} else {
		outcomePublisher = kafkaProducer
	}

	cardRepo := postgres.NewCardRepository(log, postgresDB)
	instrumentRepo := postgres.NewInstrumentRepository(log, postgresDB)
	ledgerRepo := postgres.NewTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	activityRepo := mongo.NewActivityRepository(log, mongoDB.Database())

	fundingClient, err := fundingclient.NewClient(log, &cfg.Funding)
	if err != nil {
		log.Error("Failed to create funding client", "error", err)
		os.Exit(1)
	}

	decisionService, err := components.CreateDecisionService(
		postgresDB,
		components.Repositories{
			Cards:       cardRepo,
			Instruments: instrumentRepo,
			Ledger:      ledgerRepo,
			Outbox:      outboxRepo,
		},
		fundingClient,
		decisionCache,
		log,
		cfg,
	)
	if err != nil {
		log.Error("Failed to create decision service", "error", err)
		os.Exit(1)
	}

	reconciliationService := reconciliation.NewReconciliationService(postgresDB, ledgerRepo, outboxRepo, decisionCache, log)

	server := gateway.NewServer(log, cfg, gateway.Services{
		Decisions:  decisionService,
		Dispatcher: service.NewOutcomeDispatcher(log, outcomePublisher, reconciliationService),
		Linker:     service.NewInstrumentLinker(log, postgresDB, cardRepo, instrumentRepo, fundingClient),
		Activity:   service.NewActivityService(log, cardRepo, ledgerRepo, activityRepo),
	})
	log.Info("HTTP gateway initialized")

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

	// Drain in-flight decisions before closing their stores
	var shutdownErr error
	if err := server.Stop(context.Background()); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Error("Error closing Kafka producer", "error", err)
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

	if serverErr != nil || shutdownErr != nil {
		log.Error("Authorizer shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Authorizer shutdown completed successfully")
}
