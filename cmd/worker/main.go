package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/adisetya/collection-engine/internal/bucket"
	"github.com/adisetya/collection-engine/internal/cache"
	"github.com/adisetya/collection-engine/internal/config"
	"github.com/adisetya/collection-engine/internal/handler"
	"github.com/adisetya/collection-engine/internal/queue"
	"github.com/adisetya/collection-engine/internal/repository"
	"github.com/adisetya/collection-engine/internal/service"
	"github.com/adisetya/collection-engine/pkg/logger"
	"github.com/adisetya/collection-engine/pkg/response"
)

func main() {
	// .env is optional; viper also reads the environment directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	vendorConfigRepo := repository.NewVendorConfigRepository(db)

	// Initialize engine components
	catalog := bucket.NewCatalog(cfg)
	candidateCache := cache.NewCandidateCache(redisClient, cfg.GetCandidateCacheTTL())
	dispatcher := queue.NewDispatcher(redisClient, cfg.Collection.QueueName, zlog)

	filter := service.NewEligibilityFilter(assignmentRepo, zlog)
	overflow := service.NewCapacityOverflowResolver(accountRepo, assignmentRepo, catalog, zlog)
	ledger := service.NewAssignmentLedger(assignmentRepo, zlog)
	orchestrator := service.NewEscalationOrchestrator(
		accountRepo, vendorConfigRepo, catalog, filter, overflow, ledger,
		candidateCache, dispatcher, zlog,
	)
	scanner := service.NewExpiryScanner(
		accountRepo, assignmentRepo, catalog, ledger, dispatcher,
		cfg.Collection.AgentMaxStayDays, zlog,
	)

	// Wire queue consumer
	consumer := queue.NewConsumer(redisClient, cfg.Collection.QueueName, cfg.GetQueuePollTimeout(), zlog)
	consumer.Register(queue.TaskRunStage, func(ctx context.Context, payload json.RawMessage) error {
		var p queue.StagePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		return orchestrator.RunStage(ctx, p)
	})
	consumer.Register(queue.TaskExpiryFollowup, func(ctx context.Context, payload json.RawMessage) error {
		var p queue.ExpiryFollowupPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		return orchestrator.HandleExpiryFollowup(ctx, p)
	})
	consumer.Register(queue.TaskRunExpirySweep, func(ctx context.Context, _ json.RawMessage) error {
		return scanner.Sweep(ctx)
	})

	// Health endpoints on the side
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.Collection.QueueName)
	router := setupRoutes(healthHandler)

	server := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		zlog.Info("health server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("health server failed", zap.Error(err))
		}
	}()

	// Run the consumer until interrupted
	ctx, cancel := context.WithCancel(context.Background())
	consumerDone := make(chan error, 1)
	go func() {
		zlog.Info("worker consuming", zap.String("queue", cfg.Collection.QueueName))
		consumerDone <- consumer.Run(ctx)
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down worker")

	cancel()
	<-consumerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal("health server forced to shutdown", zap.Error(err))
	}

	zlog.Info("worker exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	return router
}
