package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/adisetya/collection-engine/internal/config"
	"github.com/adisetya/collection-engine/internal/domain"
	"github.com/adisetya/collection-engine/internal/queue"
	"github.com/adisetya/collection-engine/pkg/logger"
)

func main() {
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

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	dispatcher := queue.NewDispatcher(redisClient, cfg.Collection.QueueName, zlog)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		zlog.Fatal("invalid scheduler timezone", zap.Error(err))
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Schedule tasks
	setupCronJobs(c, cfg, dispatcher, zlog)

	// Start the scheduler
	c.Start()
	zlog.Info("scheduler started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down scheduler")
	<-c.Stop().Done()
	zlog.Info("scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, dispatcher queue.Dispatcher, zlog *zap.Logger) {
	// Periodic expiry sweep: frees stale assignments and re-enqueues the
	// accounts they held.
	_, err := c.AddFunc(cfg.Scheduler.SweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		zlog.Info("dispatching expiry sweep")
		if err := dispatcher.Enqueue(ctx, queue.TaskRunExpirySweep, struct{}{}); err != nil {
			zlog.Error("failed to dispatch expiry sweep", zap.Error(err))
		}
	})
	if err != nil {
		zlog.Error("failed to schedule expiry sweep job", zap.Error(err))
	}

	// Daily pipeline kickoff: starts the escalation chain from the entry
	// bucket; each stage dispatches the next.
	_, err = c.AddFunc(cfg.Scheduler.KickoffSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		zlog.Info("dispatching pipeline kickoff")
		payload := queue.StagePayload{SubBucket: domain.SubBucket5}
		if err := dispatcher.Enqueue(ctx, queue.TaskRunStage, payload); err != nil {
			zlog.Error("failed to dispatch pipeline kickoff", zap.Error(err))
		}
	})
	if err != nil {
		zlog.Error("failed to schedule pipeline kickoff job", zap.Error(err))
	}

	zlog.Info("cron jobs scheduled")
}
