package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/ledgerkiro/ledgerkiro/internal/banking"
	"github.com/ledgerkiro/ledgerkiro/internal/config"
	"github.com/ledgerkiro/ledgerkiro/internal/db"
	"github.com/ledgerkiro/ledgerkiro/internal/journal"
	"github.com/ledgerkiro/ledgerkiro/internal/lock"
	"github.com/ledgerkiro/ledgerkiro/internal/outbox"
	"github.com/ledgerkiro/ledgerkiro/internal/webhook"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to parse redis url: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	sys, err := banking.New(pool, logger, cfg.SnowflakeNodeID)
	if err != nil {
		log.Fatalf("failed to build banking system: %v", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, webhook.NewWorker(pool))

	riverClient, err := river.NewClient[pgx.Tx](riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 100},
		},
		Workers: workers,
	})
	if err != nil {
		log.Fatalf("failed to create river client: %v", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		log.Fatalf("failed to start river: %v", err)
	}

	outboxWorker := &outbox.Worker{
		Journal:      journal.New(pool),
		Lock:         lock.New(redisClient),
		Ledgers:      sys.Ledgers,
		River:        riverClient,
		Logger:       logger,
		TickInterval: cfg.OutboxTickInterval,
		LockTTL:      cfg.OutboxLockTTL,
		BatchSize:    cfg.OutboxBatchSize,
	}
	go outboxWorker.Run(ctx)

	logger.Info("worker processes started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	logger.Info("shutting down workers")
	cancel()
	riverClient.Stop(context.Background())
	logger.Info("workers stopped")
}
