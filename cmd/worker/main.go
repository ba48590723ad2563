package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"dom360.app/sdrbot/common/id"
	"dom360.app/sdrbot/common/logger"
	"dom360.app/sdrbot/common/otel"
	"dom360.app/sdrbot/core/config"
	"dom360.app/sdrbot/core/db"
	"dom360.app/sdrbot/internal/queue"
	"dom360.app/sdrbot/internal/store"
	"dom360.app/sdrbot/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "sdrbot worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Redis.Group,
		"consumer_name", cfg.Redis.Consumer)

	// Different node ID than the server so snowflake IDs never collide.
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Redis.Stream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:    cfg.Redis.Stream,
		Group:     cfg.Redis.Group,
		Consumer:  cfg.Redis.Consumer,
		BatchSize: 10,
		Block:     5 * time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	events := store.NewLeadEventStore(database.Pool())
	w := worker.New(consumer, events, slog.Default())

	go w.Run(ctx)

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	w.Stop()

	if telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
███╗   ███╗██████╗     ██████╗  ██████╗ ███╗   ███╗
████╗ ████║██╔══██╗    ██╔══██╗██╔═══██╗████╗ ████║
██╔████╔██║██████╔╝    ██║  ██║██║   ██║██╔████╔██║
██║╚██╔╝██║██╔══██╗    ██║  ██║██║   ██║██║╚██╔╝██║
██║ ╚═╝ ██║██║  ██║    ██████╔╝╚██████╔╝██║ ╚═╝ ██║
╚═╝     ╚═╝╚═╝  ╚═╝    ╚═════╝  ╚═════╝ ╚═╝     ╚═╝
`
