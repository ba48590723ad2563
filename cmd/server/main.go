package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"dom360.app/sdrbot/common/id"
	"dom360.app/sdrbot/common/logger"
	"dom360.app/sdrbot/common/otel"
	"dom360.app/sdrbot/core/config"
	"dom360.app/sdrbot/internal/chatwoot"
	"dom360.app/sdrbot/internal/http/handler/webhook"
	"dom360.app/sdrbot/internal/http/middleware"
	httprouter "dom360.app/sdrbot/internal/http/router"
	"dom360.app/sdrbot/internal/idempotency"
	"dom360.app/sdrbot/internal/n8n"
	"dom360.app/sdrbot/internal/queue"
	"dom360.app/sdrbot/internal/ratelimit"
	"dom360.app/sdrbot/internal/service"
	"dom360.app/sdrbot/internal/signature"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "sdrbot starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	if cfg.Webhook.SharedSecret == "" {
		slog.WarnContext(ctx, "no webhook secret configured, all deliveries will be rejected")
	}

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
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Redis.Stream)

	activityProducer := queue.NewRedisProducer(redisClient, cfg.Redis.Stream, slog.Default())
	defer activityProducer.Close()

	chatwootClient := chatwoot.NewClient(cfg.Chatwoot.BaseURL, cfg.Chatwoot.AccessToken, cfg.Chatwoot.Timeout)
	n8nClient := n8n.NewClient(n8n.Config{
		BaseURL:       cfg.N8N.BaseURL,
		User:          cfg.N8N.User,
		Password:      cfg.N8N.Password,
		CreateLeadURL: cfg.N8N.CreateLeadURL,
		ScheduleURL:   cfg.N8N.ScheduleURL,
		Timeout:       cfg.N8N.Timeout,
	})

	dispatcher := service.NewDispatcher(chatwootClient, n8nClient)
	conversations := service.NewConversationService(chatwootClient, dispatcher, activityProducer, slog.Default())

	webhookHandler := webhook.NewChatwootWebhookHandler(
		signature.NewVerifier(cfg.Webhook.SharedSecret),
		ratelimit.NewLimiter(redisClient),
		idempotency.NewStore(redisClient),
		conversations,
		cfg.Webhook,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, webhookHandler)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, webhookHandler *webhook.ChatwootWebhookHandler) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, webhookHandler)

	return router
}

const banner = `
███╗   ███╗██████╗     ██████╗  ██████╗ ███╗   ███╗
████╗ ████║██╔══██╗    ██╔══██╗██╔═══██╗████╗ ████║
██╔████╔██║██████╔╝    ██║  ██║██║   ██║██╔████╔██║
██║╚██╔╝██║██╔══██╗    ██║  ██║██║   ██║██║╚██╔╝██║
██║ ╚═╝ ██║██║  ██║    ██████╔╝╚██████╔╝██║ ╚═╝ ██║
╚═╝     ╚═╝╚═╝  ╚═╝    ╚═════╝  ╚═════╝ ╚═╝     ╚═╝
`
