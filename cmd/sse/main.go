package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bondusy/spa-booking/backend/internal/adapters/database"
	"github.com/bondusy/spa-booking/backend/internal/adapters/events"
	"github.com/bondusy/spa-booking/backend/internal/api/handlers"
	"github.com/bondusy/spa-booking/backend/internal/api/middleware"
	"github.com/bondusy/spa-booking/backend/internal/api/routes"
	"github.com/bondusy/spa-booking/backend/internal/application/services"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/postgres"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/redis"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
	"github.com/bondusy/spa-booking/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-sse", cfg.Environment)

	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	defer redisClient.Close()

	// roles are looked up so admins receive every patient's events
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	eventBus := events.NewRedisEventBus(redisClient)
	notifier := services.NewRealtimeNotifier(eventBus, metrics)
	roles := services.NewRoleResolver(database.NewProfileAdapter(pgClient), cfg.Auth.RoleCacheTTL)

	sseHandler := handlers.NewSSEHandler(notifier)
	handler := routes.NewStreamRouter(
		sseHandler,
		middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, roles),
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.SSEPort)
	// streams are long-lived, so there is no write timeout
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     handler,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("SSE server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("SSE server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Int("open_streams", sseHandler.ClientCount()).Msg("SSE server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// closing the bus ends every open stream so Shutdown can drain
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("error closing event bus")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("SSE server stopped")
}
