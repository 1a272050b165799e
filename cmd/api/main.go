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

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/bondusy/spa-booking/backend/internal/adapters/cache"
	"github.com/bondusy/spa-booking/backend/internal/adapters/database"
	"github.com/bondusy/spa-booking/backend/internal/adapters/events"
	"github.com/bondusy/spa-booking/backend/internal/adapters/search"
	"github.com/bondusy/spa-booking/backend/internal/adapters/storage"
	"github.com/bondusy/spa-booking/backend/internal/api/handlers"
	"github.com/bondusy/spa-booking/backend/internal/api/middleware"
	"github.com/bondusy/spa-booking/backend/internal/api/routes"
	"github.com/bondusy/spa-booking/backend/internal/application/services"
	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/openai"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/postgres"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/redis"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/typesense"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/notifications"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
	"github.com/bondusy/spa-booking/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			observability.EnableOTelLogs(cfg.OTEL.ServiceName)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	loc, err := cfg.Booking.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid booking timezone")
	}
	schedule, err := entities.NewSlotSchedule(cfg.Booking.Slots, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid booking slots")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Redis carries the realtime bus, so the API cannot run without it
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	defer redisClient.Close()

	cacheProvider := cache.NewRedisAdapter(redisClient)
	eventBus := events.NewRedisEventBus(redisClient)
	notifier := services.NewRealtimeNotifier(eventBus, metrics)

	// Repositories
	appointmentRepo := database.NewAppointmentAdapter(pgClient)
	procedureRepo := database.NewCachedProcedureAdapter(database.NewProcedureAdapter(pgClient), cacheProvider)
	profileRepo := database.NewProfileAdapter(pgClient)
	notificationLogs := database.NewNotificationLogAdapter(sqlx.NewDb(pgClient.DB(), "postgres"))

	var searchRepo repositories.ProcedureSearchRepository
	if cfg.Typesense.URL != "" {
		tsClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("search disabled, falling back to database queries")
		} else {
			if err := tsClient.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to init Typesense schema")
			}
			searchRepo = search.NewTypesenseAdapter(tsClient)
		}
	}

	bucket, err := storage.NewLocalBucket(cfg.Storage.Root, "procedures", cfg.Storage.PublicBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize image storage")
	}

	var emailSender providers.EmailSender
	if sender, err := notifications.NewResendSender(&cfg.Email); err != nil {
		log.Warn().Err(err).Msg("email delivery disabled")
	} else {
		emailSender = sender
	}

	var chatProvider providers.ChatProvider
	if client, err := openai.NewClient(&cfg.Chat); err != nil {
		log.Warn().Err(err).Msg("chat assistant disabled")
	} else {
		chatProvider = client
	}

	// Services
	notificationService := services.NewNotificationService(emailSender, notificationLogs, loc, cfg.Email.DefaultFromName)
	slotResolver := services.NewSlotResolver(appointmentRepo, schedule)
	bookingService := services.NewBookingService(appointmentRepo, procedureRepo, schedule, notifier, notificationService, metrics, cfg.Booking.ExclusiveSlots)
	statusGate := services.NewStatusGate(appointmentRepo, procedureRepo, notifier, metrics)
	appointmentService := services.NewAppointmentService(appointmentRepo, procedureRepo, profileRepo)
	procedureService := services.NewProcedureService(procedureRepo, searchRepo, bucket)
	statisticsService := services.NewStatisticsService(appointmentRepo, procedureRepo, cacheProvider, loc)
	chatService := services.NewChatService(chatProvider, openai.SpaAssistantPrompt)
	roleResolver := services.NewRoleResolver(profileRepo, cfg.Auth.RoleCacheTTL)

	cacheInvalidation := services.NewCacheInvalidationService(notifier, statisticsService)
	if err := cacheInvalidation.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to start cache invalidation")
	}

	warming := services.NewCacheWarmingService(procedureRepo)
	go warming.StartPeriodicWarming(ctx, 5*time.Minute)

	// HTTP
	validator := handlers.NewValidator(schedule)
	cacheMiddleware := middleware.NewCacheMiddleware(cacheProvider)

	router := routes.NewRouter(
		handlers.NewAppointmentHandler(slotResolver, appointmentService, bookingService, statusGate, validator),
		handlers.NewProcedureHandler(procedureService, validator, cacheMiddleware),
		handlers.NewStatisticsHandler(statisticsService),
		handlers.NewFunctionsHandler(notificationService, chatService),
		handlers.NewAuthHandler(),
		middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, roleResolver),
		routes.Options{
			CacheMiddleware: cacheMiddleware,
			Loaders:         middleware.LoadersMiddleware(procedureRepo, profileRepo),
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			StorageDir:      cfg.Storage.Root,
			Metrics:         metrics,
		},
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	cacheInvalidation.Stop()
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("error closing event bus")
	}

	log.Info().Msg("server stopped")
}
