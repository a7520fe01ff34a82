package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"scooter/internal/app"
	"scooter/internal/backend"
	"scooter/internal/config"
	"scooter/internal/handler"
	"scooter/internal/logger"
	internalRedis "scooter/internal/redis"
	"scooter/internal/repository/postgres"
	"scooter/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	log := logger.Setup(cfg.Log.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize New Relic")
		} else {
			log.Info().Str("app", cfg.NewRelic.AppName).Msg("New Relic enabled")
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("Connected to Redis")

	// Wire dependencies.
	server, registry := wireServer(db, redisClient, nrApp, cfg, log)

	// Evict idle rental sessions in the background.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go registry.Run(sweepCtx, cfg.Rental.SweepInterval)

	// Start server in goroutine.
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("backend", cfg.Backend.BaseURL).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Stop every ride clock and abort poll before the stores go away.
	stopSweep()
	registry.Shutdown()

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Info().Msg("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server together with
// the session registry that must be shut down after it.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	cfg *config.Config,
	log zerolog.Logger,
) (*http.Server, *service.SessionRegistry) {
	// Initialize Redis stores.
	sessionStore := internalRedis.NewSessionStore(redisClient, cfg.Rental.SessionTTL)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	eventRepo := postgres.NewSessionEventRepository(db)

	// Initialize the backend client.
	api := backend.NewClient(cfg.Backend)

	// Initialize services.
	durations := service.NewDurationCalculator(cfg.Rental.EndTimeCorrection)
	summaryService := service.NewSummaryService(api, durations, log)
	scooterService := service.NewScooterService(api, cacheStore)
	registry := service.NewSessionRegistry(
		func(browserSessionID string) internalRedis.SessionStoreInterface {
			return sessionStore.Scope(browserSessionID)
		},
		service.SessionDeps{
			API:       api,
			Summaries: summaryService,
			Events:    eventRepo,
			Timing:    cfg.Rental,
			Logger:    log,
		},
	)

	// Initialize handlers.
	rentalHandler := handler.NewRentalHandler(registry, scooterService, summaryService)
	pageHandler := handler.NewPageHandler(summaryService)
	sessionHandler := handler.NewSessionHandler(registry, eventRepo, cfg.Server.AllowedOrigins)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RentalHandler:  rentalHandler,
		PageHandler:    pageHandler,
		SessionHandler: sessionHandler,
		RedisClient:    redisClient,
		LockStore:      lockStore,
		NewRelicApp:    nrApp,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SecureCookies:  cfg.Server.SecureCookies,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, registry
}
