package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/opticalqc/internal/api/handlers"
	"github.com/zatekoja/opticalqc/internal/api/routes"
	"github.com/zatekoja/opticalqc/internal/app"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
	"github.com/zatekoja/opticalqc/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	container, err := app.New(ctx, cfg, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	// Scheduled sweeps are off unless SWEEP_INTERVAL is set
	if cfg.Validation.SweepInterval > 0 {
		go container.Sweep.RunScheduled(ctx, cfg.Validation.SweepInterval)
		log.Info().Dur("interval", cfg.Validation.SweepInterval).Msg("Scheduled validation sweeps started")
	}

	if container.CacheInvalidator != nil {
		if err := container.CacheInvalidator.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("Statistics cache invalidation disabled; entries expire by TTL")
		}
	}

	validationHandler := handlers.NewValidationHandler(container.Validation, container.Sweep, container.StatisticsService)

	var sseHandler *handlers.SSEHandler
	if container.EventBus != nil {
		sseHandler = handlers.NewSSEHandler(container.EventBus)
	}

	readiness := map[string]routes.HealthChecker{"postgres": container.Postgres}
	if container.Redis != nil {
		readiness["redis"] = container.Redis
	}

	router := routes.NewRouter(validationHandler, sseHandler, readiness, metrics, cfg.Server.AllowedOrigins)
	handler := router.SetupRoutes()

	// Create HTTP server. WriteTimeout stays zero so validation streams are not cut off.
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Open streams end when the bus closes.
	if container.EventBus != nil {
		server.RegisterOnShutdown(func() {
			if err := container.EventBus.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close event subscriptions")
			}
		})
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing connections")
	}

	log.Info().Msg("Server stopped")
}
