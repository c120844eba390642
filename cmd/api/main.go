package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/planmetric/planmetric/internal/adapters/anthropic"
	"github.com/planmetric/planmetric/internal/adapters/http"
	natsadapter "github.com/planmetric/planmetric/internal/adapters/nats"
	"github.com/planmetric/planmetric/internal/adapters/postgres"
	"github.com/planmetric/planmetric/internal/adapters/render"
	"github.com/planmetric/planmetric/internal/adapters/valkey"
	"github.com/planmetric/planmetric/internal/core/ports"
	"github.com/planmetric/planmetric/internal/core/usecases"
	"github.com/planmetric/planmetric/internal/pkg/config"
	"github.com/planmetric/planmetric/internal/pkg/logging"
	"github.com/planmetric/planmetric/internal/pkg/metrics"
	"github.com/planmetric/planmetric/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("planmetric-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database (cost tables)
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache (verifier answers)
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, verifier answers will not be cached", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS (analysis/estimate events)
	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Scale verifier (optional, enabled by API key)
	var scaleVerifier *usecases.ScaleVerifier
	if cfg.Verifier.APIKey != "" {
		client := anthropic.New(
			cfg.Verifier.BaseURL,
			cfg.Verifier.APIKey,
			cfg.Verifier.Model,
			time.Duration(cfg.Verifier.TimeoutSeconds)*time.Second,
		)
		scaleVerifier = usecases.NewScaleVerifier(client, cacheSvc)
		scaleVerifier.MaxAttempts = cfg.Verifier.MaxAttempts
		scaleVerifier.Timeout = time.Duration(cfg.Verifier.TimeoutSeconds) * time.Second
		scaleVerifier.CacheTTLSeconds = cfg.Verifier.CacheTTLSeconds
		slog.Info("scale verifier enabled", "model", cfg.Verifier.Model)
	} else {
		slog.Info("scale verifier disabled, low-confidence results stay unverified")
	}

	// Use cases
	costRepo := postgres.NewCostRepo(db)
	analysisSvc := usecases.NewAnalysisService(scaleVerifier)
	estimateSvc := usecases.NewEstimateService(costRepo)

	deps := &http.Dependencies{
		Analyses:  analysisSvc,
		Estimates: estimateSvc,
		Costs:     costRepo,
		Overlay:   render.NewOverlay(),
		Publisher: publisher,
		NATS:      natsConn,
		DB:        db,
		Cache:     cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		AppName:      "Planmetric API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Periodic DB pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight analyses up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
