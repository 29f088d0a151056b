// Package main is the entry point for the rolê planner API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/motoclube/roleplanner/internal/catalog"
	"github.com/motoclube/roleplanner/internal/config"
	"github.com/motoclube/roleplanner/internal/datasync"
	"github.com/motoclube/roleplanner/internal/generator"
	"github.com/motoclube/roleplanner/internal/handler"
	"github.com/motoclube/roleplanner/internal/logging"
	"github.com/motoclube/roleplanner/internal/matching"
	"github.com/motoclube/roleplanner/internal/middleware"
	"github.com/motoclube/roleplanner/internal/outbox"
	"github.com/motoclube/roleplanner/internal/service"
	"github.com/motoclube/roleplanner/internal/telemetry"
)

const (
	probeInterval = 30 * time.Second
	probeTimeout  = 5 * time.Second
	tokenTTL      = 15 * time.Minute
	tokenSubject  = "roleplanner-api"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// --- Config -----------------------------------------------------------
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// --- Logger -----------------------------------------------------------
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync fails on some platforms

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "roleplanner-api", cfg.OTLPEndpoint, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	// --- Catalog ----------------------------------------------------------
	destinations, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	engine := matching.NewEngine(destinations)

	// --- Storage ----------------------------------------------------------
	// Without a sync receiver the manager runs offline and keeps every write
	// queued locally.
	var (
		pusher  datasync.Pusher
		monitor *outbox.Monitor
		client  *outbox.Client
	)
	if cfg.SyncBaseURL != "" {
		tokens := outbox.NewJWTSource(cfg.SyncSecret, tokenSubject, tokenTTL)
		client = outbox.NewClient(cfg.SyncBaseURL, tokens, &http.Client{Timeout: cfg.SyncTimeout})
		pusher = client
	} else {
		logger.Info("SYNC_BASE_URL not set, remote sync disabled")
	}

	manager := datasync.Open(ctx, cfg.LocalDBPath, pusher, logger, datasync.Options{
		Interval:    cfg.SyncInterval,
		PushTimeout: cfg.SyncTimeout,
	})
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Warn("closing local storage", zap.Error(err))
		}
	}()
	if client != nil {
		monitor = outbox.NewMonitor(client, probeInterval, probeTimeout, manager.SetOnline, logger)
	}

	// --- Generators -------------------------------------------------------
	itineraries := generator.ItineraryGenerator(generator.LocalGenerator{})
	images := generator.WithImageFallback(nil, generator.PlaceholderImage, logger)
	if cfg.GeminiAPIKey != "" {
		text, err := generator.NewGeminiText(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("gemini client unavailable, using local itineraries", zap.Error(err))
		} else {
			ai := generator.NewAIGenerator(generator.WithRetry(text, generator.DefaultRetryPolicy, logger))
			itineraries = generator.WithFallback(ai, generator.LocalGenerator{}, logger)
		}
		if cfg.ImageAPIURL != "" {
			imagen := generator.NewImagenHTTP(cfg.ImageAPIURL, cfg.GeminiAPIKey, &http.Client{Timeout: 60 * time.Second})
			images = generator.WithImageFallback(
				generator.WithImageRetry(imagen, generator.DefaultRetryPolicy, logger),
				generator.PlaceholderImage, logger)
		}
	}

	// --- Services ---------------------------------------------------------
	analytics := service.NewAnalyticsService(manager.Analytics, nil)
	users := service.NewUserService(service.UserDeps{
		Users:        manager.Users,
		Settings:     manager.Settings,
		Favorites:    manager.Favorites,
		Roteiros:     manager.Roteiros,
		Destinations: engine,
		Tracker:      analytics,
		Logger:       logger,
	})
	roteiros := service.NewRoteiroService(manager.Roteiros, analytics, logger)
	generation := service.NewGenerationService(service.GenerationDeps{
		Users:       manager.Users,
		Matcher:     engine,
		Itineraries: itineraries,
		Images:      images,
		Usage:       manager,
		Tracker:     analytics,
		Logger:      logger,
	})
	exports := service.NewExportService(manager.Roteiros, manager)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID, RealIP, Logger, Recoverer,
	// then CORS, body limit and metrics.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewZapLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Use(middleware.NewPrometheus())

	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", handler.NewServer(handler.Deps{
		Catalog:   engine,
		Generator: generation,
		Users:     users,
		Roteiros:  roteiros,
		Analytics: analytics,
		Export:    exports,
		Sync:      manager,
		Logger:    logger,
	}).Routes())

	// --- HTTP Server ------------------------------------------------------
	// Generation may wait on provider retries, so writes get a longer budget
	// than reads.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		manager.Run(gctx)
		return nil
	})

	if monitor != nil {
		g.Go(func() error {
			monitor.Run(gctx)
			return nil
		})
	}

	if cfg.LegacyDataPath != "" {
		g.Go(func() error {
			rep, err := manager.MigrateLegacy(gctx, datasync.LegacyFile{Path: cfg.LegacyDataPath})
			if err != nil {
				logger.Error("legacy migration failed", zap.Error(err))
				return nil
			}
			logger.Info("legacy migration finished",
				zap.Bool("skipped", rep.Skipped),
				zap.Int("users", rep.Users),
				zap.Int("roteiros", rep.Roteiros),
				zap.Int("settings", rep.Settings),
				zap.Int("favorites", rep.Favorites),
				zap.Int("failed", rep.Failed),
			)
			return nil
		})
	}

	// Graceful shutdown: wait for a signal or a failed worker, then give
	// in-flight requests up to 15 seconds to complete.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	manager.Wait()
	logger.Info("server stopped")
	return nil
}
