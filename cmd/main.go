package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/askwhyharsh/fogofearth/internal/api"
	"github.com/askwhyharsh/fogofearth/internal/config"
	"github.com/askwhyharsh/fogofearth/internal/document"
	"github.com/askwhyharsh/fogofearth/internal/fog"
	"github.com/askwhyharsh/fogofearth/internal/metrics"
	"github.com/askwhyharsh/fogofearth/internal/ratelimit"
	"github.com/askwhyharsh/fogofearth/internal/session"
	"github.com/askwhyharsh/fogofearth/internal/storage"
	"github.com/askwhyharsh/fogofearth/internal/websocket"
	"github.com/askwhyharsh/fogofearth/pkg/logger"
	"github.com/askwhyharsh/fogofearth/pkg/validator"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewLogger(cfg.Server.Env, cfg.Monitoring.LogLevel)
	appLogger.Info("Starting Fog of Earth server...")

	// Initialize Redis
	redisClient, err := storage.NewRedisClient(cfg)
	if err != nil {
		appLogger.Error("Failed to connect to Redis", "error", err, "address", cfg.RedisAddr())
		os.Exit(1)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", "address", cfg.RedisAddr())

	blobs := storage.NewRedisBlobStore(redisClient, cfg.Redis.KeyPrefix)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Study session sinks
	sinks := []session.Sink{session.NewFileSink(cfg.Study.SessionLogPath)}
	if cfg.Postgres.DSN != "" {
		pg, err := storage.NewPostgresClient(cfg.Postgres.DSN)
		if err != nil {
			appLogger.Error("Failed to connect to Postgres, session summaries stay file-only", "error", err)
		} else {
			defer pg.Close()
			sinks = append(sinks, session.NewPostgresSink(pg))
			appLogger.Info("Connected to Postgres")
		}
	}

	tracker := session.NewTracker(session.NewPrefs(blobs), appLogger, sinks...)
	sessionManager := session.NewManager(tracker, cfg.Study.IdleTimeout, appLogger)

	// Initialize WebSocket hub
	hub := websocket.NewHub(ctx, appLogger)
	go hub.Run()
	wsHandler := websocket.NewHandler(hub, appLogger)

	// Fog document and service
	repoOpts := []document.Option{document.WithLogger(appLogger)}
	if cfg.Persistence.ConflictDetection {
		repoOpts = append(repoOpts, document.WithConflictDetection())
	}
	repo, err := document.NewRepository(blobs, cfg.Persistence.DocumentKey, repoOpts...)
	if err != nil {
		appLogger.Error("Failed to create fog repository", "error", err)
		os.Exit(1)
	}

	fogService := fog.NewService(repo, fog.SettingsFromConfig(cfg), appLogger,
		fog.WithTracker(tracker),
		fog.WithNotifier(hub),
	)
	if err := fogService.Hydrate(ctx); err != nil {
		appLogger.Error("Failed to hydrate fog", "error", err)
		os.Exit(1)
	}
	autosaver := fog.NewAutosaver(fogService, cfg.Persistence.AutosaveInterval, appLogger)

	rateLimiter := ratelimit.NewLimiter(redisClient, cfg.RateLimit, cfg.Redis.KeyPrefix)
	rateLimitMiddleware := ratelimit.NewMiddleware(rateLimiter)

	// Initialize API handler
	apiHandler := api.NewHandler(
		fogService,
		tracker,
		rateLimiter,
		validator.NewValidator(),
		appLogger,
	)

	// Start background services
	var background sync.WaitGroup
	background.Add(2)
	go func() {
		defer background.Done()
		sessionManager.Start(ctx)
	}()
	go func() {
		defer background.Done()
		autosaver.Start(ctx)
	}()

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(api.LoggingMiddleware(appLogger))

	var metricsHandler http.Handler
	if cfg.Monitoring.EnableMetrics {
		metricsHandler = metrics.Handler()
	}

	// Setup routes
	api.SetupRoutes(router, apiHandler, wsHandler, rateLimitMiddleware, metricsHandler)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("Server starting", "address", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	// Stop background services; the session manager ends the open session
	// and the autosaver writes the last changes.
	cancel()
	background.Wait()

	appLogger.Info("Server stopped")
}
