package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	analyticsapp "github.com/rollout/backend/internal/application/analytics"
	forecastapp "github.com/rollout/backend/internal/application/forecast"
	"github.com/rollout/backend/internal/application/ingestion"
	portfolioapp "github.com/rollout/backend/internal/application/portfolio"
	"github.com/rollout/backend/internal/infrastructure/cache"
	"github.com/rollout/backend/internal/infrastructure/config"
	"github.com/rollout/backend/internal/infrastructure/logger"
	"github.com/rollout/backend/internal/infrastructure/persistence"
	"github.com/rollout/backend/internal/infrastructure/scheduler"
	"github.com/rollout/backend/internal/infrastructure/tracker"
	"github.com/rollout/backend/internal/interfaces/http/handler"
	"github.com/rollout/backend/internal/interfaces/http/middleware"
	"github.com/rollout/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Rollout Dashboard",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := persistence.AutoMigrate(db.DB); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	// Initialize repositories
	projectRepo := persistence.NewGormProjectRepository(db.DB)
	pauseRepo := persistence.NewGormPauseRepository(db.DB)
	stepRepo := persistence.NewGormStepRepository(db.DB)
	settingRepo := persistence.NewGormSettingRepository(db.DB)
	snapshotRepo := persistence.NewGormSnapshotRepository(db.DB)
	syncRepo := persistence.NewGormSyncRepository(db.DB)

	// Narrative side-cache (Redis when enabled, in-memory otherwise)
	cacheFactory := cache.NewNarrativeCacheFactory(cfg.Redis, cache.WithLogger(log))
	narrativeCache, err := cacheFactory.CreateCache()
	if err != nil {
		log.Fatal("Failed to create narrative cache", zap.Error(err))
	}
	defer func() {
		if err := narrativeCache.Close(); err != nil {
			log.Error("Error closing narrative cache", zap.Error(err))
		}
	}()

	// Tracker client and ingestion
	trackerClient := tracker.NewClient(cfg.Tracker, log)
	syncService := ingestion.NewSyncService(projectRepo, stepRepo, syncRepo,
		trackerClient, cfg.Tracker, cfg.Sync, log)

	// Application services. The predictor doubles as the lateness estimator
	// feeding the schedule risk pillar.
	predictorService := forecastapp.NewPredictorService(projectRepo, stepRepo,
		cfg.Tracker.StageOrder, cfg.Tracker.StepLists, cfg.Scoring.MinStageSamples, log)
	analyticsService := analyticsapp.NewAnalyticsService(projectRepo, pauseRepo,
		stepRepo, settingRepo, predictorService, cfg.Scoring, log)
	snapshotService := analyticsapp.NewSnapshotService(projectRepo, pauseRepo,
		snapshotRepo, analyticsService, log)
	forecastService := forecastapp.NewForecastService(projectRepo, settingRepo, cfg.Scoring.LeadMonths, log)
	portfolioService := portfolioapp.NewService(projectRepo, pauseRepo, settingRepo, log)

	// Background jobs
	rootCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()

	if cfg.Scheduler.Enabled {
		snapshotScheduler, err := scheduler.NewDailySnapshotScheduler(cfg.Scheduler, snapshotService, log)
		if err != nil {
			log.Fatal("Failed to create snapshot scheduler", zap.Error(err))
		}
		if err := snapshotScheduler.Start(rootCtx); err != nil {
			log.Fatal("Failed to start snapshot scheduler", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = snapshotScheduler.Stop(ctx)
		}()
	}

	if cfg.Sync.Enabled {
		syncTrigger, err := scheduler.NewPeriodicSyncTrigger(cfg.Sync, syncService, log)
		if err != nil {
			log.Fatal("Failed to create sync trigger", zap.Error(err))
		}
		if err := syncTrigger.Start(rootCtx); err != nil {
			log.Fatal("Failed to start sync trigger", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = syncTrigger.Stop(ctx)
		}()
	}

	// Gin engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Handlers
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	projectHandler := handler.NewProjectHandler(analyticsService, predictorService, portfolioService)
	forecastHandler := handler.NewForecastHandler(forecastService)
	syncHandler := handler.NewSyncHandler(syncService)
	snapshotHandler := handler.NewSnapshotHandler(snapshotService)
	settingHandler := handler.NewSettingHandler(portfolioService)
	narrativeHandler := handler.NewNarrativeHandler(projectRepo, narrativeCache)
	systemHandler := handler.NewSystemHandler()

	// Routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	analyticsRoutes := router.NewDomainGroup("analytics", "/analytics")
	analyticsRoutes.GET("/kpis", analyticsHandler.KPIs)
	analyticsRoutes.GET("/ranking", analyticsHandler.Ranking)
	analyticsRoutes.GET("/ranking/:name", analyticsHandler.OperatorDetail)
	analyticsRoutes.GET("/capacity", analyticsHandler.Capacity)
	analyticsRoutes.GET("/trends", analyticsHandler.Trends)
	analyticsRoutes.GET("/bottlenecks", analyticsHandler.Bottlenecks)
	r.Register(analyticsRoutes)

	projectRoutes := router.NewDomainGroup("projects", "/projects")
	projectRoutes.GET("", projectHandler.List)
	projectRoutes.GET("/:id", projectHandler.GetByID)
	projectRoutes.GET("/:id/risk", projectHandler.Risk)
	projectRoutes.GET("/:id/prediction", projectHandler.Prediction)
	projectRoutes.GET("/:id/pauses", projectHandler.ListPauses)
	projectRoutes.POST("/:id/pauses", projectHandler.OpenPause)
	projectRoutes.PUT("/:id/pauses/:pauseID/close", projectHandler.ClosePause)
	projectRoutes.PUT("/:id/overrides", projectHandler.ApplyOverrides)
	projectRoutes.GET("/:id/narrative", narrativeHandler.Get)
	projectRoutes.PUT("/:id/narrative", narrativeHandler.Put)
	projectRoutes.DELETE("/:id/narrative", narrativeHandler.Delete)
	r.Register(projectRoutes)

	forecastRoutes := router.NewDomainGroup("forecast", "/forecast")
	forecastRoutes.GET("/financial", forecastHandler.Financial)
	forecastRoutes.GET("/golive", forecastHandler.GoLive)
	forecastRoutes.GET("/golive/summary", forecastHandler.GoLiveSummary)
	r.Register(forecastRoutes)

	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.POST("", syncHandler.Trigger)
	syncRoutes.GET("/status", syncHandler.Status)
	r.Register(syncRoutes)

	snapshotRoutes := router.NewDomainGroup("snapshots", "/snapshots")
	snapshotRoutes.POST("", snapshotHandler.Capture)
	snapshotRoutes.GET("", snapshotHandler.History)
	snapshotRoutes.GET("/projects/:id", snapshotHandler.ProjectHistory)
	r.Register(snapshotRoutes)

	settingRoutes := router.NewDomainGroup("settings", "/settings")
	settingRoutes.GET("", settingHandler.List)
	settingRoutes.PUT("", settingHandler.Update)
	r.Register(settingRoutes)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// healthHandler reports liveness plus database reachability
func healthHandler(db *persistence.Database, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			log.Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "ok",
		})
	}
}
