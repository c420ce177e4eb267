package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/giorgiojulius/cryptojulius/internal/auth"
	"github.com/giorgiojulius/cryptojulius/internal/cache"
	"github.com/giorgiojulius/cryptojulius/internal/config"
	"github.com/giorgiojulius/cryptojulius/internal/contracts"
	"github.com/giorgiojulius/cryptojulius/internal/imagecheck"
	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/giorgiojulius/cryptojulius/internal/project"
	"github.com/giorgiojulius/cryptojulius/internal/provider"
	"github.com/giorgiojulius/cryptojulius/internal/reconcile"
	"github.com/giorgiojulius/cryptojulius/internal/refresh"
	"github.com/giorgiojulius/cryptojulius/internal/ticker"
	"github.com/giorgiojulius/cryptojulius/internal/valuation"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	gin.SetMode(cfg.GinMode)

	// Database connection
	db, err := openDatabase(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	if err := db.AutoMigrate(&models.Project{}); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate database")
	}

	store := project.NewStore(project.NewRepository(db))
	if err := store.Load(); err != nil {
		logrus.WithError(err).Fatal("Failed to load projects")
	}
	logrus.WithField("projects", store.Len()).Info("Project store loaded")

	// Search cache
	var searchCache project.SearchCache = cache.Noop{}
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Warn("Failed to connect to Redis")
		}
		cancel()
		searchCache = cache.NewSearchCache(rdb, cfg.SearchCacheTTL)
	}

	// Providers
	clientOpts := []provider.ClientOption{
		provider.WithTimeout(cfg.HTTPTimeout),
		provider.WithMaxRetries(cfg.HTTPMaxRetries),
	}
	dex := provider.NewDexScreener(cfg.DexScreenerURL, clientOpts...)
	gecko := provider.NewCoinGecko(cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey, clientOpts...)
	logos := imagecheck.NewValidator(cfg.LogoCacheSize,
		imagecheck.WithTimeout(cfg.LogoProbeTimeout),
		imagecheck.WithCacheTTL(cfg.LogoCacheTTL),
	)

	engine := reconcile.NewEngine(dex, gecko, logos)

	newPacer, err := refresh.NewPacerFactory(cfg.RefreshPacer, cfg.RefreshPacing, cfg.RefreshFailurePacing)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid refresh pacer")
	}
	orchestrator := refresh.NewOrchestrator(engine, newPacer)

	projectService := project.NewService(
		store,
		provider.NewSearcher(dex, logos),
		searchCache,
		engine,
		orchestrator,
		valuation.NewCalculator(cfg.MarginOfSafety),
	)

	tickerService := ticker.NewService(
		ticker.NewList(filepath.Join(cfg.DataDir, "tickers.json")),
		contracts.NewCache(filepath.Join(cfg.DataDir, "cache.json"), gecko),
		dex,
	)

	// Owner guard for mutating routes
	var guards []gin.HandlerFunc
	if cfg.OwnerAddress != "" {
		guard, err := auth.NewOwnerGuard(cfg.OwnerAddress)
		if err != nil {
			logrus.WithError(err).Fatal("Invalid OWNER_ADDRESS")
		}
		guards = append(guards, guard.RequireOwner())
	} else {
		logrus.Warn("OWNER_ADDRESS not set, mutating routes are unauthenticated")
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(auth.SecurityHeaders())
	router.Use(auth.SecureCORS(cfg.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"service":   "cryptojulius-api",
			"projects":  store.Len(),
		})
	})

	v1 := router.Group("/api/v1")
	project.NewHandler(projectService).RegisterRoutes(v1, guards...)
	ticker.NewHandler(tickerService).RegisterRoutes(v1, guards...)

	// Periodic refresh
	scheduler := refresh.NewScheduler(cfg.RefreshInterval, func(ctx context.Context) error {
		_, err := projectService.Refresh(ctx)
		return err
	})
	scheduler.Start(context.Background())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("Starting cryptojulius API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	if rdb != nil {
		rdb.Close()
	}

	logrus.Info("Server exited")
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == config.DriverPostgres {
		return gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	return gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
}
