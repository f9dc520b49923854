package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-slot-api/internal/handler"
	"github.com/noah-isme/campus-slot-api/internal/repository"
	"github.com/noah-isme/campus-slot-api/internal/service"
	"github.com/noah-isme/campus-slot-api/pkg/cache"
	"github.com/noah-isme/campus-slot-api/pkg/config"
	"github.com/noah-isme/campus-slot-api/pkg/database"
	"github.com/noah-isme/campus-slot-api/pkg/logger"
)

// @title Campus Slot API
// @version 1.0.0
// @description Campus time slots and their day-by-day availability
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	cacheRepo, closeCache := buildCacheRepository(ctx, cfg, logr)
	defer closeCache()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	slotSvc := service.NewSlotService(repository.NewSlotRepository(db), cacheSvc, metrics, validator.New(), logr, service.SlotServiceConfig{
		StrictValidation: cfg.Slots.StrictValidation,
		DefaultCutoff:    cfg.Slots.DefaultCutoff,
		CacheTTL:         cfg.Cache.TTL,
	})
	exportSvc := service.NewExportService(slotSvc, service.ExportConfig{}, logr, nil, nil, nil)

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableMetrics:  cfg.Metrics.Enabled,
		EnableDocs:     cfg.Docs.Enabled,
	}, handler.RouterDeps{
		Slots:   handler.NewSlotHandler(slotSvc),
		Exports: handler.NewExportHandler(exportSvc),
		Ops:     handler.NewMetricsHandler(metrics, db, logr),
		Metrics: metrics,
		Logger:  logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "cache", cfg.Cache.Enabled, "cache_backend", cfg.Cache.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// buildCacheRepository picks the slot cache backend. A nil repository
// leaves caching disabled.
func buildCacheRepository(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.CacheRepository, func()) {
	noop := func() {}
	if !cfg.Cache.Enabled {
		return nil, noop
	}

	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		repo, err := repository.NewMemoryCacheRepository(cfg.Cache.MemorySize)
		if err != nil {
			logr.Warn("memory cache unavailable, caching disabled", zap.Error(err))
			return nil, noop
		}
		return repo, noop
	default:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			return nil, noop
		}
		repo := repository.NewRedisCacheRepository(client, logr)
		return repo, func() { _ = repo.Close() }
	}
}
