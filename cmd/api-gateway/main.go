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
	"go.uber.org/zap"

	"github.com/noah-isme/resource-conflict-api/internal/repository"
	"github.com/noah-isme/resource-conflict-api/internal/service"
	"github.com/noah-isme/resource-conflict-api/pkg/cache"
	"github.com/noah-isme/resource-conflict-api/pkg/config"
	"github.com/noah-isme/resource-conflict-api/pkg/database"
	"github.com/noah-isme/resource-conflict-api/pkg/logger"
)

// @title Resource Conflict API
// @version 1.0.0
// @description Conflict detection and reservation engine for event resources
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// replay is optional; commits proceed without it
		logr.Warn("redis unavailable, idempotent replay disabled", zap.Error(err))
		redisClient = nil
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	validate := service.NewValidator()
	timeout := cfg.Database.QueryTimeout

	reservations := repository.NewReservationRepository(db)
	resources := repository.NewResourceRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(redisClient, logr)
	defer idempotencyRepo.Close() //nolint:errcheck

	conflictSvc := service.NewConflictService(reservations, validate, metricsSvc, timeout, logr)
	deps := routerDeps{
		conflicts:    conflictSvc,
		reservations: service.NewReservationService(reservations, conflictSvc, validate, metricsSvc, timeout, logr),
		availability: service.NewAvailabilityService(reservations, resources, validate, metricsSvc, timeout, cfg.Availability.MaxDays, logr),
		health:       service.NewHealthService(db, timeout, logr),
		idempotency:  service.NewIdempotencyService(idempotencyRepo, metricsSvc, cfg.Idempotency.TTL, logr),
		metrics:      metricsSvc,
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(cfg, logr, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
