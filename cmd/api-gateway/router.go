package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/resource-conflict-api/api/swagger"
	"github.com/noah-isme/resource-conflict-api/internal/handler"
	"github.com/noah-isme/resource-conflict-api/internal/middleware"
	"github.com/noah-isme/resource-conflict-api/internal/service"
	"github.com/noah-isme/resource-conflict-api/pkg/config"
	"github.com/noah-isme/resource-conflict-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/resource-conflict-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/resource-conflict-api/pkg/middleware/requestid"
)

type routerDeps struct {
	conflicts    *service.ConflictService
	reservations *service.ReservationService
	availability *service.AvailabilityService
	health       *service.HealthService
	idempotency  *service.IdempotencyService
	metrics      *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	healthHandler := handler.NewHealthHandler(deps.health, deps.metrics)
	r.GET("/health", healthHandler.Health)
	if deps.metrics != nil {
		r.GET("/metrics", healthHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	conflictHandler := handler.NewConflictHandler(deps.conflicts)
	availabilityHandler := handler.NewAvailabilityHandler(deps.availability)
	reservationHandler := handler.NewReservationHandler(deps.reservations)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst, deps.metrics, logr))
	api.POST("/check-conflicts", conflictHandler.Check)
	api.GET("/resource-availability", availabilityHandler.Get)
	api.POST("/reservations", middleware.Idempotency(deps.idempotency), reservationHandler.Commit)
	api.PUT("/reservations/:id", reservationHandler.Revise)
	api.DELETE("/reservations/:id", reservationHandler.Unassign)

	return r
}
