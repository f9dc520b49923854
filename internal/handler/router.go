package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-slot-api/api/swagger"
	"github.com/noah-isme/campus-slot-api/internal/middleware"
	"github.com/noah-isme/campus-slot-api/internal/service"
	"github.com/noah-isme/campus-slot-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-slot-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-slot-api/pkg/middleware/requestid"
)

// RouterConfig selects the optional surfaces of the HTTP API.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableMetrics  bool
	EnableDocs     bool
}

// RouterDeps carries the handlers and services the router mounts.
type RouterDeps struct {
	Slots   *SlotHandler
	Exports *ExportHandler
	Ops     *MetricsHandler
	Metrics *service.MetricsService
	Logger  *zap.Logger
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(cfg RouterConfig, deps RouterDeps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics, "/metrics"))
	r.Use(middleware.WithResponseMeta())

	if deps.Ops != nil {
		r.GET("/health", deps.Ops.Health)
		r.GET("/ready", deps.Ops.Ready)
		if cfg.EnableMetrics {
			r.GET("/metrics", deps.Ops.Prometheus)
		}
	}
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if deps.Slots != nil {
		api.GET("/slots", deps.Slots.List)
		api.POST("/slots", deps.Slots.Create)

		campus := api.Group("/campuses/:campusId")
		campus.GET("/allocatable-slots", deps.Slots.Allocatable)
		campus.GET("/slots/:startTime", deps.Slots.Get)
		campus.PUT("/slots/:startTime", deps.Slots.Update)
		campus.PUT("/slots/:startTime/rekey", deps.Slots.Rekey)
		campus.DELETE("/slots/:startTime", deps.Slots.Delete)
	}
	if deps.Exports != nil {
		campus := api.Group("/campuses/:campusId")
		campus.GET("/allocatable-slots/export", deps.Exports.Allocatable)
		campus.GET("/calendar.ics", deps.Exports.Calendar)
	}

	return r
}
