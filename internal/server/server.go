package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/workforce/internal/cache"
	"github.com/smallbiznis/workforce/internal/config"
	"github.com/smallbiznis/workforce/internal/observability"
	"github.com/smallbiznis/workforce/internal/observability/logger"
	"github.com/smallbiznis/workforce/internal/observability/metrics"
	"github.com/smallbiznis/workforce/internal/observability/tracing"
)

var Module = fx.Module("server",
	fx.Provide(
		NewEmployeeHandler,
		NewDepartmentHandler,
		NewReportHandler,
		NewJobsHandler,
		NewRouter,
	),
	fx.Invoke(Run),
)

type RouterParams struct {
	fx.In

	Config      config.Config
	Obs         observability.Config
	HTTPMetrics *metrics.HTTPMetrics
	Cache       *cache.Bookkeeper

	Employees   *EmployeeHandler
	Departments *DepartmentHandler
	Reports     *ReportHandler
	Jobs        *JobsHandler
}

// NewRouter assembles the gin engine: observability middleware, central
// error rendering, and the versioned API routes.
func NewRouter(p RouterParams) *gin.Engine {
	if p.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		logger.GinMiddleware(logger.MiddlewareConfig{
			Debug:           p.Obs.Debug(),
			ErrorClassifier: classifyError,
		}),
		tracing.GinMiddleware(),
		metrics.GinMiddleware(p.HTTPMetrics),
		ErrorHandlingMiddleware(p.Obs.Debug()),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")

	// Read endpoints sit behind the short response cache; mutations and
	// operational endpoints stay uncached.
	responseCache := ResponseCacheMiddleware(p.Cache)

	employees := api.Group("/employees")
	{
		employees.GET("", responseCache, p.Employees.List)
		employees.GET("/recent", responseCache, p.Employees.Recent)
		employees.GET("/:id", p.Employees.Get)
		employees.POST("", p.Employees.Create)
		employees.PUT("/:id", p.Employees.Update)
		employees.PATCH("/:id", p.Employees.Update)
		employees.DELETE("/:id", p.Employees.Delete)
		employees.POST("/bulk", p.Employees.BulkCreate)
		employees.POST("/bulk-delete", p.Employees.BulkDelete)
	}

	departments := api.Group("/departments")
	{
		departments.GET("", responseCache, p.Departments.List)
		departments.GET("/statistics", responseCache, p.Departments.Statistics)
		departments.GET("/:id", p.Departments.Get)
		departments.POST("", p.Departments.Create)
		departments.PUT("/:id", p.Departments.Update)
		departments.DELETE("/:id", p.Departments.Delete)
	}

	api.POST("/reports/employees", p.Reports.Generate)
	api.GET("/jobs/status", p.Jobs.Status)

	return engine
}

// Run binds the HTTP server to the fx lifecycle with graceful shutdown.
func Run(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
}
