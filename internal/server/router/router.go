package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/petroflow/petroflow/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.DCAHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/wells/:well_id/dca", handler.CreateAnalysis)
		v1.GET("/wells/:well_id/dca", handler.ListAnalyses)
		v1.GET("/wells/:well_id/dca/:analysis_id", handler.GetAnalysis)
		v1.POST("/wells/:well_id/dca/:analysis_id/monte-carlo", handler.RunMonteCarlo)
		v1.GET("/wells/:well_id/dca/:analysis_id/export", handler.ExportForecast)
		v1.POST("/dca/auto-fit", handler.AutoFit)
		v1.POST("/projects/:project_id/dca/batch", handler.RunBatch)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
