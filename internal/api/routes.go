package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kurihiro0119/issue-burndown/internal/metrics"
)

// SetupRoutes sets up the API routes.
// Project paths such as "group/app" must be URL-escaped ("group%2Fapp").
func SetupRoutes(handler *Handler, m *metrics.Metrics, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.UnescapePathValues = true

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Logger(logger))
	router.Use(Metrics(m))

	// Health check
	router.GET("/health", handler.HealthCheck)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		projects := v1.Group("/projects/:project")
		{
			projects.GET("/burndown", handler.GetBurndown)
			projects.GET("/burndown/chart", handler.GetBurndownChart)
		}
	}

	return router
}
