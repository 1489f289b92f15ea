package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediabot-go/api/handlers"
	"github.com/yourusername/mediabot-go/api/middleware"
	"github.com/yourusername/mediabot-go/internal/domain"
	"github.com/yourusername/mediabot-go/pkg/logger"
)

// SetupRouter sets up the admin HTTP router
func SetupRouter(
	repo domain.RequestRepository,
	readiness handlers.Readiness,
	multiLog *logger.MultiLogger,
	log *zap.Logger,
	version string,
) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log, multiLog))
	router.Use(middleware.Recovery(log, multiLog))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(readiness, version)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Request audit endpoints
		requestHandler := handlers.NewRequestHandler(repo, log)
		requests := v1.Group("/requests")
		{
			requests.GET("", requestHandler.ListRequests)
			requests.GET("/stats", requestHandler.GetStats)
			requests.GET("/:id", requestHandler.GetRequest)
		}

		// Log endpoints
		logHandler := handlers.NewLogHandler(multiLog.GetLogsDir())
		wsHandler := handlers.NewLogWebSocketHandler(multiLog.GetLogsDir(), log)
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/stream", wsHandler.HandleWebSocket)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
		}
	}

	// Everything else is JSON 404; there is no dashboard
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
