package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/placement-service/internal/services"
	"github.com/SAP-F-2025/placement-service/internal/validator"
)

type HandlerManager struct {
	launchHandler *LaunchHandler
	sessions      services.SessionService
}

func NewHandlerManager(
	sessions services.SessionService,
	validator *validator.Validator,
	logger *slog.Logger,
) *HandlerManager {
	return &HandlerManager{
		launchHandler: NewLaunchHandler(sessions, validator, logger),
		sessions:      sessions,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/modules", hm.launchHandler.ListModules)

		// Launch routes, one per page load of a module
		launches := v1.Group("/launches")
		{
			launches.POST("", hm.launchHandler.Launch)
			launches.GET("/:id", hm.launchHandler.GetLaunch)
			launches.POST("/:id/start", hm.launchHandler.Start)
			launches.POST("/:id/submit", hm.launchHandler.Submit)
			launches.POST("/:id/unload", hm.launchHandler.Unload)

			launches.PUT("/:id/answers/:question_id", hm.launchHandler.RecordAnswer)
			launches.DELETE("/:id/answers/:question_id", hm.launchHandler.ClearAnswer)

			// Module interactions
			launches.POST("/:id/audio/:section/:action", hm.launchHandler.Audio)
			launches.PUT("/:id/match/:question_id", hm.launchHandler.AssignMatch)
			launches.DELETE("/:id/match/:question_id", hm.launchHandler.UnassignMatch)
			launches.POST("/:id/scramble/:question_id/toggle", hm.launchHandler.ToggleScramble)
		}

		// Static introduction and completion pages
		v1.POST("/pages/mark", hm.launchHandler.MarkPage)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := hm.sessions.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "placement-service",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"service":     "placement-service",
			"lms_backend": hm.sessions.Backend(),
		})
	})
}
