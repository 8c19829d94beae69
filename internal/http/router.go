package http

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go.climsuite.io/gridval/internal/usecase"
)

// SetupRouter creates and configures the Gin router for the run monitor.
func SetupRouter(ec *usecase.ExecContext) *gin.Engine {

	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()

	// Get allowed origins from environment variable.
	// Default to allow all origins if not specified.
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))

	// Create handler.
	handler := NewHandler(ec)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.GET("/progress", handler.GetProgress)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}
