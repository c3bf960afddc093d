package router

import (
	"github.com/gin-gonic/gin"

	"aicalorie/internal/handler"
	"aicalorie/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(authH *handler.AuthHandler, healthH *handler.HealthHandler) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)

	v1 := r.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/verify", authH.Verify)

	return r
}
