package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/leondli/tagserver/internal/infrastructure/middleware"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Tag    *TagHandler
	Health *HealthHandler
}

// RouteOptions tunes the middleware attached to the routes
type RouteOptions struct {
	// UploadBodyLimit caps the attach request body; 0 disables the cap
	UploadBodyLimit int64
	// RateLimiter throttles the tag routes per client IP; nil disables it
	RateLimiter *middleware.IPRateLimiter
}

// RegisterRoutes registers the routes at the root and under /api
func RegisterRoutes(router *gin.Engine, handlers *Handlers, opts RouteOptions) {
	tagMiddleware := []gin.HandlerFunc{}
	if opts.RateLimiter != nil {
		tagMiddleware = append(tagMiddleware, middleware.RateLimit(opts.RateLimiter))
	}

	uploadChain := append([]gin.HandlerFunc{}, tagMiddleware...)
	if opts.UploadBodyLimit > 0 {
		uploadChain = append(uploadChain, middleware.BodyLimit(opts.UploadBodyLimit))
	}
	uploadChain = append(uploadChain, handlers.Tag.AttachImage)
	registerChain := append(append([]gin.HandlerFunc{}, tagMiddleware...), handlers.Tag.Register)

	// Root routes
	router.GET("/health", handlers.Health.Health)
	router.GET("/ready", handlers.Health.Ready)
	router.POST("/add_tag", registerChain...)
	router.POST("/update_tag/:identifier", uploadChain...)

	// API routes
	api := router.Group("/api")
	{
		tags := api.Group("/tags")
		{
			tags.POST("/add_tag", registerChain...)
			tags.POST("/update_tag/:identifier", uploadChain...)
		}

		health := api.Group("/health")
		{
			health.GET("/health", handlers.Health.Health)
			health.GET("/ready", handlers.Health.Ready)
		}
	}
}
