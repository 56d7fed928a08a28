package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scaf-dev/scaf/internal/api/handlers"
	"github.com/scaf-dev/scaf/internal/auth"
	"github.com/scaf-dev/scaf/internal/config"
	"github.com/scaf-dev/scaf/internal/counter"
	"github.com/scaf-dev/scaf/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter creates and configures the Gin router. Reads are public;
// every mutation goes through the authenticator's middleware.
func NewRouter(cfg *config.Config, svc *service.TemplateService, downloads counter.Counter, authenticator auth.Authenticator) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(loggingMiddleware())
	router.Use(corsMiddleware())

	tplHandler := handlers.NewTemplateHandler(svc, downloads)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", handlers.HealthCheck)
		public.GET("/version", handlers.VersionInfo)

		public.GET("/template", tplHandler.ListTemplates)
		public.GET("/template/:username/:id", tplHandler.GetTemplate)
		public.GET("/template/:username/:id/export", tplHandler.ExportTemplate)
	}

	// Auth provider endpoints depend on the configured mode
	switch a := authenticator.(type) {
	case *auth.LocalAuthenticator:
		public.POST("/auth/login", handlers.Login(a))
	case *auth.OIDCAuthenticator:
		public.GET("/auth/oidc/login", handlers.OIDCLogin(a))
		public.GET("/auth/oidc/callback", handlers.OIDCCallback(a))
	}

	// Protected routes (require authentication)
	protected := router.Group("/api/v1")
	protected.Use(authenticator.Middleware())
	{
		protected.POST("/template", tplHandler.CreateTemplate)
		protected.PUT("/template/:username/:id", tplHandler.UpdateTemplate)
		protected.DELETE("/template/:username/:id", tplHandler.DeleteTemplate)
		protected.POST("/template/:username/:id", tplHandler.StarTemplate)
	}

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("API router initialized", "mode", cfg.Server.Mode)
	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		slog.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
