package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liliang-cn/gmassist/internal/api/admin"
	"github.com/liliang-cn/gmassist/internal/api/chat"
	"github.com/liliang-cn/gmassist/internal/api/middleware"
	"github.com/liliang-cn/gmassist/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string

	// RequestsPerHour limits /chat per client IP; zero disables the limit
	RequestsPerHour int
	// RateCounter defaults to an in-process counter
	RateCounter     middleware.Counter
}

// SetupRouter sets up the Gin router
func SetupRouter(
	chatService chat.Service,
	adminService *service.AdminService,
	ingestService *service.IngestService,
	cfg RouterConfig,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/api/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, adminService.Status(c.Request.Context()))
	})

	// Chat (public)
	chatGroup := r.Group("")
	if cfg.RequestsPerHour > 0 {
		counter := cfg.RateCounter
		if counter == nil {
			counter = middleware.NewMemoryCounter(time.Hour)
		}
		chatGroup.Use(middleware.RateLimit(counter, cfg.RequestsPerHour, logger))
	}
	chat.NewHandler(chatService, logger).RegisterRoutes(chatGroup)

	// Admin API (requires API key)
	adminHandler := admin.NewHandler(adminService, ingestService)
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.Auth(cfg.APIKey))
	adminHandler.RegisterRoutes(adminGroup)

	return r
}
