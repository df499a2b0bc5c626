package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/liliang-cn/gmassist/internal/api"
	"github.com/liliang-cn/gmassist/internal/api/middleware"
	"github.com/liliang-cn/gmassist/internal/config"
	"github.com/liliang-cn/gmassist/internal/llm"
	"github.com/liliang-cn/gmassist/internal/logger"
	"github.com/liliang-cn/gmassist/internal/repository"
	"github.com/liliang-cn/gmassist/internal/service"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	envFile    = flag.String("env", ".env", "Path to dotenv file")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	if cfg.Log.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := repository.Open(context.Background(), cfg.Store)
	if err != nil {
		zl.Fatal("Failed to open script store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.Close()

	if cfg.Store.SeedSample {
		seeded, err := repository.SeedSample(context.Background(), store)
		if err != nil {
			zl.Warn("Failed to seed sample script", zap.Error(err))
		} else if seeded {
			zl.Info("Seeded sample script")
		}
	}

	if cfg.LLM.APIKey == "" {
		zl.Warn("No LLM API key configured, chat requests will fail upstream")
	}
	client := llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.MaxTokens)

	resolver := service.NewContextResolver(store, cfg.Context, zl)
	chatService := service.NewChatService(cfg, resolver, client, zl)
	adminService := service.NewAdminService(store, resolver, cfg.Store.Driver, zl)
	ingestService := service.NewIngestService(adminService, zl)

	routerCfg := api.RouterConfig{
		APIKey:       cfg.Admin.APIKey,
		AllowOrigins: cfg.Server.AllowOrigins,
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RequestsPerHour = cfg.RateLimit.RequestsPerHour
		if cfg.RateLimit.RedisURL != "" {
			rdb := newRedisClient(cfg.RateLimit.RedisURL, zl)
			defer rdb.Close()
			routerCfg.RateCounter = middleware.NewRedisCounter(rdb, time.Hour)
		}
	}
	router := api.SetupRouter(chatService, adminService, ingestService, routerCfg, zl)

	// WriteTimeout bounds whole SSE responses; keep it above llm.idle_timeout
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zl.Info("Starting gmassist server",
			zap.String("address", cfg.Address()),
			zap.String("store", cfg.Store.Driver),
			zap.String("database", store.Database()),
			zap.String("model", cfg.LLM.Model),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}

	zl.Info("Server exited")
}

func newRedisClient(url string, zl *zap.Logger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		zl.Warn("Failed to parse Redis URL, using it as an address", zap.Error(err))
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zl.Warn("Failed to connect to Redis, rate limiting fails open until it is reachable", zap.Error(err))
	}
	return rdb
}
