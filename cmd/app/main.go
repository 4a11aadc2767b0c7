package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"cherries_service/internal/api"
	"cherries_service/internal/middleware"
	"cherries_service/internal/realtime"
	"cherries_service/internal/repository"
	"cherries_service/internal/service"
	"cherries_service/pkg/auth"
	"cherries_service/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	middleware.InitMetrics()
	realtime.InitMetrics()

	registry := realtime.NewRegistry()
	questService := service.NewQuestService(repo)
	checkInService := service.NewCheckInService(repo, registry)
	jwtAuth := auth.NewJWTAuth(cfg.Auth.JWTSecret)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Monitor())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	joinLimiter := middleware.NewRateLimiter(rate.Limit(1), 5)

	a := router.Group("/api/v1")
	api.NewQuestRoutes(a, questService, jwtAuth, joinLimiter.Middleware())
	api.NewCheckInRoutes(a, checkInService, jwtAuth)
	api.NewLiveRoutes(a, registry, questService, jwtAuth)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
