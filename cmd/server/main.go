// Package main runs the audience engagement HTTP server with WebSocket fan-out
// and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crowdpulse/backend/config"
	"github.com/crowdpulse/backend/internal/auth"
	"github.com/crowdpulse/backend/internal/display"
	"github.com/crowdpulse/backend/internal/events"
	"github.com/crowdpulse/backend/internal/middleware"
	"github.com/crowdpulse/backend/internal/models"
	"github.com/crowdpulse/backend/internal/polls"
	"github.com/crowdpulse/backend/internal/questions"
	"github.com/crowdpulse/backend/internal/realtime"
	"github.com/crowdpulse/backend/pkg/database"
	"github.com/crowdpulse/backend/pkg/queue"
	"github.com/crowdpulse/backend/pkg/redis"
	"github.com/crowdpulse/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	bridge := realtime.NewRedisBridge(rdb.Client, logger)
	hub := realtime.NewHub(logger, bridge, cfg.Limits.SubscriberBuffer)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, jobQueue, logger)

	// Questions
	questionRepo := questions.NewRepository(pool)
	questionHandler := questions.NewHandler(questionRepo, eventRepo, hub,
		cfg.Limits.QuestionMaxLen, cfg.Limits.ApprovedFeedLimit)

	// Polls
	pollRepo := polls.NewRepository(pool)
	pollHandler := polls.NewHandler(pollRepo, eventRepo, hub)

	// Display
	displayHandler := display.NewHandler(eventRepo, questionRepo, pollRepo, cfg.Limits.ApprovedFeedLimit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Store calls never block past the configured timeout; the WebSocket
	// route below stays outside this group.
	timed := router.Group("", middleware.Timeout(time.Duration(cfg.Limits.StoreTimeoutSec)*time.Second))

	// Auth (public)
	authGroup := timed.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public participant surface: join-code lookup, submissions, votes,
	// results, display snapshot. GET /events doubles as the authenticated
	// owner listing when a token is present.
	timed.GET("/events", middleware.OptionalJWT(jwtService), eventHandler.Get)
	timed.POST("/questions", questionHandler.Submit)
	timed.GET("/events/:id/questions", middleware.OptionalJWT(jwtService), questionHandler.ListByEvent)
	timed.POST("/votes", pollHandler.CastVote)
	timed.GET("/polls/:id/results", pollHandler.Results)
	timed.GET("/events/:id/display", displayHandler.Get)

	// Moderator surface (JWT required)
	api := timed.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", middleware.RequireRole(models.RoleAdmin), authHandler.List)

		api.POST("/events", eventHandler.Create)
		api.GET("/events/:id", events.RequireEventAccess(eventRepo), eventHandler.GetByID)
		api.PATCH("/events/:id/status", events.RequireEventAccess(eventRepo), eventHandler.UpdateStatus)
		api.POST("/events/:id/access", events.RequireEventAccess(eventRepo), eventHandler.GrantAccess)
		api.GET("/events/:id/polls", events.RequireEventAccess(eventRepo), pollHandler.ListByEvent)

		api.PATCH("/questions/:id/moderate", questionHandler.Moderate)
		api.POST("/polls", pollHandler.Create)
		api.POST("/polls/:id/activate", pollHandler.SetActive)
	}

	// WebSocket (public; participants and displays are anonymous)
	router.GET("/ws", realtime.ServeWs(hub, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
