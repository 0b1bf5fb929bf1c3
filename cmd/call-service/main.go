package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telecare-backend/internal/database"
	callHandler "telecare-backend/internal/handler/http/call"
	notifyHandler "telecare-backend/internal/handler/http/notify"
	wsHandler "telecare-backend/internal/handler/ws"
	"telecare-backend/internal/middleware"
	"telecare-backend/internal/repository/cockroach"
	redisRepo "telecare-backend/internal/repository/redis"
	callService "telecare-backend/internal/service/call"
	notifyService "telecare-backend/internal/service/notify"
	profileService "telecare-backend/internal/service/profile"
	"telecare-backend/internal/sweeper"
	"telecare-backend/pkg/config"
	"telecare-backend/pkg/jwt"
	"telecare-backend/pkg/logger"
	"telecare-backend/pkg/metrics"
	"telecare-backend/pkg/push"
	"telecare-backend/pkg/rtctoken"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.InitDefault()
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if err := logger.Init(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		logger.InitDefault()
		logger.Warn("Falling back to default logger", zap.Error(err))
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores
	db := connectCockroach(ctx, cfg)
	defer db.Close()

	redisDB, err := database.NewRedisDB(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisDB.Close()

	callRepo := cockroach.NewCallRepository(db.Pool)
	userRepo := cockroach.NewUserRepository(db.Pool)
	broadcastRepo := cockroach.NewBroadcastRepository(db.Pool)
	signalingRepo := redisRepo.NewSignalingRepository(redisDB.Client)

	// Token issuers
	issuer, err := rtctoken.NewIssuer(cfg.RTC.AccessKey, cfg.RTC.AppSecret, cfg.RTC.TokenExpiry)
	if err != nil {
		logger.Fatal("Failed to initialize room token issuer", zap.Error(err))
	}
	jwtManager := jwt.NewManager(cfg.Auth.JWTSecret, 24*time.Hour)

	// Push provider
	pushProvider, err := push.NewProvider(cfg.Push.Provider)
	if err != nil {
		logger.Fatal("Failed to initialize push provider", zap.Error(err))
	}

	// Services
	callSvc := callService.NewService(callRepo, signalingRepo, issuer)
	notifySvc := notifyService.NewService(pushProvider, userRepo, broadcastRepo)
	profileSvc := profileService.NewService(userRepo)

	appMetrics := metrics.NewMetrics(cfg.Server.ServiceName)

	// Background sweeper
	sw := sweeper.New(callRepo, signalingRepo, &cfg.Sweeper, appMetrics)
	go sw.Run(ctx)

	// Handlers
	callHdlr := callHandler.NewHandler(callSvc, appMetrics)
	notifyHdlr := notifyHandler.NewHandler(notifySvc, profileSvc, appMetrics)
	signalingHub := wsHandler.NewSignalingHub(redisDB.Client, signalingRepo)

	router := buildRouter(cfg, jwtManager, appMetrics, callHdlr, notifyHdlr, signalingHub)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Call service starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}

// connectCockroach connects with exponential backoff so a cold database
// during rollout does not kill the service
func connectCockroach(ctx context.Context, cfg *config.Config) *database.CockroachDB {
	const maxRetries = 5
	baseDelay := 1 * time.Second
	maxDelay := 30 * time.Second

	var db *database.CockroachDB
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err = database.NewCockroachDB(ctx, &cfg.Database)
		if err == nil {
			logger.Info("Connected to CockroachDB", zap.Int("attempt", attempt))
			return db
		}

		delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
		if delay > maxDelay {
			delay = maxDelay
		}
		logger.Warn("CockroachDB connection failed",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			logger.Fatal("Shutdown requested before database came up")
		case <-time.After(delay):
		}
	}

	logger.Fatal("Failed to connect to CockroachDB",
		zap.Int("attempts", maxRetries),
		zap.Error(err))
	return nil
}

func buildRouter(
	cfg *config.Config,
	jwtManager *jwt.Manager,
	appMetrics *metrics.Metrics,
	callHdlr *callHandler.Handler,
	notifyHdlr *notifyHandler.Handler,
	signalingHub *wsHandler.SignalingHub,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.SetTrustedProxies(nil)

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.NewPrometheusMiddleware(appMetrics).Handler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.Server.ServiceName,
			"time":    time.Now().UTC(),
		})
	})
	router.GET("/metrics", middleware.MetricsHandler())

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(jwtManager))
	{
		v1.POST("/rtc/token", callHdlr.IssueToken)

		calls := v1.Group("/calls")
		{
			calls.POST("/room", callHdlr.CreateRoom)
			calls.GET("/:id", callHdlr.GetCall)
			calls.POST("/:id/decline", callHdlr.Decline)
			calls.POST("/:id/end", callHdlr.End)
			calls.POST("/notify", notifyHdlr.NotifyIncomingCall)
			calls.GET("/ws/signaling", signalingHub.ServeWS)
		}

		v1.POST("/doctors/availability", notifyHdlr.SetAvailability)
		v1.POST("/notifications/broadcast", notifyHdlr.Broadcast)
	}

	return router
}
