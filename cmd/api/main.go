package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/kintai-dev/kintai-api/api/swagger"
	"github.com/kintai-dev/kintai-api/internal/handler"
	"github.com/kintai-dev/kintai-api/internal/middleware"
	"github.com/kintai-dev/kintai-api/internal/models"
	"github.com/kintai-dev/kintai-api/internal/repository"
	"github.com/kintai-dev/kintai-api/internal/service"
	"github.com/kintai-dev/kintai-api/pkg/cache"
	"github.com/kintai-dev/kintai-api/pkg/config"
	"github.com/kintai-dev/kintai-api/pkg/database"
	"github.com/kintai-dev/kintai-api/pkg/logger"
	corsmiddleware "github.com/kintai-dev/kintai-api/pkg/middleware/cors"
	reqidmiddleware "github.com/kintai-dev/kintai-api/pkg/middleware/requestid"
)

// @title Kintai API
// @version 1.0.0
// @description Attendance tracking with correction request workflow
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var tokenCache *service.TokenCache
	if cfg.TokenCache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("redis connection failed", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck
		tokenCache = service.NewTokenCache(redisClient, cfg.TokenCache.TTL, logr)
	}

	userRepo := repository.NewUserRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	breakRepo := repository.NewBreakRecordRepository(db)
	correctionRepo := repository.NewCorrectionRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditSvc := service.NewAuditService(auditRepo, cfg.Audit, logr)
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	metricsSvc := service.NewMetricsService()

	validate := validator.New()
	authSvc := newAuthService(userRepo, tokenCache, auditSvc, validate, logr, cfg)

	attendanceSvc := service.NewAttendanceService(attendanceRepo, breakRepo, correctionRepo, auditSvc)
	correctionSvc := service.NewCorrectionService(
		correctionRepo,
		attendanceRepo,
		breakRepo,
		auditSvc,
		cfg.Corrections.MaxReasonLen,
		cfg.Corrections.DefaultPerPage,
		cfg.Corrections.MaxPerPage,
	)

	authHandler := handler.NewAuthHandler(authSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	correctionHandler := handler.NewCorrectionHandler(correctionSvc)
	adminCorrectionHandler := handler.NewAdminCorrectionHandler(correctionSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, auditSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)
	authed.GET("/auth/me", authHandler.Me)

	attendance := authed.Group("/attendance")
	attendance.GET("", attendanceHandler.List)
	attendance.GET("/today", attendanceHandler.Today)
	attendance.POST("/clock-in", attendanceHandler.ClockIn)
	attendance.POST("/clock-out", attendanceHandler.ClockOut)
	attendance.POST("/breaks/start", attendanceHandler.StartBreak)
	attendance.POST("/breaks/end", attendanceHandler.EndBreak)

	corrections := authed.Group("/corrections")
	corrections.POST("", correctionHandler.Create)
	corrections.GET("", correctionHandler.List)
	corrections.GET("/:id", correctionHandler.Get)
	corrections.PUT("/:id", correctionHandler.Update)
	corrections.DELETE("/:id", correctionHandler.Cancel)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	admin.GET("/corrections", adminCorrectionHandler.List)
	admin.GET("/corrections/:id", adminCorrectionHandler.Get)
	admin.POST("/corrections/:id/approve", adminCorrectionHandler.Approve)
	admin.POST("/corrections/:id/reject", adminCorrectionHandler.Reject)
	admin.GET("/audit-logs", metricsHandler.AuditLogs)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// newAuthService keeps the token cache out of the service when Redis is not
// configured. A typed nil would still satisfy the cache interface, so the nil
// branch passes an untyped nil instead.
func newAuthService(repo *repository.UserRepository, tokenCache *service.TokenCache, audit *service.AuditService, validate *validator.Validate, logr *zap.Logger, cfg *config.Config) *service.AuthService {
	authCfg := service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	}
	if tokenCache == nil {
		return service.NewAuthService(repo, nil, audit, validate, logr, authCfg)
	}
	return service.NewAuthService(repo, tokenCache, audit, validate, logr, authCfg)
}
