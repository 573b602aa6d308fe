package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/enrollsys-api/api/swagger"
	"github.com/noah-isme/enrollsys-api/internal/handler"
	"github.com/noah-isme/enrollsys-api/internal/repository"
	"github.com/noah-isme/enrollsys-api/internal/service"
	"github.com/noah-isme/enrollsys-api/pkg/cache"
	"github.com/noah-isme/enrollsys-api/pkg/config"
	"github.com/noah-isme/enrollsys-api/pkg/database"
	"github.com/noah-isme/enrollsys-api/pkg/export"
	"github.com/noah-isme/enrollsys-api/pkg/logger"
	"github.com/noah-isme/enrollsys-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/enrollsys-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/enrollsys-api/pkg/middleware/requestid"
)

// @title Enrollment Workflow API
// @version 1.0.0
// @description Enlistment, approval and fee reconciliation service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	enlistmentRepo := repository.NewEnlistmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	accountRepo := repository.NewFinanceAccountRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	previousRepo := repository.NewPreviousSubjectRepository(db)
	windowRepo := repository.NewWindowRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	mail := mailer.NewSendgrid(cfg.Mail, logr)

	authService := service.NewAuthService(userRepo, mail, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "enrollsys-api",
		Audience:           []string{"enrollsys-web"},
	})
	eligibility := service.NewEligibilityChecker(accountRepo, previousRepo)
	enlistmentService := service.NewEnlistmentService(
		enlistmentRepo, paymentRepo, historyRepo, catalogRepo, windowRepo,
		eligibility, db, metricsService, validate, logr,
		cfg.Enrollment.WindowDefaultOpen,
	)
	paymentService := service.NewPaymentService(
		enlistmentRepo, paymentRepo, accountRepo, historyRepo,
		db, metricsService, export.NewPDFExporter(), logr,
	)
	historyService := service.NewHistoryService(historyRepo, enlistmentRepo, export.NewCSVExporter(), logr, cfg.Enrollment.HistoryPageLimit)
	catalogService := service.NewCatalogService(catalogRepo, cacheRepo, cfg.Catalog.CacheTTL, logr)
	windowService := service.NewWindowService(windowRepo, logr, cfg.Enrollment.WindowDefaultOpen)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Enlistment: handler.NewEnlistmentHandler(enlistmentService),
		Payment:    handler.NewPaymentHandler(paymentService),
		Catalog:    handler.NewCatalogHandler(catalogService),
		History:    handler.NewHistoryHandler(historyService),
		Window:     handler.NewWindowHandler(windowService),
		Metrics:    handler.NewMetricsHandler(metricsService),
	}, authService, metricsService)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
