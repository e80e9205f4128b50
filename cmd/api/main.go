package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/citavers/citavers-api/api/swagger"
	"github.com/citavers/citavers-api/internal/handler"
	"github.com/citavers/citavers-api/internal/middleware"
	"github.com/citavers/citavers-api/internal/migrate"
	"github.com/citavers/citavers-api/internal/repository"
	"github.com/citavers/citavers-api/internal/service"
	"github.com/citavers/citavers-api/pkg/cache"
	"github.com/citavers/citavers-api/pkg/config"
	"github.com/citavers/citavers-api/pkg/database"
	"github.com/citavers/citavers-api/pkg/logger"
	corsmiddleware "github.com/citavers/citavers-api/pkg/middleware/cors"
	reqidmiddleware "github.com/citavers/citavers-api/pkg/middleware/requestid"
	"github.com/citavers/citavers-api/pkg/storage"
)

// @title citavErs API
// @version 1.0.0
// @description Research paper library backend
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx := context.Background()

	if cfg.Database.AutoMigrate {
		if err := migrate.Up(ctx, database.DSN(cfg.Database)); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close()
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cacheRepo != nil)

	s3Storage, err := storage.NewS3Storage(ctx, cfg.S3)
	if err != nil {
		logr.Fatal("failed to init object storage", zap.Error(err))
	}

	validate := validator.New()

	paperRepo := repository.NewPaperRepository(db)
	userRepo := repository.NewUserRepository(db)
	collectionRepo := repository.NewCollectionRepository(db)
	annotationRepo := repository.NewAnnotationRepository(db)
	citationRepo := repository.NewCitationRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "citavers",
	})
	paperSvc := service.NewPaperService(paperRepo, cacheSvc, metricsSvc, cfg.Batch.MaxOperations, validate, logr)
	collectionSvc := service.NewCollectionService(collectionRepo, paperRepo, validate, logr)
	annotationSvc := service.NewAnnotationService(annotationRepo, paperRepo, validate, logr)
	citationSvc := service.NewCitationService(citationRepo, paperRepo, validate, logr)
	pdfSvc := service.NewPDFService(paperRepo, userRepo, s3Storage, cacheSvc, cfg.Quota.MaxStorageBytes, validate, logr)
	exportSvc := service.NewExportService(paperRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	paperHandler := handler.NewPaperHandler(paperSvc, exportSvc)
	collectionHandler := handler.NewCollectionHandler(collectionSvc)
	annotationHandler := handler.NewAnnotationHandler(annotationSvc)
	citationHandler := handler.NewCitationHandler(citationSvc)
	pdfHandler := handler.NewPDFHandler(pdfSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
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
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	papers := protected.Group("/papers")
	papers.GET("", paperHandler.List)
	papers.POST("", paperHandler.Create)
	papers.POST("/batch", paperHandler.Batch)
	papers.GET("/export", paperHandler.Export)
	papers.GET("/:id", paperHandler.Get)
	papers.PUT("/:id", paperHandler.Update)
	papers.DELETE("/:id", paperHandler.Delete)
	papers.GET("/:id/annotations", annotationHandler.List)
	papers.POST("/:id/annotations", annotationHandler.Create)
	papers.GET("/:id/citations", citationHandler.Network)
	papers.GET("/:id/pdf", pdfHandler.PresignDownload)
	papers.POST("/:id/pdf/upload", pdfHandler.PresignUpload)
	papers.POST("/:id/pdf/confirm", pdfHandler.ConfirmUpload)

	annotations := protected.Group("/annotations")
	annotations.PUT("/:id", annotationHandler.Update)
	annotations.DELETE("/:id", annotationHandler.Delete)

	citations := protected.Group("/citations")
	citations.POST("", citationHandler.Create)
	citations.DELETE("/:id", citationHandler.Delete)

	collections := protected.Group("/collections")
	collections.GET("", collectionHandler.List)
	collections.POST("", collectionHandler.Create)
	collections.PUT("/:id", collectionHandler.Update)
	collections.DELETE("/:id", collectionHandler.Delete)
	collections.GET("/:id/papers", collectionHandler.ListPapers)
	collections.POST("/:id/papers/:paperId", collectionHandler.AddPaper)
	collections.DELETE("/:id/papers/:paperId", collectionHandler.RemovePaper)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
