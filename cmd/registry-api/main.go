package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-registry-api/api/swagger"
	"github.com/noah-isme/course-registry-api/internal/bootstrap"
	"github.com/noah-isme/course-registry-api/internal/handler"
	internalmiddleware "github.com/noah-isme/course-registry-api/internal/middleware"
	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
	"github.com/noah-isme/course-registry-api/pkg/config"
	"github.com/noah-isme/course-registry-api/pkg/jobs"
	"github.com/noah-isme/course-registry-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-registry-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-registry-api/pkg/middleware/requestid"
	"github.com/noah-isme/course-registry-api/pkg/storage"
)

// @title Course Registry API
// @version 1.0.0
// @description Course catalog ingestion and prerequisite-gated enrollment
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("bootstrap failed", zap.Error(err))
	}
	defer app.Close()

	uploads, err := storage.NewLocalStorage(cfg.Catalog.UploadDir)
	if err != nil {
		logr.Fatal("upload storage unavailable", zap.Error(err))
	}

	importJobs := service.NewImportJobService(app.Catalog, uploads, service.ImportDefaults{
		Year:           cfg.Catalog.Year,
		Term:           cfg.Catalog.Term,
		CodeTokens:     cfg.Catalog.CodeTokens,
		MaxUploadBytes: cfg.Catalog.MaxUploadBytes,
	}, logr)
	// A single worker keeps imports strictly sequential.
	importQueue := jobs.NewQueue("catalog-imports", importJobs.Handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: cfg.Catalog.QueueBuffer,
		Logger:     logr,
	})
	importJobs.AttachQueue(importQueue)
	importQueue.Start(ctx)
	defer importQueue.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(app.Metrics))

	metricsHandler := handler.NewMetricsHandler(app.Metrics, app.DB)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	courseHandler := handler.NewCourseHandler(app.Courses, app.Prerequisites, app.Enrollments)
	studentHandler := handler.NewStudentHandler(app.Students, app.Enrollments)
	enrollmentHandler := handler.NewEnrollmentHandler(app.Enrollments)
	catalogHandler := handler.NewCatalogHandler(importJobs)

	api := r.Group(cfg.APIPrefix)
	api.GET("/courses", courseHandler.List)
	api.GET("/courses/:id", courseHandler.Get)
	api.GET("/courses/:id/prerequisites", courseHandler.Prerequisites)
	api.GET("/courses/:id/students", courseHandler.Roster)
	api.GET("/students/:id", studentHandler.Get)
	api.GET("/students/:id/enrollments", studentHandler.Enrollments)
	api.GET("/catalog/imports/:id", catalogHandler.Get)
	api.GET("/catalog/imports/:id/issues.csv", catalogHandler.Issues)

	registrar := api.Group("")
	registrar.Use(internalmiddleware.JWT(app.Tokens), internalmiddleware.RequireRoles(models.RoleRegistrar))
	registrar.POST("/catalog/imports", catalogHandler.Submit)
	registrar.POST("/students", studentHandler.Register)
	registrar.POST("/courses/:id/prerequisites", courseHandler.AddPrerequisite)
	registrar.POST("/enrollments", enrollmentHandler.Create)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
