package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/repository"
	"github.com/noah-isme/course-registry-api/internal/service"
	"github.com/noah-isme/course-registry-api/pkg/cache"
	"github.com/noah-isme/course-registry-api/pkg/config"
	"github.com/noah-isme/course-registry-api/pkg/database"
)

const cacheKeyPrefix = "course-registry:"

// Container holds the connections and services shared by the server and the CLI.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Metrics       *service.MetricsService
	Cache         *service.CacheService
	Tokens        *service.TokenService
	Courses       *service.CourseService
	Catalog       *service.CatalogService
	Students      *service.StudentService
	Prerequisites *service.PrerequisiteService
	Enrollments   *service.EnrollmentService
	Seeds         *service.SeedService
}

// New connects to Postgres (and Redis when caching is enabled) and builds the service graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cfg.Cache.Enabled)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	validate := validator.New()

	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	prereqRepo := repository.NewPrerequisiteRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, cacheKeyPrefix)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logger, redisClient != nil)
	students := service.NewStudentService(studentRepo, validate, logger)
	prerequisites := service.NewPrerequisiteService(prereqRepo, courseRepo, cacheSvc, logger)
	enrollments := service.NewEnrollmentService(enrollmentRepo, cfg.Enrollment.DefaultClassSize, metrics, validate, logger)

	return &Container{
		Config:        cfg,
		Logger:        logger,
		DB:            db,
		Redis:         redisClient,
		Metrics:       metrics,
		Cache:         cacheSvc,
		Tokens:        service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Expiration: cfg.JWT.Expiration}),
		Courses:       service.NewCourseService(courseRepo, cacheSvc, logger),
		Catalog:       service.NewCatalogService(courseRepo, cacheSvc, metrics, validate, logger),
		Students:      students,
		Prerequisites: prerequisites,
		Enrollments:   enrollments,
		Seeds:         service.NewSeedService(students, prerequisites, enrollments, logger),
	}, nil
}

// Close releases the connections held by the container.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("close postgres", zap.Error(err))
		}
	}
}
