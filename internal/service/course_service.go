package service

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/models"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
}

type courseListing struct {
	Courses []models.Course `json:"courses"`
	Total   int             `json:"total"`
}

// CourseService serves catalog lookups.
type CourseService struct {
	repo   courseRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, cache *CacheService, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, logger: logger}
}

// List returns courses matching filter with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	key := courseListCacheKey(filter)

	var listing courseListing
	if !s.cache.Get(ctx, key, &listing) {
		courses, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
		}
		if courses == nil {
			courses = []models.Course{}
		}
		listing = courseListing{Courses: courses, Total: total}
		s.cache.Set(ctx, key, listing)
	}
	return listing.Courses, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: listing.Total}, nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	key := cacheKeyCourses + "id:" + strconv.FormatInt(id, 10)
	var cached models.Course
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	s.cache.Set(ctx, key, course)
	return course, nil
}

func courseListCacheKey(filter models.CourseFilter) string {
	raw, _ := json.Marshal(filter)
	sum := sha1.Sum(raw)
	return cacheKeyCourses + "list:" + hex.EncodeToString(sum[:])
}
