package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/pkg/database"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

type prerequisiteRepository interface {
	Create(ctx context.Context, edge *models.Prerequisite) error
	Exists(ctx context.Context, courseID, prerequisiteID int64) (bool, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.Prerequisite, error)
}

type courseExistence interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// AddPrerequisiteRequest names the required course.
type AddPrerequisiteRequest struct {
	PrerequisiteID int64 `json:"prerequisite_id" yaml:"prerequisite_id" validate:"required,gt=0"`
}

// PrerequisiteService manages course requirement edges. Edges are direct only;
// nothing here walks the graph, so cycles are stored as given.
type PrerequisiteService struct {
	repo    prerequisiteRepository
	courses courseExistence
	cache   *CacheService
	logger  *zap.Logger
}

// NewPrerequisiteService constructs a PrerequisiteService.
func NewPrerequisiteService(repo prerequisiteRepository, courses courseExistence, cache *CacheService, logger *zap.Logger) *PrerequisiteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrerequisiteService{repo: repo, courses: courses, cache: cache, logger: logger}
}

// Add records that courseID requires prerequisiteID.
func (s *PrerequisiteService) Add(ctx context.Context, courseID, prerequisiteID int64) (*models.Prerequisite, error) {
	if courseID <= 0 || prerequisiteID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course ids must be positive")
	}
	if courseID == prerequisiteID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a course cannot require itself")
	}
	for _, id := range []int64{courseID, prerequisiteID} {
		ok, err := s.courses.Exists(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course "+strconv.FormatInt(id, 10)+" not found")
		}
	}
	exists, err := s.repo.Exists(ctx, courseID, prerequisiteID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisite")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "prerequisite already recorded")
	}

	edge := &models.Prerequisite{CourseID: courseID, PrerequisiteID: prerequisiteID}
	if err := s.repo.Create(ctx, edge); err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "prerequisite already recorded")
		case database.IsForeignKeyViolation(err):
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add prerequisite")
	}
	s.cache.Invalidate(ctx, prerequisiteCacheKey(courseID))
	s.logger.Info("prerequisite added", zap.Int64("course_id", courseID), zap.Int64("prerequisite_id", prerequisiteID))
	return edge, nil
}

// List returns the direct prerequisites of a course.
func (s *PrerequisiteService) List(ctx context.Context, courseID int64) ([]models.Prerequisite, error) {
	key := prerequisiteCacheKey(courseID)
	var cached []models.Prerequisite
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	ok, err := s.courses.Exists(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	edges, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list prerequisites")
	}
	if edges == nil {
		edges = []models.Prerequisite{}
	}
	s.cache.Set(ctx, key, edges)
	return edges, nil
}

func prerequisiteCacheKey(courseID int64) string {
	return cacheKeyPrerequisites + strconv.FormatInt(courseID, 10)
}
