package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/repository"
	"github.com/noah-isme/course-registry-api/pkg/database"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

type enrollmentRepository interface {
	WithinTx(ctx context.Context, fn func(q repository.EnrollmentTxQueries) error) error
	ListByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error)
	Roster(ctx context.Context, courseID int64) ([]models.RosterEntry, error)
}

// EnrollRequest describes one enrollment attempt.
type EnrollRequest struct {
	StudentID int64                   `json:"student_id" yaml:"student_id" validate:"required,gt=0"`
	CourseID  int64                   `json:"course_id" yaml:"course_id" validate:"required,gt=0"`
	Status    models.EnrollmentStatus `json:"status" yaml:"status"`
}

// Enrollment outcome labels used for metrics.
const (
	enrollmentAdmitted = "admitted"
	enrollmentRejected = "rejected"
	enrollmentConflict = "conflict"
	enrollmentNotFound = "not_found"
	enrollmentInvalid  = "invalid"
	enrollmentError    = "error"
)

// EnrollmentService admits students to courses once every direct prerequisite
// of the course has a Complete enrollment.
type EnrollmentService struct {
	repo             enrollmentRepository
	defaultClassSize int
	metrics          *MetricsService
	validator        *validator.Validate
	logger           *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, defaultClassSize int, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if defaultClassSize <= 0 {
		defaultClassSize = 100
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, defaultClassSize: defaultClassSize, metrics: metrics, validator: validate, logger: logger}
}

// Enroll decides and, when admitted, records the enrollment. The decision reads
// and the insert share one transaction. A missing prerequisite is not an error:
// the outcome carries Admitted=false and the first unmet prerequisite id, and
// nothing is written.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentOutcome, error) {
	if req.Status == "" {
		req.Status = models.EnrollmentStatusActive
	}
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordEnrollment(enrollmentInvalid)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if !req.Status.Valid() {
		s.metrics.RecordEnrollment(enrollmentInvalid)
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of Active, WaitList, Complete")
	}

	log := s.logger.With(zap.Int64("student_id", req.StudentID), zap.Int64("course_id", req.CourseID))
	var outcome *models.EnrollmentOutcome
	err := s.repo.WithinTx(ctx, func(q repository.EnrollmentTxQueries) error {
		var err error
		outcome, err = s.decide(ctx, q, req)
		return err
	})
	if err != nil {
		return nil, s.classify(log, err)
	}

	if !outcome.Admitted {
		s.metrics.RecordEnrollment(enrollmentRejected)
		log.Info("enrollment rejected", zap.Int64("prerequisite_id", *outcome.UnmetPrerequisiteID))
		return outcome, nil
	}
	s.metrics.RecordEnrollment(enrollmentAdmitted)
	log.Info("enrollment created", zap.String("status", string(req.Status)))
	return outcome, nil
}

func (s *EnrollmentService) decide(ctx context.Context, q repository.EnrollmentTxQueries, req EnrollRequest) (*models.EnrollmentOutcome, error) {
	ok, err := q.StudentExists(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	ok, err = q.CourseExists(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	prereqs, err := q.PrerequisiteIDs(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	for _, prereqID := range prereqs {
		done, err := q.HasCompleted(ctx, req.StudentID, prereqID)
		if err != nil {
			return nil, err
		}
		if !done {
			unmet := prereqID
			return &models.EnrollmentOutcome{Admitted: false, UnmetPrerequisiteID: &unmet}, nil
		}
	}

	exists, err := q.EnrollmentExists(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in course")
	}

	enrollment := &models.Enrollment{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Status:    req.Status,
		ClassSize: s.defaultClassSize,
	}
	if err := q.Insert(ctx, enrollment); err != nil {
		return nil, err
	}
	return &models.EnrollmentOutcome{Admitted: true, Enrollment: enrollment}, nil
}

func (s *EnrollmentService) classify(log *zap.Logger, err error) error {
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		if errors.Is(err, appErrors.ErrConflict) {
			s.metrics.RecordEnrollment(enrollmentConflict)
		} else {
			s.metrics.RecordEnrollment(enrollmentNotFound)
		}
		log.Warn("enrollment refused", zap.String("code", appErr.Code), zap.String("reason", appErr.Message))
		return appErr
	case database.IsUniqueViolation(err):
		s.metrics.RecordEnrollment(enrollmentConflict)
		log.Warn("enrollment refused", zap.String("code", appErrors.ErrConflict.Code))
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "student already enrolled in course")
	case database.IsForeignKeyViolation(err):
		s.metrics.RecordEnrollment(enrollmentNotFound)
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "student or course not found")
	case database.IsCancelled(err):
		s.metrics.RecordEnrollment(enrollmentError)
		log.Warn("enrollment cancelled", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrCancelled.Code, appErrors.ErrCancelled.Status, "enrollment cancelled")
	case database.IsConnectionLoss(err):
		s.metrics.RecordEnrollment(enrollmentError)
		log.Error("enrollment failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "storage unavailable")
	default:
		s.metrics.RecordEnrollment(enrollmentError)
		log.Error("enrollment failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
}

// BatchEnrollResult records what happened to one request of a batch.
type BatchEnrollResult struct {
	Index   int                       `json:"index"`
	Request EnrollRequest             `json:"request"`
	Outcome *models.EnrollmentOutcome `json:"outcome,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

// EnrollBatch runs requests one after another in input order. A failing
// request is reported and the batch continues, unless storage became
// unavailable or ctx was cancelled, in which case the results so far are
// returned with the error.
func (s *EnrollmentService) EnrollBatch(ctx context.Context, reqs []EnrollRequest) ([]BatchEnrollResult, error) {
	results := make([]BatchEnrollResult, 0, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return results, appErrors.Wrap(err, appErrors.ErrCancelled.Code, appErrors.ErrCancelled.Status, "enrollment batch cancelled")
		}
		outcome, err := s.Enroll(ctx, req)
		result := BatchEnrollResult{Index: i, Request: req, Outcome: outcome}
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			if errors.Is(err, appErrors.ErrStorageUnavailable) || errors.Is(err, appErrors.ErrCancelled) {
				return results, err
			}
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// ListByStudent returns the enrollments of a student.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error) {
	list, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if list == nil {
		list = []models.EnrollmentDetail{}
	}
	return list, nil
}

// Roster returns the students enrolled in a course.
func (s *EnrollmentService) Roster(ctx context.Context, courseID int64) ([]models.RosterEntry, error) {
	roster, err := s.repo.Roster(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	if roster == nil {
		roster = []models.RosterEntry{}
	}
	return roster, nil
}
