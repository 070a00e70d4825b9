package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/models"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	CreateIfAbsent(ctx context.Context, student *models.Student) (bool, error)
}

// RegisterStudentRequest is the payload for registering a student.
type RegisterStudentRequest struct {
	StudentNumber string  `json:"student_number" yaml:"student_number" validate:"required,max=255"`
	FirstName     string  `json:"first_name" yaml:"first_name" validate:"required,max=255"`
	LastName      string  `json:"last_name" yaml:"last_name" validate:"required,max=255"`
	ClassYear     *int    `json:"class_year,omitempty" yaml:"class_year" validate:"omitempty,gte=1900,lte=2200"`
	Major1        *string `json:"major1,omitempty" yaml:"major1" validate:"omitempty,max=255"`
	Major2        *string `json:"major2,omitempty" yaml:"major2" validate:"omitempty,max=255"`
	Minor1        *string `json:"minor1,omitempty" yaml:"minor1" validate:"omitempty,max=255"`
	Advisor       *string `json:"advisor,omitempty" yaml:"advisor" validate:"omitempty,max=255"`
}

// StudentService registers and looks up students.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// Register creates the student unless the student number is already known, in
// which case the stored record is returned with created=false.
func (s *StudentService) Register(ctx context.Context, req RegisterStudentRequest) (*models.Student, bool, error) {
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student := &models.Student{
		StudentNumber: req.StudentNumber,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ClassYear:     req.ClassYear,
		Major1:        blankToNil(req.Major1),
		Major2:        blankToNil(req.Major2),
		Minor1:        blankToNil(req.Minor1),
		Advisor:       blankToNil(req.Advisor),
	}
	created, err := s.repo.CreateIfAbsent(ctx, student)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register student")
	}
	if created {
		s.logger.Info("student registered", zap.Int64("student_id", student.ID), zap.String("student_number", student.StudentNumber))
	}
	return student, created, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func blankToNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
