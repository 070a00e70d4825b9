package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/course-registry-api/internal/models"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

type studentRegistrar interface {
	Register(ctx context.Context, req RegisterStudentRequest) (*models.Student, bool, error)
}

type prerequisiteAdder interface {
	Add(ctx context.Context, courseID, prerequisiteID int64) (*models.Prerequisite, error)
}

type enroller interface {
	Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentOutcome, error)
}

// SeedFile is the YAML document accepted by SeedService.
type SeedFile struct {
	Students      []RegisterStudentRequest `yaml:"students"`
	Prerequisites []SeedPrerequisite       `yaml:"prerequisites"`
	Enrollments   []SeedEnrollment         `yaml:"enrollments"`
}

// SeedPrerequisite is one requirement edge.
type SeedPrerequisite struct {
	CourseID       int64 `yaml:"course_id"`
	PrerequisiteID int64 `yaml:"prerequisite_id"`
}

// SeedEnrollment refers to students by number so seed files need no surrogate ids.
type SeedEnrollment struct {
	StudentNumber string                  `yaml:"student_number"`
	CourseID      int64                   `yaml:"course_id"`
	Status        models.EnrollmentStatus `yaml:"status"`
}

// SeedFailure is one entry that could not be applied.
type SeedFailure struct {
	Section string `json:"section"`
	Index   int    `json:"index"`
	Error   string `json:"error"`
}

// SeedReport summarises a seed run.
type SeedReport struct {
	StudentsCreated     int           `json:"students_created"`
	StudentsExisting    int           `json:"students_existing"`
	PrerequisitesAdded  int           `json:"prerequisites_added"`
	EnrollmentsAdmitted int           `json:"enrollments_admitted"`
	EnrollmentsRejected int           `json:"enrollments_rejected"`
	Failures            []SeedFailure `json:"failures"`
}

// ParseSeed decodes a seed document. Unknown keys are rejected.
func ParseSeed(r io.Reader) (*SeedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var seed SeedFile
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid seed file")
	}
	return &seed, nil
}

// SeedService loads students, prerequisite edges and historical enrollments.
type SeedService struct {
	students      studentRegistrar
	prerequisites prerequisiteAdder
	enrollments   enroller
	logger        *zap.Logger
}

// NewSeedService constructs a SeedService.
func NewSeedService(students studentRegistrar, prerequisites prerequisiteAdder, enrollments enroller, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{students: students, prerequisites: prerequisites, enrollments: enrollments, logger: logger}
}

// Apply runs every section in order. Entry failures are collected and the run
// continues; storage becoming unavailable stops it.
func (s *SeedService) Apply(ctx context.Context, seed *SeedFile) (*SeedReport, error) {
	report := &SeedReport{Failures: []SeedFailure{}}
	if seed == nil {
		return report, nil
	}
	numbers := make(map[string]int64, len(seed.Students))

	for i, req := range seed.Students {
		student, created, err := s.students.Register(ctx, req)
		if err != nil {
			if stop := s.fail(report, "students", i, err); stop != nil {
				return report, stop
			}
			continue
		}
		numbers[student.StudentNumber] = student.ID
		if created {
			report.StudentsCreated++
		} else {
			report.StudentsExisting++
		}
	}

	for i, edge := range seed.Prerequisites {
		if _, err := s.prerequisites.Add(ctx, edge.CourseID, edge.PrerequisiteID); err != nil {
			if errors.Is(err, appErrors.ErrConflict) {
				continue
			}
			if stop := s.fail(report, "prerequisites", i, err); stop != nil {
				return report, stop
			}
			continue
		}
		report.PrerequisitesAdded++
	}

	for i, entry := range seed.Enrollments {
		studentID, ok := numbers[entry.StudentNumber]
		if !ok {
			s.fail(report, "enrollments", i, fmt.Errorf("student %q is not in this seed file", entry.StudentNumber))
			continue
		}
		outcome, err := s.enrollments.Enroll(ctx, EnrollRequest{StudentID: studentID, CourseID: entry.CourseID, Status: entry.Status})
		if err != nil {
			if errors.Is(err, appErrors.ErrConflict) {
				continue
			}
			if stop := s.fail(report, "enrollments", i, err); stop != nil {
				return report, stop
			}
			continue
		}
		if outcome.Admitted {
			report.EnrollmentsAdmitted++
		} else {
			report.EnrollmentsRejected++
		}
	}

	s.logger.Info("seed applied",
		zap.Int("students_created", report.StudentsCreated),
		zap.Int("prerequisites_added", report.PrerequisitesAdded),
		zap.Int("enrollments_admitted", report.EnrollmentsAdmitted),
		zap.Int("failures", len(report.Failures)),
	)
	return report, nil
}

func (s *SeedService) fail(report *SeedReport, section string, index int, err error) error {
	report.Failures = append(report.Failures, SeedFailure{Section: section, Index: index, Error: err.Error()})
	s.logger.Warn("seed entry failed", zap.String("section", section), zap.Int("index", index), zap.Error(err))
	if errors.Is(err, appErrors.ErrStorageUnavailable) || errors.Is(err, appErrors.ErrCancelled) {
		return err
	}
	return nil
}
