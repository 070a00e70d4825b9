package service

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/ingest"
	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/pkg/database"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
	"github.com/noah-isme/course-registry-api/pkg/export"
)

type courseWriter interface {
	Create(ctx context.Context, course *models.Course) error
}

// ImportParams are the per-run inputs of a catalog import.
type ImportParams struct {
	Year       int    `validate:"required,gte=1900,lte=2200"`
	Term       string `validate:"required,max=50"`
	CodeTokens int    `validate:"omitempty,min=1,max=2"`
	// ImportID tags log lines; empty for CLI runs.
	ImportID string
	// DryRun classifies every row without writing.
	DryRun bool
}

// Storage failure reasons recorded on the import report.
const (
	reasonDuplicate    = "duplicate"
	reasonInvalidValue = "invalid_value"
	reasonStorage      = "storage_error"
)

// CatalogService loads course catalog exports into storage.
type CatalogService struct {
	courses   courseWriter
	cache     *CacheService
	metrics   *MetricsService
	exporter  *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(courses courseWriter, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		courses:   courses,
		cache:     cache,
		metrics:   metrics,
		exporter:  export.NewCSVExporter(),
		validator: validate,
		logger:    logger,
	}
}

// Import reads r to the end, inserting every course row one at a time. Malformed
// rows and rejected inserts are recorded on the report and skipped. Losing the
// storage connection stops the run and returns the report so far together with
// ErrStorageUnavailable; cancelling ctx stops it with ErrCancelled instead.
func (s *CatalogService) Import(ctx context.Context, r io.Reader, params ImportParams) (*models.ImportReport, error) {
	if err := s.validator.Struct(params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import parameters")
	}

	log := s.logger.With(zap.Int("year", params.Year), zap.String("term", params.Term))
	if params.ImportID != "" {
		log = log.With(zap.String("import_id", params.ImportID))
	}

	report := &models.ImportReport{
		Year:      params.Year,
		Term:      params.Term,
		Skipped:   map[string]int{},
		Issues:    []models.ImportIssue{},
		StartedAt: time.Now().UTC(),
	}
	reader := ingest.NewReader(r)
	parser := ingest.NewParser(ingest.Params{Year: params.Year, Term: params.Term, CodeTokens: params.CodeTokens})

	var runErr error
	for runErr == nil {
		if err := ctx.Err(); err != nil {
			runErr = s.cancel(report, log, err)
			break
		}
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			runErr = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read catalog")
			break
		}
		report.RowsRead++
		runErr = s.apply(ctx, report, log, parser.Next(row), params.DryRun)
	}
	report.FinishedAt = time.Now().UTC()

	if report.CoursesInserted > 0 {
		s.cache.Invalidate(ctx, cacheKeyCourses+"*")
	}

	status := string(models.ImportJobSucceeded)
	switch {
	case report.Cancelled:
		status = string(models.ImportJobCancelled)
	case runErr != nil:
		status = string(models.ImportJobFailed)
	}
	s.metrics.RecordCatalogImport(status, report.FinishedAt.Sub(report.StartedAt))
	log.Info("catalog import finished",
		zap.Int("rows_read", report.RowsRead),
		zap.Int("headings", report.Headings),
		zap.Int("courses_emitted", report.CoursesEmitted),
		zap.Int("courses_inserted", report.CoursesInserted),
		zap.Int("skipped", report.SkippedTotal()),
		zap.Int("storage_failures", report.StorageFailures),
		zap.Int("warnings", report.Warnings),
		zap.Bool("aborted", report.Aborted),
		zap.Bool("cancelled", report.Cancelled),
	)
	return report, runErr
}

func (s *CatalogService) apply(ctx context.Context, report *models.ImportReport, log *zap.Logger, out ingest.Outcome, dryRun bool) error {
	switch out.Kind {
	case ingest.KindHeading:
		report.Headings++
		s.metrics.RecordCatalogRow(ingest.KindHeading.String())
		return nil

	case ingest.KindSkipped:
		report.Skipped[out.Reason]++
		report.Issues = append(report.Issues, models.ImportIssue{
			Line: out.Line, Kind: models.ImportIssueSkipped, Reason: out.Reason, Detail: out.Detail,
		})
		s.metrics.RecordCatalogRow(out.Reason)
		log.Warn("catalog row skipped", zap.Int("line", out.Line), zap.String("reason", out.Reason), zap.String("detail", out.Detail))
		return nil
	}

	report.CoursesEmitted++
	s.metrics.RecordCatalogRow(ingest.KindCourse.String())
	if out.Orphan {
		report.Warnings++
		report.Issues = append(report.Issues, models.ImportIssue{
			Line: out.Line, Kind: models.ImportIssueWarning, Reason: ingest.WarningOrphanDepartment, Detail: out.Course.CourseCode,
		})
		log.Warn("course has no department", zap.Int("line", out.Line), zap.String("course_code", out.Course.CourseCode))
	}
	if out.ReversedTimes {
		report.Warnings++
		report.Issues = append(report.Issues, models.ImportIssue{
			Line: out.Line, Kind: models.ImportIssueWarning, Reason: ingest.WarningReversedTimes, Detail: out.Course.CourseCode + ": " + out.Detail,
		})
		log.Warn("course begins after it ends", zap.Int("line", out.Line), zap.String("course_code", out.Course.CourseCode), zap.String("detail", out.Detail))
	}
	if dryRun {
		return nil
	}

	if err := s.courses.Create(ctx, out.Course); err != nil {
		if database.IsCancelled(err) || ctx.Err() != nil {
			return s.cancel(report, log, err)
		}
		report.StorageFailures++
		if database.IsConnectionLoss(err) {
			report.Issues = append(report.Issues, models.ImportIssue{
				Line: out.Line, Kind: models.ImportIssueStorageError, Reason: reasonStorage, Detail: err.Error(),
			})
			return s.abort(report, log, err)
		}
		reason := storageFailureReason(err)
		report.Issues = append(report.Issues, models.ImportIssue{
			Line: out.Line, Kind: models.ImportIssueStorageError, Reason: reason, Detail: err.Error(),
		})
		log.Warn("course insert failed", zap.Int("line", out.Line), zap.String("reason", reason), zap.Error(err))
		return nil
	}
	report.CoursesInserted++
	return nil
}

func (s *CatalogService) abort(report *models.ImportReport, log *zap.Logger, cause error) error {
	report.Aborted = true
	log.Error("catalog import aborted", zap.Int("rows_read", report.RowsRead), zap.Error(cause))
	return appErrors.Wrap(cause, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status,
		"storage unavailable after "+strconv.Itoa(report.RowsRead)+" rows")
}

func (s *CatalogService) cancel(report *models.ImportReport, log *zap.Logger, cause error) error {
	report.Cancelled = true
	log.Warn("catalog import cancelled", zap.Int("rows_read", report.RowsRead), zap.Error(cause))
	return appErrors.Wrap(cause, appErrors.ErrCancelled.Code, appErrors.ErrCancelled.Status,
		"import cancelled after "+strconv.Itoa(report.RowsRead)+" rows")
}

func storageFailureReason(err error) string {
	switch {
	case database.IsUniqueViolation(err):
		return reasonDuplicate
	case database.IsDataError(err):
		return reasonInvalidValue
	default:
		return reasonStorage
	}
}

// IssuesCSV renders the report issues as a CSV document.
func (s *CatalogService) IssuesCSV(report *models.ImportReport) ([]byte, error) {
	data := export.Dataset{Headers: []string{"line", "kind", "reason", "detail"}}
	if report != nil {
		for _, issue := range report.Issues {
			data.Rows = append(data.Rows, []string{strconv.Itoa(issue.Line), string(issue.Kind), issue.Reason, issue.Detail})
		}
	}
	body, err := s.exporter.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render import issues")
	}
	return body, nil
}
