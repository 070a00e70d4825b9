package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/models"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
	"github.com/noah-isme/course-registry-api/pkg/jobs"
)

// ImportJobType tags catalog import jobs on the queue.
const ImportJobType = "catalog_import"

type catalogImporter interface {
	Import(ctx context.Context, r io.Reader, params ImportParams) (*models.ImportReport, error)
	IssuesCSV(report *models.ImportReport) ([]byte, error)
}

type uploadStore interface {
	SaveStream(name string, r io.Reader, limit int64) (int64, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// ImportDefaults fill in run parameters the caller leaves out.
type ImportDefaults struct {
	Year           int
	Term           string
	CodeTokens     int
	MaxUploadBytes int64
}

// SubmitImportRequest describes an uploaded catalog file.
type SubmitImportRequest struct {
	Filename    string
	Body        io.Reader
	Year        int
	Term        string
	RequestedBy string
}

// ImportJobService accepts catalog uploads and runs them through the import
// queue. The queue is expected to have a single worker so that at most one
// import writes at a time. Job state lives in memory for the process lifetime.
type ImportJobService struct {
	importer catalogImporter
	storage  uploadStore
	queue    jobQueue
	defaults ImportDefaults
	logger   *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*models.ImportJob
}

// NewImportJobService constructs the service. AttachQueue must be called before Submit.
func NewImportJobService(importer catalogImporter, storage uploadStore, defaults ImportDefaults, logger *zap.Logger) *ImportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportJobService{
		importer: importer,
		storage:  storage,
		defaults: defaults,
		logger:   logger,
		jobs:     make(map[string]*models.ImportJob),
	}
}

// AttachQueue wires the queue whose handler is s.Handle.
func (s *ImportJobService) AttachQueue(q jobQueue) {
	s.queue = q
}

// Submit stores the upload and queues it.
func (s *ImportJobService) Submit(ctx context.Context, req SubmitImportRequest) (*models.ImportJob, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "import queue not configured")
	}
	name := filepath.Base(strings.TrimSpace(req.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file name is required")
	}
	if req.Body == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	year := req.Year
	if year == 0 {
		year = s.defaults.Year
	}
	term := strings.TrimSpace(req.Term)
	if term == "" {
		term = s.defaults.Term
	}

	id := uuid.NewString()
	stored := id + ".csv"
	if _, err := s.storage.SaveStream(stored, req.Body, s.defaults.MaxUploadBytes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to store upload")
	}

	job := &models.ImportJob{
		ID:          id,
		Filename:    name,
		StoredAs:    stored,
		Year:        year,
		Term:        term,
		Status:      models.ImportJobQueued,
		RequestedBy: req.RequestedBy,
		CreatedAt:   time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: id, Type: ImportJobType, Payload: id}); err != nil {
		s.mu.Lock()
		delete(s.jobs, id)
		s.mu.Unlock()
		_ = s.storage.Delete(stored)
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "import queue is full")
	}

	s.logger.Info("catalog import queued", zap.String("import_id", id), zap.String("filename", name), zap.Int("year", year), zap.String("term", term))
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(job), nil
}

// Handle is the queue handler for catalog import jobs.
func (s *ImportJobService) Handle(ctx context.Context, j jobs.Job) error {
	id, _ := j.Payload.(string)
	s.mu.Lock()
	job, ok := s.jobs[id]
	if ok {
		job.Status = models.ImportJobRunning
	}
	s.mu.Unlock()
	if !ok {
		s.logger.Warn("unknown import job", zap.String("import_id", id))
		return nil
	}

	report, err := s.run(ctx, job)

	finished := time.Now().UTC()
	s.mu.Lock()
	job.Report = report
	job.FinishedAt = &finished
	switch {
	case errors.Is(err, appErrors.ErrCancelled):
		job.Status = models.ImportJobCancelled
		job.Error = err.Error()
	case err != nil:
		job.Status = models.ImportJobFailed
		job.Error = err.Error()
	default:
		job.Status = models.ImportJobSucceeded
	}
	s.mu.Unlock()

	if delErr := s.storage.Delete(job.StoredAs); delErr != nil {
		s.logger.Warn("failed to remove import upload", zap.String("import_id", id), zap.Error(delErr))
	}
	return nil
}

func (s *ImportJobService) run(ctx context.Context, job *models.ImportJob) (*models.ImportReport, error) {
	file, err := s.storage.Open(job.StoredAs)
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck

	return s.importer.Import(ctx, file, ImportParams{
		Year:       job.Year,
		Term:       job.Term,
		CodeTokens: s.defaults.CodeTokens,
		ImportID:   job.ID,
	})
}

// Get returns a copy of the job.
func (s *ImportJobService) Get(id string) (*models.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "import not found")
	}
	return s.snapshot(job), nil
}

// IssuesCSV renders the issue list of a finished job.
func (s *ImportJobService) IssuesCSV(id string) ([]byte, error) {
	job, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if job.Report == nil {
		if job.Status == models.ImportJobFailed {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "import failed before producing a report")
		}
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "import has not finished")
	}
	body, err := s.importer.IssuesCSV(job.Report)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render import issues")
	}
	return body, nil
}

// snapshot copies job under the caller's lock.
func (s *ImportJobService) snapshot(job *models.ImportJob) *models.ImportJob {
	out := *job
	return &out
}
