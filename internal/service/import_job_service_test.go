package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registry-api/internal/models"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
	"github.com/noah-isme/course-registry-api/pkg/jobs"
	"github.com/noah-isme/course-registry-api/pkg/storage"
)

func newImportJobFixture(t *testing.T, writer courseWriter) (*ImportJobService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	svc := NewImportJobService(newCatalogService(writer), store, ImportDefaults{Year: 2021, Term: "Fall", CodeTokens: 1, MaxUploadBytes: 1 << 20}, nil)
	queue := jobs.NewQueue("catalog-imports", svc.Handle, jobs.QueueConfig{Workers: 1, BufferSize: 4})
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)
	svc.AttachQueue(queue)
	return svc, store
}

func TestImportJobServiceRunsQueuedImport(t *testing.T) {
	writer := &mockCourseWriter{}
	svc, store := newImportJobFixture(t, writer)

	job, err := svc.Submit(context.Background(), SubmitImportRequest{
		Filename: "../../fall.csv",
		Body:     strings.NewReader(sampleCatalog),
	})
	require.NoError(t, err)
	assert.Equal(t, "fall.csv", job.Filename)
	assert.Equal(t, 2021, job.Year)
	assert.Equal(t, "Fall", job.Term)

	require.Eventually(t, func() bool {
		current, err := svc.Get(job.ID)
		return err == nil && current.Status == models.ImportJobSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	done, err := svc.Get(job.ID)
	require.NoError(t, err)
	require.NotNil(t, done.Report)
	assert.Equal(t, 3, done.Report.CoursesInserted)
	require.NotNil(t, done.FinishedAt)

	_, err = store.Open(job.StoredAs)
	assert.Error(t, err, "upload is removed once processed")

	body, err := svc.IssuesCSV(job.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "line,kind,reason,detail\n"))
	assert.Contains(t, string(body), "too_few_fields")
}

func TestImportJobServiceRejectsOversizedUpload(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewImportJobService(newCatalogService(&mockCourseWriter{}), store, ImportDefaults{Year: 2021, Term: "Fall", MaxUploadBytes: 8}, nil)
	svc.AttachQueue(jobs.NewQueue("unused", svc.Handle, jobs.QueueConfig{}))

	_, err = svc.Submit(context.Background(), SubmitImportRequest{Filename: "big.csv", Body: strings.NewReader(sampleCatalog)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestImportJobServiceUnknownJob(t *testing.T) {
	svc, _ := newImportJobFixture(t, &mockCourseWriter{})

	_, err := svc.Get("missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = svc.IssuesCSV("missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestImportJobServiceRequiresFilename(t *testing.T) {
	svc, _ := newImportJobFixture(t, &mockCourseWriter{})
	_, err := svc.Submit(context.Background(), SubmitImportRequest{Filename: " ", Body: strings.NewReader("x")})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestImportJobServiceMarksCancelledImport(t *testing.T) {
	writer := &mockCourseWriter{failAt: map[int]error{1: context.Canceled}}
	svc, _ := newImportJobFixture(t, writer)

	job, err := svc.Submit(context.Background(), SubmitImportRequest{Filename: "fall.csv", Body: strings.NewReader(sampleCatalog)})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, err := svc.Get(job.ID)
		return err == nil && current.Status == models.ImportJobCancelled
	}, 2*time.Second, 10*time.Millisecond)

	done, err := svc.Get(job.ID)
	require.NoError(t, err)
	assert.Contains(t, done.Error, "import cancelled")
	require.NotNil(t, done.Report)
	assert.True(t, done.Report.Cancelled)
	assert.Zero(t, done.Report.StorageFailures)
}
