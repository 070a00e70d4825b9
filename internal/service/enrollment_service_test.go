package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/repository"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

type enrollmentKey struct{ student, course int64 }

// fakeEnrollmentStore commits staged inserts only when the callback succeeds.
type fakeEnrollmentStore struct {
	students    map[int64]bool
	courses     map[int64]bool
	prereqs     map[int64][]int64
	enrollments map[enrollmentKey]models.EnrollmentStatus
	insertErr   error
	txCount     int
}

func newFakeEnrollmentStore() *fakeEnrollmentStore {
	return &fakeEnrollmentStore{
		students:    map[int64]bool{1: true, 2: true},
		courses:     map[int64]bool{10: true, 20: true, 30: true},
		prereqs:     map[int64][]int64{},
		enrollments: map[enrollmentKey]models.EnrollmentStatus{},
	}
}

type fakeEnrollmentTx struct {
	store  *fakeEnrollmentStore
	staged []models.Enrollment
}

func (f *fakeEnrollmentStore) WithinTx(ctx context.Context, fn func(q repository.EnrollmentTxQueries) error) error {
	f.txCount++
	tx := &fakeEnrollmentTx{store: f}
	if err := fn(tx); err != nil {
		return err
	}
	for _, e := range tx.staged {
		f.enrollments[enrollmentKey{e.StudentID, e.CourseID}] = e.Status
	}
	return nil
}

func (f *fakeEnrollmentStore) ListByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for k, status := range f.enrollments {
		if k.student == studentID {
			out = append(out, models.EnrollmentDetail{Enrollment: models.Enrollment{StudentID: k.student, CourseID: k.course, Status: status}})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (f *fakeEnrollmentStore) Roster(ctx context.Context, courseID int64) ([]models.RosterEntry, error) {
	return nil, nil
}

func (t *fakeEnrollmentTx) StudentExists(ctx context.Context, id int64) (bool, error) {
	return t.store.students[id], nil
}

func (t *fakeEnrollmentTx) CourseExists(ctx context.Context, id int64) (bool, error) {
	return t.store.courses[id], nil
}

func (t *fakeEnrollmentTx) PrerequisiteIDs(ctx context.Context, courseID int64) ([]int64, error) {
	return t.store.prereqs[courseID], nil
}

func (t *fakeEnrollmentTx) HasCompleted(ctx context.Context, studentID, courseID int64) (bool, error) {
	return t.store.enrollments[enrollmentKey{studentID, courseID}] == models.EnrollmentStatusComplete, nil
}

func (t *fakeEnrollmentTx) EnrollmentExists(ctx context.Context, studentID, courseID int64) (bool, error) {
	_, ok := t.store.enrollments[enrollmentKey{studentID, courseID}]
	return ok, nil
}

func (t *fakeEnrollmentTx) Insert(ctx context.Context, e *models.Enrollment) error {
	if t.store.insertErr != nil {
		return t.store.insertErr
	}
	t.staged = append(t.staged, *e)
	return nil
}

func newEnrollmentServiceWith(store *fakeEnrollmentStore) *EnrollmentService {
	return NewEnrollmentService(store, 0, NewMetricsService(), nil, nil)
}

func TestEnrollAdmitsWhenPrerequisiteComplete(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.prereqs[20] = []int64{10}
	store.enrollments[enrollmentKey{1, 10}] = models.EnrollmentStatusComplete
	svc := newEnrollmentServiceWith(store)

	outcome, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 20, Status: models.EnrollmentStatusActive})
	require.NoError(t, err)
	require.True(t, outcome.Admitted)
	assert.Nil(t, outcome.UnmetPrerequisiteID)
	assert.Equal(t, 100, outcome.Enrollment.ClassSize)
	assert.Equal(t, models.EnrollmentStatusActive, store.enrollments[enrollmentKey{1, 20}])
}

func TestEnrollRejectsWithoutCompletion(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.prereqs[20] = []int64{10}
	svc := newEnrollmentServiceWith(store)

	outcome, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: 2, CourseID: 20})
	require.NoError(t, err)
	assert.False(t, outcome.Admitted)
	require.NotNil(t, outcome.UnmetPrerequisiteID)
	assert.Equal(t, int64(10), *outcome.UnmetPrerequisiteID)
	assert.Empty(t, store.enrollments)
}

func TestEnrollActivePrerequisiteIsNotCompletion(t *testing.T) {
	for _, status := range []models.EnrollmentStatus{models.EnrollmentStatusActive, models.EnrollmentStatusWaitList} {
		store := newFakeEnrollmentStore()
		store.prereqs[20] = []int64{10}
		store.enrollments[enrollmentKey{1, 10}] = status
		svc := newEnrollmentServiceWith(store)

		outcome, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 20})
		require.NoError(t, err)
		assert.False(t, outcome.Admitted, status)
		assert.Len(t, store.enrollments, 1)
	}
}

func TestEnrollReportsFirstUnmetPrerequisite(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.prereqs[30] = []int64{10, 20}
	store.enrollments[enrollmentKey{1, 10}] = models.EnrollmentStatusComplete
	svc := newEnrollmentServiceWith(store)

	outcome, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 30})
	require.NoError(t, err)
	assert.False(t, outcome.Admitted)
	assert.Equal(t, int64(20), *outcome.UnmetPrerequisiteID)
}

func TestEnrollWithoutPrerequisites(t *testing.T) {
	store := newFakeEnrollmentStore()
	svc := newEnrollmentServiceWith(store)

	outcome, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 10, Status: models.EnrollmentStatusComplete})
	require.NoError(t, err)
	assert.True(t, outcome.Admitted)
	assert.Equal(t, models.EnrollmentStatusComplete, store.enrollments[enrollmentKey{1, 10}])
}

func TestEnrollDuplicateIsConflict(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.enrollments[enrollmentKey{1, 10}] = models.EnrollmentStatusActive
	svc := newEnrollmentServiceWith(store)

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 10, Status: models.EnrollmentStatusWaitList})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, models.EnrollmentStatusActive, store.enrollments[enrollmentKey{1, 10}])
}

func TestEnrollUniqueViolationIsConflict(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.insertErr = fmt.Errorf("create enrollment: %w", &pq.Error{Code: "23505"})
	svc := newEnrollmentServiceWith(store)

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 10})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestEnrollConnectionLoss(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.insertErr = fmt.Errorf("create enrollment: %w", driver.ErrBadConn)
	svc := newEnrollmentServiceWith(store)

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 10})
	assert.True(t, errors.Is(err, appErrors.ErrStorageUnavailable))
	assert.Empty(t, store.enrollments)
}

func TestEnrollMissingStudentOrCourse(t *testing.T) {
	svc := newEnrollmentServiceWith(newFakeEnrollmentStore())

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: 99, CourseID: 10})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 99})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestEnrollRejectsUnknownStatus(t *testing.T) {
	store := newFakeEnrollmentStore()
	svc := newEnrollmentServiceWith(store)

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 10, Status: "Dropped"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, store.txCount)
}

func TestEnrollCyclicPrerequisitesTerminate(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.prereqs[10] = []int64{20}
	store.prereqs[20] = []int64{10}
	svc := newEnrollmentServiceWith(store)

	outcome, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 10})
	require.NoError(t, err)
	assert.False(t, outcome.Admitted)
	assert.Equal(t, int64(20), *outcome.UnmetPrerequisiteID)
}

func TestEnrollmentListsNeverNil(t *testing.T) {
	svc := newEnrollmentServiceWith(newFakeEnrollmentStore())

	list, err := svc.ListByStudent(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, list)

	roster, err := svc.Roster(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, roster)
}

func TestEnrollBatchContinuesPastFailures(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.prereqs[20] = []int64{10}
	svc := newEnrollmentServiceWith(store)

	results, err := svc.EnrollBatch(context.Background(), []EnrollRequest{
		{StudentID: 1, CourseID: 10, Status: models.EnrollmentStatusComplete},
		{StudentID: 1, CourseID: 10},
		{StudentID: 2, CourseID: 20},
		{StudentID: 1, CourseID: 20},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.True(t, results[0].Outcome.Admitted)
	assert.NotEmpty(t, results[1].Error)
	assert.False(t, results[2].Outcome.Admitted)
	assert.Equal(t, int64(10), *results[2].Outcome.UnmetPrerequisiteID)
	assert.True(t, results[3].Outcome.Admitted)
}

func TestEnrollBatchStopsWhenStorageUnavailable(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.insertErr = fmt.Errorf("create enrollment: %w", driver.ErrBadConn)
	svc := newEnrollmentServiceWith(store)

	results, err := svc.EnrollBatch(context.Background(), []EnrollRequest{
		{StudentID: 1, CourseID: 10},
		{StudentID: 2, CourseID: 10},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStorageUnavailable))
	assert.Len(t, results, 1)
}

func TestEnrollCancelledIsNotStorageLoss(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.insertErr = fmt.Errorf("create enrollment: %w", context.Canceled)
	svc := newEnrollmentServiceWith(store)

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: 1, CourseID: 10})
	assert.True(t, errors.Is(err, appErrors.ErrCancelled))
	assert.False(t, errors.Is(err, appErrors.ErrStorageUnavailable))
}

func TestEnrollBatchStopsWhenCancelled(t *testing.T) {
	svc := newEnrollmentServiceWith(newFakeEnrollmentStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := svc.EnrollBatch(ctx, []EnrollRequest{{StudentID: 1, CourseID: 10}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCancelled))
	assert.Empty(t, results)
}
