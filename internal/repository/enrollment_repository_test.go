package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/pkg/database"
)

func TestEnrollmentRepositoryWithinTxCommitsInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE id = $1 FOR SHARE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT prerequisite_id FROM prerequisites WHERE course_id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"prerequisite_id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status = $3")).
		WithArgs(int64(1), int64(1), models.EnrollmentStatusComplete).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs(int64(1), int64(2), models.EnrollmentStatusActive, 100, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(q EnrollmentTxQueries) error {
		ok, err := q.StudentExists(context.Background(), 1)
		require.NoError(t, err)
		require.True(t, ok)

		ids, err := q.PrerequisiteIDs(context.Background(), 2)
		require.NoError(t, err)
		require.Equal(t, []int64{1}, ids)

		done, err := q.HasCompleted(context.Background(), 1, 1)
		require.NoError(t, err)
		require.True(t, done)

		return q.Insert(context.Background(), &models.Enrollment{
			StudentID: 1, CourseID: 2, Status: models.EnrollmentStatusActive, ClassSize: 100,
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryWithinTxRollsBackOnUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2")).
		WithArgs(int64(1), int64(2)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(q EnrollmentTxQueries) error {
		exists, err := q.EnrollmentExists(context.Background(), 1, 2)
		require.NoError(t, err)
		require.False(t, exists)
		return q.Insert(context.Background(), &models.Enrollment{StudentID: 1, CourseID: 2, Status: models.EnrollmentStatusActive, ClassSize: 100})
	})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRoster(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "student_number", "first_name", "last_name", "status"}).
		AddRow(int64(1), "S-1", "Ada", "Lovelace", "Active")
	mock.ExpectQuery(regexp.QuoteMeta("JOIN students s ON s.id = e.student_id")).
		WithArgs(int64(2)).
		WillReturnRows(rows)

	roster, err := repo.Roster(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, models.EnrollmentStatusActive, roster[0].Status)
}

func TestEnrollmentRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "course_id", "status", "class_size", "enrolled_at", "course_code", "course_title", "department"}).
		AddRow(int64(1), int64(2), "Complete", 100, time.Now(), "ACC", "201 Intro to Accounting", "Accounting")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.student_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	list, err := repo.ListByStudent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ACC", list[0].CourseCode)
	assert.Equal(t, models.EnrollmentStatusComplete, list[0].Status)
}
