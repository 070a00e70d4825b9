package repository

import (
	"context"
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

func TestPrerequisiteRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPrerequisiteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO prerequisites (course_id, prerequisite_id) VALUES ($1, $2)")).
		WithArgs(int64(2), int64(1)).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Prerequisite{CourseID: 2, PrerequisiteID: 1})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
}

func TestPrerequisiteRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPrerequisiteRepository(db)

	rows := sqlmock.NewRows([]string{"course_id", "prerequisite_id", "created_at"}).
		AddRow(int64(5), int64(1), time.Now()).
		AddRow(int64(5), int64(3), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM prerequisites WHERE course_id = $1 ORDER BY prerequisite_id")).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	edges, err := repo.ListByCourse(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, int64(3), edges[1].PrerequisiteID)
	require.NoError(t, mock.ExpectationsWereMet())
}
