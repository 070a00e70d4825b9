package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registry-api/internal/models"
)

var studentRowColumns = []string{"id", "student_number", "first_name", "last_name", "class_year", "major1", "major2", "minor1", "advisor", "created_at"}

func TestStudentRepositoryCreateIfAbsentInserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO students")).
		WithArgs("S-100", "Ada", "Lovelace", nil, nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), time.Now()))

	student := &models.Student{StudentNumber: "S-100", FirstName: "Ada", LastName: "Lovelace"}
	created, err := repo.CreateIfAbsent(context.Background(), student)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(3), student.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateIfAbsentReturnsExisting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_number) DO NOTHING")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE student_number = $1")).
		WithArgs("S-100").
		WillReturnRows(sqlmock.NewRows(studentRowColumns).
			AddRow(int64(3), "S-100", "Ada", "Lovelace", 2024, "Mathematics", nil, nil, nil, time.Now()))

	student := &models.Student{StudentNumber: "S-100", FirstName: "Augusta", LastName: "King"}
	created, err := repo.CreateIfAbsent(context.Background(), student)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(3), student.ID)
	assert.Equal(t, "Ada", student.FirstName)
	require.NotNil(t, student.Major1)
	assert.Equal(t, "Mathematics", *student.Major1)
	require.NoError(t, mock.ExpectationsWereMet())
}
