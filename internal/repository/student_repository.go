package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registry-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, student_number, first_name, last_name, class_year, major1, major2, minor1, advisor, created_at`

// FindByID returns a student or sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByNumber looks a student up by natural key.
func (r *StudentRepository) FindByNumber(ctx context.Context, number string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE student_number = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, number); err != nil {
		return nil, err
	}
	return &student, nil
}

// CreateIfAbsent inserts the student unless the student number already exists.
// created reports whether a row was written; student is filled from storage either way.
func (r *StudentRepository) CreateIfAbsent(ctx context.Context, student *models.Student) (bool, error) {
	const insertQuery = `INSERT INTO students (student_number, first_name, last_name, class_year, major1, major2, minor1, advisor)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (student_number) DO NOTHING
        RETURNING id, created_at`
	rows, err := r.db.QueryxContext(ctx, insertQuery,
		student.StudentNumber,
		student.FirstName,
		student.LastName,
		student.ClassYear,
		student.Major1,
		student.Major2,
		student.Minor1,
		student.Advisor,
	)
	if err != nil {
		return false, fmt.Errorf("create student: %w", err)
	}
	created := false
	if rows.Next() {
		if err := rows.Scan(&student.ID, &student.CreatedAt); err != nil {
			rows.Close()
			return false, fmt.Errorf("scan student id: %w", err)
		}
		created = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("create student: %w", err)
	}
	if created {
		return true, nil
	}

	existing, err := r.FindByNumber(ctx, student.StudentNumber)
	if err != nil {
		return false, fmt.Errorf("load existing student: %w", err)
	}
	*student = *existing
	return false, nil
}
