package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/pkg/database"
)

// EnrollmentTxQueries are the reads and the single write an enrollment
// decision needs. All of them run on the same transaction.
type EnrollmentTxQueries interface {
	StudentExists(ctx context.Context, studentID int64) (bool, error)
	CourseExists(ctx context.Context, courseID int64) (bool, error)
	PrerequisiteIDs(ctx context.Context, courseID int64) ([]int64, error)
	HasCompleted(ctx context.Context, studentID, courseID int64) (bool, error)
	EnrollmentExists(ctx context.Context, studentID, courseID int64) (bool, error)
	Insert(ctx context.Context, enrollment *models.Enrollment) error
}

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// WithinTx runs fn on a read committed transaction. fn returning nil commits.
func (r *EnrollmentRepository) WithinTx(ctx context.Context, fn func(q EnrollmentTxQueries) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	return database.WithTx(ctx, r.db, opts, func(tx *sqlx.Tx) error {
		return fn(&enrollmentTx{tx: tx})
	})
}

// ListByStudent returns a student's enrollments with course context.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.student_id, e.course_id, e.status, e.class_size, e.enrolled_at,
        c.course_code, c.course_title, c.department
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1
        ORDER BY e.enrolled_at, e.course_id`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// Roster returns the students enrolled in a course.
func (r *EnrollmentRepository) Roster(ctx context.Context, courseID int64) ([]models.RosterEntry, error) {
	const query = `SELECT s.id AS student_id, s.student_number, s.first_name, s.last_name, e.status
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE e.course_id = $1
        ORDER BY s.last_name, s.first_name, s.id`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, courseID); err != nil {
		return nil, fmt.Errorf("list course roster: %w", err)
	}
	return roster, nil
}

type enrollmentTx struct {
	tx *sqlx.Tx
}

func (q *enrollmentTx) exists(ctx context.Context, label, query string, args ...interface{}) (bool, error) {
	var one int
	if err := q.tx.GetContext(ctx, &one, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s: %w", label, err)
	}
	return true, nil
}

func (q *enrollmentTx) StudentExists(ctx context.Context, studentID int64) (bool, error) {
	return q.exists(ctx, "student", `SELECT 1 FROM students WHERE id = $1 FOR SHARE`, studentID)
}

func (q *enrollmentTx) CourseExists(ctx context.Context, courseID int64) (bool, error) {
	return q.exists(ctx, "course", `SELECT 1 FROM courses WHERE id = $1 FOR SHARE`, courseID)
}

func (q *enrollmentTx) PrerequisiteIDs(ctx context.Context, courseID int64) ([]int64, error) {
	const query = `SELECT prerequisite_id FROM prerequisites WHERE course_id = $1 ORDER BY prerequisite_id`
	var ids []int64
	if err := q.tx.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisite ids: %w", err)
	}
	return ids, nil
}

func (q *enrollmentTx) HasCompleted(ctx context.Context, studentID, courseID int64) (bool, error) {
	return q.exists(ctx, "completion",
		`SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status = $3`,
		studentID, courseID, models.EnrollmentStatusComplete)
}

func (q *enrollmentTx) EnrollmentExists(ctx context.Context, studentID, courseID int64) (bool, error) {
	return q.exists(ctx, "enrollment",
		`SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2`,
		studentID, courseID)
}

func (q *enrollmentTx) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (student_id, course_id, status, class_size, enrolled_at)
        VALUES (:student_id, :course_id, :status, :class_size, :enrolled_at)`
	if _, err := q.tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}
