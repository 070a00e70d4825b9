package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registry-api/internal/models"
)

// CourseRepository persists catalog offerings.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, department, course_code, section, course_title, instructor, days, begin_time, end_time, building_room, COALESCE(credits::text, '') AS credits, year, term, created_at`

// clockOf converts a stored "h:mm AM" column to a time, or NULL when the
// value is blank, TBA or a bare 12-hour time.
func clockOf(column string) string {
	return fmt.Sprintf(`(CASE WHEN %[1]s ~* '^(0?[1-9]|1[0-2]):[0-5][0-9] ?[AP]M$' THEN to_timestamp(UPPER(REPLACE(%[1]s, ' ', '')), 'HH12:MIAM')::time END)`, column)
}

// Create inserts one course and fills its generated id and timestamp.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	const query = `INSERT INTO courses (department, course_code, section, course_title, instructor, days, begin_time, end_time, building_room, credits, year, term)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, '')::numeric, $11, $12)
        RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query,
		course.Department,
		course.CourseCode,
		course.Section,
		course.Title,
		course.Instructor,
		course.MeetingDays,
		course.BeginTime,
		course.EndTime,
		course.Room,
		course.Credits,
		course.Year,
		course.Term,
	)
	if err := row.Scan(&course.ID, &course.CreatedAt); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindByID returns a course or sql.ErrNoRows.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Exists reports whether a course id is present.
func (r *CourseRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM courses WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course: %w", err)
	}
	return true, nil
}

// List returns courses matching filter ordered by department then code.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Instructor != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(instructor) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Instructor)+"%")
	}
	if filter.Days != "" {
		conditions = append(conditions, fmt.Sprintf("days = $%d", len(args)+1))
		args = append(args, filter.Days)
	}
	if filter.BeginAfter != "" {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d::time", clockOf("begin_time"), len(args)+1))
		args = append(args, filter.BeginAfter)
	}
	if filter.EndBefore != "" {
		conditions = append(conditions, fmt.Sprintf("%s <= $%d::time", clockOf("end_time"), len(args)+1))
		args = append(args, filter.EndBefore)
	}
	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM courses%s ORDER BY department NULLS FIRST, course_code, id LIMIT %d OFFSET %d`,
		courseColumns, clause, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}
