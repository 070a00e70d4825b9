package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registry-api/internal/models"
)

// PrerequisiteRepository stores directed course requirement edges.
type PrerequisiteRepository struct {
	db *sqlx.DB
}

// NewPrerequisiteRepository constructs the repository.
func NewPrerequisiteRepository(db *sqlx.DB) *PrerequisiteRepository {
	return &PrerequisiteRepository{db: db}
}

// Create inserts an edge. Duplicate edges surface as a unique violation.
func (r *PrerequisiteRepository) Create(ctx context.Context, edge *models.Prerequisite) error {
	const query = `INSERT INTO prerequisites (course_id, prerequisite_id) VALUES ($1, $2) RETURNING created_at`
	if err := r.db.GetContext(ctx, &edge.CreatedAt, query, edge.CourseID, edge.PrerequisiteID); err != nil {
		return fmt.Errorf("create prerequisite: %w", err)
	}
	return nil
}

// Exists reports whether the edge is already stored.
func (r *PrerequisiteRepository) Exists(ctx context.Context, courseID, prerequisiteID int64) (bool, error) {
	var exists int
	const query = `SELECT 1 FROM prerequisites WHERE course_id = $1 AND prerequisite_id = $2`
	if err := r.db.GetContext(ctx, &exists, query, courseID, prerequisiteID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check prerequisite: %w", err)
	}
	return true, nil
}

// ListByCourse returns the direct prerequisites of a course ordered by prerequisite id.
func (r *PrerequisiteRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Prerequisite, error) {
	const query = `SELECT course_id, prerequisite_id, created_at FROM prerequisites WHERE course_id = $1 ORDER BY prerequisite_id`
	var edges []models.Prerequisite
	if err := r.db.SelectContext(ctx, &edges, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return edges, nil
}
