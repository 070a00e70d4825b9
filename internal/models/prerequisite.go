package models

import "time"

// Prerequisite is a directed edge: CourseID requires PrerequisiteID.
type Prerequisite struct {
	CourseID       int64     `db:"course_id" json:"course_id"`
	PrerequisiteID int64     `db:"prerequisite_id" json:"prerequisite_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
