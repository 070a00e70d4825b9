package models

import "time"

// Course is one catalog offering loaded by a catalog import.
type Course struct {
	ID          int64     `db:"id" json:"id"`
	Department  *string   `db:"department" json:"department"`
	CourseCode  string    `db:"course_code" json:"course_code" validate:"required"`
	Section     *string   `db:"section" json:"section,omitempty"`
	Title       string    `db:"course_title" json:"title"`
	Instructor  string    `db:"instructor" json:"instructor"`
	MeetingDays string    `db:"days" json:"meeting_days"`
	BeginTime   string    `db:"begin_time" json:"begin_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	Room        string    `db:"building_room" json:"room"`
	Credits     string    `db:"credits" json:"credits"`
	Year        int       `db:"year" json:"year"`
	Term        string    `db:"term" json:"term"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DepartmentName returns the department or an empty string for orphan courses.
func (c Course) DepartmentName() string {
	if c.Department == nil {
		return ""
	}
	return *c.Department
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Department string `json:"department,omitempty"`
	Instructor string `json:"instructor,omitempty"`
	Days       string `json:"days,omitempty"`
	// BeginAfter and EndBefore are 24-hour "15:04" bounds; courses without
	// an AM/PM time never match them.
	BeginAfter string `json:"begin_after,omitempty"`
	EndBefore  string `json:"end_before,omitempty"`
	Term       string `json:"term,omitempty"`
	Year       int    `json:"year,omitempty"`
	Page       int    `json:"page,omitempty"`
	PageSize   int    `json:"page_size,omitempty"`
}
