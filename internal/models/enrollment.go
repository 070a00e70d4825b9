package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive   EnrollmentStatus = "Active"
	EnrollmentStatusWaitList EnrollmentStatus = "WaitList"
	EnrollmentStatusComplete EnrollmentStatus = "Complete"
)

// Valid reports whether s is one of the known statuses.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusActive, EnrollmentStatusWaitList, EnrollmentStatusComplete:
		return true
	}
	return false
}

// Enrollment links a student to a course. (StudentID, CourseID) is unique.
type Enrollment struct {
	StudentID  int64            `db:"student_id" json:"student_id"`
	CourseID   int64            `db:"course_id" json:"course_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	ClassSize  int              `db:"class_size" json:"class_size"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail enriches Enrollment with course info.
type EnrollmentDetail struct {
	Enrollment
	CourseCode  string  `db:"course_code" json:"course_code"`
	CourseTitle string  `db:"course_title" json:"course_title"`
	Department  *string `db:"department" json:"department"`
}

// RosterEntry is one student enrolled in a course.
type RosterEntry struct {
	StudentID     int64            `db:"student_id" json:"student_id"`
	StudentNumber string           `db:"student_number" json:"student_number"`
	FirstName     string           `db:"first_name" json:"first_name"`
	LastName      string           `db:"last_name" json:"last_name"`
	Status        EnrollmentStatus `db:"status" json:"status"`
}

// EnrollmentOutcome is the result of a gated enrollment request. A rejected
// request carries the first unmet prerequisite and left storage untouched.
type EnrollmentOutcome struct {
	Admitted            bool        `json:"admitted"`
	Enrollment          *Enrollment `json:"enrollment,omitempty"`
	UnmetPrerequisiteID *int64      `json:"unmet_prerequisite_id,omitempty"`
}
