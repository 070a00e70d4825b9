package models

import "time"

// Student is a registered learner. StudentNumber is the natural key.
type Student struct {
	ID            int64     `db:"id" json:"id"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	ClassYear     *int      `db:"class_year" json:"class_year,omitempty"`
	Major1        *string   `db:"major1" json:"major1,omitempty"`
	Major2        *string   `db:"major2" json:"major2,omitempty"`
	Minor1        *string   `db:"minor1" json:"minor1,omitempty"`
	Advisor       *string   `db:"advisor" json:"advisor,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
