package models

import "time"

// ImportIssueKind separates rows that were dropped from rows kept with a warning.
type ImportIssueKind string

const (
	ImportIssueSkipped      ImportIssueKind = "skipped"
	ImportIssueStorageError ImportIssueKind = "storage_error"
	ImportIssueWarning      ImportIssueKind = "warning"
)

// ImportIssue locates one problem in a catalog file.
type ImportIssue struct {
	Line   int             `json:"line"`
	Kind   ImportIssueKind `json:"kind"`
	Reason string          `json:"reason"`
	Detail string          `json:"detail,omitempty"`
}

// ImportReport summarises one catalog import run.
type ImportReport struct {
	Year            int            `json:"year"`
	Term            string         `json:"term"`
	RowsRead        int            `json:"rows_read"`
	Headings        int            `json:"headings"`
	CoursesEmitted  int            `json:"courses_emitted"`
	CoursesInserted int            `json:"courses_inserted"`
	Skipped         map[string]int `json:"skipped"`
	StorageFailures int            `json:"storage_failures"`
	Warnings        int            `json:"warnings"`
	Aborted         bool           `json:"aborted"`
	Cancelled       bool           `json:"cancelled"`
	Issues          []ImportIssue  `json:"issues"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
}

// SkippedTotal sums skipped rows across every reason.
func (r *ImportReport) SkippedTotal() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}

// ImportJobStatus is the lifecycle of an asynchronous import.
type ImportJobStatus string

const (
	ImportJobQueued    ImportJobStatus = "QUEUED"
	ImportJobRunning   ImportJobStatus = "RUNNING"
	ImportJobSucceeded ImportJobStatus = "SUCCEEDED"
	ImportJobFailed    ImportJobStatus = "FAILED"
	ImportJobCancelled ImportJobStatus = "CANCELLED"
)

// ImportJob tracks an uploaded catalog file through the import queue.
type ImportJob struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	StoredAs    string          `json:"-"`
	Year        int             `json:"year"`
	Term        string          `json:"term"`
	Status      ImportJobStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	Report      *ImportReport   `json:"report,omitempty"`
	RequestedBy string          `json:"requested_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}
