package job

import "time"

// Status is the lifecycle state of a job posting.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReview     Status = "REVIEW"
	StatusCompleted  Status = "COMPLETED"
)

// Job mirrors the jobs table.
type Job struct {
	ID          string
	EmployerID  string
	Title       string
	Description string
	Budget      string
	Category    string
	Duration    string
	Status      Status
	StartedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Fields are the employer-editable attributes of a job.
type Fields struct {
	Title       string
	Description string
	Budget      string
	Category    string
	Duration    string
}
