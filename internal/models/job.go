package models

// JobStatus represents the lifecycle state of a scrape job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal returns true if no further transition is possible from this status.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job is the backend's job snapshot. The backend is the sole writer; this
// side only reads it and requests transitions, so the displayed state is
// always the last fetched snapshot, never a locally predicted one.
type Job struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Status         JobStatus     `json:"status"`
	JobType        string        `json:"job_type"`
	TotalURLs      int           `json:"total_urls"`
	ProcessedURLs  int           `json:"processed_urls"`
	CompaniesFound int           `json:"companies_found"`
	ContactsFound  int           `json:"contacts_found"`
	ErrorsCount    int           `json:"errors_count"`
	Progress       float64       `json:"progress"`
	StartedAt      *UpstreamTime `json:"started_at"`
	CompletedAt    *UpstreamTime `json:"completed_at"`
	CreatedAt      UpstreamTime  `json:"created_at"`
}
