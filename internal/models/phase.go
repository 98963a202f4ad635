package models

import "time"

// PhaseStatus represents the derived state of a pipeline phase
type PhaseStatus string

const (
	PhaseStatusRunning   PhaseStatus = "running"
	PhaseStatusCompleted PhaseStatus = "completed"
)

// Phase is a contiguous span of one pipeline stage, inferred from log text.
// Phases are derived on every poll and never persisted.
type Phase struct {
	Key       string      `json:"key"`
	Label     string      `json:"label"`
	StartTime time.Time   `json:"start_time"`
	EndTime   *time.Time  `json:"end_time,omitempty"`
	// DurationSeconds is set only when a closing entry carried a timestamp;
	// a forced terminal closure leaves it nil rather than fabricating one.
	DurationSeconds *float64    `json:"duration_seconds,omitempty"`
	Status          PhaseStatus `json:"status"`
	CompaniesFound  int         `json:"companies_found"`
	SummaryDetail   string      `json:"summary_detail,omitempty"`
}
