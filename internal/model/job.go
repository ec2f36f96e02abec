package model

import "time"

// JobStatus indicates where an ingestion job is in its lifecycle.
type JobStatus string

// Job lifecycle states. Processing is the only non-terminal state; there is
// no transition out of Complete or Failed.
const (
	JobProcessing JobStatus = "PROCESSING"
	JobComplete   JobStatus = "COMPLETE"
	JobFailed     JobStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobComplete || s == JobFailed
}

// Job tracks one ingestion batch as a unit of asynchronous work, decoupled
// from the request that started it. Jobs live only in process memory; a
// restart loses them, which callers must treat the same as not found.
type Job struct {
	CreatedAt      time.Time
	FinishedAt     time.Time
	ID             string
	OwnerID        string
	Status         JobStatus
	Message        string
	Error          string
	Result         []CategorizationResult
	Progress       int
	Total          int
	DuplicateCount int
	SkippedCount   int
}
