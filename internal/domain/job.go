package domain

import "time"

// Job status constants. succeeded and failed are terminal.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// AnalysisJob is one asynchronous analysis run for a repository.
// ErrorMessage is set if and only if the job failed; FinishedAt is set
// exactly once, on the terminal transition.
type AnalysisJob struct {
	ID           int64      `json:"id"            db:"id"`
	RepoID       int64      `json:"repo_id"       db:"repo_id"`
	Status       string     `json:"status"        db:"status"`
	Progress     int        `json:"progress"      db:"progress"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time  `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"    db:"updated_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"   db:"finished_at"`
}

// Terminal reports whether the job reached a final state.
func (j *AnalysisJob) Terminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}
