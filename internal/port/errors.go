package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrRepoNotFound     = errors.New("repository not found")
	ErrJobNotFound      = errors.New("analysis job not found")
	ErrNoPendingJobs    = errors.New("no pending jobs")
	ErrJobAlreadyQueued = errors.New("analysis already queued for repository")
	ErrNoEvidence       = errors.New("no recognizable manifest or config files found")
)
