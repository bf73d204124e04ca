package port

import (
	"context"

	"github.com/stackcity/stackcity/internal/domain"
)

// RepoSummary is a repository joined with its most recent analysis job.
type RepoSummary struct {
	domain.Repository
	LatestJob *domain.AnalysisJob `json:"latest_job,omitempty"`
}

// Store abstracts the relational persistence layer. The connection is opened
// once at process start and closed at shutdown; every component takes the
// store as a constructor dependency.
type Store interface {
	// Migrate creates the schema if it does not exist yet.
	Migrate(ctx context.Context) error

	// UpsertRepo creates a repository keyed by URL, or bumps updated_at when
	// the URL is already registered.
	UpsertRepo(ctx context.Context, url, owner, name, defaultBranch string) (*domain.Repository, error)

	// GetRepoByID returns a repository or ErrRepoNotFound.
	GetRepoByID(ctx context.Context, id int64) (*domain.Repository, error)

	// ListRepos returns all repositories, newest first, each with its latest job.
	ListRepos(ctx context.Context) ([]RepoSummary, error)

	// CreateJob creates a pending job for a repository. Returns
	// ErrJobAlreadyQueued when the repository already has a pending or
	// running job.
	CreateJob(ctx context.Context, repoID int64) (*domain.AnalysisJob, error)

	// GetJobByID returns a job or ErrJobNotFound.
	GetJobByID(ctx context.Context, id int64) (*domain.AnalysisJob, error)

	// ListJobsByRepo returns a repository's job history, newest first.
	ListJobsByRepo(ctx context.Context, repoID int64) ([]domain.AnalysisJob, error)

	// ClaimNextJob atomically transitions the oldest pending job to running
	// and returns it, or ErrNoPendingJobs. The claim is safe under multiple
	// concurrent workers.
	ClaimNextJob(ctx context.Context) (*domain.AnalysisJob, error)

	// UpdateJobProgress sets a running job's progress percentage.
	UpdateJobProgress(ctx context.Context, jobID int64, progress int) error

	// CompleteJob marks a job succeeded with progress 100 and sets finished_at.
	CompleteJob(ctx context.Context, jobID int64) error

	// FailJob marks a job failed with a bounded error message and sets finished_at.
	FailJob(ctx context.Context, jobID int64, message string) error

	// ReplaceComponents atomically replaces a repository's component set
	// (delete all, insert the given set with their evidence rows).
	ReplaceComponents(ctx context.Context, repoID int64, components []domain.DetectedComponent) error

	// ListComponentsByRepo returns a repository's components with their
	// evidence, ordered by confidence then recency.
	ListComponentsByRepo(ctx context.Context, repoID int64) ([]domain.DetectedComponent, error)

	// UpsertTechDocs bulk-inserts or updates tech docs by name in one transaction.
	UpsertTechDocs(ctx context.Context, docs []domain.TechDoc) error

	// MatchTechDoc returns the best fuzzy name match for a component name,
	// or nil when nothing matches.
	MatchTechDoc(ctx context.Context, componentName string) (*domain.TechDoc, error)

	Close() error
}
