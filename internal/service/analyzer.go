package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/stackcity/stackcity/internal/domain"
	"github.com/stackcity/stackcity/internal/extractor"
	"github.com/stackcity/stackcity/internal/port"
	"github.com/stackcity/stackcity/internal/validator"
)

// Progress checkpoints for a running job. Monotonic within one run; the claim
// itself sets the initial 5%.
const (
	progressRepoLookup = 10
	progressCloned     = 20
	progressExtracted  = 30
	progressClassified = 50
	progressValidated  = 75
	progressPersisted  = 90
)

// AnalyzerService drives a single analysis job end to end:
// clone → extract → classify → validate → persist, with terminal state and
// temp-dir cleanup on every exit path.
type AnalyzerService struct {
	store        port.Store
	vcs          port.VCSProvider
	classifier   port.Classifier
	workDir      string
	cloneTimeout time.Duration
}

// NewAnalyzerService creates the job orchestrator. workDir is the base for
// per-job clone directories; empty means the system temp dir.
func NewAnalyzerService(store port.Store, vcs port.VCSProvider, classifier port.Classifier, workDir string, cloneTimeout time.Duration) *AnalyzerService {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &AnalyzerService{
		store:        store,
		vcs:          vcs,
		classifier:   classifier,
		workDir:      workDir,
		cloneTimeout: cloneTimeout,
	}
}

// RunJob executes one claimed (already running) job to its terminal state.
// The returned error is the failure cause, already recorded on the job row;
// callers only need it for logging.
func (s *AnalyzerService) RunJob(ctx context.Context, job *domain.AnalysisJob) error {
	log := slog.With("job_id", job.ID, "repo_id", job.RepoID)
	log.Info("processing analysis job")

	repo, err := s.store.GetRepoByID(ctx, job.RepoID)
	if err != nil {
		return s.fail(ctx, job.ID, fmt.Errorf("lookup repository: %w", err))
	}
	s.progress(ctx, job.ID, progressRepoLookup)

	dest := filepath.Join(s.workDir, fmt.Sprintf("stackcity-job-%d-%s", job.ID, uuid.NewString()))
	defer func() {
		if rmErr := os.RemoveAll(dest); rmErr != nil {
			log.Warn("removing clone directory", "path", dest, "error", rmErr)
		}
	}()

	cloneCtx := ctx
	if s.cloneTimeout > 0 {
		var cancel context.CancelFunc
		cloneCtx, cancel = context.WithTimeout(ctx, s.cloneTimeout)
		defer cancel()
	}
	if err := s.vcs.Clone(cloneCtx, repo.URL, repo.DefaultBranch, dest); err != nil {
		return s.fail(ctx, job.ID, fmt.Errorf("clone repository: %w", err))
	}
	s.progress(ctx, job.ID, progressCloned)

	pack, err := extractor.Extract(dest)
	if err != nil {
		return s.fail(ctx, job.ID, fmt.Errorf("extract evidence: %w", err))
	}
	if len(pack.FileContents) == 0 {
		return s.fail(ctx, job.ID, fmt.Errorf("extract evidence: %w", port.ErrNoEvidence))
	}
	log.Info("evidence extracted", "files", len(pack.FileContents), "dependencies", len(pack.AllDependencyNames))
	s.progress(ctx, job.ID, progressExtracted)

	raw, err := s.classifier.Classify(ctx, *pack)
	if err != nil {
		return s.fail(ctx, job.ID, fmt.Errorf("classify evidence: %w", err))
	}
	s.progress(ctx, job.ID, progressClassified)

	components := validator.Sanitize(raw, pack.FoundFiles)
	log.Info("classifier output validated", "raw", len(raw), "kept", len(components))
	s.progress(ctx, job.ID, progressValidated)

	if err := s.store.ReplaceComponents(ctx, repo.ID, components); err != nil {
		return s.fail(ctx, job.ID, fmt.Errorf("persist components: %w", err))
	}
	s.progress(ctx, job.ID, progressPersisted)

	if err := s.store.CompleteJob(ctx, job.ID); err != nil {
		return s.fail(ctx, job.ID, fmt.Errorf("mark job succeeded: %w", err))
	}
	log.Info("analysis job succeeded", "components", len(components))
	return nil
}

// fail records the terminal failed state. The store bounds the message.
func (s *AnalyzerService) fail(ctx context.Context, jobID int64, cause error) error {
	slog.Error("analysis job failed", "job_id", jobID, "error", cause)
	if err := s.store.FailJob(ctx, jobID, cause.Error()); err != nil {
		slog.Error("recording job failure", "job_id", jobID, "error", err)
	}
	return cause
}

func (s *AnalyzerService) progress(ctx context.Context, jobID int64, pct int) {
	if err := s.store.UpdateJobProgress(ctx, jobID, pct); err != nil {
		slog.Warn("updating job progress", "job_id", jobID, "progress", pct, "error", err)
	}
}
