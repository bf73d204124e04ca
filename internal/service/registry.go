package service

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/stackcity/stackcity/internal/domain"
	"github.com/stackcity/stackcity/internal/port"
)

const docCacheSize = 512

// RegistryService owns repository registration and the read paths consumed
// by polling clients. Tech-doc fuzzy matches are cached because the same
// component names recur across repositories.
type RegistryService struct {
	store    port.Store
	docCache *lru.Cache[string, *domain.TechDoc]
}

// NewRegistryService creates the registry.
func NewRegistryService(store port.Store) *RegistryService {
	cache, _ := lru.New[string, *domain.TechDoc](docCacheSize)
	return &RegistryService{store: store, docCache: cache}
}

// RegistrationInput is the register-repository request.
type RegistrationInput struct {
	URL           string `json:"url"`
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	DefaultBranch string `json:"default_branch"`
}

// Register upserts the repository and queues a pending analysis job.
// Returns port.ErrJobAlreadyQueued (with the upserted repo) when the repo
// already has an active job.
func (s *RegistryService) Register(ctx context.Context, in RegistrationInput) (*domain.Repository, *domain.AnalysisJob, error) {
	branch := in.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	repo, err := s.store.UpsertRepo(ctx, in.URL, in.Owner, in.Name, branch)
	if err != nil {
		return nil, nil, fmt.Errorf("register repository: %w", err)
	}

	job, err := s.store.CreateJob(ctx, repo.ID)
	if err != nil {
		return repo, nil, err
	}
	return repo, job, nil
}

// ComponentWithDoc is a detected component joined to its best tech-doc match.
type ComponentWithDoc struct {
	domain.DetectedComponent
	DocDescription string `json:"doc_description,omitempty"`
	DocURL         string `json:"doc_url,omitempty"`
}

// RepoDetail is the repository read model: the record, its current component
// set, and its job history newest-first.
type RepoDetail struct {
	Repo         *domain.Repository   `json:"repo"`
	Components   []ComponentWithDoc   `json:"components"`
	AnalysisJobs []domain.AnalysisJob `json:"analysisJobs"`
}

// RepoDetail assembles the detail view for one repository.
func (s *RegistryService) RepoDetail(ctx context.Context, repoID int64) (*RepoDetail, error) {
	repo, err := s.store.GetRepoByID(ctx, repoID)
	if err != nil {
		return nil, err
	}

	components, err := s.store.ListComponentsByRepo(ctx, repoID)
	if err != nil {
		return nil, fmt.Errorf("repo detail: %w", err)
	}

	withDocs := make([]ComponentWithDoc, 0, len(components))
	for _, comp := range components {
		cwd := ComponentWithDoc{DetectedComponent: comp}
		if doc := s.lookupDoc(ctx, comp.Name); doc != nil {
			cwd.DocDescription = doc.Description
			cwd.DocURL = doc.DocumentationURL
		}
		withDocs = append(withDocs, cwd)
	}

	jobs, err := s.store.ListJobsByRepo(ctx, repoID)
	if err != nil {
		return nil, fmt.Errorf("repo detail: %w", err)
	}

	return &RepoDetail{Repo: repo, Components: withDocs, AnalysisJobs: jobs}, nil
}

// ListRepos returns all repositories with their latest job.
func (s *RegistryService) ListRepos(ctx context.Context) ([]port.RepoSummary, error) {
	return s.store.ListRepos(ctx)
}

// JobStatus returns one job for polling clients.
func (s *RegistryService) JobStatus(ctx context.Context, jobID int64) (*domain.AnalysisJob, error) {
	return s.store.GetJobByID(ctx, jobID)
}

// ImportTechDocs bulk-upserts docs and drops stale cache entries.
func (s *RegistryService) ImportTechDocs(ctx context.Context, docs []domain.TechDoc) error {
	if err := s.store.UpsertTechDocs(ctx, docs); err != nil {
		return fmt.Errorf("import tech docs: %w", err)
	}
	s.docCache.Purge()
	return nil
}

// lookupDoc caches both hits and misses; a nil entry means "known no match".
func (s *RegistryService) lookupDoc(ctx context.Context, name string) *domain.TechDoc {
	if doc, ok := s.docCache.Get(name); ok {
		return doc
	}
	doc, err := s.store.MatchTechDoc(ctx, name)
	if err != nil {
		return nil
	}
	s.docCache.Add(name, doc)
	return doc
}
