package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stackcity/stackcity/internal/domain"
	"github.com/stackcity/stackcity/internal/port"
)

// memStore is an in-memory port.Store for orchestrator and registry tests.
type memStore struct {
	mu          sync.Mutex
	repos       map[int64]*domain.Repository
	jobs        map[int64]*domain.AnalysisJob
	components  map[int64][]domain.DetectedComponent
	docs        []domain.TechDoc
	nextID      int64
	progressLog map[int64][]int
	replaceErr  error
	docCalls    int
}

func newMemStore() *memStore {
	return &memStore{
		repos:       map[int64]*domain.Repository{},
		jobs:        map[int64]*domain.AnalysisJob{},
		components:  map[int64][]domain.DetectedComponent{},
		progressLog: map[int64][]int{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

func (m *memStore) UpsertRepo(_ context.Context, url, owner, name, defaultBranch string) (*domain.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.repos {
		if r.URL == url {
			r.UpdatedAt = time.Now()
			cp := *r
			return &cp, nil
		}
	}
	r := &domain.Repository{
		ID: m.id(), URL: url, Owner: owner, Name: name, DefaultBranch: defaultBranch,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.repos[r.ID] = r
	cp := *r
	return &cp, nil
}

func (m *memStore) GetRepoByID(_ context.Context, id int64) (*domain.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.repos[id]
	if !ok {
		return nil, port.ErrRepoNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) ListRepos(context.Context) ([]port.RepoSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []port.RepoSummary
	for _, r := range m.repos {
		out = append(out, port.RepoSummary{Repository: *r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) CreateJob(_ context.Context, repoID int64) (*domain.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.RepoID == repoID && (j.Status == domain.JobStatusPending || j.Status == domain.JobStatusRunning) {
			return nil, port.ErrJobAlreadyQueued
		}
	}
	j := &domain.AnalysisJob{
		ID: m.id(), RepoID: repoID, Status: domain.JobStatusPending,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.jobs[j.ID] = j
	cp := *j
	return &cp, nil
}

func (m *memStore) GetJobByID(_ context.Context, id int64) (*domain.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, port.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memStore) ListJobsByRepo(_ context.Context, repoID int64) ([]domain.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AnalysisJob
	for _, j := range m.jobs {
		if j.RepoID == repoID {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ClaimNextJob(context.Context) (*domain.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *domain.AnalysisJob
	for _, j := range m.jobs {
		if j.Status != domain.JobStatusPending {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, port.ErrNoPendingJobs
	}
	oldest.Status = domain.JobStatusRunning
	oldest.Progress = 5
	oldest.ErrorMessage = ""
	oldest.UpdatedAt = time.Now()
	cp := *oldest
	return &cp, nil
}

func (m *memStore) UpdateJobProgress(_ context.Context, jobID int64, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok {
		j.Progress = progress
		j.UpdatedAt = time.Now()
		m.progressLog[jobID] = append(m.progressLog[jobID], progress)
	}
	return nil
}

func (m *memStore) CompleteJob(_ context.Context, jobID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return port.ErrJobNotFound
	}
	now := time.Now()
	j.Status = domain.JobStatusSucceeded
	j.Progress = 100
	j.FinishedAt = &now
	j.UpdatedAt = now
	return nil
}

func (m *memStore) FailJob(_ context.Context, jobID int64, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return port.ErrJobNotFound
	}
	if len(message) > 5000 {
		message = message[:5000]
	}
	now := time.Now()
	j.Status = domain.JobStatusFailed
	j.ErrorMessage = message
	j.FinishedAt = &now
	j.UpdatedAt = now
	return nil
}

func (m *memStore) ReplaceComponents(_ context.Context, repoID int64, components []domain.DetectedComponent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	stored := make([]domain.DetectedComponent, len(components))
	for i, c := range components {
		c.ID = m.id()
		c.RepoID = repoID
		stored[i] = c
	}
	m.components[repoID] = stored
	return nil
}

func (m *memStore) ListComponentsByRepo(_ context.Context, repoID int64) ([]domain.DetectedComponent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DetectedComponent(nil), m.components[repoID]...), nil
}

func (m *memStore) UpsertTechDocs(_ context.Context, docs []domain.TechDoc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, docs...)
	return nil
}

func (m *memStore) MatchTechDoc(_ context.Context, componentName string) (*domain.TechDoc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docCalls++
	lower := strings.ToLower(strings.TrimSpace(componentName))
	for i := range m.docs {
		if strings.ToLower(m.docs[i].Name) == lower {
			cp := m.docs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

// fakeVCS simulates cloning by materializing files into dest.
type fakeVCS struct {
	files    map[string]string
	err      error
	lastDest string
}

func (f *fakeVCS) Clone(_ context.Context, _, _, dest string) error {
	f.lastDest = dest
	if f.err != nil {
		return f.err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for rel, content := range f.files {
		abs := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// fakeClassifier returns a fixed component list or an error.
type fakeClassifier struct {
	components []port.RawComponent
	err        error
	lastPack   port.EvidencePack
}

func (f *fakeClassifier) Classify(_ context.Context, pack port.EvidencePack) ([]port.RawComponent, error) {
	f.lastPack = pack
	if f.err != nil {
		return nil, f.err
	}
	return f.components, nil
}
