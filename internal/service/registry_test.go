package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackcity/stackcity/internal/domain"
	"github.com/stackcity/stackcity/internal/port"
)

func TestRegister_CreatesRepoAndPendingJob(t *testing.T) {
	st := newMemStore()
	registry := NewRegistryService(st)

	repo, job, err := registry.Register(context.Background(), RegistrationInput{
		URL: "https://github.com/acme/widgets", Owner: "acme", Name: "widgets",
	})
	require.NoError(t, err)
	assert.Equal(t, "main", repo.DefaultBranch, "branch defaults to main")
	require.NotNil(t, job)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Nil(t, job.FinishedAt)
}

func TestRegister_SameURLUpserts(t *testing.T) {
	st := newMemStore()
	registry := NewRegistryService(st)
	ctx := context.Background()

	in := RegistrationInput{URL: "https://github.com/acme/widgets", Owner: "acme", Name: "widgets"}
	first, firstJob, err := registry.Register(ctx, in)
	require.NoError(t, err)

	// Finish the first job so a second one is allowed.
	require.NoError(t, st.FailJob(ctx, firstJob.ID, "boom"))

	second, secondJob, err := registry.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-registration must not duplicate the repo")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt) || second.UpdatedAt.Equal(first.UpdatedAt))
	assert.NotEqual(t, firstJob.ID, secondJob.ID)
}

func TestRegister_RejectsDuplicateActiveJob(t *testing.T) {
	st := newMemStore()
	registry := NewRegistryService(st)
	ctx := context.Background()

	in := RegistrationInput{URL: "https://github.com/acme/widgets", Owner: "acme", Name: "widgets"}
	repo, _, err := registry.Register(ctx, in)
	require.NoError(t, err)

	again, job, err := registry.Register(ctx, in)
	require.ErrorIs(t, err, port.ErrJobAlreadyQueued)
	assert.Nil(t, job)
	require.NotNil(t, again, "repo is still returned so callers can report its id")
	assert.Equal(t, repo.ID, again.ID)
}

func TestRepoDetail_JoinsDocsAndCachesLookups(t *testing.T) {
	st := newMemStore()
	registry := NewRegistryService(st)
	ctx := context.Background()

	repo, _, err := registry.Register(ctx, RegistrationInput{
		URL: "https://github.com/acme/widgets", Owner: "acme", Name: "widgets",
	})
	require.NoError(t, err)

	require.NoError(t, registry.ImportTechDocs(ctx, []domain.TechDoc{
		{Name: "react", Description: "UI library", DocumentationURL: "https://react.dev"},
	}))
	require.NoError(t, st.ReplaceComponents(ctx, repo.ID, []domain.DetectedComponent{
		{Name: "react", Type: domain.ComponentTypeLibrary, Confidence: 0.98,
			Evidence: []domain.Evidence{{FilePath: "package.json", Snippet: "react"}}},
		{Name: "unknown-thing", Type: domain.ComponentTypeOther, Confidence: 0.2,
			Evidence: []domain.Evidence{{FilePath: "package.json", Snippet: "?"}}},
	}))

	detail, err := registry.RepoDetail(ctx, repo.ID)
	require.NoError(t, err)
	require.Len(t, detail.Components, 2)
	assert.Equal(t, "UI library", detail.Components[0].DocDescription)
	assert.Equal(t, "https://react.dev", detail.Components[0].DocURL)
	assert.Empty(t, detail.Components[1].DocDescription)
	require.Len(t, detail.AnalysisJobs, 1)

	// Second read hits the cache instead of the store.
	calls := st.docCalls
	_, err = registry.RepoDetail(ctx, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, calls, st.docCalls)
}

func TestRepoDetail_NotFound(t *testing.T) {
	registry := NewRegistryService(newMemStore())
	_, err := registry.RepoDetail(context.Background(), 404)
	assert.ErrorIs(t, err, port.ErrRepoNotFound)
}

func TestJobStatus(t *testing.T) {
	st := newMemStore()
	registry := NewRegistryService(st)
	ctx := context.Background()

	_, job, err := registry.Register(ctx, RegistrationInput{
		URL: "https://github.com/acme/widgets", Owner: "acme", Name: "widgets",
	})
	require.NoError(t, err)

	got, err := registry.JobStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)

	_, err = registry.JobStatus(ctx, 404)
	assert.ErrorIs(t, err, port.ErrJobNotFound)
}
