package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stackcity/stackcity/internal/domain"
	"github.com/stackcity/stackcity/internal/port"
)

const (
	maxErrorMessageLen = 5000
	maxSnippetLen      = 10000
)

// PostgresStore implements port.Store on top of database/sql + lib/pq.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a pooled connection and verifies it.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS repos (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			default_branch TEXT NOT NULL DEFAULT 'main',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS analysis_jobs (
			id BIGSERIAL PRIMARY KEY,
			repo_id BIGINT NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'pending',
			progress INT NOT NULL DEFAULT 0,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_jobs_status_created
			ON analysis_jobs (status, created_at)`,
		`CREATE TABLE IF NOT EXISTS detected_components (
			id BIGSERIAL PRIMARY KEY,
			repo_id BIGINT NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			version TEXT,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detected_components_repo
			ON detected_components (repo_id)`,
		`CREATE TABLE IF NOT EXISTS evidence (
			id BIGSERIAL PRIMARY KEY,
			component_id BIGINT NOT NULL REFERENCES detected_components(id) ON DELETE CASCADE,
			file_path TEXT NOT NULL,
			snippet TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS tech_docs (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			documentation_url TEXT,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// --- Repos ---

// UpsertRepo inserts a repository or bumps updated_at when the URL exists.
func (s *PostgresStore) UpsertRepo(ctx context.Context, url, owner, name, defaultBranch string) (*domain.Repository, error) {
	query := `
		INSERT INTO repos (url, owner, name, default_branch)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (url) DO UPDATE SET updated_at = NOW()
		RETURNING id, url, owner, name, default_branch, created_at, updated_at`

	var r domain.Repository
	err := s.db.QueryRowContext(ctx, query, url, owner, name, defaultBranch).Scan(
		&r.ID, &r.URL, &r.Owner, &r.Name, &r.DefaultBranch, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert repo: %w", err)
	}
	return &r, nil
}

// GetRepoByID returns a repository by ID.
func (s *PostgresStore) GetRepoByID(ctx context.Context, id int64) (*domain.Repository, error) {
	query := `SELECT id, url, owner, name, default_branch, created_at, updated_at
	          FROM repos WHERE id = $1`

	var r domain.Repository
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.URL, &r.Owner, &r.Name, &r.DefaultBranch, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrRepoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get repo: %w", err)
	}
	return &r, nil
}

// ListRepos returns all repositories, newest first, each with its most
// recent analysis job.
func (s *PostgresStore) ListRepos(ctx context.Context) ([]port.RepoSummary, error) {
	query := `
		SELECT
			r.id, r.url, r.owner, r.name, r.default_branch, r.created_at, r.updated_at,
			aj.id, aj.status, aj.progress, COALESCE(aj.error_message, ''),
			aj.created_at, aj.updated_at, aj.finished_at
		FROM repos r
		LEFT JOIN LATERAL (
			SELECT id, status, progress, error_message, created_at, updated_at, finished_at
			FROM analysis_jobs
			WHERE repo_id = r.id
			ORDER BY created_at DESC
			LIMIT 1
		) aj ON true
		ORDER BY r.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	defer rows.Close()

	var repos []port.RepoSummary
	for rows.Next() {
		var rs port.RepoSummary
		var jobID sql.NullInt64
		var jobStatus sql.NullString
		var jobProgress sql.NullInt64
		var jobError sql.NullString
		var jobCreated, jobUpdated, jobFinished sql.NullTime

		if err := rows.Scan(
			&rs.ID, &rs.URL, &rs.Owner, &rs.Name, &rs.DefaultBranch, &rs.CreatedAt, &rs.UpdatedAt,
			&jobID, &jobStatus, &jobProgress, &jobError, &jobCreated, &jobUpdated, &jobFinished,
		); err != nil {
			return nil, fmt.Errorf("scan repo: %w", err)
		}

		if jobID.Valid {
			job := domain.AnalysisJob{
				ID:           jobID.Int64,
				RepoID:       rs.ID,
				Status:       jobStatus.String,
				Progress:     int(jobProgress.Int64),
				ErrorMessage: jobError.String,
				CreatedAt:    jobCreated.Time,
				UpdatedAt:    jobUpdated.Time,
			}
			if jobFinished.Valid {
				t := jobFinished.Time
				job.FinishedAt = &t
			}
			rs.LatestJob = &job
		}
		repos = append(repos, rs)
	}
	return repos, rows.Err()
}

// --- Jobs ---

const jobColumns = `id, repo_id, status, progress, COALESCE(error_message, ''), created_at, updated_at, finished_at`

func scanJob(row interface{ Scan(...any) error }) (*domain.AnalysisJob, error) {
	var j domain.AnalysisJob
	var finished sql.NullTime
	if err := row.Scan(
		&j.ID, &j.RepoID, &j.Status, &j.Progress, &j.ErrorMessage,
		&j.CreatedAt, &j.UpdatedAt, &finished,
	); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		j.FinishedAt = &t
	}
	return &j, nil
}

// CreateJob creates a pending job unless the repo already has one queued or
// running.
func (s *PostgresStore) CreateJob(ctx context.Context, repoID int64) (*domain.AnalysisJob, error) {
	query := `
		INSERT INTO analysis_jobs (repo_id, status)
		SELECT $1, 'pending'
		WHERE NOT EXISTS (
			SELECT 1 FROM analysis_jobs
			WHERE repo_id = $1 AND status IN ('pending', 'running')
		)
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, query, repoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrJobAlreadyQueued
	}
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// GetJobByID returns a job by ID.
func (s *PostgresStore) GetJobByID(ctx context.Context, id int64) (*domain.AnalysisJob, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobsByRepo returns a repo's job history, newest first.
func (s *PostgresStore) ListJobsByRepo(ctx context.Context, repoID int64) ([]domain.AnalysisJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE repo_id = $1 ORDER BY created_at DESC`, repoID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.AnalysisJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ClaimNextJob atomically moves the oldest pending job to running. SKIP
// LOCKED keeps the claim safe if more than one worker process ever runs.
func (s *PostgresStore) ClaimNextJob(ctx context.Context) (*domain.AnalysisJob, error) {
	query := `
		UPDATE analysis_jobs
		SET status = 'running', progress = 5, error_message = NULL, updated_at = NOW()
		WHERE id = (
			SELECT id FROM analysis_jobs
			WHERE status = 'pending'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNoPendingJobs
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// UpdateJobProgress bumps a job's progress.
func (s *PostgresStore) UpdateJobProgress(ctx context.Context, jobID int64, progress int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE analysis_jobs SET progress = $1, updated_at = NOW() WHERE id = $2`,
		progress, jobID)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// CompleteJob marks a job succeeded.
func (s *PostgresStore) CompleteJob(ctx context.Context, jobID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE analysis_jobs
		 SET status = 'succeeded', progress = 100, updated_at = NOW(), finished_at = NOW()
		 WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// FailJob marks a job failed with a bounded error message.
func (s *PostgresStore) FailJob(ctx context.Context, jobID int64, message string) error {
	if len(message) > maxErrorMessageLen {
		message = message[:maxErrorMessageLen]
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE analysis_jobs
		 SET status = 'failed', error_message = $1, updated_at = NOW(), finished_at = NOW()
		 WHERE id = $2`, message, jobID)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// --- Components & evidence ---

// ReplaceComponents swaps a repo's component set in one transaction so a
// failure mid-write never leaves a mixed old/new set.
func (s *PostgresStore) ReplaceComponents(ctx context.Context, repoID int64, components []domain.DetectedComponent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace components: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM detected_components WHERE repo_id = $1`, repoID); err != nil {
		return fmt.Errorf("delete components: %w", err)
	}

	for _, comp := range components {
		var componentID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO detected_components (repo_id, name, type, version, confidence, description)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			repoID, comp.Name, string(comp.Type), comp.Version, comp.Confidence, comp.Description,
		).Scan(&componentID)
		if err != nil {
			return fmt.Errorf("insert component %q: %w", comp.Name, err)
		}

		for _, ev := range comp.Evidence {
			snippet := ev.Snippet
			if len(snippet) > maxSnippetLen {
				snippet = snippet[:maxSnippetLen]
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO evidence (component_id, file_path, snippet) VALUES ($1, $2, $3)`,
				componentID, ev.FilePath, snippet); err != nil {
				return fmt.Errorf("insert evidence for %q: %w", comp.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace components: %w", err)
	}
	return nil
}

// ListComponentsByRepo returns a repo's components with evidence, ordered by
// confidence then recency.
func (s *PostgresStore) ListComponentsByRepo(ctx context.Context, repoID int64) ([]domain.DetectedComponent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, repo_id, name, type, version, confidence, COALESCE(description, ''), created_at
		 FROM detected_components
		 WHERE repo_id = $1
		 ORDER BY confidence DESC, created_at DESC, id ASC`, repoID)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	defer rows.Close()

	var components []domain.DetectedComponent
	index := map[int64]int{}
	for rows.Next() {
		var c domain.DetectedComponent
		var typ string
		if err := rows.Scan(&c.ID, &c.RepoID, &c.Name, &typ, &c.Version, &c.Confidence, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		c.Type = domain.ComponentType(typ)
		index[c.ID] = len(components)
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return components, nil
	}

	evRows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.component_id, e.file_path, COALESCE(e.snippet, ''), e.created_at
		 FROM evidence e
		 JOIN detected_components dc ON dc.id = e.component_id
		 WHERE dc.repo_id = $1
		 ORDER BY e.id ASC`, repoID)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer evRows.Close()

	for evRows.Next() {
		var ev domain.Evidence
		if err := evRows.Scan(&ev.ID, &ev.ComponentID, &ev.FilePath, &ev.Snippet, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		if i, ok := index[ev.ComponentID]; ok {
			components[i].Evidence = append(components[i].Evidence, ev)
		}
	}
	return components, evRows.Err()
}

// --- Tech docs ---

// UpsertTechDocs bulk-upserts docs by name in one transaction.
func (s *PostgresStore) UpsertTechDocs(ctx context.Context, docs []domain.TechDoc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tech docs: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tech_docs (name, description, documentation_url, updated_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (name) DO UPDATE SET
				description = EXCLUDED.description,
				documentation_url = EXCLUDED.documentation_url,
				updated_at = NOW()`,
			doc.Name, doc.Description, doc.DocumentationURL); err != nil {
			return fmt.Errorf("upsert tech doc %q: %w", doc.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tech docs: %w", err)
	}
	return nil
}

// MatchTechDoc finds the closest doc for a component name: exact match first,
// then substring containment either way, longest doc name wins. Returns nil
// when nothing matches.
func (s *PostgresStore) MatchTechDoc(ctx context.Context, componentName string) (*domain.TechDoc, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), COALESCE(documentation_url, ''), updated_at
		FROM tech_docs
		WHERE LOWER(TRIM($1)) = LOWER(TRIM(name))
		   OR LOWER($1) LIKE '%' || LOWER(name) || '%'
		   OR LOWER(name) LIKE '%' || LOWER($1) || '%'
		ORDER BY (LOWER(TRIM($1)) = LOWER(TRIM(name))) DESC, LENGTH(name) DESC
		LIMIT 1`

	var doc domain.TechDoc
	err := s.db.QueryRowContext(ctx, query, componentName).Scan(
		&doc.ID, &doc.Name, &doc.Description, &doc.DocumentationURL, &doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match tech doc: %w", err)
	}
	return &doc, nil
}
