// Package jobstore implements the Job Store (spec §4.A): persistent
// per-job state machine and history backed by Postgres via pgx.
package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aptrag/chatbot/apperr"
	"github.com/aptrag/chatbot/domain"
)

// ErrNotFound is returned by Get/Delete when the job id is unknown.
// Per §4.A, an unknown job is "not found", not an error, for status
// queries — callers on that path check for this sentinel and render a
// 404-shaped result rather than logging a failure.
var ErrNotFound = errors.New("jobstore: job not found")

// Store is the Job Store (§4.A).
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected pgx pool. Schema migrations are
// applied separately via Migrate.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a new Job, lazily creating a minimal User row first if
// the referenced user id is unknown (§4.A "the store creates a minimal
// User row... before persisting the Job").
func (s *Store) Create(ctx context.Context, job *domain.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now()
	job.StartedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = domain.JobPending
	}
	if job.TotalSteps == 0 {
		job.TotalSteps = domain.TotalStages
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.New(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		INSERT INTO users (user_id, anp_seq, name, test_completed_at)
		VALUES ($1, $2, '', NULL)
		ON CONFLICT (user_id) DO NOTHING
	`, job.UserID, job.AnpSeq); err != nil {
		return apperr.New(err)
	}

	summary, _ := json.Marshal(job.QueryResultsSummary)
	docs, _ := json.Marshal(job.DocumentsCreated)

	if _, err := tx.Exec(ctx, `
		INSERT INTO chat_etl_jobs (
			job_id, user_id, anp_seq, status, progress_percentage,
			current_step, completed_steps, total_steps,
			started_at, updated_at, retry_count,
			query_results_summary, documents_created
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, job.ID, job.UserID, job.AnpSeq, string(job.Status), job.Progress,
		job.CurrentStep, job.CompletedSteps, job.TotalSteps,
		job.StartedAt, job.UpdatedAt, job.RetryCount,
		summary, docs); err != nil {
		return apperr.New(err)
	}

	return apperr.New(tx.Commit(ctx))
}

// Patch is the partial field set Update applies; only non-nil fields
// are written, as a column list built at call time (not a
// read-modify-write round trip).
type Patch = domain.JobUpdate

// Update applies a partial field set to an existing job. All operations
// persist atomically (single UPDATE statement).
func (s *Store) Update(ctx context.Context, jobID string, patch Patch) error {
	set := []string{"updated_at = now()"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.Status != nil {
		set = append(set, "status = "+arg(string(*patch.Status)))
	}
	if patch.Progress != nil {
		set = append(set, "progress_percentage = "+arg(*patch.Progress))
	}
	if patch.CurrentStep != nil {
		set = append(set, "current_step = "+arg(*patch.CurrentStep))
	}
	if patch.CompletedSteps != nil {
		set = append(set, "completed_steps = "+arg(*patch.CompletedSteps))
	}
	if patch.CompletedAt != nil {
		set = append(set, "completed_at = "+arg(*patch.CompletedAt))
	}
	if patch.ErrorMessage != nil {
		set = append(set, "error_message = "+arg(*patch.ErrorMessage))
	}
	if patch.ErrorType != nil {
		set = append(set, "error_type = "+arg(*patch.ErrorType))
	}
	if patch.FailedStage != nil {
		set = append(set, "failed_stage = "+arg(*patch.FailedStage))
	}
	if patch.RetryCount != nil {
		set = append(set, "retry_count = "+arg(*patch.RetryCount))
	}
	if patch.QueryResultsSummary != nil {
		b, _ := json.Marshal(patch.QueryResultsSummary)
		set = append(set, "query_results_summary = "+arg(b))
	}
	if patch.DocumentsCreated != nil {
		b, _ := json.Marshal(patch.DocumentsCreated)
		set = append(set, "documents_created = "+arg(b))
	}

	query := "UPDATE chat_etl_jobs SET " + join(set, ", ") + " WHERE job_id = " + arg(jobID)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return apperr.New(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get retrieves a job by id. Returns ErrNotFound if unknown.
func (s *Store) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT job_id, user_id, anp_seq, status, progress_percentage,
		       current_step, completed_steps, total_steps,
		       started_at, updated_at, completed_at,
		       error_message, error_type, failed_stage, retry_count,
		       query_results_summary, documents_created
		FROM chat_etl_jobs WHERE job_id = $1
	`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.New(err)
	}
	return job, nil
}

// ListByUser returns the user's jobs, most recent first, bounded by
// limit.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT job_id, user_id, anp_seq, status, progress_percentage,
		       current_step, completed_steps, total_steps,
		       started_at, updated_at, completed_at,
		       error_message, error_type, failed_stage, retry_count,
		       query_results_summary, documents_created
		FROM chat_etl_jobs WHERE user_id = $1
		ORDER BY started_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, apperr.New(err)
	}
	defer rows.Close()

	var out []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, apperr.New(err)
		}
		out = append(out, job)
	}
	return out, apperr.New(rows.Err())
}

// Delete removes a job row. Used only by administrative cleanup paths.
func (s *Store) Delete(ctx context.Context, jobID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_etl_jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return apperr.New(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.Job, error) {
	var j domain.Job
	var status string
	var summary, docs []byte
	if err := row.Scan(
		&j.ID, &j.UserID, &j.AnpSeq, &status, &j.Progress,
		&j.CurrentStep, &j.CompletedSteps, &j.TotalSteps,
		&j.StartedAt, &j.UpdatedAt, &j.CompletedAt,
		&j.ErrorMessage, &j.ErrorType, &j.FailedStage, &j.RetryCount,
		&summary, &docs,
	); err != nil {
		return nil, err
	}
	j.Status = domain.JobStatus(status)
	if len(summary) > 0 {
		_ = json.Unmarshal(summary, &j.QueryResultsSummary)
	}
	if len(docs) > 0 {
		_ = json.Unmarshal(docs, &j.DocumentsCreated)
	}
	return &j, nil
}

func join(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
