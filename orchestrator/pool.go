package orchestrator

import (
	"context"

	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/flow"
)

// JobRequest is one unit of work submitted to a Pool.
type JobRequest struct {
	UserID string
	AnpSeq int64
}

// JobOutcome pairs a submitted request with its resulting job state
// (or the error RunJob itself returned, distinct from a job that ran
// to completion in failure/partial status).
type JobOutcome struct {
	Request JobRequest
	Job     *domain.Job
	Err     error
}

// Pool runs ETL jobs across a process-wide worker cap (§5 "A
// process-wide worker pool runs the ETL orchestrations in parallel up
// to a configurable cap"), built on flow.Batch — the same concurrent
// fan-out primitive the teacher uses for per-document batching within a
// single job, reused here at the job level instead of hand-rolling a
// second errgroup wrapper.
type Pool struct {
	orchestrator *Orchestrator
	limit        int
}

// NewPool creates a Pool bounded by o's configured WorkerPoolSize.
func NewPool(o *Orchestrator) *Pool {
	limit := o.cfg.WorkerPoolSize
	if limit < 1 {
		limit = 1
	}
	return &Pool{orchestrator: o, limit: limit}
}

// RunAll submits every request concurrently, bounded by the pool's
// limit, and waits for all of them to finish. A per-job error (context
// cancellation, job-store failure) does not cancel sibling jobs: the
// batch processor folds RunJob's error into the outcome itself rather
// than returning it, so flow.Batch never aborts the group over one
// job's failure.
func (p *Pool) RunAll(ctx context.Context, requests []JobRequest) []JobOutcome {
	batch := &flow.Batch[[]JobRequest, []JobOutcome, JobRequest, JobOutcome]{}
	batch = batch.
		WithProcessor(func(ctx context.Context, req JobRequest) (JobOutcome, error) {
			job, err := p.orchestrator.RunJob(ctx, req.UserID, req.AnpSeq)
			return JobOutcome{Request: req, Job: job, Err: err}, nil
		}).
		WithSegmenter(func(_ context.Context, reqs []JobRequest) ([]JobRequest, error) {
			return reqs, nil
		}).
		WithAggregator(func(_ context.Context, outcomes []JobOutcome) ([]JobOutcome, error) {
			return outcomes, nil
		}).
		WithConcurrencyLimit(p.limit)

	outcomes, _ := batch.Run(ctx, requests)
	return outcomes
}
