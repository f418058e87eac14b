// Package orchestrator implements the ETL Orchestrator (spec §4.L): it
// drives one user's legacy test results through query execution,
// validation, document transformation, embedding generation, and
// storage, recording progress and handling partial-completion/rollback
// policy along the way.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/aptrag/chatbot/apperr"
	"github.com/aptrag/chatbot/config"
	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/flow"
	"github.com/aptrag/chatbot/legacyquery"
	"github.com/aptrag/chatbot/metrics"
	"github.com/aptrag/chatbot/validate"
)

// JobStore is the subset of jobstore.Store the orchestrator needs
// (§4.A). Narrowed to an interface, following this repo's pattern of
// small consumer-owned interfaces (contextbuilder.Searcher,
// vectorsearch.Cache), so the eight-stage sequence can be exercised
// without a live database.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	Update(ctx context.Context, jobID string, patch domain.JobUpdate) error
	Get(ctx context.Context, jobID string) (*domain.Job, error)
}

// QueryExecutor is the subset of legacyquery.Executor the
// orchestrator needs (§4.D).
type QueryExecutor interface {
	Run(ctx context.Context, anpSeq int64) map[string]legacyquery.Result
}

// DocumentTransformer is the subset of transform.Transformer the
// orchestrator needs (§4.F).
type DocumentTransformer interface {
	TransformAll(ctx context.Context, userID string, results map[string]legacyquery.Result) []domain.Document
}

// EmbeddingEnricher is the subset of embedding.Client the orchestrator
// needs (§4.C).
type EmbeddingEnricher interface {
	EnrichDocuments(ctx context.Context, docs []domain.Document) []domain.Document
}

// DocumentRepository is the subset of docstore.Repository the
// orchestrator needs (§4.G).
type DocumentRepository interface {
	ReplaceForUser(ctx context.Context, userID string, docs []domain.Document) error
	DeleteForUser(ctx context.Context, userID string) error
}

// Config is the orchestrator's tunable policy (§4.L, §5).
type Config struct {
	MaxRetriesPerStage int
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
	JobTimeout         time.Duration

	ReadinessPollInterval   time.Duration
	ReadinessMaxAttempts    int
	ReadinessForceThreshold int

	EnablePartialCompletion bool
	EnableRollback          bool
	ValidationLevel         validate.Level

	WorkerPoolSize            int
	EmbeddingBatchConcurrency int

	EmbeddingDimension int
}

// DefaultConfig returns the reference configuration named in §4.L/§5.
func DefaultConfig() Config {
	return Config{
		MaxRetriesPerStage: 3,
		RetryBaseDelay:     60 * time.Second,
		RetryMaxDelay:      300 * time.Second,
		JobTimeout:         30 * time.Minute,

		ReadinessPollInterval:   3 * time.Second,
		ReadinessMaxAttempts:    120,
		ReadinessForceThreshold: 100,

		EnablePartialCompletion: true,
		EnableRollback:          true,
		ValidationLevel:         validate.Standard,

		WorkerPoolSize:            5,
		EmbeddingBatchConcurrency: 3,

		EmbeddingDimension: 768,
	}
}

// FromAppConfig maps config.Config's ETL_*/EMBEDDING_* fields onto a
// Config (§6 env var names).
func FromAppConfig(cfg *config.Config) Config {
	c := DefaultConfig()
	c.MaxRetriesPerStage = cfg.ETLMaxRetries
	c.RetryBaseDelay = time.Duration(cfg.ETLRetryDelaySeconds) * time.Second
	c.JobTimeout = time.Duration(cfg.ETLJobTimeoutMinutes) * time.Minute
	c.EnablePartialCompletion = cfg.ETLEnablePartialCompletion
	c.EnableRollback = cfg.ETLEnableRollback
	c.ValidationLevel = validate.Level(cfg.ETLValidationLevel)
	c.WorkerPoolSize = cfg.ETLMaxConcurrentJobs
	c.EmbeddingBatchConcurrency = cfg.EmbeddingBatchSize
	c.EmbeddingDimension = cfg.EmbeddingDimension
	return c
}

// ReadinessChecker reports whether the legacy source has the minimal
// rows an ETL run needs before querying it in full (§4.L stage 2).
type ReadinessChecker interface {
	IsReady(ctx context.Context, anpSeq int64) (bool, error)
}

// queryReadinessChecker is ready once the executor's core tendency
// query returns at least one row without error — the same signal
// stage 3 depends on, checked cheaply ahead of time.
type queryReadinessChecker struct {
	queries QueryExecutor
}

func (q *queryReadinessChecker) IsReady(ctx context.Context, anpSeq int64) (bool, error) {
	results := q.queries.Run(ctx, anpSeq)
	res, ok := results["tendencyQuery"]
	if !ok || res.Err != nil {
		if res.Err != nil {
			return false, res.Err
		}
		return false, nil
	}
	return len(res.Rows) > 0, nil
}

// Orchestrator is the ETL Orchestrator (§4.L).
type Orchestrator struct {
	jobs        JobStore
	queries     QueryExecutor
	transformer DocumentTransformer
	embeddings  EmbeddingEnricher
	docs        DocumentRepository
	registry    *metrics.Registry
	readiness   ReadinessChecker
	notifier    Notifier

	alertEvaluator *metrics.AlertEvaluator
	alertWindow    *alertWindow

	notifyMu             sync.Mutex
	pendingNotifications []*flow.AsyncResult[struct{}]

	cfg Config
}

// New wires the Orchestrator's component dependencies together.
func New(
	jobs JobStore,
	queries QueryExecutor,
	transformer DocumentTransformer,
	embeddings EmbeddingEnricher,
	docs DocumentRepository,
	registry *metrics.Registry,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		jobs:        jobs,
		queries:     queries,
		transformer: transformer,
		embeddings:  embeddings,
		docs:        docs,
		registry:    registry,
		readiness:   &queryReadinessChecker{queries: queries},
		notifier:    logNotifier{},
		cfg:         cfg,
	}
}

// WithReadinessChecker overrides the readiness predicate (tests, or an
// alternate data-source probe).
func (o *Orchestrator) WithReadinessChecker(rc ReadinessChecker) *Orchestrator {
	o.readiness = rc
	return o
}

// WithNotifier overrides the administrator-notification sink.
func (o *Orchestrator) WithNotifier(n Notifier) *Orchestrator {
	o.notifier = n
	return o
}

// jobContext carries one job's working state across the eight stages
// (§4.L). It is not persisted directly; the Job Store sees only the
// patches each stage applies.
type jobContext struct {
	job    *domain.Job
	userID string
	anpSeq int64

	queryResults map[string]legacyquery.Result
	documents    []domain.Document

	checkpoints []Checkpoint
}

// RunJob drives one ETL job end to end (§4.L). It creates the Job row,
// runs stages 1..8 in order, and returns the job's final persisted
// state regardless of success, partial completion, or failure.
func (o *Orchestrator) RunJob(ctx context.Context, userID string, anpSeq int64) (*domain.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.JobTimeout)
	defer cancel()

	job := &domain.Job{UserID: userID, AnpSeq: anpSeq, Status: domain.JobPending, TotalSteps: domain.TotalStages}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	jc := &jobContext{job: job, userID: userID, anpSeq: anpSeq}

	if err := o.runStages(ctx, jc); err != nil {
		o.handleFailure(ctx, jc, err)
		return o.reload(ctx, job.ID)
	}

	o.markSuccess(ctx, jc)
	return o.reload(ctx, job.ID)
}

func (o *Orchestrator) reload(ctx context.Context, jobID string) (*domain.Job, error) {
	return o.jobs.Get(ctx, jobID)
}

// markSuccess records stage 8's completion (§4.L stage 8).
func (o *Orchestrator) markSuccess(ctx context.Context, jc *jobContext) {
	now := time.Now()
	status := domain.JobSuccess
	progress := 100
	docIDs := make([]string, 0, len(jc.documents))
	for _, d := range jc.documents {
		docIDs = append(docIDs, d.ID)
	}
	_ = o.jobs.Update(ctx, jc.job.ID, domain.JobUpdate{
		Status:           &status,
		Progress:         &progress,
		CompletedAt:      &now,
		DocumentsCreated: docIDs,
	})
}

// classifiedErr is the internal error shape carried from a failed
// stage through handleFailure: it pairs the apperr classification with
// which stage produced it.
type classifiedErr struct {
	stage string
	err   *apperr.Error
}

func (c *classifiedErr) Error() string { return c.err.Error() }
func (c *classifiedErr) Unwrap() error { return c.err }
