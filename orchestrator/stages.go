package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aptrag/chatbot/apperr"
	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/validate"
)

// stage is one of the eight ordered steps of §4.L. progressIndex is the
// 0-based index into domain.StageProgress for steps 2..8 (step 1,
// Initialization, reports no percentage of its own).
type stage struct {
	name          string
	progressIndex int
	run           func(ctx context.Context, o *Orchestrator, jc *jobContext) error
}

// stages is the fixed order of §4.L. Each stage's run closure is
// wrapped by runStages with per-stage retry, checkpointing, and
// progress updates (runStageWithRetry, runStages) — state a generic
// flow chain node has no side channel for, so the sequence stays plain
// Go rather than nodes threaded through flow's chain type.
var stages = []stage{
	{name: "initialization", progressIndex: -1, run: runInitialization},
	{name: "data_readiness_wait", progressIndex: 0, run: runReadinessWait},
	{name: "query_execution", progressIndex: 1, run: runQueryExecution},
	{name: "data_validation", progressIndex: 2, run: runDataValidation},
	{name: "document_transformation", progressIndex: 3, run: runDocumentTransformation},
	{name: "embedding_generation", progressIndex: 4, run: runEmbeddingGeneration},
	{name: "document_storage", progressIndex: 5, run: runDocumentStorage},
	{name: "completion", progressIndex: 6, run: runCompletion},
}

func (o *Orchestrator) runStages(ctx context.Context, jc *jobContext) error {
	for i, st := range stages {
		if err := ctx.Err(); err != nil {
			return &classifiedErr{stage: st.name, err: apperr.New(err).WithStage(st.name)}
		}

		stepNum := i
		currentStep := &stepNum
		status := stageStatus(st.name)
		_ = o.jobs.Update(ctx, jc.job.ID, domain.JobUpdate{Status: &status, CurrentStep: currentStep})

		if err := o.runStageWithRetry(ctx, st, jc); err != nil {
			wrapped := apperr.New(err).WithStage(st.name)
			return &classifiedErr{stage: st.name, err: wrapped}
		}

		if st.progressIndex >= 0 {
			pct := domain.StageProgress[st.progressIndex]
			completed := i
			_ = o.jobs.Update(ctx, jc.job.ID, domain.JobUpdate{Progress: &pct, CompletedSteps: &completed})
		}
	}
	return nil
}

func stageStatus(name string) domain.JobStatus {
	switch name {
	case "query_execution":
		return domain.JobProcessingQueries
	case "document_transformation":
		return domain.JobTransformingDocuments
	case "embedding_generation":
		return domain.JobGeneratingEmbeddings
	case "document_storage":
		return domain.JobStoringDocuments
	default:
		return domain.JobStarted
	}
}

// runInitialization ensures the user row exists (delegated to
// jobstore.Store.Create, which upserts it) and records no rollback
// hooks beyond the job row itself, since document rollback only
// applies once stage 7 has run (§4.L stage 1).
func runInitialization(_ context.Context, _ *Orchestrator, _ *jobContext) error {
	return nil
}

// runReadinessWait polls the legacy source for minimal data presence,
// forcing progress past a warning threshold rather than hanging
// indefinitely (§4.L stage 2).
func runReadinessWait(ctx context.Context, o *Orchestrator, jc *jobContext) error {
	ticker := time.NewTicker(o.cfg.ReadinessPollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= o.cfg.ReadinessMaxAttempts; attempt++ {
		ready, err := o.readiness.IsReady(ctx, jc.anpSeq)
		if err == nil && ready {
			return nil
		}
		if attempt >= o.cfg.ReadinessForceThreshold {
			slog.WarnContext(ctx, "forcing progress past readiness wait",
				"anp_seq", jc.anpSeq, "attempt", attempt)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return fmt.Errorf("data readiness wait exceeded %d attempts for anp_seq=%d", o.cfg.ReadinessMaxAttempts, jc.anpSeq)
}

// runQueryExecution delegates to the Legacy Query Executor (§4.D) and
// collects its result map (§4.L stage 3).
func runQueryExecution(ctx context.Context, o *Orchestrator, jc *jobContext) error {
	jc.queryResults = o.queries.Run(ctx, jc.anpSeq)
	return nil
}

// runDataValidation runs the query-results pass. Failure here is
// downgraded to a warning in relaxed mode — Basic level already treats
// it that way, so this just forwards the configured level (§4.L
// stage 4).
func runDataValidation(ctx context.Context, o *Orchestrator, jc *jobContext) error {
	report := validate.QueryResults(jc.queryResults, o.cfg.ValidationLevel)
	if !report.Passed {
		if o.cfg.ValidationLevel == validate.Basic {
			slog.WarnContext(ctx, "query validation failed in relaxed mode, continuing", "errors", report.Errors)
			return nil
		}
		return fmt.Errorf("query validation failed: %v", report.Errors)
	}
	return nil
}

// runDocumentTransformation delegates to the Document Transformer
// (§4.F) and then re-validates the resulting document set (§4.L
// stage 5).
func runDocumentTransformation(ctx context.Context, o *Orchestrator, jc *jobContext) error {
	transformer := o.transformer
	jc.documents = transformer.TransformAll(ctx, jc.userID, jc.queryResults)

	report := validate.Documents(jc.documents, o.cfg.ValidationLevel, true)
	if !report.Passed {
		return fmt.Errorf("document validation failed: %v", report.Errors)
	}
	return nil
}

// runEmbeddingGeneration delegates to the Embedding Client (§4.C),
// which already degrades outages to zero-vector placeholders so
// storage can proceed (§4.L stage 6).
func runEmbeddingGeneration(ctx context.Context, o *Orchestrator, jc *jobContext) error {
	jc.documents = o.embeddings.EnrichDocuments(ctx, jc.documents)

	report := validate.Embeddings(jc.documents, o.cfg.EmbeddingDimension)
	for _, w := range report.Warnings {
		slog.WarnContext(ctx, "embedding validation warning", "detail", w)
	}
	return nil
}

// runDocumentStorage delegates to the Document Repository's atomic
// replace-by-user write (§4.G, §4.L stage 7), then records the
// preference_document_creation_total outcome and feeds the alerting
// window (§4.B, §4.B.1).
func runDocumentStorage(ctx context.Context, o *Orchestrator, jc *jobContext) error {
	err := o.docs.ReplaceForUser(ctx, jc.userID, jc.documents)
	o.recordDocumentCreation(ctx, jc, err == nil, err)
	return err
}

// runCompletion is a no-op placeholder stage: RunJob's markSuccess
// writes the final state once runStages returns without error (§4.L
// stage 8).
func runCompletion(_ context.Context, _ *Orchestrator, _ *jobContext) error {
	return nil
}
