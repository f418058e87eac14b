package orchestrator

import (
	"context"
	"log/slog"

	"github.com/aptrag/chatbot/apperr"
	"github.com/aptrag/chatbot/domain"
)

// handleFailure applies §4.L's failure-handling policy: record the
// classified error, then either keep a partial result or roll back,
// and notify on critical severity.
func (o *Orchestrator) handleFailure(ctx context.Context, jc *jobContext, stageErr error) {
	ce, ok := stageErr.(*classifiedErr)
	var wrapped *apperr.Error
	var failedStage string
	if ok {
		wrapped = ce.err
		failedStage = ce.stage
	} else {
		wrapped = apperr.New(stageErr)
		failedStage = "unknown"
	}

	errMsg := wrapped.Error()
	errType := string(wrapped.Kind)
	status := domain.JobFailure

	canPartial := o.cfg.EnablePartialCompletion && len(jc.documents) > 0 && wrapped.Severity != apperr.SeverityCritical
	if canPartial {
		status = domain.JobPartial
	}

	_ = o.jobs.Update(ctx, jc.job.ID, domain.JobUpdate{
		Status:       &status,
		ErrorMessage: &errMsg,
		ErrorType:    &errType,
		FailedStage:  &failedStage,
	})

	if !canPartial && o.cfg.EnableRollback {
		o.rollback(ctx, jc)
	}

	if wrapped.Severity == apperr.SeverityCritical {
		o.dispatchNotification(ctx, jc.job, wrapped)
	}

	slog.ErrorContext(ctx, "etl job failed", "job_id", jc.job.ID, "stage", failedStage,
		"kind", wrapped.Kind, "severity", wrapped.Severity, "partial", canPartial)
}

// rollback undoes this job's side effects: any documents already
// written are deleted. The just-created user row from stage 1 is left
// in place — jobstore.Store.Create upserts it via ON CONFLICT DO
// NOTHING, so there is no "just-created" row to distinguish from a
// pre-existing one, and no user-delete operation exists on the Job
// Store for it to call (§4.L "undo a just-created user row").
func (o *Orchestrator) rollback(ctx context.Context, jc *jobContext) {
	if err := o.docs.DeleteForUser(ctx, jc.userID); err != nil {
		slog.ErrorContext(ctx, "rollback: failed to delete documents", "user_id", jc.userID, "error", err)
	}
}

// CancelJob transitions a job to failure with the administrative
// cancellation message (§5 "Cancellation and timeouts"). Already-stored
// documents are left in place.
func (o *Orchestrator) CancelJob(ctx context.Context, jobID string) error {
	status := domain.JobFailure
	msg := "Job cancelled by user"
	errType := string(apperr.KindUnknown)
	return o.jobs.Update(ctx, jobID, domain.JobUpdate{
		Status:       &status,
		ErrorMessage: &msg,
		ErrorType:    &errType,
	})
}
