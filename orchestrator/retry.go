package orchestrator

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/aptrag/chatbot/apperr"
)

// Checkpoint is the per-attempt audit record §4.L requires ("every
// attempt produces a checkpoint record with stage, success, duration,
// memory-usage snapshot, result type/size"). It is kept in-process on
// the jobContext and logged structurally; no dedicated table is named
// for it in §6, so it is not persisted beyond the job run.
type Checkpoint struct {
	Stage      string
	Attempt    int
	Success    bool
	Duration   time.Duration
	MemAllocMB float64
	ResultType string
	ResultSize int
}

func logCheckpoint(ctx context.Context, cp Checkpoint, err error) {
	if err != nil {
		slog.WarnContext(ctx, "stage attempt failed", "stage", cp.Stage, "attempt", cp.Attempt,
			"duration_ms", cp.Duration.Milliseconds(), "mem_alloc_mb", cp.MemAllocMB,
			"result_type", cp.ResultType, "result_size", cp.ResultSize, "error", err)
		return
	}
	slog.InfoContext(ctx, "stage attempt succeeded", "stage", cp.Stage, "attempt", cp.Attempt,
		"duration_ms", cp.Duration.Milliseconds(), "mem_alloc_mb", cp.MemAllocMB,
		"result_type", cp.ResultType, "result_size", cp.ResultSize)
}

// runStageWithRetry attempts st.run up to cfg.MaxRetriesPerStage+1
// times with exponential backoff (60*2^(n-1)s, capped at 300s),
// recording a Checkpoint for every attempt (§4.L "Per-stage control").
func (o *Orchestrator) runStageWithRetry(ctx context.Context, st stage, jc *jobContext) error {
	var lastErr error

	for attempt := 1; attempt <= o.cfg.MaxRetriesPerStage+1; attempt++ {
		start := time.Now()
		err := st.run(ctx, o, jc)
		duration := time.Since(start)

		cp := Checkpoint{
			Stage:      st.name,
			Attempt:    attempt,
			Success:    err == nil,
			Duration:   duration,
			MemAllocMB: currentAllocMB(),
			ResultType: resultType(st.name, jc),
			ResultSize: resultSize(st.name, jc),
		}
		jc.checkpoints = append(jc.checkpoints, cp)
		logCheckpoint(ctx, cp, err)

		if err == nil {
			return nil
		}
		lastErr = err

		wrapped := apperr.New(err)
		if !wrapped.Retryable {
			return err
		}
		if attempt > o.cfg.MaxRetriesPerStage {
			break
		}

		delay := backoffDelay(attempt, o.cfg.RetryBaseDelay, o.cfg.RetryMaxDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// backoffDelay implements 60*2^(n-1)s capped at 300s (§4.L).
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	if delay > max {
		delay = max
	}
	return delay
}

func currentAllocMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Alloc) / (1024 * 1024)
}

func resultType(stageName string, jc *jobContext) string {
	switch stageName {
	case "query_execution", "data_validation":
		return "map[string]legacyquery.Result"
	case "document_transformation", "embedding_generation", "document_storage":
		return "[]domain.Document"
	default:
		return "none"
	}
}

func resultSize(stageName string, jc *jobContext) int {
	switch stageName {
	case "query_execution", "data_validation":
		return len(jc.queryResults)
	case "document_transformation", "embedding_generation", "document_storage":
		return len(jc.documents)
	default:
		return 0
	}
}
