package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/aptrag/chatbot/metrics"
)

// expectedDocumentCategories is transform.Transformer's chunker count
// (user_profile, personality, thinking_skills, career_recommendations,
// competency, learning_style, preference) — the denominator for a
// completeness score when no richer signal is available.
const expectedDocumentCategories = 7

// alertWindow is a small bounded ring of recent PreferenceDocumentMetric
// samples, feeding metrics.AlertEvaluator's rolling-window rules (§4.B.1).
// The evaluator itself is stateless; something has to hold the window,
// and the orchestrator is the only place document-creation outcomes are
// observed.
type alertWindow struct {
	mu       sync.Mutex
	capacity int
	samples  []metrics.PreferenceDocumentMetric
}

func newAlertWindow(capacity int) *alertWindow {
	if capacity < 1 {
		capacity = 20
	}
	return &alertWindow{capacity: capacity}
}

func (w *alertWindow) add(sample metrics.PreferenceDocumentMetric) []metrics.PreferenceDocumentMetric {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = append(w.samples, sample)
	if overflow := len(w.samples) - w.capacity; overflow > 0 {
		w.samples = w.samples[overflow:]
	}
	out := make([]metrics.PreferenceDocumentMetric, len(w.samples))
	copy(out, w.samples)
	return out
}

// WithAlerting wires a metrics.AlertEvaluator into the orchestrator, fed
// by a rolling window of this process's own document-creation outcomes
// (§4.B.1). Without this call the orchestrator still emits
// preference_document_creation_total but raises no alerts.
func (o *Orchestrator) WithAlerting(evaluator *metrics.AlertEvaluator, windowSize int) *Orchestrator {
	o.alertEvaluator = evaluator
	o.alertWindow = newAlertWindow(windowSize)
	return o
}

// recordDocumentCreation observes preference_document_creation_total
// (§4.B) for the document-storage stage's outcome and, if alerting is
// configured, feeds a PreferenceDocumentMetric sample into the rolling
// window and runs the evaluator.
func (o *Orchestrator) recordDocumentCreation(ctx context.Context, jc *jobContext, success bool, stageErr error) {
	if o.registry != nil {
		o.registry.IncCounter(ctx, metrics.PreferenceDocumentCreationTotal, map[string]string{
			"success": boolLabel(success),
		})
	}

	if o.alertWindow == nil || o.alertEvaluator == nil {
		return
	}

	created := len(jc.documents)
	failed := 0
	if !success {
		failed, created = created, 0
	}

	sample := metrics.PreferenceDocumentMetric{
		UserID:                jc.userID,
		At:                    time.Now(),
		DataCompletenessScore: documentCompletenessScore(created),
		DocumentsCreated:      created,
		DocumentsFailed:       failed,
	}
	window := o.alertWindow.add(sample)
	o.alertEvaluator.Evaluate(ctx, window)
}

// documentCompletenessScore approximates §3.1's data_completeness_score
// as the fraction of the expected document categories actually produced,
// on the 0-100 scale metrics.NewAlertEvaluator's thresholds use.
func documentCompletenessScore(created int) float64 {
	score := float64(created) / float64(expectedDocumentCategories) * 100
	if score > 100 {
		score = 100
	}
	return score
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
