// Package metrics implements the in-process Metrics Registry (spec §4.B):
// labelled counters and histograms, safe under concurrent updates, with a
// JSON-serializable snapshot. Instrument creation follows the teacher's
// (itsneelabh-gomind) lazy-cache-behind-RWMutex pattern; because the
// registry also needs synchronous min/max/avg reads that OTel's
// push-based instruments don't expose, each histogram keeps a bounded
// in-process sample ring alongside its OTel instrument.
package metrics

import (
	"context"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Required metric names (spec §4.B).
const (
	VectorSearchQueryMS          = "vector_search_query_ms"
	VectorSearchErrorsTotal      = "vector_search_errors_total"
	RAGResponseSeconds           = "rag_response_seconds"
	RAGResponseErrorsTotal       = "rag_response_errors_total"
	LLMAPIErrorsTotal            = "llm_api_errors_total"
	PreferenceQueryTotal         = "preference_query_total"
	PreferenceQueryDurationMS    = "preference_query_duration_ms"
	PreferenceDocumentCreationTotal = "preference_document_creation_total"
	PreferenceAlertsTotal        = "preference_alerts_total"
)

const ringCapacity = 2000

// Registry is the process-wide metrics singleton, supplied to
// components via constructor parameter (per §9's "typed service
// registry" note) rather than an import-time global.
type Registry struct {
	meter metric.Meter

	mu         sync.RWMutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram

	sampleMu sync.Mutex
	samples  map[string]*ring
}

// New creates a Registry backed by the global OTel meter provider.
func New() *Registry {
	return &Registry{
		meter:      otel.Meter("aptrag-chatbot"),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		samples:    make(map[string]*ring),
	}
}

// IncCounter increments a labelled counter by 1.
func (r *Registry) IncCounter(ctx context.Context, name string, labels map[string]string) {
	r.AddCounter(ctx, name, 1, labels)
}

// AddCounter adds value to a labelled counter, creating the OTel
// instrument on first use.
func (r *Registry) AddCounter(ctx context.Context, name string, value int64, labels map[string]string) {
	c := r.counter(name)
	c.Add(ctx, value, metric.WithAttributes(attrs(labels)...))
}

func (r *Registry) counter(name string) metric.Int64Counter {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[name]; ok {
		return c
	}
	c, _ = r.meter.Int64Counter(name)
	r.counters[name] = c
	return c
}

// ObserveHistogram records a value into a labelled histogram, both into
// the OTel instrument (for export) and into the in-process sample ring
// (for synchronous snapshot reads).
func (r *Registry) ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string) {
	h := r.histogram(name)
	h.Record(ctx, value, metric.WithAttributes(attrs(labels)...))

	r.sampleMu.Lock()
	rb, ok := r.samples[name]
	if !ok {
		rb = newRing(ringCapacity)
		r.samples[name] = rb
	}
	rb.push(value)
	r.sampleMu.Unlock()
}

func (r *Registry) histogram(name string) metric.Float64Histogram {
	r.mu.RLock()
	h, ok := r.histograms[name]
	r.mu.RUnlock()
	if ok {
		return h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok = r.histograms[name]; ok {
		return h
	}
	h, _ = r.meter.Float64Histogram(name)
	r.histograms[name] = h
	return h
}

// HistogramSnapshot is the count/sum/min/max/avg summary of a named
// histogram's retained samples.
type HistogramSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Avg   float64
}

// Snapshot returns a JSON-serializable export of all histograms
// recorded so far (§4.B "Export returns a JSON-serializable snapshot").
func (r *Registry) Snapshot() map[string]HistogramSnapshot {
	r.sampleMu.Lock()
	defer r.sampleMu.Unlock()

	out := make(map[string]HistogramSnapshot, len(r.samples))
	for name, rb := range r.samples {
		out[name] = rb.snapshot()
	}
	return out
}

// RecentSamples returns the last n recorded values for name, most
// recent last. Used by Vector Search's benchmark/optimize helpers.
func (r *Registry) RecentSamples(name string, n int) []float64 {
	r.sampleMu.Lock()
	defer r.sampleMu.Unlock()

	rb, ok := r.samples[name]
	if !ok {
		return nil
	}
	return rb.last(n)
}

func attrs(labels map[string]string) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]attribute.KeyValue, 0, len(labels))
	for _, k := range keys {
		out = append(out, attribute.String(k, labels[k]))
	}
	return out
}
