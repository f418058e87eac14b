// Package legacyquery implements the Legacy Query Executor (spec §4.D):
// runs a fixed, named catalog of queries against the legacy source
// database for a given external sequence number, with retry.
package legacyquery

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"

	"github.com/aptrag/chatbot/apperr"
	"github.com/aptrag/chatbot/flow"
	"github.com/aptrag/chatbot/metrics"
)

// preferenceQueryTypes maps the catalog's preference-related query names
// to the query_type label values named in §4.B / §3.1's
// PreferenceQueryMetric (image_preference_stats, preference_data,
// preference_jobs). Only these three are observed into
// preference_query_total/preference_query_duration_ms — the rest of the
// catalog isn't a "preference query" in the spec's sense.
var preferenceQueryTypes = map[string]string{
	"imagePreferenceStatsQuery": "image_preference_stats",
	"preferenceDataQuery":       "preference_data",
	"preferenceJobsQuery":       "preference_jobs",
}

// Row is a flat key/value record returned by a legacy query.
type Row map[string]any

// Result is the outcome of running one named query.
type Result struct {
	QueryName string
	Rows      []Row
	ElapsedMS int64

	Err      error
	ErrKind  apperr.Kind
}

// CoreQueries is the fixed set of named queries the orchestrator runs
// every job against (§4.D). Catalog currently equals CoreQueries, so
// every name has a real query in queryText and runOne's empty-result
// padding path for an unrecognized name is unreachable today; it exists
// for a future Catalog that outgrows CoreQueries without breaking
// callers that already key off the full name set.
var CoreQueries = []string{
	"tendencyQuery",
	"topTendencyQuery",
	"thinkingSkillsQuery",
	"careerRecommendationQuery",
	"competencyQuery",
	"learningStyleQuery",
	"imagePreferenceStatsQuery",
	"preferenceDataQuery",
	"preferenceJobsQuery",
}

// Catalog is the full named query catalog Run executes. It equals
// CoreQueries today; the two are kept as separate names because callers
// that mean "the fixed nine" should reference CoreQueries even if
// Catalog someday grows names CoreQueries doesn't cover.
var Catalog = CoreQueries

// Executor is the Legacy Query Executor (§4.D).
type Executor struct {
	pool     *pgxpool.Pool
	breaker  *gobreaker.CircuitBreaker
	registry *metrics.Registry
}

// New wraps a pgx pool pointed at the legacy source database. registry may
// be nil, in which case the preference-query metrics (§4.B) are skipped.
func New(pool *pgxpool.Pool, registry *metrics.Registry) *Executor {
	return &Executor{
		pool:     pool,
		registry: registry,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "legacy-query-executor",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
	}
}

// queryText maps each catalog name to its SQL text against the legacy
// schema. The legacy schema itself is out of scope (§1); these are the
// named query result shapes the rest of the system depends on.
var queryText = map[string]string{
	"tendencyQuery":              `SELECT * FROM mwd_score1 WHERE anp_seq = $1`,
	"topTendencyQuery":           `SELECT * FROM mwd_score1 WHERE anp_seq = $1 ORDER BY rank LIMIT 3`,
	"thinkingSkillsQuery":        `SELECT * FROM mwd_score2 WHERE anp_seq = $1`,
	"careerRecommendationQuery":  `SELECT * FROM mwd_recommend_job WHERE anp_seq = $1`,
	"competencyQuery":            `SELECT * FROM mwd_competency WHERE anp_seq = $1`,
	"learningStyleQuery":         `SELECT * FROM mwd_learning_style WHERE anp_seq = $1`,
	"imagePreferenceStatsQuery":  `SELECT * FROM mwd_image_preference_stats WHERE anp_seq = $1`,
	"preferenceDataQuery":        `SELECT * FROM mwd_preference WHERE anp_seq = $1`,
	"preferenceJobsQuery":        `SELECT * FROM mwd_preference_job WHERE anp_seq = $1`,
}

// namedResult pairs a catalog entry's name with its Result so
// flow.Parallel's aggregator can rebuild the name-keyed map after all
// queries finish.
type namedResult struct {
	name   string
	result Result
}

// Run executes every query in Catalog concurrently against anpSeq and
// returns a map of query name to Result (§4.D). The catalog's entries
// are independent reads against the legacy source, so flow.Parallel
// fans them out instead of running them one at a time; runOne already
// folds a query's own failure into its Result rather than returning an
// error, so the fan-out always waits for all of them.
func (e *Executor) Run(ctx context.Context, anpSeq int64) map[string]Result {
	parallel := &flow.Parallel[int64, map[string]Result]{}
	parallel = parallel.
		WithWaitAll().
		WithAggregator(func(_ context.Context, results []any) (map[string]Result, error) {
			out := make(map[string]Result, len(results))
			for _, r := range results {
				named := r.(namedResult)
				out[named.name] = named.result
			}
			return out, nil
		})

	for _, name := range Catalog {
		name := name
		parallel.AddProcessors(flow.Processor[int64, any](func(ctx context.Context, anpSeq int64) (any, error) {
			return namedResult{name: name, result: e.runOne(ctx, name, anpSeq)}, nil
		}))
	}

	out, err := parallel.Run(ctx, anpSeq)
	if err != nil {
		// Only reachable if Catalog were empty, which it never is.
		return make(map[string]Result)
	}
	return out
}

func (e *Executor) runOne(ctx context.Context, name string, anpSeq int64) Result {
	sql, ok := queryText[name]
	if !ok {
		return Result{QueryName: name, Rows: []Row{}}
	}

	start := time.Now()
	rows, err := e.withRetry(ctx, sql, anpSeq)
	elapsed := time.Since(start).Milliseconds()

	e.observePreferenceQuery(ctx, name, elapsed, err == nil)

	if err != nil {
		wrapped := apperr.New(err)
		return Result{QueryName: name, ElapsedMS: elapsed, Err: wrapped, ErrKind: wrapped.Kind}
	}
	return Result{QueryName: name, Rows: rows, ElapsedMS: elapsed}
}

// observePreferenceQuery records preference_query_total/
// preference_query_duration_ms (§4.B) for the three preference query
// types named in §3.1's PreferenceQueryMetric. Other catalog queries are
// not observed here.
func (e *Executor) observePreferenceQuery(ctx context.Context, name string, elapsedMS int64, success bool) {
	if e.registry == nil {
		return
	}
	queryType, ok := preferenceQueryTypes[name]
	if !ok {
		return
	}
	e.registry.IncCounter(ctx, metrics.PreferenceQueryTotal, map[string]string{
		"query_type": queryType,
		"success":    boolLabel(success),
	})
	e.registry.ObserveHistogram(ctx, metrics.PreferenceQueryDurationMS, float64(elapsedMS), map[string]string{
		"query_type": queryType,
	})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (e *Executor) withRetry(ctx context.Context, sql string, anpSeq int64) ([]Row, error) {
	var rows []Row

	op := func() error {
		res, err := e.breaker.Execute(func() (any, error) {
			return e.query(ctx, sql, anpSeq)
		})
		if err != nil {
			wrapped := apperr.New(err)
			if !wrapped.Retryable {
				return backoff.Permanent(wrapped)
			}
			return wrapped
		}
		rows = res.([]Row)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.RandomizationFactor = 0.5 // jitter, per §4.D "backoff with jitter"
	bo := backoff.WithContext(policy, ctx)

	if err := backoff.Retry(op, backoff.WithMaxRetries(bo, 3)); err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *Executor) query(ctx context.Context, sql string, anpSeq int64) ([]Row, error) {
	rows, err := e.pool.Query(ctx, sql, anpSeq)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(Row, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		out = append(out, row)
	}
	if out == nil {
		out = []Row{}
	}
	return out, rows.Err()
}
