package vectorsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/aptrag/chatbot/apperr"
	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/metrics"
)

// Service is the Vector Search Service (§4.H).
type Service struct {
	pool     *pgxpool.Pool
	cache    *Cache
	registry *metrics.Registry

	timingsMu sync.Mutex
	timings   []timing
}

type timing struct {
	QueryTimeMS float64
	Returned    int
	Threshold   float64
	At          time.Time
	UserID      string
}

const maxTimingsRetained = 1000

// New creates a Service over pool, with result caching and the shared
// Metrics Registry.
func New(pool *pgxpool.Pool, cache *Cache, registry *metrics.Registry) *Service {
	return &Service{pool: pool, cache: cache, registry: registry}
}

// similarityExpr builds the SQL similarity expression for metric,
// chosen via a fixed 3-way switch at query-build time — never string-
// concatenated from caller input (§4.H).
func similarityExpr(metric Metric) string {
	switch metric {
	case L2:
		return "1.0 / (1.0 + (embedding_vector <-> $1))"
	case InnerProduct:
		return "(embedding_vector <#> $1) * -1"
	default: // Cosine
		return "1.0 - (embedding_vector <=> $1)"
	}
}

// SimilaritySearch is the primary entry point (§4.H).
func (s *Service) SimilaritySearch(ctx context.Context, q Query) ([]Result, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}

	key := cacheKeyFor(q)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	results, err := s.runWithRetry(ctx, q)
	if err != nil {
		if s.registry != nil {
			s.registry.IncCounter(ctx, metrics.VectorSearchErrorsTotal, nil)
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, results)
	}
	return results, nil
}

func (s *Service) runWithRetry(ctx context.Context, q Query) ([]Result, error) {
	var results []Result

	op := func() error {
		start := time.Now()
		res, err := s.query(ctx, q)
		elapsed := time.Since(start)

		if s.registry != nil {
			s.registry.ObserveHistogram(ctx, metrics.VectorSearchQueryMS, float64(elapsed.Milliseconds()), map[string]string{"metric": string(q.Metric)})
		}
		s.recordTiming(q, elapsed, len(res))

		if err != nil {
			wrapped := apperr.New(err)
			if !wrapped.Retryable {
				return backoff.Permanent(wrapped)
			}
			return wrapped
		}
		results = res
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.RandomizationFactor = 0.5
	bo := backoff.WithContext(policy, ctx)

	if err := backoff.Retry(op, backoff.WithMaxRetries(bo, 3)); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) query(ctx context.Context, q Query) ([]Result, error) {
	expr := similarityExpr(q.Metric)

	sql := fmt.Sprintf(`
		SELECT doc_id, user_id, doc_type, content, summary_text,
		       searchable_text, embedding_vector, metadata, created_at,
		       %s AS similarity
		FROM chat_documents
		WHERE user_id = $2
	`, expr)

	args := []any{pgvector.NewVector(q.Vector), q.UserID}
	argN := 3

	if len(q.DocTypeFilter) > 0 {
		placeholders := make([]string, len(q.DocTypeFilter))
		for i, dt := range q.DocTypeFilter {
			placeholders[i] = fmt.Sprintf("$%d", argN)
			args = append(args, string(dt))
			argN++
		}
		sql += " AND doc_type = ANY(ARRAY[" + joinStrings(placeholders, ",") + "])"
	}

	sql += fmt.Sprintf(" AND %s > $%d", expr, argN)
	args = append(args, q.Threshold)
	argN++

	sql += fmt.Sprintf(" ORDER BY similarity DESC LIMIT $%d", argN)
	args = append(args, q.Limit)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var d domain.Document
		var docType string
		var content, meta []byte
		var vec pgvector.Vector
		var createdAt time.Time
		var similarity float64

		if err := rows.Scan(&d.ID, &d.UserID, &docType, &content, &d.SummaryText,
			&d.SearchableText, &vec, &meta, &createdAt, &similarity); err != nil {
			return nil, err
		}
		d.DocType = domain.DocType(docType)
		d.Embedding = vec.Slice()
		_ = json.Unmarshal(content, &d.Content)
		_ = json.Unmarshal(meta, &d.Metadata)
		d.Metadata.CreatedAt = createdAt

		result := Result{Document: d, SimilarityScore: similarity}
		if q.TextQuery != "" {
			result.Metadata = map[string]any{"text_query": q.TextQuery}
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results = applyRanking(results, q.RankingStrategy, time.Now(), func(r Result) time.Time { return r.Document.Metadata.CreatedAt })
	return results, nil
}

// SearchByDocumentType is a convenience wrapper with a single-type
// filter (§4.H).
func (s *Service) SearchByDocumentType(ctx context.Context, q Query, docType domain.DocType) ([]Result, error) {
	q.DocTypeFilter = []domain.DocType{docType}
	return s.SimilaritySearch(ctx, q)
}

// MultiTypeSearch runs per-type limits and aggregates the result map
// (§4.H).
func (s *Service) MultiTypeSearch(ctx context.Context, q Query, perTypeLimit int) (map[domain.DocType][]Result, error) {
	out := make(map[domain.DocType][]Result)
	for _, dt := range q.DocTypeFilter {
		sub := q
		sub.DocTypeFilter = []domain.DocType{dt}
		sub.Limit = perTypeLimit
		res, err := s.SimilaritySearch(ctx, sub)
		if err != nil {
			return nil, err
		}
		out[dt] = res
	}
	return out, nil
}

// HybridSearch is currently vector-only; the optional text query is
// attached to result metadata (§4.H).
func (s *Service) HybridSearch(ctx context.Context, q Query, textQuery string) ([]Result, error) {
	q.TextQuery = textQuery
	return s.SimilaritySearch(ctx, q)
}

// GetSimilarDocuments uses docID's own vector, excludes it from
// results, and applies a 0.5 similarity floor (§4.H).
func (s *Service) GetSimilarDocuments(ctx context.Context, userID, docID string, metric Metric, limit int) ([]Result, error) {
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx, `SELECT embedding_vector FROM chat_documents WHERE doc_id = $1`, docID).Scan(&vec)
	if err != nil {
		return nil, apperr.New(err)
	}

	results, err := s.SimilaritySearch(ctx, Query{
		UserID:    userID,
		Vector:    vec.Slice(),
		Metric:    metric,
		Threshold: 0.5,
		Limit:     limit + 1,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Document.ID == docID {
			continue
		}
		out = append(out, r)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// BenchmarkQuery runs q runs-times and returns avg/min/max timing
// statistics in milliseconds (§4.H).
func (s *Service) BenchmarkQuery(ctx context.Context, q Query, runs int) (avgMS, minMS, maxMS float64, err error) {
	if runs <= 0 {
		runs = 1
	}
	var total, min, max float64
	for i := 0; i < runs; i++ {
		start := time.Now()
		if _, err := s.query(ctx, q); err != nil {
			return 0, 0, 0, apperr.New(err)
		}
		ms := float64(time.Since(start).Milliseconds())
		total += ms
		if i == 0 || ms < min {
			min = ms
		}
		if ms > max {
			max = ms
		}
	}
	return total / float64(runs), min, max, nil
}

func (s *Service) recordTiming(q Query, elapsed time.Duration, returned int) {
	s.timingsMu.Lock()
	defer s.timingsMu.Unlock()

	s.timings = append(s.timings, timing{
		QueryTimeMS: float64(elapsed.Milliseconds()),
		Returned:    returned,
		Threshold:   q.Threshold,
		At:          time.Now(),
		UserID:      q.UserID,
	})
	if overflow := len(s.timings) - maxTimingsRetained; overflow > 0 {
		s.timings = s.timings[overflow:]
	}
}

// OptimizeSearchPerformance returns textual recommendations derived
// from recent per-query timing stats (§4.H).
func (s *Service) OptimizeSearchPerformance() []string {
	s.timingsMu.Lock()
	defer s.timingsMu.Unlock()

	if len(s.timings) == 0 {
		return nil
	}

	var sum, max float64
	var resultSum int
	for _, t := range s.timings {
		sum += t.QueryTimeMS
		resultSum += t.Returned
		if t.QueryTimeMS > max {
			max = t.QueryTimeMS
		}
	}
	avg := sum / float64(len(s.timings))
	avgResults := float64(resultSum) / float64(len(s.timings))

	var recs []string
	if avg > 500 {
		recs = append(recs, "consider tuning index parameters")
	}
	if max > 2000 {
		recs = append(recs, "check for missing indexes")
	}
	if avgResults < 2 {
		recs = append(recs, "lower similarity threshold")
	}
	return recs
}

func joinStrings(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
