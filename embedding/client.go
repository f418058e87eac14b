// Package embedding implements the Embedding Client (spec §4.C):
// batched, rate-limited, cached text→vector calls against an external
// embedding provider, treated as a black-box RPC per §1's Non-goals.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/aptrag/chatbot/apperr"
	"github.com/aptrag/chatbot/domain"
)

const maxInputChars = 30000

// Vector is a single embedding result.
type Vector struct {
	Values       []float32
	Dimensions   int
	Cached       bool
	ProcessingMS int64
}

// Provider is the black-box external embedding RPC (§1 Non-goals: "the
// external LLM and embedding providers... treated as black-box RPCs").
// A real implementation issues the HTTP call documented in §6 Egress.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Client is the Embedding Client (§4.C).
type Client struct {
	provider Provider
	cache    *Cache
	limiter  *RateLimiter
	breaker  *gobreaker.CircuitBreaker

	dimension int
	probed    bool
}

// Config controls Client behavior.
type Config struct {
	RateLimitPerMinute int
	CacheEnabled       bool
	CacheTTL           time.Duration
	CacheCapacity      int
	Dimension          int // expected vector dimension, checked at boot
}

// New creates a Client. If cfg.CacheEnabled, results are cached keyed
// on a SHA-256 hash of the preprocessed text only; the model identifier
// is not part of the key.
func New(provider Provider, cfg Config) *Client {
	var cache *Cache
	if cfg.CacheEnabled {
		cache = NewCache(cfg.CacheCapacity, cfg.CacheTTL)
	}

	cbSettings := gobreaker.Settings{
		Name:    "embedding-client",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	return &Client{
		provider:  provider,
		cache:     cache,
		limiter:   NewRateLimiter(cfg.RateLimitPerMinute, time.Minute),
		breaker:   gobreaker.NewCircuitBreaker(cbSettings),
		dimension: cfg.Dimension,
	}
}

// ProbeDimension verifies the configured dimension against a live probe
// embedding, run once at boot (§4.C "checked once at boot against a
// probe embedding").
func (c *Client) ProbeDimension(ctx context.Context) error {
	vec, err := c.GenerateEmbedding(ctx, "dimension probe")
	if err != nil {
		return err
	}
	if vec.Dimensions != c.dimension {
		return apperr.New(fmt.Errorf("validation: embedding dimension mismatch: got %d want %d", vec.Dimensions, c.dimension))
	}
	c.probed = true
	return nil
}

// GenerateEmbedding computes (or retrieves from cache) the embedding
// for text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) (Vector, error) {
	start := time.Now()

	clean, err := preprocess(text)
	if err != nil {
		return Vector{}, apperr.New(err)
	}

	key := cacheKey(clean)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			v.Cached = true
			v.ProcessingMS = time.Since(start).Milliseconds()
			return v, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Vector{}, apperr.New(err)
	}

	values, err := c.callWithRetry(ctx, clean)
	if err != nil {
		return Vector{}, err
	}

	if c.dimension > 0 && c.probed && len(values) != c.dimension {
		return Vector{}, apperr.New(fmt.Errorf("validation: embedding dimension mismatch: got %d want %d", len(values), c.dimension))
	}

	v := Vector{
		Values:       values,
		Dimensions:   len(values),
		Cached:       false,
		ProcessingMS: time.Since(start).Milliseconds(),
	}
	if c.cache != nil {
		c.cache.Set(key, v)
	}
	return v, nil
}

func (c *Client) callWithRetry(ctx context.Context, text string) ([]float32, error) {
	var values []float32

	op := func() error {
		res, err := c.breaker.Execute(func() (any, error) {
			return c.provider.Embed(ctx, text)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return backoff.Permanent(apperr.New(err))
			}
			wrapped := apperr.New(err)
			if !wrapped.Retryable {
				return backoff.Permanent(wrapped)
			}
			return wrapped
		}
		values = res.([]float32)
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, backoff.WithMaxRetries(policy, 4)); err != nil {
		return nil, err
	}
	return values, nil
}

// GenerateBatch computes embeddings for each text, aligned with input.
// A per-item failure yields a zero-vector placeholder of the configured
// dimension rather than failing the whole batch (§4.C).
func (c *Client) GenerateBatch(ctx context.Context, texts []string) []Vector {
	out := make([]Vector, len(texts))
	for i, t := range texts {
		v, err := c.GenerateEmbedding(ctx, t)
		if err != nil {
			slog.Warn("embedding batch item failed, using zero-vector placeholder", "error", err)
			out[i] = Vector{Values: make([]float32, c.dimension), Dimensions: c.dimension}
			continue
		}
		out[i] = v
	}
	return out
}

// EnrichDocuments sets Embedding on each document in place, using
// SearchableText if present else SummaryText.
func (c *Client) EnrichDocuments(ctx context.Context, docs []domain.Document) []domain.Document {
	texts := make([]string, len(docs))
	for i, d := range docs {
		if d.SearchableText != "" {
			texts[i] = d.SearchableText
		} else {
			texts[i] = d.SummaryText
		}
	}
	vectors := c.GenerateBatch(ctx, texts)
	for i := range docs {
		docs[i].Embedding = vectors[i].Values
	}
	return docs
}

func preprocess(text string) (string, error) {
	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" {
		return "", errors.New("validation: empty input text")
	}
	if len(clean) > maxInputChars {
		slog.Info("truncating embedding input", "original_len", len(clean), "cap", maxInputChars)
		clean = clean[:maxInputChars]
	}
	return clean, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
