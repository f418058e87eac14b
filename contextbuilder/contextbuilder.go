// Package contextbuilder implements the Context Builder (spec §4.J):
// retrieval with a threshold-retry cascade, relevance re-scoring,
// per-doc-type key-point extraction, prompt template selection and
// assembly, and token-budget enforcement.
package contextbuilder

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aptrag/chatbot/ai/tokenizer"
	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/question"
	"github.com/aptrag/chatbot/vectorsearch"
)

const (
	defaultMaxContextTokens = 4000
	retrievalLimit          = 10
	initialThreshold        = 0.5
	relaxedThreshold        = 0.3
	maxRetrievedDocuments   = 5
)

// RetrievedDocument is a ranked, annotated search hit ready for prompt
// assembly (§4.J).
type RetrievedDocument struct {
	Document        domain.Document
	SimilarityScore float64
	RelevanceScore  float64
	ContentSummary  string
	KeyPoints       []string
}

// ConstructedContext is the complete context handed to the Response
// Generator (§4.J / §4.K).
type ConstructedContext struct {
	UserQuestion       string
	RetrievedDocuments []RetrievedDocument
	PromptTemplate     PromptTemplate
	FormattedPrompt    string
	Metadata           map[string]any
	TokenCountEstimate int
	Truncated          bool
}

// Searcher is the subset of vectorsearch.Service the Context Builder
// depends on, so tests can substitute a fake.
type Searcher interface {
	SimilaritySearch(ctx context.Context, q vectorsearch.Query) ([]vectorsearch.Result, error)
}

// Builder is the Context Builder (§4.J).
type Builder struct {
	search          Searcher
	estimator       tokenizer.TextEstimator
	maxContextTokens int
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxContextTokens overrides the default token budget (4000).
func WithMaxContextTokens(n int) Option {
	return func(b *Builder) { b.maxContextTokens = n }
}

// WithTextEstimator overrides the default tiktoken-backed estimator.
func WithTextEstimator(e tokenizer.TextEstimator) Option {
	return func(b *Builder) { b.estimator = e }
}

// New creates a Builder backed by search.
func New(search Searcher, opts ...Option) *Builder {
	b := &Builder{
		search:           search,
		estimator:        tokenizer.NewTiktokenWithCL100KBase(),
		maxContextTokens: defaultMaxContextTokens,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildContext constructs the full prompt context for pq, scoped to
// userID, optionally prepending previousContext for follow-ups (§4.J).
func (b *Builder) BuildContext(ctx context.Context, pq *question.ProcessedQuestion, userID string, previousContext string) (*ConstructedContext, error) {
	docs, err := b.retrieveAndRank(ctx, pq, userID)
	if err != nil {
		return nil, err
	}

	template := selectPromptTemplate(pq.Category, pq.Intent)
	formattedDocs := formatDocumentsForPrompt(docs)
	prompt := constructPrompt(template, pq.OriginalText, formattedDocs, previousContext)

	tokenEstimate, err := b.estimateTokens(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("estimate tokens: %w", err)
	}

	truncated := false
	if tokenEstimate > b.maxContextTokens {
		prompt, docs, err = b.truncateContext(ctx, docs, template, pq.OriginalText, previousContext)
		if err != nil {
			return nil, err
		}
		tokenEstimate, err = b.estimateTokens(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("estimate tokens: %w", err)
		}
		truncated = true
	}

	return &ConstructedContext{
		UserQuestion:       pq.OriginalText,
		RetrievedDocuments: docs,
		PromptTemplate:     template,
		FormattedPrompt:    prompt,
		Metadata: map[string]any{
			"question_category":  string(pq.Category),
			"question_intent":    string(pq.Intent),
			"confidence_score":   pq.ConfidenceScore,
			"num_documents":      len(docs),
			"has_previous_context": previousContext != "",
		},
		TokenCountEstimate: tokenEstimate,
		Truncated:          truncated,
	}, nil
}

// retrieveAndRank runs the three-tier retrieval cascade and relevance
// re-scoring (§4.J "Retrieval" + "Relevance re-score"). Backend errors
// degrade to an empty context rather than propagating.
func (b *Builder) retrieveAndRank(ctx context.Context, pq *question.ProcessedQuestion, userID string) ([]RetrievedDocument, error) {
	typeFilter := requiredDocTypes(pq.RequiredDocuments)

	q := vectorsearch.Query{
		UserID:        userID,
		Vector:        pq.EmbeddingVector,
		DocTypeFilter: typeFilter,
		Limit:         retrievalLimit,
		Threshold:     initialThreshold,
	}

	results, err := b.search.SimilaritySearch(ctx, q)
	if err != nil {
		return nil, nil
	}

	if len(results) == 0 {
		q.Threshold = relaxedThreshold
		results, err = b.search.SimilaritySearch(ctx, q)
		if err != nil {
			return nil, nil
		}
	}

	if len(results) == 0 && len(typeFilter) > 0 {
		q.DocTypeFilter = nil
		q.Threshold = relaxedThreshold
		results, err = b.search.SimilaritySearch(ctx, q)
		if err != nil {
			return nil, nil
		}
	}

	docs := make([]RetrievedDocument, 0, len(results))
	for _, r := range results {
		docs = append(docs, RetrievedDocument{
			Document:        r.Document,
			SimilarityScore: r.SimilarityScore,
			RelevanceScore:  calculateRelevanceScore(r.Document, pq, r.SimilarityScore, typeFilter),
			ContentSummary:  createContentSummary(r.Document),
			KeyPoints:       extractKeyPoints(r.Document),
		})
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].RelevanceScore > docs[j].RelevanceScore })
	if len(docs) > maxRetrievedDocuments {
		docs = docs[:maxRetrievedDocuments]
	}
	return docs, nil
}

func requiredDocTypes(required []string) []domain.DocType {
	if len(required) == 0 {
		return nil
	}
	out := make([]domain.DocType, 0, len(required))
	for _, r := range required {
		out = append(out, domain.DocType(r))
	}
	return out
}

// calculateRelevanceScore combines similarity with type-match, keyword,
// and content-richness boosts, clamped to [0, 1] (§4.J).
func calculateRelevanceScore(doc domain.Document, pq *question.ProcessedQuestion, similarity float64, required []domain.DocType) float64 {
	relevance := similarity

	for _, rt := range required {
		if rt == doc.DocType {
			relevance += 0.2
			break
		}
	}

	docText := strings.ToLower(doc.SummaryText)
	var keywordMatches int
	for _, kw := range pq.Keywords {
		if strings.Contains(docText, strings.ToLower(kw)) {
			keywordMatches++
		}
	}
	relevance += minFloat(float64(keywordMatches)*0.1, 0.3)

	if raw, err := json.Marshal(doc.Content); err == nil {
		richness := float64(len(raw)) / 1000
		relevance += minFloat(richness, 0.2)
	}

	return minFloat(relevance, 1.0)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func (b *Builder) estimateTokens(ctx context.Context, text string) (int, error) {
	return b.estimator.EstimateText(ctx, text)
}
