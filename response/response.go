// Package response implements the Response Generator (spec §4.K): an
// LLM call guarded by preference-data-availability checks, conversation
// memory, retry-with-backoff, anti-hallucination post-processing, and
// quality/confidence scoring.
package response

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aptrag/chatbot/ai/memory"
	"github.com/aptrag/chatbot/contextbuilder"
	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/llm"
	"github.com/aptrag/chatbot/metrics"
)

// Quality is the coarse grade assigned to a generated response (§4.K).
type Quality string

const (
	QualityPoor       Quality = "poor"
	QualityAcceptable Quality = "acceptable"
	QualityGood       Quality = "good"
	QualityExcellent  Quality = "excellent"
)

var confidenceBase = map[Quality]float64{
	QualityPoor:       0.2,
	QualityAcceptable: 0.5,
	QualityGood:       0.75,
	QualityExcellent:  0.9,
}

const historyWindow = 3

// GeneratedResponse is the result of Generate (§4.K).
type GeneratedResponse struct {
	Content           string
	Quality           Quality
	ConfidenceScore   float64
	ProcessingTime    time.Duration
	RetrievedDocIDs   []string
	ConversationTopic string
}

// Generator is the Response Generator (§4.K).
type Generator struct {
	llmClient llm.Client
	memory    *memory.TopicTrackingStore
	registry  *metrics.Registry

	temperature float64
	topP        float64
	topK        int64
	maxTokens   int64
	maxRetries  uint64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSampling overrides the default sampling parameters (0.7/0.8/40/2048).
func WithSampling(temperature, topP float64, topK int, maxTokens int) Option {
	return func(g *Generator) {
		g.temperature = temperature
		g.topP = topP
		g.topK = int64(topK)
		g.maxTokens = int64(maxTokens)
	}
}

// WithMaxRetries overrides the default retry count (3).
func WithMaxRetries(n int) Option {
	return func(g *Generator) { g.maxRetries = uint64(n) }
}

// New creates a Generator. mem and registry must be non-nil.
func New(client llm.Client, mem *memory.TopicTrackingStore, registry *metrics.Registry, opts ...Option) *Generator {
	g := &Generator{
		llmClient:   client,
		memory:      mem,
		registry:    registry,
		temperature: 0.7,
		topP:        0.8,
		topK:        40,
		maxTokens:   2048,
		maxRetries:  3,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a response for cc on behalf of userID, updating
// conversation memory and recording metrics (§4.K).
func (g *Generator) Generate(ctx context.Context, cc *contextbuilder.ConstructedContext, userID string) (*GeneratedResponse, error) {
	start := time.Now()

	docIDs := make([]string, 0, len(cc.RetrievedDocuments))
	for _, d := range cc.RetrievedDocuments {
		docIDs = append(docIDs, d.Document.ID)
	}

	isPreferenceQuestion := isPreferenceRelated(cc)
	availability := analyzePreferenceDataAvailability(cc.RetrievedDocuments)

	if isPreferenceQuestion && availability.CompletionLevel == completionMissing {
		content := generatePreferenceFocusedFallback(cc)
		g.observeDuration(ctx, time.Since(start))
		return &GeneratedResponse{
			Content:         content,
			Quality:         QualityAcceptable,
			ConfidenceScore: 0.6,
			ProcessingTime:  time.Since(start),
			RetrievedDocIDs: docIDs,
		}, nil
	}

	prompt := g.enhancePromptWithMemory(ctx, userID, cc.FormattedPrompt)

	raw, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		slog.Error("response generation failed, returning fallback", "user_id", userID, "error", err)
		g.registry.IncCounter(ctx, metrics.RAGResponseErrorsTotal, nil)
		g.observeDuration(ctx, time.Since(start))
		return &GeneratedResponse{
			Content:         generateFallback(cc),
			Quality:         QualityPoor,
			ConfidenceScore: 0.1,
			ProcessingTime:  time.Since(start),
		}, nil
	}

	processed := postProcess(raw, cc, availability, isPreferenceQuestion)
	quality := assessQuality(processed)
	confidence := calculateConfidence(quality, len(cc.RetrievedDocuments) > 0)

	topic := extractTopic(cc.UserQuestion)
	g.updateMemory(ctx, userID, cc.UserQuestion, processed, topic)

	g.observeDuration(ctx, time.Since(start))

	return &GeneratedResponse{
		Content:           processed,
		Quality:           quality,
		ConfidenceScore:   confidence,
		ProcessingTime:    time.Since(start),
		RetrievedDocIDs:   docIDs,
		ConversationTopic: topic,
	}, nil
}

// enhancePromptWithMemory prepends a "previous context" block built
// from the last historyWindow turns, when memory is non-empty (§4.K
// "Conversation memory").
func (g *Generator) enhancePromptWithMemory(ctx context.Context, userID, prompt string) string {
	turns, err := g.memory.Read(ctx, userID)
	if err != nil || len(turns) == 0 {
		return prompt
	}
	if len(turns) > historyWindow {
		turns = turns[len(turns)-historyWindow:]
	}

	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Q: %s\nA: %s", t.Question, t.Response)
	}

	followUps := g.memory.FollowUpCount(userID)
	return fmt.Sprintf("이전 대화 맥락:\n%s\n\n후속 질문 횟수: %d\n\n%s", sb.String(), followUps, prompt)
}

func (g *Generator) updateMemory(ctx context.Context, userID, question, answer, topic string) {
	turn := domain.ConversationTurn{
		UserID:    userID,
		Question:  question,
		Response:  answer,
		CreatedAt: time.Now(),
	}
	if err := g.memory.Write(ctx, turn); err != nil {
		slog.Warn("failed to persist conversation turn", "user_id", userID, "error", err)
	}
	g.memory.SetCurrentTopic(userID, topic)
	g.memory.IncrementFollowUp(userID)
}

func (g *Generator) callWithRetry(ctx context.Context, promptText string) (string, error) {
	prompt := llm.Prompt{
		Text:        promptText,
		Temperature: g.temperature,
		TopP:        g.topP,
		TopK:        g.topK,
		MaxTokens:   g.maxTokens,
	}

	var completion llm.Completion
	op := func() error {
		c, err := g.llmClient.Generate(ctx, prompt)
		if err != nil {
			if !llm.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		completion = c
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, backoff.WithMaxRetries(policy, g.maxRetries)); err != nil {
		g.registry.IncCounter(ctx, metrics.LLMAPIErrorsTotal, nil)
		return "", err
	}
	return completion.Text, nil
}

func (g *Generator) observeDuration(ctx context.Context, d time.Duration) {
	g.registry.ObserveHistogram(ctx, metrics.RAGResponseSeconds, d.Seconds(), nil)
}
