// Package question implements the Question Processor (spec §4.I):
// input validation, preprocessing, keyword-weighted categorization and
// intent detection, Korean/ASCII/digit tokenization, and a bounded
// per-user conversation context.
package question

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/aptrag/chatbot/embedding"
)

// Category is the closed set a question is classified into (§4.I).
type Category string

const (
	CategoryPersonality            Category = "PERSONALITY"
	CategoryThinkingSkills         Category = "THINKING_SKILLS"
	CategoryCareerRecommendations  Category = "CAREER_RECOMMENDATIONS"
	CategoryLearningStyle          Category = "LEARNING_STYLE"
	CategoryCompetencyAnalysis     Category = "COMPETENCY_ANALYSIS"
	CategoryPreferenceAnalysis     Category = "PREFERENCE_ANALYSIS"
	CategoryGeneralComparison      Category = "GENERAL_COMPARISON"
	CategoryStatisticalInfo        Category = "STATISTICAL_INFO"
	CategoryUnknown                Category = "UNKNOWN"
)

// Intent is the closed set of question intents (§4.I).
type Intent string

const (
	IntentExplain   Intent = "EXPLAIN"
	IntentCompare   Intent = "COMPARE"
	IntentRecommend Intent = "RECOMMEND"
	IntentAnalyze   Intent = "ANALYZE"
	IntentClarify   Intent = "CLARIFY"
	IntentFollowUp  Intent = "FOLLOW_UP"
	IntentUnknown   Intent = "UNKNOWN"
)

const (
	minLength      = 3
	maxLength      = 500
	maxKeywords    = 10
	historyWindow  = 5
	followUpConf   = 0.8
)

// ProcessedQuestion is the structured output of Process (§4.I).
type ProcessedQuestion struct {
	OriginalText        string
	CleanedText         string
	Category            Category
	Intent              Intent
	EmbeddingVector     []float32
	Keywords            []string
	ConfidenceScore     float64
	ContextFromPrevious string
	RequiredDocuments   []string
}

// ConversationContext is the bounded per-user history the processor
// reads and updates; distinct from ai/memory's Q/A store (§4.K uses
// that one).
type ConversationContext struct {
	UserID              string
	PreviousQuestions   []string
	PreviousCategories  []Category
	CurrentTopic        Category
	ConversationDepth   int
}

// Processor is the Question Processor (§4.I).
type Processor struct {
	embedder *embedding.Client
}

// New creates a Processor that embeds cleaned question text via embedder.
func New(embedder *embedding.Client) *Processor {
	return &Processor{embedder: embedder}
}

// Process validates, cleans, categorizes, and embeds question. It reads
// convCtx but does not modify it; UpdateConversationContext records the
// turn. Returns an error if question fails validation.
func (p *Processor) Process(ctx context.Context, question string, convCtx *ConversationContext) (*ProcessedQuestion, error) {
	cleaned := preprocess(question)
	if !validate(cleaned) {
		return nil, fmt.Errorf("validation: invalid question format: %q", question)
	}

	category, categoryConf := categorize(cleaned)
	intent, intentConf := detectIntent(cleaned, convCtx)
	keywords := extractKeywords(cleaned)
	requiredDocs := requiredDocuments(category, intent)
	contextFromPrevious := followUpContext(cleaned, convCtx, category)

	var vec []float32
	if p.embedder != nil {
		v, err := p.embedder.GenerateEmbedding(ctx, cleaned)
		if err != nil {
			return nil, fmt.Errorf("embed question: %w", err)
		}
		vec = v
	}

	return &ProcessedQuestion{
		OriginalText:        question,
		CleanedText:         cleaned,
		Category:            category,
		Intent:              intent,
		EmbeddingVector:     vec,
		Keywords:            keywords,
		ConfidenceScore:     (categoryConf + intentConf) / 2,
		ContextFromPrevious: contextFromPrevious,
		RequiredDocuments:   requiredDocs,
	}, nil
}

// UpdateConversationContext pushes pq into ctx's bounded history
// (§4.I "Conversation context update").
func UpdateConversationContext(ctx *ConversationContext, pq *ProcessedQuestion) *ConversationContext {
	ctx.PreviousQuestions = append(ctx.PreviousQuestions, pq.OriginalText)
	ctx.PreviousCategories = append(ctx.PreviousCategories, pq.Category)

	if pq.Category != CategoryUnknown {
		ctx.CurrentTopic = pq.Category
	}
	ctx.ConversationDepth++

	if len(ctx.PreviousQuestions) > historyWindow {
		ctx.PreviousQuestions = ctx.PreviousQuestions[len(ctx.PreviousQuestions)-historyWindow:]
		ctx.PreviousCategories = ctx.PreviousCategories[len(ctx.PreviousCategories)-historyWindow:]
	}
	return ctx
}

func preprocess(question string) string {
	cleaned := strings.Join(strings.Fields(question), " ")

	var b strings.Builder
	for _, r := range cleaned {
		if isWordRune(r) || r == ' ' || strings.ContainsRune("?.!,", r) {
			b.WriteRune(r)
		}
	}
	cleaned = b.String()

	// Normalize runs of question marks to one. Full-width "？" is
	// already gone by this point: it falls outside the allowed
	// character set above, same as the reference implementation.
	for strings.Contains(cleaned, "??") {
		cleaned = strings.ReplaceAll(cleaned, "??", "?")
	}

	cleaned = strings.TrimSpace(cleaned)
	if cleaned != "" && !strings.HasSuffix(cleaned, "?") && !strings.HasSuffix(cleaned, ".") && !strings.HasSuffix(cleaned, "!") {
		cleaned += "?"
	}
	return cleaned
}

func validate(cleaned string) bool {
	if len(strings.TrimSpace(cleaned)) < minLength {
		return false
	}
	if len(cleaned) > maxLength {
		return false
	}

	meaningful := 0
	for _, r := range cleaned {
		if isWordRune(r) {
			meaningful++
		}
	}
	return meaningful >= 2
}

func isWordRune(r rune) bool {
	return unicode.Is(unicode.Hangul, r) || unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
