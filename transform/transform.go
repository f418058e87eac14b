// Package transform implements the Document Transformer (spec §4.F),
// the hardest single piece of the system: it turns the dictionary of
// successful legacy query-result lists into many small, topically-
// focused documents, each carrying hypothetical questions for search.
package transform

import (
	"context"
	"log/slog"
	"time"

	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/legacyquery"
)

// chunker produces the sub-documents for one coarse category. Every
// chunker must gracefully degrade on missing/malformed input rather
// than erroring (§4.F rule 4).
type chunker func(results map[string]legacyquery.Result) []domain.Document

// Transformer is the Document Transformer (§4.F).
type Transformer struct {
	chunkers map[string]chunker
}

// New builds a Transformer with the standard category chunkers wired
// in (§4.F rule 1: "for each coarse category... a dedicated chunker").
func New() *Transformer {
	return &Transformer{
		chunkers: map[string]chunker{
			"user_profile":            chunkUserProfile,
			"personality":             chunkPersonality,
			"thinking_skills":         chunkThinkingSkills,
			"career_recommendations":  chunkCareer,
			"competency":              chunkCompetency,
			"learning_style":          chunkLearningStyle,
			"preference":              chunkPreference,
		},
	}
}

// TransformAll runs every chunker and returns the combined document
// set. It never raises out: a per-chunker panic or error is logged and
// the remaining chunkers still run (§4.F rule 7). Every emitted
// document gets its SearchableText and hypothetical questions attached.
func (t *Transformer) TransformAll(ctx context.Context, userID string, results map[string]legacyquery.Result) []domain.Document {
	var all []domain.Document
	distribution := make(map[domain.DocType]int)

	for category, fn := range t.chunkers {
		docs := t.runChunker(category, fn, results)
		for i := range docs {
			docs[i].UserID = userID
			docs[i].Metadata.CreatedAt = time.Now()
			attachSearchableText(&docs[i])
			distribution[docs[i].DocType]++
		}
		all = append(all, docs...)
	}

	slog.InfoContext(ctx, "document transformation complete", "total_documents", len(all), "distribution", distribution)
	return all
}

// runChunker invokes fn with panic recovery, following the teacher's
// pkg/safe.WithRecover shape but run synchronously since the caller
// needs the chunker's return value before continuing.
func (t *Transformer) runChunker(category string, fn chunker, results map[string]legacyquery.Result) (docs []domain.Document) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("document chunker panicked, skipping category", "category", category, "panic", r)
			docs = nil
		}
	}()
	return fn(results)
}

// attachSearchableText computes hypothetical questions and the
// searchable_text field (§4.F rule 3).
func attachSearchableText(d *domain.Document) {
	questions := GenerateHypotheticalQuestions(d)
	d.Metadata.HypotheticalQuestions = questions
	d.SearchableText = d.SummaryText
	for _, q := range questions {
		d.SearchableText += "\n" + q
	}
}
