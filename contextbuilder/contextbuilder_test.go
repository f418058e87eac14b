package contextbuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/question"
	"github.com/aptrag/chatbot/vectorsearch"
)

type fakeSearcher struct {
	calls   []vectorsearch.Query
	results [][]vectorsearch.Result
	err     error
}

func (f *fakeSearcher) SimilaritySearch(_ context.Context, q vectorsearch.Query) ([]vectorsearch.Result, error) {
	f.calls = append(f.calls, q)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.calls) - 1
	if idx < len(f.results) {
		return f.results[idx], nil
	}
	return nil, nil
}

type fakeEstimator struct{}

func (fakeEstimator) EstimateText(_ context.Context, text string) (int, error) {
	return len(text) / 3, nil
}

func personalityDoc() domain.Document {
	return domain.Document{
		ID:      "d1",
		DocType: domain.DocPersonalityProfile,
		Content: map[string]any{
			"primary_tendency": map[string]any{"name": "창의형"},
		},
		SummaryText: "주요 성향: 창의형",
	}
}

func TestRetrievalRetriesAtLowerThresholdWhenEmpty(t *testing.T) {
	search := &fakeSearcher{
		results: [][]vectorsearch.Result{
			{},
			{{Document: personalityDoc(), SimilarityScore: 0.4}},
		},
	}
	b := New(search, WithTextEstimator(fakeEstimator{}))
	pq := &question.ProcessedQuestion{
		OriginalText:      "내 성격은?",
		Category:          question.CategoryPersonality,
		Intent:            question.IntentExplain,
		RequiredDocuments: []string{"PERSONALITY_PROFILE"},
	}

	cc, err := b.BuildContext(context.Background(), pq, "user1", "")
	require.NoError(t, err)
	require.Len(t, cc.RetrievedDocuments, 1)
	assert.Len(t, search.calls, 2)
	assert.Equal(t, 0.5, search.calls[0].Threshold)
	assert.Equal(t, 0.3, search.calls[1].Threshold)
}

func TestRetrievalDropsTypeFilterOnSecondEmptyRetry(t *testing.T) {
	search := &fakeSearcher{
		results: [][]vectorsearch.Result{
			{},
			{},
			{{Document: personalityDoc(), SimilarityScore: 0.4}},
		},
	}
	b := New(search, WithTextEstimator(fakeEstimator{}))
	pq := &question.ProcessedQuestion{
		OriginalText:      "내 성격은?",
		RequiredDocuments: []string{"PERSONALITY_PROFILE"},
	}

	cc, err := b.BuildContext(context.Background(), pq, "user1", "")
	require.NoError(t, err)
	require.Len(t, cc.RetrievedDocuments, 1)
	require.Len(t, search.calls, 3)
	assert.Nil(t, search.calls[2].DocTypeFilter)
}

func TestRetrievalBackendErrorReturnsEmptyContext(t *testing.T) {
	search := &fakeSearcher{err: assertError{}}
	b := New(search, WithTextEstimator(fakeEstimator{}))
	pq := &question.ProcessedQuestion{OriginalText: "내 성격은?"}

	cc, err := b.BuildContext(context.Background(), pq, "user1", "")
	require.NoError(t, err)
	assert.Empty(t, cc.RetrievedDocuments)
}

type assertError struct{}

func (assertError) Error() string { return "backend down" }

func TestSelectPromptTemplateFollowUpWinsOverCategory(t *testing.T) {
	tmpl := selectPromptTemplate(question.CategoryPersonality, question.IntentFollowUp)
	assert.Equal(t, TemplateFollowUp, tmpl)
}

func TestSelectPromptTemplateDefaultsOnUnknownPair(t *testing.T) {
	tmpl := selectPromptTemplate(question.CategoryUnknown, question.IntentUnknown)
	assert.Equal(t, TemplateDefault, tmpl)
}

func TestCalculateRelevanceScoreBoostsTypeMatchAndKeywords(t *testing.T) {
	doc := personalityDoc()
	pq := &question.ProcessedQuestion{Keywords: []string{"창의형"}}
	score := calculateRelevanceScore(doc, pq, 0.5, []domain.DocType{domain.DocPersonalityProfile})
	assert.Greater(t, score, 0.5)
	assert.LessOrEqual(t, score, 1.0)
}

func TestBuildContextTruncatesWhenOverBudget(t *testing.T) {
	var results []vectorsearch.Result
	for i := 0; i < 5; i++ {
		results = append(results, vectorsearch.Result{Document: personalityDoc(), SimilarityScore: 0.9})
	}
	search := &fakeSearcher{results: [][]vectorsearch.Result{results}}
	b := New(search, WithTextEstimator(fakeEstimator{}), WithMaxContextTokens(10))
	pq := &question.ProcessedQuestion{OriginalText: "내 성격은?"}

	cc, err := b.BuildContext(context.Background(), pq, "user1", "")
	require.NoError(t, err)
	assert.True(t, cc.Truncated)
	assert.LessOrEqual(t, len(cc.RetrievedDocuments), 1)
}

func TestExtractKeyPointsFallsBackToSummary(t *testing.T) {
	doc := domain.Document{DocType: domain.DocLearningStyle, SummaryText: "some summary text"}
	points := extractKeyPoints(doc)
	require.Len(t, points, 1)
	assert.Contains(t, points[0], "some summary text")
}
