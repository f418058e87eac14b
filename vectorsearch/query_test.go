package vectorsearch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aptrag/chatbot/domain"
)

func TestApplyRankingTypePrioritized(t *testing.T) {
	results := []Result{
		{Document: domain.Document{DocType: domain.DocLearningStyle}, SimilarityScore: 0.9},
		{Document: domain.Document{DocType: domain.DocPersonalityProfile}, SimilarityScore: 0.8},
	}

	ranked := applyRanking(results, TypePrioritized, time.Now(), func(Result) time.Time { return time.Now() })

	assert.Equal(t, domain.DocPersonalityProfile, ranked[0].Document.DocType)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 2, ranked[1].Rank)
}

func TestApplyRankingRecencyWeightedBoostsNewer(t *testing.T) {
	now := time.Now()
	results := []Result{
		{Document: domain.Document{ID: "old"}, SimilarityScore: 0.7},
		{Document: domain.Document{ID: "new"}, SimilarityScore: 0.69},
	}
	created := map[string]time.Time{"old": now.Add(-60 * 24 * time.Hour), "new": now.Add(-1 * time.Hour)}

	ranked := applyRanking(results, RecencyWeighted, now, func(r Result) time.Time { return created[r.Document.ID] })

	assert.Equal(t, "new", ranked[0].Document.ID)
}

func TestApplyRankingSimilarityOnlySortsByScore(t *testing.T) {
	results := []Result{
		{Document: domain.Document{ID: "a"}, SimilarityScore: 0.5},
		{Document: domain.Document{ID: "b"}, SimilarityScore: 0.9},
	}

	ranked := applyRanking(results, SimilarityOnly, time.Now(), func(Result) time.Time { return time.Now() })

	assert.Equal(t, "b", ranked[0].Document.ID)
	assert.Equal(t, "a", ranked[1].Document.ID)
}

func TestCacheKeyForStableAcrossEquivalentFilters(t *testing.T) {
	q1 := Query{UserID: "u1", Metric: Cosine, Threshold: 0.5, Limit: 10, Vector: []float32{0.1, 0.2}, DocTypeFilter: []domain.DocType{domain.DocThinkingSkills, domain.DocCareerRecommendations}}
	q2 := q1
	q2.DocTypeFilter = []domain.DocType{domain.DocCareerRecommendations, domain.DocThinkingSkills}

	assert.Equal(t, cacheKeyFor(q1), cacheKeyFor(q2))
}

func TestCacheKeyForDiffersOnThreshold(t *testing.T) {
	q1 := Query{UserID: "u1", Metric: Cosine, Threshold: 0.5, Limit: 10, Vector: []float32{0.1, 0.2}}
	q2 := q1
	q2.Threshold = 0.6

	assert.NotEqual(t, cacheKeyFor(q1), cacheKeyFor(q2))
}

func TestSimilarityExprUsesFixedSwitch(t *testing.T) {
	assert.Contains(t, similarityExpr(Cosine), "<=>")
	assert.Contains(t, similarityExpr(L2), "<->")
	assert.Contains(t, similarityExpr(InnerProduct), "<#>")
}
