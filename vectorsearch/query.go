// Package vectorsearch implements the Vector Search Service (spec
// §4.H): similarity query builder, ranking, result cache, retry, and
// performance bookkeeping, directly against Postgres+pgvector via pgx.
package vectorsearch

import (
	"time"

	"github.com/aptrag/chatbot/domain"
)

// Metric is a similarity metric (§4.H).
type Metric string

const (
	Cosine        Metric = "cosine"
	L2            Metric = "L2"
	InnerProduct  Metric = "inner_product"
)

// RankingStrategy adjusts raw similarity scores before results are
// returned (§4.H).
type RankingStrategy string

const (
	SimilarityOnly  RankingStrategy = "similarity_only"
	RecencyWeighted RankingStrategy = "recency_weighted"
	TypePrioritized RankingStrategy = "type_prioritized"
	Hybrid          RankingStrategy = "hybrid"
)

// Query is a similarity_search request (§4.H "Query contract").
type Query struct {
	UserID          string
	Vector          []float32
	Metric          Metric
	Threshold       float64
	Limit           int
	DocTypeFilter   []domain.DocType
	RankingStrategy RankingStrategy
	TextQuery       string // hybrid_search's optional text query, attached to result metadata only
}

// Result is one ranked search hit.
type Result struct {
	Document        domain.Document
	SimilarityScore float64
	AdjustedScore   float64
	Rank            int
	Metadata        map[string]any
}

// typeWeights is the full per-type table used by type_prioritized
// (§4.H).
var typeWeights = map[domain.DocType]float64{
	domain.DocPersonalityProfile:    1.2,
	domain.DocCareerRecommendations: 1.1,
	domain.DocThinkingSkills:        1.0,
	domain.DocCompetencyAnalysis:    0.9,
	domain.DocLearningStyle:         0.8,
	domain.DocPreferenceAnalysis:    0.7,
}

// hybridTypeWeights is the smaller table used by the hybrid strategy
// (§4.H).
var hybridTypeWeights = map[domain.DocType]float64{
	domain.DocPersonalityProfile:    1.1,
	domain.DocCareerRecommendations: 1.05,
	domain.DocThinkingSkills:        1.0,
	domain.DocCompetencyAnalysis:    0.95,
	domain.DocLearningStyle:         0.9,
	domain.DocPreferenceAnalysis:    0.85,
}

func typeWeight(dt domain.DocType) float64 {
	if w, ok := typeWeights[dt]; ok {
		return w
	}
	return 1.0
}

func hybridTypeWeight(dt domain.DocType) float64 {
	if w, ok := hybridTypeWeights[dt]; ok {
		return w
	}
	return 1.0
}

// applyRanking adjusts AdjustedScore on each result per q.RankingStrategy,
// then re-sorts and reassigns Rank (§4.H).
func applyRanking(results []Result, strategy RankingStrategy, now time.Time, createdAt func(Result) time.Time) []Result {
	for i := range results {
		score := results[i].SimilarityScore
		switch strategy {
		case RecencyWeighted:
			ageDays := now.Sub(createdAt(results[i])).Hours() / 24
			boost := 0.0
			if ageDays < 30 {
				boost = 1 - ageDays/30
			}
			score *= 1 + 0.1*boost
		case TypePrioritized:
			score *= typeWeight(results[i].Document.DocType)
		case Hybrid:
			ageDays := now.Sub(createdAt(results[i])).Hours() / 24
			boost := 0.0
			if ageDays < 30 {
				boost = 1 - ageDays/30
			}
			score *= 1 + 0.05*boost
			score *= hybridTypeWeight(results[i].Document.DocType)
		}
		results[i].AdjustedScore = score
	}

	sortByAdjustedScoreDesc(results)
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

func sortByAdjustedScoreDesc(results []Result) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].AdjustedScore > results[j-1].AdjustedScore; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}
