package transform

import (
	"fmt"

	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/legacyquery"
)

// unavailableDoc builds the "graceful degradation" document every
// chunker falls back to when its inputs are missing or malformed
// (§4.F rule 4).
func unavailableDoc(docType domain.DocType, subType, reason string) domain.Document {
	return domain.Document{
		DocType:     docType,
		SummaryText: fmt.Sprintf("%s 데이터를 아직 사용할 수 없습니다.", subType),
		Content: map[string]any{
			"sub_type": subType,
			"reason":   reason,
		},
		Metadata: domain.DocumentMetadata{
			SubType:         subType,
			CompletionLevel: domain.CompletionNone,
		},
	}
}

func rowsOf(results map[string]legacyquery.Result, query string) []legacyquery.Row {
	res, ok := results[query]
	if !ok || res.Err != nil {
		return nil
	}
	return res.Rows
}

func str(row legacyquery.Row, key string) string {
	if v, ok := row[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func num(row legacyquery.Row, key string) float64 {
	v, ok := row[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func chunkUserProfile(results map[string]legacyquery.Result) []domain.Document {
	rows := rowsOf(results, "tendencyQuery")
	if len(rows) == 0 {
		return []domain.Document{unavailableDoc(domain.DocUserProfile, "unavailable", "tendencyQuery empty")}
	}
	row := rows[0]
	name := str(row, "tendency_name")
	return []domain.Document{{
		DocType:     domain.DocUserProfile,
		SummaryText: fmt.Sprintf("사용자 프로필: 주요 성향 %s", name),
		Content:     map[string]any{"sub_type": "profile", "tendency_name": name},
		Metadata: domain.DocumentMetadata{
			SubType:         "profile",
			CompletionLevel: domain.CompletionHigh,
			DataSources:     []string{"tendencyQuery"},
		},
	}}
}

func chunkPersonality(results map[string]legacyquery.Result) []domain.Document {
	rows := rowsOf(results, "topTendencyQuery")
	if len(rows) == 0 {
		return []domain.Document{unavailableDoc(domain.DocPersonalityProfile, "unavailable", "topTendencyQuery empty")}
	}

	primary := rows[0]
	summary := fmt.Sprintf("주요 성향: %s (순위 %d, 점수 %.0f)", str(primary, "tendency_name"), int(num(primary, "rank")), num(primary, "score"))

	content := map[string]any{"sub_type": "top_tendencies", "tendencies": rowsToSlice(rows)}
	return []domain.Document{{
		DocType:     domain.DocPersonalityProfile,
		SummaryText: summary,
		Content:     content,
		Metadata: domain.DocumentMetadata{
			SubType:         "top_tendencies",
			CompletionLevel: levelForCount(len(rows), 3),
			DataSources:     []string{"topTendencyQuery"},
		},
	}}
}

func chunkThinkingSkills(results map[string]legacyquery.Result) []domain.Document {
	rows := rowsOf(results, "thinkingSkillsQuery")
	if len(rows) == 0 {
		return []domain.Document{unavailableDoc(domain.DocThinkingSkills, "unavailable", "thinkingSkillsQuery empty")}
	}

	top := topN(rows, "score", 3)
	summary := "사고 기술 분석: "
	for i, r := range top {
		if i > 0 {
			summary += ", "
		}
		summary += fmt.Sprintf("%s(%.0f점)", str(r, "skill_name"), num(r, "score"))
	}

	return []domain.Document{{
		DocType:     domain.DocThinkingSkills,
		SummaryText: summary,
		Content:     map[string]any{"sub_type": "skills", "skills": rowsToSlice(rows)},
		Metadata: domain.DocumentMetadata{
			SubType:         "skills",
			CompletionLevel: levelForCount(len(rows), 5),
			DataSources:     []string{"thinkingSkillsQuery"},
		},
	}}
}

func chunkCareer(results map[string]legacyquery.Result) []domain.Document {
	rows := rowsOf(results, "careerRecommendationQuery")
	if len(rows) == 0 {
		return []domain.Document{unavailableDoc(domain.DocCareerRecommendations, "unavailable", "careerRecommendationQuery empty")}
	}

	top := topN(rows, "score", 3)
	summary := "추천 진로: "
	for i, r := range top {
		if i > 0 {
			summary += ", "
		}
		summary += str(r, "job_name")
	}

	return []domain.Document{{
		DocType:     domain.DocCareerRecommendations,
		SummaryText: summary,
		Content:     map[string]any{"sub_type": "recommendations", "jobs": rowsToSlice(rows)},
		Metadata: domain.DocumentMetadata{
			SubType:         "recommendations",
			CompletionLevel: levelForCount(len(rows), 5),
			DataSources:     []string{"careerRecommendationQuery"},
		},
	}}
}

func chunkCompetency(results map[string]legacyquery.Result) []domain.Document {
	rows := rowsOf(results, "competencyQuery")
	if len(rows) == 0 {
		return []domain.Document{unavailableDoc(domain.DocCompetencyAnalysis, "unavailable", "competencyQuery empty")}
	}

	top := topN(rows, "percentile", 3)
	summary := "역량 분석: "
	for i, r := range top {
		if i > 0 {
			summary += ", "
		}
		summary += fmt.Sprintf("%s(상위 %.0f%%)", str(r, "competency_name"), 100-num(r, "percentile"))
	}

	return []domain.Document{{
		DocType:     domain.DocCompetencyAnalysis,
		SummaryText: summary,
		Content:     map[string]any{"sub_type": "competencies", "competencies": rowsToSlice(rows)},
		Metadata: domain.DocumentMetadata{
			SubType:         "competencies",
			CompletionLevel: levelForCount(len(rows), 5),
			DataSources:     []string{"competencyQuery"},
		},
	}}
}

func chunkLearningStyle(results map[string]legacyquery.Result) []domain.Document {
	rows := rowsOf(results, "learningStyleQuery")
	if len(rows) == 0 {
		return []domain.Document{unavailableDoc(domain.DocLearningStyle, "unavailable", "learningStyleQuery empty")}
	}
	row := rows[0]
	return []domain.Document{{
		DocType:     domain.DocLearningStyle,
		SummaryText: fmt.Sprintf("학습 스타일: %s", str(row, "style_name")),
		Content:     map[string]any{"sub_type": "style", "style": rowsToSlice(rows)},
		Metadata: domain.DocumentMetadata{
			SubType:         "style",
			CompletionLevel: domain.CompletionHigh,
			DataSources:     []string{"learningStyleQuery"},
		},
	}}
}

func rowsToSlice(rows []legacyquery.Row) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = map[string]any(r)
	}
	return out
}

func topN(rows []legacyquery.Row, key string, n int) []legacyquery.Row {
	sorted := make([]legacyquery.Row, len(rows))
	copy(sorted, rows)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && num(sorted[j], key) > num(sorted[j-1], key); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

func levelForCount(count, full int) domain.CompletionLevel {
	switch {
	case count == 0:
		return domain.CompletionNone
	case count < full/2:
		return domain.CompletionLow
	case count < full:
		return domain.CompletionMedium
	default:
		return domain.CompletionHigh
	}
}
