package contextbuilder

import (
	"fmt"
	"strings"

	"github.com/aptrag/chatbot/domain"
)

const summaryFallbackLen = 100

// extractKeyPoints pulls the few most salient facts out of a document's
// content, keyed by doc type (§4.J "key-point extraction"). Falls back
// to a truncated summary when the content shape doesn't match what's
// expected for the type.
func extractKeyPoints(doc domain.Document) []string {
	var points []string

	switch doc.DocType {
	case domain.DocPersonalityProfile:
		if primary, ok := namedEntry(doc.Content["primary_tendency"]); ok {
			points = append(points, "주요 성향: "+primary)
		}
		if secondary, ok := namedEntry(doc.Content["secondary_tendency"]); ok {
			points = append(points, "보조 성향: "+secondary)
		}
		for i, t := range topEntries(doc.Content["top_tendencies"], 3) {
			points = append(points, fmt.Sprintf("%d위: %s (%s점)", i+1, t.name, t.score))
		}

	case domain.DocThinkingSkills:
		for _, s := range topEntries(doc.Content["skills"], 3) {
			points = append(points, fmt.Sprintf("%s: %s점", s.name, s.score))
		}

	case domain.DocCareerRecommendations:
		for _, j := range topEntries(doc.Content["recommended_jobs"], 3) {
			points = append(points, "추천 직업: "+j.name)
		}

	case domain.DocCompetencyAnalysis:
		for _, c := range topEntries(doc.Content["top_competencies"], 3) {
			points = append(points, fmt.Sprintf("핵심 역량: %s (%s%%)", c.name, c.score))
		}
	}

	if len(points) == 0 {
		text := doc.SummaryText
		if len(text) > summaryFallbackLen {
			text = text[:summaryFallbackLen] + "..."
		}
		if text != "" {
			points = []string{text}
		}
	}

	if len(points) > 5 {
		points = points[:5]
	}
	return points
}

// createContentSummary returns an existing short summary if one is
// available, otherwise builds a per-type one-liner (§4.J
// "content_summary").
func createContentSummary(doc domain.Document) string {
	if doc.SummaryText != "" && len(doc.SummaryText) <= 200 {
		return doc.SummaryText
	}

	switch doc.DocType {
	case domain.DocPersonalityProfile:
		primary, _ := namedEntry(doc.Content["primary_tendency"])
		secondary, _ := namedEntry(doc.Content["secondary_tendency"])
		return fmt.Sprintf("주요 성향: %s, 보조 성향: %s", primary, secondary)

	case domain.DocThinkingSkills:
		names := entryNames(doc.Content["skills"], 2)
		return "주요 사고능력: " + strings.Join(names, ", ")

	case domain.DocCareerRecommendations:
		names := entryNames(doc.Content["recommended_jobs"], 2)
		return "추천 직업: " + strings.Join(names, ", ")
	}

	if doc.SummaryText != "" {
		text := doc.SummaryText
		if len(text) > 150 {
			text = text[:150] + "..."
		}
		return text
	}
	return "검사 결과 데이터"
}

type namedScore struct {
	name  string
	score string
}

func namedEntry(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := m["name"].(string)
	return name, ok
}

func topEntries(v any, n int) []namedScore {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	if len(list) > n {
		list = list[:n]
	}
	out := make([]namedScore, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		out = append(out, namedScore{name: name, score: stringify(m["score"], m["percentile"])})
	}
	return out
}

func entryNames(v any, n int) []string {
	var names []string
	for _, e := range topEntries(v, n) {
		names = append(names, e.name)
	}
	return names
}

func stringify(score, percentile any) string {
	if score != nil {
		return fmt.Sprintf("%v", score)
	}
	if percentile != nil {
		return fmt.Sprintf("%v", percentile)
	}
	return ""
}
