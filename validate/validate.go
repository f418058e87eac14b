// Package validate implements the Data Validator (spec §4.E): three
// validation passes (query-results, documents, embeddings) at three
// strictness levels (basic, standard, strict).
package validate

import (
	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/legacyquery"
)

// Level is a validation strictness tier.
type Level string

const (
	Basic    Level = "basic"
	Standard Level = "standard"
	Strict   Level = "strict"
)

// Report is the structured output of a validation pass (§4.E "a
// structured report with counts, errors, warnings, and a boolean
// 'passed' flag").
type Report struct {
	Passed   bool
	Checked  int
	Errors   []string
	Warnings []string
}

func (r *Report) addError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Passed = false
}

func (r *Report) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// criticalQueries must succeed under standard strictness (§4.E).
var criticalQueries = []string{
	"tendencyQuery", "topTendencyQuery", "thinkingSkillsQuery", "careerRecommendationQuery",
}

// QueryResults validates the legacy query result map (§4.E "Query-
// results pass").
func QueryResults(results map[string]legacyquery.Result, level Level) Report {
	report := Report{Passed: true, Checked: len(results)}

	successCount := 0
	for _, name := range criticalQueries {
		res, ok := results[name]
		if ok && res.Err == nil {
			successCount++
			continue
		}
		switch level {
		case Strict:
			report.addError("critical query failed or missing: " + name)
		case Standard:
			report.addError("critical query failed or missing: " + name)
		default: // Basic
			report.addWarning("critical query failed or missing: " + name)
		}
	}
	if level == Basic && successCount == 0 {
		report.addError("no critical query succeeded")
	}

	if level == Strict {
		for name, res := range results {
			if res.Err != nil {
				report.addError("query failed: " + name)
			}
		}
	}

	for name, res := range results {
		for _, row := range res.Rows {
			validateRowSanity(&report, name, row)
		}
	}

	return report
}

func validateRowSanity(report *Report, queryName string, row legacyquery.Row) {
	if v, ok := numeric(row["score"]); ok && (v < 0 || v > 100) {
		report.addWarning(queryName + ": score out of range [0,100]")
	}
	if v, ok := numeric(row["percentile"]); ok && (v < 0 || v > 100) {
		report.addWarning(queryName + ": percentile out of range [0,100]")
	}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// requiredDocTypes under standard strictness (§4.E). The orchestrator
// runs in the "at least one valid document" relaxed posture by default
// (§9 Design Notes).
var requiredDocTypes = []domain.DocType{
	domain.DocPersonalityProfile, domain.DocThinkingSkills, domain.DocCareerRecommendations,
}

// Documents validates a transformed-document set (§4.E "Documents
// pass"). relaxed mirrors the orchestrator's actually-used posture that
// downgrades the required-types check to "at least one valid document".
func Documents(docs []domain.Document, level Level, relaxed bool) Report {
	report := Report{Passed: true, Checked: len(docs)}

	present := make(map[domain.DocType]bool)
	validCount := 0
	for _, d := range docs {
		if len(d.Content) == 0 {
			report.addError("document has empty content: " + d.Key())
			continue
		}
		if len(d.SummaryText) < 10 {
			report.addError("document summary_text too short: " + d.Key())
			continue
		}
		validCount++
		present[d.DocType] = true
	}

	if level != Basic {
		if relaxed {
			if validCount == 0 {
				report.addError("no valid documents produced")
			}
		} else {
			for _, dt := range requiredDocTypes {
				if !present[dt] {
					report.addError("required document type missing: " + string(dt))
				}
			}
		}
	}

	return report
}

// Embeddings validates embedding vectors on a document set (§4.E
// "Embeddings pass"). dimension is the registered fixed dimension.
func Embeddings(docs []domain.Document, dimension int) Report {
	report := Report{Passed: true, Checked: len(docs)}

	seenDims := make(map[int]bool)
	for _, d := range docs {
		seenDims[len(d.Embedding)] = true
		if len(d.Embedding) != dimension {
			report.addError("embedding dimension mismatch: " + d.Key())
			continue
		}
		if isZeroVector(d.Embedding) {
			report.addWarning("all-zero embedding (fallback insertion): " + d.Key())
		}
	}
	if len(seenDims) > 1 {
		report.addError("inconsistent embedding dimensions across document set")
	}
	return report
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
