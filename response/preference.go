package response

import (
	"regexp"
	"strings"

	"github.com/aptrag/chatbot/contextbuilder"
	"github.com/aptrag/chatbot/domain"
)

// completionLevel is the overall state of a question's preference-data
// support, independent of domain.CompletionLevel (which describes a
// single document, not a cross-document analysis) (§4.K "Preference
// guardrails").
type completionLevel string

const (
	completionMissing  completionLevel = "missing"
	completionPartial  completionLevel = "partial"
	completionComplete completionLevel = "complete"
)

type dataQuality string

const (
	dataQualityNone   dataQuality = "none"
	dataQualityLow    dataQuality = "low"
	dataQualityMedium dataQuality = "medium"
	dataQualityHigh   dataQuality = "high"
)

// preferenceAvailability is the result of cross-document analysis over
// a question's PREFERENCE_ANALYSIS documents.
type preferenceAvailability struct {
	HasPreferenceDocs   bool
	CompletionLevel     completionLevel
	AvailableComponents []string
	MissingComponents   []string
	DataQuality         dataQuality
}

var preferenceKeywords = []string{"선호", "preference", "좋아", "관심", "취향", "이미지"}

// isPreferenceRelated mirrors the original's template-or-keyword check.
// This repo's prompt-template set has no dedicated PREFERENCE_* members
// (see DESIGN.md), so the check is keyword-only here.
func isPreferenceRelated(cc *contextbuilder.ConstructedContext) bool {
	q := strings.ToLower(cc.UserQuestion)
	for _, kw := range preferenceKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

var fallbackIndicators = []string{"데이터 준비 중", "찾을 수 없습니다", "준비되지 않았습니다"}

// analyzePreferenceDataAvailability inspects the PREFERENCE_ANALYSIS
// documents in docs and reports what components (stats/preferences/
// jobs) are actually populated.
func analyzePreferenceDataAvailability(docs []contextbuilder.RetrievedDocument) preferenceAvailability {
	var preferenceDocs []contextbuilder.RetrievedDocument
	for _, d := range docs {
		if d.Document.DocType == domain.DocPreferenceAnalysis {
			preferenceDocs = append(preferenceDocs, d)
		}
	}

	if len(preferenceDocs) == 0 {
		return preferenceAvailability{
			HasPreferenceDocs: false,
			CompletionLevel:   completionMissing,
			MissingComponents: []string{"stats", "preferences", "jobs"},
			DataQuality:       dataQualityNone,
		}
	}

	availableSet := map[string]bool{}
	missingSet := map[string]bool{}
	sawComplete := false

	for _, rd := range preferenceDocs {
		content := rd.Document.Content
		if rd.Document.Metadata.CompletionLevel == domain.CompletionComplete {
			sawComplete = true
		}

		if hasNonEmpty(content, "stats") {
			availableSet["stats"] = true
		} else {
			missingSet["stats"] = true
		}
		if hasNonEmptyList(content, "preferences") {
			availableSet["preferences"] = true
		} else {
			missingSet["preferences"] = true
		}
		if hasNonEmptyList(content, "jobs") {
			availableSet["jobs"] = true
		} else {
			missingSet["jobs"] = true
		}

		if containsFallbackIndicator(rd.Document.SummaryText) || containsFallbackIndicator(rd.Document.SearchableText) {
			missingSet["stats"] = true
			missingSet["preferences"] = true
			missingSet["jobs"] = true
		}
	}

	available := setToSlice(availableSet)
	missing := setToSlice(missingSet)

	var level completionLevel
	var quality dataQuality
	switch {
	case sawComplete && len(missing) == 0:
		level = completionComplete
		quality = dataQualityHigh
	case len(available) > 0:
		level = completionPartial
		if len(available) >= 2 {
			quality = dataQualityMedium
		} else {
			quality = dataQualityLow
		}
	default:
		level = completionMissing
		quality = dataQualityNone
	}

	return preferenceAvailability{
		HasPreferenceDocs:   true,
		CompletionLevel:     level,
		AvailableComponents: available,
		MissingComponents:   missing,
		DataQuality:         quality,
	}
}

func hasNonEmpty(content map[string]any, key string) bool {
	v, ok := content[key]
	return ok && v != nil
}

func hasNonEmptyList(content map[string]any, key string) bool {
	v, ok := content[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	default:
		return true
	}
}

func containsFallbackIndicator(text string) bool {
	for _, ind := range fallbackIndicators {
		if strings.Contains(text, ind) {
			return true
		}
	}
	return false
}

func setToSlice(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

type hallucinationPattern struct {
	Type     string
	Severity string
}

var specificDataPatterns = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`선호도.*?(\d+)위`), "specific_ranking"},
	{regexp.MustCompile(`이미지.*?선호.*?(\d+)%`), "specific_percentage"},
	{regexp.MustCompile(`선호.*?점수.*?(\d+)점`), "specific_score"},
	{regexp.MustCompile(`응답률.*?(\d+)%`), "response_rate"},
	{regexp.MustCompile(`총.*?(\d+)개.*?이미지`), "image_count"},
	{regexp.MustCompile(`가장.*?선호.*?(색상|형태|스타일|패턴)`), "specific_preference_type"},
	{regexp.MustCompile(`(\d+)번째.*?선호`), "numbered_preference"},
	{regexp.MustCompile(`선호도.*?상위.*?(\d+)%`), "percentile_claim"},
}

var definitivePatterns = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`당신의.*?선호도는.*?(확실히|명확히)`), "definitive_claim"},
	{regexp.MustCompile(`가장.*?선호하는.*?것은`), "absolute_preference"},
	{regexp.MustCompile(`선호.*?순위는.*?다음과 같습니다`), "ranking_claim"},
	{regexp.MustCompile(`확실히.*?선호`), "certainty_claim"},
	{regexp.MustCompile(`분명히.*?(좋아|선호)`), "certainty_preference"},
}

// detectPreferenceHallucinationPatterns flags response text that makes
// specific or definitive preference claims unsupported by the
// available data (§4.K "Hallucination guard").
func detectPreferenceHallucinationPatterns(text string, availability preferenceAvailability) []hallucinationPattern {
	var detected []hallucinationPattern

	if availability.CompletionLevel == completionMissing || availability.CompletionLevel == completionPartial {
		severity := "medium"
		if availability.CompletionLevel == completionMissing {
			severity = "high"
		}
		for _, p := range specificDataPatterns {
			if p.re.MatchString(text) {
				detected = append(detected, hallucinationPattern{Type: p.name, Severity: severity})
			}
		}
	}

	if availability.DataQuality == dataQualityNone || availability.DataQuality == dataQualityLow {
		for _, p := range definitivePatterns {
			if p.re.MatchString(text) {
				detected = append(detected, hallucinationPattern{Type: p.name, Severity: "high"})
			}
		}
	}

	return detected
}

// generateDataAvailabilityDisclaimer builds the warning/tip appendix
// for a response, or "" if nothing was detected.
func generateDataAvailabilityDisclaimer(availability preferenceAvailability, detected []hallucinationPattern) string {
	if len(detected) == 0 {
		return ""
	}

	hasHighSeverity := false
	for _, p := range detected {
		if p.Severity == "high" {
			hasHighSeverity = true
			break
		}
	}

	switch {
	case availability.CompletionLevel == completionMissing:
		return "\n\n⚠️ 중요: 현재 선호도 분석 데이터가 준비되지 않아 구체적인 수치나 순위는 " +
			"제공할 수 없습니다. 위 내용은 일반적인 가이드라인이며, 정확한 분석을 위해서는 " +
			"다른 검사 결과(성격 분석, 사고능력 등)를 참고하시기 바랍니다."
	case availability.CompletionLevel == completionPartial:
		disclaimer := "\n\n💡 데이터 상태 안내: 현재 " + strings.Join(availability.AvailableComponents, ", ") +
			" 데이터는 준비되어 있으나, " + strings.Join(availability.MissingComponents, ", ") + " 데이터는 아직 준비 중입니다."
		if hasHighSeverity {
			disclaimer += " 완전한 분석을 위해서는 추가 검사나 다른 분석 결과를 함께 참고하시기 바랍니다."
		}
		return disclaimer
	case availability.DataQuality == dataQualityLow && hasHighSeverity:
		return "\n\n💡 참고: 현재 제한적인 선호도 데이터를 바탕으로 한 분석입니다. " +
			"보다 정확한 인사이트를 위해 성격 분석이나 역량 분석 결과도 함께 확인해보세요."
	}
	return ""
}

// validatePreferenceResponse appends a hallucination disclaimer to
// text when this is a preference question and suspect patterns were
// found.
func validatePreferenceResponse(text string, cc *contextbuilder.ConstructedContext, availability preferenceAvailability) string {
	if !isPreferenceRelated(cc) {
		return text
	}
	detected := detectPreferenceHallucinationPatterns(text, availability)
	if disclaimer := generateDataAvailabilityDisclaimer(availability, detected); disclaimer != "" {
		text += disclaimer
	}
	return text
}
