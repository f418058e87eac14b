package response

import (
	"regexp"
	"strings"

	"github.com/aptrag/chatbot/contextbuilder"
)

var markdownMarkers = regexp.MustCompile("[*_`#>]+")
var whitespaceRun = regexp.MustCompile(`\s+`)
var spaceBeforePunct = regexp.MustCompile(`\s+([.,!?])`)
var doubleSpace = regexp.MustCompile(`\s{2,}`)
var spaceBeforeJeom = regexp.MustCompile(`\s+점`)

const emptyResponseFallback = "죄송합니다. 현재 답변을 생성할 수 없습니다. 다시 시도해 주세요."

// postProcess runs the cleanup and enhancement pipeline over a raw LLM
// completion (§4.K "Post-processing").
func postProcess(raw string, cc *contextbuilder.ConstructedContext, availability preferenceAvailability, isPreferenceQuestion bool) string {
	if raw == "" {
		return emptyResponseFallback
	}

	text := markdownMarkers.ReplaceAllString(raw, "")
	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	text = fixKoreanFormatting(text)

	text = validatePreferenceResponse(text, cc, availability)

	text = enhanceWithStatisticalContext(text, cc)
	text = enhanceWithLearningConnections(text, cc)
	text = enhanceWithPreferenceAlternatives(text, cc, availability, isPreferenceQuestion)

	return text
}

func fixKoreanFormatting(text string) string {
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = doubleSpace.ReplaceAllString(text, " ")
	text = spaceBeforeJeom.ReplaceAllString(text, "점")
	text = strings.ReplaceAll(text, " 입니다", "입니다")
	text = strings.ReplaceAll(text, " .", ".")
	return strings.TrimSpace(text)
}

var statisticalTemplates = map[contextbuilder.PromptTemplate]bool{
	contextbuilder.TemplateStatisticalInfo:    true,
	contextbuilder.TemplatePersonalityCompare: true,
	contextbuilder.TemplateGeneralCompare:     true,
}

func enhanceWithStatisticalContext(text string, cc *contextbuilder.ConstructedContext) string {
	if statisticalTemplates[cc.PromptTemplate] {
		return text + "\n\n참고: 점수, 백분위, 순위 등 통계 정보는 검사 결과 데이터에 기반합니다."
	}
	return text
}

var learningConnectionTemplates = map[contextbuilder.PromptTemplate]bool{
	contextbuilder.TemplateLearningStyleRecommend: true,
	contextbuilder.TemplatePersonalityExplain:     true,
}

func enhanceWithLearningConnections(text string, cc *contextbuilder.ConstructedContext) string {
	if learningConnectionTemplates[cc.PromptTemplate] {
		return text + "\n\n학습 팁: 자신의 강점을 활용한 공부 전략을 적용해보세요."
	}
	return text
}

// enhanceWithPreferenceAlternatives prepends an acknowledgment and
// appends alternative-analysis suggestions for preference questions
// whose data is missing or partial. This repo has no dedicated
// PREFERENCE_MISSING/PARTIAL templates (see DESIGN.md), so the gate is
// isPreferenceQuestion plus the availability verdict rather than a
// template-identity check.
func enhanceWithPreferenceAlternatives(text string, cc *contextbuilder.ConstructedContext, availability preferenceAvailability, isPreferenceQuestion bool) string {
	if !isPreferenceQuestion {
		return text
	}
	if availability.CompletionLevel == completionComplete {
		return text
	}

	acknowledgment := preferenceAcknowledgment(availability)
	if acknowledgment != "" && !strings.Contains(text, acknowledgment) {
		text = acknowledgment + text
	}

	switch availability.CompletionLevel {
	case completionMissing:
		text += alternativeAnalysisSuggestions(cc.UserQuestion)
	case completionPartial:
		text += "\n\n💡 완전한 선호도 분석을 위한 팁:\n" +
			"• 다른 검사 결과(성격, 사고능력, 역량)와 함께 종합적으로 해석해보세요\n" +
			"• 시간이 지나면 더 완전한 선호도 데이터가 준비될 수 있습니다\n" +
			"• 현재 결과만으로도 의미 있는 인사이트를 얻을 수 있어요"
	}

	return text
}

var componentLabels = map[string]string{
	"stats":       "통계 정보",
	"preferences": "선호도 순위",
	"jobs":        "직업 추천",
}

func preferenceAcknowledgment(availability preferenceAvailability) string {
	switch availability.CompletionLevel {
	case completionMissing:
		return "현재 선호도 분석 데이터가 준비되지 않았습니다. " +
			"하지만 다른 검사 결과를 통해 유사한 인사이트를 얻을 수 있어요! "
	case completionPartial:
		if len(availability.AvailableComponents) > 0 {
			labels := make([]string, 0, len(availability.AvailableComponents))
			for _, c := range availability.AvailableComponents {
				if label, ok := componentLabels[c]; ok {
					labels = append(labels, label)
				} else {
					labels = append(labels, c)
				}
			}
			return "현재 " + strings.Join(labels, ", ") + "는 준비되어 있지만, " +
				"일부 선호도 데이터가 아직 처리 중입니다. " +
				"준비된 데이터를 바탕으로 분석해드릴게요. "
		}
		return "선호도 분석 데이터가 부분적으로만 준비되어 있습니다. " +
			"현재 가능한 범위에서 분석해드리겠습니다. "
	}
	return ""
}

func alternativeAnalysisSuggestions(userQuestion string) string {
	q := strings.ToLower(userQuestion)

	var focus string
	switch {
	case containsAny(q, "직업", "진로", "career", "job"):
		focus = "career"
	case containsAny(q, "활동", "취미", "관심", "activity"):
		focus = "activity"
	case containsAny(q, "학습", "공부", "study"):
		focus = "learning"
	default:
		focus = "general"
	}

	lines := []string{
		"\n\n🔍 대안 분석 방법:",
		"• 성격 분석 결과를 통해 선호하는 활동 유형을 파악해보세요",
		"• 사고능력 분석에서 강점 영역과 관련된 관심사를 찾아보세요",
		"• 역량 분석 결과로 자연스럽게 끌리는 분야를 확인해보세요",
	}

	switch focus {
	case "career":
		lines = append(lines,
			"• '내게 맞는 직업은 무엇인가요?' 질문으로 진로 추천을 받아보세요",
			"• '내 성격에 맞는 업무 환경은?' 같은 질문도 도움이 됩니다")
	case "activity":
		lines = append(lines,
			"• '내 강점을 활용할 수 있는 활동은?' 질문을 해보세요",
			"• '어떤 취미가 나에게 맞을까요?' 같은 질문도 좋습니다")
	case "learning":
		lines = append(lines,
			"• '내게 맞는 학습 방법은?' 질문으로 맞춤 학습법을 알아보세요",
			"• '어떤 공부 방식이 효과적일까요?' 같은 질문도 유용합니다")
	default:
		lines = append(lines,
			"• '내 강점은 무엇인가요?' 또는 '어떤 활동이 나에게 맞나요?' 같은 질문을 해보세요",
			"• '내 성격 특성을 알려주세요' 질문으로 더 자세한 분석을 받아보세요")
	}

	return strings.Join(lines, "\n")
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
