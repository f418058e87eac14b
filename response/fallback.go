package response

import (
	"strings"

	"github.com/aptrag/chatbot/contextbuilder"
	"github.com/aptrag/chatbot/domain"
)

// extractTopic classifies a question into one of six coarse topics,
// used both for conversation-memory tracking and fallback selection
// (§4.K "Topic extraction").
func extractTopic(question string) string {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, preferenceKeywords...):
		return "preference"
	case containsAny(q, "성격", "personality"):
		return "personality"
	case containsAny(q, "직업", "진로", "career"):
		return "career"
	case containsAny(q, "사고", "능력", "thinking"):
		return "thinking"
	case containsAny(q, "학습", "공부", "learning"):
		return "learning"
	default:
		return "general"
	}
}

// generatePreferenceFocusedFallback builds a response that redirects a
// preference question toward whatever other document types actually
// retrieved (§4.K "Fallback generation").
func generatePreferenceFocusedFallback(cc *contextbuilder.ConstructedContext) string {
	available := map[domain.DocType]bool{}
	for _, d := range cc.RetrievedDocuments {
		if d.Document.DocType != domain.DocPreferenceAnalysis {
			available[d.Document.DocType] = true
		}
	}

	base := "현재 선호도 분석 데이터에 접근할 수 없지만, "

	switch {
	case available[domain.DocPersonalityProfile]:
		base += "성격 분석 결과를 통해 선호하는 활동 유형을 파악할 수 있어요. " +
			"'내 성격에 맞는 활동은 무엇인가요?' 같은 질문을 해보시면 " +
			"성격 특성을 바탕으로 관심사를 추론해드릴 수 있습니다."
	case available[domain.DocThinkingSkills]:
		base += "사고능력 분석 결과를 활용해 강점 영역과 관련된 관심사를 찾아볼 수 있어요. " +
			"'내 사고능력 강점은 무엇인가요?' 질문으로 시작해보세요."
	case available[domain.DocCompetencyAnalysis]:
		base += "역량 분석 결과를 통해 자연스럽게 끌리는 분야를 확인할 수 있어요. " +
			"'내 핵심 역량은 무엇인가요?' 질문을 해보시면 도움이 될 것입니다."
	case available[domain.DocCareerRecommendations]:
		base += "진로 추천 결과를 통해 관심 분야를 역추적할 수 있어요. " +
			"'추천된 직업들의 공통점은 무엇인가요?' 같은 질문을 해보세요."
	default:
		base += "다른 검사 결과가 준비되면 그를 바탕으로 선호도와 관련된 " +
			"인사이트를 제공해드릴 수 있습니다. 적성검사를 완료하셨는지 확인해주세요."
	}

	return base
}

// generateFallback produces the last-resort response used when the
// LLM call itself fails, after retries are exhausted (§4.K "Failure
// path").
func generateFallback(cc *contextbuilder.ConstructedContext) string {
	topic := extractTopic(cc.UserQuestion)

	if topic == "preference" {
		return generatePreferenceFocusedFallback(cc)
	}
	switch topic {
	case "personality":
		return "현재 상세 데이터를 불러오는 데 문제가 있어요. 성격 분석의 핵심 포인트를 먼저 안내드릴게요: " +
			"강점, 보완점, 추천 활동을 중심으로 스스로의 패턴을 관찰해보세요."
	case "career":
		return "지금은 실시간 데이터를 가져오지 못했어요. 진로 추천을 위해서는 강점과 흥미를 기준으로 " +
			"2~3개의 직무를 후보로 두고, 필요한 역량과 학습 경로를 역으로 계획해보는 것을 권장합니다."
	default:
		return "죄송합니다. 답변을 생성하는데 문제가 있습니다. 잠시 후 다시 시도해 주세요."
	}
}
