package transform

import (
	"fmt"

	"github.com/aptrag/chatbot/domain"
)

// GenerateHypotheticalQuestions produces 1-5 Korean natural-language
// questions a user might ask to reach d's content (§4.F rule 3). The
// reference implementation allows either rule-based pattern matching
// or an LLM call; this uses rules, keyed on doc_type and sub_type.
func GenerateHypotheticalQuestions(d *domain.Document) []string {
	sub := d.Metadata.SubType

	switch d.DocType {
	case domain.DocPersonalityProfile:
		return []string{
			"내 성격 유형은 무엇인가요?",
			"나의 주요 성향을 알려주세요.",
			"성격 검사 결과를 설명해 주세요.",
		}
	case domain.DocThinkingSkills:
		return []string{
			"내 사고력 검사 결과는 어떤가요?",
			"내가 잘하는 사고 기술은 무엇인가요?",
		}
	case domain.DocCareerRecommendations:
		return []string{
			"나에게 어울리는 직업은 무엇인가요?",
			"추천 진로를 알려주세요.",
			"어떤 직업을 가지면 좋을까요?",
		}
	case domain.DocCompetencyAnalysis:
		return []string{
			"내 역량 분석 결과를 알려주세요.",
			"내가 가진 강점은 무엇인가요?",
		}
	case domain.DocLearningStyle:
		return []string{
			"나에게 맞는 학습 방법은 무엇인가요?",
			"내 학습 스타일을 설명해 주세요.",
		}
	case domain.DocUserProfile:
		return []string{
			"내 프로필을 알려주세요.",
		}
	case domain.DocPreferenceAnalysis:
		return preferenceQuestions(sub)
	default:
		return []string{"이 결과에 대해 더 알려주세요."}
	}
}

func preferenceQuestions(sub string) []string {
	switch {
	case sub == subCompletionSummary:
		return []string{"내 선호도 검사 완성도는 어느 정도인가요?"}
	case sub == subTestStats:
		return []string{"선호도 검사를 얼마나 완료했나요?", "검사 완료 상태를 알려주세요."}
	case sub == subPreferencesOverview:
		return []string{"내 선호도 분포는 어떻게 되나요?", "나의 관심 분야를 요약해 주세요."}
	case sub == subJobsOverview:
		return []string{"선호도 기반으로 어떤 직업을 추천하나요?"}
	case sub == subUnavailable:
		return []string{"내 선호도 분석 결과를 볼 수 있나요?", "선호도 데이터가 왜 없나요?"}
	case sub == subPartialAvailable:
		return []string{"선호도 분석이 왜 일부만 보이나요?"}
	case len(sub) > 5 && sub[:5] == "jobs_":
		name := sub[5:]
		return []string{fmt.Sprintf("%s 분야에 어울리는 직업은 무엇인가요?", name)}
	case len(sub) > 11 && sub[:11] == "preference_":
		return []string{"이 선호도에 대해 더 자세히 알려주세요."}
	default:
		return []string{"내 선호도 분석 결과를 알려주세요."}
	}
}
