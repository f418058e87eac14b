package question

import "strings"

// categoryKeywords mirrors the reference classifier's keyword table
// (§4.I); PREFERENCE_ANALYSIS core terms get a 2x weight in categorize.
var categoryKeywords = map[Category][]string{
	CategoryPersonality: {
		"성격", "성향", "기질", "personality", "tendency", "trait",
		"창의", "분석", "탐구", "안정", "보수", "수동",
		"primary", "secondary", "주요", "보조",
	},
	CategoryThinkingSkills: {
		"사고", "능력", "thinking", "cognitive", "skill", "ability",
		"언어", "수리", "공간", "추리", "지각", "기억", "처리",
		"verbal", "numerical", "spatial", "reasoning", "perceptual",
	},
	CategoryCareerRecommendations: {
		"직업", "진로", "career", "job", "profession", "work",
		"추천", "recommend", "suitable", "적합", "맞는",
	},
	CategoryLearningStyle: {
		"학습", "공부", "learning", "study", "education", "academic",
		"방법", "스타일", "style", "method", "approach",
	},
	CategoryCompetencyAnalysis: {
		"역량", "재능", "강점", "competency", "talent", "strength",
		"능력", "skill", "top", "상위", "우수",
	},
	CategoryPreferenceAnalysis: {
		"선호", "취향", "preference", "like", "interest", "favor",
		"이미지", "image", "picture", "visual", "선호도", "좋아하는",
		"관심", "흥미", "매력", "끌리는", "선택", "취미", "활동",
		"스타일", "패턴", "경향", "성향", "기호", "선호분석",
		"이미지선호", "선호검사", "선호결과", "선호도분석", "좋아",
		"어떤것", "무엇을", "뭘", "뭐를", "어떤활동", "어떤일",
		"취향분석",
	},
	CategoryGeneralComparison: {
		"비교", "compare", "comparison", "versus", "차이", "difference",
		"다른", "similar", "유사", "대비",
	},
	CategoryStatisticalInfo: {
		"통계", "백분위", "순위", "statistics", "percentile", "rank",
		"평균", "average", "mean", "score", "점수",
	},
}

// preferenceCoreTerms carry double weight within PREFERENCE_ANALYSIS
// (§4.I "PREFERENCE_ANALYSIS core terms carry a 2× weight").
var preferenceCoreTerms = map[string]bool{
	"선호": true, "선호도": true, "취향": true, "좋아하는": true, "preference": true,
}

var intentKeywords = map[Intent][]string{
	IntentExplain: {
		"설명", "의미", "뜻", "explain", "meaning", "what", "무엇",
		"어떤", "이란", "라는",
	},
	IntentCompare: {
		"비교", "compare", "차이", "difference", "다른", "similar",
		"대비", "versus", "보다",
	},
	IntentRecommend: {
		"추천", "recommend", "suggest", "좋은", "적합", "맞는",
		"어떤", "which", "what",
	},
	IntentAnalyze: {
		"분석", "analyze", "강점", "약점", "strength", "weakness",
		"특징", "characteristic", "어떻게",
	},
	IntentClarify: {
		"명확", "자세", "더", "clarify", "detail", "specific",
		"구체적", "정확",
	},
}

var followUpIndicators = []string{
	"그럼", "그러면", "그래서", "또", "그리고", "추가로",
	"then", "also", "additionally", "furthermore", "moreover",
	"what about", "how about", "그것", "이것", "that", "this",
}

var referencePronouns = []string{"그것", "이것", "저것", "that", "this", "it"}

// categorize scores every category by summed keyword weight and
// returns the winner with its confidence (§4.I rule: score/10 per
// keyword char length, min(score/2, 1) confidence).
func categorize(cleaned string) (Category, float64) {
	lower := strings.ToLower(cleaned)

	var best Category = CategoryUnknown
	var bestScore float64

	for category, keywords := range categoryKeywords {
		var score float64
		for _, kw := range keywords {
			kwLower := strings.ToLower(kw)
			if !strings.Contains(lower, kwLower) {
				continue
			}
			weight := float64(len([]rune(kw))) / 10
			if category == CategoryPreferenceAnalysis && preferenceCoreTerms[kw] {
				weight *= 2
			}
			score += weight
		}
		if score > bestScore {
			bestScore = score
			best = category
		}
	}

	if bestScore == 0 {
		return CategoryUnknown, 0
	}
	return best, minFloat(bestScore/2, 1)
}

// detectIntent forces FOLLOW_UP when the conversation is already
// underway and a follow-up indicator is present; otherwise scores the
// closed intent set the same way as categorize (§4.I).
func detectIntent(cleaned string, convCtx *ConversationContext) (Intent, float64) {
	lower := strings.ToLower(cleaned)

	if convCtx != nil && convCtx.ConversationDepth > 0 {
		for _, indicator := range followUpIndicators {
			if strings.Contains(lower, strings.ToLower(indicator)) {
				return IntentFollowUp, followUpConf
			}
		}
	}

	var best Intent = IntentUnknown
	var bestScore float64

	for intent, keywords := range intentKeywords {
		var score float64
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				score += float64(len([]rune(kw))) / 10
			}
		}
		if score > bestScore {
			bestScore = score
			best = intent
		}
	}

	if bestScore == 0 {
		return IntentUnknown, 0
	}
	return best, minFloat(bestScore/1.5, 1)
}

// followUpContext returns the most relevant prior question when the
// current one looks like a follow-up (§4.I "context_from_previous").
func followUpContext(cleaned string, convCtx *ConversationContext, category Category) string {
	if convCtx == nil || convCtx.ConversationDepth == 0 {
		return ""
	}
	lower := strings.ToLower(cleaned)

	for _, indicator := range followUpIndicators {
		if strings.Contains(lower, strings.ToLower(indicator)) && len(convCtx.PreviousQuestions) > 0 {
			return convCtx.PreviousQuestions[len(convCtx.PreviousQuestions)-1]
		}
	}

	for _, pronoun := range referencePronouns {
		if strings.Contains(lower, strings.ToLower(pronoun)) && convCtx.CurrentTopic != "" {
			return "previous topic: " + string(convCtx.CurrentTopic)
		}
	}

	_ = category
	return ""
}

// requiredDocuments maps category (and, for COMPARE intent, an extra
// COMPETENCY_ANALYSIS pull-in) to the doc types needed to answer it
// (§4.I "Required documents map").
func requiredDocuments(category Category, intent Intent) []string {
	mapping := map[Category][]string{
		CategoryPersonality:           {"PERSONALITY_PROFILE"},
		CategoryThinkingSkills:        {"THINKING_SKILLS"},
		CategoryCareerRecommendations: {"CAREER_RECOMMENDATIONS", "PERSONALITY_PROFILE", "THINKING_SKILLS"},
		CategoryLearningStyle:         {"LEARNING_STYLE", "PERSONALITY_PROFILE"},
		CategoryCompetencyAnalysis:    {"COMPETENCY_ANALYSIS"},
		CategoryPreferenceAnalysis:    {"PREFERENCE_ANALYSIS"},
		CategoryGeneralComparison:     {"PERSONALITY_PROFILE", "THINKING_SKILLS", "COMPETENCY_ANALYSIS"},
		CategoryStatisticalInfo:       {"PERSONALITY_PROFILE", "THINKING_SKILLS", "COMPETENCY_ANALYSIS"},
	}

	docs := append([]string{}, mapping[category]...)
	if intent == IntentCompare && len(docs) == 1 {
		docs = append(docs, "COMPETENCY_ANALYSIS")
	}
	return docs
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
