package question

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessCollapsesWhitespaceAndAddsTerminalPunctuation(t *testing.T) {
	out := preprocess("  내   성격은    어떤가요   ")
	assert.Equal(t, "내 성격은 어떤가요?", out)
}

func TestPreprocessNormalizesQuestionMarks(t *testing.T) {
	out := preprocess("정말요???")
	assert.Equal(t, "정말요?", out)
}

func TestPreprocessStripsDisallowedCharacters(t *testing.T) {
	out := preprocess("성격@#$ 어때?")
	assert.Equal(t, "성격 어때?", out)
}

func TestValidateRejectsShortQuestions(t *testing.T) {
	assert.False(t, validate("ab"))
}

func TestValidateRejectsTooLong(t *testing.T) {
	long := ""
	for i := 0; i < 510; i++ {
		long += "a"
	}
	assert.False(t, validate(long))
}

func TestValidateAcceptsNormalQuestion(t *testing.T) {
	assert.True(t, validate("내 성격은 어떤가요?"))
}

func TestCategorizePersonality(t *testing.T) {
	cat, conf := categorize("내 성격 유형은 무엇인가요?")
	assert.Equal(t, CategoryPersonality, cat)
	assert.Greater(t, conf, 0.0)
}

func TestCategorizePreferenceDoubleWeightsCoreTerms(t *testing.T) {
	cat, _ := categorize("제 선호도 분석 결과를 알려주세요")
	assert.Equal(t, CategoryPreferenceAnalysis, cat)
}

func TestCategorizeUnknownWhenNoKeywordsMatch(t *testing.T) {
	cat, conf := categorize("오늘 날씨 어때?")
	assert.Equal(t, CategoryUnknown, cat)
	assert.Equal(t, 0.0, conf)
}

func TestDetectIntentForcesFollowUpWhenInConversation(t *testing.T) {
	convCtx := &ConversationContext{ConversationDepth: 1}
	intent, conf := detectIntent("그럼 다른 직업은요?", convCtx)
	assert.Equal(t, IntentFollowUp, intent)
	assert.Equal(t, followUpConf, conf)
}

func TestDetectIntentExplainWithoutConversation(t *testing.T) {
	intent, conf := detectIntent("이게 무슨 의미인가요?", nil)
	assert.Equal(t, IntentExplain, intent)
	assert.Greater(t, conf, 0.0)
}

func TestRequiredDocumentsAddsCompetencyOnCompare(t *testing.T) {
	docs := requiredDocuments(CategoryPersonality, IntentCompare)
	assert.Contains(t, docs, "COMPETENCY_ANALYSIS")
	assert.Contains(t, docs, "PERSONALITY_PROFILE")
}

func TestExtractKeywordsDedupesFiltersAndCaps(t *testing.T) {
	kws := extractKeywords("성격 성격 유형 유형 무엇 career job 2024")
	assert.Contains(t, kws, "성격")
	assert.Contains(t, kws, "career")
	assert.NotContains(t, kws, "무엇") // stop word
	assert.LessOrEqual(t, len(kws), maxKeywords)

	seen := make(map[string]bool)
	for _, k := range kws {
		assert.False(t, seen[k], "duplicate keyword %q", k)
		seen[k] = true
	}
}

func TestTokenizeSeparatesHangulLatinAndDigits(t *testing.T) {
	toks := tokenize("성격2024career")
	assert.Equal(t, []string{"성격", "2024", "career"}, toks)
}

func TestUpdateConversationContextBoundsHistoryToFive(t *testing.T) {
	convCtx := &ConversationContext{UserID: "u1"}
	for i := 0; i < 7; i++ {
		pq := &ProcessedQuestion{OriginalText: "q", Category: CategoryPersonality}
		convCtx = UpdateConversationContext(convCtx, pq)
	}
	assert.Len(t, convCtx.PreviousQuestions, historyWindow)
	assert.Equal(t, 7, convCtx.ConversationDepth)
	assert.Equal(t, CategoryPersonality, convCtx.CurrentTopic)
}

func TestUpdateConversationContextDoesNotOverwriteTopicOnUnknown(t *testing.T) {
	convCtx := &ConversationContext{CurrentTopic: CategoryCareerRecommendations}
	pq := &ProcessedQuestion{OriginalText: "q", Category: CategoryUnknown}
	convCtx = UpdateConversationContext(convCtx, pq)
	assert.Equal(t, CategoryCareerRecommendations, convCtx.CurrentTopic)
}

func TestProcessRejectsInvalidQuestion(t *testing.T) {
	p := New(nil)
	_, err := p.Process(t.Context(), "ab", nil)
	require.Error(t, err)
}

func TestProcessWithoutEmbedderReturnsNilVector(t *testing.T) {
	p := New(nil)
	pq, err := p.Process(t.Context(), "내 성격 유형은 무엇인가요?", nil)
	require.NoError(t, err)
	assert.Equal(t, CategoryPersonality, pq.Category)
	assert.Nil(t, pq.EmbeddingVector)
}
