package response

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptrag/chatbot/ai/memory"
	"github.com/aptrag/chatbot/contextbuilder"
	"github.com/aptrag/chatbot/domain"
	"github.com/aptrag/chatbot/llm"
	"github.com/aptrag/chatbot/metrics"
)

type fakeLLM struct {
	text string
	err  error
}

func (f *fakeLLM) Generate(_ context.Context, _ llm.Prompt) (llm.Completion, error) {
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Text: f.text}, nil
}

func newTestGenerator(t *testing.T, client llm.Client) *Generator {
	t.Helper()
	store, err := memory.NewTopicTrackingStore(memory.NewInMemoryMemory(10))
	require.NoError(t, err)
	return New(client, store, metrics.New())
}

func personalityContext(question string) *contextbuilder.ConstructedContext {
	return &contextbuilder.ConstructedContext{
		UserQuestion:    question,
		FormattedPrompt: "prompt: " + question,
		PromptTemplate:  contextbuilder.TemplatePersonalityExplain,
		RetrievedDocuments: []contextbuilder.RetrievedDocument{
			{Document: domain.Document{DocType: domain.DocPersonalityProfile, ID: "d1"}},
		},
	}
}

func TestGenerateReturnsPreferenceFallbackWhenDataMissing(t *testing.T) {
	g := newTestGenerator(t, &fakeLLM{text: "should not be called"})
	cc := &contextbuilder.ConstructedContext{
		UserQuestion:    "내 선호도가 궁금해요",
		FormattedPrompt: "prompt",
		PromptTemplate:  contextbuilder.TemplateDefault,
	}

	resp, err := g.Generate(context.Background(), cc, "user1")
	require.NoError(t, err)
	assert.Equal(t, QualityAcceptable, resp.Quality)
	assert.Equal(t, 0.6, resp.ConfidenceScore)
	assert.Contains(t, resp.Content, "선호도 분석 데이터에 접근할 수 없지만")
}

func TestGenerateReturnsProcessedResponseOnSuccess(t *testing.T) {
	g := newTestGenerator(t, &fakeLLM{text: "당신은 창의적인 성향을 가지고 있습니다. 강점을 살려보세요."})
	cc := personalityContext("내 성격이 궁금해요")

	resp, err := g.Generate(context.Background(), cc, "user1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Content)
	assert.Equal(t, "personality", resp.ConversationTopic)
	assert.Contains(t, resp.RetrievedDocIDs, "d1")
}

func TestGenerateFallsBackOnLLMFailure(t *testing.T) {
	g := newTestGenerator(t, &fakeLLM{err: assertError{}})
	g.maxRetries = 0
	cc := personalityContext("내 성격이 궁금해요")

	resp, err := g.Generate(context.Background(), cc, "user1")
	require.NoError(t, err)
	assert.Equal(t, QualityPoor, resp.Quality)
	assert.Equal(t, 0.1, resp.ConfidenceScore)
}

type assertError struct{}

func (assertError) Error() string { return "llm down" }

func TestExtractTopicClassifiesKeywords(t *testing.T) {
	assert.Equal(t, "career", extractTopic("내 진로는 어떻게 될까요"))
	assert.Equal(t, "personality", extractTopic("내 성격을 알려줘"))
	assert.Equal(t, "general", extractTopic("오늘 날씨 어때"))
}

func TestAssessQualityGradesOnContentAndStats(t *testing.T) {
	assert.Equal(t, QualityPoor, assessQuality("죄송 모르겠 알 수 없 미안"))
	short := "그렇습니다."
	assert.Equal(t, QualityAcceptable, assessQuality(short))
}

func TestAnalyzePreferenceDataAvailabilityMissingWithNoDocs(t *testing.T) {
	a := analyzePreferenceDataAvailability(nil)
	assert.Equal(t, completionMissing, a.CompletionLevel)
	assert.Equal(t, dataQualityNone, a.DataQuality)
}

func TestAnalyzePreferenceDataAvailabilityPartialWithSomeComponents(t *testing.T) {
	docs := []contextbuilder.RetrievedDocument{
		{Document: domain.Document{
			DocType: domain.DocPreferenceAnalysis,
			Content: map[string]any{"stats": map[string]any{"a": 1}},
		}},
	}
	a := analyzePreferenceDataAvailability(docs)
	assert.Equal(t, completionPartial, a.CompletionLevel)
	assert.Contains(t, a.AvailableComponents, "stats")
}
