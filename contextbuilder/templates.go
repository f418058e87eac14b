package contextbuilder

import (
	"fmt"
	"strings"

	"github.com/aptrag/chatbot/question"
)

// PromptTemplate is one of the category×intent prompt shapes (§4.J
// "Prompt template selection table").
type PromptTemplate string

const (
	TemplatePersonalityExplain     PromptTemplate = "personality_explain"
	TemplatePersonalityCompare     PromptTemplate = "personality_compare"
	TemplateCareerRecommend        PromptTemplate = "career_recommend"
	TemplateCareerExplain          PromptTemplate = "career_explain"
	TemplateThinkingSkillsAnalyze  PromptTemplate = "thinking_skills_analyze"
	TemplateThinkingSkillsCompare  PromptTemplate = "thinking_skills_compare"
	TemplateLearningStyleRecommend PromptTemplate = "learning_style_recommend"
	TemplateCompetencyAnalyze      PromptTemplate = "competency_analyze"
	TemplateGeneralCompare         PromptTemplate = "general_compare"
	TemplateStatisticalInfo        PromptTemplate = "statistical_info"
	TemplateFollowUp               PromptTemplate = "follow_up"
	TemplateDefault                PromptTemplate = "default"
)

type templateKey struct {
	category question.Category
	intent   question.Intent
}

// templateMapping is the category×intent selection table; FOLLOW_UP
// always wins ahead of it (§4.J).
var templateMapping = map[templateKey]PromptTemplate{
	{question.CategoryPersonality, question.IntentExplain}:           TemplatePersonalityExplain,
	{question.CategoryPersonality, question.IntentCompare}:           TemplatePersonalityCompare,
	{question.CategoryCareerRecommendations, question.IntentRecommend}: TemplateCareerRecommend,
	{question.CategoryCareerRecommendations, question.IntentExplain}:   TemplateCareerExplain,
	{question.CategoryThinkingSkills, question.IntentAnalyze}:        TemplateThinkingSkillsAnalyze,
	{question.CategoryThinkingSkills, question.IntentCompare}:        TemplateThinkingSkillsCompare,
	{question.CategoryLearningStyle, question.IntentRecommend}:       TemplateLearningStyleRecommend,
	{question.CategoryCompetencyAnalysis, question.IntentAnalyze}:    TemplateCompetencyAnalyze,
	{question.CategoryGeneralComparison, question.IntentCompare}:     TemplateGeneralCompare,
	{question.CategoryStatisticalInfo, question.IntentExplain}:       TemplateStatisticalInfo,
}

// promptBodies holds the Korean counselor-persona prompt text per
// template, each with named {question}/{context_documents} (and, for
// follow-up, {previous_context}) placeholders.
var promptBodies = map[PromptTemplate]string{
	TemplatePersonalityExplain: `당신은 적성검사 결과를 분석하고 설명하는 전문 상담사입니다. 사용자의 성격 유형에 대해 자세히 설명해주세요.

사용자 질문: {question}

관련 검사 결과:
{context_documents}

위 결과를 바탕으로 사용자의 성격 유형을 친근하고 이해하기 쉽게 설명해주세요. 구체적인 특징과 장점을 포함하여 답변해주세요.`,

	TemplatePersonalityCompare: `당신은 적성검사 결과를 분석하는 전문 상담사입니다. 사용자의 성격을 다른 사람들과 비교하여 설명해주세요.

사용자 질문: {question}

관련 검사 결과:
{context_documents}

위 결과를 바탕으로 사용자의 성격이 일반적인 사람들과 어떻게 다른지, 어떤 점이 특별한지 비교하여 설명해주세요. 백분위나 순위 정보가 있다면 포함해주세요.`,

	TemplateCareerRecommend: `당신은 진로 상담 전문가입니다. 사용자의 적성검사 결과를 바탕으로 적합한 직업을 추천해주세요.

사용자 질문: {question}

관련 검사 결과:
{context_documents}

위 결과를 바탕으로 사용자에게 적합한 직업들을 추천하고, 왜 그 직업이 적합한지 성격과 능력을 연결하여 구체적으로 설명해주세요.`,

	TemplateCareerExplain: `당신은 진로 상담 전문가입니다. 사용자의 적성검사 결과와 직업 추천에 대해 설명해주세요.

사용자 질문: {question}

관련 검사 결과:
{context_documents}

위 결과를 바탕으로 추천된 직업들이 왜 사용자에게 적합한지, 어떤 성격적 특성이나 능력이 해당 직업과 잘 맞는지 자세히 설명해주세요.`,

	TemplateThinkingSkillsAnalyze: `당신은 인지능력 평가 전문가입니다. 사용자의 사고 능력에 대해 분석하여 설명해주세요.

사용자 질문: {question}

관련 검사 결과:
{context_documents}

위 결과를 바탕으로 사용자의 8가지 사고 능력(언어, 수리, 공간, 추리, 지각속도, 기억력, 어학, 창의력)을 분석하여 강점과 약점을 설명해주세요.`,

	TemplateThinkingSkillsCompare: `당신은 인지능력 평가 전문가입니다. 사용자의 사고 능력을 다른 사람들과 비교하여 설명해주세요.

사용자 질문: {question}

관련 검사 결과:
{context_documents}

위 결과를 바탕으로 사용자의 사고 능력이 또래나 일반인들과 비교했을 때 어떤 수준인지, 특히 뛰어난 영역이나 보완이 필요한 영역을 설명해주세요.`,

	TemplateLearningStyleRecommend: `당신은 학습 방법 전문가입니다. 사용자의 적성에 맞는 학습 방법을 추천해주세요.

사용자 질문: {question}

관련 검사 결과:
{context_documents}

위 결과를 바탕으로 사용자의 성격과 사고 능력에 맞는 효과적인 학습 방법과 공부 전략을 구체적으로 추천해주세요.`,

	TemplateCompetencyAnalyze: `당신은 역량 분석 전문가입니다. 사용자의 핵심 역량과 재능에 대해 분석해주세요.

사용자 질문: {question}

관련 검사 결과:
{context_documents}

위 결과를 바탕으로 사용자의 상위 5개 재능과 역량을 분석하고, 이를 어떻게 활용할 수 있는지 구체적으로 설명해주세요.`,

	TemplateGeneralCompare: `당신은 적성검사 분석 전문가입니다. 사용자의 전반적인 검사 결과를 비교 분석해주세요.

사용자 질문: {question}

관련 검사 결과:
{context_documents}

위 결과를 바탕으로 사용자의 성격, 사고능력, 역량 등을 종합적으로 분석하고 다른 사람들과 비교하여 설명해주세요.`,

	TemplateStatisticalInfo: `당신은 적성검사 통계 분석 전문가입니다. 사용자의 검사 결과에 대한 통계적 정보를 설명해주세요.

사용자 질문: {question}

관련 검사 결과:
{context_documents}

위 결과를 바탕으로 사용자의 점수, 백분위, 순위 등 통계적 정보를 이해하기 쉽게 설명해주세요.`,

	TemplateFollowUp: `당신은 적성검사 상담 전문가입니다. 이전 대화의 맥락을 고려하여 추가 질문에 답변해주세요.

이전 맥락: {previous_context}
사용자 질문: {question}

관련 검사 결과:
{context_documents}

이전 대화의 맥락을 고려하여 사용자의 추가 질문에 자세히 답변해주세요.`,

	TemplateDefault: `당신은 적성검사 결과 상담 전문가입니다. 사용자의 질문에 대해 검사 결과를 바탕으로 답변해주세요.

사용자 질문: {question}

관련 검사 결과:
{context_documents}

위 검사 결과를 바탕으로 사용자의 질문에 친근하고 전문적으로 답변해주세요.`,
}

// selectPromptTemplate picks the template for category×intent;
// FOLLOW_UP intent always wins regardless of category (§4.J).
func selectPromptTemplate(category question.Category, intent question.Intent) PromptTemplate {
	if intent == question.IntentFollowUp {
		return TemplateFollowUp
	}
	if t, ok := templateMapping[templateKey{category, intent}]; ok {
		return t
	}
	return TemplateDefault
}

// formatDocumentsForPrompt renders the retrieved documents into the
// {context_documents} block (§4.J).
func formatDocumentsForPrompt(docs []RetrievedDocument) string {
	if len(docs) == 0 {
		return "관련 검사 결과를 찾을 수 없습니다. 적성검사를 완료하셨는지 확인해 주세요."
	}

	var parts []string
	for i, doc := range docs {
		var sb strings.Builder
		fmt.Fprintf(&sb, "\n=== 검사 결과 %d: %s ===\n", i+1, doc.Document.DocType)
		fmt.Fprintf(&sb, "요약: %s\n", doc.ContentSummary)

		if len(doc.KeyPoints) > 0 {
			sb.WriteString("주요 내용:\n")
			for _, p := range doc.KeyPoints {
				fmt.Fprintf(&sb, "- %s\n", p)
			}
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n")
}

// constructPrompt fills template with question, formattedDocs, and (for
// FOLLOW_UP, when present) previousContext (§4.J).
func constructPrompt(template PromptTemplate, questionText, formattedDocs, previousContext string) string {
	body := promptBodies[template]
	body = strings.ReplaceAll(body, "{question}", questionText)
	body = strings.ReplaceAll(body, "{context_documents}", formattedDocs)
	if template == TemplateFollowUp {
		body = strings.ReplaceAll(body, "{previous_context}", previousContext)
	}
	return body
}
