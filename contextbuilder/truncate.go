package contextbuilder

import (
	"context"
	"fmt"
)

// truncateContext degrades the prompt until it fits the token budget:
// drop documents one at a time, then fall back to a single
// summary-only document, then a last-resort question-only prompt
// (§4.J "Token budget packing").
func (b *Builder) truncateContext(ctx context.Context, docs []RetrievedDocument, template PromptTemplate, questionText, previousContext string) (string, []RetrievedDocument, error) {
	for n := len(docs); n > 1; n-- {
		candidateDocs := docs[:n]
		formatted := formatDocumentsForPrompt(candidateDocs)
		prompt := constructPrompt(template, questionText, formatted, previousContext)

		tokens, err := b.estimateTokens(ctx, prompt)
		if err != nil {
			return "", nil, fmt.Errorf("estimate tokens: %w", err)
		}
		if tokens <= b.maxContextTokens {
			return prompt, candidateDocs, nil
		}
	}

	if len(docs) > 0 {
		doc := docs[0]
		minimal := "검사 결과: " + doc.ContentSummary
		prompt := constructPrompt(template, questionText, minimal, previousContext)
		return prompt, []RetrievedDocument{doc}, nil
	}

	fallback := fmt.Sprintf("사용자 질문: %s\n\n검사 결과 데이터를 불러올 수 없습니다. 일반적인 조언을 제공해주세요.", questionText)
	return fallback, nil, nil
}
