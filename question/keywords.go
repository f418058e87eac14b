package question

import (
	"strings"
	"unicode"
)

// stopWords mirrors the reference extractor's Korean/English function
// words (§4.I "stop-word filtered").
var stopWords = map[string]bool{
	"은": true, "는": true, "이": true, "가": true, "을": true, "를": true,
	"에": true, "에서": true, "로": true, "으로": true, "와": true, "과": true,
	"의": true, "도": true, "만": true, "부터": true, "까지": true, "처럼": true, "같이": true,
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "what": true, "how": true, "why": true,
	"when": true, "where": true, "who": true, "which": true,
	"무엇": true, "어떻게": true, "왜": true, "언제": true, "어디서": true,
	"누가": true, "어떤": true, "그": true, "그것": true, "이것": true, "저것": true,
}

// extractKeywords tokenizes cleaned into Korean syllable runs, ASCII
// word runs, and digit runs, drops stop words and single-character
// tokens, dedupes preserving first occurrence, and caps at 10 (§4.I).
func extractKeywords(cleaned string) []string {
	tokens := tokenize(strings.ToLower(cleaned))

	var keywords []string
	seen := make(map[string]bool)
	for _, tok := range tokens {
		if stopWords[tok] || len([]rune(tok)) <= 1 {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

type runeClass int

const (
	classOther runeClass = iota
	classHangul
	classLetter
	classDigit
)

func classify(r rune) runeClass {
	switch {
	case unicode.Is(unicode.Hangul, r):
		return classHangul
	case unicode.IsLetter(r):
		return classLetter
	case unicode.IsDigit(r):
		return classDigit
	default:
		return classOther
	}
}

// tokenize splits text into maximal runs of a single rune class
// (Hangul syllables, Latin letters, digits), matching the reference
// extractor's `[가-힣]+|[a-zA-Z]+|\d+` regex.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder
	currentClass := classOther

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		class := classify(r)
		if class == classOther {
			flush()
			currentClass = classOther
			continue
		}
		if class != currentClass {
			flush()
			currentClass = class
		}
		current.WriteRune(r)
	}
	flush()

	return tokens
}
