package response

import "regexp"

var (
	koreanContentPattern      = regexp.MustCompile(`[가-힣]`)
	incompleteResponsePattern = regexp.MustCompile(`(?i)(죄송|미안|모르겠|알 수 없)`)
	statisticalInfoPattern    = regexp.MustCompile(`(?i)(\d+%|\d+위|\d+점|백분위|순위)`)
)

const maxIncompletePhrases = 3
const minValidLength = 5
const richContentLength = 100

// validateResponseContent is a cheap sanity check: non-empty, contains
// Korean text, not dominated by apology/incomplete phrasing.
func validateResponseContent(text string) bool {
	if len(text) < minValidLength {
		return false
	}
	if !koreanContentPattern.MatchString(text) {
		return false
	}
	if len(incompleteResponsePattern.FindAllString(text, -1)) >= maxIncompletePhrases {
		return false
	}
	return true
}

var qualityLadder = []Quality{QualityAcceptable, QualityGood, QualityExcellent}

// assessQuality grades processed response text (§4.K "Quality
// assessment"): POOR on failed content validation, otherwise
// ACCEPTABLE/GOOD/EXCELLENT scaled by length and presence of
// statistical markers.
func assessQuality(text string) Quality {
	if !validateResponseContent(text) {
		return QualityPoor
	}

	score := 0
	if len(text) > richContentLength {
		score++
	}
	if statisticalInfoPattern.MatchString(text) {
		score++
	}
	if score > 2 {
		score = 2
	}
	return qualityLadder[score]
}

const confidenceBoost = 0.05

// calculateConfidence combines the quality-tier base confidence with a
// small boost/penalty depending on whether documents backed the
// response (§4.K "Confidence scoring").
func calculateConfidence(quality Quality, hasDocuments bool) float64 {
	base := confidenceBase[quality]
	boost := -confidenceBoost
	if hasDocuments {
		boost = confidenceBoost
	}
	score := base + boost
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
