package domain

import "time"

// DocType is a member of the closed set of document categories a
// completed test produces (§3 Document).
type DocType string

const (
	DocUserProfile            DocType = "USER_PROFILE"
	DocPersonalityProfile     DocType = "PERSONALITY_PROFILE"
	DocThinkingSkills         DocType = "THINKING_SKILLS"
	DocCareerRecommendations  DocType = "CAREER_RECOMMENDATIONS"
	DocCompetencyAnalysis     DocType = "COMPETENCY_ANALYSIS"
	DocLearningStyle          DocType = "LEARNING_STYLE"
	DocPreferenceAnalysis     DocType = "PREFERENCE_ANALYSIS"
)

// CompletionLevel summarizes how well-populated a document's source
// data is.
type CompletionLevel string

const (
	CompletionNone     CompletionLevel = "none"
	CompletionLow      CompletionLevel = "low"
	CompletionMedium   CompletionLevel = "medium"
	CompletionHigh     CompletionLevel = "high"
	CompletionPartial  CompletionLevel = "partial"
	CompletionComplete CompletionLevel = "complete"
)

// DocumentMetadata is the metadata sidecar on a Document (§3 Document).
type DocumentMetadata struct {
	SubType              string
	CompletionLevel      CompletionLevel
	CreatedAt            time.Time
	DataSources          []string
	HypotheticalQuestions []string
}

// Document is one chunked, independently-retrievable document produced
// by the Document Transformer (§4.F) and written by the Document
// Repository (§4.G).
type Document struct {
	ID             string
	UserID         string
	DocType        DocType
	Content        map[string]any
	SummaryText    string
	SearchableText string
	Metadata       DocumentMetadata
	Embedding      []float32
}

// Key identifies the (doc_type, sub_type) pair this document occupies;
// at most one Document may exist per Key for a given user after a
// successful ETL run (Property P1).
func (d *Document) Key() string {
	return string(d.DocType) + "::" + d.Metadata.SubType
}
