package domain

import "time"

// Intent is the binary domain-relevance classification of a query.
type Intent string

const (
	IntentAgriculture    Intent = "AGRICULTURE"
	IntentNonAgriculture Intent = "NON_AGRICULTURE"
)

// ResponseType records how the final answer was produced.
type ResponseType string

const (
	ResponseNonAgriculture         ResponseType = "NON_AGRICULTURE"
	ResponseNoRelevantContext      ResponseType = "NO_RELEVANT_CONTEXT"
	ResponseAgricultureWithContext ResponseType = "AGRICULTURE_WITH_CONTEXT"
)

// Canned answers for the two terminal fallback branches.
const (
	MsgNonAgriculture    = "I can answer only agriculture related queries."
	MsgNoRelevantContext = "I don't know. I can help you by transferring the call to subject matter expertise if needed."
)

// Correction is a single vocabulary substitution applied to the raw query.
type Correction struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
}

// CorrectionResult is the output of vocabulary correction. Downstream stages
// must operate on CorrectedText; the raw query is kept only for audit display.
type CorrectionResult struct {
	CorrectedText string       `json:"corrected_text"`
	Applied       []Correction `json:"applied"`
}

// RetrievedChunk is one nearest-neighbor hit with its similarity score.
type RetrievedChunk struct {
	ChunkID    string   `json:"chunk_id"`
	Text       string   `json:"text"`
	Section    string   `json:"section"`
	Subsection string   `json:"subsection,omitempty"`
	Entities   []string `json:"entities,omitempty"`
	Score      float64  `json:"score"`
}

// StageTimings holds measured wall-clock durations per pipeline stage.
// Total covers the whole request including orchestration overhead, so it is
// always at least the sum of the stage durations.
type StageTimings struct {
	Total    time.Duration `json:"total"`
	Classify time.Duration `json:"classify"`
	Retrieve time.Duration `json:"retrieve"`
	Generate time.Duration `json:"generate"`
}

// AnswerEnvelope is the final per-query response. Immutable once returned.
type AnswerEnvelope struct {
	Question          string           `json:"question"`
	CorrectedQuestion string           `json:"corrected_question"`
	Corrections       []Correction     `json:"corrections,omitempty"`
	Intent            Intent           `json:"intent"`
	Answer            string           `json:"answer"`
	ResponseType      ResponseType     `json:"response_type"`
	Retrieved         []RetrievedChunk `json:"retrieved"`
	Timings           StageTimings     `json:"timings"`
	CacheHit          bool             `json:"cache_hit"`
}
