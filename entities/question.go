package entities

type Question struct {
	SourceBlockIndex int    `json:"source_block_index"`
	RawText          string `json:"raw_text"`
	NormalizedText   string `json:"normalized_text"`
}

// ResolutionResult pairs a question with its answer. A knowledge-base hit sets
// both MatchedField and Answer; a human answer sets Answer only; an unresolved
// question sets neither.
type ResolutionResult struct {
	Question     Question `json:"question"`
	MatchedField *string  `json:"matched_field,omitempty"`
	Answer       *string  `json:"answer,omitempty"`
	Confidence   float64  `json:"confidence"`
}

func (r ResolutionResult) Resolved() bool { return r.Answer != nil }

func (r ResolutionResult) HumanSourced() bool { return r.Answer != nil && r.MatchedField == nil }
