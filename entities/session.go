package entities

import "time"

type SessionState string

const (
	StateExtracted       SessionState = "EXTRACTED"
	StateResolvedPartial SessionState = "RESOLVED_PARTIAL"
	StateResolvedFull    SessionState = "RESOLVED_FULL"
	StateFinalized       SessionState = "FINALIZED"
)

// Closed reports whether finalize can no longer move the session forward.
func (s SessionState) Closed() bool { return s == StateResolvedFull || s == StateFinalized }

type AnswerSource string

const (
	SourceKnowledgeBase AnswerSource = "knowledge_base"
	SourceHuman         AnswerSource = "human"
)

type ResolvedAnswer struct {
	BlockIndex int          `json:"block_index"`
	Question   string       `json:"question"`
	Answer     string       `json:"answer"`
	Field      string       `json:"field,omitempty"`
	Confidence float64      `json:"confidence"`
	Source     AnswerSource `json:"source"`
}

type UnresolvedQuestion struct {
	BlockIndex int    `json:"block_index"`
	Question   string `json:"question"`
}

// SessionRecord is append-only: a finalize pass writes Version+1 and never
// updates an existing row.
type SessionRecord struct {
	ID                      uint                 `gorm:"primaryKey" json:"-"`
	SessionID               string               `gorm:"uniqueIndex:idx_session_version;size:36" json:"session_id"`
	Version                 int                  `gorm:"uniqueIndex:idx_session_version" json:"version"`
	State                   SessionState         `gorm:"index" json:"state"`
	Format                  string               `json:"format"`
	Filename                string               `json:"filename"`
	Resolved                []ResolvedAnswer     `gorm:"serializer:json" json:"resolved"`
	Unresolved              []UnresolvedQuestion `gorm:"serializer:json" json:"unresolved"`
	SourceDocumentHandle    string               `json:"source_document_handle"`
	AnnotatedDocumentHandle string               `json:"annotated_document_handle"`
	CreatedAt               time.Time            `json:"created_at"`
}

// QuestionCount is the number of questions extracted from the source document.
func (r *SessionRecord) QuestionCount() int { return len(r.Resolved) + len(r.Unresolved) }
