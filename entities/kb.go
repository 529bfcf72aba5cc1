package entities

import "time"

type KnowledgeEntry struct {
	CanonicalField string   `json:"canonical_field" yaml:"canonical_field"`
	Aliases        []string `json:"aliases" yaml:"aliases"`
	Value          string   `json:"value" yaml:"value"`
}

// Match is a successful knowledge-base lookup.
type Match struct {
	Field      string  `json:"field"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// KBEntryRow is the persisted form of a KnowledgeEntry; Position keeps the
// declaration order that tie-breaking depends on.
type KBEntryRow struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	Position       int      `gorm:"index" json:"position"`
	CanonicalField string   `gorm:"uniqueIndex" json:"canonical_field"`
	Aliases        []string `gorm:"serializer:json" json:"aliases"`
	Value          string   `json:"value"`
	CreatedAt      time.Time
}

func (KBEntryRow) TableName() string { return "kb_entries" }
