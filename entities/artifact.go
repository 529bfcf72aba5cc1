package entities

import "time"

// Artifact holds document bytes addressed by an opaque handle.
type Artifact struct {
	Handle      string `gorm:"primaryKey;size:36" json:"handle"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SHA256      string `gorm:"index;size:64" json:"sha256"`
	Size        int    `json:"size"`
	Data        []byte `json:"-"`
	CreatedAt   time.Time
}
