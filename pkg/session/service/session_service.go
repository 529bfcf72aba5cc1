package service

import (
	"context"

	"formassist/entities"
)

// Upload is one document handed to the pipeline. Format may be empty, in
// which case it is detected from Data and then Filename.
type Upload struct {
	Filename string
	Format   string
	Data     []byte
}

type Service interface {
	// ProcessDocument runs parse, extract, resolve, annotate and serialize and
	// stores version 1 of a new session.
	ProcessDocument(ctx context.Context, up Upload) (*entities.SessionRecord, error)
	// FinalizeSession applies human answers keyed by question text. Keys that
	// do not name an unresolved question are returned as rejected.
	FinalizeSession(ctx context.Context, sessionID string, answers map[string]string) (*entities.SessionRecord, []string, error)
	Get(ctx context.Context, sessionID string) (*entities.SessionRecord, error)
	Versions(ctx context.Context, sessionID string) ([]entities.SessionRecord, error)
	// Document returns the annotated document of a version; 0 means latest.
	Document(ctx context.Context, sessionID string, version int) (*entities.Artifact, error)
}
