package repository

import (
	"context"

	"formassist/entities"
)

// SessionRepository is append-only: records are created, never updated.
type SessionRepository interface {
	Create(ctx context.Context, rec *entities.SessionRecord) error
	Latest(ctx context.Context, sessionID string) (*entities.SessionRecord, error)
	Version(ctx context.Context, sessionID string, version int) (*entities.SessionRecord, error)
	Versions(ctx context.Context, sessionID string) ([]entities.SessionRecord, error)
}
