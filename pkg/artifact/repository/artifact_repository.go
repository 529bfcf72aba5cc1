package repository

import (
	"context"

	"formassist/entities"
)

// ArtifactRepository stores document bytes under opaque handles.
type ArtifactRepository interface {
	Put(ctx context.Context, filename, contentType string, data []byte) (string, error)
	Get(ctx context.Context, handle string) (*entities.Artifact, error)
	// Delete removes an artifact; deleting an unknown handle is not an error.
	Delete(ctx context.Context, handle string) error
}
