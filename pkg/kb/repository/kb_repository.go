package repository

import (
	"context"

	"formassist/entities"
)

type KBRepository interface {
	ReplaceAll(ctx context.Context, entries []entities.KnowledgeEntry) error
	All(ctx context.Context) ([]entities.KnowledgeEntry, error)
}
