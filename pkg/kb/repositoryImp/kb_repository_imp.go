package repositoryImp

import (
	"context"

	"gorm.io/gorm"

	"formassist/entities"
	"formassist/pkg/kb/repository"
)

type repo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.KBRepository { return &repo{db} }

// ReplaceAll swaps the stored knowledge base in one transaction so a reader
// never sees a half-imported table.
func (r *repo) ReplaceAll(ctx context.Context, entries []entities.KnowledgeEntry) error {
	rows := make([]entities.KBEntryRow, len(entries))
	for i, e := range entries {
		rows[i] = entities.KBEntryRow{Position: i, CanonicalField: e.CanonicalField, Aliases: e.Aliases, Value: e.Value}
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.KBEntryRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (r *repo) All(ctx context.Context) ([]entities.KnowledgeEntry, error) {
	var rows []entities.KBEntryRow
	if err := r.db.WithContext(ctx).Order("position ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entities.KnowledgeEntry, len(rows))
	for i, row := range rows {
		out[i] = entities.KnowledgeEntry{CanonicalField: row.CanonicalField, Aliases: row.Aliases, Value: row.Value}
	}
	return out, nil
}
