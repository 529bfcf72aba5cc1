package repositoryImp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"formassist/entities"
	"formassist/pkg/session/repository"
)

type sessionRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.SessionRepository { return &sessionRepo{db} }

func (r *sessionRepo) Create(ctx context.Context, rec *entities.SessionRecord) error {
	err := r.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || (err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")) {
		return fmt.Errorf("%w: %s v%d", entities.ErrVersionConflict, rec.SessionID, rec.Version)
	}
	return err
}

func (r *sessionRepo) Latest(ctx context.Context, sessionID string) (*entities.SessionRecord, error) {
	var rec entities.SessionRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("version DESC").
		First(&rec).Error
	return found(&rec, err, sessionID)
}

func (r *sessionRepo) Version(ctx context.Context, sessionID string, version int) (*entities.SessionRecord, error) {
	var rec entities.SessionRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND version = ?", sessionID, version).
		First(&rec).Error
	return found(&rec, err, sessionID)
}

func (r *sessionRepo) Versions(ctx context.Context, sessionID string) ([]entities.SessionRecord, error) {
	var recs []entities.SessionRecord
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("version ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnknownSession, sessionID)
	}
	return recs, nil
}

func found(rec *entities.SessionRecord, err error, sessionID string) (*entities.SessionRecord, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnknownSession, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}
