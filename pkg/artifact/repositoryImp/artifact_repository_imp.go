package repositoryImp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"formassist/entities"
	"formassist/pkg/artifact/repository"
)

// ErrNotFound is returned by Get for an unknown handle.
var ErrNotFound = entities.ErrArtifactNotFound

type artifactRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.ArtifactRepository { return &artifactRepo{db} }

func newArtifact(filename, contentType string, data []byte) *entities.Artifact {
	sum := sha256.Sum256(data)
	return &entities.Artifact{
		Handle:      uuid.NewString(),
		Filename:    filename,
		ContentType: contentType,
		SHA256:      hex.EncodeToString(sum[:]),
		Size:        len(data),
		Data:        append([]byte(nil), data...),
	}
}

func (r *artifactRepo) Put(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	a := newArtifact(filename, contentType, data)
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}
	return a.Handle, nil
}

func (r *artifactRepo) Get(ctx context.Context, handle string) (*entities.Artifact, error) {
	var a entities.Artifact
	err := r.db.WithContext(ctx).Where("handle = ?", handle).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *artifactRepo) Delete(ctx context.Context, handle string) error {
	return r.db.WithContext(ctx).Where("handle = ?", handle).Delete(&entities.Artifact{}).Error
}
