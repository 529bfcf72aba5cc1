package repositoryImp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"formassist/entities"
	"formassist/pkg/artifact/repository"
)

type memoryRepo struct {
	mu    sync.RWMutex
	items map[string]entities.Artifact
}

// NewMemory keeps artifacts in process memory. Used for dry runs and tests.
func NewMemory() repository.ArtifactRepository {
	return &memoryRepo{items: map[string]entities.Artifact{}}
}

func (r *memoryRepo) Put(_ context.Context, filename, contentType string, data []byte) (string, error) {
	a := newArtifact(filename, contentType, data)
	a.CreatedAt = time.Now()
	r.mu.Lock()
	r.items[a.Handle] = *a
	r.mu.Unlock()
	return a.Handle, nil
}

func (r *memoryRepo) Get(_ context.Context, handle string) (*entities.Artifact, error) {
	r.mu.RLock()
	a, ok := r.items[handle]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	a.Data = append([]byte(nil), a.Data...)
	return &a, nil
}

func (r *memoryRepo) Delete(_ context.Context, handle string) error {
	r.mu.Lock()
	delete(r.items, handle)
	r.mu.Unlock()
	return nil
}
