package repositoryImp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"formassist/entities"
	"formassist/pkg/session/repository"
)

type memoryRepo struct {
	mu       sync.RWMutex
	sessions map[string][]entities.SessionRecord
	nextID   uint
}

// NewMemory keeps session records in process memory.
func NewMemory() repository.SessionRepository {
	return &memoryRepo{sessions: map[string][]entities.SessionRecord{}}
}

func (r *memoryRepo) Create(_ context.Context, rec *entities.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions[rec.SessionID] {
		if existing.Version == rec.Version {
			return fmt.Errorf("%w: %s v%d", entities.ErrVersionConflict, rec.SessionID, rec.Version)
		}
	}
	r.nextID++
	rec.ID = r.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	r.sessions[rec.SessionID] = append(r.sessions[rec.SessionID], cloneRecord(*rec))
	return nil
}

func (r *memoryRepo) Latest(_ context.Context, sessionID string) (*entities.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	recs := r.sessions[sessionID]
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnknownSession, sessionID)
	}
	latest := recs[0]
	for _, rec := range recs[1:] {
		if rec.Version > latest.Version {
			latest = rec
		}
	}
	out := cloneRecord(latest)
	return &out, nil
}

func (r *memoryRepo) Version(_ context.Context, sessionID string, version int) (*entities.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.sessions[sessionID] {
		if rec.Version == version {
			out := cloneRecord(rec)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s v%d", entities.ErrUnknownSession, sessionID, version)
}

func (r *memoryRepo) Versions(_ context.Context, sessionID string) ([]entities.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	recs := r.sessions[sessionID]
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnknownSession, sessionID)
	}
	out := make([]entities.SessionRecord, len(recs))
	for i, rec := range recs {
		out[i] = cloneRecord(rec)
	}
	return out, nil
}

func cloneRecord(rec entities.SessionRecord) entities.SessionRecord {
	rec.Resolved = append([]entities.ResolvedAnswer(nil), rec.Resolved...)
	rec.Unresolved = append([]entities.UnresolvedQuestion(nil), rec.Unresolved...)
	return rec
}
