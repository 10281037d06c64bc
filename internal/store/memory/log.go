package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/promptvault/promptvault/internal/domain"
)

type LogRepo struct {
	mu   sync.RWMutex
	logs map[string]*domain.PromptLog
	gen  *domain.IDGenerator
}

func NewLogRepo(gen *domain.IDGenerator) *LogRepo {
	return &LogRepo{
		logs: make(map[string]*domain.PromptLog),
		gen:  gen,
	}
}

func (r *LogRepo) Get(_ context.Context, id, ownerID string) (*domain.PromptLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log, ok := r.logs[id]
	if !ok || !log.OwnedBy(ownerID) {
		return nil, fmt.Errorf("memory.LogRepo.Get: %w", domain.ErrNotFound)
	}

	return copyLog(log), nil
}

func (r *LogRepo) ListAll(_ context.Context, ownerID string) ([]*domain.PromptLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(ownerID, func(*domain.PromptLog) bool { return true }, 0), nil
}

func (r *LogRepo) ListRecent(_ context.Context, limit int, ownerID string) ([]*domain.PromptLog, error) {
	if limit <= 0 {
		limit = domain.DefaultRecentLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(ownerID, func(*domain.PromptLog) bool { return true }, limit), nil
}

func (r *LogRepo) Search(_ context.Context, query, ownerID string) ([]*domain.PromptLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(ownerID, func(l *domain.PromptLog) bool { return l.Matches(query) }, 0), nil
}

func (r *LogRepo) Create(_ context.Context, in *domain.LogInput) (*domain.PromptLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := in.ID
	if id == "" {
		// Generated ids must be fresh; skip over any caller-supplied id
		// that happens to occupy the next slot.
		for {
			id = r.gen.Next()
			if _, exists := r.logs[id]; !exists {
				break
			}
		}
	}

	now := time.Now()
	log := &domain.PromptLog{
		ID:           id,
		PrURL:        in.PrURL,
		Branch:       in.Branch,
		AuthorEmail:  in.AuthorEmail,
		Orchestrator: in.Orchestrator,
		LLM:          in.LLM,
		Tags:         append([]string(nil), in.Tags...),
		Content:      in.Content,
		OwnerID:      in.OwnerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if log.Tags == nil {
		log.Tags = []string{}
	}

	// Explicit id collisions overwrite, mirroring the relational upsert.
	r.logs[id] = log

	return copyLog(log), nil
}

func (r *LogRepo) Update(_ context.Context, id string, patch *domain.LogPatch, ownerID string) (*domain.PromptLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log, ok := r.logs[id]
	if !ok || !log.OwnedBy(ownerID) {
		return nil, fmt.Errorf("memory.LogRepo.Update: %w", domain.ErrNotFound)
	}

	patch.Apply(log, time.Now())

	// The patch may share its tags slice with the caller; stored tags get
	// their own backing array, as copyLog does for reads.
	log.Tags = append([]string(nil), log.Tags...)
	if log.Tags == nil {
		log.Tags = []string{}
	}

	return copyLog(log), nil
}

func (r *LogRepo) Delete(_ context.Context, id, ownerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log, ok := r.logs[id]
	if !ok || !log.OwnedBy(ownerID) {
		return false, nil
	}

	delete(r.logs, id)

	return true, nil
}

// collect returns matching logs ordered by CreatedAt descending (id
// descending on ties), truncated to limit when limit > 0. Caller holds the
// lock.
func (r *LogRepo) collect(ownerID string, match func(*domain.PromptLog) bool, limit int) []*domain.PromptLog {
	out := make([]*domain.PromptLog, 0)
	for _, log := range r.logs {
		if log.OwnedBy(ownerID) && match(log) {
			out = append(out, copyLog(log))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}

// copyLog returns a deep copy so callers cannot mutate stored records.
func copyLog(l *domain.PromptLog) *domain.PromptLog {
	c := *l
	c.Tags = append([]string(nil), l.Tags...)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c
}
