package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/promptvault/promptvault/internal/domain"
)

type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *SessionRepo) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *s
	r.sessions[s.SID] = &stored

	return nil
}

func (r *SessionRepo) Get(_ context.Context, sid string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("memory.SessionRepo.Get: %w", domain.ErrNotFound)
	}
	if s.Expired(time.Now()) {
		delete(r.sessions, sid)
		return nil, fmt.Errorf("memory.SessionRepo.Get: %w", domain.ErrNotFound)
	}

	c := *s
	return &c, nil
}

func (r *SessionRepo) Delete(_ context.Context, sid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sid)

	return nil
}
