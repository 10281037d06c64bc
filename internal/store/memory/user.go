package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/promptvault/promptvault/internal/domain"
)

type UserRepo struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*domain.User)}
}

func (r *UserRepo) Get(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("memory.UserRepo.Get: %w", domain.ErrNotFound)
	}

	c := *u
	return &c, nil
}

func (r *UserRepo) Upsert(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *u
	if existing, ok := r.users[u.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.users[u.ID] = &stored

	c := stored
	return &c, nil
}
