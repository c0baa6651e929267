package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/aegis/internal/domain"
)

// UserRepo is an in-process domain.UserRepository.
type UserRepo struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*domain.User
	names map[string]uuid.UUID
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:  make(map[uuid.UUID]*domain.User),
		names: make(map[string]uuid.UUID),
	}
}

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[user.Username]; exists {
		return fmt.Errorf("memory.UserRepo.Create: username %q: %w", user.Username, domain.ErrConflict)
	}

	cp := *user
	r.byID[user.ID] = &cp
	r.names[user.Username] = user.ID
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("memory.UserRepo.GetByID: %w", domain.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.names[username]
	if !ok {
		return nil, fmt.Errorf("memory.UserRepo.GetByUsername: %w", domain.ErrNotFound)
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *UserRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("memory.UserRepo.UpdatePasswordHash: %w", domain.ErrNotFound)
	}
	u.PasswordHash = hash
	return nil
}
