package repository

import (
	"context"
	"sync"
	"time"

	"github.com/ridloal/agri-traceability/internal/user/domain"
)

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewMemoryUserRepository dipakai untuk STORE_DRIVER=memory dan test.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: map[string]domain.User{}}
}

func (r *memoryUserRepository) UpsertUser(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	user.CreatedAt = now
	if existing, ok := r.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	}
	user.UpdatedAt = now

	stored := *user
	if user.PhoneNumber != nil {
		phone := *user.PhoneNumber
		stored.PhoneNumber = &phone
	}
	r.users[user.ID] = stored
	return nil
}

func (r *memoryUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if u.PhoneNumber != nil {
		phone := *u.PhoneNumber
		u.PhoneNumber = &phone
	}
	return &u, nil
}
