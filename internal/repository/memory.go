package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bolingo/bolingo-backend/internal/model"
)

// MemoryUserRepository keeps users in process memory. Intended for local
// development and tests; data is lost on restart.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*model.User
	byID    map[string]*model.User
	now     func() time.Time
}

// NewMemoryUserRepository creates an empty MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byEmail: make(map[string]*model.User),
		byID:    make(map[string]*model.User),
		now:     time.Now,
	}
}

// Create inserts a copy of user, failing with ErrDuplicateEmail if the email is taken.
func (r *MemoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return ErrDuplicateEmail
	}

	user.ID = uuid.NewString()
	user.CreatedAt = r.now().UTC()

	stored := *user
	r.byEmail[stored.Email] = &stored
	r.byID[stored.ID] = &stored
	return nil
}

// GetByEmail retrieves a user by their email address.
func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetByID retrieves a user by their ID.
func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// Len returns the number of stored users.
func (r *MemoryUserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEmail)
}
