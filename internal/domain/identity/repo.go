package identity

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medichat/medichat/internal/platform/auth"
)

// ErrUserNotFound is returned by reads when no user matches.
var ErrUserNotFound = errors.New("user not found")

// UserRepository stores registered users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmailAndRole(ctx context.Context, email string, role auth.Role) (*User, error)
}

// userRepoMem is the in-memory UserRepository used in tests and when the
// server runs with STORE=memory.
type userRepoMem struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*User
}

func NewUserRepoMem() UserRepository {
	return &userRepoMem{items: make(map[uuid.UUID]*User)}
}

func (r *userRepoMem) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	stored := *u
	r.items[u.ID] = &stored
	return nil
}

func (r *userRepoMem) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u // return a copy
	return &c, nil
}

func (r *userRepoMem) GetByEmailAndRole(_ context.Context, email string, role auth.Role) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Deterministic when duplicates exist: oldest registration wins.
	var matches []*User
	for _, u := range r.items {
		if strings.EqualFold(u.Email, email) && u.Role == role {
			matches = append(matches, u)
		}
	}
	if len(matches) == 0 {
		return nil, ErrUserNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	c := *matches[0]
	return &c, nil
}
