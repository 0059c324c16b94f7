package user

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is a volatile Repository; its contents are lost on restart.
type MemoryRepository struct {
	mu         sync.RWMutex
	byUsername map[string]*User
	byEmail    map[string]string
}

// NewMemoryRepository returns an empty in-memory identity store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byUsername: make(map[string]*User),
		byEmail:    make(map[string]string),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[u.Username]; ok {
		return ErrUsernameTaken
	}
	if _, ok := r.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}

	r.byUsername[u.Username] = u.Clone()
	r.byEmail[u.Email] = u.Username
	return nil
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	username, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return r.byUsername[username].Clone(), nil
}

func (r *MemoryRepository) Update(ctx context.Context, username string, fn func(u *User) error) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}

	draft := stored.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}

	// Username and email are keys; they stay as they were.
	draft.Username = stored.Username
	draft.Email = stored.Email

	r.byUsername[username] = draft
	return draft.Clone(), nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*User, 0, len(r.byUsername))
	for _, u := range r.byUsername {
		users = append(users, u.Clone())
	}

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}
