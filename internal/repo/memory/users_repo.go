package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/taskmanager/internal/domain/user"
)

// UsersRepo keeps users in process memory. Username and email uniqueness is
// enforced under the write lock, so concurrent creates resolve the same way a
// unique index would.
type UsersRepo struct {
	mu         sync.RWMutex
	items      map[string]user.User
	byUsername map[string]string
	byEmail    map[string]string
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:      make(map[string]user.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[u.Username]; ok {
		return user.User{}, user.ErrUsernameTaken
	}
	if _, ok := r.byEmail[u.Email]; ok {
		return user.User{}, user.ErrEmailTaken
	}

	r.items[u.ID] = u
	r.byUsername[u.Username] = u.ID
	r.byEmail[u.Email] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.items[id], nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.items[id], nil
}

// Ping backs /readyz; memory is always reachable.
func (r *UsersRepo) Ping(context.Context) error {
	return nil
}
