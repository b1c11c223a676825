package users

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Repository persists user accounts.
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	Update(ctx context.Context, user *User) (*User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// InMemoryRepository keeps users in process memory.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*User
	now    func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users: make(map[int64]*User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.conflictLocked(user); err != nil {
		return nil, err
	}
	r.nextID++
	stored := *user
	stored.ID = r.nextID
	stored.DateJoined = r.now()
	r.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *InMemoryRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.find(func(u *User) bool { return u.Username == username })
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.find(func(u *User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *InMemoryRepository) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	u, err := r.GetByUsername(ctx, username)
	if err != nil {
		return false, nil
	}
	return u.ID != excludeID, nil
}

func (r *InMemoryRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return u.ID != excludeID, nil
}

// Update stores the profile fields of user.
func (r *InMemoryRepository) Update(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if err := r.conflictLocked(user); err != nil {
		return nil, err
	}
	existing.Username = user.Username
	existing.Email = user.Email
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName

	out := *existing
	return &out, nil
}

func (r *InMemoryRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *InMemoryRepository) find(match func(*User) bool) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

// conflictLocked mirrors the unique constraints of the users table.
func (r *InMemoryRepository) conflictLocked(user *User) error {
	for id, u := range r.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username {
			return ErrDuplicateUsername
		}
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}
	return nil
}
