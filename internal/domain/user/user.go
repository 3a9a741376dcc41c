package user

import (
	"context"
	"errors"
	"time"
)

// Role is a closed set; anything outside it is rejected by ParseRole.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// ParseRole maps an empty string to RoleUser.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return RoleUser, nil
	}

	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole
	}

	return r, nil
}

var (
	ErrNotFound    = errors.New("user not found")
	ErrValidation  = errors.New("missing required fields")
	ErrInvalidRole = errors.New("invalid role")

	ErrConflict      = errors.New("user already exists")
	ErrUsernameTaken = conflict("username already exists")
	ErrEmailTaken    = conflict("email already exists")
)

type conflictError struct{ msg string }

func conflict(msg string) error { return &conflictError{msg: msg} }

func (e *conflictError) Error() string { return e.msg }

// Is lets errors.Is(err, ErrConflict) match either field-specific conflict.
func (e *conflictError) Is(target error) bool { return target == ErrConflict }

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicView is the only shape of a user that leaves the service.
type PublicView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	CreatedAt string `json:"created_at"`
}

func (u User) ToPublic() PublicView {
	return PublicView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Repository is the persistence contract for users. Lookups return
// ErrNotFound when nothing matches; Create returns an ErrConflict-wrapping
// error when the username or email is already stored.
type Repository interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}
