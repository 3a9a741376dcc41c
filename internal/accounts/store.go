// Package accounts implements the credential store: user registration with
// hashed passwords, uniqueness checks and the lookups the auth flow needs.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/taskmanager/internal/domain/user"
	"github.com/geocoder89/taskmanager/internal/security"
	"github.com/google/uuid"
)

type Store struct {
	repo user.Repository
	hash func(string) (string, error)
	now  func() time.Time
}

func NewStore(repo user.Repository) *Store {
	return &Store{
		repo: repo,
		hash: security.HashPassword,
		now:  time.Now,
	}
}

type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     user.Role
}

// CreateUser registers a new account and returns its id.
//
// Uniqueness is pre-checked here, but the repository's unique constraint is
// what settles concurrent registrations: the loser of that race gets the
// same ErrUsernameTaken/ErrEmailTaken as a sequential duplicate.
func (s *Store) CreateUser(ctx context.Context, in CreateUserInput) (string, error) {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return "", user.ErrValidation
	}

	role := in.Role
	if role == "" {
		role = user.RoleUser
	}
	if !role.Valid() {
		return "", user.ErrInvalidRole
	}

	if _, err := s.repo.GetByUsername(ctx, in.Username); err == nil {
		return "", user.ErrUsernameTaken
	} else if !errors.Is(err, user.ErrNotFound) {
		return "", fmt.Errorf("check username: %w", err)
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return "", user.ErrEmailTaken
	} else if !errors.Is(err, user.ErrNotFound) {
		return "", fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()

	created, err := s.repo.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, user.ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	return created.ID, nil
}

// FindByUsername returns (User{}, false, nil) when no account matches.
func (s *Store) FindByUsername(ctx context.Context, username string) (user.User, bool, error) {
	return found(s.repo.GetByUsername(ctx, username))
}

func (s *Store) FindByEmail(ctx context.Context, email string) (user.User, bool, error) {
	return found(s.repo.GetByEmail(ctx, email))
}

func (s *Store) FindByID(ctx context.Context, id string) (user.User, bool, error) {
	return found(s.repo.GetByID(ctx, id))
}

func (s *Store) VerifyPassword(storedHash, candidate string) bool {
	return security.VerifyPassword(storedHash, candidate)
}

func found(u user.User, err error) (user.User, bool, error) {
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, false, nil
		}
		return user.User{}, false, err
	}
	return u, true, nil
}
