package db

import (
	"context"
	"errors"

	"github.com/geocoder89/taskmanager/internal/accounts"
	"github.com/geocoder89/taskmanager/internal/config"
	"github.com/geocoder89/taskmanager/internal/domain/user"
)

// EnsureAdminUser creates the configured admin account when it does not
// exist yet. It is a no-op without admin credentials in the config.
func EnsureAdminUser(ctx context.Context, store *accounts.Store, cfg config.Config) (created bool, err error) {
	if cfg.AdminUsername == "" || cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	_, exists, err := store.FindByUsername(ctx, cfg.AdminUsername)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	_, err = store.CreateUser(ctx, accounts.CreateUserInput{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     user.RoleAdmin,
	})

	// another instance seeded it first
	if errors.Is(err, user.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
