package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/taskmanager/internal/domain/user"
	"github.com/geocoder89/taskmanager/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	usersUsernameConstraint = "users_username_uniq"
	usersEmailConstraint    = "users_email_uniq"
)

type UsersRepo struct {
	db DBTX
	observer
}

func NewUsersRepo(db DBTX, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{db: db, observer: observer{prom: prom}}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case usersEmailConstraint:
				return user.User{}, user.ErrEmailTaken
			default:
				return user.User{}, user.ErrUsernameTaken
			}
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if !isUUID(id) {
		return user.User{}, user.ErrNotFound
	}
	return r.getOne(ctx, "users.get_by_id", "id", id)
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_username", "username", username)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", "email", email)
}

// column is always one of the constants above, never caller input.
func (r *UsersRepo) getOne(ctx context.Context, op, column, value string) (user.User, error) {
	var u user.User
	var role string

	err := r.observe(op, func() error {
		return r.db.QueryRow(
			ctx,
			`SELECT id, username, email, password_hash, role, created_at, updated_at
			FROM users
			WHERE `+column+` = $1`,
			value,
		).Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.PasswordHash,
			&role,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("select user by %s: %w", column, err)
	}

	u.Role = user.Role(role)
	return u, nil
}
