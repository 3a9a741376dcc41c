package postgres

import (
	"context"

	"github.com/geocoder89/taskmanager/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the slice of *pgxpool.Pool the repositories use. Tests substitute a
// pgxmock pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

type observer struct {
	prom *observability.Prom
}

func (o observer) observe(op string, fn func() error) error {
	return o.prom.ObserveDB(op, fn)
}

// ids are uuid columns; anything else can't match a row
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
