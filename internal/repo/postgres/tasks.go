package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/taskmanager/internal/domain/task"
	"github.com/geocoder89/taskmanager/internal/observability"
	"github.com/jackc/pgx/v5"
)

type TasksRepo struct {
	db DBTX
	observer
	now func() time.Time
}

func NewTasksRepo(db DBTX, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{
		db:       db,
		observer: observer{prom: prom},
		now:      time.Now,
	}
}

func (r *TasksRepo) Create(ctx context.Context, t task.Task) (task.Task, error) {
	err := r.observe("tasks.create", func() error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO tasks (id, user_id, title, description, completed, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			t.ID, t.OwnerID, t.Title, t.Description, t.Completed, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}

	return t, nil
}

func (r *TasksRepo) ListByOwner(ctx context.Context, f task.ListFilter) ([]task.Task, int, error) {
	conds := []string{"user_id = $1"}
	args := []any{f.OwnerID}

	if f.Completed != nil {
		conds = append(conds, "completed = $2")
		args = append(args, *f.Completed)
	}

	where := " WHERE " + strings.Join(conds, " AND ")

	var total int
	err := r.observe("tasks.count", func() error {
		return r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	// stable ordering for pagination
	query := `SELECT id, user_id, title, description, completed, created_at, updated_at FROM tasks` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	args = append(args, f.PerPage, f.Offset())

	output := make([]task.Task, 0, f.PerPage)

	err = r.observe("tasks.list", func() error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t task.Task
			if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
				return err
			}
			output = append(output, t)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	return output, total, nil
}

func (r *TasksRepo) Get(ctx context.Context, id, ownerID string) (task.Task, error) {
	if !isUUID(id) {
		return task.Task{}, task.ErrNotFound
	}

	var t task.Task
	err := r.observe("tasks.get", func() error {
		return r.db.QueryRow(ctx,
			`SELECT id, user_id, title, description, completed, created_at, updated_at
			FROM tasks
			WHERE id = $1 AND user_id = $2`,
			id, ownerID,
		).Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, fmt.Errorf("select task: %w", err)
	}

	return t, nil
}

// Update sets only the fields present in p and always bumps updated_at.
func (r *TasksRepo) Update(ctx context.Context, id, ownerID string, p task.Patch) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}

	sets := []string{}
	args := []any{id, ownerID}

	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Completed != nil {
		add("completed", *p.Completed)
	}
	add("updated_at", r.now().UTC())

	var affected int64
	err := r.observe("tasks.update", func() error {
		tag, err := r.db.Exec(ctx,
			`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = $1 AND user_id = $2`,
			args...,
		)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return false, fmt.Errorf("update task: %w", err)
	}

	return affected > 0, nil
}

func (r *TasksRepo) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}

	var affected int64
	err := r.observe("tasks.delete", func() error {
		tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, ownerID)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}

	return affected > 0, nil
}
