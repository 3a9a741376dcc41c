package task

import (
	"context"
	"errors"
	"math"
	"time"
)

var (
	ErrNotFound   = errors.New("task not found")
	ErrValidation = errors.New("title is required")
	ErrEmptyPatch = errors.New("no valid fields to update")
)

type Task struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// View is the client-facing projection of a task.
type View struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (t Task) ToView() View {
	return View{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ListFilter always carries the owner; Completed is optional.
type ListFilter struct {
	OwnerID   string
	Completed *bool
	Page      int
	PerPage   int
}

// Offset saturates at math.MaxInt rather than overflowing.
func (f ListFilter) Offset() int {
	if f.Page < 1 || f.PerPage < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.PerPage {
		return math.MaxInt
	}
	return (f.Page - 1) * f.PerPage
}

// TotalPages is ceil(total / perPage).
func TotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Patch holds the subset of fields a caller wants changed; nil means untouched.
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

type CreateTaskRequest struct {
	Title       string `json:"title" binding:"max=200"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Completed   *bool   `json:"completed"`
}

func (r UpdateTaskRequest) Patch() Patch {
	return Patch{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
	}
}

// Repository scopes every operation by owner. A task owned by someone else
// behaves exactly like a missing one.
type Repository interface {
	Create(ctx context.Context, t Task) (Task, error)
	ListByOwner(ctx context.Context, f ListFilter) ([]Task, int, error)
	Get(ctx context.Context, id, ownerID string) (Task, error)
	Update(ctx context.Context, id, ownerID string, p Patch) (bool, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
}
