package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/taskmanager/internal/domain/task"
)

type storedTask struct {
	task.Task
	seq uint64
}

type TasksRepo struct {
	mu    sync.RWMutex
	items map[string]storedTask
	seq   uint64
	now   func() time.Time
}

func NewTasksRepo() *TasksRepo {
	return &TasksRepo{
		items: make(map[string]storedTask),
		now:   time.Now,
	}
}

func (r *TasksRepo) Create(_ context.Context, t task.Task) (task.Task, error) {
	r.mu.Lock()
	r.seq++
	r.items[t.ID] = storedTask{Task: t, seq: r.seq}
	r.mu.Unlock()

	return t, nil
}

func (r *TasksRepo) ListByOwner(_ context.Context, f task.ListFilter) ([]task.Task, int, error) {
	r.mu.RLock()
	matched := make([]storedTask, 0)
	for _, st := range r.items {
		if st.OwnerID != f.OwnerID {
			continue
		}
		if f.Completed != nil && st.Completed != *f.Completed {
			continue
		}
		matched = append(matched, st)
	}
	r.mu.RUnlock()

	// newest first; insertion order breaks timestamp ties
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})

	total := len(matched)
	start := f.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := total
	if f.PerPage > 0 && start+f.PerPage < total {
		end = start + f.PerPage
	}

	out := make([]task.Task, 0, end-start)
	for _, st := range matched[start:end] {
		out = append(out, st.Task)
	}

	return out, total, nil
}

func (r *TasksRepo) Get(_ context.Context, id, ownerID string) (task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.items[id]
	if !ok || st.OwnerID != ownerID {
		return task.Task{}, task.ErrNotFound
	}
	return st.Task, nil
}

func (r *TasksRepo) Update(_ context.Context, id, ownerID string, p task.Patch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.items[id]
	if !ok || st.OwnerID != ownerID {
		return false, nil
	}

	if p.Title != nil {
		st.Title = *p.Title
	}
	if p.Description != nil {
		st.Description = *p.Description
	}
	if p.Completed != nil {
		st.Completed = *p.Completed
	}
	st.UpdatedAt = r.now().UTC()

	r.items[id] = st
	return true, nil
}

func (r *TasksRepo) Delete(_ context.Context, id, ownerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.items[id]
	if !ok || st.OwnerID != ownerID {
		return false, nil
	}

	delete(r.items, id)
	return true, nil
}
