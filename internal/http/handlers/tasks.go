package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/taskmanager/internal/config"
	"github.com/geocoder89/taskmanager/internal/domain/task"
	"github.com/geocoder89/taskmanager/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const (
	defaultPage    = 1
	defaultPerPage = 10
	maxPerPage     = 100

	msgTaskNotFound  = "Task not found"
	msgTitleRequired = "Title is required"
	msgNoValidFields = "No valid fields to update"
)

type TasksHandler struct {
	tasks task.Repository
	now   func() time.Time
}

func NewTasksHandler(tasks task.Repository) *TasksHandler {
	return &TasksHandler{tasks: tasks, now: time.Now}
}

func (h *TasksHandler) ListTasks(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, middlewares.MsgTokenMissing)
		return
	}

	filter, err := parseListFilter(ctx)
	if err != nil {
		RespondBadRequest(ctx, "Invalid query parameters", gin.H{"reason": err.Error()})
		return
	}
	filter.OwnerID = ownerID

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	items, total, err := h.tasks.ListByOwner(cctx, filter)
	if err != nil {
		h.internal(ctx, "list_tasks_failed", err)
		return
	}

	views := make([]task.View, 0, len(items))
	for _, t := range items {
		views = append(views, t.ToView())
	}

	ctx.JSON(http.StatusOK, gin.H{
		"tasks":       views,
		"total":       total,
		"page":        filter.Page,
		"per_page":    filter.PerPage,
		"total_pages": task.TotalPages(total, filter.PerPage),
	})
}

func (h *TasksHandler) GetTask(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, middlewares.MsgTokenMissing)
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	t, err := h.tasks.Get(cctx, ctx.Param("id"), ownerID)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, msgTaskNotFound)
			return
		}
		h.internal(ctx, "get_task_failed", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"task": t.ToView()})
}

func (h *TasksHandler) CreateTask(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, middlewares.MsgTokenMissing)
		return
	}

	var req task.CreateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	t, err := task.New(ownerID, req.Title, req.Description, h.now())
	if err != nil {
		RespondBadRequest(ctx, msgTitleRequired, nil)
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	created, err := h.tasks.Create(cctx, t)
	if err != nil {
		h.internal(ctx, "create_task_failed", err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"task":    created.ToView(),
	})
}

func (h *TasksHandler) UpdateTask(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, middlewares.MsgTokenMissing)
		return
	}

	var req task.UpdateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	patch := req.Patch()
	if patch.Empty() {
		RespondBadRequest(ctx, msgNoValidFields, nil)
		return
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		RespondBadRequest(ctx, msgTitleRequired, nil)
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	id := ctx.Param("id")

	matched, err := h.tasks.Update(cctx, id, ownerID, patch)
	if err != nil {
		h.internal(ctx, "update_task_failed", err)
		return
	}
	if !matched {
		RespondNotFound(ctx, msgTaskNotFound)
		return
	}

	updated, err := h.tasks.Get(cctx, id, ownerID)
	if err != nil {
		// deleted between the update and the read
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, msgTaskNotFound)
			return
		}
		h.internal(ctx, "update_task_failed", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Task updated successfully",
		"task":    updated.ToView(),
	})
}

func (h *TasksHandler) DeleteTask(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, middlewares.MsgTokenMissing)
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	deleted, err := h.tasks.Delete(cctx, ctx.Param("id"), ownerID)
	if err != nil {
		h.internal(ctx, "delete_task_failed", err)
		return
	}
	if !deleted {
		RespondNotFound(ctx, msgTaskNotFound)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func (h *TasksHandler) internal(ctx *gin.Context, event string, err error) {
	slog.Default().ErrorContext(ctx.Request.Context(), event, "err", err)
	RespondInternal(ctx, "Internal server error")
}

// parseListFilter reads page, per_page and completed. Non-numeric page
// values are an error; values below 1 fall back to the defaults and
// per_page is capped.
func parseListFilter(ctx *gin.Context) (task.ListFilter, error) {
	page, err := queryInt(ctx, "page", defaultPage)
	if err != nil {
		return task.ListFilter{}, err
	}
	perPage, err := queryInt(ctx, "per_page", defaultPerPage)
	if err != nil {
		return task.ListFilter{}, err
	}

	if page < 1 {
		page = defaultPage
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	f := task.ListFilter{Page: page, PerPage: perPage}

	if raw, ok := ctx.GetQuery("completed"); ok {
		completed := strings.EqualFold(raw, "true")
		f.Completed = &completed
	}

	return f, nil
}

func queryInt(ctx *gin.Context, key string, fallback int) (int, error) {
	raw, ok := ctx.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}
