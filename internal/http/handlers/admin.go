package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/taskmanager/internal/config"
	"github.com/geocoder89/taskmanager/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type UserFinder interface {
	FindByID(ctx context.Context, id string) (user.User, bool, error)
}

type AdminHandler struct {
	users UserFinder
}

func NewAdminHandler(users UserFinder) *AdminHandler {
	return &AdminHandler{users: users}
}

func (h *AdminHandler) GetUser(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, ok, err := h.users.FindByID(cctx, ctx.Param("id"))
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "admin_get_user_failed", "err", err)
		RespondInternal(ctx, "Could not load user")
		return
	}
	if !ok {
		RespondNotFound(ctx, "User not found")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u.ToPublic()})
}
