package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/taskmanager/internal/accounts"
	"github.com/geocoder89/taskmanager/internal/config"
	"github.com/geocoder89/taskmanager/internal/domain/user"
	"github.com/geocoder89/taskmanager/internal/http/middlewares"
	"github.com/geocoder89/taskmanager/internal/observability"
	"github.com/geocoder89/taskmanager/internal/security"
	"github.com/gin-gonic/gin"
)

const (
	msgMissingFields      = "Missing required fields"
	msgMissingCredentials = "Missing credentials"
	msgInvalidCredentials = "Invalid credentials"
	msgUsernameTaken      = "Username already exists"
	msgEmailTaken         = "Email already exists"
)

type AccountStore interface {
	CreateUser(ctx context.Context, in accounts.CreateUserInput) (string, error)
	FindByUsername(ctx context.Context, username string) (user.User, bool, error)
	VerifyPassword(storedHash, candidate string) bool
}

type TokenIssuer interface {
	Issue(userID, username string, role user.Role) (string, error)
}

type AuthHandler struct {
	accounts AccountStore
	tokens   TokenIssuer
	prom     *observability.Prom
}

// prom may be nil.
func NewAuthHandler(store AccountStore, tokens TokenIssuer, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{accounts: store, tokens: tokens, prom: prom}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// dummyHash keeps an unknown-username login as slow as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	h, err := security.HashPassword("taskmanager-timing-equalizer")
	if err != nil {
		return ""
	}
	return h
})

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSONMessage(ctx, &req, msgMissingFields) {
		return
	}

	role, err := user.ParseRole(req.Role)
	if err != nil {
		RespondBadRequest(ctx, "Invalid role", gin.H{"role": "must be one of user, admin"})
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	id, err := h.accounts.CreateUser(cctx, accounts.CreateUserInput{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Role:     role,
	})

	if err != nil {
		switch {
		case errors.Is(err, user.ErrValidation):
			RespondBadRequest(ctx, msgMissingFields, nil)
		case errors.Is(err, user.ErrInvalidRole):
			RespondBadRequest(ctx, "Invalid role", nil)
		case errors.Is(err, user.ErrUsernameTaken):
			RespondConflict(ctx, msgUsernameTaken)
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, msgEmailTaken)
		default:
			slog.Default().ErrorContext(ctx.Request.Context(), "register_failed", "err", err)
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user_id": id,
	})
}

// Login answers an unknown username and a wrong password with the same 401.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSONMessage(ctx, &req, msgMissingCredentials) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	found, ok, err := h.accounts.FindByUsername(cctx, req.Username)
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "login_lookup_failed", "err", err)
		RespondInternal(ctx, "Could not log in")
		return
	}

	if !ok {
		h.accounts.VerifyPassword(dummyHash(), req.Password)
		h.prom.AuthFailure("bad_credentials")
		RespondUnauthorized(ctx, msgInvalidCredentials)
		return
	}

	if !h.accounts.VerifyPassword(found.PasswordHash, req.Password) {
		h.prom.AuthFailure("bad_credentials")
		RespondUnauthorized(ctx, msgInvalidCredentials)
		return
	}

	token, err := h.tokens.Issue(found.ID, found.Username, found.Role)
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "token_issue_failed", "user_id", found.ID, "err", err)
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    found.ToPublic(),
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnauthorized(ctx, middlewares.MsgTokenMissing)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u.ToPublic()})
}
