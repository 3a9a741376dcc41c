package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/taskmanager/internal/actorctx"
	"github.com/geocoder89/taskmanager/internal/auth"
	"github.com/geocoder89/taskmanager/internal/domain/user"
	"github.com/geocoder89/taskmanager/internal/observability"
	"github.com/gin-gonic/gin"
)

const (
	MsgTokenMissing  = "Token is missing"
	MsgInvalidFormat = "Invalid token format"
	MsgTokenExpired  = "Token has expired"
	MsgInvalidToken  = "Invalid token"
	MsgUserNotFound  = "User not found"
	MsgAdminRequired = "Admin access required"
)

// TokenVerifier decodes a bearer token into its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserFinder loads the user a token's claims point at.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (user.User, bool, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
	users  UserFinder
	prom   *observability.Prom
}

// prom may be nil.
func NewAuthMiddleware(tokens TokenVerifier, users UserFinder, prom *observability.Prom) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, prom: prom}
}

// RequireAuth resolves the bearer token to a live user record. Every failure
// stops the chain with a 401, except a store error which is a 500.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		values := c.Request.Header.Values("Authorization")
		if len(values) == 0 {
			m.reject(c, "missing", MsgTokenMissing)
			return
		}

		raw, ok := bearerToken(values[0])
		if !ok {
			m.reject(c, "format", MsgInvalidFormat)
			return
		}

		claims, err := m.tokens.Verify(raw)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				m.reject(c, "expired", MsgTokenExpired)
				return
			}
			m.reject(c, "invalid", MsgInvalidToken)
			return
		}

		u, found, err := m.users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			slog.Default().ErrorContext(c.Request.Context(), "auth_user_lookup_failed",
				"user_id", claims.UserID,
				"err", err,
			)
			abortError(c, http.StatusInternalServerError, "internal_error", "Could not authenticate request")
			return
		}
		if !found {
			m.reject(c, "user_not_found", MsgUserNotFound)
			return
		}

		c.Set(CtxUser, u)
		c.Request = c.Request.WithContext(actorctx.WithUser(c.Request.Context(), u))

		c.Next()
	}
}

func (m *AuthMiddleware) reject(c *gin.Context, reason, message string) {
	m.prom.AuthFailure(reason)
	abortError(c, http.StatusUnauthorized, "unauthorized", message)
}

// bearerToken accepts exactly "Bearer <token>": one space, a case-insensitive
// scheme and a non-empty token without whitespace. A present but empty header
// is a format error, not a missing token.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}

	return token, true
}

// CurrentUser returns the user RequireAuth resolved for this request.
func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok && u.ID != ""
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	u, ok := CurrentUser(c)
	return u.ID, ok
}
