package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin stacks after RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			m.reject(c, "missing", MsgTokenMissing)
			return
		}

		if !u.Role.IsAdmin() {
			m.prom.AuthFailure("forbidden")
			abortError(c, http.StatusForbidden, "forbidden", MsgAdminRequired)
			return
		}

		c.Next()
	}
}
