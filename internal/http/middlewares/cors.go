package middlewares

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const corsMaxAge = 10 * time.Minute

var (
	corsAllowMethods  = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}, ",")
	corsAllowHeaders  = strings.Join([]string{"Authorization", "Content-Type", requestIDHeader}, ",")
	corsExposeHeaders = strings.Join([]string{requestIDHeader, "Retry-After"}, ",")
)

// CORSMiddleware answers cross-origin requests from allowedOrigins. A "*"
// entry allows any origin; the origin is still echoed back rather than "*"
// because clients send an Authorization header. Preflights from allowed
// origins get 204 and stop here; other OPTIONS requests route normally.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	anyOrigin := slices.Contains(allowedOrigins, "*")
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		if origin == "" {
			ctx.Next()
			return
		}

		ctx.Writer.Header().Add("Vary", "Origin")

		_, ok := allowed[origin]
		if !ok && !anyOrigin {
			ctx.Next()
			return
		}

		ctx.Header("Access-Control-Allow-Origin", origin)
		ctx.Header("Access-Control-Expose-Headers", corsExposeHeaders)

		preflight := ctx.Request.Method == http.MethodOptions && ctx.GetHeader("Access-Control-Request-Method") != ""
		if !preflight {
			ctx.Next()
			return
		}

		ctx.Header("Access-Control-Allow-Methods", corsAllowMethods)
		ctx.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		ctx.Header("Access-Control-Max-Age", strconv.Itoa(int(corsMaxAge.Seconds())))
		ctx.AbortWithStatus(http.StatusNoContent)
	}
}
