package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps request bodies at limit bytes; a non-positive limit
// disables the cap. A declared Content-Length over the limit is refused
// before any handler runs. Chunked bodies are cut off while being read and
// surface as *http.MaxBytesError from the decoder.
func MaxBodyBytes(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		return func(ctx *gin.Context) { ctx.Next() }
	}

	msg := fmt.Sprintf("Request body exceeds %d bytes", limit)

	return func(ctx *gin.Context) {
		if ctx.Request.ContentLength > limit {
			abortError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", msg)
			return
		}
		if ctx.Request.Body != nil {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
		}

		ctx.Next()
	}
}
