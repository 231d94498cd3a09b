package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rollout/backend/internal/interfaces/http/dto"
)

// BodyLimit caps the request body at maxBytes. Dashboard writes are small
// (overrides, pauses, settings), so anything bigger is rejected outright with
// the standard error envelope. Bodies without a declared Content-Length are
// still capped through http.MaxBytesReader while the handler reads them.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			resp := dto.NewErrorResponseWithRequestID(
				dto.ErrCodePayloadTooLarge,
				fmt.Sprintf("Request body exceeds the %d byte limit", maxBytes),
				c.GetString("request_id"),
			)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, resp)
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
