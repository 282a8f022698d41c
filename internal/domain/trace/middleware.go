package trace

import (
	"github.com/gin-gonic/gin"
)

// Header carries the trace id across HTTP boundaries.
const Header = "X-Trace-ID"

// Middleware creates Gin middleware that installs the request's trace id.
// The id is taken from the X-Trace-ID header when present, generated
// otherwise, and always echoed on the response so callers can correlate.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, traceID := Install(c.Request.Context(), c.GetHeader(Header))
		c.Request = c.Request.WithContext(ctx)
		c.Header(Header, traceID)
		c.Next()
	}
}
