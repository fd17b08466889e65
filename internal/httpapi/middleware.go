package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"titrack/internal/collector"
	"titrack/internal/log"
)

const traceIDKey = "trace_id"
const traceIDHeader = "X-Trace-ID"
const scopeKey = "player_scope"

// scopeInjector stashes the collector's current PlayerScope on the gin
// context so every handler resolves "the current player" the same way,
// without each handler reaching back into the Collector directly.
func scopeInjector(coll *collector.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(scopeKey, coll.CurrentScope())
		c.Next()
	}
}

// traceID injects a UUID trace id into every request context and response
// header, grounded on kasuganosora-rpgmakermvmmo's middleware.TraceID.
func traceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(traceIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(traceIDKey, id)
		c.Header(traceIDHeader, id)
		c.Next()
	}
}

func getTraceID(c *gin.Context) string {
	if v, ok := c.Get(traceIDKey); ok {
		return v.(string)
	}
	return ""
}

// requestLogger logs each request through the process-wide structured
// logger, grounded on kasuganosora-rpgmakermvmmo's middleware.Logger but
// emitting through internal/log's slog-based global instead of a passed-in
// *zap.Logger, consistent with the rest of this codebase.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http: "+c.Request.Method+" "+c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"trace_id", getTraceID(c),
			"client_ip", c.ClientIP(),
		)
	}
}

// recovery catches panics in handlers and returns a structured 500 instead
// of letting gin's default handler tear down the connection bare.
func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("http: panic recovered",
					"error", r,
					"trace_id", getTraceID(c),
					"path", c.Request.URL.Path,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal_error",
				})
			}
		}()
		c.Next()
	}
}
