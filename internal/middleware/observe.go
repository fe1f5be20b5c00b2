package middleware

import (
	"strconv"
	"time"

	"members/internal/obs"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const TraceHeader = "X-Trace-ID"

// TraceID keeps a caller supplied trace id or mints one, and echoes it back.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TraceHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set("trace_id", id)
		c.Header(TraceHeader, id)
		c.Next()
	}
}

// routeLabel uses the matched route pattern so ids in paths do not explode
// metric cardinality.
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		obs.HTTPInFlight.Inc()
		start := time.Now()
		c.Next()
		obs.HTTPInFlight.Dec()

		status := strconv.Itoa(c.Writer.Status())
		path := routeLabel(c)
		obs.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		obs.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// RequestLog writes one JSON line per request.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := map[string]any{
			"ts":          start.UTC().Format(time.RFC3339Nano),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       routeLabel(c),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
			"trace_id":    c.GetString("trace_id"),
		}
		if actor := ActorFrom(c); actor.Authenticated {
			entry["user_id"] = actor.UserID()
		}
		if len(c.Errors) > 0 {
			entry["error"] = c.Errors.String()
		}
		obs.LogRequest(entry)
	}
}
