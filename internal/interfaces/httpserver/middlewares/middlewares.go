package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/extruline/report-bot/internal/infrastructure/metrics"
)

// RequestID tags every request with an id for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}

// RequestLogger logs HTTP requests
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if len(c.Errors) > 0 {
			for _, e := range c.Errors {
				log.Error().
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Int("status", c.Writer.Status()).
					Err(e.Err).
					Msg("request error")
			}
		}

		logEvent := log.Info()
		if c.Writer.Status() >= 400 {
			logEvent = log.Warn()
		}
		logEvent.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", c.GetString("requestID")).
			Msg("request completed")
	}
}

// MetricsRecorder records HTTP request metrics for Prometheus
func MetricsRecorder() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" || path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return
		}

		metrics.RequestDuration.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
