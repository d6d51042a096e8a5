package http

import (
	"net/http"
	"strconv"
	"time"

	"contest-service/internal/app"
	"contest-service/internal/metrics"
	"contest-service/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions toggles optional endpoints.
type RouterOptions struct {
	Metrics bool
}

// NewRouter wires the REST API, the session websocket and operational endpoints.
func NewRouter(service *app.ContestService, sessions *session.Manager, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if opts.Metrics {
		r.Use(metricsMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws", gin.WrapF(NewWSHandler(sessions).ServeWS))

	NewAPI(service).Register(r.Group("/api"))
	return r
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		metrics.RequestCounter.WithLabelValues(status, method, path).Inc()
		metrics.RequestDuration.WithLabelValues(status, method, path).Observe(time.Since(start).Seconds())
	}
}
