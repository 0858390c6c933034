// Package ginserver exposes the exporter over HTTP using gin.
package ginserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MetricsPath is the only route the exporter serves.
const MetricsPath = "/metrics"

func NewRouter(h *Handler, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.RedirectTrailingSlash = false
	r.RemoveExtraSlash = true

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "not found")
	})

	r.GET(MetricsPath, h.Metrics)

	return r
}
