package middlewares

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var compressible = []string{"text/plain", "application/json", "text/html"}

type gzipResponseWriter struct {
	gin.ResponseWriter
	gzw      *gzip.Writer
	compress bool
	decided  bool
}

func (w *gzipResponseWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true

	ct := w.Header().Get("Content-Type")
	ok := false
	for _, p := range compressible {
		if strings.HasPrefix(ct, p) {
			ok = true
			break
		}
	}
	if !ok {
		return
	}
	status := w.Status()
	if status == http.StatusNoContent || status < 200 {
		return
	}

	w.Header().Del("Content-Length")
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Add("Vary", "Accept-Encoding")
	w.gzw = gzip.NewWriter(w.ResponseWriter)
	w.compress = true
}

func (w *gzipResponseWriter) Write(p []byte) (int, error) {
	w.decide()
	if w.compress {
		return w.gzw.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *gzipResponseWriter) Close() error {
	if w.gzw != nil {
		return w.gzw.Close()
	}
	return nil
}

// GzipResponse compresses text and JSON bodies for clients sending Accept-Encoding: gzip.
func GzipResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(strings.ToLower(c.GetHeader("Accept-Encoding")), "gzip") {
			c.Next()
			return
		}
		grw := &gzipResponseWriter{ResponseWriter: c.Writer}
		c.Writer = grw
		c.Next()
		if err := grw.Close(); err != nil {
			_ = c.Error(err)
		}
	}
}
