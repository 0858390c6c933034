package ginserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/airgauge/internal/ports"
)

// Handler serves the current store contents in the Prometheus text format.
type Handler struct {
	store       ports.GaugeStore
	renderer    ports.SnapshotRenderer
	contentType string
}

// NewHandler wires the read side: every scrape snapshots store and renders it with r.
func NewHandler(store ports.GaugeStore, r ports.SnapshotRenderer, contentType string) *Handler {
	return &Handler{store: store, renderer: r, contentType: contentType}
}

// Metrics handles `GET /metrics`. An empty store yields an empty 200 body.
func (h *Handler) Metrics(c *gin.Context) {
	body := h.renderer.Render(h.store.Snapshot())
	c.Data(http.StatusOK, h.contentType, body)
}
