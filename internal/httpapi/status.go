package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"titrack/internal/collector"
)

// StatusHandler serves the "status" resource of spec.md §6: whether the
// collector's log source is open, waiting for a player to be observed, or
// missing entirely.
type StatusHandler struct {
	collector *collector.Collector
}

func NewStatusHandler(coll *collector.Collector) *StatusHandler {
	return &StatusHandler{collector: coll}
}

// Get handles GET /api/status.
func (h *StatusHandler) Get(c *gin.Context) {
	s := h.collector.Status()
	c.JSON(http.StatusOK, gin.H{
		"log_path":           s.LogPath,
		"log_path_missing":   s.LogPathMissing,
		"waiting_for_player": s.WaitingForPlayer,
		"running":            s.Running,
	})
}
