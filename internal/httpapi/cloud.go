package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"titrack/internal/cloudsync"
	"titrack/internal/store"
)

// CloudHandler serves the "cloud" resource of spec.md §6: status,
// enable/disable, manual sync, and the community-aggregated read-through
// price cache and history.
type CloudHandler struct {
	worker *cloudsync.Worker
	store  *store.Store
}

func NewCloudHandler(w *cloudsync.Worker, st *store.Store) *CloudHandler {
	return &CloudHandler{worker: w, store: st}
}

// Status handles GET /api/cloud/status.
func (h *CloudHandler) Status(c *gin.Context) {
	depth, err := h.store.OutboxDepth()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	status := h.worker.Status()
	c.JSON(http.StatusOK, gin.H{
		"enabled":      status.Enabled,
		"season":       status.Season,
		"outbox_depth": depth,
	})
}

// Enable handles POST /api/cloud/enable.
func (h *CloudHandler) Enable(c *gin.Context) {
	h.worker.SetEnabled(true)
	c.Status(http.StatusNoContent)
}

// Disable handles POST /api/cloud/disable.
func (h *CloudHandler) Disable(c *gin.Context) {
	h.worker.SetEnabled(false)
	c.Status(http.StatusNoContent)
}

// ManualSync handles POST /api/cloud/sync: runs one uplink and downlink
// cycle immediately, outside the worker's usual cadence.
func (h *CloudHandler) ManualSync(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	h.worker.TriggerUplink(ctx)
	h.worker.TriggerDownlink(ctx)
	c.Status(http.StatusNoContent)
}

// PriceReadThrough handles GET /api/cloud/prices/:typeId: the locally
// cached community-aggregated price, refreshed by the Downlink loop rather
// than fetched synchronously.
func (h *CloudHandler) PriceReadThrough(c *gin.Context) {
	typeID, ok := parseTypeIDParam(c)
	if !ok {
		return
	}
	p, found, err := h.store.GetCloudPrice(typeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "cloud_price_not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": p})
}

// History handles GET /api/cloud/history/:typeId?since=RFC3339.
func (h *CloudHandler) History(c *gin.Context) {
	typeID, ok := parseTypeIDParam(c)
	if !ok {
		return
	}
	since := time.Now().Add(-cloudsync.PriceHistoryWindow)
	if v := c.Query("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			since = t
		}
	}
	rows, err := h.store.ListPriceHistory(typeID, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": rows})
}
