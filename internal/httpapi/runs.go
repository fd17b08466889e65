package httpapi

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"titrack/internal/collector"
	"titrack/internal/model"
	"titrack/internal/store"
	"titrack/internal/valuation"
)

// RunsHandler serves the "runs" resource of spec.md §6.
type RunsHandler struct {
	store     *store.Store
	collector *collector.Collector
}

func NewRunsHandler(st *store.Store, c *collector.Collector) *RunsHandler {
	return &RunsHandler{store: st, collector: c}
}

func parseRunID(c *gin.Context) (model.RunId, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_run_id"})
		return 0, false
	}
	return model.RunId(id), true
}

func currentScope(c *gin.Context) model.PlayerScope {
	if v, ok := c.Get(scopeKey); ok {
		return v.(model.PlayerScope)
	}
	return model.PlayerScope{}
}

// List handles GET /api/runs?limit=N, most recent first.
func (h *RunsHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	runs, err := h.store.ListRuns(currentScope(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// Open handles GET /api/runs/open: the currently in-progress run, if any.
func (h *RunsHandler) Open(c *gin.Context) {
	runs, err := h.store.ListRuns(currentScope(c), 1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	if len(runs) == 0 || runs[0].EndTs != nil {
		c.JSON(http.StatusOK, gin.H{"run": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": runs[0]})
}

// Get handles GET /api/runs/:id and includes the run's per-item valuation.
func (h *RunsHandler) Get(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	run, found, err := h.store.GetRun(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "run_not_found"})
		return
	}
	rv := h.valueRun(run)
	c.JSON(http.StatusOK, gin.H{"run": run, "value": rv})
}

// Summary handles GET /api/runs/summary: aggregate value and value/hour
// across the current scope's recent runs, per spec.md §4.7.
func (h *RunsHandler) Summary(c *gin.Context) {
	scope := currentScope(c)
	limit := queryInt(c, "limit", 200)
	runs, err := h.store.ListRuns(scope, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}

	mapCostEnabled := settingBool(h.store, model.SettingMapCost, false)

	var values []valuation.RunValue
	var totalSeconds float64
	for _, r := range runs {
		if r.EndTs == nil {
			continue
		}
		rv := h.valueRun(r)
		values = append(values, rv)
		totalSeconds += r.DurationSeconds(time.Now())
	}

	var totalValue float64
	for _, v := range values {
		if mapCostEnabled {
			totalValue += v.Net
		} else {
			totalValue += v.Gross
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"run_count":      len(values),
		"total_value":    totalValue,
		"avg_per_run":    valuation.AvgPerRun(values, mapCostEnabled),
		"value_per_hour": valuation.ValuePerHour(totalValue, totalSeconds),
	})
}

// Report handles GET /api/runs/:id/report?format=json|csv, the cumulative
// per-item report of spec.md §6.
func (h *RunsHandler) Report(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	run, found, err := h.store.GetRun(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "run_not_found"})
		return
	}
	rv := h.valueRun(run)

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=run_"+strconv.FormatInt(int64(id), 10)+".csv")
		w := csv.NewWriter(c.Writer)
		w.Write([]string{"type_id", "signed_qty", "unpriced", "value"})
		for _, item := range rv.Items {
			w.Write([]string{
				strconv.FormatInt(int64(item.TypeId), 10),
				strconv.Itoa(item.SignedQty),
				strconv.FormatBool(item.Unpriced),
				strconv.FormatFloat(item.Value, 'f', -1, 64),
			})
		}
		w.Flush()
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run, "value": rv})
}

// TogglePause handles POST /api/runs/:id/pause.
func (h *RunsHandler) TogglePause(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	run, found, err := h.store.GetRun(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "run_not_found"})
		return
	}
	if err := h.store.SetRunPaused(id, !run.Paused); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": !run.Paused})
}

// Reset handles POST /api/runs/reset: clears every run and delta for the
// current scope, per spec.md §4.6.
func (h *RunsHandler) Reset(c *gin.Context) {
	if err := h.store.ResetRuns(currentScope(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	if h.collector != nil {
		h.collector.ResetSegmenter()
	}
	c.Status(http.StatusNoContent)
}

func (h *RunsHandler) valueRun(run model.Run) valuation.RunValue {
	deltas, err := h.store.ListDeltasForRun(run.Id)
	if err != nil {
		return valuation.RunValue{}
	}
	tradeTax := settingBool(h.store, model.SettingTradeTax, false)
	mapCost := settingBool(h.store, model.SettingMapCost, false)
	return valuation.ComputeRunValue(storeLookup{h.store}, run.Scope, run.Scope.SeasonId, deltas, tradeTax, mapCost)
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
