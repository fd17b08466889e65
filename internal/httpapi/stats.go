package httpapi

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"titrack/internal/model"
	"titrack/internal/store"
	"titrack/internal/valuation"
)

// StatsHandler serves the "stats/history" resource of spec.md §6: bucketed
// time series of accrued value and value-per-hour.
type StatsHandler struct {
	store *store.Store
}

func NewStatsHandler(st *store.Store) *StatsHandler {
	return &StatsHandler{store: st}
}

// HistoryBucket is one hourly point of the player's own value time series.
type HistoryBucket struct {
	HourStart    time.Time `json:"hour_start"`
	Value        float64   `json:"value"`
	ValuePerHour float64   `json:"value_per_hour"`
	HasUnpriced  bool      `json:"has_unpriced"`
}

// History handles GET /api/stats/history?hours=N (default 24).
func (h *StatsHandler) History(c *gin.Context) {
	scope := currentScope(c)
	hours := queryInt(c, "hours", 24)

	deltas, err := h.store.ListDeltasForScope(scope, 100000)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}

	tradeTax := settingBool(h.store, model.SettingTradeTax, false)
	mapCost := settingBool(h.store, model.SettingMapCost, false)
	lookup := storeLookup{h.store}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	buckets := map[time.Time][]model.Delta{}
	for _, d := range deltas {
		if d.Timestamp.Before(cutoff) {
			continue
		}
		bucketStart := d.Timestamp.Truncate(time.Hour)
		buckets[bucketStart] = append(buckets[bucketStart], d)
	}

	out := make([]HistoryBucket, 0, len(buckets))
	for start, ds := range buckets {
		rv := valuation.ComputeRunValue(lookup, scope, scope.SeasonId, ds, tradeTax, mapCost)
		value := rv.Gross
		if mapCost {
			value = rv.Net
		}
		out = append(out, HistoryBucket{
			HourStart:    start,
			Value:        value,
			ValuePerHour: valuation.ValuePerHour(value, time.Hour.Seconds()),
			HasUnpriced:  rv.HasUnpriced,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HourStart.Before(out[j].HourStart) })

	c.JSON(http.StatusOK, gin.H{"buckets": out})
}
