package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titrack/internal/cloudsync"
	"titrack/internal/collector"
	"titrack/internal/config"
	"titrack/internal/metrics"
	"titrack/internal/model"
	"titrack/internal/store"
	"titrack/internal/tailer"
)

type noopRemote struct{}

func (noopRemote) SubmitPrice(ctx context.Context, deviceUUID string, typeID model.TypeId, value float64, capturedTs time.Time) error {
	return nil
}
func (noopRemote) FetchSeasonPrices(ctx context.Context, season string, offset, limit int) ([]model.CloudPrice, error) {
	return nil, nil
}
func (noopRemote) FetchPriceHistory(ctx context.Context, typeID model.TypeId, since time.Time, offset, limit int) ([]model.PriceHistoryRow, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store, *collector.Collector) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	worker := cloudsync.New(noopRemote{}, st, st, "device-test")
	coll := collector.New(st, "/dev/null", tailer.Position{}, worker)
	coll.ColdStart(0)

	iconDir := t.TempDir()
	iconCache, err := NewIconCache(iconDir)
	require.NoError(t, err)

	r := NewRouter(Deps{
		Store:     st,
		Collector: coll,
		Cloud:     worker,
		Config:    &config.Config{},
		Metrics:   metrics.New(prometheus.NewRegistry()),
		IconCache: iconCache,
	})
	return r, st, coll
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInventoryList(t *testing.T) {
	r, st, coll := newTestRouter(t)

	scope := model.PlayerScope{PlayerId: "hero-1"}
	require.NoError(t, st.SaveSlotState(scope, model.SlotKey{PageId: 2, SlotId: 1}, model.SlotState{TypeId: 100301, Quantity: 4}))
	require.NoError(t, st.UpsertPrice(model.Price{Scope: scope.Key(), TypeId: 100301, Value: 2.5, Source: model.PriceSourceManual, UpdatedTs: time.Now()}))
	seedScope(t, coll, scope)

	w := doJSON(r, http.MethodGet, "/api/inventory?sort=value", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Slots []SlotRow `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Slots, 1)
	assert.Equal(t, model.TypeId(100301), body.Slots[0].TypeId)
	assert.Equal(t, 10.0, body.Slots[0].Value)
}

func TestPricesPutAndGet(t *testing.T) {
	r, _, coll := newTestRouter(t)
	seedScope(t, coll, model.PlayerScope{PlayerId: "hero-1"})

	w := doJSON(r, http.MethodPut, "/api/prices/100301", map[string]any{"value": 3.5})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/prices/100301", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Price model.Price `json:"price"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3.5, body.Price.Value)
	assert.Equal(t, model.PriceSourceManual, body.Price.Source)
}

func TestPricesPutRejectsBaseCurrency(t *testing.T) {
	r, _, coll := newTestRouter(t)
	seedScope(t, coll, model.PlayerScope{PlayerId: "hero-1"})

	w := doJSON(r, http.MethodPut, "/api/prices/100300", map[string]any{"value": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsWhitelist(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPut, "/api/settings/trade_tax_enabled", map[string]any{"value": "true"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodPut, "/api/settings/device_uuid", map[string]any{"value": "hack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Settings map[string]string `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "true", body.Settings["trade_tax_enabled"])
}

func TestStatusReportsWaitingForPlayer(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		WaitingForPlayer bool `json:"waiting_for_player"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.WaitingForPlayer)
}

func TestCloudStatusAndToggle(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/api/cloud/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/cloud/disable", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodGet, "/api/cloud/status", nil)
	var body struct {
		Enabled bool `json:"enabled"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Enabled)
}

func TestRunsResetClearsRuns(t *testing.T) {
	r, st, coll := newTestRouter(t)
	scope := model.PlayerScope{PlayerId: "hero-1"}
	seedScope(t, coll, scope)

	_, err := st.InsertRun(model.Run{Scope: scope, StartTs: time.Now(), ZoneSignature: "z1"})
	require.NoError(t, err)

	w := doJSON(r, http.MethodPost, "/api/runs/reset", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	runs, err := st.ListRuns(scope, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunsResetSyncsLiveSegmenter(t *testing.T) {
	r, _, coll := newTestRouter(t)
	seedScope(t, coll, model.PlayerScope{PlayerId: "hero-1"})

	now := time.Now()
	coll.ProcessLine("SceneLevelMgr@ OpenMainWorld END! InMainLevelPath = /Game/Art/Maps/01SD/GeBuLinCunLuo/Main", now)
	coll.ProcessLine("GameLog: Display: [Game] LevelMgr@ LevelUid, LevelType, LevelId = 7 1 501", now)

	w := doJSON(r, http.MethodPost, "/api/runs/reset", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodGet, "/api/runs/open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Run *model.Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body.Run)
}

// seedScope feeds a Player@ PlayerId line through the collector so
// CurrentScope() resolves as the handlers expect.
func seedScope(t *testing.T, coll *collector.Collector, scope model.PlayerScope) {
	t.Helper()
	coll.ProcessLine("GameLog: Display: [Game] Player@ PlayerId = "+scope.PlayerId, time.Now())
}
