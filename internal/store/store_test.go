package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titrack/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSettings(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.GetSetting(model.SettingTradeTax)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetSetting(model.SettingTradeTax, "true"))
	v, ok, err := s.GetSetting(model.SettingTradeTax)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", v)

	require.NoError(t, s.SetSetting(model.SettingTradeTax, "false"))
	v, _, _ = s.GetSetting(model.SettingTradeTax)
	assert.Equal(t, "false", v)
}

func TestStoreSlotState(t *testing.T) {
	s := openTestStore(t)
	scope := model.PlayerScope{PlayerId: "p1"}
	slot := model.SlotKey{PageId: 2, SlotId: 5}

	require.NoError(t, s.SaveSlotState(scope, slot, model.SlotState{TypeId: 100300, Quantity: 4}))
	loaded, err := s.LoadSlotState(scope)
	require.NoError(t, err)
	require.Contains(t, loaded, slot)
	assert.Equal(t, model.TypeId(100300), loaded[slot].TypeId)

	require.NoError(t, s.ClearSlotState(scope))
	loaded, err = s.LoadSlotState(scope)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStoreRunsAndDeltas(t *testing.T) {
	s := openTestStore(t)
	scope := model.PlayerScope{PlayerId: "p1"}
	now := time.Now().UTC().Truncate(time.Second)

	runID, err := s.InsertRun(model.Run{
		Scope:           scope,
		StartTs:         now,
		ZoneSignature:   "Rift of Dimensions",
		ZoneDisplayName: "Rift of Dimensions",
		LevelId:         555,
	})
	require.NoError(t, err)
	assert.NotZero(t, runID)

	runIDVal := int64(runID)
	_, err = s.InsertDelta(model.Delta{
		Scope:     scope,
		RunId:     &runIDVal,
		Slot:      model.SlotKey{PageId: 0, SlotId: 1},
		TypeId:    100300,
		SignedQty: 10,
		Context:   model.ContextPickItems,
		Timestamp: now,
	})
	require.NoError(t, err)

	deltas, err := s.ListDeltasForRun(runID)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, 10, deltas[0].SignedQty)

	require.NoError(t, s.CloseRun(runID, now.Add(time.Minute)))
	runs, err := s.ListRuns(scope, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NotNil(t, runs[0].EndTs)

	require.NoError(t, s.ResetRuns(scope))
	runs, err = s.ListRuns(scope, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreGetActiveRuns(t *testing.T) {
	s := openTestStore(t)
	scope := model.PlayerScope{PlayerId: "p1"}
	now := time.Now().UTC().Truncate(time.Second)

	outerID, err := s.InsertRun(model.Run{
		Scope:         scope,
		StartTs:       now,
		ZoneSignature: "Rift of Dimensions",
		LevelId:       555,
	})
	require.NoError(t, err)

	active, err := s.GetActiveRuns(scope)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, outerID, active[0].Id)

	parent := outerID
	subID, err := s.InsertRun(model.Run{
		Scope:         scope,
		StartTs:       now.Add(time.Second),
		ZoneSignature: "Rift of Dimensions/Sub",
		LevelId:       556,
		IsSubZone:     true,
		ParentRunId:   &parent,
	})
	require.NoError(t, err)

	active, err = s.GetActiveRuns(scope)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, outerID, active[0].Id)
	assert.Equal(t, subID, active[1].Id)

	require.NoError(t, s.CloseRun(subID, now.Add(2*time.Second)))
	active, err = s.GetActiveRuns(scope)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, outerID, active[0].Id)
}

func TestStoreItemsAndGearAllowlist(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertItem(model.Item{TypeId: 900001, Name: "Fate Shard", IconRef: "icon1", TypeCN: "命运"}))
	require.NoError(t, s.UpsertItem(model.Item{TypeId: 900002, Name: "Common Armor", IconRef: "icon2", TypeCN: "防具"}))

	item, ok, err := s.GetItem(900001)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "命运", item.TypeCN)

	allowed, err := s.GearAllowlistTypeIds(model.AllowedGearTypeCN)
	require.NoError(t, err)
	assert.True(t, allowed[900001])
	assert.False(t, allowed[900002])
}

func TestStorePricesAndOutbox(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.UpsertPrice(model.Price{Scope: "p1", TypeId: 100301, Value: 12.5, Source: model.PriceSourceExchangeLearned, UpdatedTs: now}))
	p, ok, err := s.GetPrice("p1", 100301)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 12.5, p.Value)

	id, err := s.EnqueueOutbox(model.OutboxEntry{TypeId: 100301, Value: 12.5, CapturedTs: now})
	require.NoError(t, err)

	entries, err := s.ListOutboxFIFO(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, s.DeleteOutboxEntry(id))
	depth, err := s.OutboxDepth()
	require.NoError(t, err)
	assert.Zero(t, depth)
}
