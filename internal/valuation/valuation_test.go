package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titrack/internal/model"
)

type fakeLookup struct {
	local map[model.TypeId]model.Price
	cloud map[model.TypeId]model.CloudPrice
}

func (f fakeLookup) LocalPrice(scope string, typeID model.TypeId) (model.Price, bool) {
	p, ok := f.local[typeID]
	return p, ok
}

func (f fakeLookup) CloudPrice(season string, typeID model.TypeId) (model.CloudPrice, bool) {
	c, ok := f.cloud[typeID]
	return c, ok
}

func TestEffectivePrice(t *testing.T) {
	scope := model.PlayerScope{PlayerId: "p1"}
	now := time.Now()

	t.Run("Base Currency is always 1", func(t *testing.T) {
		price, ok := EffectivePrice(fakeLookup{}, scope, "S5", model.BaseCurrencyTypeId)
		require.True(t, ok)
		assert.Equal(t, 1.0, price)
	})

	t.Run("unpriced TypeId resolves with ok=false", func(t *testing.T) {
		_, ok := EffectivePrice(fakeLookup{}, scope, "S5", 999)
		assert.False(t, ok)
	})

	t.Run("only local price present wins", func(t *testing.T) {
		lookup := fakeLookup{local: map[model.TypeId]model.Price{100301: {Value: 5, UpdatedTs: now}}}
		price, ok := EffectivePrice(lookup, scope, "S5", 100301)
		require.True(t, ok)
		assert.Equal(t, 5.0, price)
	})

	t.Run("cloud wins a tie in updatedTs", func(t *testing.T) {
		lookup := fakeLookup{
			local: map[model.TypeId]model.Price{100301: {Value: 5, UpdatedTs: now}},
			cloud: map[model.TypeId]model.CloudPrice{100301: {Median: 9, CloudUpdatedTs: now}},
		}
		price, ok := EffectivePrice(lookup, scope, "S5", 100301)
		require.True(t, ok)
		assert.Equal(t, 9.0, price)
	})

	t.Run("more recent local price wins over stale cloud price", func(t *testing.T) {
		lookup := fakeLookup{
			local: map[model.TypeId]model.Price{100301: {Value: 5, UpdatedTs: now}},
			cloud: map[model.TypeId]model.CloudPrice{100301: {Median: 9, CloudUpdatedTs: now.Add(-time.Hour)}},
		}
		price, ok := EffectivePrice(lookup, scope, "S5", 100301)
		require.True(t, ok)
		assert.Equal(t, 5.0, price)
	})
}

func TestEffectivePriceTaxed(t *testing.T) {
	assert.Equal(t, 100.0, EffectivePriceTaxed(100, false))
	assert.InDelta(t, 87.5, EffectivePriceTaxed(100, true), 1e-9)
}

func TestComputeRunValue(t *testing.T) {
	scope := model.PlayerScope{PlayerId: "p1"}
	now := time.Now()
	lookup := fakeLookup{local: map[model.TypeId]model.Price{
		100301: {Value: 10, UpdatedTs: now},
		100302: {Value: 4, UpdatedTs: now},
	}}

	deltas := []model.Delta{
		{TypeId: 100301, SignedQty: 3, Context: model.ContextPickItems, Timestamp: now},
		{TypeId: 100302, SignedQty: -1, Context: model.ContextMapOpen, Timestamp: now},
	}

	t.Run("gross, mapCost, and net without tax", func(t *testing.T) {
		rv := ComputeRunValue(lookup, scope, "S5", deltas, false, true)
		assert.Equal(t, 30.0, rv.Gross)
		assert.Equal(t, 4.0, rv.MapCost)
		assert.Equal(t, 26.0, rv.Net)
		assert.False(t, rv.HasUnpriced)
	})

	t.Run("trade tax reduces gross but never mapCost", func(t *testing.T) {
		rv := ComputeRunValue(lookup, scope, "S5", deltas, true, true)
		assert.InDelta(t, 26.25, rv.Gross, 1e-9)
		assert.Equal(t, 4.0, rv.MapCost)
	})

	t.Run("mapCost toggle off leaves net equal to gross", func(t *testing.T) {
		rv := ComputeRunValue(lookup, scope, "S5", deltas, false, false)
		assert.Equal(t, rv.Gross, rv.Net)
	})

	t.Run("unpriced item flags hasUnpriced and contributes zero", func(t *testing.T) {
		deltas := []model.Delta{{TypeId: 777, SignedQty: 5, Context: model.ContextPickItems}}
		rv := ComputeRunValue(lookup, scope, "S5", deltas, false, true)
		assert.True(t, rv.HasUnpriced)
		assert.Equal(t, 0.0, rv.Gross)
	})
}

func TestAggregates(t *testing.T) {
	assert.Equal(t, 0.0, ValuePerHour(100, 0))
	assert.InDelta(t, 200, ValuePerHour(100, 1800), 1e-9)

	runs := []RunValue{{Gross: 10, Net: 8}, {Gross: 20, Net: 15}}
	assert.Equal(t, 15.0, AvgPerRun(runs, false))
	assert.Equal(t, 11.5, AvgPerRun(runs, true))
}
