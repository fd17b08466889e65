package deltaengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titrack/internal/logparser"
	"titrack/internal/model"
)

func TestApply(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0)
	slot := model.SlotKey{PageId: 2, SlotId: 3}

	t.Run("BagInit seeds slot state without emitting a delta", func(t *testing.T) {
		bag := Bag{}
		deltas := Apply(bag, logparser.Event{Kind: logparser.EventBagInit, Slot: slot, TypeId: 100300, Num: 7}, ts)
		assert.Empty(t, deltas)
		assert.Equal(t, model.SlotState{TypeId: 100300, Quantity: 7}, bag[slot])
	})

	t.Run("BagModify on empty slot emits a positive pickup delta", func(t *testing.T) {
		bag := Bag{}
		deltas := Apply(bag, logparser.Event{Kind: logparser.EventBagModify, Slot: slot, TypeId: 100300, Num: 5}, ts)
		require.Len(t, deltas, 1)
		assert.Equal(t, 5, deltas[0].SignedQty)
		assert.Equal(t, model.TypeId(100300), deltas[0].TypeId)
	})

	t.Run("BagModify with same TypeId emits the quantity difference", func(t *testing.T) {
		bag := Bag{slot: {TypeId: 100300, Quantity: 5}}
		deltas := Apply(bag, logparser.Event{Kind: logparser.EventBagModify, Slot: slot, TypeId: 100300, Num: 8}, ts)
		require.Len(t, deltas, 1)
		assert.Equal(t, 3, deltas[0].SignedQty)
	})

	t.Run("BagModify with unchanged quantity emits no delta", func(t *testing.T) {
		bag := Bag{slot: {TypeId: 100300, Quantity: 5}}
		deltas := Apply(bag, logparser.Event{Kind: logparser.EventBagModify, Slot: slot, TypeId: 100300, Num: 5}, ts)
		assert.Empty(t, deltas)
	})

	t.Run("BagModify with a different TypeId emits a swap: two deltas in order", func(t *testing.T) {
		bag := Bag{slot: {TypeId: 100300, Quantity: 5}}
		deltas := Apply(bag, logparser.Event{Kind: logparser.EventBagModify, Slot: slot, TypeId: 200400, Num: 2}, ts)
		require.Len(t, deltas, 2)
		assert.Equal(t, model.TypeId(100300), deltas[0].TypeId)
		assert.Equal(t, -5, deltas[0].SignedQty)
		assert.Equal(t, model.TypeId(200400), deltas[1].TypeId)
		assert.Equal(t, 2, deltas[1].SignedQty)
		assert.Equal(t, model.SlotState{TypeId: 200400, Quantity: 2}, bag[slot])
	})

	t.Run("BagRemove on occupied slot emits a negative delta and empties the slot", func(t *testing.T) {
		bag := Bag{slot: {TypeId: 100300, Quantity: 5}}
		deltas := Apply(bag, logparser.Event{Kind: logparser.EventBagRemove, Slot: slot}, ts)
		require.Len(t, deltas, 1)
		assert.Equal(t, -5, deltas[0].SignedQty)
		assert.True(t, bag[slot].Empty)
	})

	t.Run("BagRemove on already-empty slot emits no delta", func(t *testing.T) {
		bag := Bag{slot: {Empty: true}}
		deltas := Apply(bag, logparser.Event{Kind: logparser.EventBagRemove, Slot: slot}, ts)
		assert.Empty(t, deltas)
	})

	t.Run("excluded gear-page slot is dropped entirely", func(t *testing.T) {
		bag := Bag{}
		gearSlot := model.SlotKey{PageId: model.GearPageId, SlotId: 0}
		deltas := Apply(bag, logparser.Event{Kind: logparser.EventBagModify, Slot: gearSlot, TypeId: 999, Num: 1}, ts)
		assert.Empty(t, deltas)
		_, exists := bag[gearSlot]
		assert.False(t, exists)
	})
}
