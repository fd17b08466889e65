// Package deltaengine implements the pure state transition of spec.md §4.4:
// given the current Slot State and a bag event, produce the next Slot State
// and zero, one, or two Deltas.
//
// Grounded on the teacher's internal/proxy/streaming/update_trackers.go,
// which applies a similar "compare old vs new, emit a change record" shape
// for warp-count tracking; generalized here to the richer slot/swap rules of
// original_source/src/titrack/collector/collector.go's _apply_bag_event.
package deltaengine

import (
	"time"

	"titrack/internal/logparser"
	"titrack/internal/model"
)

// Bag is the slot-state store the engine reads and writes. The Collector
// supplies an implementation backed by the Store package; tests use an
// in-memory map.
type Bag map[model.SlotKey]model.SlotState

// Apply evaluates one BagInit/BagModify/BagRemove event against bag in
// place and returns the resulting deltas (0, 1, or 2) with Timestamp and
// Slot/TypeId populated but Context, Scope, and RunId left for the caller
// to fill in, per spec.md §4.4's tagging rule.
func Apply(bag Bag, ev logparser.Event, ts time.Time) []model.Delta {
	switch ev.Kind {
	case logparser.EventBagInit:
		if model.IsExcludedSlot(ev.Slot.PageId, ev.TypeId) {
			return nil
		}
		bag[ev.Slot] = model.SlotState{TypeId: ev.TypeId, Quantity: ev.Num}
		return nil

	case logparser.EventBagModify:
		if model.IsExcludedSlot(ev.Slot.PageId, ev.TypeId) {
			return nil
		}
		prev, existed := bag[ev.Slot]
		if !existed || prev.Empty {
			bag[ev.Slot] = model.SlotState{TypeId: ev.TypeId, Quantity: ev.Num}
			return []model.Delta{{
				Slot:      ev.Slot,
				TypeId:    ev.TypeId,
				SignedQty: ev.Num,
				Timestamp: ts,
			}}
		}
		if prev.TypeId == ev.TypeId {
			bag[ev.Slot] = model.SlotState{TypeId: ev.TypeId, Quantity: ev.Num}
			diff := ev.Num - prev.Quantity
			if diff == 0 {
				return nil
			}
			return []model.Delta{{
				Slot:      ev.Slot,
				TypeId:    ev.TypeId,
				SignedQty: diff,
				Timestamp: ts,
			}}
		}
		// Swap: the slot held a different TypeId. Two deltas, in order.
		bag[ev.Slot] = model.SlotState{TypeId: ev.TypeId, Quantity: ev.Num}
		return []model.Delta{
			{
				Slot:      ev.Slot,
				TypeId:    prev.TypeId,
				SignedQty: -prev.Quantity,
				Timestamp: ts,
			},
			{
				Slot:      ev.Slot,
				TypeId:    ev.TypeId,
				SignedQty: ev.Num,
				Timestamp: ts,
			},
		}

	case logparser.EventBagRemove:
		prev, existed := bag[ev.Slot]
		if !existed || prev.Empty {
			return nil
		}
		bag[ev.Slot] = model.SlotState{Empty: true}
		return []model.Delta{{
			Slot:      ev.Slot,
			TypeId:    prev.TypeId,
			SignedQty: -prev.Quantity,
			Timestamp: ts,
		}}
	}

	return nil
}
