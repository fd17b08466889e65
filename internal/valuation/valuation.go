// Package valuation implements effective-price resolution and run/session
// value aggregation per spec.md §4.7.
//
// Grounded on the teacher's layering convention of a thin package on top of
// the store with no hidden state, mirroring internal/proxy/database's
// read-through query helpers generalized to price precedence and tax rules
// distilled from original_source/src/titrack/valuation.go.
package valuation

import (
	"titrack/internal/model"
)

// tradeTaxMultiplier implements the 1/8 trade tax: effective price is
// multiplied by (1 - 1/8) = 7/8 when the toggle is on.
const tradeTaxMultiplier = 7.0 / 8.0

// PriceLookup resolves local and cloud prices; the Collector's Store-backed
// implementation is the production adapter, tests use a map-backed stub.
type PriceLookup interface {
	LocalPrice(scope string, typeID model.TypeId) (model.Price, bool)
	CloudPrice(season string, typeID model.TypeId) (model.CloudPrice, bool)
}

// EffectivePrice resolves the price of typeID in scope per spec.md §4.7
// step 1-2: Base Currency is always 1; otherwise the newer of the local and
// cloud price wins, with cloud winning ties. Returns ok=false when the
// TypeId is unpriced.
func EffectivePrice(lookup PriceLookup, scope model.PlayerScope, season string, typeID model.TypeId) (float64, bool) {
	if typeID == model.BaseCurrencyTypeId {
		return 1, true
	}

	local, hasLocal := lookup.LocalPrice(scope.Key(), typeID)
	cloud, hasCloud := lookup.CloudPrice(season, typeID)

	switch {
	case hasLocal && hasCloud:
		if cloud.CloudUpdatedTs.After(local.UpdatedTs) || cloud.CloudUpdatedTs.Equal(local.UpdatedTs) {
			return cloud.Median, true
		}
		return local.Value, true
	case hasLocal:
		return local.Value, true
	case hasCloud:
		return cloud.Median, true
	default:
		return 0, false
	}
}

// EffectivePriceTaxed applies the Trade-Tax toggle to a resolved price.
// Map-cost items are never taxed, per spec.md §4.7.
func EffectivePriceTaxed(price float64, tradeTaxEnabled bool) float64 {
	if !tradeTaxEnabled {
		return price
	}
	return price * tradeTaxMultiplier
}

// ItemValue is one line of a run's per-item valuation report.
type ItemValue struct {
	TypeId    model.TypeId
	SignedQty int
	Unpriced  bool
	Value     float64 // sign-preserving; SignedQty * effective price
}

// RunValue aggregates gross, mapCost, and net for one run, per spec.md
// §4.7.
type RunValue struct {
	Gross       float64
	MapCost     float64
	Net         float64
	HasUnpriced bool
	Items       []ItemValue
}

// ComputeRunValue evaluates a run's deltas against effective prices.
// deltas should be the run's full set of item_deltas rows; contexts other
// than PickItems/MapOpen do not contribute to gross/mapCost but are
// represented in Items so callers can still report them.
func ComputeRunValue(lookup PriceLookup, scope model.PlayerScope, season string, deltas []model.Delta, tradeTaxEnabled, mapCostEnabled bool) RunValue {
	var rv RunValue

	for _, d := range deltas {
		price, ok := EffectivePrice(lookup, scope, season, d.TypeId)
		item := ItemValue{TypeId: d.TypeId, SignedQty: d.SignedQty, Unpriced: !ok}

		switch d.Context {
		case model.ContextPickItems:
			taxed := EffectivePriceTaxed(price, tradeTaxEnabled)
			value := float64(d.SignedQty) * taxed
			if !ok {
				value = 0
			}
			item.Value = value
			rv.Gross += value
			if !ok {
				rv.HasUnpriced = true
			}

		case model.ContextMapOpen:
			cost := absFloat(float64(d.SignedQty)) * price
			if !ok {
				cost = 0
				rv.HasUnpriced = true
			}
			item.Value = -cost
			rv.MapCost += cost

		default:
			// Other contexts (recycle, exchange, raw inventory moves) are
			// reported per-item but do not contribute to gross or mapCost.
			value := float64(d.SignedQty) * price
			if !ok {
				value = 0
			}
			item.Value = value
		}

		rv.Items = append(rv.Items, item)
	}

	rv.Net = rv.Gross
	if mapCostEnabled {
		rv.Net -= rv.MapCost
	}
	return rv
}

// DurationMode selects how valuePerHour aggregates time.
type DurationMode int

const (
	DurationInMap DurationMode = iota
	DurationRealTime
)

// ValuePerHour computes value accrued per hour of play, per spec.md §4.7's
// aggregate definitions.
func ValuePerHour(totalValue float64, totalSeconds float64) float64 {
	if totalSeconds <= 0 {
		return 0
	}
	return totalValue / (totalSeconds / 3600)
}

// AvgPerRun chooses gross or net per the map-cost toggle, per spec.md §4.7.
func AvgPerRun(runValues []RunValue, mapCostEnabled bool) float64 {
	if len(runValues) == 0 {
		return 0
	}
	var total float64
	for _, rv := range runValues {
		if mapCostEnabled {
			total += rv.Net
		} else {
			total += rv.Gross
		}
	}
	return total / float64(len(runValues))
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
