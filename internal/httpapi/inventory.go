package httpapi

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"titrack/internal/model"
	"titrack/internal/store"
	"titrack/internal/valuation"
)

// InventoryHandler serves the "inventory" resource of spec.md §6: the
// current scope's slot state, sortable by column.
type InventoryHandler struct {
	store *store.Store
}

func NewInventoryHandler(st *store.Store) *InventoryHandler {
	return &InventoryHandler{store: st}
}

// SlotRow is one rendered inventory row.
type SlotRow struct {
	PageId   model.PageId `json:"page_id"`
	SlotId   int          `json:"slot_id"`
	TypeId   model.TypeId `json:"type_id"`
	Name     string       `json:"name"`
	Quantity int          `json:"quantity"`
	Empty    bool         `json:"empty"`
	Value    float64      `json:"value"`
	Unpriced bool         `json:"unpriced"`
}

// List handles GET /api/inventory?sort=type_id|quantity|value (default slot).
func (h *InventoryHandler) List(c *gin.Context) {
	scope := currentScope(c)
	state, err := h.store.LoadSlotState(scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}

	lookup := storeLookup{h.store}
	rows := make([]SlotRow, 0, len(state))
	for slot, s := range state {
		if s.Empty {
			continue
		}
		row := SlotRow{PageId: slot.PageId, SlotId: slot.SlotId, TypeId: s.TypeId, Quantity: s.Quantity, Empty: s.Empty}
		if it, ok, _ := h.store.GetItem(s.TypeId); ok {
			row.Name = it.Name
		}
		price, ok := valuation.EffectivePrice(lookup, scope, scope.SeasonId, s.TypeId)
		row.Unpriced = !ok
		if ok {
			row.Value = float64(s.Quantity) * price
		}
		rows = append(rows, row)
	}

	switch c.Query("sort") {
	case "type_id":
		sort.Slice(rows, func(i, j int) bool { return rows[i].TypeId < rows[j].TypeId })
	case "quantity":
		sort.Slice(rows, func(i, j int) bool { return rows[i].Quantity > rows[j].Quantity })
	case "value":
		sort.Slice(rows, func(i, j int) bool { return rows[i].Value > rows[j].Value })
	default:
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].PageId != rows[j].PageId {
				return rows[i].PageId < rows[j].PageId
			}
			return rows[i].SlotId < rows[j].SlotId
		})
	}

	c.JSON(http.StatusOK, gin.H{"slots": rows})
}
