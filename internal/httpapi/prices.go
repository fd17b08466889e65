package httpapi

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"titrack/internal/config"
	"titrack/internal/model"
	"titrack/internal/store"
)

// PricesHandler serves the "prices" resource of spec.md §6.
type PricesHandler struct {
	store  *store.Store
	config *config.Config
}

func NewPricesHandler(st *store.Store, cfg *config.Config) *PricesHandler {
	return &PricesHandler{store: st, config: cfg}
}

// List handles GET /api/prices: every locally-known price for the current
// scope.
func (h *PricesHandler) List(c *gin.Context) {
	scope := currentScope(c)
	prices, err := h.store.ListPricesForScope(scope.Key())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": prices})
}

// Get handles GET /api/prices/:typeId.
func (h *PricesHandler) Get(c *gin.Context) {
	typeID, ok := parseTypeIDParam(c)
	if !ok {
		return
	}
	p, found, err := h.store.GetPrice(currentScope(c).Key(), typeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "price_not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": p})
}

type putPriceRequest struct {
	Value float64 `json:"value" binding:"required"`
}

// Put handles PUT /api/prices/:typeId: a manual price entry.
func (h *PricesHandler) Put(c *gin.Context) {
	typeID, ok := parseTypeIDParam(c)
	if !ok {
		return
	}
	if typeID == model.BaseCurrencyTypeId {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base_currency_not_priceable"})
		return
	}
	var req putPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	p := model.Price{
		Scope: currentScope(c).Key(), TypeId: typeID, Value: req.Value,
		Source: model.PriceSourceManual, UpdatedTs: time.Now(),
	}
	if err := h.store.UpsertPrice(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": p})
}

// Export handles GET /api/prices/export?format=csv|json.
func (h *PricesHandler) Export(c *gin.Context) {
	prices, err := h.store.ListPricesForScope(currentScope(c).Key())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=prices.csv")
		w := csv.NewWriter(c.Writer)
		w.Write([]string{"type_id", "value", "source", "updated_ts"})
		for _, p := range prices {
			w.Write([]string{
				strconv.FormatInt(int64(p.TypeId), 10),
				strconv.FormatFloat(p.Value, 'f', -1, 64),
				string(p.Source),
				p.UpdatedTs.UTC().Format(time.RFC3339),
			})
		}
		w.Flush()
		return
	}

	c.JSON(http.StatusOK, gin.H{"prices": prices})
}

type migrateLegacySeasonRequest struct {
	FromScope string `json:"from_scope" binding:"required"`
}

// MigrateLegacySeason handles POST /api/prices/migrate-legacy-season: it
// copies manually-entered prices from a prior season's scope key forward
// into the current scope, since a season rollover changes PlayerScope.Key()
// and would otherwise orphan the player's manual pricing work.
func (h *PricesHandler) MigrateLegacySeason(c *gin.Context) {
	var req migrateLegacySeasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	legacy, err := h.store.ListPricesForScope(req.FromScope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}

	scope := currentScope(c).Key()
	migrated := 0
	for _, p := range legacy {
		if p.Source != model.PriceSourceManual {
			continue
		}
		p.Scope = scope
		if err := h.store.UpsertPrice(p); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
			return
		}
		migrated++
	}
	c.JSON(http.StatusOK, gin.H{"migrated": migrated})
}

func parseTypeIDParam(c *gin.Context) (model.TypeId, bool) {
	n, err := strconv.ParseInt(c.Param("typeId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_type_id"})
		return 0, false
	}
	return model.TypeId(n), true
}
