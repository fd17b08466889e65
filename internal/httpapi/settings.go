package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"titrack/internal/model"
	"titrack/internal/store"
)

// SettingsHandler serves the "settings" resource of spec.md §6, restricted
// to model.WhitelistedSettingKeys.
type SettingsHandler struct {
	store *store.Store
}

func NewSettingsHandler(st *store.Store) *SettingsHandler {
	return &SettingsHandler{store: st}
}

// List handles GET /api/settings: every whitelisted key's current value.
func (h *SettingsHandler) List(c *gin.Context) {
	out := make(map[string]string, len(model.WhitelistedSettingKeys))
	for key := range model.WhitelistedSettingKeys {
		if v, ok, err := h.store.GetSetting(key); err == nil && ok {
			out[string(key)] = v
		}
	}
	c.JSON(http.StatusOK, gin.H{"settings": out})
}

type putSettingRequest struct {
	Value string `json:"value"`
}

// Put handles PUT /api/settings/:key.
func (h *SettingsHandler) Put(c *gin.Context) {
	key := model.SettingKey(c.Param("key"))
	if !model.WhitelistedSettingKeys[key] {
		c.JSON(http.StatusForbidden, gin.H{"error": "setting_not_whitelisted"})
		return
	}
	var req putSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	if err := h.store.SetSetting(key, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	c.Status(http.StatusNoContent)
}
