package httpapi

import (
	"titrack/internal/model"
	"titrack/internal/store"
)

// storeLookup adapts *store.Store to valuation.PriceLookup.
type storeLookup struct {
	store *store.Store
}

func (l storeLookup) LocalPrice(scope string, typeID model.TypeId) (model.Price, bool) {
	p, ok, err := l.store.GetPrice(scope, typeID)
	if err != nil {
		return model.Price{}, false
	}
	return p, ok
}

func (l storeLookup) CloudPrice(season string, typeID model.TypeId) (model.CloudPrice, bool) {
	c, ok, err := l.store.GetCloudPrice(typeID)
	if err != nil {
		return model.CloudPrice{}, false
	}
	return c, ok
}

// settingBool reads a whitelisted boolean setting, defaulting to def when
// unset or unparsable.
func settingBool(st *store.Store, key model.SettingKey, def bool) bool {
	v, ok, err := st.GetSetting(key)
	if err != nil || !ok {
		return def
	}
	switch v {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	return def
}
