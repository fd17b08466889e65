package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExcludedSlot(t *testing.T) {
	t.Cleanup(func() { SetAllowedGearTypeIds(map[TypeId]bool{}) })

	assert.False(t, IsExcludedSlot(2, 100300), "non-gear pages are never excluded")
	assert.True(t, IsExcludedSlot(GearPageId, 900001), "gear page items are excluded until allowlisted")

	SetAllowedGearTypeIds(map[TypeId]bool{900001: true})
	assert.False(t, IsExcludedSlot(GearPageId, 900001))
	assert.True(t, IsExcludedSlot(GearPageId, 900002))
}

func TestAllowedGearTypeCNMatchesOriginalCategories(t *testing.T) {
	assert.Len(t, AllowedGearTypeCN, 14)
	for _, cn := range []string{"命运", "神格契约", "异度棱镜"} {
		assert.True(t, AllowedGearTypeCN[cn], cn)
	}
}
