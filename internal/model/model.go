// Package model defines the domain types shared across the ingest-to-state
// pipeline: item types, slot keys, slot state, deltas, runs, and prices.
package model

import "time"

// TypeId identifies an item type as observed in the game log.
type TypeId int64

// BaseCurrencyTypeId is the canonical pricing unit. Its value is fixed at 1,
// it is never priced, taxed, or cloud-synced.
const BaseCurrencyTypeId TypeId = 100300

// PageId identifies an inventory page.
type PageId int

// GearPageId is excluded from tracking except for AllowedGearTypeIds.
const GearPageId PageId = 100

// AllowedGearTypeCN is the fixed set of item type_cn categories (Destiny,
// Prisms, Divinity) that are tracked even though they live on the
// otherwise-excluded gear page. Grounded on
// original_source/src/titrack/data/inventory.py's ALLOWED_GEAR_TYPE_CN.
var AllowedGearTypeCN = map[string]bool{
	"命运":    true,
	"命运相关":  true,
	"未定宿命":  true,
	"异度棱镜":  true,
	"特殊棱镜":  true,
	"棱镜水平仪": true,
	"棱镜校尺":  true,
	"棱镜修复仪": true,
	"神格契约":  true,
	"神格残片":  true,
	"巨力之神":  true,
	"征战之神":  true,
	"欺诈之神":  true,
	"机械之神":  true,
}

// AllowedGearTypeIds is the narrow allowlist of tradable sub-types that are
// tracked even though they live on the otherwise-excluded gear page. It is
// empty until SetAllowedGearTypeIds resolves AllowedGearTypeCN against the
// items table at startup, mirroring initialize_gear_allowlist in
// original_source/src/titrack/data/inventory.py.
var AllowedGearTypeIds = map[TypeId]bool{}

// SetAllowedGearTypeIds replaces the gear allowlist, normally with the
// result of Store.GearAllowlistTypeIds(AllowedGearTypeCN).
func SetAllowedGearTypeIds(ids map[TypeId]bool) {
	AllowedGearTypeIds = ids
}

// IsExcludedSlot reports whether a (page, type) pair should be dropped at
// the collector boundary per the Delta Engine's rule 1.
func IsExcludedSlot(page PageId, typeID TypeId) bool {
	if page != GearPageId {
		return false
	}
	return !AllowedGearTypeIds[typeID]
}

// SlotKey uniquely identifies an inventory cell.
type SlotKey struct {
	PageId PageId
	SlotId int
}

// SlotState is the absolute stack total last observed for a slot. A zero
// value with Empty=true represents an empty slot.
type SlotState struct {
	TypeId   TypeId
	Quantity int
	Empty    bool
}

// PlayerScope partitions all per-character data. Prefer PlayerId when a
// stable identity has been observed on the log; otherwise fall back to
// SeasonId_Name.
type PlayerScope struct {
	PlayerId string
	SeasonId string
	Name     string
}

// Key returns the stable string used to key persisted rows.
func (s PlayerScope) Key() string {
	if s.PlayerId != "" {
		return s.PlayerId
	}
	return s.SeasonId + "_" + s.Name
}

func (s PlayerScope) IsZero() bool {
	return s.PlayerId == "" && s.SeasonId == "" && s.Name == ""
}

// ContextTag classifies why a delta happened.
type ContextTag string

const (
	ContextPickItems    ContextTag = "PickItems"
	ContextMapOpen      ContextTag = "MapOpen"
	ContextRecycle      ContextTag = "Recycle"
	ContextExchangeBuy  ContextTag = "ExchangeBuy"
	ContextExchangeSell ContextTag = "ExchangeSell"
	ContextOther        ContextTag = "Other"
)

// ContextTagForProtoName maps the log's ItemChange proto-name markers onto
// the fixed enumeration. Unknown markers map to ContextOther.
var ContextTagForProtoName = map[string]ContextTag{
	"PickItems": ContextPickItems,
	"Spv3Open":  ContextMapOpen,
	"Recycle":   ContextRecycle,
	"XchgBuy":   ContextExchangeBuy,
	"XchgSell":  ContextExchangeSell,
}

// Delta is an immutable, signed change in a slot's quantity.
type Delta struct {
	ID        int64
	Scope     PlayerScope
	RunId     *int64
	Slot      SlotKey
	TypeId    TypeId
	SignedQty int
	Context   ContextTag
	Timestamp time.Time
}

// PriceSource distinguishes manually-entered prices from exchange-learned
// ones; only the latter are eligible for cloud upload.
type PriceSource string

const (
	PriceSourceManual          PriceSource = "manual"
	PriceSourceExchangeLearned PriceSource = "exchange_learned"
)

// Price is a locally-known unit price in Base Currency.
type Price struct {
	Scope     string // PlayerScope.Key(), or SeasonId for season-scoped rows
	TypeId    TypeId
	Value     float64
	Source    PriceSource
	UpdatedTs time.Time
}

// CloudPrice is a community-aggregated price, surfaced only above the
// anti-poisoning contributor threshold.
type CloudPrice struct {
	TypeId           TypeId
	Median           float64
	P10              float64
	P90              float64
	ContributorCount int
	CloudUpdatedTs   time.Time
}

// PriceHistoryRow is one hourly bucket of a TypeId's cloud-aggregated price.
type PriceHistoryRow struct {
	TypeId            TypeId
	HourBucket        time.Time
	Median            float64
	P10               float64
	P90               float64
	SubmissionCount   int
	UniqueDeviceCount int
}

// RunId identifies a Run.
type RunId int64

// Run is an interval of loot-accruing activity between zone entries.
type Run struct {
	Id                   RunId
	Scope                PlayerScope
	StartTs              time.Time
	EndTs                *time.Time
	ZoneSignature        string
	ZoneDisplayName      string
	LevelId              int
	LevelType            int
	LevelUid             int
	IsHubZone            bool
	IsSubZone            bool
	ParentRunId          *RunId
	ConsolidatedChildren []RunId
	Paused               bool
}

// DurationSeconds implements spec.md §4.5's duration semantics.
func (r Run) DurationSeconds(now time.Time) float64 {
	end := now
	if r.EndTs != nil {
		end = *r.EndTs
	}
	return end.Sub(r.StartTs).Seconds()
}

// OutboxEntry is a durable, at-least-once cloud upload record.
type OutboxEntry struct {
	Id            int64
	TypeId        TypeId
	Value         float64
	CapturedTs    time.Time
	Attempts      int
	LastAttemptTs *time.Time
	LastError     string
}

// SettingKey enumerates the whitelist of externally readable/writable
// settings keys.
type SettingKey string

const (
	SettingTradeTax      SettingKey = "trade_tax_enabled"
	SettingMapCost       SettingKey = "map_cost_enabled"
	SettingRealTimeTrack SettingKey = "real_time_tracking"
	SettingLogDirectory  SettingKey = "log_directory"
	SettingCloudEnabled  SettingKey = "cloud_enabled"
	SettingDeviceUUID    SettingKey = "device_uuid"
)

// WhitelistedSettingKeys is the set of keys readable/writable via the
// settings HTTP resource.
var WhitelistedSettingKeys = map[SettingKey]bool{
	SettingTradeTax:      true,
	SettingMapCost:       true,
	SettingRealTimeTrack: true,
	SettingLogDirectory:  true,
	SettingCloudEnabled:  true,
}

// Item is display metadata for a TypeId.
type Item struct {
	TypeId  TypeId
	Name    string
	IconRef string
	TypeCN  string
}
