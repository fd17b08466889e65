package logparser

import "regexp"

// Compiled line patterns, grounded on
// original_source/src/titrack/parser/patterns.go. Each pattern recognizes
// one line shape emitted by the game's GameLog channel.

var bagModifyPattern = regexp.MustCompile(
	`GameLog:\s*Display:\s*\[Game\]\s*BagMgr@:Modfy\s+BagItem\s+` +
		`PageId\s*=\s*(\d+)\s+` +
		`SlotId\s*=\s*(\d+)\s+` +
		`ConfigBaseId\s*=\s*(\d+)\s+` +
		`Num\s*=\s*(-?\d+)`,
)

// bagInitPattern recognizes the inventory-snapshot line emitted by the
// player's in-game Sort action. Distinguished from bagModifyPattern by its
// "Init" verb, per spec.md §4.2's requirement that BagInit be distinguishable
// from BagModify.
var bagInitPattern = regexp.MustCompile(
	`GameLog:\s*Display:\s*\[Game\]\s*BagMgr@:Init\s+BagItem\s+` +
		`PageId\s*=\s*(\d+)\s+` +
		`SlotId\s*=\s*(\d+)\s+` +
		`ConfigBaseId\s*=\s*(\d+)\s+` +
		`Num\s*=\s*(-?\d+)`,
)

// bagRemovePattern carries no TypeId; the delta engine resolves the vacated
// slot's prior TypeId.
var bagRemovePattern = regexp.MustCompile(
	`GameLog:\s*Display:\s*\[Game\]\s*BagMgr@:Remove\s+BagItem\s+` +
		`PageId\s*=\s*(\d+)\s+` +
		`SlotId\s*=\s*(\d+)`,
)

var itemChangePattern = regexp.MustCompile(
	`GameLog:\s*Display:\s*\[Game\]\s*ItemChange@\s*ProtoName=(\w+)\s+(start|end)`,
)

// levelOpenPattern recognizes the level-opening line; it carries the raw
// level path but not the numeric ids, which arrive on a separate line.
var levelOpenPattern = regexp.MustCompile(
	`SceneLevelMgr@\s+OpenMainWorld\s+END!\s+InMainLevelPath\s*=\s*(.+)`,
)

// levelEnterPattern recognizes the level-id confirmation line that follows
// a LevelOpen line.
var levelEnterPattern = regexp.MustCompile(
	`GameLog:\s*Display:\s*\[Game\]\s*LevelMgr@\s+LevelUid,\s*LevelType,\s*LevelId\s*=\s*` +
		`(\d+)\s+(\d+)\s+(\d+)`,
)

// playerFieldPattern recognizes player-identity lines of the form
// "GameLog: Display: [Game] Player@ Key = Value", used to derive
// PlayerScope (spec.md §4.6).
var playerFieldPattern = regexp.MustCompile(
	`GameLog:\s*Display:\s*\[Game\]\s*Player@\s*(\w+)\s*=\s*(.+)`,
)
