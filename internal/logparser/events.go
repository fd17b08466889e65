// Package logparser implements the pure, total line-to-event grammar
// described in spec.md §4.2, grounded on the regex-driven line grammar of
// original_source/src/titrack/parser/patterns.go and the streaming
// state-machine idiom of the teacher's internal/proxy/streaming/twx_parser.go
// (each recognized line shape gets its own compiled pattern, tried in a
// fixed order, first match wins).
package logparser

import "titrack/internal/model"

// EventKind tags the closed sum type of recognized line events.
type EventKind int

const (
	EventNone EventKind = iota
	EventBagModify
	EventBagInit
	EventBagRemove
	EventContextBegin
	EventContextEnd
	EventLevelEnter
	EventLevelOpen
	EventPlayerField
	EventExchangeFragment
)

// ExchangeFragmentKind tags the exchange-protocol multi-line fragments the
// exchange parser correlates.
type ExchangeFragmentKind int

const (
	ExchangeNone ExchangeFragmentKind = iota
	ExchangeSearchStart
	ExchangeSearchRefer
	ExchangeListingCurrency
	ExchangeListingPrice
	ExchangeMessageEnd
)

// Event is the tagged union produced by ParseLine. Only the fields relevant
// to Kind are populated.
type Event struct {
	Kind EventKind

	// BagModify / BagInit
	Slot   model.SlotKey
	TypeId model.TypeId
	Num    int

	// BagRemove reuses Slot only.

	// ContextBegin / ContextEnd
	ContextProtoName string

	// LevelOpen sets LevelPath; LevelEnter sets LevelUid, LevelType and
	// LevelId.
	LevelPath string
	LevelUid  int
	LevelType int
	LevelId   int

	// PlayerField
	FieldKey   string
	FieldValue string

	// ExchangeFragment
	ExchangeKind    ExchangeFragmentKind
	ExchangeSynId   int
	ExchangePayload string
}
