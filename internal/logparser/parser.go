package logparser

import (
	"strconv"
	"strings"

	"titrack/internal/model"
)

// ParseLine is a total, pure function from a raw log line to one recognized
// Event, or Event{Kind: EventNone} if the line matches nothing. Patterns
// are tried in a fixed order; the first match wins, matching the reference
// implementation's parse_line dispatch.
func ParseLine(line string) Event {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Event{Kind: EventNone}
	}

	if m := bagModifyPattern.FindStringSubmatch(line); m != nil {
		return bagEvent(m, false)
	}
	if m := bagInitPattern.FindStringSubmatch(line); m != nil {
		return bagEvent(m, true)
	}
	if m := bagRemovePattern.FindStringSubmatch(line); m != nil {
		page, _ := strconv.Atoi(m[1])
		slot, _ := strconv.Atoi(m[2])
		return Event{
			Kind: EventBagRemove,
			Slot: model.SlotKey{PageId: model.PageId(page), SlotId: slot},
		}
	}
	if m := itemChangePattern.FindStringSubmatch(line); m != nil {
		kind := EventContextEnd
		if m[2] == "start" {
			kind = EventContextBegin
		}
		return Event{Kind: kind, ContextProtoName: m[1]}
	}
	if m := levelOpenPattern.FindStringSubmatch(line); m != nil {
		return Event{Kind: EventLevelOpen, LevelPath: strings.TrimSpace(m[1])}
	}
	if m := levelEnterPattern.FindStringSubmatch(line); m != nil {
		uid, _ := strconv.Atoi(m[1])
		typ, _ := strconv.Atoi(m[2])
		id, _ := strconv.Atoi(m[3])
		return Event{Kind: EventLevelEnter, LevelUid: uid, LevelType: typ, LevelId: id}
	}
	if m := playerFieldPattern.FindStringSubmatch(line); m != nil {
		return Event{Kind: EventPlayerField, FieldKey: m[1], FieldValue: strings.TrimSpace(m[2])}
	}

	if ev, ok := parseExchangeFragment(line); ok {
		return ev
	}

	return Event{Kind: EventNone}
}

func bagEvent(m []string, isInit bool) Event {
	page, _ := strconv.Atoi(m[1])
	slot, _ := strconv.Atoi(m[2])
	typeID, _ := strconv.Atoi(m[3])
	num, _ := strconv.Atoi(m[4])
	kind := EventBagModify
	if isInit {
		kind = EventBagInit
	}
	return Event{
		Kind:   kind,
		Slot:   model.SlotKey{PageId: model.PageId(page), SlotId: slot},
		TypeId: model.TypeId(typeID),
		Num:    num,
	}
}

// parseExchangeFragment recognizes a fragment of the multi-line exchange
// protocol. It never fails "silently wrong" — a line either is one of the
// known fragment shapes or it is not recognized at all here.
func parseExchangeFragment(line string) (Event, bool) {
	if m := exchangeSendStartPattern.FindStringSubmatch(line); m != nil {
		id, _ := strconv.Atoi(m[1])
		return Event{Kind: EventExchangeFragment, ExchangeKind: ExchangeSearchStart, ExchangeSynId: id}, true
	}
	if m := exchangeRecvStartPattern.FindStringSubmatch(line); m != nil {
		id, _ := strconv.Atoi(m[1])
		return Event{Kind: EventExchangeFragment, ExchangeKind: ExchangeSearchStart, ExchangeSynId: id}, true
	}
	if exchangeEndPattern.MatchString(line) {
		return Event{Kind: EventExchangeFragment, ExchangeKind: ExchangeMessageEnd}, true
	}
	if m := exchangeReferPattern.FindStringSubmatch(line); m != nil {
		return Event{Kind: EventExchangeFragment, ExchangeKind: ExchangeSearchRefer, ExchangePayload: m[1]}, true
	}
	if m := exchangeCurrencyPattern.FindStringSubmatch(line); m != nil {
		return Event{Kind: EventExchangeFragment, ExchangeKind: ExchangeListingCurrency, ExchangePayload: m[1]}, true
	}
	if m := exchangeUnitPricePattern.FindStringSubmatch(line); m != nil {
		return Event{Kind: EventExchangeFragment, ExchangeKind: ExchangeListingPrice, ExchangePayload: m[1]}, true
	}
	return Event{}, false
}
