// Package exchange implements the stateful Exchange Parser of spec.md §4.3:
// a state machine that correlates a search-request fragment with the
// listing fragments that follow it and emits a learned reference price.
//
// Grounded on the teacher's stateFn scanning idiom
// (internal/proxy/game_detector.go: "type stateFn func(*GameDetector) stateFn")
// and on original_source/src/titrack/parser/exchange_parser.go's
// request/response correlation by SynId — generalized here to an explicit
// deadline instead of a bare per-call timeout check, per spec.md §9's
// guidance to express coroutine-like suspension with cancellation tokens
// rather than threads sleeping on shared state.
package exchange

import (
	"sort"
	"time"

	"titrack/internal/logparser"
	"titrack/internal/model"
)

// DefaultRequestTimeout is T_req from spec.md §4.3.
const DefaultRequestTimeout = 10 * time.Second

// MinListingsForReference is the minimum listing count below which no
// reference price is emitted.
const MinListingsForReference = 3

// Learned is emitted when a search window closes with enough listings.
type Learned struct {
	TypeId         model.TypeId
	ReferencePrice float64
}

type windowState int

const (
	windowIdle windowState = iota
	windowAwaitingListings
)

// Parser correlates ExchangeFragment events into Learned price events.
// Not safe for concurrent use; the Collector owns a single Parser and
// drives it from its single ingest goroutine.
type Parser struct {
	state        windowState
	searchTypeID model.TypeId
	listings     []float64
	inFESection  bool
	deadline     time.Time
}

// New constructs an idle Parser.
func New() *Parser {
	return &Parser{}
}

// Feed processes one ExchangeFragment event at time now, returning a
// Learned event if a window closes with enough listings.
func (p *Parser) Feed(ev logparser.Event, now time.Time) (Learned, bool) {
	if ev.Kind != logparser.EventExchangeFragment {
		return Learned{}, false
	}

	// A request for a different TypeId, or any timeout, closes the window
	// before this fragment is considered (spec.md §4.3).
	if p.state == windowAwaitingListings && now.After(p.deadline) {
		p.reset()
	}

	switch ev.ExchangeKind {
	case logparser.ExchangeSearchStart:
		// A fresh search always starts a new window; any prior
		// unterminated window is abandoned (closed with too few listings).
		p.state = windowAwaitingListings
		p.listings = nil
		p.inFESection = false
		p.deadline = now.Add(DefaultRequestTimeout)
		p.searchTypeID = 0
		return Learned{}, false

	case logparser.ExchangeSearchRefer:
		if p.state != windowAwaitingListings {
			return Learned{}, false
		}
		typeID := parseTypeID(ev.ExchangePayload)
		if p.searchTypeID != 0 && p.searchTypeID != typeID {
			// Search for a different TypeId closes the prior window.
			learned, ok := p.finish()
			p.searchTypeID = typeID
			p.listings = nil
			p.deadline = now.Add(DefaultRequestTimeout)
			return learned, ok
		}
		p.searchTypeID = typeID
		return Learned{}, false

	case logparser.ExchangeListingCurrency:
		if p.state != windowAwaitingListings {
			return Learned{}, false
		}
		p.inFESection = parseTypeID(ev.ExchangePayload) == model.BaseCurrencyTypeId
		return Learned{}, false

	case logparser.ExchangeListingPrice:
		if p.state != windowAwaitingListings || !p.inFESection {
			return Learned{}, false
		}
		price := parseFloat(ev.ExchangePayload)
		p.listings = append(p.listings, price)
		return Learned{}, false

	case logparser.ExchangeMessageEnd:
		if p.state != windowAwaitingListings {
			return Learned{}, false
		}
		return p.finish()
	}

	return Learned{}, false
}

// PollTimeout must be called periodically (e.g. once per tailer tick) so a
// window closes even if no further fragment ever arrives.
func (p *Parser) PollTimeout(now time.Time) (Learned, bool) {
	if p.state == windowAwaitingListings && now.After(p.deadline) {
		return p.finish()
	}
	return Learned{}, false
}

func (p *Parser) finish() (Learned, bool) {
	typeID := p.searchTypeID
	listings := p.listings
	p.reset()

	if typeID == 0 || typeID == model.BaseCurrencyTypeId {
		return Learned{}, false
	}
	if len(listings) < MinListingsForReference {
		return Learned{}, false
	}

	ref := ReferencePrice(listings)
	return Learned{TypeId: typeID, ReferencePrice: ref}, true
}

func (p *Parser) reset() {
	p.state = windowIdle
	p.searchTypeID = 0
	p.listings = nil
	p.inFESection = false
}

// ReferencePrice computes the 10th percentile of unit prices with linear
// interpolation for fractional indices, per spec.md §4.3.
func ReferencePrice(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	rank := 0.10 * float64(n-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func parseTypeID(s string) model.TypeId {
	var id int64
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return model.TypeId(id)
}

func parseFloat(s string) float64 {
	var intPart, fracPart int64
	var fracDiv float64 = 1
	inFrac := false
	for _, c := range s {
		switch {
		case c == '.':
			inFrac = true
		case c >= '0' && c <= '9':
			if inFrac {
				fracPart = fracPart*10 + int64(c-'0')
				fracDiv *= 10
			} else {
				intPart = intPart*10 + int64(c-'0')
			}
		}
	}
	return float64(intPart) + float64(fracPart)/fracDiv
}
