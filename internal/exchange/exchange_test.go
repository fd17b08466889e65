package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titrack/internal/logparser"
)

func fragment(kind logparser.ExchangeFragmentKind, payload string) logparser.Event {
	return logparser.Event{Kind: logparser.EventExchangeFragment, ExchangeKind: kind, ExchangePayload: payload}
}

func TestReferencePrice(t *testing.T) {
	t.Run("10th percentile with linear interpolation", func(t *testing.T) {
		// rank = 0.10 * (10-1) = 0.9 -> between index 0 and 1.
		prices := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		got := ReferencePrice(prices)
		assert.InDelta(t, 1.9, got, 1e-9)
	})

	t.Run("single listing returns itself", func(t *testing.T) {
		assert.Equal(t, 42.0, ReferencePrice([]float64{42}))
	})

	t.Run("unsorted input sorted before interpolation", func(t *testing.T) {
		prices := []float64{10, 1, 5, 3, 9, 2, 8, 4, 7, 6}
		got := ReferencePrice(prices)
		assert.InDelta(t, 1.9, got, 1e-9)
	})

	t.Run("five listings with a skewed high outlier", func(t *testing.T) {
		prices := []float64{0.10, 0.12, 0.15, 0.20, 1.50}
		got := ReferencePrice(prices)
		assert.InDelta(t, 0.108, got, 1e-9)
	})
}

func TestParserFeed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("closes window and emits Learned with enough listings", func(t *testing.T) {
		p := New()

		_, ok := p.Feed(fragment(logparser.ExchangeSearchStart, ""), now)
		require.False(t, ok)

		_, ok = p.Feed(fragment(logparser.ExchangeSearchRefer, "100301"), now)
		require.False(t, ok)

		for _, price := range []string{"10", "11", "12"} {
			_, ok = p.Feed(fragment(logparser.ExchangeListingCurrency, "100300"), now)
			require.False(t, ok)
			_, ok = p.Feed(fragment(logparser.ExchangeListingPrice, price), now)
			require.False(t, ok)
		}

		learned, ok := p.Feed(fragment(logparser.ExchangeMessageEnd, ""), now)
		require.True(t, ok)
		assert.EqualValues(t, 100301, learned.TypeId)
	})

	t.Run("fewer than minimum listings yields no Learned", func(t *testing.T) {
		p := New()
		p.Feed(fragment(logparser.ExchangeSearchStart, ""), now)
		p.Feed(fragment(logparser.ExchangeSearchRefer, "100301"), now)
		p.Feed(fragment(logparser.ExchangeListingCurrency, "100300"), now)
		p.Feed(fragment(logparser.ExchangeListingPrice, "10"), now)

		_, ok := p.Feed(fragment(logparser.ExchangeMessageEnd, ""), now)
		assert.False(t, ok)
	})

	t.Run("Base Currency search never emits Learned", func(t *testing.T) {
		p := New()
		p.Feed(fragment(logparser.ExchangeSearchStart, ""), now)
		p.Feed(fragment(logparser.ExchangeSearchRefer, "100300"), now)
		for i := 0; i < 5; i++ {
			p.Feed(fragment(logparser.ExchangeListingCurrency, "100300"), now)
			p.Feed(fragment(logparser.ExchangeListingPrice, "10"), now)
		}
		_, ok := p.Feed(fragment(logparser.ExchangeMessageEnd, ""), now)
		assert.False(t, ok)
	})

	t.Run("window expires after the request timeout", func(t *testing.T) {
		p := New()
		p.Feed(fragment(logparser.ExchangeSearchStart, ""), now)
		p.Feed(fragment(logparser.ExchangeSearchRefer, "100301"), now)

		later := now.Add(DefaultRequestTimeout + time.Second)
		learned, ok := p.PollTimeout(later)
		assert.False(t, ok)
		assert.Zero(t, learned)
	})

	t.Run("price learning fixture: skewed listings yield the 10th-percentile reference", func(t *testing.T) {
		p := New()
		p.Feed(fragment(logparser.ExchangeSearchStart, ""), now)
		p.Feed(fragment(logparser.ExchangeSearchRefer, "100301"), now)
		for _, price := range []string{"0.10", "0.12", "0.15", "0.20", "1.50"} {
			p.Feed(fragment(logparser.ExchangeListingCurrency, "100300"), now)
			p.Feed(fragment(logparser.ExchangeListingPrice, price), now)
		}
		learned, ok := p.Feed(fragment(logparser.ExchangeMessageEnd, ""), now)
		require.True(t, ok)
		assert.EqualValues(t, 100301, learned.TypeId)
		assert.InDelta(t, 0.108, learned.ReferencePrice, 1e-9)
	})

	t.Run("listing currency other than Base Currency is ignored", func(t *testing.T) {
		p := New()
		p.Feed(fragment(logparser.ExchangeSearchStart, ""), now)
		p.Feed(fragment(logparser.ExchangeSearchRefer, "100301"), now)
		p.Feed(fragment(logparser.ExchangeListingCurrency, "555"), now)
		p.Feed(fragment(logparser.ExchangeListingPrice, "99"), now)
		p.Feed(fragment(logparser.ExchangeListingCurrency, "100300"), now)
		for _, price := range []string{"1", "2", "3"} {
			p.Feed(fragment(logparser.ExchangeListingPrice, price), now)
		}
		learned, ok := p.Feed(fragment(logparser.ExchangeMessageEnd, ""), now)
		require.True(t, ok)
		assert.NotEqual(t, 99.0, learned.ReferencePrice)
	})
}
