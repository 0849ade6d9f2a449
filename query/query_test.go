package query

import (
	"strings"
	"testing"
	"time"

	"coinwatch/core"
	zlog "coinwatch/logger/zerolog"
	"coinwatch/market"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() core.Logger {
	nop := zerolog.Nop()
	return zlog.NewAdapter(&nop)
}

func testBoard() *core.Board {
	up := 2.5
	down := -1.0
	snap := core.Snapshot{
		"bitcoin":  {ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Rank: 1, PriceUSD: 50000, PriceBTC: 1, PercentChange24H: &up},
		"ethereum": {ID: "ethereum", Name: "Ethereum", Symbol: "ETH", Rank: 2, PriceUSD: 4000, PriceBTC: 0.08, PercentChange24H: &down},
		"litecoin": {ID: "litecoin", Name: "Litecoin", Symbol: "LTC", Rank: 7, PriceUSD: 1000, PriceBTC: 0.02, PercentChange24H: &up},
	}
	return &core.Board{
		Snapshot:  snap,
		Acronyms:  market.BuildAcronyms(snap),
		Rates:     core.RateTable{"EUR": 0.9},
		FetchedAt: time.Now(),
	}
}

func testService(t *testing.T) *Service {
	t.Helper()
	ref := &core.BoardRef{}
	ref.Publish(testBoard())
	return New(ref, testLogger())
}

func TestPriceBeforeFirstRefresh(t *testing.T) {
	svc := New(&core.BoardRef{}, testLogger())
	_, _, err := svc.Price("btc", "USD")
	require.ErrorIs(t, err, core.ErrBoardNotReady)
}

func TestPrice(t *testing.T) {
	svc := testService(t)

	text, positive, err := svc.Price("btc", "USD")
	require.NoError(t, err)
	assert.True(t, positive)
	assert.Contains(t, text, "*#1. Bitcoin (BTC)*")
	assert.Contains(t, text, "`$50,000`")

	_, positive, err = svc.Price("eth", "USD")
	require.NoError(t, err)
	assert.False(t, positive)
}

func TestSearch(t *testing.T) {
	svc := testService(t)

	t.Run("orders by rank and deduplicates", func(t *testing.T) {
		chunks, err := svc.Search("ltc, btc btc\teth", "USD")
		require.NoError(t, err)
		require.Len(t, chunks, 1)

		text := chunks[0]
		assert.Equal(t, 1, strings.Count(text, "Bitcoin"))
		bitcoin := strings.Index(text, "Bitcoin")
		ethereum := strings.Index(text, "Ethereum")
		litecoin := strings.Index(text, "Litecoin")
		assert.Less(t, bitcoin, ethereum)
		assert.Less(t, ethereum, litecoin)
	})

	t.Run("chunks stay below the limit", func(t *testing.T) {
		chunks, err := svc.Search("btc,eth,ltc", "EUR")
		require.NoError(t, err)
		for _, chunk := range chunks {
			assert.Less(t, len(chunk), chunkLimit)
		}
	})

	t.Run("unknown currency aborts", func(t *testing.T) {
		_, err := svc.Search("btc,nope", "USD")
		var currency *core.CurrencyError
		require.ErrorAs(t, err, &currency)
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := svc.Search("  ,  ", "USD")
		require.Error(t, err)
	})
}

func TestConvert(t *testing.T) {
	svc := testService(t)

	t.Run("cross rate through btc", func(t *testing.T) {
		// 1 BTC at 1.0 BTC into LTC at 0.02 BTC.
		result, err := svc.Convert(1, "btc", "ltc")
		require.NoError(t, err)
		assert.Equal(t, "50", result)
	})

	t.Run("fractional result keeps eight decimals", func(t *testing.T) {
		result, err := svc.Convert(1, "ltc", "btc")
		require.NoError(t, err)
		assert.Equal(t, "0.02", result)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := svc.Convert(1, "btc", "nope")
		var currency *core.CurrencyError
		require.ErrorAs(t, err, &currency)
	})
}

func TestProfit(t *testing.T) {
	svc := testService(t)

	t.Run("gain", func(t *testing.T) {
		report, err := svc.Profit("btc", 2, 20000, "USD")
		require.NoError(t, err)
		assert.True(t, report.Gain)
		assert.Equal(t, "Bitcoin", report.Currency)
		assert.Equal(t, "$40,000", report.Initial)
		assert.Equal(t, "$60,000", report.Profit)
		assert.Equal(t, "$100,000", report.Total)
	})

	t.Run("loss", func(t *testing.T) {
		report, err := svc.Profit("btc", 1, 60000, "USD")
		require.NoError(t, err)
		assert.False(t, report.Gain)
		assert.Equal(t, "$-10,000", report.Profit)
	})
}

func TestToFiat(t *testing.T) {
	svc := testService(t)
	result, err := svc.ToFiat("btc", 2, "USD")
	require.NoError(t, err)
	assert.Equal(t, "$100,000", result)
}

func TestFromFiat(t *testing.T) {
	svc := testService(t)
	result, err := svc.FromFiat("btc", 1000, "USD")
	require.NoError(t, err)
	assert.Equal(t, "0.02", result)
}
