package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiatCheck(t *testing.T) {
	t.Run("normalizes case and whitespace", func(t *testing.T) {
		code, err := FiatCheck(" eur ")
		require.NoError(t, err)
		assert.Equal(t, "EUR", code)
	})

	t.Run("rejects unsupported codes", func(t *testing.T) {
		_, err := FiatCheck("XYZ")
		require.Error(t, err)
		var fiatErr *FiatError
		require.ErrorAs(t, err, &fiatErr)
		assert.Equal(t, "XYZ", fiatErr.Code)
	})
}

func TestSupportedFiats(t *testing.T) {
	fiats := SupportedFiats()
	assert.Len(t, fiats, 32)
	assert.Contains(t, fiats, "USD")
	assert.Contains(t, fiats, "SEK")
	assert.True(t, sortedStrings(fiats))
}

func sortedStrings(values []string) bool {
	for i := 1; i < len(values); i++ {
		if values[i-1] > values[i] {
			return false
		}
	}
	return true
}

func TestFormatPrice(t *testing.T) {
	rates := RateTable{"EUR": 0.9, "SEK": 8.5}

	t.Run("strips trailing zeroes", func(t *testing.T) {
		price, err := FormatPrice(100, "USD", rates, true)
		require.NoError(t, err)
		assert.Equal(t, "$100", price)
	})

	t.Run("groups thousands", func(t *testing.T) {
		price, err := FormatPrice(50000, "USD", rates, true)
		require.NoError(t, err)
		assert.Equal(t, "$50,000", price)
	})

	t.Run("keeps significant decimals", func(t *testing.T) {
		price, err := FormatPrice(0.000123, "USD", rates, true)
		require.NoError(t, err)
		assert.Equal(t, "$0.000123", price)
	})

	t.Run("converts and suffixes suffix fiats", func(t *testing.T) {
		price, err := FormatPrice(2, "SEK", rates, true)
		require.NoError(t, err)
		assert.Equal(t, "17 kr", price)
	})

	t.Run("plain number without symbol", func(t *testing.T) {
		price, err := FormatPrice(1234.5, "USD", rates, false)
		require.NoError(t, err)
		assert.Equal(t, "1234.5", price)
	})

	t.Run("missing rate", func(t *testing.T) {
		_, err := FormatPrice(1, "JPY", rates, true)
		require.ErrorIs(t, err, ErrRateUnavailable)
	})
}

func TestFormatRecord(t *testing.T) {
	up := 2.5
	marketCap := 1_000_000_000.0
	supply := 19_000_000.0
	rec := CurrencyRecord{
		ID:                "bitcoin",
		Name:              "Bitcoin",
		Symbol:            "BTC",
		Rank:              1,
		PriceUSD:          50000,
		MarketCapUSD:      &marketCap,
		CirculatingSupply: &supply,
		PercentChange24H:  &up,
	}

	text, positive, err := FormatRecord(rec, "usd", nil)
	require.NoError(t, err)
	assert.True(t, positive)
	assert.Contains(t, text, "*#1. Bitcoin (BTC)*")
	assert.Contains(t, text, "`$50,000`")
	assert.Contains(t, text, "`$1,000,000,000`")
	assert.Contains(t, text, "`19,000,000`")
	assert.Contains(t, text, "Change (24H): `2.5%`")
	assert.Contains(t, text, "Change (1H): `Unknown`")
}

func TestFormatRecordNegativeTrend(t *testing.T) {
	down := -1.2
	rec := CurrencyRecord{Name: "Bitcoin", Symbol: "BTC", Rank: 1, PriceUSD: 1, PercentChange24H: &down}

	text, positive, err := FormatRecord(rec, "USD", nil)
	require.NoError(t, err)
	assert.False(t, positive)
	assert.Contains(t, text, trendDown)
}

func TestPackChunks(t *testing.T) {
	t.Run("packs greedily under the limit", func(t *testing.T) {
		messages := []string{
			strings.Repeat("a", 40),
			strings.Repeat("b", 40),
			strings.Repeat("c", 40),
		}
		chunks := PackChunks(messages, 100)
		require.Len(t, chunks, 2)
		assert.Contains(t, chunks[0], "a")
		assert.Contains(t, chunks[0], "b")
		assert.Contains(t, chunks[1], "c")
		for _, chunk := range chunks {
			assert.Less(t, len(chunk), 100)
		}
	})

	t.Run("single small message", func(t *testing.T) {
		chunks := PackChunks([]string{"hello"}, 100)
		require.Len(t, chunks, 1)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, PackChunks(nil, 100))
	})
}
