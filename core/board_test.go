package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateTableConvert(t *testing.T) {
	rates := RateTable{"EUR": 0.9}

	t.Run("usd is identity", func(t *testing.T) {
		v, err := RateTable(nil).Convert(100, "usd")
		require.NoError(t, err)
		assert.Equal(t, 100.0, v)
	})

	t.Run("multiplies by the rate", func(t *testing.T) {
		v, err := rates.Convert(100, "EUR")
		require.NoError(t, err)
		assert.InDelta(t, 90.0, v, 1e-9)
	})

	t.Run("missing rate", func(t *testing.T) {
		_, err := rates.Convert(100, "JPY")
		require.ErrorIs(t, err, ErrRateUnavailable)
	})
}

func TestAcronymTableResolve(t *testing.T) {
	snap := Snapshot{
		"bitcoin":      {ID: "bitcoin", Symbol: "BTC", Rank: 1},
		"bitclave":     {ID: "bitclave", Symbol: "CAT", Rank: 300},
		"blockcat":     {ID: "blockcat", Symbol: "CAT", Rank: 500},
		"smallest-cap": {ID: "smallest-cap", Symbol: "ZZZ", Rank: 900},
	}
	table := AcronymTable{
		"BTC": {ID: "bitcoin"},
		"ZZZ": {ID: "smallest-cap"},
		"CAT": {Candidates: []AcronymCandidate{
			{Key: "CAT1", ID: "bitclave"},
			{Key: "CAT2", ID: "blockcat"},
		}},
		"CAT1": {ID: "bitclave"},
		"CAT2": {ID: "blockcat"},
	}

	t.Run("symbol lookup is case insensitive", func(t *testing.T) {
		rec, err := table.Resolve("btc", snap)
		require.NoError(t, err)
		assert.Equal(t, "bitcoin", rec.ID)
	})

	t.Run("canonical id passes through", func(t *testing.T) {
		rec, err := table.Resolve("Bitcoin", snap)
		require.NoError(t, err)
		assert.Equal(t, "bitcoin", rec.ID)
	})

	t.Run("ambiguous symbol lists candidates", func(t *testing.T) {
		_, err := table.Resolve("cat", snap)
		var ambiguity *AmbiguityError
		require.ErrorAs(t, err, &ambiguity)
		assert.Equal(t, "CAT", ambiguity.Symbol)
		assert.Contains(t, ambiguity.Error(), "CAT1 (bitclave)")
		assert.Contains(t, ambiguity.Error(), "CAT2 (blockcat)")
	})

	t.Run("disambiguated key resolves", func(t *testing.T) {
		rec, err := table.Resolve("cat2", snap)
		require.NoError(t, err)
		assert.Equal(t, "blockcat", rec.ID)
	})

	t.Run("unknown input", func(t *testing.T) {
		_, err := table.Resolve("doesnotexist", snap)
		var currency *CurrencyError
		require.ErrorAs(t, err, &currency)
		assert.Equal(t, "doesnotexist", currency.Input)
	})
}

func TestBoardRankedRecords(t *testing.T) {
	board := &Board{Snapshot: Snapshot{
		"litecoin": {ID: "litecoin", Rank: 7},
		"bitcoin":  {ID: "bitcoin", Rank: 1},
		"ethereum": {ID: "ethereum", Rank: 2},
	}}
	records := board.RankedRecords()
	require.Len(t, records, 3)
	assert.Equal(t, "bitcoin", records[0].ID)
	assert.Equal(t, "ethereum", records[1].ID)
	assert.Equal(t, "litecoin", records[2].ID)
}
