package market

import (
	"testing"

	"coinwatch/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAcronymsUniqueSymbols(t *testing.T) {
	snap := core.Snapshot{
		"bitcoin":  {ID: "bitcoin", Symbol: "BTC", Rank: 1},
		"ethereum": {ID: "ethereum", Symbol: "ETH", Rank: 2},
	}

	table := BuildAcronyms(snap)
	require.Len(t, table, 2)
	assert.Equal(t, "bitcoin", table["BTC"].ID)
	assert.Equal(t, "ethereum", table["ETH"].ID)
	assert.False(t, table["BTC"].Ambiguous())
}

func TestBuildAcronymsCollision(t *testing.T) {
	snap := core.Snapshot{
		"bitclave": {ID: "bitclave", Symbol: "CAT", Rank: 300},
		"blockcat": {ID: "blockcat", Symbol: "CAT", Rank: 500},
		"catcoin":  {ID: "catcoin", Symbol: "CAT", Rank: 700},
	}

	table := BuildAcronyms(snap)

	lookup := table["CAT"]
	require.True(t, lookup.Ambiguous())
	require.Len(t, lookup.Candidates, 3)

	// Disambiguated keys are assigned by ascending rank.
	assert.Equal(t, core.AcronymCandidate{Key: "CAT1", ID: "bitclave"}, lookup.Candidates[0])
	assert.Equal(t, core.AcronymCandidate{Key: "CAT2", ID: "blockcat"}, lookup.Candidates[1])
	assert.Equal(t, core.AcronymCandidate{Key: "CAT3", ID: "catcoin"}, lookup.Candidates[2])

	// Every disambiguated key resolves to exactly one currency.
	for _, candidate := range lookup.Candidates {
		resolved, ok := table[candidate.Key]
		require.True(t, ok, candidate.Key)
		assert.False(t, resolved.Ambiguous())
		assert.Equal(t, candidate.ID, resolved.ID)
	}
}

func TestBuildAcronymsRankTieBreak(t *testing.T) {
	// Equal ranks fall back to id ordering, keeping the table deterministic
	// across refreshes.
	snap := core.Snapshot{
		"zeta-token":  {ID: "zeta-token", Symbol: "DUP", Rank: 10},
		"alpha-token": {ID: "alpha-token", Symbol: "DUP", Rank: 10},
	}

	table := BuildAcronyms(snap)
	lookup := table["DUP"]
	require.True(t, lookup.Ambiguous())
	assert.Equal(t, "alpha-token", lookup.Candidates[0].ID)
	assert.Equal(t, "zeta-token", lookup.Candidates[1].ID)
}

func TestBuildAcronymsRoundTrip(t *testing.T) {
	snap := core.Snapshot{
		"bitcoin":  {ID: "bitcoin", Symbol: "BTC", Rank: 1},
		"bitclave": {ID: "bitclave", Symbol: "CAT", Rank: 300},
		"blockcat": {ID: "blockcat", Symbol: "CAT", Rank: 500},
	}
	table := BuildAcronyms(snap)

	rec, err := table.Resolve("BTC", snap)
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", rec.ID)

	_, err = table.Resolve("CAT", snap)
	var ambiguity *core.AmbiguityError
	require.ErrorAs(t, err, &ambiguity)

	rec, err = table.Resolve("CAT1", snap)
	require.NoError(t, err)
	assert.Equal(t, "bitclave", rec.ID)
}
