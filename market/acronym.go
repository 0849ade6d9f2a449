package market

import (
	"sort"
	"strconv"
	"strings"

	"coinwatch/core"
)

// BuildAcronyms builds the symbol lookup table for a snapshot in one pass.
// Symbols shared by several currencies become ambiguous entries whose
// disambiguated keys ("BTC1", "BTC2", ...) are assigned by ascending rank,
// each resolving to exactly one currency. The table is rebuilt wholesale
// on every refresh.
func BuildAcronyms(snap core.Snapshot) core.AcronymTable {
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	// Rank order makes SYMBOL1 always the best-ranked currency.
	sort.Slice(ids, func(i, j int) bool {
		a, b := snap[ids[i]], snap[ids[j]]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.ID < b.ID
	})

	table := make(core.AcronymTable, len(snap))
	for _, id := range ids {
		symbol := strings.ToUpper(snap[id].Symbol)
		existing, taken := table[symbol]
		switch {
		case !taken:
			table[symbol] = core.AcronymLookup{ID: id}
		case !existing.Ambiguous():
			// First collision: the plain symbol turns ambiguous and
			// both currencies get disambiguated keys.
			first := core.AcronymCandidate{Key: symbol + "1", ID: existing.ID}
			second := core.AcronymCandidate{Key: symbol + "2", ID: id}
			table[symbol] = core.AcronymLookup{Candidates: []core.AcronymCandidate{first, second}}
			table[first.Key] = core.AcronymLookup{ID: first.ID}
			table[second.Key] = core.AcronymLookup{ID: second.ID}
		default:
			next := core.AcronymCandidate{
				Key: symbol + strconv.Itoa(len(existing.Candidates)+1),
				ID:  id,
			}
			existing.Candidates = append(existing.Candidates, next)
			table[symbol] = existing
			table[next.Key] = core.AcronymLookup{ID: next.ID}
		}
	}
	return table
}
