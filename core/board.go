package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// CurrencyRecord is one currency entry of a market snapshot. Field names
// follow the upstream listings API. Optional upstream fields are pointers;
// a nil value renders as "Unknown" rather than erroring.
type CurrencyRecord struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Symbol            string   `json:"symbol"`
	Rank              int      `json:"rank"`
	PriceUSD          float64  `json:"price_usd"`
	PriceBTC          float64  `json:"price_btc"`
	MarketCapUSD      *float64 `json:"market_cap_usd"`
	CirculatingSupply *float64 `json:"circulating_supply"`
	PercentChange1H   *float64 `json:"percent_change_1h"`
	PercentChange24H  *float64 `json:"percent_change_24h"`
	PercentChange7D   *float64 `json:"percent_change_7d"`
}

// Snapshot maps canonical currency id (e.g. "bitcoin") to its record.
// A snapshot is immutable once published and replaced wholesale by each
// refresh.
type Snapshot map[string]CurrencyRecord

// MarketStats is the aggregate market record fetched alongside each
// snapshot.
type MarketStats struct {
	TotalMarketCapUSD *float64 `json:"total_market_cap_usd"`
	TotalVolume24HUSD *float64 `json:"total_volume_24h_usd"`
	BTCDominance      float64  `json:"btc_dominance"`
	ETHDominance      float64  `json:"eth_dominance"`
	ActiveExchanges   int      `json:"active_exchanges"`
	ActiveCurrencies  int      `json:"active_currencies"`
}

// RateTable maps an upper-case fiat code to its USD multiplier.
// USD is implicitly 1.
type RateTable map[string]float64

// Convert converts an USD amount into the given fiat.
func (t RateTable) Convert(amountUSD float64, fiat string) (float64, error) {
	code := strings.ToUpper(fiat)
	if code == "USD" {
		return amountUSD, nil
	}
	rate, ok := t[code]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no conversion rate for %s: %w", code, ErrRateUnavailable)
	}
	return amountUSD * rate, nil
}

// Board bundles everything the refresh scheduler publishes in one atomic
// swap: snapshot, aggregate stats, acronym table and fiat rates.
type Board struct {
	Snapshot  Snapshot
	Stats     MarketStats
	Acronyms  AcronymTable
	Rates     RateTable
	FetchedAt time.Time
}

// RankedRecords returns the snapshot records sorted by ascending rank.
func (b *Board) RankedRecords() []CurrencyRecord {
	records := make([]CurrencyRecord, 0, len(b.Snapshot))
	for _, rec := range b.Snapshot {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Rank != records[j].Rank {
			return records[i].Rank < records[j].Rank
		}
		return records[i].ID < records[j].ID
	})
	return records
}

// AcronymCandidate is one resolution option for an ambiguous symbol.
// Key is the disambiguated search key (e.g. "BTC2"), ID the canonical
// currency id it resolves to.
type AcronymCandidate struct {
	Key string
	ID  string
}

// AcronymLookup is the result of looking up a ticker symbol. A symbol
// shared by several currencies yields an ambiguous lookup carrying all
// disambiguated candidates instead of a resolved id.
type AcronymLookup struct {
	ID         string
	Candidates []AcronymCandidate
}

// Ambiguous reports whether the symbol maps to more than one currency.
func (l AcronymLookup) Ambiguous() bool { return len(l.Candidates) > 0 }

// AcronymTable maps an upper-case ticker symbol, or a disambiguated key
// such as "BTC1", to its lookup result. Rebuilt from scratch on every
// refresh.
type AcronymTable map[string]AcronymLookup

// Resolve maps user input (ticker symbol, disambiguated key or canonical
// id) to a snapshot record. Ambiguous symbols yield an *AmbiguityError
// listing the candidate keys; unknown input yields a *CurrencyError.
func (t AcronymTable) Resolve(input string, snap Snapshot) (CurrencyRecord, error) {
	name := strings.TrimSpace(input)
	if lookup, ok := t[strings.ToUpper(name)]; ok {
		if lookup.Ambiguous() {
			return CurrencyRecord{}, &AmbiguityError{
				Symbol:     strings.ToUpper(name),
				Candidates: lookup.Candidates,
			}
		}
		name = lookup.ID
	} else {
		name = strings.ToLower(name)
	}
	rec, ok := snap[name]
	if !ok {
		return CurrencyRecord{}, &CurrencyError{Input: input}
	}
	return rec, nil
}
