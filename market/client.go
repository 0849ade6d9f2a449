// Package market implements the client for the upstream market data API
// and the acronym table built from its snapshots.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"coinwatch/core"
)

const bitcoinID = "bitcoin"

// Client talks to the listings / global-metrics API over HTTP. Network
// failures surface as core.ErrMarketDown so the refresh scheduler can
// retry; non-retryable API responses surface as plain errors.
type Client struct {
	http     *http.Client
	baseURL  string
	ratesURL string
	apiKey   string
	limit    int
	log      core.Logger
}

// NewClient builds a market client from settings.
func NewClient(cfg core.MarketSettings, log core.Logger) *Client {
	limit := cfg.ListingsLimit
	if limit <= 0 {
		limit = 5000
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		ratesURL: cfg.RatesURL,
		apiKey:   cfg.APIKey,
		limit:    limit,
		log:      log,
	}
}

type listingsResponse struct {
	Data []struct {
		Name              string   `json:"name"`
		Symbol            string   `json:"symbol"`
		Slug              string   `json:"slug"`
		Rank              int      `json:"cmc_rank"`
		CirculatingSupply *float64 `json:"circulating_supply"`
		Quote             map[string]struct {
			Price           float64  `json:"price"`
			MarketCap       *float64 `json:"market_cap"`
			PercentChange1H *float64 `json:"percent_change_1h"`
			PercentChange24 *float64 `json:"percent_change_24h"`
			PercentChange7D *float64 `json:"percent_change_7d"`
		} `json:"quote"`
	} `json:"data"`
}

type statsResponse struct {
	Data struct {
		BTCDominance     float64 `json:"btc_dominance"`
		ETHDominance     float64 `json:"eth_dominance"`
		ActiveExchanges  int     `json:"active_exchanges"`
		ActiveCurrencies int     `json:"active_cryptocurrencies"`
		Quote            map[string]struct {
			TotalMarketCap *float64 `json:"total_market_cap"`
			TotalVolume24H *float64 `json:"total_volume_24h"`
		} `json:"quote"`
	} `json:"data"`
}

type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Listings fetches the full market snapshot. The BTC cross price of every
// record is derived from bitcoin's USD price.
func (c *Client) Listings(ctx context.Context) ([]core.CurrencyRecord, error) {
	url := fmt.Sprintf("%s/v1/cryptocurrency/listings/latest?limit=%d&convert=USD", c.baseURL, c.limit)
	var payload listingsResponse
	if err := c.get(ctx, url, &payload); err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}

	records := make([]core.CurrencyRecord, 0, len(payload.Data))
	btcUSD := 0.0
	for _, entry := range payload.Data {
		quote, ok := entry.Quote["USD"]
		if !ok {
			continue
		}
		rec := core.CurrencyRecord{
			ID:                entry.Slug,
			Name:              entry.Name,
			Symbol:            strings.ToUpper(entry.Symbol),
			Rank:              entry.Rank,
			PriceUSD:          quote.Price,
			MarketCapUSD:      quote.MarketCap,
			CirculatingSupply: entry.CirculatingSupply,
			PercentChange1H:   quote.PercentChange1H,
			PercentChange24H:  quote.PercentChange24,
			PercentChange7D:   quote.PercentChange7D,
		}
		if rec.ID == bitcoinID {
			btcUSD = rec.PriceUSD
		}
		records = append(records, rec)
	}
	if btcUSD > 0 {
		for i := range records {
			records[i].PriceBTC = records[i].PriceUSD / btcUSD
		}
	}
	return records, nil
}

// GlobalStats fetches the aggregate market stats in USD terms.
func (c *Client) GlobalStats(ctx context.Context) (core.MarketStats, error) {
	url := c.baseURL + "/v1/global-metrics/quotes/latest?convert=USD"
	var payload statsResponse
	if err := c.get(ctx, url, &payload); err != nil {
		return core.MarketStats{}, fmt.Errorf("fetch global stats: %w", err)
	}
	stats := core.MarketStats{
		BTCDominance:     payload.Data.BTCDominance,
		ETHDominance:     payload.Data.ETHDominance,
		ActiveExchanges:  payload.Data.ActiveExchanges,
		ActiveCurrencies: payload.Data.ActiveCurrencies,
	}
	if quote, ok := payload.Data.Quote["USD"]; ok {
		stats.TotalMarketCapUSD = quote.TotalMarketCap
		stats.TotalVolume24HUSD = quote.TotalVolume24H
	}
	return stats, nil
}

// FiatRates fetches the USD based fiat conversion table.
func (c *Client) FiatRates(ctx context.Context) (core.RateTable, error) {
	var payload ratesResponse
	if err := c.get(ctx, c.ratesURL, &payload); err != nil {
		return nil, fmt.Errorf("fetch fiat rates: %w", err)
	}
	rates := make(core.RateTable, len(payload.Rates))
	for code, rate := range payload.Rates {
		rates[strings.ToUpper(code)] = rate
	}
	rates["USD"] = 1
	return rates, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts, DNS and connection errors are retry-worthy.
		return fmt.Errorf("%v: %w", err, core.ErrMarketDown)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("status %d: %w", resp.StatusCode, core.ErrMarketDown)
	default:
		return fmt.Errorf("market api returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode market api response: %w", err)
	}
	return nil
}
