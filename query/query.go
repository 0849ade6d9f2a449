// Package query answers on-demand market queries (search, conversions,
// profit) against the currently published board.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"coinwatch/core"
)

// chunkLimit caps one posted message chunk.
const chunkLimit = 2000

// Service is a stateless-per-call reader of the current board.
type Service struct {
	board *core.BoardRef
	log   core.Logger
}

// New builds a query service reading from board.
func New(board *core.BoardRef, log core.Logger) *Service {
	return &Service{board: board, log: log}
}

func (s *Service) current() (*core.Board, error) {
	b := s.board.Load()
	if b == nil {
		return nil, core.ErrBoardNotReady
	}
	return b, nil
}

// Price looks up a single currency and renders it under the given fiat.
// The boolean result mirrors the 24h trend for caller-side color coding.
func (s *Service) Price(currency, fiat string) (string, bool, error) {
	board, err := s.current()
	if err != nil {
		return "", false, err
	}
	code, err := core.FiatCheck(fiat)
	if err != nil {
		return "", false, err
	}
	rec, err := board.Acronyms.Resolve(currency, board.Snapshot)
	if err != nil {
		return "", false, err
	}
	return core.FormatRecord(rec, code, board.Rates)
}

// Search renders a comma or space separated currency list as ordered
// chunks, each below the message size budget. Records are packed greedily
// in ascending rank order; repeated currencies collapse to one entry.
func (s *Service) Search(list, fiat string) ([]string, error) {
	board, err := s.current()
	if err != nil {
		return nil, err
	}
	code, err := core.FiatCheck(fiat)
	if err != nil {
		return nil, err
	}

	names := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(names) == 0 {
		return nil, &core.CurrencyError{Input: list}
	}

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		rec, err := board.Acronyms.Resolve(name, board.Snapshot)
		if err != nil {
			return nil, err
		}
		wanted[rec.ID] = struct{}{}
	}

	rendered := make([]string, 0, len(wanted))
	for _, rec := range board.RankedRecords() {
		if _, ok := wanted[rec.ID]; !ok {
			continue
		}
		text, _, err := core.FormatRecord(rec, code, board.Rates)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, text)
	}
	return core.PackChunks(rendered, chunkLimit), nil
}

// Convert converts an amount of one coin into another via the BTC cross
// rate, with eight decimal precision and trailing zeroes stripped.
func (s *Service) Convert(amount float64, from, to string) (string, error) {
	board, err := s.current()
	if err != nil {
		return "", err
	}
	src, err := board.Acronyms.Resolve(from, board.Snapshot)
	if err != nil {
		return "", err
	}
	dst, err := board.Acronyms.Resolve(to, board.Snapshot)
	if err != nil {
		return "", err
	}
	if dst.PriceBTC <= 0 {
		return "", fmt.Errorf("no BTC cross rate for %q", dst.ID)
	}

	btcAmount, err := strconv.ParseFloat(strconv.FormatFloat(amount*src.PriceBTC, 'f', 8, 64), 64)
	if err != nil {
		return "", err
	}
	return stripZeros(strconv.FormatFloat(btcAmount/dst.PriceBTC, 'f', 8, 64)), nil
}

// ProfitReport is the result of a profit calculation, all amounts
// denominated in the requested fiat.
type ProfitReport struct {
	Currency string
	Fiat     string
	Initial  string
	Profit   string
	Total    string
	Gain     bool
}

// Profit computes the gain of holding amount units bought at costBasis
// (per unit, in fiat) against the current price.
func (s *Service) Profit(currency string, amount, costBasis float64, fiat string) (ProfitReport, error) {
	board, err := s.current()
	if err != nil {
		return ProfitReport{}, err
	}
	code, err := core.FiatCheck(fiat)
	if err != nil {
		return ProfitReport{}, err
	}
	rec, err := board.Acronyms.Resolve(currency, board.Snapshot)
	if err != nil {
		return ProfitReport{}, err
	}
	price, err := board.Rates.Convert(rec.PriceUSD, code)
	if err != nil {
		return ProfitReport{}, err
	}

	initial := amount * costBasis
	profit := amount*price - initial
	total := initial + profit

	report := ProfitReport{Currency: rec.Name, Fiat: code, Gain: profit >= 0}
	if report.Initial, err = core.FormatFiatAmount(initial, code); err != nil {
		return ProfitReport{}, err
	}
	if report.Profit, err = core.FormatFiatAmount(profit, code); err != nil {
		return ProfitReport{}, err
	}
	if report.Total, err = core.FormatFiatAmount(total, code); err != nil {
		return ProfitReport{}, err
	}
	return report, nil
}

// Stats renders the aggregate market stats under the given fiat.
func (s *Service) Stats(fiat string) (string, error) {
	board, err := s.current()
	if err != nil {
		return "", err
	}
	return core.FormatStats(board.Stats, fiat, board.Rates)
}

// ToFiat renders the fiat value of an amount of one currency.
func (s *Service) ToFiat(currency string, amount float64, fiat string) (string, error) {
	board, err := s.current()
	if err != nil {
		return "", err
	}
	code, err := core.FiatCheck(fiat)
	if err != nil {
		return "", err
	}
	rec, err := board.Acronyms.Resolve(currency, board.Snapshot)
	if err != nil {
		return "", err
	}
	price, err := board.Rates.Convert(rec.PriceUSD, code)
	if err != nil {
		return "", err
	}
	return core.FormatFiatAmount(amount*price, code)
}

// FromFiat renders how many units of a currency a fiat amount buys.
func (s *Service) FromFiat(currency string, fiatAmount float64, fiat string) (string, error) {
	board, err := s.current()
	if err != nil {
		return "", err
	}
	code, err := core.FiatCheck(fiat)
	if err != nil {
		return "", err
	}
	rec, err := board.Acronyms.Resolve(currency, board.Snapshot)
	if err != nil {
		return "", err
	}
	price, err := board.Rates.Convert(rec.PriceUSD, code)
	if err != nil {
		return "", err
	}
	if price <= 0 {
		return "", fmt.Errorf("no %s price for %q", code, rec.ID)
	}
	return stripZeros(strconv.FormatFloat(fiatAmount/price, 'f', 8, 64)), nil
}

func stripZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
