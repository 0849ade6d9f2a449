package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMarketDown marks an upstream infrastructure failure worth
	// retrying (timeout, connection error, rate limit).
	ErrMarketDown = errors.New("market api unavailable")

	// ErrRateUnavailable marks a missing fiat conversion rate.
	ErrRateUnavailable = errors.New("conversion rate unavailable")

	// ErrBoardNotReady is returned by queries issued before the first
	// successful refresh.
	ErrBoardNotReady = errors.New("market data not loaded yet, try again shortly")

	ErrAlertAlreadyMet = errors.New("current price already meets the alert condition")
	ErrAlertCapacity   = errors.New("alert capacity reached")
	ErrInvalidOperator = errors.New("unsupported comparison operator")

	ErrSubscriberCapacity = errors.New("subscriber capacity reached")
	ErrAlreadySubscribed  = errors.New("destination is already subscribed")
	ErrNotSubscribed      = errors.New("destination is not subscribed")
	ErrCurrencyListed     = errors.New("currency is already on the subscription list")
	ErrCurrencyNotListed  = errors.New("currency is not on the subscription list")
	ErrUnknownInterval    = errors.New("unsupported update interval")
)

// CurrencyError reports an unknown currency in user input. Reported back
// to the user, never retried.
type CurrencyError struct {
	Input string
}

func (e *CurrencyError) Error() string {
	return fmt.Sprintf("invalid currency: %q", e.Input)
}

// FiatError reports an unsupported fiat code in user input.
type FiatError struct {
	Code string
}

func (e *FiatError) Error() string {
	return fmt.Sprintf("this fiat currency is not supported: %q", e.Code)
}

// AmbiguityError reports a ticker symbol shared by several currencies.
// The message enumerates the disambiguated keys the user can retry with.
type AmbiguityError struct {
	Symbol     string
	Candidates []AcronymCandidate
}

func (e *AmbiguityError) Error() string {
	var sb strings.Builder
	sb.WriteString("duplicate acronyms found, possible searches are:")
	for _, c := range e.Candidates {
		fmt.Fprintf(&sb, "\n%s (%s)", c.Key, c.ID)
	}
	return sb.String()
}
