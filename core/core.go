// Package core defines the shared market data model and the interfaces
// wiring the refresh scheduler to its consumers.
package core

import (
	"context"
	"sync/atomic"
	"time"
)

// MarketSource fetches raw market data from the upstream API.
// Infrastructure failures (timeouts, connection errors, rate limits) are
// reported as ErrMarketDown so the refresh scheduler can retry them;
// anything else is a semantic error and is not retried.
type MarketSource interface {
	Listings(ctx context.Context) ([]CurrencyRecord, error)
	GlobalStats(ctx context.Context) (MarketStats, error)
	FiatRates(ctx context.Context) (RateTable, error)
}

// Messenger is the narrow boundary to the chat platform.
type Messenger interface {
	// Send posts text to a destination (channel or direct message).
	Send(destination, text string) error
	// PurgeRecent removes up to limit recently posted messages from the
	// destination. Best effort; failures are swallowed by callers.
	PurgeRecent(destination string, limit int) error
}

// BoardConsumer receives the freshly published board after each successful
// refresh. minute is the wall-clock minute of the refresh tick, used by
// interval-based consumers.
type BoardConsumer interface {
	OnBoard(ctx context.Context, board *Board, minute int)
}

// Clock abstracts wall-clock time for the scheduler and its tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// BoardRef is the single-writer, many-reader handle to the current board.
// The refresh scheduler is the only writer; consumers read whatever board
// was last published and never observe a partially updated one.
type BoardRef struct {
	ptr atomic.Pointer[Board]
}

// Load returns the most recently published board, or nil before the first
// successful refresh.
func (r *BoardRef) Load() *Board { return r.ptr.Load() }

// Publish atomically replaces the current board.
func (r *BoardRef) Publish(b *Board) { r.ptr.Store(b) }
