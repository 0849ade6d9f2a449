// Package refresh implements the market data refresh scheduler: the sole
// writer of the shared board, refreshed on a wall-clock aligned cadence
// and fanned out to its consumers.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coinwatch/core"
	"coinwatch/market"

	"github.com/jpillora/backoff"
)

// Scheduler periodically re-fetches the market snapshot, stats and fiat
// rates, rebuilds the acronym table and publishes everything as one new
// board. Fetch failures are retried a bounded number of times; exhausting
// the retries skips the cycle and keeps serving the stale board. The
// scheduler never terminates on upstream failure.
type Scheduler struct {
	source    core.MarketSource
	board     *core.BoardRef
	clock     core.Clock
	cfg       core.RefreshSettings
	consumers []core.BoardConsumer
	log       core.Logger
}

// NewScheduler builds a scheduler publishing into board.
func NewScheduler(source core.MarketSource, board *core.BoardRef, cfg core.RefreshSettings, clock core.Clock, log core.Logger) *Scheduler {
	if clock == nil {
		clock = core.SystemClock()
	}
	return &Scheduler{
		source: source,
		board:  board,
		clock:  clock,
		cfg:    cfg,
		log:    log,
	}
}

// Subscribe registers consumers notified after every successful refresh,
// in registration order.
func (s *Scheduler) Subscribe(consumers ...core.BoardConsumer) {
	s.consumers = append(s.consumers, consumers...)
}

// Run refreshes immediately, then on every wall-clock minute boundary
// matching the cadence, until the context is cancelled. Aligning to the
// wall clock keeps hourly subscription tiers firing at the top of the
// hour regardless of process start time.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Refresh(ctx, s.clock.Now().Minute())
	s.log.Info("refresh scheduler started")
	for {
		next := nextTick(s.clock.Now(), s.cfg.Cadence)
		timer := time.NewTimer(next.Sub(s.clock.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			s.Refresh(ctx, next.Minute())
		}
	}
}

// Refresh performs one full refresh cycle and notifies consumers on
// success. Errors and panics are contained here; the loop must survive
// indefinitely.
func (s *Scheduler) Refresh(ctx context.Context, minute int) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("refresh cycle panicked: %v", r)
		}
	}()

	board, err := s.fetchBoard(ctx)
	if err != nil {
		s.log.WithError(err).Warn("refresh failed, keeping stale market data")
		return
	}
	s.board.Publish(board)
	s.log.WithField("currencies", len(board.Snapshot)).Debug("published new market board")

	for _, consumer := range s.consumers {
		consumer.OnBoard(ctx, board, minute)
	}
}

// fetchBoard gathers snapshot, stats and rates, retrying retry-worthy
// failures with a fixed backoff. Pieces fetched on earlier attempts are
// not fetched again.
func (s *Scheduler) fetchBoard(ctx context.Context) (*core.Board, error) {
	attempts := s.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	wait := &backoff.Backoff{
		Min:    s.cfg.RetryInterval,
		Max:    s.cfg.RetryInterval,
		Factor: 1,
	}

	var (
		records  []core.CurrencyRecord
		stats    core.MarketStats
		rates    core.RateTable
		haveList bool
		haveStat bool
		lastErr  error
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait.Duration()):
			}
			s.log.Warnf("retrying market fetch, attempt %d/%d", attempt, attempts)
		}
		lastErr = nil

		if !haveList {
			list, err := s.source.Listings(ctx)
			if err != nil {
				if !errors.Is(err, core.ErrMarketDown) {
					return nil, err
				}
				lastErr = err
			} else {
				records = list
				haveList = true
			}
		}
		if !haveStat {
			st, err := s.source.GlobalStats(ctx)
			if err != nil {
				if !errors.Is(err, core.ErrMarketDown) {
					return nil, err
				}
				lastErr = err
			} else {
				stats = st
				haveStat = true
			}
		}
		if rates == nil {
			rt, err := s.source.FiatRates(ctx)
			if err != nil {
				if !errors.Is(err, core.ErrMarketDown) {
					return nil, err
				}
				lastErr = err
			} else {
				rates = rt
			}
		}

		if haveList && haveStat && rates != nil {
			snapshot := make(core.Snapshot, len(records))
			for _, rec := range records {
				snapshot[rec.ID] = rec
			}
			return &core.Board{
				Snapshot:  snapshot,
				Stats:     stats,
				Acronyms:  market.BuildAcronyms(snapshot),
				Rates:     rates,
				FetchedAt: s.clock.Now(),
			}, nil
		}
	}
	return nil, fmt.Errorf("max fetch attempts (%d) reached: %w", attempts, lastErr)
}

// nextTick returns the next wall-clock minute boundary matching the
// cadence, strictly after now. Alignment is against minutes since
// midnight, so a multi-hour cadence ticks on hour multiples (2h fires
// at 00:00, 02:00, ...) rather than collapsing to hourly.
func nextTick(now time.Time, cadence time.Duration) time.Time {
	step := int(cadence / time.Minute)
	if step <= 0 {
		step = 1
	}
	tick := now.Truncate(time.Minute)
	for {
		tick = tick.Add(time.Minute)
		if (tick.Hour()*60+tick.Minute())%step == 0 {
			return tick
		}
	}
}
