package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinwatch/core"
	zlog "coinwatch/logger/zerolog"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() core.Logger {
	nop := zerolog.Nop()
	return zlog.NewAdapter(&nop)
}

// scriptedSource fails Listings a configured number of times before
// succeeding. Stats and rates always succeed.
type scriptedSource struct {
	listingsFailures int
	listingsErr      error

	listingsCalls int
	statsCalls    int
	ratesCalls    int
}

func (s *scriptedSource) Listings(context.Context) ([]core.CurrencyRecord, error) {
	s.listingsCalls++
	if s.listingsCalls <= s.listingsFailures {
		if s.listingsErr != nil {
			return nil, s.listingsErr
		}
		return nil, core.ErrMarketDown
	}
	return []core.CurrencyRecord{
		{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Rank: 1, PriceUSD: 50000, PriceBTC: 1},
		{ID: "ethereum", Name: "Ethereum", Symbol: "ETH", Rank: 2, PriceUSD: 4000, PriceBTC: 0.08},
	}, nil
}

func (s *scriptedSource) GlobalStats(context.Context) (core.MarketStats, error) {
	s.statsCalls++
	return core.MarketStats{BTCDominance: 48.5}, nil
}

func (s *scriptedSource) FiatRates(context.Context) (core.RateTable, error) {
	s.ratesCalls++
	return core.RateTable{"USD": 1, "EUR": 0.9}, nil
}

type recordingConsumer struct {
	boards  []*core.Board
	minutes []int
}

func (c *recordingConsumer) OnBoard(_ context.Context, board *core.Board, minute int) {
	c.boards = append(c.boards, board)
	c.minutes = append(c.minutes, minute)
}

func testSettings(attempts int) core.RefreshSettings {
	return core.RefreshSettings{
		Cadence:       5 * time.Minute,
		RetryInterval: time.Millisecond,
		MaxAttempts:   attempts,
	}
}

func TestRefreshPublishesBoard(t *testing.T) {
	ref := &core.BoardRef{}
	source := &scriptedSource{}
	consumer := &recordingConsumer{}

	s := NewScheduler(source, ref, testSettings(10), nil, testLogger())
	s.Subscribe(consumer)
	s.Refresh(context.Background(), 15)

	board := ref.Load()
	require.NotNil(t, board)
	assert.Len(t, board.Snapshot, 2)
	assert.Equal(t, "bitcoin", board.Acronyms["BTC"].ID)
	assert.Equal(t, 48.5, board.Stats.BTCDominance)

	require.Len(t, consumer.boards, 1)
	assert.Same(t, board, consumer.boards[0])
	assert.Equal(t, []int{15}, consumer.minutes)
}

func TestRefreshRetriesUntilSuccess(t *testing.T) {
	ref := &core.BoardRef{}
	source := &scriptedSource{listingsFailures: 9}

	s := NewScheduler(source, ref, testSettings(10), nil, testLogger())
	s.Refresh(context.Background(), 0)

	require.NotNil(t, ref.Load())
	assert.Equal(t, 10, source.listingsCalls)
	// Pieces fetched on earlier attempts are not fetched again.
	assert.Equal(t, 1, source.statsCalls)
	assert.Equal(t, 1, source.ratesCalls)
}

func TestRefreshKeepsStaleBoardOnExhaustion(t *testing.T) {
	ref := &core.BoardRef{}
	stale := &core.Board{FetchedAt: time.Now().Add(-time.Hour)}
	ref.Publish(stale)

	source := &scriptedSource{listingsFailures: 10}
	consumer := &recordingConsumer{}

	s := NewScheduler(source, ref, testSettings(10), nil, testLogger())
	s.Subscribe(consumer)
	s.Refresh(context.Background(), 30)

	assert.Same(t, stale, ref.Load())
	assert.Equal(t, 10, source.listingsCalls)
	assert.Empty(t, consumer.boards)
}

func TestRefreshAbortsOnNonRetryableError(t *testing.T) {
	ref := &core.BoardRef{}
	source := &scriptedSource{
		listingsFailures: 1,
		listingsErr:      errors.New("listings schema changed"),
	}

	s := NewScheduler(source, ref, testSettings(10), nil, testLogger())
	s.Refresh(context.Background(), 0)

	assert.Nil(t, ref.Load())
	assert.Equal(t, 1, source.listingsCalls)
}

func TestNextTick(t *testing.T) {
	base := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)

	t.Run("aligns to the cadence", func(t *testing.T) {
		now := base.Add(2*time.Minute + 30*time.Second)
		next := nextTick(now, 5*time.Minute)
		assert.Equal(t, base.Add(5*time.Minute), next)
	})

	t.Run("strictly after an aligned now", func(t *testing.T) {
		next := nextTick(base, 5*time.Minute)
		assert.Equal(t, base.Add(5*time.Minute), next)
	})

	t.Run("sub-minute cadence steps one minute", func(t *testing.T) {
		next := nextTick(base, 20*time.Second)
		assert.Equal(t, base.Add(time.Minute), next)
	})

	t.Run("multi-hour cadence aligns on hour multiples", func(t *testing.T) {
		now := time.Date(2023, 4, 1, 13, 5, 0, 0, time.UTC)
		next := nextTick(now, 2*time.Hour)
		assert.Equal(t, time.Date(2023, 4, 1, 14, 0, 0, 0, time.UTC), next)

		// Strictly after: an even hour steps to the next even hour,
		// not to its own minute 0.
		next = nextTick(time.Date(2023, 4, 1, 14, 0, 0, 0, time.UTC), 2*time.Hour)
		assert.Equal(t, time.Date(2023, 4, 1, 16, 0, 0, 0, time.UTC), next)
	})
}
