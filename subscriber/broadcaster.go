// Package subscriber implements standing per-chat market broadcasts on
// configurable minute intervals.
package subscriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coinwatch/core"

	"github.com/StudioSol/set"
	"golang.org/x/sync/errgroup"
)

// chunkLimit caps one broadcast chunk.
const chunkLimit = 2000

// maxInFlight bounds concurrent broadcast deliveries per cycle.
const maxInFlight = 10

// purgeDepth is how many recent messages are cleared before a purge-mode
// broadcast posts.
const purgeDepth = 10

// Interval tiers selectable per subscription.
const (
	TierDefault = "default" // every cadence tick
	TierHalf    = "half"    // every half hour
	TierHourly  = "hourly"  // top of the hour
)

var tierMinutes = map[string]int{
	TierDefault: 5,
	TierHalf:    30,
	TierHourly:  60,
}

// Broadcaster manages subscriptions and fans fresh boards out to the due
// ones. Command handlers mutate subscriptions concurrently; the refresh
// scheduler drives OnBoard.
type Broadcaster struct {
	store     core.SubscriptionStore
	board     *core.BoardRef
	messenger core.Messenger
	capacity  int
	log       core.Logger

	mu sync.Mutex
}

// NewBroadcaster builds a broadcaster with the given subscriber capacity.
func NewBroadcaster(store core.SubscriptionStore, board *core.BoardRef, messenger core.Messenger, capacity int, log core.Logger) *Broadcaster {
	return &Broadcaster{
		store:     store,
		board:     board,
		messenger: messenger,
		capacity:  capacity,
		log:       log,
	}
}

// Subscribe registers a destination with an empty currency list on the
// default interval.
func (b *Broadcaster) Subscribe(ctx context.Context, destination, fiat string) (core.Subscription, error) {
	code, err := core.FiatCheck(fiat)
	if err != nil {
		return core.Subscription{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok, err := b.store.Subscription(ctx, destination); err != nil {
		return core.Subscription{}, fmt.Errorf("load subscription: %w", err)
	} else if ok {
		return core.Subscription{}, core.ErrAlreadySubscribed
	}
	count, err := b.store.CountSubscriptions(ctx)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("count subscriptions: %w", err)
	}
	if count >= b.capacity {
		return core.Subscription{}, fmt.Errorf("capacity %d: %w", b.capacity, core.ErrSubscriberCapacity)
	}

	sub := core.Subscription{
		Destination:     destination,
		Fiat:            code,
		IntervalMinutes: tierMinutes[TierDefault],
		CreatedAt:       time.Now(),
	}
	if err := b.store.SaveSubscription(ctx, sub); err != nil {
		return core.Subscription{}, fmt.Errorf("save subscription: %w", err)
	}
	return sub, nil
}

// Unsubscribe removes a destination, reporting whether it was subscribed.
func (b *Broadcaster) Unsubscribe(ctx context.Context, destination string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.DeleteSubscription(ctx, destination)
}

// AddCurrency appends a currency to a subscription, keeping the list an
// insertion-ordered set.
func (b *Broadcaster) AddCurrency(ctx context.Context, destination, currency string) (core.CurrencyRecord, error) {
	board := b.board.Load()
	if board == nil {
		return core.CurrencyRecord{}, core.ErrBoardNotReady
	}
	rec, err := board.Acronyms.Resolve(currency, board.Snapshot)
	if err != nil {
		return core.CurrencyRecord{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub, err := b.subscription(ctx, destination)
	if err != nil {
		return core.CurrencyRecord{}, err
	}
	currencies := set.NewLinkedHashSetString(sub.Currencies...)
	if currencies.InArray(rec.ID) {
		return core.CurrencyRecord{}, fmt.Errorf("%s: %w", rec.Name, core.ErrCurrencyListed)
	}
	currencies.Add(rec.ID)
	sub.Currencies = collect(currencies)
	if err := b.store.SaveSubscription(ctx, sub); err != nil {
		return core.CurrencyRecord{}, fmt.Errorf("save subscription: %w", err)
	}
	return rec, nil
}

// RemoveCurrency drops a currency from a subscription.
func (b *Broadcaster) RemoveCurrency(ctx context.Context, destination, currency string) (core.CurrencyRecord, error) {
	board := b.board.Load()
	if board == nil {
		return core.CurrencyRecord{}, core.ErrBoardNotReady
	}
	rec, err := board.Acronyms.Resolve(currency, board.Snapshot)
	if err != nil {
		return core.CurrencyRecord{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub, err := b.subscription(ctx, destination)
	if err != nil {
		return core.CurrencyRecord{}, err
	}
	currencies := set.NewLinkedHashSetString(sub.Currencies...)
	if !currencies.InArray(rec.ID) {
		return core.CurrencyRecord{}, fmt.Errorf("%s: %w", rec.Name, core.ErrCurrencyNotListed)
	}
	currencies.Remove(rec.ID)
	sub.Currencies = collect(currencies)
	if err := b.store.SaveSubscription(ctx, sub); err != nil {
		return core.CurrencyRecord{}, fmt.Errorf("save subscription: %w", err)
	}
	return rec, nil
}

// SetInterval switches a subscription to one of the interval tiers.
func (b *Broadcaster) SetInterval(ctx context.Context, destination, tier string) (core.Subscription, error) {
	minutes, ok := tierMinutes[tier]
	if !ok {
		return core.Subscription{}, fmt.Errorf("%q: %w", tier, core.ErrUnknownInterval)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub, err := b.subscription(ctx, destination)
	if err != nil {
		return core.Subscription{}, err
	}
	sub.IntervalMinutes = minutes
	if err := b.store.SaveSubscription(ctx, sub); err != nil {
		return core.Subscription{}, fmt.Errorf("save subscription: %w", err)
	}
	return sub, nil
}

// TogglePurge flips purge mode and returns the new state.
func (b *Broadcaster) TogglePurge(ctx context.Context, destination string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, err := b.subscription(ctx, destination)
	if err != nil {
		return false, err
	}
	sub.Purge = !sub.Purge
	if err := b.store.SaveSubscription(ctx, sub); err != nil {
		return false, fmt.Errorf("save subscription: %w", err)
	}
	return sub.Purge, nil
}

// Settings returns the current subscription of a destination.
func (b *Broadcaster) Settings(ctx context.Context, destination string) (core.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscription(ctx, destination)
}

// subscription loads one subscription; the caller holds the lock.
func (b *Broadcaster) subscription(ctx context.Context, destination string) (core.Subscription, error) {
	sub, ok, err := b.store.Subscription(ctx, destination)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("load subscription: %w", err)
	}
	if !ok {
		return core.Subscription{}, core.ErrNotSubscribed
	}
	return sub, nil
}

// OnBoard prunes dead currencies from every subscription and broadcasts
// to the ones due at this minute. Rendered records are cached per
// (fiat, currency) so a currency shared by many subscribers is formatted
// once per cycle. Deliveries run concurrently, bounded by maxInFlight.
func (b *Broadcaster) OnBoard(ctx context.Context, board *core.Board, minute int) {
	b.mu.Lock()
	subs, err := b.store.Subscriptions(ctx)
	if err != nil {
		b.mu.Unlock()
		b.log.WithError(err).Error("failed to load subscriptions for broadcast")
		return
	}
	for i := range subs {
		subs[i] = b.prune(ctx, subs[i], board)
	}
	b.mu.Unlock()

	ranked := board.RankedRecords()
	cache := make(map[cacheKey]string)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(maxInFlight)

	for _, sub := range subs {
		if !sub.Due(minute) || len(sub.Currencies) == 0 {
			continue
		}
		chunks, err := b.render(sub, board, ranked, cache)
		if err != nil {
			b.log.WithError(err).WithField("destination", sub.Destination).Error("failed to render broadcast")
			continue
		}
		sub := sub
		group.Go(func() error {
			b.deliver(gctx, sub, chunks)
			return nil
		})
	}
	_ = group.Wait()
}

type cacheKey struct {
	fiat string
	id   string
}

// prune drops currencies that left the market, persisting when anything
// was removed.
func (b *Broadcaster) prune(ctx context.Context, sub core.Subscription, board *core.Board) core.Subscription {
	kept := sub.Currencies[:0:0]
	for _, id := range sub.Currencies {
		if _, ok := board.Snapshot[id]; ok {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(sub.Currencies) {
		return sub
	}
	b.log.WithFields(map[string]interface{}{
		"destination": sub.Destination,
		"removed":     len(sub.Currencies) - len(kept),
	}).Info("pruned delisted currencies from subscription")
	sub.Currencies = kept
	if err := b.store.SaveSubscription(ctx, sub); err != nil {
		b.log.WithError(err).Error("failed to persist pruned subscription")
	}
	return sub
}

// render formats a subscription's currencies in rank order and packs them
// into postable chunks, reusing cached renderings. The ranked slice is the
// board's rank-ordered snapshot, shared by every subscription this cycle.
func (b *Broadcaster) render(sub core.Subscription, board *core.Board, ranked []core.CurrencyRecord, cache map[cacheKey]string) ([]string, error) {
	listed := make(map[string]struct{}, len(sub.Currencies))
	for _, id := range sub.Currencies {
		listed[id] = struct{}{}
	}

	rendered := make([]string, 0, len(sub.Currencies))
	for _, rec := range ranked {
		if _, ok := listed[rec.ID]; !ok {
			continue
		}
		key := cacheKey{fiat: sub.Fiat, id: rec.ID}
		text, ok := cache[key]
		if !ok {
			var err error
			text, _, err = core.FormatRecord(rec, sub.Fiat, board.Rates)
			if err != nil {
				return nil, err
			}
			cache[key] = text
		}
		rendered = append(rendered, text)
	}
	return core.PackChunks(rendered, chunkLimit), nil
}

// deliver posts one broadcast, clearing recent messages first when purge
// mode is on. Purge failures never block the post.
func (b *Broadcaster) deliver(ctx context.Context, sub core.Subscription, chunks []string) {
	if ctx.Err() != nil {
		return
	}
	if sub.Purge {
		if err := b.messenger.PurgeRecent(sub.Destination, purgeDepth); err != nil {
			b.log.WithError(err).WithField("destination", sub.Destination).Debug("purge before broadcast failed")
		}
	}
	for _, chunk := range chunks {
		if err := b.messenger.Send(sub.Destination, chunk); err != nil {
			b.log.WithError(err).WithField("destination", sub.Destination).Error("failed to deliver broadcast")
			return
		}
	}
}

func collect(s *set.LinkedHashSetString) []string {
	out := make([]string, 0, s.Length())
	for v := range s.Iter() {
		out = append(out, v)
	}
	return out
}
