// Package alert implements one-shot price and percent-change alerts:
// persisted at creation, evaluated against every fresh board, fired once
// and removed.
package alert

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"coinwatch/core"
)

// Engine owns the alert lifecycle. Command handlers call Add/Remove/List
// concurrently; the refresh scheduler drives OnBoard.
type Engine struct {
	store     core.AlertStore
	board     *core.BoardRef
	messenger core.Messenger
	capacity  int
	log       core.Logger

	// mu serializes mutations so concurrent adds cannot allocate the
	// same alert number.
	mu sync.Mutex
}

// NewEngine builds an alert engine with the given per-owner capacity.
func NewEngine(store core.AlertStore, board *core.BoardRef, messenger core.Messenger, capacity int, log core.Logger) *Engine {
	return &Engine{
		store:     store,
		board:     board,
		messenger: messenger,
		capacity:  capacity,
		log:       log,
	}
}

// Add validates and persists a new alert. The condition must be false
// against the current board: an alert fires on a future state transition,
// never immediately. The smallest unused positive number is allocated per
// owner, bounded by the configured capacity.
func (e *Engine) Add(ctx context.Context, owner, currency string, op core.AlertOp, value float64, fiat string, kind core.AlertKind, destination string) (core.Alert, error) {
	board := e.board.Load()
	if board == nil {
		return core.Alert{}, core.ErrBoardNotReady
	}
	if !op.Valid() {
		return core.Alert{}, fmt.Errorf("%q: %w", op, core.ErrInvalidOperator)
	}
	code, err := core.FiatCheck(fiat)
	if err != nil {
		return core.Alert{}, err
	}
	rec, err := board.Acronyms.Resolve(currency, board.Snapshot)
	if err != nil {
		return core.Alert{}, err
	}

	alert := core.Alert{
		Owner:       owner,
		Currency:    rec.ID,
		Op:          op,
		Value:       value,
		Kind:        kind,
		Fiat:        code,
		Destination: destination,
		CreatedAt:   board.FetchedAt,
	}
	met, err := e.conditionMet(alert, board)
	if err != nil {
		return core.Alert{}, err
	}
	if met {
		return core.Alert{}, fmt.Errorf("%s: %w", rec.Name, core.ErrAlertAlreadyMet)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := e.store.OwnerAlerts(ctx, owner)
	if err != nil {
		return core.Alert{}, fmt.Errorf("load alerts: %w", err)
	}
	alert.Num = smallestFreeNum(existing)
	if alert.Num > e.capacity {
		return core.Alert{}, fmt.Errorf("capacity %d: %w", e.capacity, core.ErrAlertCapacity)
	}
	if err := e.store.SaveAlert(ctx, alert); err != nil {
		return core.Alert{}, fmt.Errorf("save alert: %w", err)
	}
	return alert, nil
}

// Remove deletes an alert by number, reporting whether it existed.
func (e *Engine) Remove(ctx context.Context, owner string, num int) (core.Alert, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := e.store.OwnerAlerts(ctx, owner)
	if err != nil {
		return core.Alert{}, false, fmt.Errorf("load alerts: %w", err)
	}
	for _, a := range existing {
		if a.Num == num {
			if _, err := e.store.DeleteAlert(ctx, owner, num); err != nil {
				return core.Alert{}, false, fmt.Errorf("delete alert: %w", err)
			}
			return a, true, nil
		}
	}
	return core.Alert{}, false, nil
}

// List returns an owner's alerts sorted by ascending number.
func (e *Engine) List(ctx context.Context, owner string) ([]core.Alert, error) {
	alerts, err := e.store.OwnerAlerts(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Num < alerts[j].Num })
	return alerts, nil
}

// OnBoard re-evaluates every stored alert against the fresh board and
// fires the ones whose condition turned true. Fired alerts, and alerts
// whose currency left the market, are deleted in one batched write at the
// end of the pass.
func (e *Engine) OnBoard(ctx context.Context, board *core.Board, _ int) {
	alerts, err := e.store.Alerts(ctx)
	if err != nil {
		e.log.WithError(err).Error("failed to load alerts for evaluation")
		return
	}

	var fired []core.AlertRef
	for _, a := range alerts {
		if _, ok := board.Snapshot[a.Currency]; !ok {
			e.notify(a, fmt.Sprintf(
				"*%s* is no longer listed by the market api. Alert %d has been removed.",
				a.Currency, a.Num))
			fired = append(fired, core.AlertRef{Owner: a.Owner, Num: a.Num})
			continue
		}
		met, err := e.conditionMet(a, board)
		if err != nil {
			e.log.WithError(err).WithField("alert", a.Num).Error("alert evaluation failed")
			continue
		}
		if !met {
			continue
		}
		e.notify(a, fmt.Sprintf("Alert *%d*\n%s", a.Num, a.Describe()))
		fired = append(fired, core.AlertRef{Owner: a.Owner, Num: a.Num})
	}

	if len(fired) == 0 {
		return
	}
	if err := e.store.DeleteAlerts(ctx, fired); err != nil {
		e.log.WithError(err).Error("failed to remove fired alerts")
		return
	}
	e.log.WithField("fired", len(fired)).Info("alerts fired and removed")
}

// conditionMet evaluates an alert against a board. A missing percent
// field means the condition cannot be met this cycle.
func (e *Engine) conditionMet(a core.Alert, board *core.Board) (bool, error) {
	rec, ok := board.Snapshot[a.Currency]
	if !ok {
		return false, nil
	}

	var market float64
	switch a.Kind {
	case core.KindPrice:
		price, err := board.Rates.Convert(rec.PriceUSD, a.Fiat)
		if err != nil {
			return false, err
		}
		market = price
	case core.KindChange1H:
		if rec.PercentChange1H == nil {
			return false, nil
		}
		market = *rec.PercentChange1H
	case core.KindChange24:
		if rec.PercentChange24H == nil {
			return false, nil
		}
		market = *rec.PercentChange24H
	case core.KindChange7D:
		if rec.PercentChange7D == nil {
			return false, nil
		}
		market = *rec.PercentChange7D
	default:
		return false, fmt.Errorf("unsupported alert kind %q", a.Kind)
	}
	return a.Op.Compare(market, a.Value), nil
}

// notify sends to the alert's destination, falling back to the owner's
// direct message when none was recorded.
func (e *Engine) notify(a core.Alert, text string) {
	destination := a.Destination
	if destination == "" {
		destination = a.Owner
	}
	if err := e.messenger.Send(destination, text); err != nil {
		e.log.WithError(err).WithField("destination", destination).Error("failed to deliver alert")
	}
}

// smallestFreeNum returns the smallest unused positive alert number,
// reusing freed ones.
func smallestFreeNum(alerts []core.Alert) int {
	used := make(map[int]bool, len(alerts))
	for _, a := range alerts {
		used[a.Num] = true
	}
	for i := 1; i <= len(alerts)+1; i++ {
		if !used[i] {
			return i
		}
	}
	return len(alerts) + 1
}
