// Package storage provides durable implementations of core.Store.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"coinwatch/core"

	"github.com/tidwall/buntdb"
)

const (
	alertPrefix = "alert:"
	subPrefix   = "sub:"
)

// BuntStore implements core.Store on BuntDB with JSON values. Alerts are
// keyed alert:<owner>:<num>, subscriptions sub:<destination>.
type BuntStore struct {
	db *buntdb.DB
}

// NewBunt opens (or creates) a file-backed store.
func NewBunt(path string) (*BuntStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}
	if err := db.SetConfig(buntdb.Config{SyncPolicy: buntdb.EverySecond}); err != nil {
		return nil, fmt.Errorf("failed to configure buntdb: %w", err)
	}
	return &BuntStore{db: db}, nil
}

// NewBuntInMemory creates a volatile store, used by tests.
func NewBuntInMemory() (*BuntStore, error) {
	return NewBunt(":memory:")
}

func alertKey(owner string, num int) string {
	return fmt.Sprintf("%s%s:%d", alertPrefix, owner, num)
}

// Alerts retrieves every stored alert.
func (s *BuntStore) Alerts(_ context.Context) ([]core.Alert, error) {
	alerts := make([]core.Alert, 0)
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(alertPrefix+"*", func(key, value string) bool {
			var alert core.Alert
			if err := json.Unmarshal([]byte(value), &alert); err != nil {
				return true
			}
			alerts = append(alerts, alert)
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	return alerts, nil
}

// OwnerAlerts retrieves the alerts of one owner.
func (s *BuntStore) OwnerAlerts(_ context.Context, owner string) ([]core.Alert, error) {
	alerts := make([]core.Alert, 0)
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(alertPrefix+owner+":*", func(key, value string) bool {
			var alert core.Alert
			if err := json.Unmarshal([]byte(value), &alert); err != nil {
				return true
			}
			alerts = append(alerts, alert)
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	return alerts, nil
}

// SaveAlert stores or replaces an alert.
func (s *BuntStore) SaveAlert(_ context.Context, alert core.Alert) error {
	content, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(alertKey(alert.Owner, alert.Num), string(content), nil)
		return err
	})
}

// DeleteAlert removes one alert, reporting whether it existed.
func (s *BuntStore) DeleteAlert(_ context.Context, owner string, num int) (bool, error) {
	found := true
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(alertKey(owner, num))
		if errors.Is(err, buntdb.ErrNotFound) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete alert: %w", err)
	}
	return found, nil
}

// DeleteAlerts removes a batch of alerts in one transaction. Missing keys
// are ignored.
func (s *BuntStore) DeleteAlerts(_ context.Context, refs []core.AlertRef) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		for _, ref := range refs {
			if _, err := tx.Delete(alertKey(ref.Owner, ref.Num)); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete alerts: %w", err)
	}
	return nil
}

// Subscriptions retrieves every stored subscription.
func (s *BuntStore) Subscriptions(_ context.Context) ([]core.Subscription, error) {
	subs := make([]core.Subscription, 0)
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(subPrefix+"*", func(key, value string) bool {
			var sub core.Subscription
			if err := json.Unmarshal([]byte(value), &sub); err != nil {
				return true
			}
			subs = append(subs, sub)
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	return subs, nil
}

// Subscription retrieves one destination's subscription.
func (s *BuntStore) Subscription(_ context.Context, destination string) (core.Subscription, bool, error) {
	var sub core.Subscription
	found := true
	err := s.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(subPrefix + destination)
		if errors.Is(err, buntdb.ErrNotFound) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(value), &sub)
	})
	if err != nil {
		return core.Subscription{}, false, fmt.Errorf("failed to query subscription: %w", err)
	}
	return sub, found, nil
}

// SaveSubscription stores or replaces a subscription.
func (s *BuntStore) SaveSubscription(_ context.Context, sub core.Subscription) error {
	content, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(subPrefix+sub.Destination, string(content), nil)
		return err
	})
}

// DeleteSubscription removes a subscription, reporting whether it
// existed.
func (s *BuntStore) DeleteSubscription(_ context.Context, destination string) (bool, error) {
	found := true
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(subPrefix + destination)
		if errors.Is(err, buntdb.ErrNotFound) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete subscription: %w", err)
	}
	return found, nil
}

// CountSubscriptions returns the number of stored subscriptions.
func (s *BuntStore) CountSubscriptions(_ context.Context) (int, error) {
	count := 0
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(subPrefix+"*", func(key, value string) bool {
			count++
			return true
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}

// Backup writes a full copy of the database to path.
func (s *BuntStore) Backup(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()
	if err := s.db.Save(f); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *BuntStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
