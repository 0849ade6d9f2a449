package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"coinwatch/core"

	"github.com/samber/lo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLStore implements core.Store on a SQL database via GORM. It exists
// for deployments that want to query alert history with plain SQL; the
// default deployment uses BuntStore.
type SQLStore struct {
	db *gorm.DB
}

type alertRow struct {
	ID          uint   `gorm:"primaryKey"`
	Owner       string `gorm:"index:idx_owner_num,unique"`
	Num         int    `gorm:"index:idx_owner_num,unique"`
	Currency    string
	Op          string
	Value       float64
	Kind        string
	Fiat        string
	Destination string
	CreatedAt   time.Time
}

type subscriptionRow struct {
	Destination     string `gorm:"primaryKey"`
	Fiat            string
	Currencies      string // JSON array, insertion order preserved
	IntervalMinutes int
	Purge           bool
	CreatedAt       time.Time
}

// NewSQLite opens (or creates) a SQLite-backed store.
func NewSQLite(path string, opts ...gorm.Option) (*SQLStore, error) {
	if len(opts) == 0 {
		opts = []gorm.Option{&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}}
	}
	db, err := gorm.Open(sqlite.Open(path), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&alertRow{}, &subscriptionRow{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func toAlertRow(a core.Alert) alertRow {
	return alertRow{
		Owner:       a.Owner,
		Num:         a.Num,
		Currency:    a.Currency,
		Op:          string(a.Op),
		Value:       a.Value,
		Kind:        string(a.Kind),
		Fiat:        a.Fiat,
		Destination: a.Destination,
		CreatedAt:   a.CreatedAt,
	}
}

func (r alertRow) toAlert() core.Alert {
	return core.Alert{
		Owner:       r.Owner,
		Num:         r.Num,
		Currency:    r.Currency,
		Op:          core.AlertOp(r.Op),
		Value:       r.Value,
		Kind:        core.AlertKind(r.Kind),
		Fiat:        r.Fiat,
		Destination: r.Destination,
		CreatedAt:   r.CreatedAt,
	}
}

// Alerts retrieves every stored alert.
func (s *SQLStore) Alerts(ctx context.Context) ([]core.Alert, error) {
	var rows []alertRow
	if result := s.db.WithContext(ctx).Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("failed to fetch alerts: %w", result.Error)
	}
	return lo.Map(rows, func(r alertRow, _ int) core.Alert { return r.toAlert() }), nil
}

// OwnerAlerts retrieves the alerts of one owner.
func (s *SQLStore) OwnerAlerts(ctx context.Context, owner string) ([]core.Alert, error) {
	var rows []alertRow
	if result := s.db.WithContext(ctx).Where("owner = ?", owner).Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("failed to fetch alerts: %w", result.Error)
	}
	return lo.Map(rows, func(r alertRow, _ int) core.Alert { return r.toAlert() }), nil
}

// SaveAlert stores or replaces an alert.
func (s *SQLStore) SaveAlert(ctx context.Context, alert core.Alert) error {
	tx := s.db.WithContext(ctx)

	var existing alertRow
	result := tx.Where("owner = ? AND num = ?", alert.Owner, alert.Num).First(&existing)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to fetch alert: %w", result.Error)
	}

	row := toAlertRow(alert)
	row.ID = existing.ID
	if result := tx.Save(&row); result.Error != nil {
		return fmt.Errorf("failed to save alert: %w", result.Error)
	}
	return nil
}

// DeleteAlert removes one alert, reporting whether it existed.
func (s *SQLStore) DeleteAlert(ctx context.Context, owner string, num int) (bool, error) {
	result := s.db.WithContext(ctx).Where("owner = ? AND num = ?", owner, num).Delete(&alertRow{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete alert: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteAlerts removes a batch of alerts in one transaction.
func (s *SQLStore) DeleteAlerts(ctx context.Context, refs []core.AlertRef) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ref := range refs {
			if result := tx.Where("owner = ? AND num = ?", ref.Owner, ref.Num).Delete(&alertRow{}); result.Error != nil {
				return fmt.Errorf("failed to delete alert: %w", result.Error)
			}
		}
		return nil
	})
}

func toSubscriptionRow(sub core.Subscription) (subscriptionRow, error) {
	currencies, err := json.Marshal(sub.Currencies)
	if err != nil {
		return subscriptionRow{}, fmt.Errorf("failed to marshal currencies: %w", err)
	}
	return subscriptionRow{
		Destination:     sub.Destination,
		Fiat:            sub.Fiat,
		Currencies:      string(currencies),
		IntervalMinutes: sub.IntervalMinutes,
		Purge:           sub.Purge,
		CreatedAt:       sub.CreatedAt,
	}, nil
}

func (r subscriptionRow) toSubscription() (core.Subscription, error) {
	sub := core.Subscription{
		Destination:     r.Destination,
		Fiat:            r.Fiat,
		IntervalMinutes: r.IntervalMinutes,
		Purge:           r.Purge,
		CreatedAt:       r.CreatedAt,
	}
	if r.Currencies != "" {
		if err := json.Unmarshal([]byte(r.Currencies), &sub.Currencies); err != nil {
			return core.Subscription{}, fmt.Errorf("failed to unmarshal currencies: %w", err)
		}
	}
	return sub, nil
}

// Subscriptions retrieves every stored subscription.
func (s *SQLStore) Subscriptions(ctx context.Context) ([]core.Subscription, error) {
	var rows []subscriptionRow
	if result := s.db.WithContext(ctx).Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", result.Error)
	}
	subs := make([]core.Subscription, 0, len(rows))
	for _, row := range rows {
		sub, err := row.toSubscription()
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Subscription retrieves one destination's subscription.
func (s *SQLStore) Subscription(ctx context.Context, destination string) (core.Subscription, bool, error) {
	var row subscriptionRow
	result := s.db.WithContext(ctx).First(&row, "destination = ?", destination)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return core.Subscription{}, false, nil
	}
	if result.Error != nil {
		return core.Subscription{}, false, fmt.Errorf("failed to fetch subscription: %w", result.Error)
	}
	sub, err := row.toSubscription()
	if err != nil {
		return core.Subscription{}, false, err
	}
	return sub, true, nil
}

// SaveSubscription stores or replaces a subscription.
func (s *SQLStore) SaveSubscription(ctx context.Context, sub core.Subscription) error {
	row, err := toSubscriptionRow(sub)
	if err != nil {
		return err
	}
	if result := s.db.WithContext(ctx).Save(&row); result.Error != nil {
		return fmt.Errorf("failed to save subscription: %w", result.Error)
	}
	return nil
}

// DeleteSubscription removes a subscription, reporting whether it
// existed.
func (s *SQLStore) DeleteSubscription(ctx context.Context, destination string) (bool, error) {
	result := s.db.WithContext(ctx).Where("destination = ?", destination).Delete(&subscriptionRow{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete subscription: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountSubscriptions returns the number of stored subscriptions.
func (s *SQLStore) CountSubscriptions(ctx context.Context) (int, error) {
	var count int64
	if result := s.db.WithContext(ctx).Model(&subscriptionRow{}).Count(&count); result.Error != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", result.Error)
	}
	return int(count), nil
}

// Backup writes a full copy of the database to path using VACUUM INTO.
func (s *SQLStore) Backup(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if result := s.db.Exec("VACUUM INTO ?", path); result.Error != nil {
		return fmt.Errorf("failed to write backup: %w", result.Error)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
