package core

import "context"

// AlertStore persists alert records.
type AlertStore interface {
	// Alerts retrieves every stored alert.
	Alerts(ctx context.Context) ([]Alert, error)

	// OwnerAlerts retrieves the alerts of one owner.
	OwnerAlerts(ctx context.Context, owner string) ([]Alert, error)

	// SaveAlert stores or replaces an alert.
	SaveAlert(ctx context.Context, alert Alert) error

	// DeleteAlert removes one alert, reporting whether it existed.
	DeleteAlert(ctx context.Context, owner string, num int) (bool, error)

	// DeleteAlerts removes a batch of fired alerts in a single write.
	DeleteAlerts(ctx context.Context, refs []AlertRef) error
}

// SubscriptionStore persists subscription records.
type SubscriptionStore interface {
	// Subscriptions retrieves every stored subscription.
	Subscriptions(ctx context.Context) ([]Subscription, error)

	// Subscription retrieves one destination's subscription.
	Subscription(ctx context.Context, destination string) (Subscription, bool, error)

	// SaveSubscription stores or replaces a subscription.
	SaveSubscription(ctx context.Context, sub Subscription) error

	// DeleteSubscription removes a subscription, reporting whether it
	// existed.
	DeleteSubscription(ctx context.Context, destination string) (bool, error)

	// CountSubscriptions returns the number of stored subscriptions.
	CountSubscriptions(ctx context.Context) (int, error)
}

// Store is the combined durable store the bot runs on.
type Store interface {
	AlertStore
	SubscriptionStore

	// Backup writes a same-shaped copy of the store, taken at process
	// start.
	Backup(path string) error

	Close() error
}
