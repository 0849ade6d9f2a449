package core

import "time"

// Settings is the static startup configuration. Loaded once; not
// hot-reloaded.
type Settings struct {
	Telegram TelegramSettings
	Market   MarketSettings
	Refresh  RefreshSettings
	Storage  StorageSettings

	// AlertCapacity caps the number of alerts per owner.
	AlertCapacity int
	// SubscriberCapacity caps the number of subscribed destinations.
	SubscriberCapacity int
}

// TelegramSettings configures the chat platform boundary.
type TelegramSettings struct {
	Enabled bool
	Token   string
	// Users restricts the bot to these user ids when non-empty.
	Users []int64
}

// MarketSettings configures the upstream market data client.
type MarketSettings struct {
	BaseURL       string
	RatesURL      string
	APIKey        string
	Timeout       time.Duration
	ListingsLimit int
}

// RefreshSettings configures the refresh scheduler.
type RefreshSettings struct {
	// Cadence between full refresh attempts, aligned to wall-clock
	// minute boundaries.
	Cadence time.Duration
	// RetryInterval is the backoff between retries of a failed fetch.
	RetryInterval time.Duration
	// MaxAttempts bounds the fetch attempts of one cycle, first try
	// included.
	MaxAttempts int
}

// StorageSettings selects and locates the durable store.
type StorageSettings struct {
	// Driver is "buntdb" or "sqlite".
	Driver string
	Path   string
	// BackupPath receives a copy of the store at process start.
	BackupPath string
}

// DefaultSettings returns the stock configuration: 5 minute cadence,
// 10 fetch attempts 5 seconds apart, buntdb storage.
func DefaultSettings() *Settings {
	return &Settings{
		Market: MarketSettings{
			BaseURL:       "https://pro-api.coinmarketcap.com",
			RatesURL:      "https://api.exchangerate.host/latest?base=USD",
			Timeout:       30 * time.Second,
			ListingsLimit: 5000,
		},
		Refresh: RefreshSettings{
			Cadence:       5 * time.Minute,
			RetryInterval: 5 * time.Second,
			MaxAttempts:   10,
		},
		Storage: StorageSettings{
			Driver:     "buntdb",
			Path:       "coinwatch.db",
			BackupPath: "coinwatch_backup.db",
		},
		AlertCapacity:      10,
		SubscriberCapacity: 500,
	}
}
