package coinwatch

import (
	"fmt"
	"os"
	"strings"
	"time"

	"coinwatch/core"

	"github.com/spf13/viper"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// LoadSettings reads the configuration file at path (YAML, JSON or TOML)
// and overlays COINWATCH_* environment variables. A missing file yields
// the defaults. Durations accept extended forms such as "1h30m" or "2d".
func LoadSettings(path string) (*core.Settings, error) {
	settings := core.DefaultSettings()

	v := viper.New()
	v.SetEnvPrefix("COINWATCH")
	// Nested keys map to env vars with dots flattened to underscores
	// (telegram.token -> COINWATCH_TELEGRAM_TOKEN).
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	v.SetDefault("telegram.enabled", settings.Telegram.Enabled)
	v.SetDefault("telegram.token", settings.Telegram.Token)
	v.SetDefault("telegram.users", settings.Telegram.Users)
	v.SetDefault("market.base_url", settings.Market.BaseURL)
	v.SetDefault("market.rates_url", settings.Market.RatesURL)
	v.SetDefault("market.api_key", settings.Market.APIKey)
	v.SetDefault("market.timeout", settings.Market.Timeout.String())
	v.SetDefault("market.listings_limit", settings.Market.ListingsLimit)
	v.SetDefault("refresh.cadence", settings.Refresh.Cadence.String())
	v.SetDefault("refresh.retry_interval", settings.Refresh.RetryInterval.String())
	v.SetDefault("refresh.max_attempts", settings.Refresh.MaxAttempts)
	v.SetDefault("storage.driver", settings.Storage.Driver)
	v.SetDefault("storage.path", settings.Storage.Path)
	v.SetDefault("storage.backup_path", settings.Storage.BackupPath)
	v.SetDefault("alert_capacity", settings.AlertCapacity)
	v.SetDefault("subscriber_capacity", settings.SubscriberCapacity)

	settings.Telegram.Enabled = v.GetBool("telegram.enabled")
	settings.Telegram.Token = v.GetString("telegram.token")
	users := v.GetIntSlice("telegram.users")
	if len(users) > 0 {
		settings.Telegram.Users = make([]int64, 0, len(users))
		for _, user := range users {
			settings.Telegram.Users = append(settings.Telegram.Users, int64(user))
		}
	}
	settings.Market.BaseURL = v.GetString("market.base_url")
	settings.Market.RatesURL = v.GetString("market.rates_url")
	settings.Market.APIKey = v.GetString("market.api_key")
	settings.Market.ListingsLimit = v.GetInt("market.listings_limit")
	settings.Refresh.MaxAttempts = v.GetInt("refresh.max_attempts")
	settings.Storage.Driver = v.GetString("storage.driver")
	settings.Storage.Path = v.GetString("storage.path")
	settings.Storage.BackupPath = v.GetString("storage.backup_path")
	settings.AlertCapacity = v.GetInt("alert_capacity")
	settings.SubscriberCapacity = v.GetInt("subscriber_capacity")

	var err error
	if settings.Market.Timeout, err = parseDuration(v.GetString("market.timeout")); err != nil {
		return nil, fmt.Errorf("market.timeout: %w", err)
	}
	if settings.Refresh.Cadence, err = parseDuration(v.GetString("refresh.cadence")); err != nil {
		return nil, fmt.Errorf("refresh.cadence: %w", err)
	}
	if settings.Refresh.RetryInterval, err = parseDuration(v.GetString("refresh.retry_interval")); err != nil {
		return nil, fmt.Errorf("refresh.retry_interval: %w", err)
	}

	if settings.Telegram.Enabled && settings.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram is enabled but no token is configured")
	}
	return settings, nil
}

func parseDuration(value string) (time.Duration, error) {
	return str2duration.ParseDuration(value)
}
