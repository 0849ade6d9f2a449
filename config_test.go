package coinwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsDefaults(t *testing.T) {
	settings, err := LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, settings.Refresh.Cadence)
	assert.Equal(t, 5*time.Second, settings.Refresh.RetryInterval)
	assert.Equal(t, 10, settings.Refresh.MaxAttempts)
	assert.Equal(t, "buntdb", settings.Storage.Driver)
	assert.Equal(t, 10, settings.AlertCapacity)
	assert.Equal(t, 500, settings.SubscriberCapacity)
	assert.False(t, settings.Telegram.Enabled)
}

func TestLoadSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coinwatch.yaml")
	content := []byte(`
telegram:
  enabled: true
  token: "123:abc"
  users: [7, 8]
market:
  api_key: "key"
  timeout: "10s"
refresh:
  cadence: "10m"
  retry_interval: "2s"
  max_attempts: 3
storage:
  driver: "sqlite"
  path: "custom.db"
alert_capacity: 25
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	settings, err := LoadSettings(path)
	require.NoError(t, err)

	assert.True(t, settings.Telegram.Enabled)
	assert.Equal(t, "123:abc", settings.Telegram.Token)
	assert.Equal(t, []int64{7, 8}, settings.Telegram.Users)
	assert.Equal(t, "key", settings.Market.APIKey)
	assert.Equal(t, 10*time.Second, settings.Market.Timeout)
	assert.Equal(t, 10*time.Minute, settings.Refresh.Cadence)
	assert.Equal(t, 2*time.Second, settings.Refresh.RetryInterval)
	assert.Equal(t, 3, settings.Refresh.MaxAttempts)
	assert.Equal(t, "sqlite", settings.Storage.Driver)
	assert.Equal(t, "custom.db", settings.Storage.Path)
	assert.Equal(t, 25, settings.AlertCapacity)
	// Untouched keys keep their defaults.
	assert.Equal(t, 500, settings.SubscriberCapacity)
}

func TestLoadSettingsMissingFileKeepsDefaults(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, settings.Refresh.Cadence)
}

func TestLoadSettingsRejectsEnabledTelegramWithoutToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coinwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  enabled: true\n"), 0o600))

	_, err := LoadSettings(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestLoadSettingsEnvOverrides(t *testing.T) {
	t.Setenv("COINWATCH_TELEGRAM_TOKEN", "env-token")
	t.Setenv("COINWATCH_MARKET_API_KEY", "env-key")
	t.Setenv("COINWATCH_REFRESH_MAX_ATTEMPTS", "4")
	t.Setenv("COINWATCH_ALERT_CAPACITY", "42")

	settings, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, "env-token", settings.Telegram.Token)
	assert.Equal(t, "env-key", settings.Market.APIKey)
	assert.Equal(t, 4, settings.Refresh.MaxAttempts)
	assert.Equal(t, 42, settings.AlertCapacity)
}

func TestLoadSettingsEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coinwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  path: \"file.db\"\n"), 0o600))
	t.Setenv("COINWATCH_STORAGE_PATH", "env.db")

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "env.db", settings.Storage.Path)
}

func TestLoadSettingsExtendedDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coinwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("refresh:\n  cadence: \"1h30m\"\n"), 0o600))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, settings.Refresh.Cadence)
}
