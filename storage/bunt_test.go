package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coinwatch/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *BuntStore {
	t.Helper()
	store, err := NewBuntInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleAlert(owner string, num int) core.Alert {
	return core.Alert{
		Owner:       owner,
		Num:         num,
		Currency:    "bitcoin",
		Op:          core.OpGreater,
		Value:       50000,
		Kind:        core.KindPrice,
		Fiat:        "USD",
		Destination: owner,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestAlertRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	alert := sampleAlert("7", 1)
	require.NoError(t, store.SaveAlert(ctx, alert))

	alerts, err := store.Alerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, alert, alerts[0])
}

func TestOwnerAlertsIsolation(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	require.NoError(t, store.SaveAlert(ctx, sampleAlert("7", 1)))
	require.NoError(t, store.SaveAlert(ctx, sampleAlert("7", 2)))
	require.NoError(t, store.SaveAlert(ctx, sampleAlert("8", 1)))

	alerts, err := store.OwnerAlerts(ctx, "7")
	require.NoError(t, err)
	assert.Len(t, alerts, 2)

	alerts, err = store.OwnerAlerts(ctx, "8")
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestDeleteAlert(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	require.NoError(t, store.SaveAlert(ctx, sampleAlert("7", 1)))

	found, err := store.DeleteAlert(ctx, "7", 1)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.DeleteAlert(ctx, "7", 1)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteAlertsBatch(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	for num := 1; num <= 3; num++ {
		require.NoError(t, store.SaveAlert(ctx, sampleAlert("7", num)))
	}

	err := store.DeleteAlerts(ctx, []core.AlertRef{
		{Owner: "7", Num: 1},
		{Owner: "7", Num: 3},
		{Owner: "7", Num: 99}, // missing, ignored
	})
	require.NoError(t, err)

	alerts, err := store.OwnerAlerts(ctx, "7")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 2, alerts[0].Num)
}

func TestSubscriptionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	sub := core.Subscription{
		Destination:     "-100",
		Fiat:            "EUR",
		Currencies:      []string{"bitcoin", "ethereum"},
		IntervalMinutes: 30,
		Purge:           true,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveSubscription(ctx, sub))

	got, found, err := store.Subscription(ctx, "-100")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sub, got)

	_, found, err = store.Subscription(ctx, "-999")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCountAndDeleteSubscriptions(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	require.NoError(t, store.SaveSubscription(ctx, core.Subscription{Destination: "-100", Fiat: "USD"}))
	require.NoError(t, store.SaveSubscription(ctx, core.Subscription{Destination: "-200", Fiat: "USD"}))

	count, err := store.CountSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	found, err := store.DeleteSubscription(ctx, "-100")
	require.NoError(t, err)
	assert.True(t, found)

	count, err = store.CountSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	subs, err := store.Subscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "-200", subs[0].Destination)
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	require.NoError(t, store.SaveAlert(ctx, sampleAlert("7", 1)))
	require.NoError(t, store.SaveSubscription(ctx, core.Subscription{Destination: "-100", Fiat: "USD"}))

	path := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, store.Backup(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// The backup opens as a same-shaped store.
	restored, err := NewBunt(path)
	require.NoError(t, err)
	defer restored.Close()

	alerts, err := restored.Alerts(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)

	count, err := restored.CountSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBackupEmptyPathIsNoop(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Backup(""))
}
