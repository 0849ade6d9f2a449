// Package coinwatch assembles the market watcher bot: a refresh
// scheduler feeding an in-memory board, query/alert/subscription
// services on top of it, and a Telegram front end.
package coinwatch

import (
	"context"
	"fmt"

	"coinwatch/alert"
	"coinwatch/core"
	"coinwatch/market"
	"coinwatch/notification"
	"coinwatch/query"
	"coinwatch/refresh"
	"coinwatch/storage"
	"coinwatch/subscriber"
)

// DefaultLog is the logger used when none is supplied, configured from
// environment variables at init.
var DefaultLog core.Logger

// Bot wires every component together.
type Bot struct {
	settings core.Settings
	log      core.Logger

	board     *core.BoardRef
	store     core.Store
	source    core.MarketSource
	messenger *messengerRelay
	clock     core.Clock

	query     *query.Service
	alerts    *alert.Engine
	subs      *subscriber.Broadcaster
	scheduler *refresh.Scheduler
	telegram  *notification.Telegram
}

// NewBot creates a bot from settings. Storage, market source, messenger
// and clock can be replaced through options; anything not supplied is
// built from the settings.
func NewBot(settings core.Settings, options ...Option) (*Bot, error) {
	bot := &Bot{
		settings:  settings,
		log:       DefaultLog,
		board:     &core.BoardRef{},
		messenger: &messengerRelay{target: noopMessenger{}},
	}
	for _, option := range options {
		option(bot)
	}

	if err := initializeStorage(bot); err != nil {
		return nil, err
	}
	if bot.source == nil {
		bot.source = market.NewClient(settings.Market, bot.log)
	}

	bot.query = query.New(bot.board, bot.log)
	bot.alerts = alert.NewEngine(bot.store, bot.board, bot.messenger, settings.AlertCapacity, bot.log)
	bot.subs = subscriber.NewBroadcaster(bot.store, bot.board, bot.messenger, settings.SubscriberCapacity, bot.log)

	if err := initializeNotifications(bot); err != nil {
		return nil, err
	}

	bot.scheduler = refresh.NewScheduler(bot.source, bot.board, settings.Refresh, bot.clock, bot.log)
	bot.scheduler.Subscribe(bot.alerts, bot.subs)
	return bot, nil
}

// initializeStorage opens the configured store unless one was injected.
func initializeStorage(bot *Bot) error {
	if bot.store != nil {
		return nil
	}
	var err error
	switch bot.settings.Storage.Driver {
	case "sqlite":
		bot.store, err = storage.NewSQLite(bot.settings.Storage.Path)
	case "", "buntdb":
		bot.store, err = storage.NewBunt(bot.settings.Storage.Path)
	default:
		return fmt.Errorf("unknown storage driver %q", bot.settings.Storage.Driver)
	}
	return err
}

// initializeNotifications builds the Telegram front end when enabled and
// binds it as the outbound messenger, unless a custom messenger was
// injected.
func initializeNotifications(bot *Bot) error {
	if !bot.settings.Telegram.Enabled {
		return nil
	}
	telegram, err := notification.NewTelegram(bot.settings.Telegram, bot.query, bot.alerts, bot.subs, bot.log)
	if err != nil {
		return err
	}
	bot.telegram = telegram
	if _, unbound := bot.messenger.target.(noopMessenger); unbound {
		bot.messenger.target = telegram
	}
	return nil
}

// Query exposes the on-demand query service.
func (b *Bot) Query() *query.Service { return b.query }

// Run backs up the store, starts the front end and drives the refresh
// loop until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.store.Backup(b.settings.Storage.BackupPath); err != nil {
		b.log.WithError(err).Warn("startup backup failed")
	} else if b.settings.Storage.BackupPath != "" {
		b.log.WithField("path", b.settings.Storage.BackupPath).Info("store backed up")
	}

	if b.telegram != nil {
		go b.telegram.Start()
		defer b.telegram.Stop()
	}
	return b.scheduler.Run(ctx)
}

// Close releases the store.
func (b *Bot) Close() error {
	return b.store.Close()
}

// messengerRelay lets the alert engine and broadcaster be constructed
// before the front end that ultimately delivers their messages.
type messengerRelay struct {
	target core.Messenger
}

func (r *messengerRelay) Send(destination, text string) error {
	return r.target.Send(destination, text)
}

func (r *messengerRelay) PurgeRecent(destination string, limit int) error {
	return r.target.PurgeRecent(destination, limit)
}

// noopMessenger swallows outbound messages. It backs headless runs and
// tests.
type noopMessenger struct{}

func (noopMessenger) Send(string, string) error     { return nil }
func (noopMessenger) PurgeRecent(string, int) error { return nil }
