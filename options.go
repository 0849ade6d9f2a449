package coinwatch

import "coinwatch/core"

// Option is a functional option for configuring a Bot instance
type Option func(*Bot)

// WithLogger replaces the default logger.
func WithLogger(log core.Logger) Option {
	return func(bot *Bot) {
		bot.log = log
	}
}

// WithStore sets the durable store, by default a local BuntDB file is
// used.
func WithStore(store core.Store) Option {
	return func(bot *Bot) {
		bot.store = store
	}
}

// WithMarketSource replaces the market API client, used by tests and
// alternative data providers.
func WithMarketSource(source core.MarketSource) Option {
	return func(bot *Bot) {
		bot.source = source
	}
}

// WithMessenger sets the outbound messenger instead of the Telegram
// front end.
func WithMessenger(messenger core.Messenger) Option {
	return func(bot *Bot) {
		bot.messenger.target = messenger
	}
}

// WithClock replaces the wall clock, used by tests.
func WithClock(clock core.Clock) Option {
	return func(bot *Bot) {
		bot.clock = clock
	}
}
