// Package notification provides the chat front end and the outbound
// messenger used by alerts and broadcasts.
package notification

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"slices"

	"coinwatch/alert"
	"coinwatch/core"
	"coinwatch/query"
	"coinwatch/subscriber"

	tb "gopkg.in/tucnak/telebot.v2"
)

const (
	pollingTimeout = 10 * time.Second

	// telegramTextLimit is the hard per-message character cap.
	telegramTextLimit = 4096

	// recentDepth is how many outbound messages per chat are remembered
	// for purge mode.
	recentDepth = 50
)

var (
	priceRegexp    = regexp.MustCompile(`^/price\s+(?P<currency>\S+)(?:\s+(?P<fiat>[A-Za-z]{3}))?\s*$`)
	searchRegexp   = regexp.MustCompile(`^/search\s+(?P<list>.+?)(?:\s+in\s+(?P<fiat>[A-Za-z]{3}))?\s*$`)
	statsRegexp    = regexp.MustCompile(`^/stats(?:\s+(?P<fiat>[A-Za-z]{3}))?\s*$`)
	convertRegexp  = regexp.MustCompile(`^/convert\s+(?P<amount>\d+(?:\.\d+)?)\s+(?P<from>\S+)\s+(?P<to>\S+)\s*$`)
	profitRegexp   = regexp.MustCompile(`^/profit\s+(?P<currency>\S+)\s+(?P<amount>\d+(?:\.\d+)?)\s+(?P<cost>\d+(?:\.\d+)?)(?:\s+(?P<fiat>[A-Za-z]{3}))?\s*$`)
	toFiatRegexp   = regexp.MustCompile(`^/tofiat\s+(?P<amount>\d+(?:\.\d+)?)\s+(?P<currency>\S+)(?:\s+(?P<fiat>[A-Za-z]{3}))?\s*$`)
	fromFiatRegexp = regexp.MustCompile(`^/fromfiat\s+(?P<amount>\d+(?:\.\d+)?)\s+(?P<currency>\S+)(?:\s+(?P<fiat>[A-Za-z]{3}))?\s*$`)
	alertRegexp    = regexp.MustCompile(`^/alert\s+(?P<currency>\S+)\s+(?P<op><=|>=|<|>)\s+(?P<value>-?\d+(?:\.\d+)?)(?P<percent>%)?(?:\s+(?P<window>1h|24h|7d))?(?:\s+(?P<fiat>[A-Za-z]{3}))?\s*$`)
	removeRegexp   = regexp.MustCompile(`^/removealert\s+(?P<num>\d+)\s*$`)
	subRegexp      = regexp.MustCompile(`^/sub(?:\s+(?P<fiat>[A-Za-z]{3}))?\s*$`)
	addcRegexp     = regexp.MustCompile(`^/addc\s+(?P<currency>\S+)\s*$`)
	removecRegexp  = regexp.MustCompile(`^/removec\s+(?P<currency>\S+)\s*$`)
	intervalRegexp = regexp.MustCompile(`^/interval\s+(?P<tier>\w+)\s*$`)
)

// Telegram is the chat front end. It parses commands into query, alert
// and subscription calls, and implements core.Messenger for outbound
// delivery.
type Telegram struct {
	settings core.TelegramSettings
	client   *tb.Bot
	query    *query.Service
	alerts   *alert.Engine
	subs     *subscriber.Broadcaster
	log      core.Logger

	mu     sync.Mutex
	recent map[int64][]*tb.Message
}

// NewTelegram creates and wires the Telegram front end.
func NewTelegram(settings core.TelegramSettings, q *query.Service, alerts *alert.Engine, subs *subscriber.Broadcaster, log core.Logger) (*Telegram, error) {
	poller := &tb.LongPoller{Timeout: pollingTimeout}
	middleware := newAuthMiddleware(poller, settings, log)

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Token,
		Poller:    middleware,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	if err := setupCommands(client); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	bot := &Telegram{
		settings: settings,
		client:   client,
		query:    q,
		alerts:   alerts,
		subs:     subs,
		log:      log,
		recent:   make(map[int64][]*tb.Message),
	}
	registerHandlers(client, bot)
	return bot, nil
}

// newAuthMiddleware restricts the bot to the configured users. An empty
// user list admits everyone.
func newAuthMiddleware(poller *tb.LongPoller, settings core.TelegramSettings, log core.Logger) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			return false
		}
		if len(settings.Users) == 0 {
			return true
		}
		if slices.Contains(settings.Users, int64(u.Message.Sender.ID)) {
			return true
		}
		log.WithField("user", u.Message.Sender.ID).Warn("unauthorized user")
		return false
	})
}

// setupCommands configures available bot commands
func setupCommands(client *tb.Bot) error {
	return client.SetCommands([]tb.Command{
		{Text: "/price", Description: "Show a currency's market record"},
		{Text: "/search", Description: "Show several currencies at once"},
		{Text: "/stats", Description: "Show aggregate market stats"},
		{Text: "/convert", Description: "Convert an amount between two coins"},
		{Text: "/tofiat", Description: "Value coin holdings in fiat"},
		{Text: "/fromfiat", Description: "Units of a coin a fiat amount buys"},
		{Text: "/profit", Description: "Profit against a cost basis"},
		{Text: "/fiat", Description: "List supported fiat currencies"},
		{Text: "/alert", Description: "Create a one-shot alert"},
		{Text: "/removealert", Description: "Remove an alert by number"},
		{Text: "/alerts", Description: "List your alerts"},
		{Text: "/sub", Description: "Subscribe this chat to broadcasts"},
		{Text: "/unsub", Description: "Unsubscribe this chat"},
		{Text: "/addc", Description: "Add a currency to the broadcast"},
		{Text: "/removec", Description: "Remove a currency from the broadcast"},
		{Text: "/getc", Description: "List subscribed currencies"},
		{Text: "/interval", Description: "Set the broadcast interval tier"},
		{Text: "/purge", Description: "Toggle purge mode"},
		{Text: "/subset", Description: "Show subscription settings"},
		{Text: "/help", Description: "Display help instructions"},
	})
}

// registerHandlers registers all command handlers
func registerHandlers(client *tb.Bot, bot *Telegram) {
	client.Handle("/price", bot.PriceHandle)
	client.Handle("/search", bot.SearchHandle)
	client.Handle("/stats", bot.StatsHandle)
	client.Handle("/convert", bot.ConvertHandle)
	client.Handle("/tofiat", bot.ToFiatHandle)
	client.Handle("/fromfiat", bot.FromFiatHandle)
	client.Handle("/profit", bot.ProfitHandle)
	client.Handle("/fiat", bot.FiatHandle)
	client.Handle("/alert", bot.AlertHandle)
	client.Handle("/removealert", bot.RemoveAlertHandle)
	client.Handle("/alerts", bot.AlertsHandle)
	client.Handle("/sub", bot.SubscribeHandle)
	client.Handle("/unsub", bot.UnsubscribeHandle)
	client.Handle("/addc", bot.AddCurrencyHandle)
	client.Handle("/removec", bot.RemoveCurrencyHandle)
	client.Handle("/getc", bot.CurrenciesHandle)
	client.Handle("/interval", bot.IntervalHandle)
	client.Handle("/purge", bot.PurgeHandle)
	client.Handle("/subset", bot.SettingsHandle)
	client.Handle("/help", bot.HelpHandle)
}

// Start begins long polling. It blocks until Stop is called.
func (t *Telegram) Start() {
	t.log.Info("telegram front end started")
	t.client.Start()
}

// Stop terminates long polling.
func (t *Telegram) Stop() {
	t.client.Stop()
}

// Messenger implementation
// ------------------------

// Send implements core.Messenger. The destination is a chat id; oversized
// texts are split at the Telegram character cap.
func (t *Telegram) Send(destination, text string) error {
	chatID, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid destination %q: %w", destination, err)
	}
	for _, piece := range splitText(text, telegramTextLimit) {
		msg, err := t.client.Send(tb.ChatID(chatID), piece)
		if err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		t.remember(chatID, msg)
	}
	return nil
}

// PurgeRecent implements core.Messenger: it deletes up to limit of the
// bot's own recent messages in a chat, best effort.
func (t *Telegram) PurgeRecent(destination string, limit int) error {
	chatID, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid destination %q: %w", destination, err)
	}

	t.mu.Lock()
	history := t.recent[chatID]
	if limit > len(history) {
		limit = len(history)
	}
	victims := history[len(history)-limit:]
	t.recent[chatID] = history[:len(history)-limit]
	t.mu.Unlock()

	for _, msg := range victims {
		if err := t.client.Delete(msg); err != nil {
			t.log.WithError(err).Debug("failed to delete message")
		}
	}
	return nil
}

func (t *Telegram) remember(chatID int64, msg *tb.Message) {
	if msg == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	history := append(t.recent[chatID], msg)
	if len(history) > recentDepth {
		history = history[len(history)-recentDepth:]
	}
	t.recent[chatID] = history
}

// Command handlers
// ----------------

// PriceHandle answers /price <currency> [fiat].
func (t *Telegram) PriceHandle(m *tb.Message) {
	match := priceRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage: `/price <currency> [fiat]`")
		return
	}
	params := extractCommandParams(priceRegexp, match)
	text, _, err := t.query.Price(params["currency"], fiatOrDefault(params["fiat"]))
	if err != nil {
		t.replyError(m, err)
		return
	}
	t.reply(m, text)
}

// SearchHandle answers /search <list> [in <fiat>].
func (t *Telegram) SearchHandle(m *tb.Message) {
	match := searchRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage: `/search btc,eth,ltc [in EUR]`")
		return
	}
	params := extractCommandParams(searchRegexp, match)
	chunks, err := t.query.Search(params["list"], fiatOrDefault(params["fiat"]))
	if err != nil {
		t.replyError(m, err)
		return
	}
	for _, chunk := range chunks {
		t.reply(m, chunk)
	}
}

// StatsHandle answers /stats [fiat].
func (t *Telegram) StatsHandle(m *tb.Message) {
	match := statsRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage: `/stats [fiat]`")
		return
	}
	params := extractCommandParams(statsRegexp, match)
	text, err := t.query.Stats(fiatOrDefault(params["fiat"]))
	if err != nil {
		t.replyError(m, err)
		return
	}
	t.reply(m, text)
}

// ConvertHandle answers /convert <amount> <from> <to>.
func (t *Telegram) ConvertHandle(m *tb.Message) {
	match := convertRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage: `/convert 2.5 btc eth`")
		return
	}
	params := extractCommandParams(convertRegexp, match)
	amount, err := strconv.ParseFloat(params["amount"], 64)
	if err != nil {
		t.reply(m, "Invalid amount.")
		return
	}
	result, err := t.query.Convert(amount, params["from"], params["to"])
	if err != nil {
		t.replyError(m, err)
		return
	}
	t.reply(m, fmt.Sprintf("%s %s = `%s` %s",
		params["amount"], strings.ToUpper(params["from"]), result, strings.ToUpper(params["to"])))
}

// ToFiatHandle answers /tofiat <amount> <currency> [fiat].
func (t *Telegram) ToFiatHandle(m *tb.Message) {
	match := toFiatRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage: `/tofiat 2.5 btc [EUR]`")
		return
	}
	params := extractCommandParams(toFiatRegexp, match)
	amount, err := strconv.ParseFloat(params["amount"], 64)
	if err != nil {
		t.reply(m, "Invalid amount.")
		return
	}
	result, err := t.query.ToFiat(params["currency"], amount, fiatOrDefault(params["fiat"]))
	if err != nil {
		t.replyError(m, err)
		return
	}
	t.reply(m, fmt.Sprintf("%s %s = `%s`", params["amount"], strings.ToUpper(params["currency"]), result))
}

// FromFiatHandle answers /fromfiat <amount> <currency> [fiat].
func (t *Telegram) FromFiatHandle(m *tb.Message) {
	match := fromFiatRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage: `/fromfiat 1000 btc [EUR]`")
		return
	}
	params := extractCommandParams(fromFiatRegexp, match)
	amount, err := strconv.ParseFloat(params["amount"], 64)
	if err != nil {
		t.reply(m, "Invalid amount.")
		return
	}
	result, err := t.query.FromFiat(params["currency"], amount, fiatOrDefault(params["fiat"]))
	if err != nil {
		t.replyError(m, err)
		return
	}
	t.reply(m, fmt.Sprintf("%s buys `%s` %s", params["amount"], result, strings.ToUpper(params["currency"])))
}

// ProfitHandle answers /profit <currency> <amount> <cost> [fiat].
func (t *Telegram) ProfitHandle(m *tb.Message) {
	match := profitRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage: `/profit btc 2 20000 [EUR]` (amount held, cost per unit)")
		return
	}
	params := extractCommandParams(profitRegexp, match)
	amount, err := strconv.ParseFloat(params["amount"], 64)
	if err != nil {
		t.reply(m, "Invalid amount.")
		return
	}
	cost, err := strconv.ParseFloat(params["cost"], 64)
	if err != nil {
		t.reply(m, "Invalid cost basis.")
		return
	}
	report, err := t.query.Profit(params["currency"], amount, cost, fiatOrDefault(params["fiat"]))
	if err != nil {
		t.replyError(m, err)
		return
	}

	trend := "📈"
	if !report.Gain {
		trend = "📉"
	}
	t.reply(m, fmt.Sprintf("%s *%s*\nInitial: `%s`\nProfit: `%s`\nTotal: `%s`",
		trend, report.Currency, report.Initial, report.Profit, report.Total))
}

// FiatHandle answers /fiat.
func (t *Telegram) FiatHandle(m *tb.Message) {
	t.reply(m, "Supported fiat currencies:\n`"+strings.Join(core.SupportedFiats(), ", ")+"`")
}

// AlertHandle answers /alert <currency> <op> <value>[%] [1h|24h|7d] [fiat].
func (t *Telegram) AlertHandle(m *tb.Message) {
	match := alertRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage:\n`/alert btc > 50000`\n`/alert btc <= 45000 EUR`\n`/alert eth > 5% 24h`")
		return
	}
	params := extractCommandParams(alertRegexp, match)
	value, err := strconv.ParseFloat(params["value"], 64)
	if err != nil {
		t.reply(m, "Invalid value.")
		return
	}

	kind := core.KindPrice
	if params["percent"] != "" {
		switch params["window"] {
		case "1h":
			kind = core.KindChange1H
		case "7d":
			kind = core.KindChange7D
		default:
			kind = core.KindChange24
		}
	}

	created, err := t.alerts.Add(context.Background(),
		owner(m), params["currency"], core.AlertOp(params["op"]), value,
		fiatOrDefault(params["fiat"]), kind, destination(m))
	if err != nil {
		t.replyError(m, err)
		return
	}
	t.reply(m, fmt.Sprintf("Alert *%d* created.\n%s", created.Num, created.Describe()))
}

// RemoveAlertHandle answers /removealert <num>.
func (t *Telegram) RemoveAlertHandle(m *tb.Message) {
	match := removeRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage: `/removealert 2`")
		return
	}
	params := extractCommandParams(removeRegexp, match)
	num, err := strconv.Atoi(params["num"])
	if err != nil {
		t.reply(m, "Invalid alert number.")
		return
	}
	removed, found, err := t.alerts.Remove(context.Background(), owner(m), num)
	if err != nil {
		t.replyError(m, err)
		return
	}
	if !found {
		t.reply(m, fmt.Sprintf("No alert *%d* found.", num))
		return
	}
	t.reply(m, fmt.Sprintf("Alert *%d* removed.\n%s", removed.Num, removed.Describe()))
}

// AlertsHandle answers /alerts.
func (t *Telegram) AlertsHandle(m *tb.Message) {
	alerts, err := t.alerts.List(context.Background(), owner(m))
	if err != nil {
		t.replyError(m, err)
		return
	}
	if len(alerts) == 0 {
		t.reply(m, "You have no alerts.")
		return
	}
	lines := make([]string, 0, len(alerts))
	for _, a := range alerts {
		lines = append(lines, fmt.Sprintf("*%d*: %s", a.Num, a.Describe()))
	}
	t.reply(m, strings.Join(lines, "\n"))
}

// SubscribeHandle answers /sub [fiat].
func (t *Telegram) SubscribeHandle(m *tb.Message) {
	match := subRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage: `/sub [fiat]`")
		return
	}
	params := extractCommandParams(subRegexp, match)
	sub, err := t.subs.Subscribe(context.Background(), destination(m), fiatOrDefault(params["fiat"]))
	if err != nil {
		t.replyError(m, err)
		return
	}
	t.reply(m, fmt.Sprintf(
		"Subscribed in %s. Add currencies with `/addc <currency>`; updates post every %d minutes.",
		sub.Fiat, sub.IntervalMinutes))
}

// UnsubscribeHandle answers /unsub.
func (t *Telegram) UnsubscribeHandle(m *tb.Message) {
	found, err := t.subs.Unsubscribe(context.Background(), destination(m))
	if err != nil {
		t.replyError(m, err)
		return
	}
	if !found {
		t.reply(m, "This chat is not subscribed.")
		return
	}
	t.reply(m, "Unsubscribed.")
}

// AddCurrencyHandle answers /addc <currency>.
func (t *Telegram) AddCurrencyHandle(m *tb.Message) {
	match := addcRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage: `/addc btc`")
		return
	}
	params := extractCommandParams(addcRegexp, match)
	rec, err := t.subs.AddCurrency(context.Background(), destination(m), params["currency"])
	if err != nil {
		t.replyError(m, err)
		return
	}
	t.reply(m, fmt.Sprintf("*%s* added to the broadcast.", rec.Name))
}

// RemoveCurrencyHandle answers /removec <currency>.
func (t *Telegram) RemoveCurrencyHandle(m *tb.Message) {
	match := removecRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage: `/removec btc`")
		return
	}
	params := extractCommandParams(removecRegexp, match)
	rec, err := t.subs.RemoveCurrency(context.Background(), destination(m), params["currency"])
	if err != nil {
		t.replyError(m, err)
		return
	}
	t.reply(m, fmt.Sprintf("*%s* removed from the broadcast.", rec.Name))
}

// CurrenciesHandle answers /getc.
func (t *Telegram) CurrenciesHandle(m *tb.Message) {
	sub, err := t.subs.Settings(context.Background(), destination(m))
	if err != nil {
		t.replyError(m, err)
		return
	}
	if len(sub.Currencies) == 0 {
		t.reply(m, "No currencies subscribed. Add one with `/addc <currency>`.")
		return
	}
	t.reply(m, "Subscribed currencies:\n`"+strings.Join(sub.Currencies, ", ")+"`")
}

// IntervalHandle answers /interval <default|half|hourly>.
func (t *Telegram) IntervalHandle(m *tb.Message) {
	match := intervalRegexp.FindStringSubmatch(m.Text)
	if match == nil {
		t.reply(m, "Usage: `/interval default|half|hourly`")
		return
	}
	params := extractCommandParams(intervalRegexp, match)
	sub, err := t.subs.SetInterval(context.Background(), destination(m), params["tier"])
	if err != nil {
		t.replyError(m, err)
		return
	}
	t.reply(m, fmt.Sprintf("Updates now post every %d minutes.", sub.IntervalMinutes))
}

// PurgeHandle answers /purge.
func (t *Telegram) PurgeHandle(m *tb.Message) {
	purge, err := t.subs.TogglePurge(context.Background(), destination(m))
	if err != nil {
		t.replyError(m, err)
		return
	}
	if purge {
		t.reply(m, "Purge mode on: previous updates are cleared before each broadcast.")
		return
	}
	t.reply(m, "Purge mode off.")
}

// SettingsHandle answers /subset.
func (t *Telegram) SettingsHandle(m *tb.Message) {
	sub, err := t.subs.Settings(context.Background(), destination(m))
	if err != nil {
		t.replyError(m, err)
		return
	}
	t.reply(m, fmt.Sprintf(
		"Fiat: `%s`\nInterval: `%d minutes`\nPurge: `%t`\nCurrencies: `%d`",
		sub.Fiat, sub.IntervalMinutes, sub.Purge, len(sub.Currencies)))
}

// HelpHandle displays available commands
func (t *Telegram) HelpHandle(m *tb.Message) {
	commands, err := t.client.GetCommands()
	if err != nil {
		t.replyError(m, err)
		return
	}
	lines := make([]string, 0, len(commands))
	for _, command := range commands {
		lines = append(lines, fmt.Sprintf("%s - %s", command.Text, command.Description))
	}
	t.reply(m, strings.Join(lines, "\n"))
}

// Helper methods
// --------------

// reply sends to the chat the command came from.
func (t *Telegram) reply(m *tb.Message, text string) {
	for _, piece := range splitText(text, telegramTextLimit) {
		msg, err := t.client.Send(m.Chat, piece)
		if err != nil {
			t.log.WithError(err).Error("failed to send reply")
			return
		}
		t.remember(m.Chat.ID, msg)
	}
}

// replyError maps domain errors to user-facing text. Unexpected errors
// are logged and answered generically.
func (t *Telegram) replyError(m *tb.Message, err error) {
	var (
		ambiguity *core.AmbiguityError
		currency  *core.CurrencyError
		fiat      *core.FiatError
	)
	switch {
	case errors.As(err, &ambiguity):
		t.reply(m, ambiguity.Error())
	case errors.As(err, &currency):
		t.reply(m, fmt.Sprintf("Currency `%s` not found.", currency.Input))
	case errors.As(err, &fiat):
		t.reply(m, fmt.Sprintf("Fiat `%s` is not supported. See /fiat.", fiat.Code))
	case errors.Is(err, core.ErrBoardNotReady):
		t.reply(m, "Market data is not loaded yet, try again in a moment.")
	case errors.Is(err, core.ErrAlertAlreadyMet):
		t.reply(m, "That condition is already true; alerts fire on future changes.")
	case errors.Is(err, core.ErrAlertCapacity):
		t.reply(m, "Alert limit reached. Remove one with /removealert first.")
	case errors.Is(err, core.ErrInvalidOperator):
		t.reply(m, "Operator must be one of `<`, `<=`, `>`, `>=`.")
	case errors.Is(err, core.ErrAlreadySubscribed):
		t.reply(m, "This chat is already subscribed.")
	case errors.Is(err, core.ErrNotSubscribed):
		t.reply(m, "This chat is not subscribed. Subscribe with /sub.")
	case errors.Is(err, core.ErrSubscriberCapacity):
		t.reply(m, "Subscriber limit reached.")
	case errors.Is(err, core.ErrCurrencyListed):
		t.reply(m, "That currency is already in the broadcast.")
	case errors.Is(err, core.ErrCurrencyNotListed):
		t.reply(m, "That currency is not in the broadcast.")
	case errors.Is(err, core.ErrUnknownInterval):
		t.reply(m, "Interval must be `default`, `half` or `hourly`.")
	default:
		t.log.WithError(err).Error("command failed")
		t.reply(m, "Something went wrong, try again later.")
	}
}

func owner(m *tb.Message) string {
	return strconv.FormatInt(int64(m.Sender.ID), 10)
}

func destination(m *tb.Message) string {
	return strconv.FormatInt(m.Chat.ID, 10)
}

func fiatOrDefault(fiat string) string {
	if fiat == "" {
		return "USD"
	}
	return fiat
}

// splitText cuts text into pieces below limit characters, preferring line
// boundaries.
func splitText(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var pieces []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			// No newline to cut at: back off to a rune boundary so a
			// multi-byte character is never split across pieces.
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		pieces = append(pieces, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}

// extractCommandParams extracts named groups from regex matches.
func extractCommandParams(regex *regexp.Regexp, match []string) map[string]string {
	command := make(map[string]string)
	for i, name := range regex.SubexpNames() {
		if i != 0 && name != "" {
			command[name] = match[i]
		}
	}
	return command
}
