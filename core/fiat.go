package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// fiatSymbols lists the supported fiat currencies and their display
// symbols.
var fiatSymbols = map[string]string{
	"AUD": "$", "BRL": "R$", "CAD": "$", "CHF": "Fr.",
	"CLP": "$", "CNY": "¥", "CZK": "Kc", "DKK": "kr",
	"EUR": "€", "GBP": "£", "HKD": "HK$", "HUF": "Ft",
	"IDR": "Rp ", "ILS": "₪", "INR": "₹", "JPY": "¥",
	"KRW": "₩", "MXN": "$", "MYR": "RM", "NOK": "kr",
	"NZD": "$", "PHP": "₱", "PKR": "Rupees", "PLN": "zł",
	"RUB": "₽", "SEK": "kr", "SGD": "S$", "THB": "฿",
	"TRY": "₺", "TWD": "NT$", "ZAR": "R ", "USD": "$",
}

// fiatSuffix holds the fiats whose symbol follows the amount.
var fiatSuffix = map[string]bool{
	"CZK": true, "DKK": true, "HUF": true,
	"NOK": true, "PKR": true, "RUB": true,
	"SEK": true,
}

const (
	trendUp   = "🔺"
	trendDown = "🔻"
)

var printer = message.NewPrinter(language.English)

// FiatCheck normalizes a fiat code to upper case and validates it against
// the supported set. Unsupported codes yield a *FiatError.
func FiatCheck(fiat string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(fiat))
	if _, ok := fiatSymbols[code]; !ok {
		return "", &FiatError{Code: fiat}
	}
	return code, nil
}

// SupportedFiats returns the supported fiat codes in alphabetical order.
func SupportedFiats() []string {
	codes := make([]string, 0, len(fiatSymbols))
	for code := range fiatSymbols {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// FormatPrice converts an USD amount to the given fiat and renders it for
// display. With withSymbol the fiat symbol is prefixed (or suffixed for
// the suffix fiats); without, a plain number is returned. Trailing zeroes
// and a dangling decimal point are stripped.
func FormatPrice(amountUSD float64, fiat string, rates RateTable, withSymbol bool) (string, error) {
	code, err := FiatCheck(fiat)
	if err != nil {
		return "", err
	}
	amount, err := rates.Convert(amountUSD, code)
	if err != nil {
		return "", err
	}
	if !withSymbol {
		return stripTrailingZeros(strconv.FormatFloat(amount, 'f', 6, 64)), nil
	}
	return fiatAmount(amount, code), nil
}

// FormatFiatAmount renders an amount already denominated in the given
// fiat, with its symbol. No conversion is applied.
func FormatFiatAmount(amount float64, fiat string) (string, error) {
	code, err := FiatCheck(fiat)
	if err != nil {
		return "", err
	}
	return fiatAmount(amount, code), nil
}

// fiatAmount renders a grouped six-decimal amount with its fiat symbol.
func fiatAmount(amount float64, code string) string {
	value := stripTrailingZeros(groupedFixed(amount, 6))
	if fiatSuffix[code] {
		return fmt.Sprintf("%s %s", value, fiatSymbols[code])
	}
	return fiatSymbols[code] + value
}

// fiatWholeAmount renders a grouped whole-number amount with its fiat
// symbol. Used for large aggregates such as market caps.
func fiatWholeAmount(amount float64, code string) string {
	value := printer.Sprintf("%d", int64(amount))
	if fiatSuffix[code] {
		return fmt.Sprintf("%s %s", value, fiatSymbols[code])
	}
	return fiatSymbols[code] + value
}

// FormatRecord renders one currency record for display under the given
// fiat. The boolean result reflects the sign of the 24h change and drives
// caller-side color coding. Missing market cap or circulating supply
// render as "Unknown".
func FormatRecord(rec CurrencyRecord, fiat string, rates RateTable) (string, bool, error) {
	code, err := FiatCheck(fiat)
	if err != nil {
		return "", false, err
	}
	price, err := rates.Convert(rec.PriceUSD, code)
	if err != nil {
		return "", false, err
	}

	positive := true
	trend := ""
	if rec.PercentChange24H != nil {
		if *rec.PercentChange24H >= 0 {
			trend = " " + trendUp
		} else {
			trend = " " + trendDown
			positive = false
		}
	}

	marketCap := "Unknown"
	if rec.MarketCapUSD != nil {
		converted, err := rates.Convert(*rec.MarketCapUSD, code)
		if err != nil {
			return "", false, err
		}
		marketCap = fiatWholeAmount(converted, code)
	}
	supply := "Unknown"
	if rec.CirculatingSupply != nil {
		supply = printer.Sprintf("%d", int64(*rec.CirculatingSupply))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*#%d. %s (%s)*%s\n", rec.Rank, rec.Name, rec.Symbol, trend)
	fmt.Fprintf(&sb, "Price (%s): `%s`\n", code, fiatAmount(price, code))
	fmt.Fprintf(&sb, "Market Cap (%s): `%s`\n", code, marketCap)
	fmt.Fprintf(&sb, "Circulating Supply: `%s`\n", supply)
	fmt.Fprintf(&sb, "Change (1H): `%s`\n", formatPercent(rec.PercentChange1H))
	fmt.Fprintf(&sb, "Change (24H): `%s`\n", formatPercent(rec.PercentChange24H))
	fmt.Fprintf(&sb, "Change (7D): `%s`\n", formatPercent(rec.PercentChange7D))
	return sb.String(), positive, nil
}

// FormatStats renders the aggregate market stats under the given fiat.
func FormatStats(stats MarketStats, fiat string, rates RateTable) (string, error) {
	code, err := FiatCheck(fiat)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if stats.TotalMarketCapUSD == nil {
		fmt.Fprintf(&sb, "Total Market Cap (%s): Unknown\n", code)
	} else {
		converted, err := rates.Convert(*stats.TotalMarketCapUSD, code)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "Total Market Cap (%s): `%s`\n", code, fiatWholeAmount(converted, code))
	}
	if stats.TotalVolume24HUSD == nil {
		fmt.Fprintf(&sb, "Total Volume 24H (%s): Unknown\n", code)
	} else {
		converted, err := rates.Convert(*stats.TotalVolume24HUSD, code)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "Total Volume 24H (%s): `%s`\n", code, fiatWholeAmount(converted, code))
	}
	fmt.Fprintf(&sb, "Bitcoin Dominance: `%s%%`\n", strconv.FormatFloat(stats.BTCDominance, 'f', -1, 64))
	fmt.Fprintf(&sb, "Ethereum Dominance: `%s%%`\n", strconv.FormatFloat(stats.ETHDominance, 'f', -1, 64))
	fmt.Fprintf(&sb, "Active Exchanges: `%s`\n", printer.Sprintf("%d", stats.ActiveExchanges))
	fmt.Fprintf(&sb, "Active Currencies: `%s`\n", printer.Sprintf("%d", stats.ActiveCurrencies))
	return sb.String(), nil
}

// PackChunks packs rendered messages greedily into chunks below limit
// characters so every chunk is independently postable.
func PackChunks(messages []string, limit int) []string {
	var chunks []string
	var current strings.Builder
	for _, msg := range messages {
		if current.Len() > 0 && current.Len()+len(msg) >= limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(msg)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func formatPercent(v *float64) string {
	if v == nil {
		return "Unknown"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "%"
}

func groupedFixed(v float64, decimals int) string {
	return printer.Sprintf("%v", number.Decimal(v,
		number.MinFractionDigits(decimals),
		number.MaxFractionDigits(decimals)))
}

func stripTrailingZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
