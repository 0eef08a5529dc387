package render

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// symbols maps ISO codes to their display symbol. Codes missing here print as
// the code itself.
var symbols = map[string]string{
	"USD": "$",
	"CAD": "CA$",
	"AUD": "A$",
	"NZD": "NZ$",
	"SGD": "S$",
	"HKD": "HK$",
	"MXN": "MX$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "CN¥",
	"INR": "₹",
	"NGN": "₦",
	"KRW": "₩",
	"PHP": "₱",
	"VND": "₫",
	"ILS": "₪",
	"UAH": "₴",
	"TRY": "₺",
	"RUB": "₽",
	"THB": "฿",
	"KES": "KSh",
	"ZAR": "R",
	"BRL": "R$",
	"CHF": "CHF",
}

// FontSafeOverrides replaces symbols the core PDF fonts cannot draw. Keyed by
// currency code.
var FontSafeOverrides = map[string]string{
	"INR": "Rs.",
	"NGN": "NGN",
	"KRW": "KRW",
	"PHP": "PHP",
	"VND": "VND",
	"ILS": "ILS",
	"UAH": "UAH",
	"TRY": "TRY",
	"RUB": "RUB",
	"THB": "THB",
}

var printer = message.NewPrinter(language.English)

// NormalizeCurrency validates an ISO 4217 code and returns it upper-cased.
func NormalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("unknown currency %q: %w", code, err)
	}
	return unit.String(), nil
}

// Symbol returns the display symbol for code.
func Symbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if s, ok := symbols[code]; ok {
		return s
	}
	return code
}

// FontSafeSymbol is Symbol with FontSafeOverrides applied.
func FontSafeSymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if s, ok := FontSafeOverrides[code]; ok {
		return s
	}
	return Symbol(code)
}

// MoneyFormatter formats an amount in a currency.
type MoneyFormatter func(amount decimal.Decimal, code string) string

// FormatMoney prints amount with grouping, two decimals and the currency symbol.
func FormatMoney(amount decimal.Decimal, code string) string {
	return formatWith(amount, Symbol(code))
}

// FormatMoneyFontSafe is FormatMoney for output drawn with the core PDF fonts.
func FormatMoneyFontSafe(amount decimal.Decimal, code string) string {
	return formatWith(amount, FontSafeSymbol(code))
}

// FormatNumber prints a plain grouped number with up to four decimals, used
// for quantities and rates.
func FormatNumber(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + grouped(d.Round(4).String())
}

// grouped adds thousands separators to the integer part of a plain decimal
// string. The digits are never converted to float.
func grouped(s string) string {
	whole, frac, _ := strings.Cut(s, ".")
	var n big.Int
	if _, ok := n.SetString(whole, 10); ok && n.IsInt64() {
		whole = printer.Sprint(number.Decimal(n.Int64()))
	}
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

func formatWith(amount decimal.Decimal, symbol string) string {
	amount = amount.Round(2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	digits := grouped(amount.StringFixed(2))
	if symbol == "" {
		return sign + digits
	}
	runes := []rune(symbol)
	if unicode.IsLetter(runes[len(runes)-1]) {
		return sign + symbol + " " + digits
	}
	return sign + symbol + digits
}
