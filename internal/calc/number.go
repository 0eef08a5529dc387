// Package calc holds the invoice arithmetic: line amounts, header discount,
// tax aggregation and the draft reducer used while an invoice is authored.
// Nothing in here performs I/O or keeps state between calls.
package calc

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseOrZero parses user input, returning zero for empty or malformed text.
func ParseOrZero(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseNonNegative is ParseOrZero restricted to the non-negative domain.
func ParseNonNegative(raw string) decimal.Decimal {
	d := ParseOrZero(raw)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Loose is a numeric field as typed by a user. It decodes from a JSON number,
// a JSON string or null and never fails on content.
type Loose string

// UnmarshalJSON accepts numbers, strings and null.
func (l *Loose) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*l = ""
			return nil
		}
		*l = Loose(s)
		return nil
	}
	*l = Loose(data)
	return nil
}

// Decimal returns the parsed non-negative value.
func (l Loose) Decimal() decimal.Decimal {
	return ParseNonNegative(string(l))
}
