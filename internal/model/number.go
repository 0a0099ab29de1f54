package model

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ParseNumber coerces a JSON number or numeric string to float64.
// Null, booleans, objects and non-numeric strings report false.
func ParseNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		text = s
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// firstNumber returns the first key in fields that coerces to a number.
func firstNumber(fields map[string]json.RawMessage, keys ...string) (float64, bool) {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if v, ok := ParseNumber(raw); ok {
			return v, true
		}
	}
	return 0, false
}

// TickFromFields extracts a trade from a decoded feed frame.
// Amount is read from "size" then "amount", price from "price" then "last_price".
func TickFromFields(fields map[string]json.RawMessage) (Tick, bool) {
	amount, ok := firstNumber(fields, "size", "amount")
	if !ok {
		return Tick{}, false
	}
	price, ok := firstNumber(fields, "price", "last_price")
	if !ok {
		return Tick{}, false
	}
	return Tick{Amount: amount, Price: price}, true
}
