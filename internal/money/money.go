// Package money normalizes locale-formatted monetary and quantity input.
// Users type amounts with either a comma or a dot as the decimal
// separator ("12,50" and "12.50" are the same price), so every numeric
// field that crosses the API boundary goes through this package before it
// touches the domain, where money is always int64 cents.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseDecimal converts a user-entered number into a float64. The comma
// decimal separator is accepted as an alias for the dot. Empty or
// non-numeric input is an error, never zero: a blank price field must
// not silently become "free".
func ParseDecimal(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("money: empty value")
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid number %q", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("money: invalid number %q", raw)
	}
	return v, nil
}

// ParseCents parses a monetary amount into integer cents, rounding to
// the nearest cent. Negative amounts are rejected.
func ParseCents(raw string) (int64, error) {
	v, err := ParseDecimal(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("money: negative amount %q", raw)
	}
	return int64(math.Round(v * 100)), nil
}

// ParseOptionalCents is ParseCents that treats blank input as absent.
func ParseOptionalCents(raw string) (*int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	c, err := ParseCents(raw)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ParseQuantity parses a unit count. "7,0" and "7" both mean seven
// units, but a fractional quantity is an error: stock is counted in
// whole units and "2,5" is more likely a slipped price than half a
// product.
func ParseQuantity(raw string) (int, error) {
	v, err := ParseDecimal(raw)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("money: quantity must be a whole number, got %q", raw)
	}
	q := int(v)
	if q <= 0 {
		return 0, fmt.Errorf("money: quantity must be positive, got %q", raw)
	}
	return q, nil
}

// ParsePercent parses a percentage figure such as "17,5". Negative
// percentages are rejected.
func ParsePercent(raw string) (float64, error) {
	v, err := ParseDecimal(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("money: negative percentage %q", raw)
	}
	return v, nil
}

// CentsFromFloat rounds a currency amount expressed in whole units to
// integer cents.
func CentsFromFloat(v float64) int64 {
	return int64(math.Round(v * 100))
}

// FormatCents renders cents as a dot-decimal string ("1250" -> "12.50")
// for logs and plain-text exports.
func FormatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
