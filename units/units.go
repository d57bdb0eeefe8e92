// Package units converts between human-readable decimal token amounts and the
// integer base-unit representation used on-chain. VLR carries 18 fractional
// decimal digits, matching the token contract's declared precision.
package units

import (
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the fixed token precision. The token's decimals() call is never
// consulted at runtime.
const Decimals = 18

var scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// Parse converts a decimal string such as "12.5" into base units. The input
// may carry at most Decimals fractional digits and must be non-negative.
func Parse(amount string) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is required")
	}
	if strings.HasPrefix(trimmed, "-") {
		return nil, fmt.Errorf("amount must not be negative")
	}
	if strings.HasPrefix(trimmed, "+") {
		trimmed = trimmed[1:]
	}
	whole := trimmed
	frac := ""
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		whole = trimmed[:idx]
		frac = trimmed[idx+1:]
		if strings.IndexByte(frac, '.') >= 0 {
			return nil, fmt.Errorf("invalid amount %q", amount)
		}
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if len(frac) > Decimals {
		return nil, fmt.Errorf("amount %q exceeds %d fractional digits", amount, Decimals)
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	padded := frac + strings.Repeat("0", Decimals-len(frac))
	value, ok := new(big.Int).SetString(whole+padded, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	return value, nil
}

// ParsePositive is Parse with a strictly-positive requirement, used by the
// mutating contract wrappers where a zero amount is always a caller mistake.
func ParsePositive(amount string) (*big.Int, error) {
	value, err := Parse(amount)
	if err != nil {
		return nil, err
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}

// Format renders base units as a canonical decimal string with trailing
// fractional zeros removed.
func Format(value *big.Int) string {
	if value == nil {
		return "0"
	}
	neg := value.Sign() < 0
	abs := new(big.Int).Abs(value)
	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(abs, scale, frac)
	out := whole.String()
	if frac.Sign() > 0 {
		digits := fmt.Sprintf("%0*s", Decimals, frac.String())
		digits = strings.TrimRight(digits, "0")
		out += "." + digits
	}
	if neg {
		out = "-" + out
	}
	return out
}

// FormatFixed renders base units with exactly places fractional digits,
// truncating beyond them. Notifications use four places.
func FormatFixed(value *big.Int, places int) string {
	if places <= 0 {
		places = 4
	}
	if places > Decimals {
		places = Decimals
	}
	if value == nil {
		return "0." + strings.Repeat("0", places)
	}
	neg := value.Sign() < 0
	abs := new(big.Int).Abs(value)
	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(abs, scale, frac)
	digits := fmt.Sprintf("%0*s", Decimals, frac.String())
	out := whole.String() + "." + digits[:places]
	if neg {
		out = "-" + out
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
