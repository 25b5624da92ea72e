package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"launchpad/internal/currency"
)

// DefaultMaxFractionDigits is the display precision used by Format.
const DefaultMaxFractionDigits = 6

// ErrInvalidAmount is returned for malformed or over-precise decimal input.
var ErrInvalidAmount = errors.New("invalid amount")

// Parse converts a human decimal string into base units. Both "," and "."
// are accepted as the decimal separator. Input carrying more fractional
// digits than decimals is rejected, never truncated.
func Parse(input string, decimals uint8) (*big.Int, error) {
	normalized := strings.ReplaceAll(input, ",", ".")
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidAmount)
	}
	for _, r := range normalized {
		if (r < '0' || r > '9') && r != '.' {
			return nil, fmt.Errorf("%w: unexpected character %q", ErrInvalidAmount, r)
		}
	}

	parts := strings.Split(normalized, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("%w: multiple decimal separators", ErrInvalidAmount)
	}
	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: no digits", ErrInvalidAmount)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %d fractional digits exceeds %d decimals", ErrInvalidAmount, len(frac), decimals)
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, input)
	}
	return value, nil
}

// Format renders value with at most DefaultMaxFractionDigits fractional digits.
func Format(value *big.Int, decimals uint8) string {
	return FormatTruncated(value, decimals, DefaultMaxFractionDigits)
}

// FormatFull renders value at full precision with trailing zeros removed.
func FormatFull(value *big.Int, decimals uint8) string {
	return FormatTruncated(value, decimals, int(decimals))
}

// FormatTruncated renders value cutting the fraction to maxFractionDigits.
// Digits past the cut are dropped, so 1.9999995 shows as 1.999999.
func FormatTruncated(value *big.Int, decimals uint8, maxFractionDigits int) string {
	if value == nil {
		return "0"
	}
	if maxFractionDigits < 0 {
		maxFractionDigits = 0
	}

	abs := new(big.Int).Abs(value)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, rem := new(big.Int).QuoRem(abs, scale, new(big.Int))

	prefix := ""
	if value.Sign() < 0 {
		prefix = "-"
	}

	if decimals == 0 {
		return prefix + whole.String()
	}

	frac := rem.String()
	frac = strings.Repeat("0", int(decimals)-len(frac)) + frac
	if len(frac) > maxFractionDigits {
		frac = frac[:maxFractionDigits]
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		if whole.Sign() == 0 {
			return "0"
		}
		return prefix + whole.String()
	}
	return prefix + whole.String() + "." + frac
}

// ParseForCurrency parses input using the registry's decimals for code.
func ParseForCurrency(input string, code currency.Code) (*big.Int, error) {
	meta, err := currency.Lookup(code)
	if err != nil {
		return nil, err
	}
	return Parse(input, meta.Decimals)
}

// FormatForCurrency formats value with the currency symbol appended.
func FormatForCurrency(value *big.Int, code currency.Code) (string, error) {
	meta, err := currency.Lookup(code)
	if err != nil {
		return "", err
	}
	return Format(value, meta.Decimals) + " " + meta.Symbol, nil
}
