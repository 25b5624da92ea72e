package currency

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCurrency is returned for codes outside the static table.
var ErrUnknownCurrency = errors.New("unknown currency")

// Code identifies a raise/settlement currency.
type Code string

const (
	ZIL  Code = "ZIL"
	USDC Code = "USDC"
)

// Meta describes how a currency is displayed and scaled.
type Meta struct {
	Code     Code   `json:"code"`
	Label    string `json:"label"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

var table = []Meta{
	{Code: ZIL, Label: "Zilliqa", Symbol: "ZIL", Decimals: 18},
	{Code: USDC, Label: "USD Coin", Symbol: "USDC", Decimals: 6},
}

// Lookup returns the metadata for code.
func Lookup(code Code) (Meta, error) {
	for _, meta := range table {
		if meta.Code == code {
			return meta, nil
		}
	}
	return Meta{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, string(code))
}

// ParseCode normalizes user input ("usdc", " Zil ") into a known Code.
func ParseCode(input string) (Code, error) {
	code := Code(strings.ToUpper(strings.TrimSpace(input)))
	if _, err := Lookup(code); err != nil {
		return "", err
	}
	return code, nil
}

// All returns the registry in table order.
func All() []Meta {
	out := make([]Meta, len(table))
	copy(out, table)
	return out
}

// OnChain maps the code to the fair-launch contract's currency enum.
func (c Code) OnChain() (uint8, error) {
	switch c {
	case ZIL:
		return 0, nil
	case USDC:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurrency, string(c))
	}
}

// FromOnChain is the inverse of OnChain.
func FromOnChain(value uint8) (Code, error) {
	switch value {
	case 0:
		return ZIL, nil
	case 1:
		return USDC, nil
	default:
		return "", fmt.Errorf("%w: enum %d", ErrUnknownCurrency, value)
	}
}
