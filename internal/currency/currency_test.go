package currency

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	zil, err := Lookup(ZIL)
	if err != nil {
		t.Fatalf("lookup zil: %v", err)
	}
	if zil.Decimals != 18 || zil.Symbol != "ZIL" {
		t.Fatalf("zil meta mismatch: %+v", zil)
	}

	usdc, err := Lookup(USDC)
	if err != nil {
		t.Fatalf("lookup usdc: %v", err)
	}
	if usdc.Decimals != 6 {
		t.Fatalf("usdc decimals mismatch: %d", usdc.Decimals)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup(Code("DOGE"))
	if !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
}

func TestParseCode(t *testing.T) {
	code, err := ParseCode(" usdc ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if code != USDC {
		t.Fatalf("code mismatch: %s", code)
	}
	if _, err := ParseCode("eth"); !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected unknown currency for eth")
	}
}

func TestOnChainRoundTrip(t *testing.T) {
	for _, meta := range All() {
		value, err := meta.Code.OnChain()
		if err != nil {
			t.Fatalf("on chain %s: %v", meta.Code, err)
		}
		back, err := FromOnChain(value)
		if err != nil {
			t.Fatalf("from on chain %d: %v", value, err)
		}
		if back != meta.Code {
			t.Fatalf("round trip mismatch: %s != %s", back, meta.Code)
		}
	}
	if _, err := FromOnChain(7); err == nil {
		t.Fatalf("expected error for unknown enum")
	}
}
