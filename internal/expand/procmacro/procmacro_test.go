package procmacro

import (
	"bytes"
	"math"
	"testing"

	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

func roundTrip(t *testing.T, tok rast.Token) rast.Token {
	t.Helper()
	raw, err := encodeToken(tok)
	if err != nil {
		t.Fatalf("encodeToken: %v", err)
	}
	_, got, err := decodeToken(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decodeToken: %v", err)
	}
	return got
}

func TestTokenRoundTripIdent(t *testing.T) {
	got := roundTrip(t, rast.Token{Class: rast.TokIdent, Text: "hello"})
	if got.Class != rast.TokIdent || got.Text != "hello" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestTokenRoundTripUInt(t *testing.T) {
	got := roundTrip(t, rast.Token{Class: rast.TokUInt, BitSize: 32, IntValue: 42})
	if got.Class != rast.TokUInt || got.BitSize != 32 || got.IntValue != 42 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestTokenRoundTripFloat(t *testing.T) {
	got := roundTrip(t, rast.Token{Class: rast.TokFloat, BitSize: 64, FloatValue: 3.5})
	if got.Class != rast.TokFloat || got.FloatValue != 3.5 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestEmptySymbolIsTerminator(t *testing.T) {
	raw := encodeEmptySymbol()
	_, got, err := decodeToken(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decodeToken: %v", err)
	}
	if !got.IsEmptySymbol() {
		t.Fatalf("expected decoded empty symbol to report IsEmptySymbol, got %+v", got)
	}
}

func TestTokenRoundTripSIntNegative(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 42, -42, math.MinInt64, math.MaxInt64} {
		got := roundTrip(t, rast.Token{Class: rast.TokSInt, BitSize: 64, IntValue: uint64(v)})
		if got.Class != rast.TokSInt || int64(got.IntValue) != v {
			t.Fatalf("round trip mismatch for %d: %+v", v, got)
		}
	}
}

func TestVarint128RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 40} {
		b := putVarint128(v)
		got, err := readVarint128(bytes.NewReader(b))
		if err != nil {
			t.Fatalf("readVarint128(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("varint round trip: want %d got %d", v, got)
		}
	}
}
