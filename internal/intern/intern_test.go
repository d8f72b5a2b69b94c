package intern

import "testing"

func TestInternPointerEquality(t *testing.T) {
	in := New()
	a := in.Intern("foo")
	b := in.Intern("foo")
	if !a.Equal(b) {
		t.Fatalf("interning the same text twice should yield equal symbols")
	}
	c := in.Intern("bar")
	if a.Equal(c) {
		t.Fatalf("interning distinct text should yield distinct symbols")
	}
}

func TestInternNFCNormalization(t *testing.T) {
	in := New()
	// "é" as a single codepoint (U+00E9) vs "e" + combining acute (U+0065 U+0301).
	a := in.Intern("é")
	b := in.Intern("é")
	if !a.Equal(b) {
		t.Fatalf("canonically-equivalent spellings should intern to the same symbol")
	}
	if a.String() != b.String() {
		t.Fatalf("normalized text should be identical")
	}
}

func TestReleaseDropsUnreferencedEntry(t *testing.T) {
	in := New()
	s := in.Intern("transient")
	if in.Len() != 1 {
		t.Fatalf("expected one interned entry")
	}
	in.Release(s)
	if in.Len() != 0 {
		t.Fatalf("expected entry to be dropped after last release, got %d entries", in.Len())
	}
}

func TestZeroSymbolInvalid(t *testing.T) {
	var s Symbol
	if s.Valid() {
		t.Fatalf("zero Symbol should be invalid")
	}
	if s.String() != "" {
		t.Fatalf("zero Symbol should stringify to empty string")
	}
}
