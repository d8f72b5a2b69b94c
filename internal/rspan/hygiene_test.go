package rspan

import "testing"

func TestHygieneVisibleToSameContext(t *testing.T) {
	h := Root(1)
	if !h.VisibleTo(h) {
		t.Fatalf("an identifier must be visible to a lookup in its own context")
	}
}

func TestHygieneVisibleWithinNestedExpansion(t *testing.T) {
	outer := Root(1)
	introduced := outer.PushContext(10) // introduced by expanding macro context 10
	lookupNested := introduced.PushContext(20)

	if !introduced.VisibleTo(lookupNested) {
		t.Fatalf("identifier introduced in an outer macro context should be visible to a nested lookup")
	}
	if lookupNested.VisibleTo(introduced) {
		t.Fatalf("identifier introduced in a nested context must not leak out to the outer lookup")
	}
}

func TestHygieneSiblingExpansionsAreIsolated(t *testing.T) {
	root := Root(1)
	a := root.PushContext(1)
	b := root.PushContext(2)
	if a.VisibleTo(b) || b.VisibleTo(a) {
		t.Fatalf("identifiers from sibling macro expansions must not be mutually visible")
	}
}

func TestHygieneDifferentFilesNotVisibleEvenAtRoot(t *testing.T) {
	h := Root(1)
	at := Hygiene{FileNum: 2}
	if h.VisibleTo(at) {
		t.Fatalf("different file_num with no contexts should still fail visibility for mismatched files")
	}
}
