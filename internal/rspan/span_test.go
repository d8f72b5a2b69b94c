package rspan

import "testing"

func TestBacktraceWalksParentChain(t *testing.T) {
	root := NewSourceSpan(nil, "lib.rs", Pos{Line: 1, Col: 1}, Pos{Line: 1, Col: 10})
	macroSite := NewMacroSpan(root, "mycrate", "my_macro")
	expanded := NewSourceSpan(macroSite, "<my_macro expansion>", Pos{Line: 1}, Pos{Line: 1})

	trace := expanded.Backtrace()
	if len(trace) != 3 {
		t.Fatalf("expected 3 frames in backtrace, got %d: %v", len(trace), trace)
	}
}

func TestSpanIdentityNotSemantic(t *testing.T) {
	a := NewSourceSpan(nil, "lib.rs", Pos{Line: 1, Col: 1}, Pos{Line: 1, Col: 2})
	b := NewSourceSpan(nil, "lib.rs", Pos{Line: 1, Col: 1}, Pos{Line: 1, Col: 2})
	if a.Identity() == b.Identity() {
		t.Fatalf("two distinct Span constructions over the same range must not share identity")
	}
	if a.Identity() != a.Identity() {
		t.Fatalf("a span's identity must be stable")
	}
}

func TestNilSpanIsNoSpan(t *testing.T) {
	var s *Span
	if s.String() != "<no span>" {
		t.Fatalf("nil span should render as <no span>, got %q", s.String())
	}
	if s.Backtrace() != nil {
		t.Fatalf("nil span should have empty backtrace")
	}
}
