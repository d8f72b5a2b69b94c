package langitem

import (
	"testing"

	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

func TestBindAcceptsMatchingKind(t *testing.T) {
	r := NewRegistry(Edition1_54)
	tr := &rast.TraitItem{}
	path := rast.AbsolutePath{Crate: "core", Nodes: []string{"marker", "Sized"}}

	if err := r.Bind("sized", tr, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := r.Lookup("sized")
	if !ok || !got.Equal(path) {
		t.Fatalf("expected sized bound to %v, got %v ok=%v", path, got, ok)
	}
}

func TestBindRejectsKindMismatch(t *testing.T) {
	r := NewRegistry(Edition1_54)
	fn := &rast.FunctionItem{}
	path := rast.AbsolutePath{Crate: "core", Nodes: []string{"marker", "Sized"}}

	if err := r.Bind("sized", fn, path); err == nil {
		t.Fatalf("expected a kind-mismatch error for a function tagged #[lang=\"sized\"]")
	}
}

func TestBindDeduplicatesSamePath(t *testing.T) {
	r := NewRegistry(Edition1_54)
	tr := &rast.TraitItem{}
	path := rast.AbsolutePath{Crate: "core", Nodes: []string{"marker", "Sized"}}

	if err := r.Bind("sized", tr, path); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if err := r.Bind("sized", tr, path); err != nil {
		t.Fatalf("expected duplicate binding to the same path to be silently accepted: %v", err)
	}
}

func TestBindRejectsConflictingPath(t *testing.T) {
	r := NewRegistry(Edition1_54)
	tr := &rast.TraitItem{}
	a := rast.AbsolutePath{Crate: "core", Nodes: []string{"marker", "Sized"}}
	b := rast.AbsolutePath{Crate: "core", Nodes: []string{"marker", "SizedAlt"}}

	if err := r.Bind("sized", tr, a); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if err := r.Bind("sized", tr, b); err == nil {
		t.Fatalf("expected conflicting rebind to a different path to error")
	}
}

func TestBindRejectsEditionTooLow(t *testing.T) {
	r := NewRegistry(Edition2015)
	tr := &rast.TraitItem{}
	path := rast.AbsolutePath{Crate: "core", Nodes: []string{"ops", "Generator"}}

	if err := r.Bind("generator", tr, path); err == nil {
		t.Fatalf("expected edition-gated lang item to be rejected under Edition2015")
	}
}

func TestPseudoLangItemFor(t *testing.T) {
	if name, ok := PseudoLangItemFor("panic_handler"); !ok || name != "panic_impl" {
		t.Fatalf("expected panic_handler -> panic_impl, got %q ok=%v", name, ok)
	}
	if _, ok := PseudoLangItemFor("not_a_real_attr"); ok {
		t.Fatalf("expected unrecognized attribute to report ok=false")
	}
}
