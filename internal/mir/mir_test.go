package mir

import "testing"

// TestLvalueWrapperChainDoesNotAlias exercises the copy-on-append pattern in
// Field/Deref/Index/Downcast: extending the same base place down two
// different chains must not let one chain's wrapper slice mutate the
// other's, since both chains are typically built from one shared base
// place (e.g. a struct field access and a tuple field access off the same
// local).
func TestLvalueWrapperChainDoesNotAlias(t *testing.T) {
	base := Local(1)
	a := base.Field(0)
	b := base.Field(1)

	if len(a.Wrappers) != 1 || a.Wrappers[0].FieldIndex != 0 {
		t.Fatalf("expected a to carry field 0, got %+v", a.Wrappers)
	}
	if len(b.Wrappers) != 1 || b.Wrappers[0].FieldIndex != 1 {
		t.Fatalf("expected b to carry field 1, got %+v", b.Wrappers)
	}
	if len(base.Wrappers) != 0 {
		t.Fatalf("expected base to remain unwrapped, got %+v", base.Wrappers)
	}
}

// TestLvalueWrapperChainComposes exercises a multi-level place expression
// (*(x.0))[i], as const-eval's place resolver must walk it left to right.
func TestLvalueWrapperChainComposes(t *testing.T) {
	idx := ConstOperand(ConstantValue{Kind: ConstUint, Bits: 64, U: 3})
	place := Local(0).Field(0).Deref().Index(idx)

	if len(place.Wrappers) != 3 {
		t.Fatalf("expected 3 chained wrappers, got %d", len(place.Wrappers))
	}
	if place.Wrappers[0].Kind != WrapField || place.Wrappers[0].FieldIndex != 0 {
		t.Fatalf("expected first wrapper to be field 0, got %+v", place.Wrappers[0])
	}
	if place.Wrappers[1].Kind != WrapDeref {
		t.Fatalf("expected second wrapper to be a deref, got %+v", place.Wrappers[1])
	}
	if place.Wrappers[2].Kind != WrapIndex {
		t.Fatalf("expected third wrapper to be an index, got %+v", place.Wrappers[2])
	}
}

func TestRootConstructorsSetDiscriminant(t *testing.T) {
	if Return().Root != RootReturn {
		t.Fatal("expected Return() to set RootReturn")
	}
	if Argument(2).Root != RootArgument || Argument(2).LocalSlot != 2 {
		t.Fatal("expected Argument(2) to set RootArgument with slot 2")
	}
}

func TestCopyAndMoveOperandsCarryPlace(t *testing.T) {
	l := Local(5)
	if Copy(l).Kind != OperandCopy {
		t.Fatal("expected Copy to produce OperandCopy")
	}
	if Move(l).Kind != OperandMove {
		t.Fatal("expected Move to produce OperandMove")
	}
	if Copy(l).Place.LocalSlot != 5 {
		t.Fatalf("expected Copy operand to retain local slot 5, got %d", Copy(l).Place.LocalSlot)
	}
}
