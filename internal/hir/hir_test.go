package hir

import (
	"testing"

	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

func absPath(crate string, nodes ...string) rast.AbsolutePath {
	return rast.AbsolutePath{Crate: crate, Nodes: nodes}
}

// TestExpandAliasesResolvesChainedAliases exercises property P2: after
// ExpandAliases, no struct field's TypeRef::Path points at a TypeAlias
// item. A chain of two aliases (Meters -> Distance -> u32) must collapse
// all the way to the primitive.
func TestExpandAliasesResolvesChainedAliases(t *testing.T) {
	metersPath := rast.NewAbsolutePathRef(nil, "test", []rast.PathNode{{Name: "Meters"}})
	field := rast.StructItem{
		ItemCommon: rast.ItemCommon{Name: "Distance"},
		Fields:     []rast.StructField{{Name: "0", Type: rast.PathType(metersPath)}},
	}
	aliases := map[string]rast.TypeRef{
		"test::Meters":   rast.PathType(rast.NewAbsolutePathRef(nil, "test", []rast.PathNode{{Name: "Distance"}})),
		"test::Distance": rast.Prim(rast.PrimU32),
	}
	structs := map[string]*rast.StructItem{"test::S": &field}

	c := NewCrate(nil, aliases, structs, map[string]*rast.EnumItem{}, map[string]*rast.TraitItem{})
	if err := c.ExpandAliases(); err != nil {
		t.Fatalf("ExpandAliases: %v", err)
	}
	got := field.Fields[0].Type
	if got.Kind != rast.TPrimitive || got.Prim != rast.PrimU32 {
		t.Fatalf("expected field type to collapse to u32, got %+v", got)
	}
}

// TestExpandAliasesBoundsRecursion exercises the MaxRecursiveTypeExpansions
// guard against a self-referential alias cycle.
func TestExpandAliasesBoundsRecursion(t *testing.T) {
	selfPath := rast.NewAbsolutePathRef(nil, "test", []rast.PathNode{{Name: "Loop"}})
	s := rast.StructItem{
		ItemCommon: rast.ItemCommon{Name: "S"},
		Fields:     []rast.StructField{{Name: "0", Type: rast.PathType(selfPath)}},
	}
	aliases := map[string]rast.TypeRef{
		"test::Loop": rast.PathType(rast.NewAbsolutePathRef(nil, "test", []rast.PathNode{{Name: "Loop"}})),
	}
	c := NewCrate(nil, aliases, map[string]*rast.StructItem{"test::S": &s}, map[string]*rast.EnumItem{}, map[string]*rast.TraitItem{})
	if err := c.ExpandAliases(); err == nil {
		t.Fatal("expected a self-referential alias chain to exceed the recursion bound")
	}
}

// TestElideFunctionLifetimesSingleInput exercises the reference-compiler
// elision rule: with exactly one eligible input lifetime and no &self, the
// elided output takes that sole input lifetime.
func TestElideFunctionLifetimesSingleInput(t *testing.T) {
	fn := &rast.FunctionItem{
		Params: []rast.Param{
			{Name: "x", Type: rast.Borrow("", false, rast.Prim(rast.PrimU8))},
		},
		ReturnType: rast.Borrow("", false, rast.Prim(rast.PrimU8)),
	}
	res, err := ElideFunctionLifetimes(fn, false, false)
	if err != nil {
		t.Fatalf("ElideFunctionLifetimes: %v", err)
	}
	if len(res.InputLifetimes) != 1 {
		t.Fatalf("expected exactly one elided input lifetime, got %d", len(res.InputLifetimes))
	}
	if fn.ReturnType.Lifetime != res.InputLifetimes[0] {
		t.Fatalf("expected output lifetime %q to match sole input %q", fn.ReturnType.Lifetime, res.InputLifetimes[0])
	}
}

// TestElideFunctionLifetimesSelfWins exercises the &self-takes-priority
// rule even when other input lifetimes are present.
func TestElideFunctionLifetimesSelfWins(t *testing.T) {
	fn := &rast.FunctionItem{
		Self: rast.SelfByRef,
		Params: []rast.Param{
			{Name: "x", Type: rast.Borrow("", false, rast.Prim(rast.PrimU8))},
		},
		ReturnType: rast.Borrow("", false, rast.Prim(rast.PrimU8)),
	}
	res, err := ElideFunctionLifetimes(fn, true, false)
	if err != nil {
		t.Fatalf("ElideFunctionLifetimes: %v", err)
	}
	selfLifetime := res.InputLifetimes[0]
	if fn.ReturnType.Lifetime != selfLifetime {
		t.Fatalf("expected output lifetime to take &self's lifetime %q, got %q", selfLifetime, fn.ReturnType.Lifetime)
	}
}

// TestElideFunctionLifetimesAmbiguousIsError exercises the "otherwise an
// error" branch: two input lifetimes and no &self leaves no unique
// candidate for an elided output lifetime in expression position.
func TestElideFunctionLifetimesAmbiguousIsError(t *testing.T) {
	fn := &rast.FunctionItem{
		Params: []rast.Param{
			{Name: "a", Type: rast.Borrow("", false, rast.Prim(rast.PrimU8))},
			{Name: "b", Type: rast.Borrow("", false, rast.Prim(rast.PrimU8))},
		},
		ReturnType: rast.Borrow("", false, rast.Prim(rast.PrimU8)),
	}
	if _, err := ElideFunctionLifetimes(fn, false, true); err == nil {
		t.Fatal("expected ambiguous elided output lifetime to fail")
	}
}

// TestComputeSupertraitClosureTransitive exercises property P3: trait C's
// closure must contain every trait reachable through the supertrait chain
// C: B, B: A, not just C's direct supertrait B.
func TestComputeSupertraitClosureTransitive(t *testing.T) {
	aPath := absPath("test", "A")
	bPath := absPath("test", "B")
	a := &rast.TraitItem{ItemCommon: rast.ItemCommon{Name: "A"}}
	b := &rast.TraitItem{ItemCommon: rast.ItemCommon{Name: "B"}, Supertraits: []rast.GenericBound{
		{Kind: rast.GBIsTrait, Trait: rast.GenericPath{Path: aPath}},
	}}
	c := &rast.TraitItem{ItemCommon: rast.ItemCommon{Name: "C"}, Supertraits: []rast.GenericBound{
		{Kind: rast.GBIsTrait, Trait: rast.GenericPath{Path: bPath}},
	}}
	lookup := func(p rast.AbsolutePath) (*rast.TraitItem, bool) {
		switch p.String() {
		case aPath.String():
			return a, true
		case bPath.String():
			return b, true
		}
		return nil, false
	}
	if err := ComputeSupertraitClosure(c, lookup); err != nil {
		t.Fatalf("ComputeSupertraitClosure: %v", err)
	}
	found := map[string]bool{}
	for _, gp := range c.AllParentTraits {
		found[gp.Path.String()] = true
	}
	if !found[aPath.String()] {
		t.Fatalf("expected transitive supertrait A in closure, got %v", c.AllParentTraits)
	}
	if !found[bPath.String()] {
		t.Fatalf("expected direct supertrait B in closure, got %v", c.AllParentTraits)
	}
}

// TestBindAttachesStructPathBinding exercises item 3 / property P1: a
// PatTupleStruct pattern naming a declared tuple struct must come out of
// Bind with a non-nil PathBinding pointing at that struct.
func TestBindAttachesStructPathBinding(t *testing.T) {
	sPath := rast.NewLocalPath(nil, "Point")
	pat := rast.Pattern{Kind: rast.PatTupleStruct, StructPath: sPath}
	fn := &rast.FunctionItem{
		Body: &rast.BlockExpr{Stmts: []rast.Stmt{
			&rast.LetStmt{Pattern: pat},
		}},
	}
	root := rast.NewModule(absPath("test"))
	root.AddItem(true, "Point", &rast.StructItem{
		ItemCommon: rast.ItemCommon{Name: "Point"},
		Shape:      rast.StructTuple,
		Fields:     []rast.StructField{{Name: "0", Type: rast.Prim(rast.PrimI32)}},
	}, rast.AttributeList{})
	root.AddItem(true, "f", fn, rast.AttributeList{})

	structs := map[string]*rast.StructItem{"test::Point": {
		ItemCommon: rast.ItemCommon{Name: "Point"},
		Shape:      rast.StructTuple,
		Fields:     []rast.StructField{{Name: "0", Type: rast.Prim(rast.PrimI32)}},
	}}
	c := NewCrate(root, map[string]rast.TypeRef{}, structs, map[string]*rast.EnumItem{}, map[string]*rast.TraitItem{})
	if err := c.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	binding := sPath.Binding()
	if binding == nil {
		t.Fatal("expected PathBinding to be set after Bind")
	}
	if binding.Target.String() != "test::Point" {
		t.Fatalf("expected binding to target test::Point, got %s", binding.Target.String())
	}
}
