package resolve

import (
	"testing"

	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

type fakeTraits struct {
	byPath map[string]TraitInfo
	inScope []TraitInfo
}

func (f *fakeTraits) InScopeTraitsFor(selfType rast.TypeRef) []TraitInfo { return f.inScope }

func (f *fakeTraits) TraitByPath(p rast.AbsolutePath) (TraitInfo, bool) {
	ti, ok := f.byPath[p.String()]
	return ti, ok
}

func traitA() (rast.AbsolutePath, *rast.TraitItem) {
	path := rast.AbsolutePath{Crate: "demo", Nodes: []string{"A"}}
	item := &rast.TraitItem{Functions: []*rast.FunctionItem{rast.NewFunctionItem(nil, "f", true)}}
	return path, item
}

func traitB(aPath rast.AbsolutePath) (rast.AbsolutePath, *rast.TraitItem) {
	path := rast.AbsolutePath{Crate: "demo", Nodes: []string{"B"}}
	item := &rast.TraitItem{AllParentTraits: []rast.GenericPath{{Path: aPath}}}
	return path, item
}

// TestResolveSupertraitBound mirrors E2E scenario 4: `trait A { fn
// f() -> u8; } trait B: A {} fn g<T: B>() -> u8 { <T>::f() }` must resolve
// to trait A, not B.
func TestResolveSupertraitBound(t *testing.T) {
	aPath, aItem := traitA()
	bPath, bItem := traitB(aPath)

	traits := &fakeTraits{byPath: map[string]TraitInfo{
		aPath.String(): {Path: aPath, Item: aItem},
		bPath.String(): {Path: bPath, Item: bItem, AllParentTraits: []rast.GenericPath{{Path: aPath}}},
	}}

	generics := &rast.GenericParams{
		Params: []rast.GenericParam{{Kind: rast.GPType, Name: "T", BoundsStart: 0, BoundsEnd: 1}},
		Bounds: []rast.GenericBound{{Kind: rast.GBIsTrait, Trait: rast.GenericPath{Path: bPath}}},
	}
	scope := Scope{ItemGenerics: generics, Traits: traits}

	got, err := Resolve(scope, rast.Generic("T", 0), "f", rast.UFCSValue)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Inherent {
		t.Fatalf("expected a trait resolution, not inherent")
	}
	if got.Trait.Path.String() != aPath.String() {
		t.Fatalf("expected resolution against supertrait A, got %s", got.Trait.Path)
	}
}

func TestResolveAmbiguousSiblingBounds(t *testing.T) {
	pathA := rast.AbsolutePath{Crate: "demo", Nodes: []string{"X"}}
	pathB := rast.AbsolutePath{Crate: "demo", Nodes: []string{"Y"}}
	itemA := &rast.TraitItem{Functions: []*rast.FunctionItem{rast.NewFunctionItem(nil, "f", true)}}
	itemB := &rast.TraitItem{Functions: []*rast.FunctionItem{rast.NewFunctionItem(nil, "f", true)}}

	traits := &fakeTraits{byPath: map[string]TraitInfo{
		pathA.String(): {Path: pathA, Item: itemA},
		pathB.String(): {Path: pathB, Item: itemB},
	}}
	generics := &rast.GenericParams{
		Params: []rast.GenericParam{{Kind: rast.GPType, Name: "T", BoundsStart: 0, BoundsEnd: 2}},
		Bounds: []rast.GenericBound{
			{Kind: rast.GBIsTrait, Trait: rast.GenericPath{Path: pathA}},
			{Kind: rast.GBIsTrait, Trait: rast.GenericPath{Path: pathB}},
		},
	}
	scope := Scope{ItemGenerics: generics, Traits: traits}

	if _, err := Resolve(scope, rast.Generic("T", 0), "f", rast.UFCSValue); err == nil {
		t.Fatalf("expected an ambiguity error when two sibling bounds both provide f")
	}
}

func TestSortImplsPartitionsByBucket(t *testing.T) {
	named := rast.NewImplItem(nil)
	named.SelfType = rast.PathType(rast.NewLocalPath(nil, "Widget"))
	generic := rast.NewImplItem(nil)
	generic.SelfType = rast.Generic("T", 0)
	prim := rast.NewImplItem(nil)
	prim.SelfType = rast.Prim(rast.PrimU32)

	buckets := SortImpls([]*rast.ImplItem{named, generic, prim})
	if len(buckets[BucketNamed]) != 1 || buckets[BucketNamed][0] != named {
		t.Fatalf("expected named impl in BucketNamed")
	}
	if len(buckets[BucketGeneric]) != 1 || buckets[BucketGeneric][0] != generic {
		t.Fatalf("expected generic impl in BucketGeneric")
	}
	if len(buckets[BucketNonNamed]) != 1 || buckets[BucketNonNamed][0] != prim {
		t.Fatalf("expected primitive impl in BucketNonNamed")
	}
}
