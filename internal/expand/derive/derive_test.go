package derive

import (
	"testing"

	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

func structTarget() Target {
	s := rast.NewStructItem(nil, "S", true)
	s.Shape = rast.StructNamed
	s.Fields = []rast.StructField{
		{Name: "a", Type: rast.Prim(rast.PrimU32), Public: true},
		{Name: "b", Type: rast.Prim(rast.PrimU32), Public: true},
	}
	return Target{
		Name:     "S",
		Generics: &rast.GenericParams{},
		SelfType: rast.PathType(rast.NewLocalPath(nil, "S")),
		Struct:   s,
	}
}

func enumTarget() Target {
	e := &rast.EnumItem{
		Variants: []rast.EnumVariant{
			{Name: "A", Shape: rast.StructTuple, Fields: []rast.StructField{
				{Type: rast.Prim(rast.PrimU8)}, {Type: rast.Prim(rast.PrimU8)},
			}},
			{Name: "B", Shape: rast.StructUnit},
		},
	}
	return Target{
		Name:     "E",
		Generics: &rast.GenericParams{},
		SelfType: rast.PathType(rast.NewLocalPath(nil, "E")),
		Enum:     e,
	}
}

func TestDeriveDebugNamedStruct(t *testing.T) {
	im, err := DeriveDebug(structTarget())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(im.Functions) != 1 || im.Functions[0].Name != "fmt" {
		t.Fatalf("expected a single fmt function, got %+v", im.Functions)
	}
	body := im.Functions[0].Body
	if len(body.Stmts) != 3 { // let s = ...; s.field("a", ...); s.field("b", ...)
		t.Fatalf("expected 3 leading statements (let + 2 fields), got %d", len(body.Stmts))
	}
	if _, ok := body.Tail.(*rast.MethodCallExpr); !ok {
		t.Fatalf("expected tail expression to be the finish() call")
	}
}

func TestDerivePartialEqEnumScenario(t *testing.T) {
	im, err := DerivePartialEq(enumTarget())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fn := im.Functions[0]
	match, ok := fn.Body.Tail.(*rast.MatchExpr)
	if !ok {
		t.Fatalf("expected eq's body to tail in a match expression")
	}
	if len(match.Arms) != 3 { // variant A, variant B, catch-all
		t.Fatalf("expected 3 match arms (A, B, catch-all), got %d", len(match.Arms))
	}
	lastArm := match.Arms[len(match.Arms)-1]
	if lastArm.Pattern.Kind != rast.PatAny {
		t.Fatalf("expected the final arm to be a catch-all wildcard")
	}
	if lit, ok := lastArm.Body.(*rast.LitExpr); !ok || lit.Value != false {
		t.Fatalf("expected the catch-all arm to return false")
	}
}

func TestDeriveDefaultRejectsEnum(t *testing.T) {
	if _, err := DeriveDefault(enumTarget()); err == nil {
		t.Fatalf("expected an error deriving Default on an enum")
	}
}

func TestDeriveCopyHasNoMethods(t *testing.T) {
	im, err := DeriveCopy(structTarget())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(im.Functions) != 0 {
		t.Fatalf("expected the Copy marker impl to have no method bodies, got %d", len(im.Functions))
	}
}

func TestDispatchUnknownTrait(t *testing.T) {
	if _, err := Dispatch("NotARealDerive", structTarget()); err == nil {
		t.Fatalf("expected an error for an unrecognized derive trait name")
	}
}

func TestFieldBoundGenericsSkipsPhantomData(t *testing.T) {
	phantom := rast.PathType(rast.NewRelativePath(nil, []rast.PathNode{{Name: "marker"}, {Name: "PhantomData"}}))
	generics := &rast.GenericParams{Params: []rast.GenericParam{{Kind: rast.GPType, Name: "T"}}}
	fields := []rast.StructField{{Name: "_marker", Type: phantom}}

	out := fieldBoundGenerics(generics, traitGenericPath("clone", "Clone"), fields)
	if len(out.Bounds) != 0 {
		t.Fatalf("expected no bound added for a type param only reachable through PhantomData, got %d", len(out.Bounds))
	}
}
