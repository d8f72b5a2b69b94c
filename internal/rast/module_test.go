package rast

import "testing"

func newTestModule(name string) *Module {
	return NewModule(AbsolutePath{Crate: "demo", Nodes: []string{name}})
}

func TestModuleAddItemIndexesByNamespace(t *testing.T) {
	m := newTestModule("root")

	m.AddItem(true, "Point", NewStructItem(nil, "", false), AttributeList{})
	m.AddItem(true, "make_point", NewFunctionItem(nil, "", false), AttributeList{})
	m.AddItem(false, "inner", &ModuleItem{Module: newTestModule("inner")}, AttributeList{})

	if _, ok := m.FindItem(NSType, "Point", true, false); !ok {
		t.Fatalf("expected Point in type namespace")
	}
	if _, ok := m.FindItem(NSValue, "make_point", true, false); !ok {
		t.Fatalf("expected make_point in value namespace")
	}
	if _, ok := m.FindItem(NSNamespace, "inner", true, false); !ok {
		t.Fatalf("expected inner in namespace index")
	}
	if _, ok := m.FindItem(NSValue, "Point", true, false); ok {
		t.Fatalf("Point (named-field struct) must not occupy the value namespace")
	}
}

func TestModuleAddItemTupleStructDualNamespace(t *testing.T) {
	m := newTestModule("root")
	s := NewStructItem(nil, "", false)
	s.Shape = StructTuple
	s.Fields = []StructField{{Type: Prim(PrimI32)}}
	m.AddItem(true, "Wrapper", s, AttributeList{})

	if _, ok := m.FindItem(NSType, "Wrapper", true, false); !ok {
		t.Fatalf("tuple struct must occupy type namespace")
	}
	if _, ok := m.FindItem(NSValue, "Wrapper", true, false); !ok {
		t.Fatalf("tuple struct constructor must occupy value namespace")
	}
}

func TestModuleImplsAndNegativeImpls(t *testing.T) {
	m := newTestModule("root")
	pos := NewImplItem(nil)
	neg := NewImplItem(nil)
	neg.Negative = true

	m.AddItem(false, "", pos, AttributeList{})
	m.AddItem(false, "", neg, AttributeList{})

	if len(m.Impls()) != 1 || m.Impls()[0] != pos {
		t.Fatalf("expected exactly the positive impl in Impls()")
	}
	if len(m.NegativeImpls()) != 1 || m.NegativeImpls()[0] != neg {
		t.Fatalf("expected exactly the negative impl in NegativeImpls()")
	}
}

func TestModulePendingMacros(t *testing.T) {
	m := newTestModule("root")
	inv := &MacroInvocationItem{}
	m.AddItem(false, "", inv, AttributeList{})

	if len(m.PendingMacros()) != 1 || m.PendingMacros()[0] != inv {
		t.Fatalf("expected the macro invocation to be queued as pending")
	}
}

func TestModuleResolveGlobsMergesPublicNames(t *testing.T) {
	lib := newTestModule("lib")
	lib.AddItem(true, "Public", NewStructItem(nil, "", false), AttributeList{})
	lib.AddItem(false, "Hidden", NewStructItem(nil, "", false), AttributeList{})

	app := newTestModule("app")
	glob := &UseStmt{Path: NewRelativePath(nil, []PathNode{{Name: "lib"}})}
	app.AddItem(false, "", glob, AttributeList{})

	app.ResolveGlobs(func(p *Path) (*Module, bool) {
		return lib, true
	})

	if _, ok := app.FindItem(NSType, "Public", true, false); !ok {
		t.Fatalf("expected glob import to bring in lib's public Public struct")
	}
	if _, ok := app.FindItem(NSType, "Hidden", true, false); ok {
		t.Fatalf("glob import must not bring in lib's private Hidden struct")
	}
}

func TestModuleResolveGlobsIsIdempotent(t *testing.T) {
	lib := newTestModule("lib")
	lib.AddItem(true, "Public", NewStructItem(nil, "", false), AttributeList{})

	app := newTestModule("app")
	glob := &UseStmt{Path: NewRelativePath(nil, []PathNode{{Name: "lib"}})}
	app.AddItem(false, "", glob, AttributeList{})

	calls := 0
	resolve := func(p *Path) (*Module, bool) {
		calls++
		return lib, true
	}
	app.ResolveGlobs(resolve)
	app.ResolveGlobs(resolve)

	if calls != 1 {
		t.Fatalf("expected ResolveGlobs to be a no-op on a second call, got %d resolveTarget calls", calls)
	}
}

func TestModuleAddItemIndexesNamedUseInValueNamespace(t *testing.T) {
	m := newTestModule("root")
	named := &UseStmt{ItemCommon: ItemCommon{}, Path: NewLocalPath(nil, "HashMap")}
	m.AddItem(true, "HashMap", named, AttributeList{})

	if _, ok := m.FindItem(NSValue, "HashMap", true, false); !ok {
		t.Fatalf("expected named use import to be indexed in the value namespace")
	}
}
