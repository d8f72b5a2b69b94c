package rast

// NameKind distinguishes the three independent name indexes a Module
// maintains, mirroring Rust's namespace separation ("Module": "three
// name indexes: namespace/type/value").
type NameKind int

const (
	// NSNamespace holds modules, crates, and macro names.
	NSNamespace NameKind = iota
	// NSType holds structs, enums, unions, traits, and type aliases.
	NSType
	// NSValue holds functions, consts, statics, and (tuple-struct / unit
	// enum-variant) constructors.
	NSValue
)

// NameEntry is one binding recorded in a Module's name index.
type NameEntry struct {
	IsPublic bool
	IsImport bool // true if this entry came from a `use`, not a direct item
	Path     AbsolutePath
}

// CrateLoader resolves `extern crate` references to already-parsed external
// modules. Loading crates from disk is an excluded collaborator;
// this is the boundary interface supplied by a driver so internal/resolve
// and internal/hir can still walk into an external crate's Module tree,
// modeled on ast::crate::Crate::m_extern_crates.
type CrateLoader interface {
	LoadCrate(name string) (*Module, bool)
}

// Module is one file/mod-block scope: an ordered item list plus three
// independent name indexes, its `use` imports, its impl blocks, any macro
// invocations still awaiting expansion, and any statics hoisted out of
// constant-evaluated expressions ("Module").
type Module struct {
	MyPath AbsolutePath

	items []Item

	imports []*UseStmt

	impls         []*ImplItem
	negativeImpls []*ImplItem

	pendingMacros []*MacroInvocationItem

	// Anonymous child modules created by macro expansion (e.g. a
	// macro_rules! expansion that introduces its own scope) rather than a
	// named `mod` item.
	anonChildren []*Module

	// InlineStatics are statics synthesized during expansion/consteval
	// (e.g. promoted temporaries); appended, never removed.
	InlineStatics []*StaticItem

	namespace map[string]NameEntry
	types     map[string]NameEntry
	values    map[string]NameEntry

	globsResolved bool
}

// NewModule constructs an empty Module rooted at path.
func NewModule(path AbsolutePath) *Module {
	return &Module{
		MyPath:    path,
		namespace: make(map[string]NameEntry),
		types:     make(map[string]NameEntry),
		values:    make(map[string]NameEntry),
	}
}

// Items returns the module's items in declaration order.
func (m *Module) Items() []Item { return m.items }

// Impls returns the module's (non-negative) impl blocks.
func (m *Module) Impls() []*ImplItem { return m.impls }

// NegativeImpls returns the module's `impl !Trait for Type` blocks.
func (m *Module) NegativeImpls() []*ImplItem { return m.negativeImpls }

// PendingMacros returns item-position macro invocations not yet expanded.
func (m *Module) PendingMacros() []*MacroInvocationItem { return m.pendingMacros }

// AddChild registers an anonymous child module (one with no corresponding
// named `mod` item, e.g. introduced by macro expansion).
func (m *Module) AddChild(child *Module) { m.anonChildren = append(m.anonChildren, child) }

// Children returns the module's anonymous child modules.
func (m *Module) Children() []*Module { return m.anonChildren }

func kindForItem(it Item) (NameKind, bool) {
	switch it.(type) {
	case *ModuleItem, *ExternCrateItem:
		return NSNamespace, true
	case *StructItem, *EnumItem, *UnionItem, *TraitItem, *TypeAliasItem:
		return NSType, true
	case *FunctionItem, *StaticItem, *ConstItem:
		return NSValue, true
	default:
		return 0, false
	}
}

func (m *Module) indexFor(k NameKind) map[string]NameEntry {
	switch k {
	case NSNamespace:
		return m.namespace
	case NSType:
		return m.types
	default:
		return m.values
	}
}

// AddItem appends it to the module and, if it introduces a name, records it
// in the appropriate index. The absolute path of an item is always
// Module.MyPath + item.name.
//
// Structs, unions, and unit/tuple enum variants are dual-namespace: a
// StructItem with named fields occupies only the type namespace, while a
// tuple or unit struct additionally occupies the value namespace as its own
// constructor — mirrored here by indexing struct items into both NSType and,
// when the shape implies a constructor, NSValue.
func (m *Module) AddItem(isPub bool, name string, it Item, attrs AttributeList) {
	it.Common().Public = isPub
	it.Common().Name = name
	it.Common().Attrs = attrs
	m.items = append(m.items, it)

	switch v := it.(type) {
	case *ImplItem:
		if v.Negative {
			m.negativeImpls = append(m.negativeImpls, v)
		} else {
			m.impls = append(m.impls, v)
		}
		return
	case *MacroInvocationItem:
		m.pendingMacros = append(m.pendingMacros, v)
		return
	}

	if us, ok := it.(*UseStmt); ok {
		m.imports = append(m.imports, us)
		if us.IsGlob() {
			return // globs are resolved separately, via ResolveGlobs
		}
		// A named `use` is recorded only in the value namespace; resolving
		// it against the target's actual namespace is internal/resolve's
		// job once the imported path is bound, not this index's.
		idx := m.indexFor(NSValue)
		idx[name] = NameEntry{IsPublic: isPub, IsImport: true, Path: m.MyPath.Append(name)}
		return
	}

	if name == "" {
		return
	}

	path := m.MyPath.Append(name)

	kind, ok := kindForItem(it)
	if !ok {
		return
	}
	idx := m.indexFor(kind)
	idx[name] = NameEntry{IsPublic: isPub, Path: path}

	if s, ok := it.(*StructItem); ok && s.Shape != StructNamed {
		m.values[name] = NameEntry{IsPublic: isPub, Path: path}
	}
}

// ResolveGlobs expands every `use path::*;` import in this module into
// concrete entries copied from the target module's public names, following
// chains of re-exported globs up to a fixed point. Bounded by a per-module
// globsResolved flag, set before any glob target is visited, so cyclic glob
// imports (e.g. `mod a { use b::*; } mod b { use a::*; }`) terminate
// rather than looping forever — the resolution this crate's Open
// Question 2 settled on (DESIGN.md): glob imports are resolved in one
// explicit pre-pass before any FindItem lookup relies on them, rather than
// lazily during lookup.
func (m *Module) ResolveGlobs(resolveTarget func(p *Path) (*Module, bool)) {
	if m.globsResolved {
		return
	}
	m.globsResolved = true

	for _, us := range m.imports {
		if !us.IsGlob() {
			continue
		}
		target, ok := resolveTarget(us.Path)
		if !ok {
			continue
		}
		target.ResolveGlobs(resolveTarget)
		m.mergeGlobFrom(target)
	}
}

func (m *Module) mergeGlobFrom(src *Module) {
	for name, e := range src.namespace {
		if e.IsPublic {
			if _, exists := m.namespace[name]; !exists {
				m.namespace[name] = NameEntry{IsPublic: false, IsImport: true, Path: e.Path}
			}
		}
	}
	for name, e := range src.types {
		if e.IsPublic {
			if _, exists := m.types[name]; !exists {
				m.types[name] = NameEntry{IsPublic: false, IsImport: true, Path: e.Path}
			}
		}
	}
	for name, e := range src.values {
		if e.IsPublic {
			if _, exists := m.values[name]; !exists {
				m.values[name] = NameEntry{IsPublic: false, IsImport: true, Path: e.Path}
			}
		}
	}
}

// FindItem looks up name in the requested namespace, returning the absolute
// path it's bound to. allowLeaves controls whether non-module leaf entries
// (functions, consts, structs, ...) satisfy the lookup, or only further
// modules do (used when resolving all-but-the-last segment of a multi-part
// path, where every segment but the last must itself be a module).
// ignorePrivateWildcard suppresses private entries that arrived via a glob
// import, matching the visibility rule that a private glob re-export is not
// visible outside the module that wrote the `use`.
func (m *Module) FindItem(kind NameKind, name string, allowLeaves bool, ignorePrivateWildcard bool) (AbsolutePath, bool) {
	e, ok := m.indexFor(kind)[name]
	if !ok {
		return AbsolutePath{}, false
	}
	if ignorePrivateWildcard && e.IsImport && !e.IsPublic {
		return AbsolutePath{}, false
	}
	if !allowLeaves && kind != NSNamespace {
		return AbsolutePath{}, false
	}
	return e.Path, true
}
