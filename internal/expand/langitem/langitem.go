// Package langitem implements the `#[lang = "name"]` handler and the
// edition-gated lang-item table, using a table-driven dispatch style.
package langitem

import (
	"fmt"
	"sort"

	"github.com/rustbootstrap/mrustc-core/internal/errors"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

// Edition is one of the Rust edition gates the original source scatters
// through its lang-item handler as TARGETVER_LEAST_* macros (Open
// Question: "An implementer must carry these through identically").
// DESIGN.md Open Question #1 resolves this as a data table keyed by
// (name, minimum edition) rather than scattered conditionals.
type Edition int

const (
	Edition2015 Edition = iota
	Edition1_29
	Edition1_39
	Edition1_54
)

// RequiredKind is the item kind a lang item name must be declared on.
type RequiredKind int

const (
	KindTrait RequiredKind = iota
	KindStruct
	KindEnum
	KindFunction
	KindStatic
)

// Entry is one row of the lang-item table: a recognized name, the item kind
// it must tag, and the minimum edition under which it is recognized.
type Entry struct {
	Name            string
	Kind            RequiredKind
	MinimumEdition  Edition
}

// Table is the edition-gated lang-item registry: a hard-coded name/kind
// table turned into data so edition gating is a lookup rather than a
// conditional scattered across a long if-else chain.
var Table = []Entry{
	{"sized", KindTrait, Edition2015},
	{"unsize", KindTrait, Edition2015},
	{"copy", KindTrait, Edition2015},
	{"clone", KindTrait, Edition2015},
	{"drop", KindTrait, Edition2015},
	{"fn", KindTrait, Edition2015},
	{"fn_mut", KindTrait, Edition2015},
	{"fn_once", KindTrait, Edition2015},
	{"deref", KindTrait, Edition2015},
	{"deref_mut", KindTrait, Edition2015},
	{"index", KindTrait, Edition2015},
	{"index_mut", KindTrait, Edition2015},
	{"add", KindTrait, Edition2015},
	{"sub", KindTrait, Edition2015},
	{"phantom_data", KindStruct, Edition2015},
	{"owned_box", KindStruct, Edition2015},
	{"start", KindFunction, Edition2015},
	{"panic_impl", KindFunction, Edition1_29},
	{"oom", KindFunction, Edition1_29},
	{"eh_personality", KindFunction, Edition2015},
	{"try", KindFunction, Edition1_39},
	{"coerce_unsized", KindTrait, Edition2015},
	{"unsize_param", KindTrait, Edition2015},
	{"generator", KindTrait, Edition1_39},
	{"generator_state", KindEnum, Edition1_39},
	{"termination", KindTrait, Edition1_54},
	{"range_full", KindStruct, Edition2015},
	{"mrustc_main", KindFunction, Edition2015},
	{"rustc_std_internal_symbol", KindFunction, Edition2015},
}

func lookup(name string) (Entry, bool) {
	for _, e := range Table {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

func kindOf(it rast.Item) (RequiredKind, bool) {
	switch it.(type) {
	case *rast.TraitItem:
		return KindTrait, true
	case *rast.StructItem:
		return KindStruct, true
	case *rast.EnumItem:
		return KindEnum, true
	case *rast.FunctionItem:
		return KindFunction, true
	case *rast.StaticItem:
		return KindStatic, true
	default:
		return 0, false
	}
}

// Registry accumulates lang-item bindings for one crate, recording
// Crate.m_lang_items[name] = path. Not safe for concurrent use; the
// front-end is single-threaded.
type Registry struct {
	edition  Edition
	bindings map[string]rast.AbsolutePath
}

func NewRegistry(edition Edition) *Registry {
	return &Registry{edition: edition, bindings: make(map[string]rast.AbsolutePath)}
}

// Bind processes one `#[lang = "name"]` attribute on item it, declared at
// path. Duplicate bindings to the same path are silently deduplicated
// (anon modules may be visited twice); duplicate bindings to a different
// path, a kind mismatch, or an edition gate violation are reported via the
// returned error.
func (r *Registry) Bind(name string, it rast.Item, path rast.AbsolutePath) error {
	entry, ok := lookup(name)
	if !ok {
		return fmt.Errorf("%s: unrecognized lang item %q", errors.EXP003, name)
	}
	if entry.MinimumEdition > r.edition {
		return fmt.Errorf("%s: lang item %q requires a later edition", errors.EXP005, name)
	}
	gotKind, ok := kindOf(it)
	if !ok || gotKind != entry.Kind {
		return fmt.Errorf("%s: lang item %q applied to an item of the wrong kind", errors.EXP003, name)
	}
	if existing, bound := r.bindings[name]; bound {
		if !existing.Equal(path) {
			return fmt.Errorf("%s: lang item %q bound to conflicting paths %s and %s",
				errors.EXP004, name, existing, path)
		}
		return nil
	}
	r.bindings[name] = path
	return nil
}

// Lookup returns the path bound to lang item name, if any.
func (r *Registry) Lookup(name string) (rast.AbsolutePath, bool) {
	p, ok := r.bindings[name]
	return p, ok
}

// Names returns every bound lang-item name in sorted order, for
// deterministic iteration (e.g. in diagnostics or golden tests).
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.bindings))
	for n := range r.bindings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PseudoLangItemFor maps the standalone marker attributes of // ("#[main], #[start], #[panic_handler], #[alloc_error_handler],
// #[rustc_std_internal_symbol]") to the pseudo lang-item name each
// registers the annotated function under.
func PseudoLangItemFor(attr string) (string, bool) {
	switch attr {
	case "main":
		return "mrustc_main", true
	case "start":
		return "start", true
	case "panic_handler":
		return "panic_impl", true
	case "alloc_error_handler":
		return "oom", true
	case "rustc_std_internal_symbol":
		return "rustc_std_internal_symbol", true
	default:
		return "", false
	}
}
