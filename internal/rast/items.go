package rast

import "github.com/rustbootstrap/mrustc-core/internal/rspan"

// ItemCommon holds the fields every Item variant carries (: "Each
// carries its AttributeList, declaring Span, and declared visibility").
type ItemCommon struct {
	Attrs  AttributeList
	span   *rspan.Span
	Public bool
	Name   string
}

func (c *ItemCommon) Span() *rspan.Span { return c.span }

// Item is the top-level sum-type marker interface ("Item").
type Item interface {
	Node
	itemNode()
	Common() *ItemCommon
}

func newCommon(span *rspan.Span, name string, public bool) ItemCommon {
	return ItemCommon{span: span, Name: name, Public: public}
}

// NoneItem is a tombstone left by item removal; Module.FindItem skips it.
type NoneItem struct{ ItemCommon }

func (*NoneItem) itemNode()               {}
func (i *NoneItem) Common() *ItemCommon   { return &i.ItemCommon }

// MacroInvocationItem is an item-position macro call awaiting expansion.
type MacroInvocationItem struct {
	ItemCommon
	Invocation *MacroInvocationExpr
}

func (*MacroInvocationItem) itemNode()             {}
func (i *MacroInvocationItem) Common() *ItemCommon { return &i.ItemCommon }

// ModuleItem wraps a child Module as an item within its parent.
type ModuleItem struct {
	ItemCommon
	Module *Module
}

func (*ModuleItem) itemNode()             {}
func (i *ModuleItem) Common() *ItemCommon { return &i.ItemCommon }

// ExternCrateItem is `extern crate foo;`. Loading the named crate is an
// excluded collaborator; CrateLoader is the boundary interface
// this item binds against.
type ExternCrateItem struct {
	ItemCommon
	CrateName string
	Alias     string
}

func (*ExternCrateItem) itemNode()             {}
func (i *ExternCrateItem) Common() *ItemCommon { return &i.ItemCommon }

// TypeAliasItem is `type Name<params> = Target;`.
type TypeAliasItem struct {
	ItemCommon
	Generics GenericParams
	Target   TypeRef
}

func (*TypeAliasItem) itemNode()             {}
func (i *TypeAliasItem) Common() *ItemCommon { return &i.ItemCommon }

// StructField is one field of a struct/union/tuple-struct/enum-variant.
type StructField struct {
	Name   string // "" for tuple-struct positional fields
	Type   TypeRef
	Public bool
}

// StructShape discriminates named-field, tuple, and unit structs.
type StructShape int

const (
	StructNamed StructShape = iota
	StructTuple
	StructUnit
)

// StructItem is `struct Name<generics> { fields }` / `struct Name(T0, T1);`
// / `struct Name;`.
type StructItem struct {
	ItemCommon
	Generics GenericParams
	Shape    StructShape
	Fields   []StructField

	Markings StructMarkings // populated by internal/hir's Markings pass
}

func (*StructItem) itemNode()             {}
func (i *StructItem) Common() *ItemCommon { return &i.ItemCommon }

// IsUnit reports whether this is a fieldless unit struct — used by the
// Open-Question-3 pattern-collapse rule (DESIGN.md).
func (s *StructItem) IsUnit() bool { return s.Shape == StructUnit || len(s.Fields) == 0 }

// EnumVariant is one arm of an enum declaration.
type EnumVariant struct {
	Name         string
	Shape        StructShape // StructNamed, StructTuple, or StructUnit
	Fields       []StructField
	Discriminant Expr // nil unless an explicit `= N` was written
}

// EnumItem is `enum Name<generics> { variants }`.
type EnumItem struct {
	ItemCommon
	Generics GenericParams
	Variants []EnumVariant

	// Discriminants populated by internal/hir's ConstantEvaluate pass
	// (item 6: "every... enum discriminant").
	Discriminants []int64
}

func (*EnumItem) itemNode()             {}
func (i *EnumItem) Common() *ItemCommon { return &i.ItemCommon }

// UnionItem is `union Name<generics> { fields }`.
type UnionItem struct {
	ItemCommon
	Generics GenericParams
	Fields   []StructField
}

func (*UnionItem) itemNode()             {}
func (i *UnionItem) Common() *ItemCommon { return &i.ItemCommon }

// SelfMode discriminates how (or whether) a method receives `self`.
type SelfMode int

const (
	SelfNone SelfMode = iota
	SelfByValue
	SelfByRef
	SelfByRefMut
)

// Param is one function parameter.
type Param struct {
	Name string
	Type TypeRef
}

// FunctionItem is `fn name<generics>(params) -> ret { body }`; Body is nil
// for a trait method declaration with no default.
type FunctionItem struct {
	ItemCommon
	Generics   GenericParams
	Self       SelfMode
	Params     []Param
	ReturnType TypeRef
	Body       *BlockExpr
	Unsafe     bool
}

func (*FunctionItem) itemNode()             {}
func (i *FunctionItem) Common() *ItemCommon { return &i.ItemCommon }

// StaticItem is `static NAME: T = expr;`.
type StaticItem struct {
	ItemCommon
	Type    TypeRef
	Value   Expr
	Mutable bool

	Encoded *EncodedLiteral // populated by internal/consteval
}

func (*StaticItem) itemNode()             {}
func (i *StaticItem) Common() *ItemCommon { return &i.ItemCommon }

// ConstItem is `const NAME: T = expr;`.
type ConstItem struct {
	ItemCommon
	Type  TypeRef
	Value Expr

	Encoded *EncodedLiteral // populated by internal/consteval
}

func (*ConstItem) itemNode()             {}
func (i *ConstItem) Common() *ItemCommon { return &i.ItemCommon }

// TraitItem is `trait Name<generics>: Supertraits { items }`.
type TraitItem struct {
	ItemCommon
	Generics     GenericParams
	Supertraits  []GenericBound // GBIsTrait entries: `Self: Supertrait`
	Functions    []*FunctionItem
	Consts       []*ConstItem
	AssocTypes   []AssocTypeDecl

	// AllParentTraits is the transitive supertrait closure computed by
	// internal/hir's Markings pass (HIR: "traits carry a closure
	// m_all_parent_traits").
	AllParentTraits []GenericPath
}

// AssocTypeDecl is `type Name: Bounds;` inside a trait.
type AssocTypeDecl struct {
	Name   string
	Bounds []GenericBound
}

func (*TraitItem) itemNode()             {}
func (i *TraitItem) Common() *ItemCommon { return &i.ItemCommon }

// HasMember reports whether the trait declares a member named name in the
// requested UFCS context, and returns its absolute path if so.
func (t *TraitItem) HasMember(selfTraitPath AbsolutePath, name string, ctx UFCSContext) (AbsolutePath, bool) {
	switch ctx {
	case UFCSValue:
		for _, f := range t.Functions {
			if f.Name == name {
				return selfTraitPath.Append(name), true
			}
		}
		for _, c := range t.Consts {
			if c.Name == name {
				return selfTraitPath.Append(name), true
			}
		}
	case UFCSType:
		for _, a := range t.AssocTypes {
			if a.Name == name {
				return selfTraitPath.Append(name), true
			}
		}
	}
	return AbsolutePath{}, false
}

// UFCSContext is the three lookup contexts of ("a context ∈
// {Value, Type, Trait}").
type UFCSContext int

const (
	UFCSValue UFCSContext = iota
	UFCSType
	UFCSTrait
)

// ImplItem is `impl<generics> Trait for Type { items }` (TraitPath nil for
// an inherent impl) or `impl<generics> !Trait for Type {}` when Negative.
type ImplItem struct {
	ItemCommon
	Generics   GenericParams
	TraitPath  *GenericPath // nil for inherent impls
	SelfType   TypeRef
	Negative   bool
	Functions  []*FunctionItem
	Consts     []*ConstItem
	AssocTypes map[string]TypeRef
}

func (*ImplItem) itemNode()             {}
func (i *ImplItem) Common() *ItemCommon { return &i.ItemCommon }

// IsInherent reports whether this impl has no trait (`impl Type { ... }`).
func (im *ImplItem) IsInherent() bool { return im.TraitPath == nil }

// UseStmt is `use path::{a, b};` / `use path::*;`. An empty Name is a
// glob import, and may only resolve to a module or enum.
type UseStmt struct {
	ItemCommon
	Path  *Path
	Alias string // "" if no `as` rename
}

func (*UseStmt) itemNode()             {}
func (u *UseStmt) Common() *ItemCommon { return &u.ItemCommon }

// IsGlob reports whether this is a `use path::*;` wildcard import.
func (u *UseStmt) IsGlob() bool { return u.Name == "" }

// ProcMacroDefItem records a `#[proc_macro]`/`#[proc_macro_attribute]`/
// `#[proc_macro_derive]`-annotated function ("#[proc_macro_derive(
// Name, attributes(...))]" ).
type ProcMacroDefItem struct {
	ItemCommon
	ExportedName    string
	HelperAttrs     []string // from attributes(a, b, ...)
	IsDerive        bool
	FunctionPath    AbsolutePath
}

func (*ProcMacroDefItem) itemNode()             {}
func (i *ProcMacroDefItem) Common() *ItemCommon { return &i.ItemCommon }

// NewStructItem is a convenience constructor used by internal/expand/derive
// when synthesizing generated impls' surrounding context.
func NewStructItem(span *rspan.Span, name string, public bool) *StructItem {
	return &StructItem{ItemCommon: newCommon(span, name, public)}
}

func NewFunctionItem(span *rspan.Span, name string, public bool) *FunctionItem {
	return &FunctionItem{ItemCommon: newCommon(span, name, public)}
}

func NewImplItem(span *rspan.Span) *ImplItem {
	return &ImplItem{ItemCommon: newCommon(span, "", false)}
}
