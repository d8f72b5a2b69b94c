// Package rast implements the AST/path/name data model of §4.B: the
// tagged tree of items, expressions, types, patterns, and paths that the
// rest of the front end operates on.
//
// Grounded on a package of sum types expressed as a marker-interface family
// of concrete Go structs, each with String() and a position accessor,
// generalized from a flat expression grammar to Rust's
// item/path/type/pattern grammar.
package rast

import (
	"fmt"
	"strings"

	"github.com/rustbootstrap/mrustc-core/internal/errors"
	"github.com/rustbootstrap/mrustc-core/internal/rspan"
)

// Node is the base interface every AST node satisfies.
type Node interface {
	Span() *rspan.Span
}

// AbsolutePath is a fully qualified path from a crate root: `crate::a::b::c`.
// Per 's redesign note, this is the arena key used everywhere a raw
// back-pointer would otherwise appear.
type AbsolutePath struct {
	Crate string
	Nodes []string
}

func (p AbsolutePath) String() string {
	if len(p.Nodes) == 0 {
		return p.Crate
	}
	return p.Crate + "::" + strings.Join(p.Nodes, "::")
}

// Append returns a new AbsolutePath with name appended (used by
// Module.AddItem's invariant: "the absolute path of I is
// Module.m_my_path + I.name").
func (p AbsolutePath) Append(name string) AbsolutePath {
	next := make([]string, len(p.Nodes)+1)
	copy(next, p.Nodes)
	next[len(p.Nodes)] = name
	return AbsolutePath{Crate: p.Crate, Nodes: next}
}

// Equal compares two absolute paths structurally.
func (p AbsolutePath) Equal(o AbsolutePath) bool {
	if p.Crate != o.Crate || len(p.Nodes) != len(o.Nodes) {
		return false
	}
	for i := range p.Nodes {
		if p.Nodes[i] != o.Nodes[i] {
			return false
		}
	}
	return true
}

// PathShape discriminates Path's five (plus UFCS) syntactic shapes.
type PathShape int

const (
	PathInvalid PathShape = iota
	PathLocal             // Local(name)
	PathRelative          // Relative(nodes)
	PathSelf              // Self(nodes)
	PathSuper             // Super(count, nodes)
	PathAbsolute          // Absolute(crate, nodes)
	PathUFCS              // UFCS(type, opt_trait, nodes)
)

func (k PathShape) String() string {
	switch k {
	case PathInvalid:
		return "Invalid"
	case PathLocal:
		return "Local"
	case PathRelative:
		return "Relative"
	case PathSelf:
		return "Self"
	case PathSuper:
		return "Super"
	case PathAbsolute:
		return "Absolute"
	case PathUFCS:
		return "UFCS"
	default:
		return "?"
	}
}

// BindingKind discriminates what a Path's PathBinding side-channel records
// ("Every Path carries a PathBinding side-channel...").
type BindingKind int

const (
	BindUnbound BindingKind = iota
	BindModule
	BindStruct
	BindEnumVariant
	BindFunction
	BindConst
	BindStatic
	BindTypeParameter
	BindLocalVariable
	BindStructMethod
	BindTraitMethod
)

// PathBinding is the non-owning side-channel recording what a Path resolved
// to. Append clears it (Binding then returns nil, read as BindUnbound);
// SubstituteArgs replaces generic arguments and keeps it.
type PathBinding struct {
	Kind BindingKind

	Target AbsolutePath // Module, Struct, Function, Const, Static, StructMethod, TraitMethod

	EnumPath  AbsolutePath // BindEnumVariant
	EnumIndex int          // BindEnumVariant

	TypeParamLevel int // BindTypeParameter: 0=item generics, 1=impl generics, ...
	TypeParamIndex int // BindTypeParameter

	LocalSlot int // BindLocalVariable
}

// UFCSState discriminates the three UFCS resolution states of a PathUFCS path.
type UFCSState int

const (
	UFCSUnknown UFCSState = iota
	UFCSKnown             // trait member, trait recorded in Path.UFCSTrait
	UFCSInherent          // inherent impl member, no trait
)

// Path is the polymorphic path node of /§4.B.
type Path struct {
	span  *rspan.Span
	Shape PathShape

	// PathLocal
	LocalName string

	// PathRelative / PathSelf / PathSuper / PathAbsolute: path segments.
	Nodes []PathNode

	// PathSelf / PathSuper extra data.
	SuperCount int // number of `super::` hops

	// PathAbsolute
	Crate string

	// PathUFCS
	UFCSType  TypeRef
	UFCSTrait *GenericPath // nil until UFCSKnown; the trait providing the item
	UFCSState UFCSState

	binding *PathBinding
}

// PathNode is one `name<args>` segment of a multi-segment path.
type PathNode struct {
	Name   string
	Params []TypeRef // generic arguments applied at this segment
}

// GenericPath is a resolved path to a trait/struct together with its
// generic arguments, used as the `trait:` field of a resolved UFCS binding.
type GenericPath struct {
	Path   AbsolutePath
	Params []TypeRef
	// AssocBindings records `Trait<Assoc = T>` associated-type equality
	// constraints carried alongside the path (supertrait
	// expansion: "associated-type bindings").
	AssocBindings map[string]TypeRef
}

func (g GenericPath) String() string {
	s := g.Path.String()
	if len(g.Params) > 0 {
		parts := make([]string, len(g.Params))
		for i, p := range g.Params {
			parts[i] = p.String()
		}
		s += "<" + strings.Join(parts, ", ") + ">"
	}
	return s
}

func NewLocalPath(span *rspan.Span, name string) *Path {
	return &Path{span: span, Shape: PathLocal, LocalName: name}
}

func NewRelativePath(span *rspan.Span, nodes []PathNode) *Path {
	return &Path{span: span, Shape: PathRelative, Nodes: nodes}
}

func NewAbsolutePathRef(span *rspan.Span, crate string, nodes []PathNode) *Path {
	return &Path{span: span, Shape: PathAbsolute, Crate: crate, Nodes: nodes}
}

func NewUFCSPath(span *rspan.Span, ty TypeRef, nodes []PathNode) *Path {
	return &Path{span: span, Shape: PathUFCS, UFCSType: ty, Nodes: nodes, UFCSState: UFCSUnknown}
}

func (p *Path) Span() *rspan.Span { return p.span }

func (p *Path) String() string {
	switch p.Shape {
	case PathLocal:
		return p.LocalName
	case PathAbsolute:
		return p.Crate + "::" + joinNodes(p.Nodes)
	case PathSelf:
		if len(p.Nodes) == 0 {
			return "self"
		}
		return "self::" + joinNodes(p.Nodes)
	case PathSuper:
		return strings.Repeat("super::", p.SuperCount) + joinNodes(p.Nodes)
	case PathUFCS:
		if p.UFCSState == UFCSKnown && p.UFCSTrait != nil {
			return fmt.Sprintf("<%s as %s>::%s", p.UFCSType, p.UFCSTrait, joinNodes(p.Nodes))
		}
		return fmt.Sprintf("<%s>::%s", p.UFCSType, joinNodes(p.Nodes))
	default:
		return joinNodes(p.Nodes)
	}
}

func joinNodes(nodes []PathNode) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.Name
	}
	return strings.Join(parts, "::")
}

// Append implements `Path::operator+=`: appends nodes and invalidates the
// binding.
func (p *Path) Append(extra ...PathNode) {
	p.Nodes = append(p.Nodes, extra...)
	p.binding = nil
}

// Binding returns the current PathBinding, or nil if unbound.
func (p *Path) Binding() *PathBinding {
	return p.binding
}

// bindOnce is the shared enforcement behind every Path.Bind* method: a path
// may be bound exactly once; rebinding to a *different* kind is a BugCheck
// ("calling twice on the same path with different kinds is a
// BugCheck").
func (p *Path) bindOnce(b PathBinding) {
	if p.binding != nil {
		if p.binding.Kind != b.Kind {
			panic(bugCheck(errors.BUG001, fmt.Sprintf(
				"path %q already bound as %v, cannot rebind as %v", p, p.binding.Kind, b.Kind)))
		}
		// Re-binding to the same kind (e.g. a second visit of an anon
		// module during recursive expansion) is accepted idempotently.
	}
	p.binding = &b
}

func (p *Path) BindModule(target AbsolutePath) {
	p.bindOnce(PathBinding{Kind: BindModule, Target: target})
}

func (p *Path) BindStruct(target AbsolutePath) {
	p.bindOnce(PathBinding{Kind: BindStruct, Target: target})
}

func (p *Path) BindEnumVariant(enumPath AbsolutePath, index int) {
	p.bindOnce(PathBinding{Kind: BindEnumVariant, EnumPath: enumPath, EnumIndex: index})
}

func (p *Path) BindFunction(target AbsolutePath) {
	p.bindOnce(PathBinding{Kind: BindFunction, Target: target})
}

func (p *Path) BindConst(target AbsolutePath) {
	p.bindOnce(PathBinding{Kind: BindConst, Target: target})
}

func (p *Path) BindStatic(target AbsolutePath) {
	p.bindOnce(PathBinding{Kind: BindStatic, Target: target})
}

func (p *Path) BindTypeParameter(level, index int) {
	p.bindOnce(PathBinding{Kind: BindTypeParameter, TypeParamLevel: level, TypeParamIndex: index})
}

func (p *Path) BindLocalVariable(slot int) {
	p.bindOnce(PathBinding{Kind: BindLocalVariable, LocalSlot: slot})
}

func (p *Path) BindStructMethod(target AbsolutePath) {
	p.bindOnce(PathBinding{Kind: BindStructMethod, Target: target})
}

func (p *Path) BindTraitMethod(target AbsolutePath) {
	p.bindOnce(PathBinding{Kind: BindTraitMethod, Target: target})
}

// SubstituteArgs replaces the generic arguments attached to the final
// segment of an already-bound path without re-running resolution.
// Modeled on `Path::resolve_args`.
func (p *Path) SubstituteArgs(args []TypeRef) {
	if len(p.Nodes) == 0 {
		return
	}
	p.Nodes[len(p.Nodes)-1].Params = args
}

// bugCheckPanic is the concrete panic value for 's "Bug checks"
// class: invariant failures abort the process rather than being reported as
// user diagnostics.
type bugCheckPanic struct {
	Code    string
	Message string
}

func (b bugCheckPanic) Error() string { return b.Code + ": " + b.Message }

func bugCheck(code, msg string) bugCheckPanic {
	return bugCheckPanic{Code: code, Message: msg}
}
