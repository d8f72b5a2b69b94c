package rast

import "github.com/rustbootstrap/mrustc-core/internal/rspan"

// PatternKind discriminates Pattern's sum-type shapes ("Pattern").
type PatternKind int

const (
	PatAny PatternKind = iota
	PatBinding
	PatValue
	PatRef
	PatBox
	PatTuple
	PatStruct
	PatTupleStruct
	PatWildcardVariant
	PatSlice
	// PatMaybeBind and PatMacro are transient parse-time states, resolved
	// away before HIR lowering.
	PatMaybeBind
	PatMacro
)

// BindingMode mirrors Rust's by-value/by-ref binding modes.
type BindingMode int

const (
	BindByValue BindingMode = iota
	BindByRef
	BindByRefMut
)

// Pattern is the pattern-matching sum type.
type Pattern struct {
	span *rspan.Span
	Kind PatternKind

	// PatBinding
	Name    string
	Mode    BindingMode
	Mutable bool
	Slot    int
	Inner   *Pattern // Some(x) style sub-binding, nil for plain bindings

	// PatValue: range [Start,End]; Start==End for a single value.
	Start, End Expr

	// PatRef / PatBox
	Sub *Pattern

	// PatTuple / PatTupleStruct / PatSlice "middle" elements
	Elems []Pattern

	// PatSlice
	Leading   []Pattern
	ExtraBind string // name bound to the variable-length middle, "" if none
	Trailing  []Pattern

	// PatStruct / PatTupleStruct / PatWildcardVariant
	StructPath    *Path
	FieldPatterns []FieldPattern
	IsExhaustive  bool // true iff no `..` and every field listed
}

// FieldPattern is one `name: pattern` entry of a struct pattern.
type FieldPattern struct {
	Name    string
	Pattern Pattern
}

func (p *Pattern) Span() *rspan.Span { return p.span }

func NewBindingPattern(span *rspan.Span, name string, mode BindingMode, mutable bool) *Pattern {
	return &Pattern{span: span, Kind: PatBinding, Name: name, Mode: mode, Mutable: mutable}
}

func NewStructPattern(span *rspan.Span, path *Path, fields []FieldPattern, hasRest bool) *Pattern {
	return &Pattern{
		span:          span,
		Kind:          PatStruct,
		StructPath:    path,
		FieldPatterns: fields,
		// is_exhaustive is true iff the pattern listed all fields without ...
		IsExhaustive: !hasRest,
	}
}
