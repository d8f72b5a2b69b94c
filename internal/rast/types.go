package rast

import (
	"fmt"
	"strings"
)

// TypeRefKind discriminates TypeRef's sum-type shapes ("TypeRef").
type TypeRefKind int

const (
	TAny TypeRefKind = iota
	TBang
	TUnit
	TPrimitive
	TTuple
	TBorrow
	TPointer
	TArray
	TSlice
	TFunction
	TPath
	TTraitObject
	TErasedType // impl Trait
	TGeneric
	TMacro // pending macro expansion
)

// PrimitiveType enumerates the built-in scalar types.
type PrimitiveType int

const (
	PrimBool PrimitiveType = iota
	PrimChar
	PrimStr
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimI128
	PrimIsize
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimU128
	PrimUsize
	PrimF32
	PrimF64
)

var primitiveNames = map[PrimitiveType]string{
	PrimBool: "bool", PrimChar: "char", PrimStr: "str",
	PrimI8: "i8", PrimI16: "i16", PrimI32: "i32", PrimI64: "i64", PrimI128: "i128", PrimIsize: "isize",
	PrimU8: "u8", PrimU16: "u16", PrimU32: "u32", PrimU64: "u64", PrimU128: "u128", PrimUsize: "usize",
	PrimF32: "f32", PrimF64: "f64",
}

func (p PrimitiveType) String() string { return primitiveNames[p] }

// FunctionTypeSig is the `Type_Function` payload of a `TFunction` TypeRef.
type FunctionTypeSig struct {
	Params   []TypeRef
	Return   TypeRef
	Unsafe   bool
	ABI      string
}

// TypeRef is the type-expression sum type.
type TypeRef struct {
	Kind TypeRefKind

	Prim PrimitiveType // TPrimitive

	Tuple []TypeRef // TTuple

	// TBorrow
	Lifetime string
	Mutable  bool
	Inner    *TypeRef // TBorrow, TPointer, TArray, TSlice element type

	// TArray
	SizeExpr ArraySize

	// TFunction
	Func *FunctionTypeSig

	// TPath
	Path *Path

	// TTraitObject / TErasedType
	Traits    []GenericPath
	MaybeTraits []GenericPath // `?Sized`-style relaxed bounds (TErasedType only)
	Lifetimes []string

	// TGeneric
	GenericName  string
	GenericIndex int

	// TMacro
	PendingMacro *MacroInvocationExpr
}

// ArraySize is the const-expression (or already-evaluated literal) sizing an
// array type. Evaluation is the responsibility of internal/consteval, which
// fills in Resolved/Value in place once the length expression is known.
type ArraySize struct {
	Expr     Expr // unevaluated const expression, nil once Value is set
	Resolved bool
	Value    uint64
}

func Unit() TypeRef       { return TypeRef{Kind: TUnit} }
func Bang() TypeRef       { return TypeRef{Kind: TBang} }
func Any() TypeRef        { return TypeRef{Kind: TAny} }
func Prim(p PrimitiveType) TypeRef { return TypeRef{Kind: TPrimitive, Prim: p} }

func Generic(name string, index int) TypeRef {
	return TypeRef{Kind: TGeneric, GenericName: name, GenericIndex: index}
}

func PathType(p *Path) TypeRef { return TypeRef{Kind: TPath, Path: p} }

func Borrow(lifetime string, mut bool, inner TypeRef) TypeRef {
	return TypeRef{Kind: TBorrow, Lifetime: lifetime, Mutable: mut, Inner: &inner}
}

func Slice(inner TypeRef) TypeRef { return TypeRef{Kind: TSlice, Inner: &inner} }

func Array(inner TypeRef, size ArraySize) TypeRef {
	return TypeRef{Kind: TArray, Inner: &inner, SizeExpr: size}
}

func (t TypeRef) String() string {
	switch t.Kind {
	case TAny:
		return "_"
	case TBang:
		return "!"
	case TUnit:
		return "()"
	case TPrimitive:
		return t.Prim.String()
	case TTuple:
		parts := make([]string, len(t.Tuple))
		for i, e := range t.Tuple {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case TBorrow:
		m := ""
		if t.Mutable {
			m = "mut "
		}
		lt := ""
		if t.Lifetime != "" {
			lt = "'" + t.Lifetime + " "
		}
		return "&" + lt + m + t.Inner.String()
	case TPointer:
		m := "const"
		if t.Mutable {
			m = "mut"
		}
		return fmt.Sprintf("*%s %s", m, t.Inner.String())
	case TArray:
		return fmt.Sprintf("[%s; %d]", t.Inner.String(), t.SizeExpr.Value)
	case TSlice:
		return "[" + t.Inner.String() + "]"
	case TFunction:
		parts := make([]string, len(t.Func.Params))
		for i, p := range t.Func.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("fn(%s) -> %s", strings.Join(parts, ", "), t.Func.Return.String())
	case TPath:
		return t.Path.String()
	case TTraitObject:
		parts := make([]string, len(t.Traits))
		for i, tr := range t.Traits {
			parts[i] = tr.String()
		}
		return "dyn " + strings.Join(parts, " + ")
	case TErasedType:
		parts := make([]string, len(t.Traits))
		for i, tr := range t.Traits {
			parts[i] = tr.String()
		}
		return "impl " + strings.Join(parts, " + ")
	case TGeneric:
		return t.GenericName
	case TMacro:
		return "<pending macro>"
	default:
		return "<?type>"
	}
}

// Ord implements `TypeRef::ord`: a total order over type shapes used
// both for `==` and for canonicalization. Recurses structurally, deferring
// to Path.Ord for path types.
func (t TypeRef) Ord(o TypeRef) int {
	if t.Kind != o.Kind {
		if t.Kind < o.Kind {
			return -1
		}
		return 1
	}
	switch t.Kind {
	case TPrimitive:
		return intCmp(int(t.Prim), int(o.Prim))
	case TTuple:
		return ordSlice(t.Tuple, o.Tuple)
	case TBorrow, TPointer, TArray, TSlice:
		if c := boolCmp(t.Mutable, o.Mutable); c != 0 {
			return c
		}
		if t.Kind == TArray && t.SizeExpr.Value != o.SizeExpr.Value {
			if t.SizeExpr.Value < o.SizeExpr.Value {
				return -1
			}
			return 1
		}
		return t.Inner.Ord(*o.Inner)
	case TFunction, TTraitObject, TErasedType:
		return strCmp(t.String(), o.String())
	case TPath:
		return t.Path.Ord(o.Path)
	case TGeneric:
		return intCmp(t.GenericIndex, o.GenericIndex)
	default:
		return 0
	}
}

func (p *Path) Ord(o *Path) int {
	if p.Shape != o.Shape {
		if p.Shape < o.Shape {
			return -1
		}
		return 1
	}
	return strCmp(p.String(), o.String())
}

func ordSlice(a, b []TypeRef) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := a[i].Ord(b[i]); c != 0 {
			return c
		}
	}
	return intCmp(len(a), len(b))
}

func intCmp(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func boolCmp(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func strCmp(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Equal reports structural equality, defined in terms of Ord.
func (t TypeRef) Equal(o TypeRef) bool { return t.Ord(o) == 0 }
