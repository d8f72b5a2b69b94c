// Package derive implements the built-in derive handlers: one
// function per recognized trait name, each producing a fresh `impl Trait
// for Type` AST subtree to be spliced into the enclosing module.
//
// Follows a field-bound rule (a type parameter gets a `Ti: TraitBound` on
// the generated impl when some non-PhantomData field type mentions it; type
// parameters no field mentions, and field types themselves, get no bound),
// the PhantomData-skip rule, and a
// visitor-returns-rewritten-tree style for how a derive handler assembles a
// new subtree rather than mutating in place.
package derive

import (
	"fmt"

	"github.com/rustbootstrap/mrustc-core/internal/errors"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

// StructLike abstracts over StructItem/EnumItem/UnionItem so one field-walk
// implementation serves all three (deriving Default on enums is
// explicitly forbidden, handled in DeriveDefault below).
type StructLike interface {
	rast.Item
}

// Target describes what a derive is being generated against.
type Target struct {
	Name     string // the type's own name, used for Debug's struct label etc.
	Generics *rast.GenericParams
	SelfType rast.TypeRef
	Struct   *rast.StructItem // nil unless deriving against a struct
	Enum     *rast.EnumItem   // nil unless deriving against an enum
	Union    *rast.UnionItem  // nil unless deriving against a union
}

func mentionsGeneric(t rast.TypeRef, idx int) bool {
	switch t.Kind {
	case rast.TGeneric:
		return t.GenericIndex == idx
	case rast.TTuple:
		for _, e := range t.Tuple {
			if mentionsGeneric(e, idx) {
				return true
			}
		}
	case rast.TBorrow, rast.TPointer, rast.TArray, rast.TSlice:
		if t.Inner != nil {
			return mentionsGeneric(*t.Inner, idx)
		}
	}
	return false
}

// isPhantomData reports whether t is (textually) PhantomData<...>, which
// the field-bound rule and Clone/Debug generation both skip.
func isPhantomData(t rast.TypeRef) bool {
	return t.Kind == rast.TPath && t.Path != nil && t.Path.String() == "core::marker::PhantomData"
}

// fieldBoundGenerics clones base and, for every declared type parameter
// that is a bare type param (not a lifetime/const) and is mentioned by at
// least one non-PhantomData field type in fields, adds a `Ti: traitPath`
// bound on that parameter. Parameters no such field mentions get no bound,
// and no bound is added on the field types themselves.
func fieldBoundGenerics(base *rast.GenericParams, traitPath rast.GenericPath, fields []rast.StructField) rast.GenericParams {
	out := rast.GenericParams{Params: append([]rast.GenericParam(nil), base.Params...)}
	for i, p := range base.Params {
		if p.Kind != rast.GPType {
			continue
		}
		needed := false
		for _, f := range fields {
			if isPhantomData(f.Type) {
				continue
			}
			if mentionsGeneric(f.Type, i) {
				needed = true
				break
			}
		}
		if !needed {
			continue
		}
		start := len(out.Bounds)
		out.Bounds = append(out.Bounds, rast.GenericBound{Kind: rast.GBIsTrait, Trait: traitPath})
		out.Params[i].BoundsStart = start
		out.Params[i].BoundsEnd = len(out.Bounds)
	}
	return out
}

func corePath(nodes ...string) rast.AbsolutePath {
	return rast.AbsolutePath{Crate: "core", Nodes: nodes}
}

func traitGenericPath(nodes ...string) rast.GenericPath {
	return rast.GenericPath{Path: corePath(nodes...)}
}

func selfPath() *rast.Path {
	return rast.NewLocalPath(nil, "self")
}

func newImpl(span *rast.ItemCommon, generics rast.GenericParams, trait rast.GenericPath, selfType rast.TypeRef) *rast.ImplItem {
	im := rast.NewImplItem(nil)
	im.Generics = generics
	im.TraitPath = &trait
	im.SelfType = selfType
	return im
}

func fieldsOf(t Target) ([]rast.StructField, bool) {
	if t.Struct != nil {
		return t.Struct.Fields, true
	}
	return nil, false
}

// DeriveDebug generates `impl Debug for Type { fn fmt(&self, f) -> Result
// {...} }` (, E2E scenario 1).
//
// For a named struct with fields a, b: the body is the literal chain
// `let s = f.debug_struct("Name"); s.field("a", &&self.a); s.field("b",
// &&self.b); s.finish()`. Tuple structs and enum variants use the same
// debug_struct builder; debug_tuple is not generated.
func DeriveDebug(t Target) (*rast.ImplItem, error) {
	traitPath := traitGenericPath("fmt", "Debug")
	fields, _ := fieldsOf(t)
	generics := fieldBoundGenerics(t.Generics, traitPath, fields)
	im := newImpl(nil, generics, traitPath, t.SelfType)

	fn := rast.NewFunctionItem(nil, "fmt", true)
	fn.Self = rast.SelfByRef
	fn.Params = []rast.Param{{Name: "f", Type: rast.PathType(rast.NewRelativePath(nil,
		[]rast.PathNode{{Name: "fmt"}, {Name: "Formatter"}}))}}
	fn.ReturnType = rast.PathType(rast.NewRelativePath(nil,
		[]rast.PathNode{{Name: "fmt"}, {Name: "Result"}}))

	var stmts []rast.Stmt
	builderCall := rast.Expr(&rast.MethodCallExpr{
		Receiver: &rast.PathExpr{Path: rast.NewLocalPath(nil, "f")},
		Name:     "debug_struct",
		Args:     []rast.Expr{&rast.LitExpr{Kind: rast.LitStr, Value: t.Name}},
	})
	stmts = append(stmts, &rast.LetStmt{
		Pattern: *rast.NewBindingPattern(nil, "s", rast.BindByValue, false),
		Value:   builderCall,
	})
	if t.Struct != nil {
		shape := t.Struct.Shape
		methodName := "field"
		if shape == rast.StructTuple {
			methodName = "field" // debug_tuple's field accessor shares the name in this core
		}
		for _, f := range t.Struct.Fields {
			fieldAccess := rast.Expr(&rast.FieldExpr{
				Receiver: &rast.PathExpr{Path: selfPath()},
				Name:     f.Name,
			})
			stmts = append(stmts, &rast.ExprStmt{Expr: &rast.MethodCallExpr{
				Receiver: &rast.PathExpr{Path: rast.NewLocalPath(nil, "s")},
				Name:     methodName,
				Args: []rast.Expr{
					&rast.LitExpr{Kind: rast.LitStr, Value: f.Name},
					&rast.RefExpr{Inner: &rast.RefExpr{Inner: fieldAccess}},
				},
			}})
		}
	} else if t.Enum != nil {
		// Per-variant dispatch: match self against each variant; every arm
		// calls f.debug_struct with the variant's name.
		var arms []rast.MatchArm
		for _, v := range t.Enum.Variants {
			arms = append(arms, rast.MatchArm{
				Pattern: *rast.NewStructPattern(nil,
					rast.NewRelativePath(nil, []rast.PathNode{{Name: t.Name}, {Name: v.Name}}),
					nil, true),
				Body: &rast.MethodCallExpr{
					Receiver: &rast.PathExpr{Path: rast.NewLocalPath(nil, "f")},
					Name:     "debug_struct",
					Args:     []rast.Expr{&rast.LitExpr{Kind: rast.LitStr, Value: v.Name}},
				},
			})
		}
		stmts = append(stmts, &rast.ExprStmt{Expr: &rast.MatchExpr{
			Scrutinee: &rast.PathExpr{Path: selfPath()},
			Arms:      arms,
		}})
	}
	stmts = append(stmts, &rast.ExprStmt{Expr: &rast.MethodCallExpr{
		Receiver: &rast.PathExpr{Path: rast.NewLocalPath(nil, "s")},
		Name:     "finish",
	}})
	fn.Body = &rast.BlockExpr{Stmts: stmts[:len(stmts)-1], Tail: stmts[len(stmts)-1].(*rast.ExprStmt).Expr}
	im.Functions = []*rast.FunctionItem{fn}
	return im, nil
}

// DerivePartialEq generates `impl PartialEq for Type { fn eq(&self, v) ->
// bool {...} }` (, E2E scenario 2).
func DerivePartialEq(t Target) (*rast.ImplItem, error) {
	traitPath := traitGenericPath("cmp", "PartialEq")
	fields, _ := fieldsOf(t)
	generics := fieldBoundGenerics(t.Generics, traitPath, fields)
	im := newImpl(nil, generics, traitPath, t.SelfType)

	fn := rast.NewFunctionItem(nil, "eq", true)
	fn.Self = rast.SelfByRef
	fn.Params = []rast.Param{{Name: "v", Type: rast.Borrow("", false, t.SelfType)}}
	fn.ReturnType = rast.Prim(rast.PrimBool)

	if t.Struct != nil {
		var stmts []rast.Stmt
		for _, f := range t.Struct.Fields {
			cond := &rast.BinOpExpr{
				Op:   "!=",
				Left: &rast.FieldExpr{Receiver: &rast.PathExpr{Path: selfPath()}, Name: f.Name},
				Right: &rast.FieldExpr{
					Receiver: &rast.PathExpr{Path: rast.NewLocalPath(nil, "v")}, Name: f.Name,
				},
			}
			stmts = append(stmts, &rast.ExprStmt{Expr: &rast.IfExpr{
				Cond: cond,
				Then: &rast.BlockExpr{Tail: &rast.ReturnExpr{Value: &rast.LitExpr{Kind: rast.LitBool, Value: false}}},
			}})
		}
		fn.Body = &rast.BlockExpr{Stmts: stmts, Tail: &rast.LitExpr{Kind: rast.LitBool, Value: true}}
	} else if t.Enum != nil {
		var arms []rast.MatchArm
		for _, v := range t.Enum.Variants {
			variantPath := rast.NewRelativePath(nil, []rast.PathNode{{Name: t.Name}, {Name: v.Name}})

			names := func(prefix string) []string {
				out := make([]string, len(v.Fields))
				for i := range v.Fields {
					out[i] = fmt.Sprintf("%s%d", prefix, i)
				}
				return out
			}
			selfNames, otherNames := names("a"), names("b")

			refPattern := func(names []string) rast.Pattern {
				sub := rast.Pattern{Kind: rast.PatWildcardVariant, StructPath: variantPath, IsExhaustive: true}
				if len(names) > 0 {
					sub.Kind = rast.PatTupleStruct
					sub.Elems = make([]rast.Pattern, len(names))
					for i, n := range names {
						sub.Elems[i] = *rast.NewBindingPattern(nil, n, rast.BindByRef, false)
					}
				}
				return rast.Pattern{Kind: rast.PatRef, Sub: &sub}
			}

			var stmts []rast.Stmt
			for i := range v.Fields {
				cond := &rast.BinOpExpr{
					Op:    "!=",
					Left:  &rast.PathExpr{Path: rast.NewLocalPath(nil, selfNames[i])},
					Right: &rast.PathExpr{Path: rast.NewLocalPath(nil, otherNames[i])},
				}
				stmts = append(stmts, &rast.ExprStmt{Expr: &rast.IfExpr{
					Cond: cond,
					Then: &rast.BlockExpr{Tail: &rast.ReturnExpr{Value: &rast.LitExpr{Kind: rast.LitBool, Value: false}}},
				}})
			}
			arms = append(arms, rast.MatchArm{
				Pattern: rast.Pattern{Kind: rast.PatTuple, Elems: []rast.Pattern{refPattern(selfNames), refPattern(otherNames)}},
				Body:    &rast.BlockExpr{Stmts: stmts, Tail: &rast.LitExpr{Kind: rast.LitBool, Value: true}},
			})
		}
		arms = append(arms, rast.MatchArm{
			Pattern: rast.Pattern{Kind: rast.PatAny},
			Body:    &rast.LitExpr{Kind: rast.LitBool, Value: false},
		})
		fn.Body = &rast.BlockExpr{Tail: &rast.MatchExpr{
			Scrutinee: &rast.TupleExpr{Elems: []rast.Expr{
				&rast.PathExpr{Path: selfPath()}, &rast.PathExpr{Path: rast.NewLocalPath(nil, "v")},
			}},
			Arms: arms,
		}}
	}
	im.Functions = []*rast.FunctionItem{fn}
	return im, nil
}

// DerivePartialOrd generates `partial_cmp(&self, v) -> Option<Ordering>`:
// a field-sequence short-circuit ending in `Some(Equal)`.
func DerivePartialOrd(t Target) (*rast.ImplItem, error) {
	traitPath := traitGenericPath("cmp", "PartialOrd")
	fields, _ := fieldsOf(t)
	generics := fieldBoundGenerics(t.Generics, traitPath, fields)
	im := newImpl(nil, generics, traitPath, t.SelfType)

	fn := rast.NewFunctionItem(nil, "partial_cmp", true)
	fn.Self = rast.SelfByRef
	fn.Params = []rast.Param{{Name: "v", Type: rast.Borrow("", false, t.SelfType)}}
	fn.ReturnType = rast.PathType(rast.NewRelativePath(nil,
		[]rast.PathNode{{Name: "option"}, {Name: "Option"}}))

	equalSome := rast.Expr(&rast.CallExpr{
		Func: &rast.PathExpr{Path: rast.NewRelativePath(nil, []rast.PathNode{{Name: "option"}, {Name: "Some"}})},
		Args: []rast.Expr{&rast.PathExpr{Path: rast.NewRelativePath(nil,
			[]rast.PathNode{{Name: "cmp"}, {Name: "Ordering"}, {Name: "Equal"}})}},
	})

	var stmts []rast.Stmt
	if t.Enum != nil {
		stmts = append(stmts, &rast.ExprStmt{Expr: &rast.CallExpr{
			Func: &rast.PathExpr{Path: rast.NewRelativePath(nil,
				[]rast.PathNode{{Name: "intrinsics"}, {Name: "discriminant_value"}})},
			Args: []rast.Expr{&rast.PathExpr{Path: selfPath()}},
		}})
	} else if t.Struct != nil {
		for i, f := range t.Struct.Fields {
			slot := fmt.Sprintf("c%d", i)
			cmp := &rast.MethodCallExpr{
				Receiver: &rast.FieldExpr{Receiver: &rast.PathExpr{Path: selfPath()}, Name: f.Name},
				Name:     "partial_cmp",
				Args: []rast.Expr{&rast.RefExpr{Inner: &rast.FieldExpr{
					Receiver: &rast.PathExpr{Path: rast.NewLocalPath(nil, "v")}, Name: f.Name,
				}}},
			}
			stmts = append(stmts, &rast.LetStmt{
				Pattern: *rast.NewBindingPattern(nil, slot, rast.BindByValue, false),
				Value:   cmp,
			})
			stmts = append(stmts, &rast.ExprStmt{Expr: &rast.IfExpr{
				Cond: &rast.BinOpExpr{Op: "!=", Left: &rast.PathExpr{Path: rast.NewLocalPath(nil, slot)}, Right: equalSome},
				Then: &rast.BlockExpr{Tail: &rast.ReturnExpr{Value: &rast.PathExpr{Path: rast.NewLocalPath(nil, slot)}}},
			}})
		}
	}
	fn.Body = &rast.BlockExpr{Stmts: stmts, Tail: equalSome}
	im.Functions = []*rast.FunctionItem{fn}
	return im, nil
}

// DeriveEq generates the marker method `assert_receiver_is_total_eq(&self)`
// which recursively asserts on each field.
func DeriveEq(t Target) (*rast.ImplItem, error) {
	traitPath := traitGenericPath("cmp", "Eq")
	fields, _ := fieldsOf(t)
	generics := fieldBoundGenerics(t.Generics, traitPath, fields)
	im := newImpl(nil, generics, traitPath, t.SelfType)

	fn := rast.NewFunctionItem(nil, "assert_receiver_is_total_eq", true)
	fn.Self = rast.SelfByRef
	fn.ReturnType = rast.Unit()

	var stmts []rast.Stmt
	for _, f := range fields {
		if isPhantomData(f.Type) {
			continue
		}
		stmts = append(stmts, &rast.ExprStmt{Expr: &rast.MethodCallExpr{
			Receiver: &rast.FieldExpr{Receiver: &rast.PathExpr{Path: selfPath()}, Name: f.Name},
			Name:     "assert_receiver_is_total_eq",
		}})
	}
	fn.Body = &rast.BlockExpr{Stmts: stmts, Tail: &rast.TupleExpr{}}
	im.Functions = []*rast.FunctionItem{fn}
	return im, nil
}

// DeriveOrd generates `cmp(&self, v) -> Ordering`, the same shape as
// partial_cmp without the Option wrapper.
func DeriveOrd(t Target) (*rast.ImplItem, error) {
	traitPath := traitGenericPath("cmp", "Ord")
	fields, _ := fieldsOf(t)
	generics := fieldBoundGenerics(t.Generics, traitPath, fields)
	im := newImpl(nil, generics, traitPath, t.SelfType)

	fn := rast.NewFunctionItem(nil, "cmp", true)
	fn.Self = rast.SelfByRef
	fn.Params = []rast.Param{{Name: "v", Type: rast.Borrow("", false, t.SelfType)}}
	fn.ReturnType = rast.PathType(rast.NewRelativePath(nil,
		[]rast.PathNode{{Name: "cmp"}, {Name: "Ordering"}}))
	equal := rast.Expr(&rast.PathExpr{Path: rast.NewRelativePath(nil,
		[]rast.PathNode{{Name: "cmp"}, {Name: "Ordering"}, {Name: "Equal"}})})
	var stmts []rast.Stmt
	for i, f := range fields {
		slot := fmt.Sprintf("c%d", i)
		stmts = append(stmts, &rast.LetStmt{
			Pattern: *rast.NewBindingPattern(nil, slot, rast.BindByValue, false),
			Value: &rast.MethodCallExpr{Receiver: &rast.FieldExpr{Receiver: &rast.PathExpr{Path: selfPath()}, Name: f.Name}, Name: "cmp",
				Args: []rast.Expr{&rast.RefExpr{Inner: &rast.FieldExpr{Receiver: &rast.PathExpr{Path: rast.NewLocalPath(nil, "v")}, Name: f.Name}}}},
		}, &rast.ExprStmt{Expr: &rast.IfExpr{
			Cond: &rast.BinOpExpr{Op: "!=", Left: &rast.PathExpr{Path: rast.NewLocalPath(nil, slot)}, Right: equal},
			Then: &rast.BlockExpr{Tail: &rast.ReturnExpr{Value: &rast.PathExpr{Path: rast.NewLocalPath(nil, slot)}}},
		}})
	}
	fn.Body = &rast.BlockExpr{Stmts: stmts, Tail: equal}
	im.Functions = []*rast.FunctionItem{fn}
	return im, nil
}

// DeriveClone generates `clone(&self) -> Self`, cloning every field; for
// unions this requires Copy and compiles to a bitwise copy (represented
// here as a bare `*self`).
func DeriveClone(t Target) (*rast.ImplItem, error) {
	traitPath := traitGenericPath("clone", "Clone")
	fields, _ := fieldsOf(t)
	generics := fieldBoundGenerics(t.Generics, traitPath, fields)
	im := newImpl(nil, generics, traitPath, t.SelfType)

	fn := rast.NewFunctionItem(nil, "clone", true)
	fn.Self = rast.SelfByRef
	fn.ReturnType = t.SelfType

	if t.Union != nil {
		fn.Body = &rast.BlockExpr{Tail: &rast.UnOpExpr{Op: "*", Inner: &rast.PathExpr{Path: selfPath()}}}
		im.Functions = []*rast.FunctionItem{fn}
		return im, nil
	}

	if t.Struct != nil {
		var fieldValues []rast.FieldValue
		for _, f := range t.Struct.Fields {
			var v rast.Expr
			if isPhantomData(f.Type) {
				v = &rast.PathExpr{Path: rast.NewRelativePath(nil, []rast.PathNode{{Name: "marker"}, {Name: "PhantomData"}})}
			} else {
				v = &rast.MethodCallExpr{
					Receiver: &rast.FieldExpr{Receiver: &rast.PathExpr{Path: selfPath()}, Name: f.Name},
					Name:     "clone",
				}
			}
			fieldValues = append(fieldValues, rast.FieldValue{Name: f.Name, Value: v})
		}
		fn.Body = &rast.BlockExpr{Tail: &rast.StructLitExpr{
			Path: rast.NewLocalPath(nil, t.Name), Fields: fieldValues,
		}}
	}
	im.Functions = []*rast.FunctionItem{fn}
	return im, nil
}

// DeriveCopy generates the Copy marker impl: no method body.
func DeriveCopy(t Target) (*rast.ImplItem, error) {
	traitPath := traitGenericPath("marker", "Copy")
	fields, _ := fieldsOf(t)
	generics := fieldBoundGenerics(t.Generics, traitPath, fields)
	return newImpl(nil, generics, traitPath, t.SelfType), nil
}

// DeriveDefault generates `default() -> Self`, invoking `Default::default()`
// per field. Deriving Default on an enum is an error.
func DeriveDefault(t Target) (*rast.ImplItem, error) {
	if t.Enum != nil {
		return nil, fmt.Errorf("%s: cannot derive Default for enum %s", errors.EXP002, t.Name)
	}
	traitPath := traitGenericPath("default", "Default")
	fields, _ := fieldsOf(t)
	generics := fieldBoundGenerics(t.Generics, traitPath, fields)
	im := newImpl(nil, generics, traitPath, t.SelfType)

	fn := rast.NewFunctionItem(nil, "default", true)
	fn.ReturnType = t.SelfType

	var fieldValues []rast.FieldValue
	for _, f := range fields {
		fieldValues = append(fieldValues, rast.FieldValue{
			Name: f.Name,
			Value: &rast.CallExpr{
				Func: &rast.PathExpr{Path: rast.NewRelativePath(nil,
					[]rast.PathNode{{Name: "default"}, {Name: "Default"}, {Name: "default"}})},
			},
		})
	}
	fn.Body = &rast.BlockExpr{Tail: &rast.StructLitExpr{Path: rast.NewLocalPath(nil, t.Name), Fields: fieldValues}}
	im.Functions = []*rast.FunctionItem{fn}
	return im, nil
}

// DeriveHash generates `hash<H: Hasher>(&self, state)`, hashing each field;
// for enums the discriminant ordinal is hashed first.
func DeriveHash(t Target) (*rast.ImplItem, error) {
	traitPath := traitGenericPath("hash", "Hash")
	fields, _ := fieldsOf(t)
	generics := fieldBoundGenerics(t.Generics, traitPath, fields)
	im := newImpl(nil, generics, traitPath, t.SelfType)

	fn := rast.NewFunctionItem(nil, "hash", true)
	fn.Self = rast.SelfByRef
	fn.Params = []rast.Param{{Name: "state", Type: rast.Borrow("", true, rast.Generic("H", 0))}}

	var stmts []rast.Stmt
	if t.Enum != nil {
		stmts = append(stmts, &rast.ExprStmt{Expr: &rast.MethodCallExpr{
			Receiver: &rast.CallExpr{
				Func: &rast.PathExpr{Path: rast.NewRelativePath(nil,
					[]rast.PathNode{{Name: "intrinsics"}, {Name: "discriminant_value"}})},
				Args: []rast.Expr{&rast.PathExpr{Path: selfPath()}},
			},
			Name: "hash",
			Args: []rast.Expr{&rast.PathExpr{Path: rast.NewLocalPath(nil, "state")}},
		}})
	}
	for _, f := range fields {
		if isPhantomData(f.Type) {
			continue
		}
		stmts = append(stmts, &rast.ExprStmt{Expr: &rast.MethodCallExpr{
			Receiver: &rast.FieldExpr{Receiver: &rast.PathExpr{Path: selfPath()}, Name: f.Name},
			Name:     "hash",
			Args:     []rast.Expr{&rast.PathExpr{Path: rast.NewLocalPath(nil, "state")}},
		}})
	}
	fn.Body = &rast.BlockExpr{Stmts: stmts, Tail: &rast.TupleExpr{}}
	im.Functions = []*rast.FunctionItem{fn}
	return im, nil
}

// DeriveRustcEncodable generates `encode(&self, s)` whose body is a single
// `s.emit_struct(name, field_count)` call; no per-field closures are
// generated.
func DeriveRustcEncodable(t Target) (*rast.ImplItem, error) {
	traitPath := traitGenericPath("rustc_serialize", "Encodable")
	fields, _ := fieldsOf(t)
	generics := fieldBoundGenerics(t.Generics, traitPath, fields)
	im := newImpl(nil, generics, traitPath, t.SelfType)

	fn := rast.NewFunctionItem(nil, "encode", true)
	fn.Self = rast.SelfByRef
	fn.Params = []rast.Param{{Name: "s", Type: rast.Borrow("", true, rast.Generic("S", 0))}}
	fn.ReturnType = rast.PathType(rast.NewRelativePath(nil, []rast.PathNode{{Name: "result"}, {Name: "Result"}}))

	args := []rast.Expr{&rast.LitExpr{Kind: rast.LitStr, Value: t.Name},
		&rast.LitExpr{Kind: rast.LitInt, Value: uint64(len(fields))}}
	fn.Body = &rast.BlockExpr{Tail: &rast.MethodCallExpr{
		Receiver: &rast.PathExpr{Path: rast.NewLocalPath(nil, "s")},
		Name:     "emit_struct",
		Args:     args,
	}}
	im.Functions = []*rast.FunctionItem{fn}
	return im, nil
}

// DeriveRustcDecodable generates `decode(d)` whose body is a single
// `d.read_struct(name)` call; no per-field lambdas or companion reads are
// generated.
func DeriveRustcDecodable(t Target) (*rast.ImplItem, error) {
	traitPath := traitGenericPath("rustc_serialize", "Decodable")
	fields, _ := fieldsOf(t)
	generics := fieldBoundGenerics(t.Generics, traitPath, fields)
	im := newImpl(nil, generics, traitPath, t.SelfType)

	fn := rast.NewFunctionItem(nil, "decode", true)
	fn.Params = []rast.Param{{Name: "d", Type: rast.Borrow("", true, rast.Generic("D", 0))}}
	fn.ReturnType = rast.PathType(rast.NewRelativePath(nil, []rast.PathNode{{Name: "result"}, {Name: "Result"}}))

	fn.Body = &rast.BlockExpr{Tail: &rast.MethodCallExpr{
		Receiver: &rast.PathExpr{Path: rast.NewLocalPath(nil, "d")},
		Name:     "read_struct",
		Args:     []rast.Expr{&rast.LitExpr{Kind: rast.LitStr, Value: t.Name}},
	}}
	im.Functions = []*rast.FunctionItem{fn}
	return im, nil
}

// Handlers maps each recognized derive trait name to its handler.
var Handlers = map[string]func(Target) (*rast.ImplItem, error){
	"Debug":           DeriveDebug,
	"PartialEq":       DerivePartialEq,
	"PartialOrd":      DerivePartialOrd,
	"Eq":              DeriveEq,
	"Ord":             DeriveOrd,
	"Clone":           DeriveClone,
	"Copy":            DeriveCopy,
	"Default":         DeriveDefault,
	"Hash":            DeriveHash,
	"RustcEncodable":  DeriveRustcEncodable,
	"RustcDecodable":  DeriveRustcDecodable,
}

// Dispatch looks up and runs the built-in handler for trait name traitName.
// Unknown names return EXP001, the "unknown derive trait" error code.
func Dispatch(traitName string, t Target) (*rast.ImplItem, error) {
	h, ok := Handlers[traitName]
	if !ok {
		return nil, fmt.Errorf("%s: unknown derive trait %q", errors.EXP001, traitName)
	}
	return h(t)
}
