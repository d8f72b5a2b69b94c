// Package hir implements the HIR conversion passes: a
// sequence of visitors over the item tree that expand type aliases,
// substitute Self, bind paths, assign lifetimes, and compute per-struct
// markings (DST/CoerceUnsized/Copy/Niche).
//
// Grounded on a tree-shaped IR with per-node position bookkeeping, and on
// a "driver struct with one method per pass, each pass walking the tree
// and returning a rewritten/annotated tree" style, generalized from a
// single desugar+normalize pipeline to the eight-pass pipeline §6 names
// (ConvertHIR_ExpandAliases, _ExpandAliases_Self, _Bind,
// _ResolveUFCS_Outer, _LifetimeElision, _Markings, _ResolveUFCS,
// _ConstantEvaluate).
package hir

import (
	"fmt"

	"github.com/rustbootstrap/mrustc-core/internal/errors"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

// MaxRecursiveTypeExpansions bounds alias-expansion recursion (// item 1: "MAX_RECURSIVE_TYPE_EXPANSIONS = 100").
const MaxRecursiveTypeExpansions = 100

// Crate is the HIR-stage unit of compilation: the root module plus the
// lookup tables the passes below populate and consume.
type Crate struct {
	Root *rast.Module

	// aliases maps an absolute path to its declared target, populated by
	// the driver from every TypeAliasItem before ExpandAliases runs.
	aliases map[string]rast.TypeRef
	// structs/enums map absolute paths to their declarations, used by Bind
	// and Markings.
	structs map[string]*rast.StructItem
	enums   map[string]*rast.EnumItem
	traits  map[string]*rast.TraitItem

	// niches holds the ComputeNiche result per enum name, keyed by the
	// enum's own (unqualified) name rather than its full path since no
	// StructMarkings slot exists to carry a per-variant niche today.
	niches map[string]*rast.NicheInfo
}

// Niche returns the niche computed for the named enum by ComputeMarkings,
// if any.
func (c *Crate) Niche(enumName string) *rast.NicheInfo { return c.niches[enumName] }

// Structs, Enums, and Traits expose the driver-assembled lookup tables to
// callers (internal/pipeline, internal/consteval's Target) that need to walk
// or index them directly.
func (c *Crate) Structs() map[string]*rast.StructItem { return c.structs }
func (c *Crate) Enums() map[string]*rast.EnumItem     { return c.enums }
func (c *Crate) Traits() map[string]*rast.TraitItem   { return c.traits }

// NewCrate builds a Crate from a module tree and index tables assembled by
// the driver (internal/pipeline) from a full module walk.
func NewCrate(root *rast.Module, aliases map[string]rast.TypeRef, structs map[string]*rast.StructItem, enums map[string]*rast.EnumItem, traits map[string]*rast.TraitItem) *Crate {
	return &Crate{Root: root, aliases: aliases, structs: structs, enums: enums, traits: traits, niches: map[string]*rast.NicheInfo{}}
}

// ExpandAliases repeatedly substitutes `type` aliases for the top-level type
// of every struct and enum-variant field, bounded by
// MaxRecursiveTypeExpansions (item 1). Alias paths nested inside borrows,
// tuples, arrays or generic arguments, and types outside field declarations,
// are not rewritten. It then rewrites any pattern path that named an alias to the struct/variant it
// resolved to, collapsing a now-fieldless PatStruct pattern against a unit
// struct down to PatWildcardVariant.
func (c *Crate) ExpandAliases() error {
	for _, s := range c.structs {
		for i := range s.Fields {
			t, err := c.expandAliasChain(s.Fields[i].Type, 0)
			if err != nil {
				return err
			}
			s.Fields[i].Type = t
		}
	}
	for _, e := range c.enums {
		for vi := range e.Variants {
			for fi := range e.Variants[vi].Fields {
				t, err := c.expandAliasChain(e.Variants[vi].Fields[fi].Type, 0)
				if err != nil {
					return err
				}
				e.Variants[vi].Fields[fi].Type = t
			}
		}
	}
	if c.Root == nil {
		return nil
	}
	return c.walkPatterns(c.Root, c.rewritePatternPath)
}

// rewritePatternPath substitutes a type-alias path named by pat.StructPath
// with the path of the struct/variant it ultimately names, then collapses a
// PatStruct pattern with no field patterns against a unit struct to
// PatWildcardVariant. A unit struct's exhaustive named-field pattern and
// its bare-path pattern name the same match, and this core represents only
// the latter shape.
func (c *Crate) rewritePatternPath(pat *rast.Pattern) error {
	if pat.StructPath == nil {
		return nil
	}
	expanded, err := c.expandAliasChain(rast.PathType(pat.StructPath), 0)
	if err != nil {
		return err
	}
	if expanded.Kind == rast.TPath && expanded.Path != nil {
		pat.StructPath = expanded.Path
	}

	if pat.Kind != rast.PatStruct || len(pat.FieldPatterns) != 0 || !pat.IsExhaustive {
		return nil
	}
	name := pathLastSegment(pat.StructPath)
	for _, s := range c.structs {
		if s.Common().Name == name && s.IsUnit() {
			pat.Kind = rast.PatWildcardVariant
			break
		}
	}
	return nil
}

func (c *Crate) expandAliasChain(t rast.TypeRef, depth int) (rast.TypeRef, error) {
	if depth > MaxRecursiveTypeExpansions {
		return t, fmt.Errorf("%s: type-alias expansion exceeded %d steps", errors.HIR001, MaxRecursiveTypeExpansions)
	}
	if t.Kind != rast.TPath || t.Path == nil {
		return t, nil
	}
	target, ok := c.aliases[t.Path.String()]
	if !ok {
		return t, nil
	}
	return c.expandAliasChain(target, depth+1)
}

// ExpandAliasesSelf substitutes `Self` with the enclosing impl's declared
// type inside every method of that impl; outside impls, Self is left
// intact as a valid trait-definition anchor (item 2).
func ExpandAliasesSelf(impls []*rast.ImplItem) {
	for _, im := range impls {
		selfTy := im.SelfType
		for _, fn := range im.Functions {
			substituteSelfInFunction(fn, selfTy)
		}
	}
}

func substituteSelfInFunction(fn *rast.FunctionItem, selfTy rast.TypeRef) {
	for i := range fn.Params {
		if isSelfPath(fn.Params[i].Type) {
			fn.Params[i].Type = selfTy
		}
	}
	if isSelfPath(fn.ReturnType) {
		fn.ReturnType = selfTy
	}
}

func isSelfPath(t rast.TypeRef) bool {
	return t.Kind == rast.TPath && t.Path != nil && t.Path.String() == "self"
}

// Bind walks every let and match pattern in function bodies and attaches a
// PathBinding to each struct, tuple-struct or unit-variant pattern path whose
// last segment names a struct or an enum variant (item 3). Type paths, and
// paths naming a module, are not bound.
// Pattern kinds must match the bound variant's shape: a StructTuple pattern
// against a named-field variant is reported as AST003.
func (c *Crate) Bind() error {
	variantsByName := map[string][]struct {
		enumPath rast.AbsolutePath
		index    int
	}{}
	for path, e := range c.enums {
		enumPath, _ := parseAbsolutePathKey(path)
		for i, v := range e.Variants {
			variantsByName[v.Name] = append(variantsByName[v.Name], struct {
				enumPath rast.AbsolutePath
				index    int
			}{enumPath, i})
		}
	}
	structsByName := map[string]rast.AbsolutePath{}
	structShapes := map[string]rast.StructShape{}
	for key, s := range c.structs {
		p, _ := parseAbsolutePathKey(key)
		structsByName[s.Common().Name] = p
		structShapes[s.Common().Name] = s.Shape
	}

	bindOne := func(pat *rast.Pattern) error {
		if pat.StructPath == nil {
			return nil
		}
		name := pathLastSegment(pat.StructPath)
		if variants, ok := variantsByName[name]; ok && len(variants) > 0 {
			v := variants[0]
			shape := c.enums[v.enumPath.String()].Variants[v.index].Shape
			return BindPattern(pat, rast.AbsolutePath{}, shape, v.enumPath, v.index)
		}
		if structPath, ok := structsByName[name]; ok {
			return BindPattern(pat, structPath, structShapes[name], rast.AbsolutePath{}, 0)
		}
		return nil
	}

	return c.walkPatterns(c.Root, bindOne)
}

// walkPatterns visits every LetStmt and MatchArm pattern reachable from fn
// bodies in m and its descendants, applying visit to each.
func (c *Crate) walkPatterns(m *rast.Module, visit func(*rast.Pattern) error) error {
	var walkExpr func(e rast.Expr) error
	var walkStmt func(s rast.Stmt) error
	var walkPattern func(p *rast.Pattern) error

	walkPattern = func(p *rast.Pattern) error {
		if p == nil {
			return nil
		}
		switch p.Kind {
		case rast.PatStruct, rast.PatTupleStruct, rast.PatWildcardVariant:
			if err := visit(p); err != nil {
				return err
			}
		}
		for i := range p.Elems {
			if err := walkPattern(&p.Elems[i]); err != nil {
				return err
			}
		}
		return nil
	}

	walkExpr = func(e rast.Expr) error {
		switch v := e.(type) {
		case nil:
			return nil
		case *rast.BlockExpr:
			for _, s := range v.Stmts {
				if err := walkStmt(s); err != nil {
					return err
				}
			}
			return walkExpr(v.Tail)
		case *rast.CallExpr:
			if err := walkExpr(v.Func); err != nil {
				return err
			}
			for _, a := range v.Args {
				if err := walkExpr(a); err != nil {
					return err
				}
			}
		case *rast.MethodCallExpr:
			if err := walkExpr(v.Receiver); err != nil {
				return err
			}
			for _, a := range v.Args {
				if err := walkExpr(a); err != nil {
					return err
				}
			}
		case *rast.FieldExpr:
			return walkExpr(v.Receiver)
		case *rast.RefExpr:
			return walkExpr(v.Inner)
		case *rast.BinOpExpr:
			if err := walkExpr(v.Left); err != nil {
				return err
			}
			return walkExpr(v.Right)
		case *rast.UnOpExpr:
			return walkExpr(v.Inner)
		case *rast.IfExpr:
			if err := walkExpr(v.Cond); err != nil {
				return err
			}
			if err := walkExpr(v.Then); err != nil {
				return err
			}
			return walkExpr(v.Else)
		case *rast.MatchExpr:
			if err := walkExpr(v.Scrutinee); err != nil {
				return err
			}
			for i := range v.Arms {
				if err := walkPattern(&v.Arms[i].Pattern); err != nil {
					return err
				}
				if err := walkExpr(v.Arms[i].Guard); err != nil {
					return err
				}
				if err := walkExpr(v.Arms[i].Body); err != nil {
					return err
				}
			}
		case *rast.ReturnExpr:
			return walkExpr(v.Value)
		case *rast.StructLitExpr:
			for _, fv := range v.Fields {
				if err := walkExpr(fv.Value); err != nil {
					return err
				}
			}
			return walkExpr(v.Rest)
		case *rast.TupleExpr:
			for _, el := range v.Elems {
				if err := walkExpr(el); err != nil {
					return err
				}
			}
		}
		return nil
	}

	walkStmt = func(s rast.Stmt) error {
		switch v := s.(type) {
		case *rast.LetStmt:
			if err := walkPattern(&v.Pattern); err != nil {
				return err
			}
			return walkExpr(v.Value)
		case *rast.ExprStmt:
			return walkExpr(v.Expr)
		}
		return nil
	}

	walkFn := func(fn *rast.FunctionItem) error {
		if fn == nil || fn.Body == nil {
			return nil
		}
		return walkExpr(fn.Body)
	}

	for _, it := range m.Items() {
		switch v := it.(type) {
		case *rast.FunctionItem:
			if err := walkFn(v); err != nil {
				return err
			}
		case *rast.ModuleItem:
			if err := c.walkPatterns(v.Module, visit); err != nil {
				return err
			}
		}
	}
	for _, im := range m.Impls() {
		for _, fn := range im.Functions {
			if err := walkFn(fn); err != nil {
				return err
			}
		}
	}
	for _, child := range m.Children() {
		if err := c.walkPatterns(child, visit); err != nil {
			return err
		}
	}
	return nil
}

// pathLastSegment returns the terminal name of any path shape, the
// identifier BindPattern's caller matches struct/variant declarations
// against.
func pathLastSegment(p *rast.Path) string {
	if p.Shape == rast.PathLocal {
		return p.LocalName
	}
	if len(p.Nodes) == 0 {
		return ""
	}
	return p.Nodes[len(p.Nodes)-1].Name
}

// parseAbsolutePathKey recovers an AbsolutePath's crate/nodes from its
// String() form used as the structs/enums map key, so Bind can attach the
// original path back onto a PathBinding.
func parseAbsolutePathKey(key string) (rast.AbsolutePath, bool) {
	parts := splitPathKey(key)
	if len(parts) == 0 {
		return rast.AbsolutePath{}, false
	}
	return rast.AbsolutePath{Crate: parts[0], Nodes: parts[1:]}, true
}

func splitPathKey(key string) []string {
	var parts []string
	start := 0
	for i := 0; i+1 < len(key); i++ {
		if key[i] == ':' && key[i+1] == ':' {
			parts = append(parts, key[start:i])
			start = i + 2
			i++
		}
	}
	parts = append(parts, key[start:])
	return parts
}

// BindPattern binds pat's StructPath against the declared struct/enum
// variant at path, verifying the pattern shape matches the declared shape.
func BindPattern(pat *rast.Pattern, path rast.AbsolutePath, declared rast.StructShape, enumPath rast.AbsolutePath, variantIndex int) error {
	if pat.StructPath == nil {
		return fmt.Errorf("%s: pattern has no path to bind", errors.HIR002)
	}
	switch pat.Kind {
	case rast.PatStruct:
		if declared != rast.StructNamed {
			return fmt.Errorf("%s: Struct pattern bound to a non-named-field variant", errors.AST003)
		}
	case rast.PatTupleStruct:
		if declared != rast.StructTuple {
			return fmt.Errorf("%s: StructTuple pattern bound to a non-tuple variant", errors.AST003)
		}
	case rast.PatWildcardVariant:
		if declared != rast.StructUnit {
			return fmt.Errorf("%s: wildcard-variant pattern bound to a non-unit variant", errors.AST003)
		}
	}
	if enumPath.Crate != "" {
		pat.StructPath.BindEnumVariant(enumPath, variantIndex)
	} else {
		pat.StructPath.BindStruct(path)
	}
	return nil
}

// LifetimeElisionResult records the concrete lifetime a function's elided
// input/output positions were assigned (item 4).
type LifetimeElisionResult struct {
	InputLifetimes []string
	OutputLifetime string
}

// ElideFunctionLifetimes assigns concrete lifetimes to a function's elided
// borrows using the reference compiler's rules: each elided input
// lifetime becomes a fresh parameter; the output lifetime is the &self
// lifetime if any, otherwise the sole input lifetime, otherwise 'static
// (non-expression position) or an error.
func ElideFunctionLifetimes(fn *rast.FunctionItem, hasSelf bool, inExpressionPosition bool) (LifetimeElisionResult, error) {
	var res LifetimeElisionResult
	fresh := 0
	nextLifetime := func() string {
		fresh++
		return fmt.Sprintf("'elided%d", fresh)
	}

	var selfLifetime string
	if hasSelf && fn.Self != rast.SelfNone {
		selfLifetime = nextLifetime()
		res.InputLifetimes = append(res.InputLifetimes, selfLifetime)
	}
	for i := range fn.Params {
		if fn.Params[i].Type.Kind == rast.TBorrow && fn.Params[i].Type.Lifetime == "" {
			lt := nextLifetime()
			fn.Params[i].Type.Lifetime = lt
			res.InputLifetimes = append(res.InputLifetimes, lt)
		}
	}

	if fn.ReturnType.Kind != rast.TBorrow || fn.ReturnType.Lifetime != "" {
		return res, nil
	}
	switch {
	case selfLifetime != "":
		fn.ReturnType.Lifetime = selfLifetime
	case len(res.InputLifetimes) == 1:
		fn.ReturnType.Lifetime = res.InputLifetimes[0]
	case !inExpressionPosition:
		fn.ReturnType.Lifetime = "'static"
	default:
		return res, fmt.Errorf("%s: elided output lifetime has no unique candidate input lifetime", errors.HIR003)
	}
	res.OutputLifetime = fn.ReturnType.Lifetime
	return res, nil
}

// ComputeSupertraitClosure computes m_all_parent_traits for trait t: the
// transitive closure of parent_traits ∪ {bound trait : Self: Trait}, each
// path rewritten by the substitutions on the direct supertrait path,
// deduplicated by path with associated-type bindings unioned. This is the
// supertraits expansion, run as part of Markings.
func ComputeSupertraitClosure(t *rast.TraitItem, lookup func(rast.AbsolutePath) (*rast.TraitItem, bool)) error {
	seen := map[string]*rast.GenericPath{}
	var walk func(gp rast.GenericPath) error
	walk = func(gp rast.GenericPath) error {
		key := gp.Path.String()
		if existing, ok := seen[key]; ok {
			for name, ty := range gp.AssocBindings {
				if prior, has := existing.AssocBindings[name]; has && !prior.Equal(ty) {
					return fmt.Errorf("%s: conflicting associated-type binding %q on supertrait %s", errors.HIR005, name, key)
				}
				if existing.AssocBindings == nil {
					existing.AssocBindings = map[string]rast.TypeRef{}
				}
				existing.AssocBindings[name] = ty
			}
			return nil
		}
		cp := gp
		seen[key] = &cp

		parent, ok := lookup(gp.Path)
		if !ok {
			return nil
		}
		for _, sb := range parent.Supertraits {
			if sb.Kind != rast.GBIsTrait {
				continue
			}
			next := sb.Trait
			next.Params = monomorphizeAll(sb.Trait.Params, gp.Params)
			if len(sb.Trait.AssocBindings) > 0 {
				next.AssocBindings = make(map[string]rast.TypeRef, len(sb.Trait.AssocBindings))
				for name, ty := range sb.Trait.AssocBindings {
					next.AssocBindings[name] = substituteGenerics(ty, gp.Params)
				}
			}
			if err := walk(next); err != nil {
				return err
			}
		}
		return nil
	}
	for _, sb := range t.Supertraits {
		if sb.Kind != rast.GBIsTrait {
			continue
		}
		if err := walk(sb.Trait); err != nil {
			return err
		}
	}
	out := make([]rast.GenericPath, 0, len(seen))
	for _, gp := range seen {
		out = append(out, *gp)
	}
	t.AllParentTraits = out
	return nil
}
