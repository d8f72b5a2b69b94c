package hir

import (
	"fmt"

	"github.com/rustbootstrap/mrustc-core/internal/consteval"
	"github.com/rustbootstrap/mrustc-core/internal/errors"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

// ComputeMarkings runs the Markings pass (item 5): for every struct it
// derives dst_type/unsized_param, observes CoerceUnsized impls to compute
// coerce_unsized_index, resolves the resulting coerce chain, and derives a
// Copy marking; for every trait it computes the transitive supertrait
// closure internal/resolve's UFCS search walks.
//
// Ported from the two-visitor split of
// _examples/original_source/src/hir_conv/markings.cpp's ConvertHIR_Markings:
// the first visitor fills dst_type/unsized_param and the CoerceUnsized
// field-diff per struct; the second, run only once every struct has its
// coerce_unsized_index, resolves coerce_unsized/coerce_param by recursing
// through (possibly nested) CoerceUnsized fields.
func ComputeMarkings(c *Crate, target consteval.Target) error {
	mc := newMarkingsCtx(c)
	for _, s := range c.structs {
		s.Markings = mc.computeStructMarkings(s)
	}
	if err := mc.applyCoerceUnsizedImpls(c.allImpls()); err != nil {
		return err
	}
	for _, s := range c.structs {
		if s.Markings.CoerceUnsizedIndex < 0 {
			continue
		}
		kind, param, err := mc.coerceType(s)
		if err != nil {
			return err
		}
		s.Markings.CoerceUnsized = kind
		s.Markings.CoerceParam = param
	}

	for _, t := range c.traits {
		if err := ComputeSupertraitClosure(t, func(p rast.AbsolutePath) (*rast.TraitItem, bool) {
			tr, ok := c.traits[p.String()]
			return tr, ok
		}); err != nil {
			return err
		}
	}
	for _, e := range c.enums {
		niche, err := ComputeNiche(target, e)
		if err != nil && !consteval.IsDefer(err) {
			return err
		}
		if niche != nil && len(e.Variants) > 0 {
			// A niche-bearing field lets the enum elide its own discriminant
			// by repurposing an otherwise-unused bit pattern of that field;
			// recorded against the struct marking of the variant that owns
			// it would require per-variant markings this core does not model,
			// so the computed NicheInfo is exposed via the enum's own
			// lookup rather than folded into a StructMarkings here.
			c.niches[e.Common().Name] = niche
		}
	}
	return nil
}

// allImpls collects every impl block reachable from the crate root,
// recursing into named (ModuleItem) and anonymous child modules, the same
// walk internal/pipeline's collectImpls performs over the pre-HIR tree.
func (c *Crate) allImpls() []*rast.ImplItem {
	var out []*rast.ImplItem
	var walk func(m *rast.Module)
	walk = func(m *rast.Module) {
		out = append(out, m.Impls()...)
		for _, it := range m.Items() {
			if mi, ok := it.(*rast.ModuleItem); ok {
				walk(mi.Module)
			}
		}
		for _, child := range m.Children() {
			walk(child)
		}
	}
	walk(c.Root)
	return out
}

// markingsCtx holds the by-name struct lookup the Markings pass's
// DST/CoerceUnsized recursion needs; built once per ComputeMarkings call
// rather than re-scanning c.structs on every recursive step.
type markingsCtx struct {
	byName map[string]*rast.StructItem
}

func newMarkingsCtx(c *Crate) *markingsCtx {
	byName := make(map[string]*rast.StructItem, len(c.structs))
	for _, s := range c.structs {
		byName[s.Common().Name] = s
	}
	return &markingsCtx{byName: byName}
}

func (m *markingsCtx) lookupStruct(name string) (*rast.StructItem, bool) {
	s, ok := m.byName[name]
	return s, ok
}

// computeStructMarkings derives dst_type/unsized_field/unsized_param and a
// structural Copy marking: a struct is Copy iff every field's type is Copy,
// using the same conservative per-TypeRef-kind rule Rust itself applies to
// derive(Copy) eligibility (no Drop impls are modeled by this core, so the
// check is purely structural). CoerceUnsizedIndex/CoerceUnsized/CoerceParam
// are left at their zero/sentinel values for the later impl-diffing and
// coerce-chain passes to fill in.
func (m *markingsCtx) computeStructMarkings(s *rast.StructItem) rast.StructMarkings {
	mk := rast.StructMarkings{
		UnsizedField:       -1,
		UnsizedParam:       -1,
		CoerceUnsizedIndex: -1,
		CoerceParam:        -1,
		IsCopy:             true,
	}
	for _, f := range s.Fields {
		if !isCopyType(f.Type) {
			mk.IsCopy = false
		}
	}

	mk.DstType = m.structDstType(s, &s.Generics, nil)
	if mk.DstType != rast.DstNone {
		mk.UnsizedField = len(s.Fields) - 1
		mk.UnsizedParam = findUnsizedParam(s)
		mk.CanUnsize = true
	}
	return mk
}

// findUnsizedParam locates the single ?Sized type parameter mentioned by a
// Possible-DST struct's last field ("a type parameter must be ?Sized... and
// must only be used as part of the last field"). Returns -1 if none
// qualifies, which a conforming program never reaches.
func findUnsizedParam(s *rast.StructItem) int {
	if len(s.Fields) == 0 {
		return -1
	}
	last := s.Fields[len(s.Fields)-1].Type
	for i, p := range s.Generics.Params {
		if p.Kind != rast.GPType || paramIsSized(&s.Generics, i) {
			continue
		}
		if typeContainsGenericIndex(last, i) {
			return i
		}
	}
	return -1
}

// paramIsSized reports whether the type parameter at idx carries no
// explicit `?Sized` relaxation. Rust type parameters are Sized by default.
func paramIsSized(gp *rast.GenericParams, idx int) bool {
	for _, b := range gp.BoundsFor(idx) {
		if b.Kind == rast.GBMaybeTrait {
			return false
		}
	}
	return true
}

// structDstType ports get_struct_dst_type: a struct's DST-ness is entirely
// determined by its last field (Unit structs are always None).
func (m *markingsCtx) structDstType(s *rast.StructItem, def *rast.GenericParams, params []rast.TypeRef) rast.DstType {
	if len(s.Fields) == 0 {
		return rast.DstNone
	}
	last := s.Fields[len(s.Fields)-1].Type
	return m.fieldDstType(last, &s.Generics, def, params)
}

// fieldDstType ports get_field_dst_type. innerDef is the GenericParams that
// ty's own TGeneric indices (if any) are declared against; paramsDef is the
// GenericParams that params' indices (if params != nil) are declared
// against. These diverge once the recursion crosses into a nested struct's
// fields while carrying the caller's concrete type arguments.
func (m *markingsCtx) fieldDstType(ty rast.TypeRef, innerDef, paramsDef *rast.GenericParams, params []rast.TypeRef) rast.DstType {
	switch ty.Kind {
	case rast.TGeneric:
		if paramIsSized(innerDef, ty.GenericIndex) {
			return rast.DstNone
		}
		if params != nil {
			if ty.GenericIndex < 0 || ty.GenericIndex >= len(params) {
				return rast.DstNone
			}
			return m.fieldDstType(params[ty.GenericIndex], paramsDef, paramsDef, nil)
		}
		return rast.DstPossible
	case rast.TSlice:
		return rast.DstSlice
	case rast.TTraitObject:
		return rast.DstTraitObject
	case rast.TPath:
		if ty.Path == nil {
			return rast.DstNone
		}
		target, ok := m.lookupStruct(pathLastSegment(ty.Path))
		if !ok {
			// Associated type or a path this core doesn't resolve as a
			// struct: treated as Sized, matching the C++ Unbound/Opaque
			// fallthrough.
			return rast.DstNone
		}
		tplParams := lastSegmentParams(ty.Path)
		if params != nil && typesNeedMono(tplParams) {
			return m.structDstType(target, paramsDef, monomorphizeAll(tplParams, params))
		}
		return m.structDstType(target, innerDef, tplParams)
	default:
		return rast.DstNone
	}
}

// applyCoerceUnsizedImpls scans every impl for a `CoerceUnsized<Dst> for
// Src` implementation and, for each, diffs Src's monomorphised fields
// against Dst's to find the single field that differs (ports
// visit_trait_impl's CoerceUnsized arm).
func (m *markingsCtx) applyCoerceUnsizedImpls(impls []*rast.ImplItem) error {
	for _, im := range impls {
		if im.TraitPath == nil || absoluteLastSegment(im.TraitPath.Path) != "CoerceUnsized" {
			continue
		}
		if err := m.diffCoerceUnsizedImpl(im); err != nil {
			return err
		}
	}
	return nil
}

func (m *markingsCtx) diffCoerceUnsizedImpl(im *rast.ImplItem) error {
	if im.SelfType.Kind != rast.TPath || im.SelfType.Path == nil {
		return fmt.Errorf("%s: cannot implement CoerceUnsized on non-structs", errors.E0000)
	}
	srcStruct, ok := m.lookupStruct(pathLastSegment(im.SelfType.Path))
	if !ok {
		return fmt.Errorf("%s: cannot implement CoerceUnsized on non-structs", errors.E0000)
	}
	if len(im.TraitPath.Params) != 1 {
		return fmt.Errorf("%s: unexpected number of arguments for CoerceUnsized", errors.E0000)
	}
	dstTy := im.TraitPath.Params[0]
	if dstTy.Kind != rast.TPath || dstTy.Path == nil {
		return fmt.Errorf("%s: cannot implement CoerceUnsized from non-structs", errors.E0000)
	}
	dstStruct, ok := m.lookupStruct(pathLastSegment(dstTy.Path))
	if !ok || dstStruct != srcStruct {
		return fmt.Errorf("%s: CoerceUnsized can only be implemented between variants of the same struct", errors.E0000)
	}
	if srcStruct.Markings.CoerceUnsizedIndex != -1 {
		return fmt.Errorf("%s: CoerceUnsized can only be implemented once per struct", errors.E0000)
	}

	dstArgs := lastSegmentParams(dstTy.Path)
	srcArgs := lastSegmentParams(im.SelfType.Path)

	field := -1
	for i, f := range srcStruct.Fields {
		if isPhantomDataField(f.Type) || !typeContainsGeneric(f.Type) {
			continue
		}
		tyL := substituteGenerics(f.Type, dstArgs)
		tyR := substituteGenerics(f.Type, srcArgs)
		if !tyL.Equal(tyR) {
			if field != -1 {
				return fmt.Errorf("%s: CoerceUnsized impls can only differ by one field", errors.HIR004)
			}
			field = i
		}
	}
	if field == -1 {
		return fmt.Errorf("%s: CoerceUnsized requires a field to differ between source and destination", errors.E0000)
	}
	srcStruct.Markings.CoerceUnsizedIndex = field
	return nil
}

// coerceType ports get_coerce_type/Visitor2::visit_struct: resolves (and
// memoizes into s.Markings) how s's CoerceUnsized-differing field actually
// carries the unsizing coercion, recursing through nested CoerceUnsized
// structs until it reaches a generic parameter or a raw/reference pointer.
func (m *markingsCtx) coerceType(s *rast.StructItem) (rast.CoerceKind, int, error) {
	if s.Markings.CoerceUnsizedIndex < 0 {
		return rast.CoerceNone, -1, nil
	}
	if s.Markings.CoerceUnsized != rast.CoerceNone {
		return s.Markings.CoerceUnsized, s.Markings.CoerceParam, nil
	}

	fieldTy := s.Fields[s.Markings.CoerceUnsizedIndex].Type
	for {
		switch fieldTy.Kind {
		case rast.TGeneric:
			return rast.CoercePassthrough, fieldTy.GenericIndex, nil
		case rast.TPointer, rast.TBorrow:
			idx, err := m.unsizeParamIdx(*fieldTy.Inner)
			return rast.CoercePointer, idx, err
		case rast.TPath:
			if fieldTy.Path == nil {
				return rast.CoerceNone, -1, fmt.Errorf("%s: CoerceUnsized field has no path", errors.BUG002)
			}
			inner, ok := m.lookupStruct(pathLastSegment(fieldTy.Path))
			if !ok {
				return rast.CoerceNone, -1, fmt.Errorf("%s: CoerceUnsized impl differs on a path that isn't a struct", errors.BUG002)
			}
			innerKind, innerIdx, err := m.coerceType(inner)
			if err != nil {
				return rast.CoerceNone, -1, err
			}
			if innerKind == rast.CoerceNone {
				return rast.CoerceNone, -1, fmt.Errorf("%s: CoerceUnsized impl differs on a non-CoerceUnsized type", errors.BUG002)
			}
			args := lastSegmentParams(fieldTy.Path)
			if innerIdx < 0 || innerIdx >= len(args) {
				return rast.CoerceNone, -1, fmt.Errorf("%s: coerce parameter index out of range", errors.BUG002)
			}
			paramTy := args[innerIdx]
			if innerKind == rast.CoercePointer {
				idx, err := m.unsizeParamIdx(paramTy)
				return rast.CoercePointer, idx, err
			}
			fieldTy = paramTy
			continue
		default:
			return rast.CoerceNone, -1, fmt.Errorf("%s: unhandled CoerceUnsized field type", errors.BUG002)
		}
	}
}

// unsizeParamIdx ports get_unsize_param_idx: walks through a pointee type
// down to the generic parameter ultimately being unsized.
func (m *markingsCtx) unsizeParamIdx(pointee rast.TypeRef) (int, error) {
	switch pointee.Kind {
	case rast.TGeneric:
		return pointee.GenericIndex, nil
	case rast.TPath:
		if pointee.Path == nil {
			return -1, fmt.Errorf("%s: pointer to non-Unsize type", errors.BUG002)
		}
		target, ok := m.lookupStruct(pathLastSegment(pointee.Path))
		if !ok || target.Markings.UnsizedParam < 0 {
			return -1, fmt.Errorf("%s: pointer to non-Unsize type", errors.BUG002)
		}
		args := lastSegmentParams(pointee.Path)
		if target.Markings.UnsizedParam >= len(args) {
			return -1, fmt.Errorf("%s: pointer to non-Unsize type", errors.BUG002)
		}
		return m.unsizeParamIdx(args[target.Markings.UnsizedParam])
	default:
		return -1, fmt.Errorf("%s: pointer to non-Unsize type", errors.BUG002)
	}
}

// lastSegmentParams returns the generic arguments applied at p's final
// segment, or nil for an unparameterized/empty path.
func lastSegmentParams(p *rast.Path) []rast.TypeRef {
	if p == nil {
		return nil
	}
	nodes := pathNodes(p)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[len(nodes)-1].Params
}

// pathNodes returns p's segments regardless of shape; PathLocal has none of
// its own, so the last-segment lookups above simply see an empty list.
func pathNodes(p *rast.Path) []rast.PathNode { return p.Nodes }

// absoluteLastSegment returns the final segment name of an AbsolutePath, or
// its crate name if it has no nodes.
func absoluteLastSegment(p rast.AbsolutePath) string {
	if len(p.Nodes) == 0 {
		return p.Crate
	}
	return p.Nodes[len(p.Nodes)-1]
}

// isPhantomDataField reports whether t names a PhantomData field, which
// CoerceUnsized field-diffing ignores ("PhantomData fields are ignored").
func isPhantomDataField(t rast.TypeRef) bool {
	return t.Kind == rast.TPath && t.Path != nil && pathLastSegment(t.Path) == "PhantomData"
}

// typeContainsGenericIndex reports whether t mentions the type parameter at
// idx anywhere in its structure.
func typeContainsGenericIndex(t rast.TypeRef, idx int) bool {
	switch t.Kind {
	case rast.TGeneric:
		return t.GenericIndex == idx
	case rast.TTuple:
		for _, e := range t.Tuple {
			if typeContainsGenericIndex(e, idx) {
				return true
			}
		}
	case rast.TBorrow, rast.TPointer, rast.TArray, rast.TSlice:
		if t.Inner != nil {
			return typeContainsGenericIndex(*t.Inner, idx)
		}
	case rast.TPath:
		if t.Path == nil {
			return false
		}
		for _, n := range t.Path.Nodes {
			for _, p := range n.Params {
				if typeContainsGenericIndex(p, idx) {
					return true
				}
			}
		}
	case rast.TTraitObject, rast.TErasedType:
		for _, tr := range t.Traits {
			for _, p := range tr.Params {
				if typeContainsGenericIndex(p, idx) {
					return true
				}
			}
		}
	}
	return false
}

// typeContainsGeneric reports whether t mentions any type parameter.
func typeContainsGeneric(t rast.TypeRef) bool {
	switch t.Kind {
	case rast.TGeneric:
		return true
	case rast.TTuple:
		for _, e := range t.Tuple {
			if typeContainsGeneric(e) {
				return true
			}
		}
	case rast.TBorrow, rast.TPointer, rast.TArray, rast.TSlice:
		if t.Inner != nil {
			return typeContainsGeneric(*t.Inner)
		}
	case rast.TPath:
		if t.Path == nil {
			return false
		}
		for _, n := range t.Path.Nodes {
			for _, p := range n.Params {
				if typeContainsGeneric(p) {
					return true
				}
			}
		}
	case rast.TTraitObject, rast.TErasedType:
		for _, tr := range t.Traits {
			for _, p := range tr.Params {
				if typeContainsGeneric(p) {
					return true
				}
			}
		}
	}
	return false
}

// typesNeedMono reports whether any of ts mentions a type parameter, i.e.
// whether substituting the caller's concrete arguments through them would
// change anything (ports monomorphise_pathparams_needed).
func typesNeedMono(ts []rast.TypeRef) bool {
	for _, t := range ts {
		if typeContainsGeneric(t) {
			return true
		}
	}
	return false
}

func monomorphizeAll(ts []rast.TypeRef, args []rast.TypeRef) []rast.TypeRef {
	out := make([]rast.TypeRef, len(ts))
	for i, t := range ts {
		out[i] = substituteGenerics(t, args)
	}
	return out
}

// substituteGenerics replaces every TGeneric(idx) appearing in t with
// args[idx], recursing structurally (ports monomorphise_type_with, minus
// the lifetime/const-generic cases this core does not model).
func substituteGenerics(t rast.TypeRef, args []rast.TypeRef) rast.TypeRef {
	switch t.Kind {
	case rast.TGeneric:
		if t.GenericIndex >= 0 && t.GenericIndex < len(args) {
			return args[t.GenericIndex]
		}
		return t
	case rast.TTuple:
		out := make([]rast.TypeRef, len(t.Tuple))
		for i, e := range t.Tuple {
			out[i] = substituteGenerics(e, args)
		}
		t.Tuple = out
		return t
	case rast.TBorrow, rast.TPointer, rast.TArray, rast.TSlice:
		if t.Inner != nil {
			inner := substituteGenerics(*t.Inner, args)
			t.Inner = &inner
		}
		return t
	case rast.TPath:
		if t.Path == nil {
			return t
		}
		newNodes := make([]rast.PathNode, len(t.Path.Nodes))
		copy(newNodes, t.Path.Nodes)
		if len(newNodes) > 0 {
			last := newNodes[len(newNodes)-1]
			newParams := make([]rast.TypeRef, len(last.Params))
			for i, p := range last.Params {
				newParams[i] = substituteGenerics(p, args)
			}
			last.Params = newParams
			newNodes[len(newNodes)-1] = last
		}
		newPath := *t.Path
		newPath.Nodes = newNodes
		t.Path = &newPath
		return t
	default:
		return t
	}
}

func isCopyType(t rast.TypeRef) bool {
	switch t.Kind {
	case rast.TPrimitive:
		return true
	case rast.TBorrow:
		return !t.Mutable
	case rast.TTuple:
		for _, e := range t.Tuple {
			if !isCopyType(e) {
				return false
			}
		}
		return true
	case rast.TArray:
		if t.Inner == nil {
			return false
		}
		return isCopyType(*t.Inner)
	default:
		return false
	}
}

// ComputeNiche scans an enum's discriminant-free variant (or, for a
// single-field newtype-shaped variant, that field) for a niche: a byte range
// some bit pattern of which no valid value of the type ever occupies, which
// a wrapping representation may reuse as its own discriminant instead of
// widening layout.
// Returns nil, nil when no variant offers one.
func ComputeNiche(target consteval.Target, e *rast.EnumItem) (*rast.NicheInfo, error) {
	for _, v := range e.Variants {
		if len(v.Fields) != 1 {
			continue
		}
		ft := v.Fields[0].Type
		repr, err := target.Repr(ft)
		if err != nil {
			if consteval.IsDefer(err) {
				continue
			}
			return nil, err
		}
		if info := primitiveNiche(ft, repr); info != nil {
			return info, nil
		}
	}
	return nil, nil
}

// primitiveNiche reports the unused-value range of a primitive/pointer
// type's representation, if any: bool only ever holds 0 or 1, and a
// reference or non-null raw pointer is never the all-zero bit pattern.
func primitiveNiche(t rast.TypeRef, repr *consteval.TypeRepr) *rast.NicheInfo {
	switch {
	case t.Kind == rast.TPrimitive && t.Prim == rast.PrimBool:
		return &rast.NicheInfo{ValidStart: 0, ValidEnd: 2}
	case t.Kind == rast.TBorrow || t.Kind == rast.TPointer:
		// 0 (null) is the only excluded bit pattern; the valid range runs to
		// the representable maximum, which a uint64 end cannot name exactly
		// at 8-byte pointer width, so the convention here is an inclusive-max
		// sentinel rather than a true exclusive bound.
		return &rast.NicheInfo{ByteOffset: 0, ValidStart: 1, ValidEnd: ^uint64(0)}
	default:
		return nil
	}
}
