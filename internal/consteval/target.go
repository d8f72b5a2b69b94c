package consteval

import "github.com/rustbootstrap/mrustc-core/internal/rast"

// DiscriminantTagging enumerates the variant-tagging schemes // names for writing an enum's discriminant ("None, NonZero{zero_variant,
// field}, Linear{field,offset,is_niche}, Values{field,values[]}").
type DiscriminantTagging int

const (
	TagNone DiscriminantTagging = iota
	TagNonZero
	TagLinear
	TagValues
)

// TypeRepr is the cached layout of a type: the collaborator interface
// named `Target_GetTypeRepr(ty) -> &TypeRepr`.
type TypeRepr struct {
	Size  uint64
	Align uint64

	// FieldOffsets holds, for struct/tuple/array-element types, the byte
	// offset of each field/element in declaration order.
	FieldOffsets []uint64

	// Tagging describes how an enum's discriminant is stored.
	Tagging      DiscriminantTagging
	TagField     int      // NonZero/Linear/Values: index of the tag-bearing field
	TagOffset    uint64   // Linear: base value added to the variant index
	TagIsNiche   bool     // Linear: whether the tag lives in a niche of another field
	TagValues    []int64  // Values: explicit discriminant value per variant
	ZeroVariant  int      // NonZero: which variant index means "all zero bytes"
	PayloadOffset uint64  // enum only: byte offset where variant payloads begin
}

// Target is the consumed layout-query collaborator of // ("Target_GetSizeOf/Target_GetAlignOf/Target_GetTypeRepr/Target_GetPointerBits:
// target-specific layout queries; may throw Defer if the type depends on
// unresolved generics").
type Target interface {
	SizeOf(ty rast.TypeRef) (uint64, error)
	AlignOf(ty rast.TypeRef) (uint64, error)
	Repr(ty rast.TypeRef) (*TypeRepr, error)
	PointerBits() uint

	// VariantRepr computes the field-offset layout of one enum variant's
	// payload, offsets relative to the enum's own TypeRepr.PayloadOffset
	// ("Tuple/Struct/Array/SizedArray/EnumVariant: ... write each
	// sub-value at its offset").
	VariantRepr(ty rast.TypeRef, variantIdx int) (*TypeRepr, error)
}

// DefaultTarget is a straightforward 64-bit little-endian layout engine
// sufficient for evaluating the primitive/struct/array/enum shapes the
// const evaluator exercises. It has no notion of repr(packed)/repr(C) field reorder —
// fields are laid out in declaration order, each aligned to its own size,
// which is simplification this core explicitly does not need to improve on
// (§1 excludes later codegen-facing layout concerns).
type DefaultTarget struct {
	Structs map[string]*rast.StructItem
	Enums   map[string]*rast.EnumItem
}

func NewDefaultTarget(structs map[string]*rast.StructItem, enums map[string]*rast.EnumItem) *DefaultTarget {
	return &DefaultTarget{Structs: structs, Enums: enums}
}

func (t *DefaultTarget) PointerBits() uint { return 64 }

func (t *DefaultTarget) SizeOf(ty rast.TypeRef) (uint64, error) {
	r, err := t.Repr(ty)
	if err != nil {
		return 0, err
	}
	return r.Size, nil
}

func (t *DefaultTarget) AlignOf(ty rast.TypeRef) (uint64, error) {
	r, err := t.Repr(ty)
	if err != nil {
		return 0, err
	}
	return r.Align, nil
}

func align(offset, a uint64) uint64 {
	if a == 0 {
		return offset
	}
	if rem := offset % a; rem != 0 {
		return offset + (a - rem)
	}
	return offset
}

func (t *DefaultTarget) Repr(ty rast.TypeRef) (*TypeRepr, error) {
	switch ty.Kind {
	case rast.TUnit, rast.TBang:
		return &TypeRepr{Size: 0, Align: 1}, nil
	case rast.TPrimitive:
		return t.primRepr(ty.Prim), nil
	case rast.TBorrow, rast.TPointer:
		return &TypeRepr{Size: uint64(t.PointerBits() / 8), Align: uint64(t.PointerBits() / 8)}, nil
	case rast.TTuple:
		return t.structLikeRepr(ty.Tuple)
	case rast.TArray:
		elem, err := t.Repr(*ty.Inner)
		if err != nil {
			return nil, err
		}
		if !ty.SizeExpr.Resolved {
			return nil, &DeferError{Reason: "array length not yet const-evaluated"}
		}
		return &TypeRepr{Size: elem.Size * ty.SizeExpr.Value, Align: elem.Align}, nil
	case rast.TSlice, rast.TTraitObject, rast.TErasedType:
		// DST: a bare slice/trait-object has no static size; callers dealing
		// with it must go through the fat-pointer metadata slot instead.
		return nil, &DeferError{Reason: "unsized type has no static layout"}
	case rast.TPath:
		if ty.Path == nil || ty.Path.Binding() == nil {
			return nil, &DeferError{Reason: "unbound path type"}
		}
		key := ty.Path.Binding().Target.String()
		if s, ok := t.Structs[key]; ok {
			return t.structRepr(s)
		}
		if e, ok := t.Enums[key]; ok {
			return t.enumRepr(e)
		}
		return nil, &DeferError{Reason: "unresolved path type " + key}
	default:
		return nil, &DeferError{Reason: "type has no computable layout yet"}
	}
}

func (t *DefaultTarget) primRepr(p rast.PrimitiveType) *TypeRepr {
	size := map[rast.PrimitiveType]uint64{
		rast.PrimBool: 1, rast.PrimChar: 4,
		rast.PrimI8: 1, rast.PrimU8: 1,
		rast.PrimI16: 2, rast.PrimU16: 2,
		rast.PrimI32: 4, rast.PrimU32: 4, rast.PrimF32: 4,
		rast.PrimI64: 8, rast.PrimU64: 8, rast.PrimF64: 8,
		rast.PrimI128: 16, rast.PrimU128: 16,
		rast.PrimIsize: 8, rast.PrimUsize: 8,
	}[p]
	if size == 0 {
		size = 1
	}
	return &TypeRepr{Size: size, Align: size}
}

func (t *DefaultTarget) structLikeRepr(fields []rast.TypeRef) (*TypeRepr, error) {
	var offset, maxAlign uint64
	offsets := make([]uint64, len(fields))
	for i, f := range fields {
		r, err := t.Repr(f)
		if err != nil {
			return nil, err
		}
		offset = align(offset, r.Align)
		offsets[i] = offset
		offset += r.Size
		if r.Align > maxAlign {
			maxAlign = r.Align
		}
	}
	if maxAlign == 0 {
		maxAlign = 1
	}
	return &TypeRepr{Size: align(offset, maxAlign), Align: maxAlign, FieldOffsets: offsets}, nil
}

func (t *DefaultTarget) structRepr(s *rast.StructItem) (*TypeRepr, error) {
	fieldTypes := make([]rast.TypeRef, len(s.Fields))
	for i, f := range s.Fields {
		fieldTypes[i] = f.Type
	}
	return t.structLikeRepr(fieldTypes)
}

// enumRepr lays out an enum as a leading usize discriminant (TagValues
// scheme with identity values) followed by the widest variant's payload —
// a simple, always-correct scheme that the Linear/NonZero niche schemes
// optimize away; those are opt-in refinements computed separately
// (as an internal/rast.NicheInfo, by hir.ComputeNiche) during the Markings
// pass, not required for
// the interpreter to produce a correct value.
func (t *DefaultTarget) enumRepr(e *rast.EnumItem) (*TypeRepr, error) {
	tagSize, tagAlign := uint64(8), uint64(8)
	var maxPayload, maxAlign uint64
	values := make([]int64, len(e.Variants))
	for i, v := range e.Variants {
		values[i] = int64(i)
		fieldTypes := make([]rast.TypeRef, len(v.Fields))
		for j, f := range v.Fields {
			fieldTypes[j] = f.Type
		}
		r, err := t.structLikeRepr(fieldTypes)
		if err != nil {
			return nil, err
		}
		if r.Size > maxPayload {
			maxPayload = r.Size
		}
		if r.Align > maxAlign {
			maxAlign = r.Align
		}
	}
	if maxAlign == 0 {
		maxAlign = 1
	}
	payloadOffset := align(tagSize, maxAlign)
	total := payloadOffset + maxPayload
	overallAlign := tagAlign
	if maxAlign > overallAlign {
		overallAlign = maxAlign
	}
	return &TypeRepr{
		Size:          align(total, overallAlign),
		Align:         overallAlign,
		Tagging:       TagValues,
		TagField:      0,
		TagValues:     values,
		PayloadOffset: payloadOffset,
	}, nil
}

// lookupEnum resolves ty (a TPath type bound to an enum) to its declaration.
func (t *DefaultTarget) lookupEnum(ty rast.TypeRef) (*rast.EnumItem, error) {
	if ty.Kind != rast.TPath || ty.Path == nil || ty.Path.Binding() == nil {
		return nil, &DeferError{Reason: "unbound enum type"}
	}
	e, ok := t.Enums[ty.Path.Binding().Target.String()]
	if !ok {
		return nil, &DeferError{Reason: "unresolved enum type"}
	}
	return e, nil
}

// VariantRepr lays out one enum variant's fields, offsets relative to the
// enum's PayloadOffset.
func (t *DefaultTarget) VariantRepr(ty rast.TypeRef, variantIdx int) (*TypeRepr, error) {
	e, err := t.lookupEnum(ty)
	if err != nil {
		return nil, err
	}
	if variantIdx < 0 || variantIdx >= len(e.Variants) {
		return nil, &DeferError{Reason: "variant index out of range"}
	}
	v := e.Variants[variantIdx]
	fieldTypes := make([]rast.TypeRef, len(v.Fields))
	for i, f := range v.Fields {
		fieldTypes[i] = f.Type
	}
	return t.structLikeRepr(fieldTypes)
}
