package rast

// DstType classifies how a struct's trailing field makes it dynamically
// sized: directly (Slice/TraitObject), through a still-generic ?Sized
// parameter (Possible), or not at all (None).
type DstType int

const (
	DstNone DstType = iota
	DstSlice
	DstTraitObject
	DstPossible
)

// CoerceKind classifies how a CoerceUnsized-eligible struct reaches its
// unsizing field: the field is itself the generic parameter (Passthrough),
// or a raw/reference pointer to one (Pointer).
type CoerceKind int

const (
	CoerceNone CoerceKind = iota
	CoercePassthrough
	CoercePointer
)

// StructMarkings records the derived facts internal/hir's Markings pass
// computes for a struct (item 5: "Markings... computing
// CoerceUnsized eligibility, a Copy marking, and a Niche for enum/struct
// layout").
type StructMarkings struct {
	// DstType/UnsizedField/UnsizedParam/CanUnsize come from recursing into
	// the struct's last field ("dst_type is Slice|TraitObject|Possible|None
	// by recursing into the last field").
	DstType      DstType
	UnsizedField int // index of the DST-carrying field, -1 if DstType == DstNone
	UnsizedParam int // index of the controlling ?Sized generic parameter, -1 if none
	CanUnsize    bool

	// CoerceUnsizedIndex/CoerceUnsized/CoerceParam come from observing
	// CoerceUnsized impls on this struct and then resolving the coerce
	// chain through (possibly nested) CoerceUnsized-eligible fields.
	CoerceUnsizedIndex int // index of the field differing between source/dest, -1 if none
	CoerceUnsized      CoerceKind
	CoerceParam        int // generic parameter index threaded through the coercion, -1 if none

	IsCopy bool
	Niche  *NicheInfo
}

// NicheInfo is the discriminant-elision computation modeled on HIR type
// layout code: a byte/bit range within a type's representation that a
// wrapping enum may reuse as its own discriminant rather than widening
// its layout.
type NicheInfo struct {
	ByteOffset uint64
	ValidStart uint64
	ValidEnd   uint64 // exclusive; values in [ValidStart, ValidEnd) are occupied
}

// EncodedLiteral is the fully-evaluated constant produced by
// internal/consteval for a `const`/`static` item: an opaque byte blob plus
// the relocations (pointers to other statics) embedded within it.
type EncodedLiteral struct {
	Bytes       []byte
	Relocations []Relocation
}

// Relocation records that the bytes at [Offset, Offset+Size) inside an
// EncodedLiteral's byte buffer are actually a pointer. A Named relocation
// (Bytes == nil) points at another static or constant allocation, keyed by
// its absolute path; a Bytes relocation embeds the pointee's own read-only
// content directly rather than naming a separate static.
type Relocation struct {
	Offset uint64
	Size   uint64
	Target AbsolutePath // valid when Bytes == nil
	Bytes  []byte       // valid when this is an embedded constant blob
}
