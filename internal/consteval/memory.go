// Package consteval implements a miri-style abstract interpreter: a
// byte-addressed memory model (allocations with an initialization
// mask and relocations) plus a MIR statement/terminator evaluator used both
// for `const`/`static` bodies and for array lengths, enum discriminants,
// and coerce-unsize metadata.
//
// Structured as a tree-walking-interpreter shape — an Environment chain plus
// a dispatch function per node kind — generalized from a direct-style Value
// interpreter to a byte-addressed abstract machine.
// internal/num128 supplies the 128-bit arithmetic every integer
// read/write and BinOp dispatch is built on.
package consteval

import (
	"fmt"
	"math"

	"github.com/rustbootstrap/mrustc-core/internal/errors"
	"github.com/rustbootstrap/mrustc-core/internal/num128"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

// PtrBase distinguishes an encoded in-allocation pointer value from null.
// A pointer value is encoded as (PtrBase + in-allocation-offset,
// target RelocPtr).
const PtrBase = 0x1000

// RelocKind discriminates what a RelocPtr ultimately points at: exactly one
// of Allocation, Constant, or StaticRef. It is a plain enum field, not a
// low-bit tag packed into the pointer.
type RelocKind int

const (
	RelocNone RelocKind = iota
	RelocAllocation
	RelocConstant
	RelocStatic
)

// RelocPtr is a tagged pointer to exactly one of Allocation, Constant, or
// StaticRef, selected by Kind.
type RelocPtr struct {
	Kind   RelocKind
	Alloc  *Allocation
	Const  *Constant
	Static *StaticRef
}

func (r RelocPtr) IsNil() bool { return r.Kind == RelocNone }

// Allocation is an owning byte buffer with a per-byte initialization mask
// and a set of pointer-sized relocations, typed by the HIR type that
// caused it ("Allocation").
type Allocation struct {
	Bytes       []byte
	initMask    []byte // 1 bit per byte of Bytes, LSB-first within each byte
	Relocations map[uint64]RelocPtr
	Writable    bool
	Type        rast.TypeRef
}

// NewAllocation allocates size bytes, all uninitialized, typed ty.
func NewAllocation(size uint64, writable bool, ty rast.TypeRef) *Allocation {
	return &Allocation{
		Bytes:       make([]byte, size),
		initMask:    make([]byte, (size+7)/8),
		Relocations: map[uint64]RelocPtr{},
		Writable:    writable,
		Type:        ty,
	}
}

func (a *Allocation) Size() uint64 { return uint64(len(a.Bytes)) }

func (a *Allocation) isInit(off, n uint64) bool {
	for i := off; i < off+n; i++ {
		if a.initMask[i/8]&(1<<(i%8)) == 0 {
			return false
		}
	}
	return true
}

func (a *Allocation) markInit(off, n uint64) {
	for i := off; i < off+n; i++ {
		a.initMask[i/8] |= 1 << (i % 8)
	}
}

// clearRelocsOverlapping drops any relocation whose pointer-sized word
// overlaps [off, off+n): any write that touches bytes overlapping
// a relocation clears that relocation.
func (a *Allocation) clearRelocsOverlapping(off, n uint64, ptrSize uint64) {
	for relOff := range a.Relocations {
		if relOff < off+n && off < relOff+ptrSize {
			delete(a.Relocations, relOff)
		}
	}
}

func bugCheck(code, msg string) error {
	return fmt.Errorf("%s: %s", code, msg)
}

func requireBounds(a *Allocation, off, n uint64) error {
	if off+n > a.Size() {
		return fmt.Errorf("%s: out-of-bounds access at offset %d, length %d, allocation size %d", errors.CEV002, off, n, a.Size())
	}
	return nil
}

// ReadUint reads an unsigned integer of the given bit width at off,
// requiring the covered bytes be initialized.
func (a *Allocation) ReadUint(off uint64, bits uint) (num128.U128, error) {
	n := uint64((bits + 7) / 8)
	if err := requireBounds(a, off, n); err != nil {
		return num128.Zero, err
	}
	if !a.isInit(off, n) {
		return num128.Zero, fmt.Errorf("%s: read of uninitialized bytes at offset %d", errors.CEV001, off)
	}
	return num128.FromLittleEndian(a.Bytes[off : off+n]), nil
}

// ReadSint reads a two's-complement signed integer and sign-extends to 128
// bits.
func (a *Allocation) ReadSint(off uint64, bits uint) (num128.S128, error) {
	u, err := a.ReadUint(off, bits)
	if err != nil {
		return num128.S128{}, err
	}
	if bits < 128 && u.Hi == 0 && u.Lo>>(bits-1)&1 == 1 {
		// sign-extend: subtract 1<<bits
		signBit := num128.FromU64(1).Shl(uint(bits))
		u, _ = u.Sub(signBit)
	}
	return num128.S128{Bits: u}, nil
}

// ReadFloat reads an IEEE-754 float of the given bit width (32 or 64).
func (a *Allocation) ReadFloat(off uint64, bits uint) (float64, error) {
	u, err := a.ReadUint(off, bits)
	if err != nil {
		return 0, err
	}
	switch bits {
	case 32:
		return float64(u.ToFloat32()), nil
	case 64:
		return u.ToFloat64(), nil
	default:
		return 0, bugCheck(errors.BUG003, fmt.Sprintf("unsupported float width %d", bits))
	}
}

// ReadUsize reads a pointer-width unsigned integer.
func (a *Allocation) ReadUsize(off uint64, ptrBits uint) (uint64, error) {
	u, err := a.ReadUint(off, ptrBits)
	if err != nil {
		return 0, err
	}
	return u.Lo, nil
}

// ReadPtr reads a pointer-sized word, returning the encoded address and the
// relocation attached at this offset (if any).
func (a *Allocation) ReadPtr(off uint64, ptrBits uint) (uint64, RelocPtr, error) {
	addr, err := a.ReadUsize(off, ptrBits)
	if err != nil {
		return 0, RelocPtr{}, err
	}
	return addr, a.Relocations[off], nil
}

// WriteUint writes v, masked to bits, at off and marks the bytes
// initialized, clearing any relocation the write overlaps.
func (a *Allocation) WriteUint(off uint64, bits uint, v num128.U128) error {
	n := uint64((bits + 7) / 8)
	if err := requireBounds(a, off, n); err != nil {
		return err
	}
	v = num128.Mask(v, bits)
	v.PutLittleEndian(a.Bytes[off : off+n])
	a.markInit(off, n)
	a.clearRelocsOverlapping(off, n, n)
	return nil
}

func (a *Allocation) WriteSint(off uint64, bits uint, v num128.S128) error {
	return a.WriteUint(off, bits, v.Bits)
}

func (a *Allocation) WriteFloat(off uint64, bits uint, v float64) error {
	var bits128 num128.U128
	switch bits {
	case 32:
		bits128 = num128.FromU64(uint64(math.Float32bits(float32(v))))
	case 64:
		bits128 = num128.FromU64(math.Float64bits(v))
	default:
		return bugCheck(errors.BUG003, fmt.Sprintf("unsupported float width %d", bits))
	}
	return a.WriteUint(off, bits, bits128)
}

// WritePtr writes an encoded pointer value (PtrBase+addr) at off, attaching
// target as the relocation for this offset.
func (a *Allocation) WritePtr(off uint64, ptrBits uint, addr uint64, target RelocPtr) error {
	if err := a.WriteUint(off, ptrBits, num128.FromU64(PtrBase+addr)); err != nil {
		return err
	}
	if !target.IsNil() {
		a.Relocations[off] = target
	}
	return nil
}

// CopyFrom implements `copy_from`: a byte copy that also copies the
// initialization mask and every overlapping relocation. Overlap
// within the same allocation is forbidden (CEV005).
func CopyFrom(dst *Allocation, dstOff uint64, src *Allocation, srcOff, length uint64) error {
	if err := requireBounds(dst, dstOff, length); err != nil {
		return err
	}
	if err := requireBounds(src, srcOff, length); err != nil {
		return err
	}
	if dst == src && rangesOverlap(dstOff, srcOff, length) {
		return fmt.Errorf("%s: copy_from with overlapping source/destination ranges", errors.CEV005)
	}
	copy(dst.Bytes[dstOff:dstOff+length], src.Bytes[srcOff:srcOff+length])
	for i := uint64(0); i < length; i++ {
		if src.isInit(srcOff+i, 1) {
			dst.markInit(dstOff+i, 1)
		} else {
			dst.initMask[(dstOff+i)/8] &^= 1 << ((dstOff + i) % 8)
		}
	}
	// Drop any destination relocation that overlapped the copied range,
	// then bring over every source relocation in range, shifted by the
	// offset delta.
	dst.clearRelocsOverlapping(dstOff, length, length)
	for relOff, target := range src.Relocations {
		if relOff >= srcOff && relOff < srcOff+length {
			dst.Relocations[dstOff+(relOff-srcOff)] = target
		}
	}
	return nil
}

func rangesOverlap(a, b, length uint64) bool {
	return a < b+length && b < a+length
}

// Constant is a read-only byte buffer: string literals and byte strings
// ("Constant: a read-only byte buffer").
type Constant struct {
	Bytes []byte
}

// StaticRef references a global static by path, with an optional cached
// encoded literal ("StaticRef").
type StaticRef struct {
	Path   rast.AbsolutePath
	Cached *rast.EncodedLiteral
}

// ValueRef is a slice into some relocatable value, (RelocPtr, offset,
// length): all reads and writes to a place route through one of these.
type ValueRef struct {
	Ptr    RelocPtr
	Offset uint64
	Length uint64
}

// Alloc is a convenience accessor valid when Ptr.Kind == RelocAllocation.
func (v ValueRef) Alloc() *Allocation { return v.Ptr.Alloc }
