package consteval

import (
	"fmt"

	"github.com/rustbootstrap/mrustc-core/internal/errors"
	"github.com/rustbootstrap/mrustc-core/internal/mir"
	"github.com/rustbootstrap/mrustc-core/internal/num128"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

// ConstDef is one const/static/enum-discriminant body the crate-wide
// Evaluator knows how to run, standing in for the §6 collaborator
// `HIR::Crate::get_or_gen_mir` (this core does not build MIR; the driver
// populates this table from whatever the MIR-builder collaborator hands
// back for each body it asks to evaluate).
type ConstDef struct {
	Type rast.TypeRef
	Body *mir.Function
}

// constState tracks per-path evaluation progress for cycle detection: an
// Active marker is set before a recursive visit and checked on entry — a
// recursive entry signals a user-visible cycle error.
type constState int

const (
	csNotStarted constState = iota
	csActive
	csDone
)

// Evaluator is the crate-wide driver for constant evaluation: it owns the
// const/static/function body tables, the layout Target, and the
// cycle-detection + result cache that ConvertHIR_ConstantEvaluate consults.
type Evaluator struct {
	Target Target
	Consts map[string]*ConstDef     // keyed by AbsolutePath.String()
	Funcs  map[string]*mir.Function // ordinary fn bodies reachable from const contexts

	state map[string]constState
	cache map[string]*rast.EncodedLiteral
	allocs map[string]*Allocation // materialized read-only allocation per evaluated static/const

	// Newval de-duplicates anonymous hidden statics hoisted out of writable
	// allocations during Encode; lazily created on first use by
	// newvalPool().
	Newval *NewvalPool
}

func NewEvaluator(target Target) *Evaluator {
	return &Evaluator{
		Target: target,
		Consts: map[string]*ConstDef{},
		Funcs:  map[string]*mir.Function{},
		state:  map[string]constState{},
		cache:  map[string]*rast.EncodedLiteral{},
		allocs: map[string]*Allocation{},
	}
}

// EvalConst evaluates (or returns the cached result of) the const/static at
// path, detecting structural recursion (CEV003) along the way.
func (ev *Evaluator) EvalConst(path rast.AbsolutePath) (*rast.EncodedLiteral, error) {
	key := path.String()
	switch ev.state[key] {
	case csActive:
		return nil, fmt.Errorf("%s: cyclic constant evaluation of %s", errors.CEV003, key)
	case csDone:
		return ev.cache[key], nil
	}
	def, ok := ev.Consts[key]
	if !ok {
		return nil, &DeferError{Reason: "no const body registered for " + key}
	}
	ev.state[key] = csActive
	retval, err := ev.Run(def.Body, nil)
	if err != nil {
		ev.state[key] = csNotStarted
		return nil, err
	}
	lit, err := ev.Encode(def.Type, retval)
	if err != nil {
		ev.state[key] = csNotStarted
		return nil, err
	}
	ev.cache[key] = lit
	ev.state[key] = csDone
	return lit, nil
}

// materializeStatic returns a read-only Allocation holding path's encoded
// bytes, decoding its relocations into nested StaticRefs, evaluating it on
// demand if this is the first request ("get_lval... Static").
func (ev *Evaluator) materializeStatic(path rast.AbsolutePath) (*Allocation, rast.TypeRef, error) {
	key := path.String()
	if a, ok := ev.allocs[key]; ok {
		return a, ev.Consts[key].Type, nil
	}
	lit, err := ev.EvalConst(path)
	if err != nil {
		return nil, rast.TypeRef{}, err
	}
	a := NewAllocation(uint64(len(lit.Bytes)), false, ev.Consts[key].Type)
	copy(a.Bytes, lit.Bytes)
	a.markInit(0, uint64(len(lit.Bytes)))
	for _, rel := range lit.Relocations {
		a.Relocations[rel.Offset] = RelocPtr{Kind: RelocStatic, Static: &StaticRef{Path: rel.Target}}
	}
	ev.allocs[key] = a
	return a, ev.Consts[key].Type, nil
}

// Run executes fn to completion, returning its return-slot allocation
// (state: retval, locals[], args[]).
func (ev *Evaluator) Run(fn *mir.Function, args []*Allocation) (*Allocation, error) {
	m, err := ev.newMachine(fn, args)
	if err != nil {
		return nil, err
	}
	block := 0
	for {
		if block < 0 || block >= len(fn.Blocks) {
			return nil, bugCheck(errors.BUG002, "branch to nonexistent basic block")
		}
		bb := fn.Blocks[block]
		for _, st := range bb.Statements {
			if err := m.execStatement(st); err != nil {
				return nil, err
			}
		}
		term := bb.Terminator
		switch term.Kind {
		case mir.TermGoto:
			block = term.GotoTarget
		case mir.TermReturn:
			return m.locals[0], nil
		case mir.TermIf:
			cond, err := m.evalBoolOperand(term.IfCond)
			if err != nil {
				return nil, err
			}
			if cond {
				block = term.IfTrue
			} else {
				block = term.IfFalse
			}
		case mir.TermSwitch:
			disc, err := m.evalDiscriminantOperand(term.SwitchValue)
			if err != nil {
				return nil, err
			}
			if tgt, ok := term.SwitchTargets[disc]; ok {
				block = tgt
			} else {
				block = term.SwitchDefault
			}
		case mir.TermCall:
			if err := m.execCall(term); err != nil {
				return nil, err
			}
			block = term.CallRetBlock
		default:
			return nil, bugCheck(errors.BUG002, "unknown terminator kind")
		}
	}
}

// Machine is a single function-activation's local state: locals[] holds
// one allocation per MIR local.
type Machine struct {
	ev     *Evaluator
	fn     *mir.Function
	locals []*Allocation
}

func (ev *Evaluator) newMachine(fn *mir.Function, args []*Allocation) (*Machine, error) {
	locals := make([]*Allocation, len(fn.LocalTypes))
	for i, ty := range fn.LocalTypes {
		if i >= 1 && i <= fn.NumArgs && args != nil && i-1 < len(args) {
			locals[i] = args[i-1]
			continue
		}
		sz, err := ev.Target.SizeOf(ty)
		if err != nil {
			return nil, err
		}
		locals[i] = NewAllocation(sz, true, ty)
	}
	return &Machine{ev: ev, fn: fn, locals: locals}, nil
}

// place is a resolved storage location: an allocation plus a byte offset
// and the HIR type of the value living there.
type place struct {
	alloc *Allocation
	offset uint64
	ty     rast.TypeRef
}

func (m *Machine) evalPlace(lv mir.Lvalue) (*place, error) {
	var p place
	switch lv.Root {
	case mir.RootReturn:
		p = place{alloc: m.locals[0], ty: m.fn.LocalTypes[0]}
	case mir.RootLocal, mir.RootArgument:
		if lv.LocalSlot >= len(m.locals) {
			return nil, bugCheck(errors.BUG002, "local slot out of range")
		}
		p = place{alloc: m.locals[lv.LocalSlot], ty: m.fn.LocalTypes[lv.LocalSlot]}
	case mir.RootStatic:
		a, ty, err := m.ev.materializeStatic(lv.StaticPath)
		if err != nil {
			return nil, err
		}
		p = place{alloc: a, ty: ty}
	default:
		return nil, bugCheck(errors.BUG002, "unknown lvalue root")
	}
	for _, w := range lv.Wrappers {
		switch w.Kind {
		case mir.WrapField:
			repr, err := m.ev.Target.Repr(p.ty)
			if err != nil {
				return nil, err
			}
			if w.FieldIndex < 0 || w.FieldIndex >= len(repr.FieldOffsets) {
				return nil, bugCheck(errors.BUG003, "field index out of range")
			}
			ft, err := m.fieldType(p.ty, w.FieldIndex)
			if err != nil {
				return nil, err
			}
			p.offset += repr.FieldOffsets[w.FieldIndex]
			p.ty = ft
		case mir.WrapDeref:
			ptrBits := m.ev.Target.PointerBits()
			_, reloc, err := p.alloc.ReadPtr(p.offset, ptrBits)
			if err != nil {
				return nil, err
			}
			dt, err := derefType(p.ty)
			if err != nil {
				return nil, err
			}
			switch reloc.Kind {
			case RelocAllocation:
				p = place{alloc: reloc.Alloc, ty: dt}
			case RelocStatic:
				a, _, err := m.ev.materializeStatic(reloc.Static.Path)
				if err != nil {
					return nil, err
				}
				p = place{alloc: a, ty: dt}
			case RelocConstant:
				a := &Allocation{Bytes: reloc.Const.Bytes, Writable: false}
				a.markInitAll()
				p = place{alloc: a, ty: dt}
			default:
				return nil, bugCheck(errors.BUG003, "deref of unrelocated pointer")
			}
		case mir.WrapIndex:
			idx, err := m.evalUsizeOperand(w.IndexOperand)
			if err != nil {
				return nil, err
			}
			if p.ty.Inner == nil {
				return nil, bugCheck(errors.BUG003, "index into non-array/slice type")
			}
			elemTy := *p.ty.Inner
			elemSize, err := m.ev.Target.SizeOf(elemTy)
			if err != nil {
				return nil, err
			}
			var length uint64
			if p.ty.Kind == rast.TArray {
				if !p.ty.SizeExpr.Resolved {
					return nil, &DeferError{Reason: "array length not yet const-evaluated"}
				}
				length = p.ty.SizeExpr.Value
			} else if elemSize > 0 {
				length = (p.alloc.Size() - p.offset) / elemSize
			}
			if idx >= length {
				return nil, fmt.Errorf("%s: index %d out of bounds (len %d)", errors.CEV002, idx, length)
			}
			p.offset += idx * elemSize
			p.ty = elemTy
		case mir.WrapDowncast:
			repr, err := m.ev.Target.Repr(p.ty)
			if err != nil {
				return nil, err
			}
			vrepr, err := m.ev.Target.VariantRepr(p.ty, w.VariantIndex)
			if err != nil {
				return nil, err
			}
			if w.FieldIndex < 0 || w.FieldIndex >= len(vrepr.FieldOffsets) {
				return nil, bugCheck(errors.BUG003, "downcast field index out of range")
			}
			p.offset += repr.PayloadOffset + vrepr.FieldOffsets[w.FieldIndex]
			// The payload field's own type isn't tracked on the wrapper;
			// callers that need it (Assign targets) re-derive it from the
			// enum definition via fieldType with the variant's field list,
			// which Downcast's caller already has in hand when building lvalues.
		}
	}
	return &p, nil
}

func (m *Machine) fieldType(ty rast.TypeRef, idx int) (rast.TypeRef, error) {
	switch ty.Kind {
	case rast.TTuple:
		if idx >= len(ty.Tuple) {
			return rast.TypeRef{}, bugCheck(errors.BUG003, "tuple field index out of range")
		}
		return ty.Tuple[idx], nil
	case rast.TPath:
		dt, ok := m.ev.Target.(*DefaultTarget)
		if !ok {
			return rast.TypeRef{}, &DeferError{Reason: "field type lookup needs DefaultTarget"}
		}
		if ty.Path == nil || ty.Path.Binding() == nil {
			return rast.TypeRef{}, &DeferError{Reason: "unbound field-owner path"}
		}
		key := ty.Path.Binding().Target.String()
		if s, ok := dt.Structs[key]; ok {
			if idx >= len(s.Fields) {
				return rast.TypeRef{}, bugCheck(errors.BUG003, "struct field index out of range")
			}
			return s.Fields[idx].Type, nil
		}
		return rast.TypeRef{}, bugCheck(errors.BUG003, "field access on non-struct path type")
	default:
		return rast.TypeRef{}, bugCheck(errors.BUG003, "field access on non-aggregate type")
	}
}

func derefType(ty rast.TypeRef) (rast.TypeRef, error) {
	if (ty.Kind == rast.TBorrow || ty.Kind == rast.TPointer) && ty.Inner != nil {
		return *ty.Inner, nil
	}
	return rast.TypeRef{}, bugCheck(errors.BUG003, "deref of non-pointer/reference type")
}

func (a *Allocation) markInitAll() {
	n := uint64(len(a.Bytes))
	a.initMask = make([]byte, (n+7)/8)
	if n > 0 {
		a.markInit(0, n)
	}
}

// ---- statement/rvalue execution -----------------------------------------

func (m *Machine) execStatement(st mir.Statement) error {
	switch st.Kind {
	case mir.StmtDrop:
		return nil // "Drop: ignored by the evaluator"
	case mir.StmtAssign:
		dst, err := m.evalPlace(st.AssignTo)
		if err != nil {
			return err
		}
		return m.execAssign(dst, st.AssignValue)
	}
	return bugCheck(errors.BUG002, "unknown statement kind")
}

func (m *Machine) execAssign(dst *place, rv mir.Rvalue) error {
	switch rv.Kind {
	case mir.RvUse:
		return m.evalOperandInto(dst, rv.Operand)
	case mir.RvConstant:
		return m.writeConstant(dst, rv.Constant)
	case mir.RvBorrow:
		return m.execBorrow(dst, rv)
	case mir.RvCast:
		return m.execCast(dst, rv)
	case mir.RvBinOp:
		return m.execBinOp(dst, rv)
	case mir.RvUniOp:
		return m.execUniOp(dst, rv)
	case mir.RvTuple, mir.RvArray, mir.RvStruct:
		return m.execAggregate(dst, rv.Elems)
	case mir.RvSizedArray:
		return m.execSizedArray(dst, rv)
	case mir.RvEnumVariant:
		return m.execEnumVariant(dst, rv)
	}
	return bugCheck(errors.BUG002, "unknown rvalue kind")
}

func (m *Machine) operandAlloc(op mir.Operand, ty rast.TypeRef) (*Allocation, uint64, error) {
	switch op.Kind {
	case mir.OperandCopy, mir.OperandMove:
		p, err := m.evalPlace(op.Place)
		if err != nil {
			return nil, 0, err
		}
		return p.alloc, p.offset, nil
	case mir.OperandConstant:
		sz, err := m.ev.Target.SizeOf(ty)
		if err != nil {
			return nil, 0, err
		}
		tmp := NewAllocation(sz, true, ty)
		if err := m.writeConstant(&place{alloc: tmp, ty: ty}, op.Constant); err != nil {
			return nil, 0, err
		}
		return tmp, 0, nil
	}
	return nil, 0, bugCheck(errors.BUG002, "unknown operand kind")
}

func (m *Machine) evalOperandInto(dst *place, op mir.Operand) error {
	alloc, off, err := m.operandAlloc(op, dst.ty)
	if err != nil {
		return err
	}
	if alloc == dst.alloc && off == dst.offset {
		return nil
	}
	sz, err := m.ev.Target.SizeOf(dst.ty)
	if err != nil {
		return err
	}
	return CopyFrom(dst.alloc, dst.offset, alloc, off, sz)
}

func (m *Machine) writeConstant(dst *place, c mir.ConstantValue) error {
	bits := uint(c.Bits)
	v := num128.U128{Lo: c.U, Hi: c.Hi}
	switch c.Kind {
	case mir.ConstInt:
		return dst.alloc.WriteSint(dst.offset, bits, num128.S128{Bits: v})
	case mir.ConstUint:
		return dst.alloc.WriteUint(dst.offset, bits, v)
	case mir.ConstBool:
		return dst.alloc.WriteUint(dst.offset, 8, v)
	case mir.ConstFloat:
		return dst.alloc.WriteFloat(dst.offset, bits, c.F)
	case mir.ConstStaticString:
		return m.writeFatPointer(dst, []byte(c.Str))
	case mir.ConstBytes:
		return m.writeFatPointer(dst, c.Bytes)
	case mir.ConstItem:
		return m.assignFromConst(dst, c.Path)
	}
	return bugCheck(errors.BUG002, "unknown constant kind")
}

func (m *Machine) writeFatPointer(dst *place, bytes []byte) error {
	ptrBits := m.ev.Target.PointerBits()
	cst := &Constant{Bytes: bytes}
	if err := dst.alloc.WritePtr(dst.offset, ptrBits, 0, RelocPtr{Kind: RelocConstant, Const: cst}); err != nil {
		return err
	}
	lenOff := dst.offset + uint64(ptrBits/8)
	return dst.alloc.WriteUint(lenOff, ptrBits, num128.FromU64(uint64(len(bytes))))
}

func (m *Machine) assignFromConst(dst *place, path rast.AbsolutePath) error {
	lit, err := m.ev.EvalConst(path)
	if err != nil {
		return err
	}
	sz := uint64(len(lit.Bytes))
	if err := requireBounds(dst.alloc, dst.offset, sz); err != nil {
		return err
	}
	copy(dst.alloc.Bytes[dst.offset:dst.offset+sz], lit.Bytes)
	dst.alloc.markInit(dst.offset, sz)
	for _, rel := range lit.Relocations {
		dst.alloc.Relocations[dst.offset+rel.Offset] = RelocPtr{Kind: RelocStatic, Static: &StaticRef{Path: rel.Target}}
	}
	return nil
}

func (m *Machine) execBorrow(dst *place, rv mir.Rvalue) error {
	target, err := m.evalPlace(rv.BorrowTarget)
	if err != nil {
		return err
	}
	ptrBits := m.ev.Target.PointerBits()
	return dst.alloc.WritePtr(dst.offset, ptrBits, target.offset, RelocPtr{Kind: RelocAllocation, Alloc: target.alloc})
}

func bitsOfPrim(p rast.PrimitiveType) uint {
	switch p {
	case rast.PrimBool:
		return 8
	case rast.PrimChar:
		return 32
	case rast.PrimI8, rast.PrimU8:
		return 8
	case rast.PrimI16, rast.PrimU16:
		return 16
	case rast.PrimI32, rast.PrimU32, rast.PrimF32:
		return 32
	case rast.PrimI64, rast.PrimU64, rast.PrimF64:
		return 64
	case rast.PrimI128, rast.PrimU128:
		return 128
	case rast.PrimIsize, rast.PrimUsize:
		return 64
	}
	return 0
}

func isFloatPrim(ty rast.TypeRef) bool {
	return ty.Kind == rast.TPrimitive && (ty.Prim == rast.PrimF32 || ty.Prim == rast.PrimF64)
}

func isSignedPrim(ty rast.TypeRef) bool {
	if ty.Kind != rast.TPrimitive {
		return false
	}
	switch ty.Prim {
	case rast.PrimI8, rast.PrimI16, rast.PrimI32, rast.PrimI64, rast.PrimI128, rast.PrimIsize:
		return true
	}
	return false
}

func (m *Machine) execCast(dst *place, rv mir.Rvalue) error {
	alloc, off, err := m.operandAlloc(rv.Operand, rv.CastFrom)
	if err != nil {
		return err
	}
	toBits := bitsOfPrim(rv.CastTo.Prim)
	fromBits := bitsOfPrim(rv.CastFrom.Prim)
	switch rv.CastKind {
	case mir.CastIntToInt:
		if isSignedPrim(rv.CastFrom) {
			v, err := alloc.ReadSint(off, fromBits)
			if err != nil {
				return err
			}
			return dst.alloc.WriteUint(dst.offset, toBits, num128.Mask(v.Bits, toBits))
		}
		v, err := alloc.ReadUint(off, fromBits)
		if err != nil {
			return err
		}
		return dst.alloc.WriteUint(dst.offset, toBits, num128.Mask(v, toBits))
	case mir.CastIntToFloat:
		var f float64
		if isSignedPrim(rv.CastFrom) {
			v, err := alloc.ReadSint(off, fromBits)
			if err != nil {
				return err
			}
			if v.IsNegative() {
				f = -v.Abs().ToFloat64()
			} else {
				f = v.Bits.ToFloat64()
			}
		} else {
			v, err := alloc.ReadUint(off, fromBits)
			if err != nil {
				return err
			}
			f = v.ToFloat64()
		}
		return dst.alloc.WriteFloat(dst.offset, toBits, f)
	case mir.CastFloatToInt:
		f, err := alloc.ReadFloat(off, fromBits)
		if err != nil {
			return err
		}
		if isSignedPrim(rv.CastTo) {
			return dst.alloc.WriteSint(dst.offset, toBits, num128.S128{Bits: num128.FromU64(uint64(int64(f)))})
		}
		return dst.alloc.WriteUint(dst.offset, toBits, num128.FromU64(uint64(f)))
	case mir.CastEnumToInt:
		v, err := alloc.ReadUint(off, 64)
		if err != nil {
			return err
		}
		return dst.alloc.WriteUint(dst.offset, toBits, num128.Mask(v, toBits))
	case mir.CastPtrToPtr:
		ptrBits := m.ev.Target.PointerBits()
		addr, reloc, err := alloc.ReadPtr(off, ptrBits)
		if err != nil {
			return err
		}
		return dst.alloc.WritePtr(dst.offset, ptrBits, addr-PtrBase, reloc)
	case mir.CastUnsize:
		// &T -> &dyn Trait normally synthesises a vtable pointer from
		// <T as Trait>::vtable#; vtable layout belongs to the (excluded)
		// type checker and codegen this core precedes, so this core
		// preserves the data pointer and leaves metadata synthesis to the
		// collaborator that builds the vtable.
		ptrBits := m.ev.Target.PointerBits()
		addr, reloc, err := alloc.ReadPtr(off, ptrBits)
		if err != nil {
			return err
		}
		return dst.alloc.WritePtr(dst.offset, ptrBits, addr-PtrBase, reloc)
	}
	return bugCheck(errors.BUG002, "unknown cast kind")
}

func boolU(b bool) num128.U128 {
	if b {
		return num128.FromU64(1)
	}
	return num128.Zero
}

func (m *Machine) execBinOp(dst *place, rv mir.Rvalue) error {
	lhsAlloc, lhsOff, err := m.operandAlloc(rv.LHS, rv.OperandType)
	if err != nil {
		return err
	}
	rhsAlloc, rhsOff, err := m.operandAlloc(rv.RHS, rv.OperandType)
	if err != nil {
		return err
	}
	bits := bitsOfPrim(rv.OperandType.Prim)
	switch {
	case isFloatPrim(rv.OperandType):
		a, err := lhsAlloc.ReadFloat(lhsOff, bits)
		if err != nil {
			return err
		}
		b, err := rhsAlloc.ReadFloat(rhsOff, bits)
		if err != nil {
			return err
		}
		return m.writeFloatBinOp(dst, rv.BinOp, a, b, bits)
	case isSignedPrim(rv.OperandType):
		a, err := lhsAlloc.ReadSint(lhsOff, bits)
		if err != nil {
			return err
		}
		b, err := rhsAlloc.ReadSint(rhsOff, bits)
		if err != nil {
			return err
		}
		return m.writeSignedBinOp(dst, rv.BinOp, a, b, bits)
	default:
		a, err := lhsAlloc.ReadUint(lhsOff, bits)
		if err != nil {
			return err
		}
		b, err := rhsAlloc.ReadUint(rhsOff, bits)
		if err != nil {
			return err
		}
		return m.writeUnsignedBinOp(dst, rv.BinOp, a, b, bits)
	}
}

func (m *Machine) writeUnsignedBinOp(dst *place, op string, a, b num128.U128, bits uint) error {
	switch op {
	case "+":
		r, _ := a.Add(b)
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(r, bits))
	case "-":
		r, _ := a.Sub(b)
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(r, bits))
	case "*":
		r, _ := a.Mul(b)
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(r, bits))
	case "/":
		if b == num128.Zero {
			return fmt.Errorf("%s: division by zero", errors.CEV004)
		}
		q, _ := a.DivMod(b)
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(q, bits))
	case "%":
		if b == num128.Zero {
			return fmt.Errorf("%s: division by zero", errors.CEV004)
		}
		_, r := a.DivMod(b)
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(r, bits))
	case "&":
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(a.And(b), bits))
	case "|":
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(a.Or(b), bits))
	case "^":
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(a.Xor(b), bits))
	case "<<":
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(a.Shl(uint(b.Lo%uint64(bits))), bits))
	case ">>":
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(a.Shr(uint(b.Lo%uint64(bits))), bits))
	case "==":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a.Cmp(b) == 0))
	case "!=":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a.Cmp(b) != 0))
	case "<":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a.Cmp(b) < 0))
	case "<=":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a.Cmp(b) <= 0))
	case ">":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a.Cmp(b) > 0))
	case ">=":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a.Cmp(b) >= 0))
	}
	return bugCheck(errors.BUG002, "unknown binop "+op)
}

func (m *Machine) writeSignedBinOp(dst *place, op string, a, b num128.S128, bits uint) error {
	switch op {
	case "+":
		r, _ := a.Add(b)
		return dst.alloc.WriteSint(dst.offset, bits, num128.S128{Bits: num128.Mask(r.Bits, bits)})
	case "-":
		r, _ := a.Sub(b)
		return dst.alloc.WriteSint(dst.offset, bits, num128.S128{Bits: num128.Mask(r.Bits, bits)})
	case "*":
		r := a.Mul(b)
		return dst.alloc.WriteSint(dst.offset, bits, num128.S128{Bits: num128.Mask(r.Bits, bits)})
	case "/":
		if b.Bits == num128.Zero {
			return fmt.Errorf("%s: division by zero", errors.CEV004)
		}
		q, _ := a.DivMod(b)
		return dst.alloc.WriteSint(dst.offset, bits, num128.S128{Bits: num128.Mask(q.Bits, bits)})
	case "%":
		if b.Bits == num128.Zero {
			return fmt.Errorf("%s: division by zero", errors.CEV004)
		}
		_, r := a.DivMod(b)
		return dst.alloc.WriteSint(dst.offset, bits, num128.S128{Bits: num128.Mask(r.Bits, bits)})
	case "<<":
		return dst.alloc.WriteSint(dst.offset, bits, num128.S128{Bits: num128.Mask(a.Shl(uint(b.Bits.Lo%uint64(bits))).Bits, bits)})
	case ">>":
		return dst.alloc.WriteSint(dst.offset, bits, num128.S128{Bits: num128.Mask(a.Shr(uint(b.Bits.Lo%uint64(bits))).Bits, bits)})
	case "&":
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(a.Bits.And(b.Bits), bits))
	case "|":
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(a.Bits.Or(b.Bits), bits))
	case "^":
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(a.Bits.Xor(b.Bits), bits))
	case "==":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a.Cmp(b) == 0))
	case "!=":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a.Cmp(b) != 0))
	case "<":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a.Cmp(b) < 0))
	case "<=":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a.Cmp(b) <= 0))
	case ">":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a.Cmp(b) > 0))
	case ">=":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a.Cmp(b) >= 0))
	}
	return bugCheck(errors.BUG002, "unknown signed binop "+op)
}

func (m *Machine) writeFloatBinOp(dst *place, op string, a, b float64, bits uint) error {
	switch op {
	case "+":
		return dst.alloc.WriteFloat(dst.offset, bits, a+b)
	case "-":
		return dst.alloc.WriteFloat(dst.offset, bits, a-b)
	case "*":
		return dst.alloc.WriteFloat(dst.offset, bits, a*b)
	case "/":
		return dst.alloc.WriteFloat(dst.offset, bits, a/b)
	case "==":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a == b))
	case "!=":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a != b))
	case "<":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a < b))
	case "<=":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a <= b))
	case ">":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a > b))
	case ">=":
		return dst.alloc.WriteUint(dst.offset, 8, boolU(a >= b))
	}
	return bugCheck(errors.BUG002, "unknown float binop "+op)
}

func (m *Machine) execUniOp(dst *place, rv mir.Rvalue) error {
	alloc, off, err := m.operandAlloc(rv.Operand, rv.OperandType)
	if err != nil {
		return err
	}
	bits := bitsOfPrim(rv.OperandType.Prim)
	if isFloatPrim(rv.OperandType) {
		if rv.UniOp != "-" {
			return bugCheck(errors.BUG002, "only NEG is legal on floats")
		}
		f, err := alloc.ReadFloat(off, bits)
		if err != nil {
			return err
		}
		return dst.alloc.WriteFloat(dst.offset, bits, -f)
	}
	v, err := alloc.ReadUint(off, bits)
	if err != nil {
		return err
	}
	switch rv.UniOp {
	case "-":
		neg, _ := num128.Zero.Sub(v)
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(neg, bits))
	case "!":
		return dst.alloc.WriteUint(dst.offset, bits, num128.Mask(v.Not(), bits))
	}
	return bugCheck(errors.BUG002, "unknown uniop "+rv.UniOp)
}

func (m *Machine) execAggregate(dst *place, elems []mir.Operand) error {
	if dst.ty.Kind == rast.TArray || dst.ty.Kind == rast.TSlice {
		elemTy := *dst.ty.Inner
		elemSize, err := m.ev.Target.SizeOf(elemTy)
		if err != nil {
			return err
		}
		for i, op := range elems {
			sub := &place{alloc: dst.alloc, offset: dst.offset + uint64(i)*elemSize, ty: elemTy}
			if err := m.evalOperandInto(sub, op); err != nil {
				return err
			}
		}
		return nil
	}
	repr, err := m.ev.Target.Repr(dst.ty)
	if err != nil {
		return err
	}
	for i, op := range elems {
		var fieldTy rast.TypeRef
		if dst.ty.Kind == rast.TTuple {
			fieldTy = dst.ty.Tuple[i]
		} else {
			fieldTy, err = m.fieldType(dst.ty, i)
			if err != nil {
				return err
			}
		}
		sub := &place{alloc: dst.alloc, offset: dst.offset + repr.FieldOffsets[i], ty: fieldTy}
		if err := m.evalOperandInto(sub, op); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) execSizedArray(dst *place, rv mir.Rvalue) error {
	if dst.ty.Inner == nil {
		return bugCheck(errors.BUG003, "SizedArray rvalue against a non-array place")
	}
	elemTy := *dst.ty.Inner
	elemSize, err := m.ev.Target.SizeOf(elemTy)
	if err != nil {
		return err
	}
	for i := uint64(0); i < rv.RepeatCount; i++ {
		sub := &place{alloc: dst.alloc, offset: dst.offset + i*elemSize, ty: elemTy}
		if err := m.evalOperandInto(sub, rv.Operand); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) writeDiscriminant(dst *place, repr *TypeRepr, variantIdx int) error {
	switch repr.Tagging {
	case TagValues:
		if variantIdx >= len(repr.TagValues) {
			return bugCheck(errors.BUG003, "variant index out of range for discriminant table")
		}
		return dst.alloc.WriteSint(dst.offset, 64, num128.S128{Bits: num128.FromU64(uint64(repr.TagValues[variantIdx]))})
	case TagNone:
		return nil
	default:
		return dst.alloc.WriteUint(dst.offset+repr.TagOffset, 64, num128.FromU64(uint64(variantIdx)))
	}
}

func (m *Machine) execEnumVariant(dst *place, rv mir.Rvalue) error {
	repr, err := m.ev.Target.Repr(dst.ty)
	if err != nil {
		return err
	}
	if err := m.writeDiscriminant(dst, repr, rv.VariantIdx); err != nil {
		return err
	}
	vrepr, err := m.ev.Target.VariantRepr(dst.ty, rv.VariantIdx)
	if err != nil {
		return err
	}
	dt, ok := m.ev.Target.(*DefaultTarget)
	if !ok {
		return &DeferError{Reason: "enum variant field types need DefaultTarget"}
	}
	e, err := dt.lookupEnum(dst.ty)
	if err != nil {
		return err
	}
	variant := e.Variants[rv.VariantIdx]
	for i, op := range rv.Elems {
		sub := &place{
			alloc:  dst.alloc,
			offset: dst.offset + repr.PayloadOffset + vrepr.FieldOffsets[i],
			ty:     variant.Fields[i].Type,
		}
		if err := m.evalOperandInto(sub, op); err != nil {
			return err
		}
	}
	return nil
}

// ---- terminator helpers --------------------------------------------------

func (m *Machine) evalBoolOperand(op mir.Operand) (bool, error) {
	alloc, off, err := m.operandAlloc(op, rast.Prim(rast.PrimBool))
	if err != nil {
		return false, err
	}
	v, err := alloc.ReadUint(off, 8)
	if err != nil {
		return false, err
	}
	return v.Lo != 0, nil
}

func (m *Machine) evalUsizeOperand(op mir.Operand) (uint64, error) {
	alloc, off, err := m.operandAlloc(op, rast.Prim(rast.PrimUsize))
	if err != nil {
		return 0, err
	}
	return alloc.ReadUsize(off, m.ev.Target.PointerBits())
}

func (m *Machine) evalDiscriminantOperand(op mir.Operand) (int64, error) {
	alloc, off, err := m.operandAlloc(op, rast.Prim(rast.PrimI64))
	if err != nil {
		return 0, err
	}
	v, err := alloc.ReadSint(off, 64)
	if err != nil {
		return 0, err
	}
	return int64(v.Bits.Lo), nil
}

// execCall dispatches a Call terminator: either a named intrinsic
// (size_of, min_align_of, bswap, transmute) or an ordinary function,
// recursed into with a fresh Machine (no depth limit beyond the
// MIR's own stack).
func (m *Machine) execCall(term mir.Terminator) error {
	dst, err := m.evalPlace(term.CallRetVal)
	if err != nil {
		return err
	}
	if term.CallFunc.Kind == mir.CallIntrinsic {
		return m.execIntrinsic(dst, term.CallFunc.Intrinsic, term.CallArgs, term.CallTypeArgs)
	}
	key := term.CallFunc.Path.String()
	fn, ok := m.ev.Funcs[key]
	if !ok {
		return &DeferError{Reason: "callee " + key + " has no registered MIR body"}
	}
	args := make([]*Allocation, len(term.CallArgs))
	for i, a := range term.CallArgs {
		alloc, off, err := m.operandAlloc(a, fn.LocalTypes[1+i])
		if err != nil {
			return err
		}
		sz, err := m.ev.Target.SizeOf(fn.LocalTypes[1+i])
		if err != nil {
			return err
		}
		fresh := NewAllocation(sz, true, fn.LocalTypes[1+i])
		if err := CopyFrom(fresh, 0, alloc, off, sz); err != nil {
			return err
		}
		args[i] = fresh
	}
	ret, err := m.ev.Run(fn, args)
	if err != nil {
		return err
	}
	sz, err := m.ev.Target.SizeOf(dst.ty)
	if err != nil {
		return err
	}
	return CopyFrom(dst.alloc, dst.offset, ret, 0, sz)
}

func (m *Machine) execIntrinsic(dst *place, name string, args []mir.Operand, typeArgs []rast.TypeRef) error {
	switch name {
	case "size_of":
		if len(typeArgs) != 1 {
			return bugCheck(errors.BUG002, "size_of requires exactly one type argument")
		}
		sz, err := m.ev.Target.SizeOf(typeArgs[0])
		if err != nil {
			return err
		}
		return dst.alloc.WriteUint(dst.offset, m.ev.Target.PointerBits(), num128.FromU64(sz))
	case "min_align_of":
		if len(typeArgs) != 1 {
			return bugCheck(errors.BUG002, "min_align_of requires exactly one type argument")
		}
		a, err := m.ev.Target.AlignOf(typeArgs[0])
		if err != nil {
			return err
		}
		return dst.alloc.WriteUint(dst.offset, m.ev.Target.PointerBits(), num128.FromU64(a))
	case "bswap":
		if len(args) != 1 {
			return bugCheck(errors.BUG002, "bswap requires exactly one argument")
		}
		alloc, off, err := m.operandAlloc(args[0], dst.ty)
		if err != nil {
			return err
		}
		sz, err := m.ev.Target.SizeOf(dst.ty)
		if err != nil {
			return err
		}
		buf := make([]byte, sz)
		copy(buf, alloc.Bytes[off:off+sz])
		for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
			buf[i], buf[j] = buf[j], buf[i]
		}
		copy(dst.alloc.Bytes[dst.offset:dst.offset+sz], buf)
		dst.alloc.markInit(dst.offset, sz)
		return nil
	case "transmute":
		if len(args) != 1 {
			return bugCheck(errors.BUG002, "transmute requires exactly one argument")
		}
		alloc, off, err := m.operandAlloc(args[0], dst.ty)
		if err != nil {
			return err
		}
		sz, err := m.ev.Target.SizeOf(dst.ty)
		if err != nil {
			return err
		}
		return CopyFrom(dst.alloc, dst.offset, alloc, off, sz)
	}
	return fmt.Errorf("%s: unknown intrinsic %q", errors.E0000, name)
}
