package consteval

import (
	"testing"

	"github.com/rustbootstrap/mrustc-core/internal/mir"
	"github.com/rustbootstrap/mrustc-core/internal/num128"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

func usizeTy() rast.TypeRef { return rast.Prim(rast.PrimUsize) }

// constU constructs a one-block MIR function that assigns the literal
// uint k to the return slot and returns it.
func constU(k uint64) *mir.Function {
	return &mir.Function{
		LocalTypes: []rast.TypeRef{usizeTy()},
		Blocks: []mir.BasicBlock{{
			Statements: []mir.Statement{{
				Kind:     mir.StmtAssign,
				AssignTo: mir.Return(),
				AssignValue: mir.Rvalue{
					Kind:     mir.RvConstant,
					Constant: mir.ConstantValue{Kind: mir.ConstUint, Bits: 64, U: k},
				},
			}},
			Terminator: mir.Terminator{Kind: mir.TermReturn},
		}},
	}
}

// addFn builds `retval = a + b` as a single basic block, exercising the
// RvBinOp unsigned-add path.
func addFn(a, b uint64) *mir.Function {
	return &mir.Function{
		LocalTypes: []rast.TypeRef{usizeTy()},
		Blocks: []mir.BasicBlock{{
			Statements: []mir.Statement{{
				Kind:     mir.StmtAssign,
				AssignTo: mir.Return(),
				AssignValue: mir.Rvalue{
					Kind: mir.RvBinOp,
					BinOp: "+",
					LHS: mir.ConstOperand(mir.ConstantValue{Kind: mir.ConstUint, Bits: 64, U: a}),
					RHS: mir.ConstOperand(mir.ConstantValue{Kind: mir.ConstUint, Bits: 64, U: b}),
					OperandType: usizeTy(),
				},
			}},
			Terminator: mir.Terminator{Kind: mir.TermReturn},
		}},
	}
}

func newTestEvaluator() *Evaluator {
	target := NewDefaultTarget(map[string]*rast.StructItem{}, map[string]*rast.EnumItem{})
	return NewEvaluator(target)
}

// TestConstantEvaluateArrayLength covers `const N: usize = 2 + 3`, which
// must fold to the 8-byte little-endian encoding of 5 on a 64-bit target.
func TestConstantEvaluateArrayLength(t *testing.T) {
	ev := newTestEvaluator()
	path := rast.AbsolutePath{Crate: "test", Nodes: []string{"N"}}
	ev.Consts[path.String()] = &ConstDef{Type: usizeTy(), Body: addFn(2, 3)}

	lit, err := ev.EvalConst(path)
	if err != nil {
		t.Fatalf("EvalConst: %v", err)
	}
	if len(lit.Bytes) != 8 {
		t.Fatalf("expected 8-byte usize encoding, got %d bytes", len(lit.Bytes))
	}
	got := num128.FromLittleEndian(lit.Bytes).Lo
	if got != 5 {
		t.Fatalf("expected folded value 5, got %d", got)
	}
}

// TestEvalConstCachesResult exercises the csDone fast path: a second
// EvalConst call for the same path must not re-run the body (and does
// return byte-identical results either way).
func TestEvalConstCachesResult(t *testing.T) {
	ev := newTestEvaluator()
	path := rast.AbsolutePath{Crate: "test", Nodes: []string{"N"}}
	ev.Consts[path.String()] = &ConstDef{Type: usizeTy(), Body: constU(7)}

	first, err := ev.EvalConst(path)
	if err != nil {
		t.Fatalf("EvalConst: %v", err)
	}
	second, err := ev.EvalConst(path)
	if err != nil {
		t.Fatalf("EvalConst (cached): %v", err)
	}
	if num128.FromLittleEndian(first.Bytes).Lo != num128.FromLittleEndian(second.Bytes).Lo {
		t.Fatalf("cached result diverged from first evaluation")
	}
}

// TestEvalConstDetectsCycle exercises the structural-cycle detector
// (a recursive entry signals a user-visible cycle error, CEV003):
// a const whose body calls itself must fail rather than loop forever.
func TestEvalConstDetectsCycle(t *testing.T) {
	ev := newTestEvaluator()
	path := rast.AbsolutePath{Crate: "test", Nodes: []string{"CYCLE"}}
	selfCall := &mir.Function{
		LocalTypes: []rast.TypeRef{usizeTy()},
		Blocks: []mir.BasicBlock{{
			Statements: []mir.Statement{{
				Kind:     mir.StmtAssign,
				AssignTo: mir.Return(),
				AssignValue: mir.Rvalue{
					Kind:     mir.RvConstant,
					Constant: mir.ConstantValue{Kind: mir.ConstItem, Path: path},
				},
			}},
			Terminator: mir.Terminator{Kind: mir.TermReturn},
		}},
	}
	ev.Consts[path.String()] = &ConstDef{Type: usizeTy(), Body: selfCall}

	if _, err := ev.EvalConst(path); err == nil {
		t.Fatal("expected cyclic constant evaluation to fail")
	}
}

// TestWriteUintRequiresInitOnRead is property P4: after a write, every
// byte in the written range must read back as initialized.
func TestWriteUintRequiresInitOnRead(t *testing.T) {
	a := NewAllocation(8, true, usizeTy())
	if err := a.WriteUint(0, 32, num128.FromU64(0xdeadbeef)); err != nil {
		t.Fatalf("WriteUint: %v", err)
	}
	if _, err := a.ReadUint(0, 32); err != nil {
		t.Fatalf("expected written bytes to read as initialized: %v", err)
	}
	if _, err := a.ReadUint(4, 32); err == nil {
		t.Fatal("expected read of never-written bytes to fail (uninitialized)")
	}
}

// TestCopyFromIsBytewiseEqual is property P5: copy_from over length L
// yields destination bytes equal to the source in [0, L).
func TestCopyFromIsBytewiseEqual(t *testing.T) {
	src := NewAllocation(8, true, usizeTy())
	if err := src.WriteUint(0, 64, num128.FromU64(0x0102030405060708)); err != nil {
		t.Fatalf("WriteUint: %v", err)
	}
	dst := NewAllocation(8, true, usizeTy())
	if err := CopyFrom(dst, 0, src, 0, 8); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	for i := range src.Bytes {
		if src.Bytes[i] != dst.Bytes[i] {
			t.Fatalf("byte %d diverged: src=%x dst=%x", i, src.Bytes[i], dst.Bytes[i])
		}
	}
	v, err := dst.ReadUint(0, 64)
	if err != nil {
		t.Fatalf("ReadUint on copy destination: %v", err)
	}
	if v.Lo != 0x0102030405060708 {
		t.Fatalf("unexpected copied value %x", v.Lo)
	}
}

// TestCopyFromRejectsOverlap exercises the CEV005 overlap guard.
func TestCopyFromRejectsOverlap(t *testing.T) {
	a := NewAllocation(16, true, usizeTy())
	if err := CopyFrom(a, 0, a, 4, 8); err == nil {
		t.Fatal("expected overlapping copy_from to fail")
	}
}

// TestShiftMasksByOperandWidth is property P6: a << b and a >> b mask the
// shift amount by the operand's own bit width.
func TestShiftMasksByOperandWidth(t *testing.T) {
	ev := newTestEvaluator()
	m := &Machine{ev: ev, fn: &mir.Function{LocalTypes: []rast.TypeRef{rast.Prim(rast.PrimU8)}}}
	dst := &place{alloc: NewAllocation(1, true, rast.Prim(rast.PrimU8)), ty: rast.Prim(rast.PrimU8)}

	// shifting an 8-bit value left by 8 masks the shift amount by 8,
	// i.e. shifts by 0, leaving the value unchanged.
	if err := m.writeUnsignedBinOp(dst, "<<", num128.FromU64(1), num128.FromU64(8), 8); err != nil {
		t.Fatalf("writeUnsignedBinOp: %v", err)
	}
	v, err := dst.alloc.ReadUint(0, 8)
	if err != nil {
		t.Fatalf("ReadUint: %v", err)
	}
	if v.Lo != 1 {
		t.Fatalf("expected shift-by-width-mod-width to be a no-op, got %d", v.Lo)
	}
}

// TestDivisionByZeroFails exercises the integer division-by-zero contract.
func TestDivisionByZeroFails(t *testing.T) {
	m := &Machine{}
	dst := &place{alloc: NewAllocation(8, true, usizeTy()), ty: usizeTy()}
	if err := m.writeUnsignedBinOp(dst, "/", num128.FromU64(10), num128.Zero, 64); err == nil {
		t.Fatal("expected division by zero to fail")
	}
}

// TestBswapReversesBytes exercises the bswap intrinsic, which reverses
// the bytes of its argument.
func TestBswapReversesBytes(t *testing.T) {
	ev := newTestEvaluator()
	src := NewAllocation(4, true, rast.Prim(rast.PrimU32))
	if err := src.WriteUint(0, 32, num128.FromU64(0x01020304)); err != nil {
		t.Fatalf("WriteUint: %v", err)
	}
	m := &Machine{ev: ev}
	dst := &place{alloc: NewAllocation(4, true, rast.Prim(rast.PrimU32)), ty: rast.Prim(rast.PrimU32)}
	op := mir.Operand{Kind: mir.OperandCopy, Place: mir.Local(0)}
	m.fn = &mir.Function{LocalTypes: []rast.TypeRef{rast.Prim(rast.PrimU32), rast.Prim(rast.PrimU32)}}
	m.locals = []*Allocation{dst.alloc, src}
	op.Place = mir.Local(1)
	if err := m.execIntrinsic(dst, "bswap", []mir.Operand{op}, nil); err != nil {
		t.Fatalf("execIntrinsic bswap: %v", err)
	}
	v, err := dst.alloc.ReadUint(0, 32)
	if err != nil {
		t.Fatalf("ReadUint: %v", err)
	}
	if v.Lo != 0x04030201 {
		t.Fatalf("expected byte-reversed 0x04030201, got %x", v.Lo)
	}
}
