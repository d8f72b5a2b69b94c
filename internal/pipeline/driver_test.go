package pipeline

import (
	"testing"

	"github.com/rustbootstrap/mrustc-core/internal/consteval"
	"github.com/rustbootstrap/mrustc-core/internal/mir"
	"github.com/rustbootstrap/mrustc-core/internal/num128"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

// addTwoPlusThree builds the one-block MIR body for `2 + 3`, standing in
// for the (excluded) MIR builder the driver's MIRProvider wraps.
func addTwoPlusThree() *mir.Function {
	usize := rast.Prim(rast.PrimUsize)
	return &mir.Function{
		LocalTypes: []rast.TypeRef{usize},
		Blocks: []mir.BasicBlock{{
			Statements: []mir.Statement{{
				Kind:     mir.StmtAssign,
				AssignTo: mir.Return(),
				AssignValue: mir.Rvalue{
					Kind: mir.RvBinOp,
					BinOp: "+",
					LHS: mir.ConstOperand(mir.ConstantValue{Kind: mir.ConstUint, Bits: 64, U: 2}),
					RHS: mir.ConstOperand(mir.ConstantValue{Kind: mir.ConstUint, Bits: 64, U: 3}),
					OperandType: usize,
				},
			}},
			Terminator: mir.Terminator{Kind: mir.TermReturn},
		}},
	}
}

// TestDriverRunEvaluatesConstItem runs the full pass sequence over a
// one-item crate (`const N: usize = 2 + 3;`) and checks that
// ConvertHIR_ConstantEvaluate folds N's body to 5, end to end through the
// Driver entry point order rather than calling the evaluator directly.
func TestDriverRunEvaluatesConstItem(t *testing.T) {
	root := rast.NewModule(rast.AbsolutePath{Crate: "test"})
	constN := &rast.ConstItem{
		ItemCommon: rast.ItemCommon{Name: "N"},
		Type:       rast.Prim(rast.PrimUsize),
		Value:      &rast.LitExpr{Kind: rast.LitInt, Value: uint64(0)},
	}
	root.AddItem(true, "N", constN, rast.AttributeList{})

	target := consteval.NewDefaultTarget(map[string]*rast.StructItem{}, map[string]*rast.EnumItem{})
	mirProvider := func(path rast.AbsolutePath, expr rast.Expr, retType rast.TypeRef) (*mir.Function, error) {
		return addTwoPlusThree(), nil
	}

	d := NewDriver(root, target, mirProvider, nil)
	if err := d.Run(); err != nil {
		t.Fatalf("Driver.Run: %v (errors: %v)", err, d.Errors())
	}
	if constN.Encoded == nil {
		t.Fatal("expected const N to carry an EncodedLiteral after the driver runs")
	}
	if len(constN.Encoded.Bytes) != 8 {
		t.Fatalf("expected 8-byte usize encoding, got %d bytes", len(constN.Encoded.Bytes))
	}
	got := num128.FromLittleEndian(constN.Encoded.Bytes).Lo
	if got != 5 {
		t.Fatalf("expected folded constant 5, got %d", got)
	}
}

// TestDriverRunHaltsOnPassError exercises the phase gate of §7 ("a pass
// with any error prevents the next pass"): a MIRProvider that always fails
// must stop the driver at the constant_evaluate pass rather than silently
// continuing.
func TestDriverRunHaltsOnPassError(t *testing.T) {
	root := rast.NewModule(rast.AbsolutePath{Crate: "test"})
	constN := &rast.ConstItem{
		ItemCommon: rast.ItemCommon{Name: "N"},
		Type:       rast.Prim(rast.PrimUsize),
		Value:      &rast.LitExpr{Kind: rast.LitInt, Value: uint64(0)},
	}
	root.AddItem(true, "N", constN, rast.AttributeList{})

	target := consteval.NewDefaultTarget(map[string]*rast.StructItem{}, map[string]*rast.EnumItem{})
	mirProvider := func(path rast.AbsolutePath, expr rast.Expr, retType rast.TypeRef) (*mir.Function, error) {
		return nil, errNoMIR{}
	}

	d := NewDriver(root, target, mirProvider, nil)
	if err := d.Run(); err == nil {
		t.Fatal("expected Driver.Run to report an error from the failing MIRProvider")
	}
	if len(d.Errors()) == 0 {
		t.Fatal("expected at least one recorded error report")
	}
}

type errNoMIR struct{}

func (errNoMIR) Error() string { return "no MIR available" }
