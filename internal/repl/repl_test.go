package repl

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustbootstrap/mrustc-core/internal/consteval"
	"github.com/rustbootstrap/mrustc-core/internal/mir"
	"github.com/rustbootstrap/mrustc-core/internal/pipeline"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

func addFn(a, b uint64) *mir.Function {
	usize := rast.Prim(rast.PrimUsize)
	return &mir.Function{
		LocalTypes: []rast.TypeRef{usize},
		Blocks: []mir.BasicBlock{{
			Statements: []mir.Statement{{
				Kind:     mir.StmtAssign,
				AssignTo: mir.Return(),
				AssignValue: mir.Rvalue{
					Kind:        mir.RvBinOp,
					BinOp:       "+",
					LHS:         mir.ConstOperand(mir.ConstantValue{Kind: mir.ConstUint, Bits: 64, U: a}),
					RHS:         mir.ConstOperand(mir.ConstantValue{Kind: mir.ConstUint, Bits: 64, U: b}),
					OperandType: usize,
				},
			}},
			Terminator: mir.Terminator{Kind: mir.TermReturn},
		}},
	}
}

func newTestREPL(t *testing.T) *REPL {
	t.Helper()
	root := rast.NewModule(rast.AbsolutePath{Crate: "test"})
	constN := &rast.ConstItem{
		ItemCommon: rast.ItemCommon{Name: "N"},
		Type:       rast.Prim(rast.PrimUsize),
		Value:      &rast.LitExpr{Kind: rast.LitInt, Value: uint64(0)},
	}
	root.AddItem(true, "N", constN, rast.AttributeList{})

	target := consteval.NewDefaultTarget(map[string]*rast.StructItem{}, map[string]*rast.EnumItem{})
	mirProvider := func(path rast.AbsolutePath, expr rast.Expr, retType rast.TypeRef) (*mir.Function, error) {
		return addFn(2, 3), nil
	}
	d := pipeline.NewDriver(root, target, mirProvider, nil)
	require.NoError(t, d.Run())
	return New(d, root, "test")
}

func TestHandleConstsListsEvaluatedPath(t *testing.T) {
	color.NoColor = true
	r := newTestREPL(t)
	var buf bytes.Buffer
	r.handle(":consts", &buf)
	assert.Contains(t, buf.String(), "test::N")
}

func TestHandleEvalPrintsFoldedValue(t *testing.T) {
	color.NoColor = true
	r := newTestREPL(t)
	var buf bytes.Buffer
	r.handle(":eval test::N", &buf)
	assert.Contains(t, buf.String(), "= 5")
}

func TestHandleErrorsEmptyWhenDriverSucceeds(t *testing.T) {
	color.NoColor = true
	r := newTestREPL(t)
	var buf bytes.Buffer
	r.handle(":errors", &buf)
	assert.Contains(t, buf.String(), "no errors recorded")
}

func TestHandleUnknownCommand(t *testing.T) {
	color.NoColor = true
	r := newTestREPL(t)
	var buf bytes.Buffer
	r.handle(":bogus", &buf)
	assert.Contains(t, buf.String(), "unknown command")
}
