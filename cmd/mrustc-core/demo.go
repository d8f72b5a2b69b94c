package main

import (
	"github.com/rustbootstrap/mrustc-core/internal/consteval"
	"github.com/rustbootstrap/mrustc-core/internal/mir"
	"github.com/rustbootstrap/mrustc-core/internal/pipeline"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

// buildDemoCrate constructs a worked-example crate (`const N: usize = 2 +
// 3;`) for the pipeline and repl subcommands, standing in for the
// source-level front end this driver assumes already ran.
func buildDemoCrate() *rast.Module {
	root := rast.NewModule(rast.AbsolutePath{Crate: "demo"})
	constN := &rast.ConstItem{
		ItemCommon: rast.ItemCommon{Name: "N"},
		Type:       rast.Prim(rast.PrimUsize),
		Value:      &rast.LitExpr{Kind: rast.LitInt, Value: uint64(0)},
	}
	root.AddItem(true, "N", constN, rast.AttributeList{})
	return root
}

// demoMIRProvider supplies `2 + 3` as the MIR body for every const/static it
// is asked about, since the demo crate has exactly one such item.
func demoMIRProvider(path rast.AbsolutePath, expr rast.Expr, retType rast.TypeRef) (*mir.Function, error) {
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
					LHS:         mir.ConstOperand(mir.ConstantValue{Kind: mir.ConstUint, Bits: 64, U: 2}),
					RHS:         mir.ConstOperand(mir.ConstantValue{Kind: mir.ConstUint, Bits: 64, U: 3}),
					OperandType: usize,
				},
			}},
			Terminator: mir.Terminator{Kind: mir.TermReturn},
		}},
	}, nil
}

// newDemoDriver wires buildDemoCrate/demoMIRProvider through a Driver
// targeting a 64-bit default layout, returning the driver alongside the
// root module it was built from.
func newDemoDriver() (*pipeline.Driver, *rast.Module) {
	root := buildDemoCrate()
	target := consteval.NewDefaultTarget(map[string]*rast.StructItem{}, map[string]*rast.EnumItem{})
	return pipeline.NewDriver(root, target, demoMIRProvider, nil), root
}
