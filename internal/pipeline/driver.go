package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rustbootstrap/mrustc-core/internal/consteval"
	"github.com/rustbootstrap/mrustc-core/internal/errors"
	"github.com/rustbootstrap/mrustc-core/internal/hir"
	"github.com/rustbootstrap/mrustc-core/internal/mir"
	"github.com/rustbootstrap/mrustc-core/internal/num128"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
	"github.com/rustbootstrap/mrustc-core/internal/resolve"
)

// MIRProvider supplies the MIR body for a const/static/array-length
// expression, standing in for the excluded "MIR construction from HIR"
// collaborator (`HIR::Crate::get_or_gen_mir(ip, expr[, ret_ty]) ->
// &MIR::Function`). The driver calls it lazily, once per path, exactly
// where the original calls get_or_gen_mir.
type MIRProvider func(path rast.AbsolutePath, expr rast.Expr, retType rast.TypeRef) (*mir.Function, error)

// Driver sequences the HIR conversion passes against one module tree,
// gating each pass on the error count of the one before it.
type Driver struct {
	Crate  *hir.Crate
	Target consteval.Target
	Eval   *consteval.Evaluator
	MIR    MIRProvider
	Log    *logrus.Logger

	root      *rast.Module
	impls     []*rast.ImplItem
	providers *crateProviders

	errs       []*errors.Report
	syntheticN int
}

// NewDriver builds a Driver over root: it assembles the crate's lookup
// tables (BuildCrate), collects every impl block for the resolver, and
// wires a default logrus logger at Info level if log is nil.
func NewDriver(root *rast.Module, target consteval.Target, mirProvider MIRProvider, log *logrus.Logger) *Driver {
	crate := BuildCrate(root)
	impls := collectImpls(root)
	if log == nil {
		log = logrus.New()
	}
	return &Driver{
		Crate:     crate,
		Target:    target,
		Eval:      consteval.NewEvaluator(target),
		MIR:       mirProvider,
		Log:       log,
		root:      root,
		impls:     impls,
		providers: newCrateProviders(impls, crate.Traits()),
	}
}

// Errors returns every error report recorded across all passes run so far.
func (d *Driver) Errors() []*errors.Report { return d.errs }

func (d *Driver) addErr(phase, code, msg string) {
	d.errs = append(d.errs, &errors.Report{
		Schema: "mrustc-core.error/v1", Code: code, Phase: phase, Message: msg,
	})
}

// runPass runs one pass and reports whether len(d.errs) has not grown; Run
// uses this to implement the phase gate: a pass with any error prevents the
// next pass.
func (d *Driver) runPass(phase string, fn func() error) bool {
	before := len(d.errs)
	d.Log.WithField("phase", phase).Debug("pass starting")
	if err := fn(); err != nil {
		d.addErr(phase, errors.E0000, err.Error())
	}
	ok := len(d.errs) == before
	if ok {
		d.Log.WithField("phase", phase).Info("pass complete")
	} else {
		d.Log.WithField("phase", phase).Warn("pass reported errors, halting driver")
	}
	return ok
}

// Run executes every driver entry point in the fixed order §6 lists them,
// stopping at the first pass that reports an error.
func (d *Driver) Run() error {
	passes := []struct {
		name string
		fn   func() error
	}{
		{"expand_aliases", d.ConvertHIR_ExpandAliases},
		{"expand_aliases_self", d.ConvertHIR_ExpandAliases_Self},
		{"bind", d.ConvertHIR_Bind},
		{"resolve_ufcs_outer", d.ConvertHIR_ResolveUFCS_Outer},
		{"lifetime_elision", d.ConvertHIR_LifetimeElision},
		{"markings", d.ConvertHIR_Markings},
		{"resolve_ufcs", d.ConvertHIR_ResolveUFCS},
		{"constant_evaluate", d.ConvertHIR_ConstantEvaluate},
	}
	for _, p := range passes {
		if !d.runPass(p.name, p.fn) {
			return fmt.Errorf("pipeline halted at pass %q with %d error(s)", p.name, len(d.errs))
		}
	}
	return nil
}

// ConvertHIR_ExpandAliases substitutes type aliases across every struct and
// enum field (item 1).
func (d *Driver) ConvertHIR_ExpandAliases() error {
	return d.Crate.ExpandAliases()
}

// ConvertHIR_ExpandAliases_Self substitutes Self inside every impl's methods
// with the impl's own declared type (item 2).
func (d *Driver) ConvertHIR_ExpandAliases_Self() error {
	hir.ExpandAliasesSelf(d.impls)
	return nil
}

// ConvertHIR_Bind attaches a PathBinding to every pattern path naming a
// struct or enum variant (item 3; P1).
func (d *Driver) ConvertHIR_Bind() error {
	return d.Crate.Bind()
}

// ConvertHIR_ResolveUFCS_Outer resolves the UFCS paths whose self type is
// not a bare generic parameter, before Markings runs. Paths whose self type
// is a generic parameter are left for ConvertHIR_ResolveUFCS; a path that
// fails to resolve returns its error, which halts the driver.
func (d *Driver) ConvertHIR_ResolveUFCS_Outer() error {
	return d.resolveUFCS(true)
}

// ConvertHIR_LifetimeElision assigns concrete lifetimes to every function's
// elided borrows (item 4).
func (d *Driver) ConvertHIR_LifetimeElision() error {
	for _, fn := range collectFunctions(d.root) {
		hasSelf := fn.Self != rast.SelfNone
		if _, err := hir.ElideFunctionLifetimes(fn, hasSelf, false); err != nil {
			return err
		}
	}
	return nil
}

// ConvertHIR_Markings computes struct CoerceUnsized/Copy markings, trait
// supertrait closures, and enum niches (item 5).
func (d *Driver) ConvertHIR_Markings() error {
	return hir.ComputeMarkings(d.Crate, d.Target)
}

// ConvertHIR_ResolveUFCS resolves every remaining UFCS path, now that
// Markings has populated the supertrait closures the search needs.
func (d *Driver) ConvertHIR_ResolveUFCS() error {
	return d.resolveUFCS(false)
}

// resolveUFCS walks every function body reachable from the root module,
// resolving PathExpr nodes whose Path is in UFCS-unknown state. When
// outerOnly is set, paths whose self type is a bare generic parameter are
// skipped and left for the later pass. The first resolution error is
// returned.
func (d *Driver) resolveUFCS(outerOnly bool) error {
	for _, fn := range collectFunctions(d.root) {
		scope := resolve.Scope{
			ItemGenerics: &fn.Generics,
			Inherent:     d.providers,
			Traits:       d.providers,
		}
		if fn.Body == nil {
			continue
		}
		if err := walkUFCSPaths(fn.Body, func(p *rast.Path) error {
			if p.Shape != rast.PathUFCS || p.UFCSState != rast.UFCSUnknown {
				return nil
			}
			isGeneric := p.UFCSType.Kind == rast.TGeneric
			if outerOnly && isGeneric {
				return nil
			}
			if len(p.Nodes) == 0 {
				return nil
			}
			item := p.Nodes[len(p.Nodes)-1].Name
			resolved, err := resolve.Resolve(scope, p.UFCSType, item, rast.UFCSValue)
			if err != nil {
				return err
			}
			if resolved.Inherent {
				p.BindStructMethod(resolved.Item)
			} else {
				p.UFCSTrait = &resolved.Trait
				p.UFCSState = rast.UFCSKnown
				p.BindTraitMethod(resolved.Item)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// ConvertHIR_ConstantEvaluate evaluates every const/static body, every
// not-yet-resolved array length, and every enum's discriminant sequence
// (item 6).
func (d *Driver) ConvertHIR_ConstantEvaluate() error {
	var walk func(m *rast.Module) error
	walk = func(m *rast.Module) error {
		for _, it := range m.Items() {
			path := m.MyPath.Append(it.Common().Name)
			switch v := it.(type) {
			case *rast.ConstItem:
				lit, err := d.evalNamed(path, v.Type, v.Value)
				if err != nil {
					return err
				}
				v.Encoded = lit
			case *rast.StaticItem:
				lit, err := d.evalNamed(path, v.Type, v.Value)
				if err != nil {
					return err
				}
				v.Encoded = lit
			case *rast.EnumItem:
				if err := d.ConvertHIR_ConstantEvaluate_Enum(v); err != nil {
					return err
				}
			case *rast.ModuleItem:
				if err := walk(v.Module); err != nil {
					return err
				}
			}
		}
		for _, s := range m.InlineStatics {
			path := m.MyPath.Append(s.Common().Name)
			lit, err := d.evalNamed(path, s.Type, s.Value)
			if err != nil {
				return err
			}
			s.Encoded = lit
		}
		for _, c := range m.Children() {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(d.root); err != nil {
		return err
	}
	for _, fn := range collectFunctions(d.root) {
		if err := d.ConvertHIR_ConstantEvaluate_MethodParams(fn); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) evalNamed(path rast.AbsolutePath, ty rast.TypeRef, expr rast.Expr) (*rast.EncodedLiteral, error) {
	fn, err := d.MIR(path, expr, ty)
	if err != nil {
		return nil, err
	}
	d.Eval.Consts[path.String()] = &consteval.ConstDef{Type: ty, Body: fn}
	return d.Eval.EvalConst(path)
}

// ConvertHIR_ConstantEvaluate_Expr evaluates one free-standing expression
// (e.g. an array length with no item path of its own) against retType,
// minting a synthetic path to drive the Evaluator's cycle-detection/cache
// machinery.
func (d *Driver) ConvertHIR_ConstantEvaluate_Expr(retType rast.TypeRef, expr rast.Expr) (*rast.EncodedLiteral, error) {
	d.syntheticN++
	path := rast.AbsolutePath{Crate: "<arraylen>", Nodes: []string{fmt.Sprintf("#%d", d.syntheticN)}}
	return d.evalNamed(path, retType, expr)
}

// ConvertHIR_ConstantEvaluate_Enum evaluates every explicit discriminant
// expression of e and fills in the implicit ones (the variant after an
// explicit or implicit discriminant k is k+1; the first implicit variant is
// 0), per Rust's discriminant rule.
func (d *Driver) ConvertHIR_ConstantEvaluate_Enum(e *rast.EnumItem) error {
	e.Discriminants = make([]int64, len(e.Variants))
	next := int64(0)
	for i, v := range e.Variants {
		if v.Discriminant != nil {
			lit, err := d.ConvertHIR_ConstantEvaluate_Expr(rast.Prim(rast.PrimIsize), v.Discriminant)
			if err != nil {
				return err
			}
			next = decodeInt(lit)
		}
		e.Discriminants[i] = next
		next++
	}
	return nil
}

// ConvertHIR_ConstantEvaluate_MethodParams evaluates any not-yet-resolved
// array-length expressions appearing in fn's parameter and return types
// (e.g. `fn f(buf: [u8; LEN])` where LEN is a const item already folded
// elsewhere but the array type itself still carries the unevaluated expr).
func (d *Driver) ConvertHIR_ConstantEvaluate_MethodParams(fn *rast.FunctionItem) error {
	for i := range fn.Params {
		if err := d.resolveArraySize(&fn.Params[i].Type); err != nil {
			return err
		}
	}
	return d.resolveArraySize(&fn.ReturnType)
}

func (d *Driver) resolveArraySize(t *rast.TypeRef) error {
	if t.Kind != rast.TArray {
		return nil
	}
	if err := d.resolveArraySize(t.Inner); err != nil {
		return err
	}
	if t.SizeExpr.Resolved || t.SizeExpr.Expr == nil {
		return nil
	}
	lit, err := d.ConvertHIR_ConstantEvaluate_Expr(rast.Prim(rast.PrimUsize), t.SizeExpr.Expr)
	if err != nil {
		if consteval.IsDefer(err) {
			return nil
		}
		return err
	}
	t.SizeExpr.Value = uint64(decodeInt(lit))
	t.SizeExpr.Resolved = true
	t.SizeExpr.Expr = nil
	return nil
}

func decodeInt(lit *rast.EncodedLiteral) int64 {
	if lit == nil || len(lit.Bytes) == 0 {
		return 0
	}
	return int64(num128.FromLittleEndian(lit.Bytes).Lo)
}
