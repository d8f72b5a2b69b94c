package rast

// GenericParamKind discriminates GenericParam's sum-type shapes.
type GenericParamKind int

const (
	GPLifetime GenericParamKind = iota
	GPType
	GPValue // const generic
)

// GenericParam is one declared lifetime/type/const parameter, recording the
// slice of GenericBound entries written inline at its declaration site.
type GenericParam struct {
	Kind GenericParamKind
	Name string

	// Slice [BoundsStart, BoundsEnd) into the owning GenericParams.Bounds,
	// identifying the bounds written in-line at this param's declaration.
	BoundsStart, BoundsEnd int

	ValueType TypeRef // GPValue only: the const parameter's type
}

// GenericBoundKind discriminates GenericBound's sum-type shapes.
type GenericBoundKind int

const (
	GBLifetime GenericBoundKind = iota // 'a: 'b
	GBTypeLifetime                     // T: 'a
	GBIsTrait                          // T: Trait (possibly for<'a> ... for<'b>)
	GBMaybeTrait                       // T: ?Sized
	GBNotTrait                         // negative impl bound
	GBEquality                         // T::Assoc = U
)

// GenericBound is one constraint in a GenericParams' flat bounds list.
type GenericBound struct {
	Kind GenericBoundKind

	// GBLifetime
	TestLifetime  string
	BoundLifetime string

	// GBTypeLifetime / GBIsTrait / GBMaybeTrait / GBNotTrait
	Type TypeRef

	// GBIsTrait
	HRBsOuter []string // for<'a> binders on the bound itself
	Trait     GenericPath
	HRBsInner []string // for<'a> binders nested inside the trait's args

	// GBEquality
	Replacement TypeRef
}

// GenericParams is the ordered list of declared parameters plus the flat
// bounds list referenced by index ranges ("GenericParams").
type GenericParams struct {
	Params []GenericParam
	Bounds []GenericBound
}

// FindName returns the index of the parameter named name, or -1 if absent.
func (g *GenericParams) FindName(name string) int {
	for i, p := range g.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// BoundsFor returns the bounds declared inline for parameter index idx.
func (g *GenericParams) BoundsFor(idx int) []GenericBound {
	if idx < 0 || idx >= len(g.Params) {
		return nil
	}
	p := g.Params[idx]
	if p.BoundsStart < 0 || p.BoundsEnd > len(g.Bounds) || p.BoundsStart > p.BoundsEnd {
		return nil
	}
	return g.Bounds[p.BoundsStart:p.BoundsEnd]
}

// TraitBoundsFor returns only the `IsTrait` bounds declared inline for
// parameter index idx — the ones the UFCS resolver (internal/resolve)
// consults when resolving `<T>::item` against a generic parameter's bound
// list (step 1).
func (g *GenericParams) TraitBoundsFor(idx int) []GenericBound {
	var out []GenericBound
	for _, b := range g.BoundsFor(idx) {
		if b.Kind == GBIsTrait {
			out = append(out, b)
		}
	}
	return out
}
