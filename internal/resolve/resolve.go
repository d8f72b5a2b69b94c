// Package resolve implements the UFCS resolver: given a
// `Path::UfcsUnknown { type, item, params }` and a lookup context, finds
// the one trait (or inherent impl) providing that item, or reports
// ambiguity/failure.
//
// Structured around the same shape as a type-class dictionary resolver
// (coherence-checked lookup-by-key, superclass derivation, namespaced
// method lookup keys): type-class dictionary resolution is structurally
// the same problem as UFCS ("given a type and a member name, find the one
// trait/instance providing it, erroring on ambiguity"). A
// "ClassName::TypeNF" key scheme becomes "TraitPath::TypeNF::member".
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustbootstrap/mrustc-core/internal/errors"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

// TraitInfo is the subset of a trait declaration the resolver needs:
// whether it provides a member in a context, and its supertrait closure.
type TraitInfo struct {
	Path            rast.AbsolutePath
	Item            *rast.TraitItem
	AllParentTraits []rast.GenericPath // transitive closure, computed by Markings (item 5)
}

// InherentProvider looks up inherent impls (no trait) for a concrete type,
// answering whether one provides a member in the given context.
type InherentProvider interface {
	// FindInherentMember returns the absolute path of the inherent member
	// named name on selfType in context ctx, if any.
	FindInherentMember(selfType rast.TypeRef, name string, ctx rast.UFCSContext) (rast.AbsolutePath, bool)
}

// TraitProvider looks up in-scope traits applicable to a concrete type:
// a trait that is currently in scope, with an impl that applies to the
// concrete type.
type TraitProvider interface {
	// InScopeTraitsFor returns every trait currently visible that has an
	// impl applying to selfType.
	InScopeTraitsFor(selfType rast.TypeRef) []TraitInfo
	// TraitByPath looks up a trait declaration by its absolute path, used
	// to walk supertrait closures.
	TraitByPath(p rast.AbsolutePath) (TraitInfo, bool)
}

// Scope is the resolver's full input environment for one lookup: the
// in-scope generic parameters (item-level, then impl-level, step
// 1: "item first, then impl"), whether we are inside a trait definition
// (for Self resolution, step 2), and the provider interfaces.
type Scope struct {
	ItemGenerics *rast.GenericParams
	ImplGenerics *rast.GenericParams
	// EnclosingTrait is non-nil when resolution happens inside a trait
	// definition body, used for Self-typed UFCS paths.
	EnclosingTrait *TraitInfo

	Inherent InherentProvider
	Traits   TraitProvider
}

type candidate struct {
	trait rast.GenericPath
	depth int
}

// Resolved is the descriptor Resolve returns for one UFCS lookup. Resolve
// does not touch any Path; the caller applies the result with the right
// Path mutation helper (e.g. BindStructMethod for an inherent member).
type Resolved struct {
	Inherent bool
	Trait    rast.GenericPath // valid when !Inherent
	Item     rast.AbsolutePath
}

// Resolve implements the UFCS method-lookup search order: generic self-type
// param bound, enclosing-trait Self bound, inherent impls, then trait impls.
func Resolve(scope Scope, selfType rast.TypeRef, item string, ctx rast.UFCSContext) (Resolved, error) {
	if selfType.Kind == rast.TGeneric {
		return resolveGeneric(scope, selfType.GenericIndex, item, ctx)
	}

	// Step 2: Self inside a trait definition degenerates to a generic-param
	// style search over the trait's own bound (Self: EnclosingTrait).
	if selfType.Kind == rast.TPath && selfType.Path != nil && selfType.Path.String() == "self" && scope.EnclosingTrait != nil {
		selfTraitPath := rast.GenericPath{Path: scope.EnclosingTrait.Path}
		if path, ok := scope.EnclosingTrait.Item.HasMember(scope.EnclosingTrait.Path, item, ctx); ok {
			return Resolved{Trait: selfTraitPath, Item: path}, nil
		}
		return resolveViaSupertraits(scope, []candidate{{trait: selfTraitPath, depth: 0}}, item, ctx)
	}

	// Step 3: concrete type, inherent impls first.
	if scope.Inherent != nil {
		if path, ok := scope.Inherent.FindInherentMember(selfType, item, ctx); ok {
			return Resolved{Inherent: true, Item: path}, nil
		}
	}

	// Step 4: in-scope traits.
	if scope.Traits == nil {
		return Resolved{}, fmt.Errorf("%s: no inherent impl provides %q and no trait provider configured", errors.UFC001, item)
	}
	var cands []candidate
	for _, ti := range scope.Traits.InScopeTraitsFor(selfType) {
		if _, ok := ti.Item.HasMember(ti.Path, item, ctx); ok {
			cands = append(cands, candidate{trait: rast.GenericPath{Path: ti.Path}, depth: 0})
		}
	}
	if len(cands) == 0 {
		return Resolved{}, fmt.Errorf("%s: %q could not be resolved against any inherent impl or in-scope trait", errors.UFC001, item)
	}
	return pickShallowest(scope, cands, item, ctx)
}

func resolveGeneric(scope Scope, genIndex int, item string, ctx rast.UFCSContext) (Resolved, error) {
	var bounds []rast.GenericBound
	if scope.ItemGenerics != nil {
		bounds = append(bounds, scope.ItemGenerics.TraitBoundsFor(genIndex)...)
	}
	if scope.ImplGenerics != nil {
		bounds = append(bounds, scope.ImplGenerics.TraitBoundsFor(genIndex)...)
	}
	if len(bounds) == 0 {
		return Resolved{}, fmt.Errorf("%s: generic parameter has no trait bounds to resolve %q against", errors.UFC001, item)
	}
	var cands []candidate
	for _, b := range bounds {
		cands = append(cands, candidate{trait: b.Trait, depth: 0})
	}
	return resolveViaSupertraits(scope, cands, item, ctx)
}

// resolveViaSupertraits performs the breadth-first walk of each candidate
// bound's supertrait closure, tie-breaking on shallowest successful match:
// multiple shallowest matches are ambiguous and report error E0223.
func resolveViaSupertraits(scope Scope, roots []candidate, item string, ctx rast.UFCSContext) (Resolved, error) {
	type found struct {
		trait rast.GenericPath
		item  rast.AbsolutePath
		depth int
	}
	var hits []found
	visited := make(map[string]bool)

	queue := append([]candidate(nil), roots...)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		key := c.trait.Path.String()
		if visited[key] {
			continue
		}
		visited[key] = true

		ti, ok := traitByPath(scope, c.trait.Path)
		if !ok {
			continue
		}
		if path, ok := ti.Item.HasMember(ti.Path, item, ctx); ok {
			hits = append(hits, found{trait: c.trait, item: path, depth: c.depth})
		}
		for _, parent := range ti.AllParentTraits {
			queue = append(queue, candidate{trait: parent, depth: c.depth + 1})
		}
	}

	if len(hits) == 0 {
		return Resolved{}, fmt.Errorf("%s: %q not found on any bound or its supertraits", errors.UFC001, item)
	}
	minDepth := hits[0].depth
	for _, h := range hits {
		if h.depth < minDepth {
			minDepth = h.depth
		}
	}
	var shallowest []found
	for _, h := range hits {
		if h.depth == minDepth {
			shallowest = append(shallowest, h)
		}
	}
	sort.Slice(shallowest, func(i, j int) bool {
		return shallowest[i].trait.Path.String() < shallowest[j].trait.Path.String()
	})
	if len(shallowest) > 1 {
		names := make([]string, len(shallowest))
		for i, h := range shallowest {
			names[i] = h.trait.Path.String()
		}
		return Resolved{}, fmt.Errorf("%s: ambiguous resolution of %q between %s", errors.E0223, item, strings.Join(names, ", "))
	}
	return Resolved{Trait: shallowest[0].trait, Item: shallowest[0].item}, nil
}

func traitByPath(scope Scope, p rast.AbsolutePath) (TraitInfo, bool) {
	if scope.EnclosingTrait != nil && scope.EnclosingTrait.Path.Equal(p) {
		return *scope.EnclosingTrait, true
	}
	if scope.Traits == nil {
		return TraitInfo{}, false
	}
	return scope.Traits.TraitByPath(p)
}

func pickShallowest(scope Scope, cands []candidate, item string, ctx rast.UFCSContext) (Resolved, error) {
	return resolveViaSupertraits(scope, cands, item, ctx)
}

// ImplBucket is one of the three partitions 's "Impl-group sort"
// step produces.
type ImplBucket int

const (
	BucketNamed ImplBucket = iota
	BucketNonNamed
	BucketGeneric
)

// SortImpls partitions impls into three flat lists: named (self type is a
// path), generic (self type is a bare generic), and non_named (every other
// self type: primitives, never, unit, tuples, borrows, ...) — a one-time
// reorganization ("Impl-group sort"). The named list is not keyed by head
// path; its impls keep their input order.
func SortImpls(impls []*rast.ImplItem) map[ImplBucket][]*rast.ImplItem {
	out := map[ImplBucket][]*rast.ImplItem{}
	for _, im := range impls {
		bucket := bucketFor(im.SelfType)
		out[bucket] = append(out[bucket], im)
	}
	return out
}

func bucketFor(t rast.TypeRef) ImplBucket {
	switch t.Kind {
	case rast.TGeneric:
		return BucketGeneric
	case rast.TPath:
		return BucketNamed
	default:
		return BucketNonNamed
	}
}
