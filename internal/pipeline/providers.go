package pipeline

import (
	"github.com/rustbootstrap/mrustc-core/internal/rast"
	"github.com/rustbootstrap/mrustc-core/internal/resolve"
)

// crateProviders answers internal/resolve's InherentProvider and
// TraitProvider questions against one crate's impl blocks and trait
// declarations, grounded on resolve.SortImpls's named/non_named/generic
// partition (the impl-group sort).
type crateProviders struct {
	buckets map[resolve.ImplBucket][]*rast.ImplItem
	traits  map[string]*rast.TraitItem
}

func newCrateProviders(impls []*rast.ImplItem, traits map[string]*rast.TraitItem) *crateProviders {
	return &crateProviders{buckets: resolve.SortImpls(impls), traits: traits}
}

// headPath synthesizes the absolute path method/const/assoc-type lookups
// hang off of: a bound struct/enum's own path, or a fixed namespace node for
// primitive self types impls may still be written against (`impl Widget {
// u32::method }` style inherent impls on built-ins).
func headPath(t rast.TypeRef) (rast.AbsolutePath, bool) {
	switch t.Kind {
	case rast.TPath:
		if t.Path == nil || t.Path.Binding() == nil {
			return rast.AbsolutePath{}, false
		}
		b := t.Path.Binding()
		switch b.Kind {
		case rast.BindStruct, rast.BindModule:
			return b.Target, true
		case rast.BindEnumVariant:
			return b.EnumPath, true
		}
		return rast.AbsolutePath{}, false
	case rast.TPrimitive:
		return rast.AbsolutePath{Crate: "core", Nodes: []string{t.Prim.String()}}, true
	default:
		return rast.AbsolutePath{}, false
	}
}

func implMember(im *rast.ImplItem, name string, ctx rast.UFCSContext) (rast.AbsolutePath, bool) {
	base, ok := headPath(im.SelfType)
	if !ok {
		return rast.AbsolutePath{}, false
	}
	switch ctx {
	case rast.UFCSValue:
		for _, fn := range im.Functions {
			if fn.Common().Name == name {
				return base.Append(name), true
			}
		}
		for _, c := range im.Consts {
			if c.Common().Name == name {
				return base.Append(name), true
			}
		}
	case rast.UFCSType:
		if _, ok := im.AssocTypes[name]; ok {
			return base.Append(name), true
		}
	}
	return rast.AbsolutePath{}, false
}

func (p *crateProviders) FindInherentMember(selfType rast.TypeRef, name string, ctx rast.UFCSContext) (rast.AbsolutePath, bool) {
	for _, bucket := range []resolve.ImplBucket{resolve.BucketNamed, resolve.BucketNonNamed} {
		for _, im := range p.buckets[bucket] {
			if !im.IsInherent() || !im.SelfType.Equal(selfType) {
				continue
			}
			if path, ok := implMember(im, name, ctx); ok {
				return path, true
			}
		}
	}
	return rast.AbsolutePath{}, false
}

func (p *crateProviders) InScopeTraitsFor(selfType rast.TypeRef) []resolve.TraitInfo {
	var out []resolve.TraitInfo
	seen := map[string]bool{}
	for _, bucket := range []resolve.ImplBucket{resolve.BucketNamed, resolve.BucketNonNamed} {
		for _, im := range p.buckets[bucket] {
			if im.IsInherent() || !im.SelfType.Equal(selfType) {
				continue
			}
			key := im.TraitPath.Path.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			if ti, ok := p.TraitByPath(im.TraitPath.Path); ok {
				out = append(out, ti)
			}
		}
	}
	return out
}

func (p *crateProviders) TraitByPath(path rast.AbsolutePath) (resolve.TraitInfo, bool) {
	tr, ok := p.traits[path.String()]
	if !ok {
		return resolve.TraitInfo{}, false
	}
	return resolve.TraitInfo{Path: path, Item: tr, AllParentTraits: tr.AllParentTraits}, true
}
