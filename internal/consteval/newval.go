package consteval

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

// Encode implements `allocation_to_encoded`: converting an evaluated
// Allocation into the persisted EncodedLiteral form a ConstDef's result is
// cached as. Every relocation in the
// allocation becomes either a Named(path) relocation — a writable
// allocation hoisted into a fresh static via NewvalPool — or an inline
// Bytes(...) blob for a read-only allocation or byte constant.
func (ev *Evaluator) Encode(ty rast.TypeRef, alloc *Allocation) (*rast.EncodedLiteral, error) {
	lit := &rast.EncodedLiteral{Bytes: append([]byte(nil), alloc.Bytes...)}
	ptrSize := uint64(ev.Target.PointerBits() / 8)

	offsets := make([]uint64, 0, len(alloc.Relocations))
	for off := range alloc.Relocations {
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	for _, off := range offsets {
		rp := alloc.Relocations[off]
		switch rp.Kind {
		case RelocStatic:
			lit.Relocations = append(lit.Relocations, rast.Relocation{
				Offset: off, Size: ptrSize, Target: rp.Static.Path,
			})
		case RelocConstant:
			lit.Relocations = append(lit.Relocations, rast.Relocation{
				Offset: off, Size: ptrSize, Bytes: append([]byte(nil), rp.Const.Bytes...),
			})
		case RelocAllocation:
			if rp.Alloc.Writable {
				path, err := ev.newvalPool().NewStatic(rp.Alloc.Type, rp.Alloc)
				if err != nil {
					return nil, err
				}
				lit.Relocations = append(lit.Relocations, rast.Relocation{Offset: off, Size: ptrSize, Target: path})
			} else {
				nested, err := ev.Encode(rp.Alloc.Type, rp.Alloc)
				if err != nil {
					return nil, err
				}
				if len(nested.Relocations) != 0 {
					// A read-only allocation referencing further relocations
					// still needs a name to hang its own Target table off of;
					// hoist it like a writable one rather than flattening.
					path, err := ev.newvalPool().NewStatic(rp.Alloc.Type, rp.Alloc)
					if err != nil {
						return nil, err
					}
					lit.Relocations = append(lit.Relocations, rast.Relocation{Offset: off, Size: ptrSize, Target: path})
				} else {
					lit.Relocations = append(lit.Relocations, rast.Relocation{Offset: off, Size: ptrSize, Bytes: nested.Bytes})
				}
			}
		}
	}
	return lit, nil
}

// NewvalPool de-duplicates hoisted anonymous statics by byte content, the
// Go stand-in for a `map<vector<char>, HIR::Path>` newval cache.
type NewvalPool struct {
	ev      *Evaluator
	crate   string
	counter int
	seen    map[string]rast.AbsolutePath
}

// NewNewvalPool builds a pool that mints fresh statics in the named crate.
func NewNewvalPool(ev *Evaluator, crate string) *NewvalPool {
	return &NewvalPool{ev: ev, crate: crate, seen: map[string]rast.AbsolutePath{}}
}

func (ev *Evaluator) newvalPool() *NewvalPool {
	if ev.Newval == nil {
		ev.Newval = NewNewvalPool(ev, "")
	}
	return ev.Newval
}

// NewStatic encodes alloc and either returns the path of an existing static
// with identical content or mints and registers a fresh one.
func (p *NewvalPool) NewStatic(ty rast.TypeRef, alloc *Allocation) (rast.AbsolutePath, error) {
	lit, err := p.ev.Encode(ty, alloc)
	if err != nil {
		return rast.AbsolutePath{}, err
	}
	key := contentKey(lit)
	if existing, ok := p.seen[key]; ok {
		return existing, nil
	}
	p.counter++
	path := rast.AbsolutePath{Crate: p.crate, Nodes: []string{fmt.Sprintf("<newval#%d>", p.counter)}}
	p.seen[key] = path
	p.ev.seedStatic(path, ty, lit)
	return path, nil
}

func contentKey(lit *rast.EncodedLiteral) string {
	h := sha256.New()
	h.Write(lit.Bytes)
	for _, r := range lit.Relocations {
		fmt.Fprintf(h, "|%d:%d:%s", r.Offset, r.Size, r.Target.String())
		h.Write(r.Bytes)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// seedStatic registers an already-evaluated literal as the cached result for
// path, skipping MIR evaluation entirely — the path by which NewvalPool's
// hoisted statics and any other pre-encoded constant enter the same cache
// EvalConst reads from.
func (ev *Evaluator) seedStatic(path rast.AbsolutePath, ty rast.TypeRef, lit *rast.EncodedLiteral) {
	key := path.String()
	ev.Consts[key] = &ConstDef{Type: ty}
	ev.cache[key] = lit
	ev.state[key] = csDone
}
