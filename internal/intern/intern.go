// Package intern implements a process-wide string interner: a
// concurrent-safe hash table keyed by byte content. Equality between
// interned names is pointer equality on the returned handle, never string
// comparison.
//
// Uses an RWMutex cache-map shape (probe under RLock, upgrade to Lock to
// insert) — the "read-mostly cache with rare insert" access pattern a
// module loader's identity cache has.
package intern

import (
	"sync"

	"golang.org/x/text/unicode/norm"
)

// Symbol is a refcounted, pointer-comparable handle over an interned
// string. The zero Symbol is invalid; use Interner.Intern to obtain one.
type Symbol struct {
	entry *entry
}

type entry struct {
	text     string
	refcount int64
	mu       sync.Mutex
}

// String returns the interned text.
func (s Symbol) String() string {
	if s.entry == nil {
		return ""
	}
	return s.entry.text
}

// Valid reports whether s was produced by Interner.Intern (as opposed to the
// zero value).
func (s Symbol) Valid() bool { return s.entry != nil }

// Equal compares two symbols by pointer identity, : "equality is
// pointer equality after interning".
func (s Symbol) Equal(o Symbol) bool { return s.entry == o.entry }

// Interner is a process-wide table of interned strings. The zero value is
// ready to use.
type Interner struct {
	mu    sync.RWMutex
	table map[string]*entry
}

// New creates an empty Interner.
func New() *Interner {
	return &Interner{table: make(map[string]*entry)}
}

// Intern returns the canonical Symbol for s, normalizing to NFC first so
// that two byte-distinct but canonically-equal Unicode identifier spellings
// (Rust identifiers may be non-ASCII) intern to the same handle.
func (in *Interner) Intern(s string) Symbol {
	key := norm.NFC.String(s)

	in.mu.RLock()
	e, ok := in.table[key]
	in.mu.RUnlock()
	if ok {
		e.addRef()
		return Symbol{entry: e}
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if e, ok := in.table[key]; ok {
		e.addRef()
		return Symbol{entry: e}
	}
	e = &entry{text: key, refcount: 1}
	in.table[key] = e
	return Symbol{entry: e}
}

func (e *entry) addRef() {
	e.mu.Lock()
	e.refcount++
	e.mu.Unlock()
}

// Release decrements s's table entry, dropping it from the interner once no
// remaining handle references it: intern(s) returns a refcounted
// handle whose drop decrements the table entry and may deallocate.
func (in *Interner) Release(s Symbol) {
	if s.entry == nil {
		return
	}
	s.entry.mu.Lock()
	s.entry.refcount--
	dead := s.entry.refcount <= 0
	text := s.entry.text
	s.entry.mu.Unlock()

	if !dead {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if cur, ok := in.table[text]; ok && cur == s.entry {
		delete(in.table, text)
	}
}

// Len returns the number of distinct strings currently interned. Intended
// for tests and diagnostics, not the hot path.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.table)
}
