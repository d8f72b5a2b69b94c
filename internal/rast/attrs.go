package rast

// MetaItem is one `#[name(...)]` or `#[name = "value"]` attribute entry.
// `Used` is set exactly once: mark_used() is monotonic, and an unused
// meta-item after the expansion phase is a warning source.
type MetaItem struct {
	Name     string
	Value    string      // for `#[name = "value"]`, empty otherwise
	SubItems []MetaItem  // for `#[name(a, b = "c")]`
	used     bool
}

// MarkUsed records that something consumed this attribute. Monotonic: once
// true, calling it again is a no-op (never resets to false).
func (m *MetaItem) MarkUsed() { m.used = true }

// IsUsed reports whether MarkUsed has been called.
func (m *MetaItem) IsUsed() bool { return m.used }

// AttributeList is the ordered `#[...]` list attached to an item.
type AttributeList struct {
	Items []MetaItem
}

// Get returns the first attribute named name, or nil.
func (a *AttributeList) Get(name string) *MetaItem {
	for i := range a.Items {
		if a.Items[i].Name == name {
			return &a.Items[i]
		}
	}
	return nil
}

// UnusedWarnings returns every attribute not yet marked used — the
// warning source for the expansion phase's end-of-pass sweep.
func (a *AttributeList) UnusedWarnings() []MetaItem {
	var out []MetaItem
	for _, it := range a.Items {
		if !it.used {
			out = append(out, it)
		}
	}
	return out
}
