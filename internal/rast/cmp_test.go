package rast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// pathCmpOpts ignores Path's unexported span field, since two paths built
// from different source locations (e.g. a macro-expanded copy vs. its
// original) are still structurally the same path for resolution purposes.
var pathCmpOpts = cmpopts.IgnoreUnexported(Path{})

// TestTypeRefStructuralEqualityIgnoresSpan exercises TypeRef::ord's
// contract ("recurses structurally; defers to Path::ord for path types")
// using go-cmp instead of testify's reflect-based equality, which cannot
// selectively ignore Path's unexported span field.
func TestTypeRefStructuralEqualityIgnoresSpan(t *testing.T) {
	p1 := NewAbsolutePathRef(nil, "core", []PathNode{{Name: "Option"}})
	p2 := NewAbsolutePathRef(nil, "core", []PathNode{{Name: "Option"}})

	t1 := PathType(p1)
	t2 := PathType(p2)

	if diff := cmp.Diff(t1, t2, pathCmpOpts); diff != "" {
		t.Fatalf("expected structurally identical TypeRefs (span aside), diff:\n%s", diff)
	}
}

// TestTypeRefStructuralEqualityDetectsRealDifference confirms the ignored
// field is truly just span: changing the path's crate must still surface as
// a diff even with span excluded.
func TestTypeRefStructuralEqualityDetectsRealDifference(t *testing.T) {
	p1 := NewAbsolutePathRef(nil, "core", []PathNode{{Name: "Option"}})
	p2 := NewAbsolutePathRef(nil, "alloc", []PathNode{{Name: "Option"}})

	t1 := PathType(p1)
	t2 := PathType(p2)

	if diff := cmp.Diff(t1, t2, pathCmpOpts); diff == "" {
		t.Fatal("expected a diff between TypeRefs over different crates")
	}
}
