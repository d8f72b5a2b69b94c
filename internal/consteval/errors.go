package consteval

import "errors"

// DeferError signals that a value is not yet fully known because it
// depends on an unresolved generic parameter ("Laziness and
// cycles"; §7 "Deferred computations... Propagated up the const
// evaluator; never escape the front-end"). Callers at the HIR-conversion
// boundary catch this and record a Generic ValueState for later
// per-monomorphisation retry.
type DeferError struct {
	Reason string
}

func (e *DeferError) Error() string { return "consteval: deferred: " + e.Reason }

// IsDefer reports whether err (or something it wraps) is a DeferError.
func IsDefer(err error) bool {
	var d *DeferError
	return errors.As(err, &d)
}
