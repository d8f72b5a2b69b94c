// Package diag renders mrustc-core diagnostics to a terminal, following the
// four-severity contract (bug, error, warning, note) of the diagnostics
// model: bug aborts immediately, error is collected and fails compilation at
// the next phase boundary, warning and note never fail compilation.
package diag

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	mrerrors "github.com/rustbootstrap/mrustc-core/internal/errors"
)

// Severity is one of the four diagnostic levels.
type Severity int

const (
	Note Severity = iota
	Warning
	Error
	Bug
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Bug:
		return "bug"
	default:
		return "unknown"
	}
}

// Color functions for pretty output, one per severity.
var (
	magenta = color.New(color.FgMagenta, color.Bold).SprintFunc()
	red     = color.New(color.FgRed, color.Bold).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
)

func (s Severity) paint(text string) string {
	switch s {
	case Bug:
		return magenta(text)
	case Error:
		return red(text)
	case Warning:
		return yellow(text)
	default:
		return cyan(text)
	}
}

// SeverityOf classifies a Report's severity from its error code. Bug-check
// codes (BUG###) are Bug; every other registered code is Error. Diagnostics
// that aren't tied to a Report (warnings, notes) are constructed directly
// with NewWarning / NewNote.
func SeverityOf(code string) Severity {
	if mrerrors.IsBugCheck(code) {
		return Bug
	}
	return Error
}

// Diagnostic is a single rendered diagnostic: a severity, a Report carrying
// the code/phase/message/span/data, and an optional suggested fix.
type Diagnostic struct {
	Severity Severity
	Report   *mrerrors.Report
}

// FromReport classifies and wraps a Report for rendering.
func FromReport(r *mrerrors.Report) Diagnostic {
	return Diagnostic{Severity: SeverityOf(r.Code), Report: r}
}

// NewWarning builds a warning-level diagnostic not backed by an error code.
func NewWarning(phase, message string) Diagnostic {
	return Diagnostic{Severity: Warning, Report: &mrerrors.Report{
		Schema: "mrustc-core.error/v1", Phase: phase, Message: message,
	}}
}

// NewNote builds a note-level diagnostic.
func NewNote(phase, message string) Diagnostic {
	return Diagnostic{Severity: Note, Report: &mrerrors.Report{
		Schema: "mrustc-core.error/v1", Phase: phase, Message: message,
	}}
}

// Sink collects diagnostics and renders them to a writer, mirroring the
// collect-then-render posture of the driver's phase-gated error list: bugs
// print and abort on the spot, everything else queues for Flush.
type Sink struct {
	w        io.Writer
	queued   []Diagnostic
	bugCount int
	errCount int
}

// NewSink creates a diagnostic sink writing to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Emit renders or queues a diagnostic according to its severity. A Bug is
// rendered immediately (diagnostics contract: "bug (abort)"); the caller is
// still responsible for actually aborting.
func (s *Sink) Emit(d Diagnostic) {
	if d.Severity == Bug {
		s.bugCount++
		s.render(d)
		return
	}
	if d.Severity == Error {
		s.errCount++
	}
	s.queued = append(s.queued, d)
}

// EmitReport is a convenience wrapper around Emit(FromReport(r)).
func (s *Sink) EmitReport(r *mrerrors.Report) {
	s.Emit(FromReport(r))
}

// Flush renders all queued (non-bug) diagnostics in a stable order: errors
// first, then warnings, then notes, each in the order they were emitted.
func (s *Sink) Flush() {
	sort.SliceStable(s.queued, func(i, j int) bool {
		return s.queued[i].Severity > s.queued[j].Severity
	})
	for _, d := range s.queued {
		s.render(d)
	}
	s.queued = nil
}

// HasErrors reports whether any error- or bug-severity diagnostic has been
// emitted, matching the phase-boundary "compilation fails" rule.
func (s *Sink) HasErrors() bool {
	return s.errCount > 0 || s.bugCount > 0
}

func (s *Sink) render(d Diagnostic) {
	label := d.Severity.paint(d.Severity.String())
	if d.Report.Code != "" {
		fmt.Fprintf(s.w, "%s[%s]: %s\n", label, dim(d.Report.Code), d.Report.Message)
	} else {
		fmt.Fprintf(s.w, "%s: %s\n", label, d.Report.Message)
	}
	if d.Report.Span != nil {
		fmt.Fprintf(s.w, "  %s %s\n", dim("at"), d.Report.Span.String())
	}
	if d.Report.Fix != nil {
		fmt.Fprintf(s.w, "  %s %s\n", cyan("help:"), d.Report.Fix.Suggestion)
	}
}
