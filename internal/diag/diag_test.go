package diag

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mrerrors "github.com/rustbootstrap/mrustc-core/internal/errors"
)

func TestSeverityOfBugCheckIsBug(t *testing.T) {
	assert.Equal(t, Bug, SeverityOf(mrerrors.BUG001))
	assert.Equal(t, Error, SeverityOf(mrerrors.CEV003))
}

// TestSinkEmitBugRendersImmediately exercises the "bug (abort)" half of the
// diagnostics contract: a Bug-severity diagnostic renders as soon as it's
// emitted rather than waiting for Flush.
func TestSinkEmitBugRendersImmediately(t *testing.T) {
	var buf bytes.Buffer
	color.NoColor = true
	s := NewSink(&buf)
	s.EmitReport(&mrerrors.Report{Code: mrerrors.BUG002, Message: "unexpected tag"})
	require.Contains(t, buf.String(), "unexpected tag")
	assert.True(t, s.HasErrors())
}

// TestSinkFlushOrdersBySeverity exercises the "continue collecting; fails at
// phase boundary" half: errors, warnings and notes queue until Flush, and
// render most-severe first.
func TestSinkFlushOrdersBySeverity(t *testing.T) {
	var buf bytes.Buffer
	color.NoColor = true
	s := NewSink(&buf)
	s.Emit(NewNote("resolve", "a note"))
	s.EmitReport(&mrerrors.Report{Code: mrerrors.UFC001, Message: "an error"})
	s.Emit(NewWarning("expand", "a warning"))
	require.Empty(t, buf.String(), "non-bug diagnostics must not render before Flush")

	s.Flush()
	out := buf.String()
	errIdx := bytes.Index([]byte(out), []byte("an error"))
	warnIdx := bytes.Index([]byte(out), []byte("a warning"))
	noteIdx := bytes.Index([]byte(out), []byte("a note"))
	require.True(t, errIdx >= 0 && warnIdx >= 0 && noteIdx >= 0)
	assert.True(t, errIdx < warnIdx, "error should render before warning")
	assert.True(t, warnIdx < noteIdx, "warning should render before note")
	assert.True(t, s.HasErrors())
}

func TestSinkHasErrorsFalseForNotesAndWarnings(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf)
	s.Emit(NewNote("resolve", "fyi"))
	s.Emit(NewWarning("expand", "heads up"))
	s.Flush()
	assert.False(t, s.HasErrors())
}
