// Package repl implements an interactive read-eval-print loop over an
// already-driven crate, for ad hoc UFCS/const-eval queries: readline
// history, colon-commands, and colorized output over a pipeline.Driver and
// its root rast.Module instead of raw expression evaluation.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/rustbootstrap/mrustc-core/internal/num128"
	"github.com/rustbootstrap/mrustc-core/internal/pipeline"
	"github.com/rustbootstrap/mrustc-core/internal/rast"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	dim   = color.New(color.Faint).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

// commands lists every colon-command the completer offers.
var commands = []string{":help", ":quit", ":consts", ":eval", ":errors"}

// REPL drives one interactive session over a Driver that has already run
// (or whose Run errored partway through, in which case queries still work
// against whatever passes completed).
type REPL struct {
	driver  *pipeline.Driver
	root    *rast.Module
	version string
}

// New creates a REPL over d's crate/const table.
func New(d *pipeline.Driver, root *rast.Module, version string) *REPL {
	if version == "" {
		version = "dev"
	}
	return &REPL{driver: d, root: root, version: version}
}

// Start runs the interactive loop, reading from stdin's controlling
// terminal via liner and writing to out.
func (r *REPL) Start(out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(false)

	historyFile := filepath.Join(os.TempDir(), ".mrustc_core_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	line.SetCompleter(func(input string) (c []string) {
		if strings.HasPrefix(input, ":") {
			for _, cmd := range commands {
				if strings.HasPrefix(cmd, input) {
					c = append(c, cmd)
				}
			}
		}
		return
	})

	fmt.Fprintf(out, "%s %s\n", bold("mrustc-core"), bold(r.version))
	fmt.Fprintln(out, dim("Type :help for help, :quit to exit"))

	for {
		input, err := line.Prompt("mrustc> ")
		if err == io.EOF {
			fmt.Fprintln(out, green("\nGoodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == ":quit" || input == ":q" {
			fmt.Fprintln(out, green("Goodbye!"))
			break
		}
		r.handle(input, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

// handle dispatches one line of input to its colon-command, or reports an
// unknown-command error.
func (r *REPL) handle(input string, out io.Writer) {
	fields := strings.Fields(input)
	switch fields[0] {
	case ":help":
		r.printHelp(out)
	case ":errors":
		r.printErrors(out)
	case ":consts":
		r.printConsts(out)
	case ":eval":
		if len(fields) < 2 {
			fmt.Fprintf(out, "%s: usage :eval <crate::path::to::ITEM>\n", red("Error"))
			return
		}
		r.evalPath(fields[1], out)
	default:
		fmt.Fprintf(out, "%s: unknown command %q (try :help)\n", red("Error"), fields[0])
	}
}

func (r *REPL) printHelp(out io.Writer) {
	fmt.Fprintln(out, cyan(":help")+"              show this message")
	fmt.Fprintln(out, cyan(":consts")+"            list every const/static with a cached folded value")
	fmt.Fprintln(out, cyan(":eval <path>")+"      print the folded bytes for one item's absolute path")
	fmt.Fprintln(out, cyan(":errors")+"            list diagnostics recorded by the last driver run")
	fmt.Fprintln(out, cyan(":quit")+"              exit")
}

func (r *REPL) printErrors(out io.Writer) {
	errs := r.driver.Errors()
	if len(errs) == 0 {
		fmt.Fprintln(out, green("no errors recorded"))
		return
	}
	for _, e := range errs {
		fmt.Fprintf(out, "%s[%s]: %s\n", red(e.Phase), dim(e.Code), e.Message)
	}
}

func (r *REPL) printConsts(out io.Writer) {
	paths := make([]string, 0, len(r.driver.Eval.Consts))
	for p := range r.driver.Eval.Consts {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
}

func (r *REPL) evalPath(pathStr string, out io.Writer) {
	nodes := strings.Split(pathStr, "::")
	if len(nodes) < 2 {
		fmt.Fprintf(out, "%s: path must be crate::...::item\n", red("Error"))
		return
	}
	path := rast.AbsolutePath{Crate: nodes[0], Nodes: nodes[1:]}
	lit, err := r.driver.Eval.EvalConst(path)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
		return
	}
	if len(lit.Bytes) <= 8 {
		fmt.Fprintf(out, "%s = %d (%d bytes)\n", pathStr, num128.FromLittleEndian(lit.Bytes).Lo, len(lit.Bytes))
		return
	}
	fmt.Fprintf(out, "%s = % x\n", pathStr, lit.Bytes)
}
