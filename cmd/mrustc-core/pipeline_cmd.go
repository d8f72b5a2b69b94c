package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustbootstrap/mrustc-core/internal/diag"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "run every HIR conversion pass over the worked-example crate",
	Long: `pipeline runs expand_aliases, expand_aliases_self, bind,
resolve_ufcs_outer, lifetime_elision, markings, resolve_ufcs, and
constant_evaluate in sequence, halting at the first pass that reports an
error. It prints each error report the driver collected, and a completion
line when every pass succeeds.`,
	Run: func(cmd *cobra.Command, args []string) {
		d, _ := newDemoDriver()
		sink := diag.NewSink(os.Stdout)

		runErr := d.Run()
		for _, r := range d.Errors() {
			sink.EmitReport(r)
		}
		sink.Flush()

		if runErr != nil {
			fmt.Fprintln(os.Stderr, runErr)
			os.Exit(1)
		}
		fmt.Println("pipeline: all passes completed without error")
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
}
