package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rustbootstrap/mrustc-core/internal/repl"
)

var dumpReplCmd = &cobra.Command{
	Use:   "dump-repl",
	Short: "run the driver over the worked-example crate, then open an interactive query REPL",
	Long: `dump-repl runs every HIR conversion pass over the same
worked-example crate as "pipeline", then drops into an interactive
session where :consts, :eval <path>, and :errors can inspect the
resulting constant table and diagnostics.`,
	Run: func(cmd *cobra.Command, args []string) {
		d, root := newDemoDriver()
		_ = d.Run() // REPL still works against whichever passes completed.
		repl.New(d, root, Version).Start(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(dumpReplCmd)
}
