// Command mrustc-core drives the HIR conversion passes (alias expansion,
// binding, UFCS resolution, lifetime elision, markings, constant
// evaluation) over a crate, and offers an interactive REPL for ad hoc
// queries against the result.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustbootstrap/mrustc-core/internal/config"
)

// Version is filled in by -ldflags at build time.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mrustc-core",
	Short: "A front-end driver for a Rust-subset HIR conversion pipeline.",
	Long: `mrustc-core runs the alias-expansion, binding, UFCS-resolution,
lifetime-elision, markings, and constant-evaluation passes over an
in-memory crate, mirroring the HIR conversion stage of a Rust bootstrap
compiler.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug-level pass tracing")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to mrustc-core.yaml (default: search cwd)")
	rootCmd.Version = Version
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
