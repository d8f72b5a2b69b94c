package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "inspect the resolved driver configuration",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "print the fully-resolved configuration (defaults + file + env) as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		out, err := cfg.Dump()
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Print(out)
	},
}

func init() {
	configCmd.AddCommand(configDumpCmd)
	rootCmd.AddCommand(configCmd)
}
