package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "v0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// Global flags shared by every subcommand that needs a node: the
// configuration file backing nodeconfig, the bbolt store path, and the
// debug verbosity fed to pkg/logging.
var (
	configPath string
	storePath  string
	debugLevel int
)

var rootCmd = &cobra.Command{
	Use:   "lonnode",
	Short: "LonTalk node core — scheduler, NM/ND command surface, and CLI/TUI front end",
	Long: `lonnode drives an EIA-709.1/LonTalk node core against a transceiver
link: the predictive p-persistent CSMA MAC engine, LPDU/NPDU framing,
TSA retries and authentication, and the network-management/diagnostic
command surface.

It has no hardware SPI/GPIO transceiver driver (out of scope for this
core); "run" and "monitor" drive the scheduler against an in-process
scripted transceiver suitable for bench testing and protocol-conformance
checks against a second instance or capture file.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "node.yaml", "node configuration file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&storePath, "store", "s", "disabled", "bbolt configuration-history store path (\"disabled\" to skip persistence)")
	rootCmd.PersistentFlags().IntVarP(&debugLevel, "debug", "d", 1, "debug level (0-3): 0=quiet, 1=normal, 2=verbose, 3=debug")

	rootCmd.SetVersionTemplate(fmt.Sprintf("lonnode %s (commit: %s, built: %s)\n", version, commit, date))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(nmCmd)
	rootCmd.AddCommand(monitorCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
