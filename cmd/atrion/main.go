package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "atrion",
	Short:   "Adaptive admission-control engine",
	Long:    `atrion runs the physics-based admission-control engine: per-route resistance tracking, adaptive thresholds, and Ohm's-Law admit/shed decisions.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hubCmd)
}

// Commands are defined in separate files:
// - simulateCmd in simulate.go
// - serveCmd in serve.go
// - hubCmd in hub.go

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
