// Package commands implements the sharewired CLI: serve, validate-config,
// and version, grounded on dfsctl's cobra command tree and on dittofs's
// own startup sequencing for serve's body.
package commands

import (
	"github.com/spf13/cobra"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sharewired",
	Short: "sharewired serves shares over the legacy file-sharing protocol",
	Long: `sharewired is the file-sharing daemon: it parses a share
configuration file, binds the TCP service and UDP discovery ports, and
serves mounts against it until terminated.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: "+"~/.config/sharewire/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateConfigCmd)
	rootCmd.AddCommand(versionCmd)
}
