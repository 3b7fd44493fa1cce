// Package commands implements the sharewirectl command tree, grounded
// on dfsctl's cobra structure: one subpackage per noun.
package commands

import (
	"github.com/spf13/cobra"

	groupcmd "github.com/sharewire/sharewire/cmd/sharewirectl/commands/group"
	sharecmd "github.com/sharewire/sharewire/cmd/sharewirectl/commands/share"
	usercmd "github.com/sharewire/sharewire/cmd/sharewirectl/commands/user"
	"github.com/sharewire/sharewire/cmd/sharewirectl/cmdutil"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sharewirectl",
	Short: "sharewirectl manages users, groups, and shares",
	Long: `sharewirectl is the admin client for a sharewire deployment. It
reads the same config file the daemons do and talks to the identity
store directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cmdutil.ConfigPath, "config", "c", "", "Path to config file (default: ~/.config/sharewire/config.yaml)")

	rootCmd.AddCommand(usercmd.Cmd)
	rootCmd.AddCommand(groupcmd.Cmd)
	rootCmd.AddCommand(sharecmd.Cmd)
	rootCmd.AddCommand(versionCmd)
}
