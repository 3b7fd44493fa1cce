// Package group implements group management commands for sharewirectl.
package group

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for group management.
var Cmd = &cobra.Command{
	Use:   "group",
	Short: "Group management",
	Long: `Manage groups in the identity store.

Examples:
  sharewirectl group add editors
  sharewirectl group grant editors alice
  sharewirectl group list`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(grantCmd)
	Cmd.AddCommand(listCmd)
}
