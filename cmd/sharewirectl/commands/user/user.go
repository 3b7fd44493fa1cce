// Package user implements user management commands for sharewirectl.
package user

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for user management.
var Cmd = &cobra.Command{
	Use:   "user",
	Short: "User management",
	Long: `Manage principals in the identity store.

Examples:
  sharewirectl user add alice --password secret
  sharewirectl user passwd alice --password newsecret
  sharewirectl user grant alice editors
  sharewirectl user list`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(passwdCmd)
	Cmd.AddCommand(grantCmd)
	Cmd.AddCommand(listCmd)
}
