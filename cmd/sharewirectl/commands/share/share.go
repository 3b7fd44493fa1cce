// Package share implements the read-only share-inspection command for
// sharewirectl. The share table itself is edited by hand in the
// shareconf file (§4.4), not through this client.
package share

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for share inspection.
var Cmd = &cobra.Command{
	Use:   "share",
	Short: "Share inspection",
	Long: `Inspect the shares a deployment's share file describes.

Examples:
  sharewirectl share list`,
}

func init() {
	Cmd.AddCommand(listCmd)
}
