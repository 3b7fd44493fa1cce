package user

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharewire/sharewire/cmd/sharewirectl/cmdutil"
)

var grantCmd = &cobra.Command{
	Use:   "grant <username> <group>",
	Short: "Add a principal to a group",
	Args:  cobra.ExactArgs(2),
	RunE:  runGrant,
}

func runGrant(cmd *cobra.Command, args []string) error {
	store, err := cmdutil.OpenIdentityStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.AddToGroup(context.Background(), args[0], args[1]); err != nil {
		return fmt.Errorf("add to group: %w", err)
	}
	fmt.Printf("%q added to group %q\n", args[0], args[1])
	return nil
}
