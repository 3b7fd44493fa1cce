package group

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharewire/sharewire/cmd/sharewirectl/cmdutil"
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a new group",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	store, err := cmdutil.OpenIdentityStore()
	if err != nil {
		return err
	}
	defer store.Close()

	g, err := store.CreateGroup(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	fmt.Printf("created group %q (id %s)\n", g.Name, g.ID)
	return nil
}
