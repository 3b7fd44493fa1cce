package group

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharewire/sharewire/cmd/sharewirectl/cmdutil"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := cmdutil.OpenIdentityStore()
	if err != nil {
		return err
	}
	defer store.Close()

	groups, err := store.ListGroups(context.Background())
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}

	for _, g := range groups {
		fmt.Printf("name=%s created=%s\n", g.Name, g.CreatedAt.Format("2006-01-02"))
	}
	return nil
}
