package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sharewire/sharewire/cmd/sharewirectl/cmdutil"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List principals",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := cmdutil.OpenIdentityStore()
	if err != nil {
		return err
	}
	defer store.Close()

	principals, err := store.ListPrincipals(context.Background())
	if err != nil {
		return fmt.Errorf("list principals: %w", err)
	}

	for _, p := range principals {
		groups := make([]string, len(p.Groups))
		for i, g := range p.Groups {
			groups[i] = g.Name
		}
		fmt.Printf("username=%s groups=%s\n", p.Username, strings.Join(groups, ","))
	}
	return nil
}
