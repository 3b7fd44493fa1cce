package user

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharewire/sharewire/cmd/sharewirectl/cmdutil"
)

var addPassword string

var addCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a new principal",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addPassword, "password", "p", "", "Password (required)")
	_ = addCmd.MarkFlagRequired("password")
}

func runAdd(cmd *cobra.Command, args []string) error {
	store, err := cmdutil.OpenIdentityStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := store.CreatePrincipal(context.Background(), args[0], addPassword)
	if err != nil {
		return fmt.Errorf("create principal: %w", err)
	}
	fmt.Printf("created principal %q (id %s)\n", p.Username, p.ID)
	return nil
}
