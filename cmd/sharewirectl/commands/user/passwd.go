package user

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharewire/sharewire/cmd/sharewirectl/cmdutil"
)

var passwdNew string

var passwdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Set a principal's password",
	Args:  cobra.ExactArgs(1),
	RunE:  runPasswd,
}

func init() {
	passwdCmd.Flags().StringVarP(&passwdNew, "password", "p", "", "New password (required)")
	_ = passwdCmd.MarkFlagRequired("password")
}

func runPasswd(cmd *cobra.Command, args []string) error {
	store, err := cmdutil.OpenIdentityStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetPassword(context.Background(), args[0], passwdNew); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	fmt.Printf("password updated for %q\n", args[0])
	return nil
}
