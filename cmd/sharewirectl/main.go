// Command sharewirectl is the admin client for managing the principals,
// groups, and shares a deployment's identity store and share file
// describe. It talks to the identity store directly; there is no REST
// control plane in front of it.
package main

import (
	"fmt"
	"os"

	"github.com/sharewire/sharewire/cmd/sharewirectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
