// Command sharewire-authd serves the authentication RPC peer (§4.5)
// against a principal/group identity store.
package main

import (
	"fmt"
	"os"

	"github.com/sharewire/sharewire/cmd/sharewire-authd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
