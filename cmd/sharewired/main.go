// Command sharewired serves the legacy file-sharing RPC protocol
// (§4) and its UDP discovery companion (§4.8) against a share table
// parsed from a shareconf file.
package main

import (
	"fmt"
	"os"

	"github.com/sharewire/sharewire/cmd/sharewired/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
