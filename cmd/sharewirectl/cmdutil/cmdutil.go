// Package cmdutil provides shared utilities for sharewirectl commands:
// opening the identity store the command operates against directly,
// since this client has no REST control plane to talk to instead.
package cmdutil

import (
	"fmt"

	"github.com/sharewire/sharewire/pkg/config"
	"github.com/sharewire/sharewire/pkg/identity"
)

// ConfigPath is set by the root command's --config flag.
var ConfigPath string

// OpenIdentityStore loads the daemon config and opens the identity
// store it describes.
func OpenIdentityStore() (*identity.Store, error) {
	path := ConfigPath
	if path == "" && config.DefaultConfigExists() {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := identity.Open(cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("open identity store: %w", err)
	}
	return store, nil
}
