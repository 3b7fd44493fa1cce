package share

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sharewire/sharewire/cmd/sharewirectl/cmdutil"
	"github.com/sharewire/sharewire/internal/shareconf"
	"github.com/sharewire/sharewire/pkg/config"
	shareconfig "github.com/sharewire/sharewire/pkg/share"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List shares from the configured share file",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	path := cmdutil.ConfigPath
	if path == "" && config.DefaultConfigExists() {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	f, err := os.Open(cfg.Shares)
	if err != nil {
		return fmt.Errorf("open share file %s: %w", cfg.Shares, err)
	}
	defer f.Close()

	directives, err := shareconf.ParseReader(f)
	if err != nil {
		return fmt.Errorf("parse share file %s: %w", cfg.Shares, err)
	}

	table, err := shareconfig.Load(directives, nil)
	if err != nil {
		return fmt.Errorf("load shares: %w", err)
	}

	for _, s := range table.All() {
		auth := "none"
		if s.AuthClass == shareconfig.AuthExternal {
			auth = "external"
		}
		fmt.Printf("name=%s path=%s read_only=%t auth=%s\n", s.Name, s.LocalPath, s.ReadOnly, auth)
	}
	return nil
}
