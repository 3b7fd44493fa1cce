package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sharewire/sharewire/internal/shareconf"
	"github.com/sharewire/sharewire/pkg/config"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load and validate the config file and share file, then exit",
	RunE:  runValidateConfig,
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
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

	fmt.Printf("config OK: %d share directive(s) in %s\n", len(directives), cfg.Shares)
	return nil
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" && config.DefaultConfigExists() {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}
