package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharewire/sharewire/pkg/config"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load and validate the config file, then exit",
	RunE:  runValidateConfig,
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Printf("config OK: identity backend %s, auth port %d\n", cfg.Identity.Backend, cfg.Auth.Port)
	return nil
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" && config.DefaultConfigExists() {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}
