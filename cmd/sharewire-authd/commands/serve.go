package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sharewire/sharewire/internal/logger"
	"github.com/sharewire/sharewire/pkg/authserver"
	"github.com/sharewire/sharewire/pkg/identity"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authentication daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := identity.Open(cfg.Identity)
	if err != nil {
		return fmt.Errorf("open identity store: %w", err)
	}
	defer store.Close()

	srv := authserver.New(store)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Auth.Port))
	if err != nil {
		return fmt.Errorf("listen on auth port: %w", err)
	}
	logger.Info("sharewire-authd listening", logger.ClientIP(ln.Addr().String()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverDone := make(chan error, 1)
	go func() { serverDone <- srv.Serve(ctx, ln) }()

	select {
	case sig := <-sigChan:
		signal.Stop(sigChan)
		logger.Info(fmt.Sprintf("shutting down on signal %s", sig))
		cancel()
		return <-serverDone
	case err := <-serverDone:
		signal.Stop(sigChan)
		return err
	}
}
