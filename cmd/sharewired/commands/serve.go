package commands

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sharewire/sharewire/internal/logger"
	"github.com/sharewire/sharewire/internal/shareconf"
	"github.com/sharewire/sharewire/pkg/archive"
	"github.com/sharewire/sharewire/pkg/authclient"
	"github.com/sharewire/sharewire/pkg/config"
	"github.com/sharewire/sharewire/pkg/discovery"
	"github.com/sharewire/sharewire/pkg/metrics"
	prommetrics "github.com/sharewire/sharewire/pkg/metrics/prometheus"
	"github.com/sharewire/sharewire/pkg/server"
	"github.com/sharewire/sharewire/pkg/share"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the file-sharing daemon",
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

	logger.Info("sharewired starting", logger.Path(cfg.Shares))

	// Metrics must be initialized before any metrics-aware component is
	// constructed, so that metrics.IsEnabled reflects the final answer
	// by the time sessionMetrics/archive are built.
	metrics.InitRegistry(cfg.Metrics.Enabled)

	shareDirectives, err := readShareFile(cfg.Shares)
	if err != nil {
		return err
	}

	shares, err := share.Load(shareDirectives, nil)
	if err != nil {
		return fmt.Errorf("load shares: %w", err)
	}

	var auth share.AuthClient
	if host := shares.AuthServerHost(); host != "" {
		addr := fmt.Sprintf("%s:%d", host, config.DefaultAuthPort)
		auth = authclient.ShareAdapter{Client: authclient.New(addr)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	archiver, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		return fmt.Errorf("init archive mirror: %w", err)
	}
	defer archiver.Close()

	indexes := newIndexRegistry(cfg.Index)
	defer indexes.closeAll()

	srv := server.New(shares, auth, indexes.open, server.Config{
		Port:        cfg.Server.Port,
		MaxSessions: cfg.Server.MaxSessions,
		Timeouts: server.Timeouts{
			Idle: cfg.Server.IdleTimeout,
			Read: cfg.Server.ReadTimeout,
		},
		AssertionTTL: cfg.Server.AssertionTTL,
	})
	srv.Archive = archiver
	srv.Metrics = prommetrics.NewSessionMetrics()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen on service port: %w", err)
	}
	logger.Info("file-sharing service listening", logger.ClientIP(ln.Addr().String()))

	var discoveryResponder *discovery.Responder
	if cfg.Discovery.Enabled {
		discoveryResponder, err = discovery.Listen(fmt.Sprintf(":%d", cfg.Discovery.Port), shares, srv)
		if err != nil {
			return fmt.Errorf("listen on discovery port: %w", err)
		}
		go func() {
			if err := discoveryResponder.Serve(); err != nil {
				logger.Debug("discovery responder stopped", logger.Err(err))
			}
		}()
		logger.Info("discovery responder listening")
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logger.Err(err))
			}
		}()
		logger.Info("metrics endpoint listening", logger.ClientIP(metricsSrv.Addr))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverDone := make(chan error, 1)
	go func() { serverDone <- srv.Serve(ctx, ln) }()

	select {
	case sig := <-sigChan:
		signal.Stop(sigChan)
		logger.Info(fmt.Sprintf("shutting down on signal %s", sig))
		cancel()
		err = <-serverDone
	case err = <-serverDone:
		signal.Stop(sigChan)
	}

	if discoveryResponder != nil {
		_ = discoveryResponder.Close()
	}
	if metricsSrv != nil {
		_ = metricsSrv.Close()
	}
	return err
}

func readShareFile(path string) ([]shareconf.Directive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open share file %s: %w", path, err)
	}
	defer f.Close()

	directives, err := shareconf.ParseReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse share file %s: %w", path, err)
	}
	return directives, nil
}
