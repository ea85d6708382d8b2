package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/inkwell-dev/inkwell/internal/config"
	inkerrors "github.com/inkwell-dev/inkwell/internal/errors"
	"github.com/inkwell-dev/inkwell/pkg/server"
	"github.com/inkwell-dev/inkwell/pkg/snapshot"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		kernelURL string
		configDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the widget sync server",
		Long: `Start the widget sync server.

Reads inkwell.json from the working directory, opens the snapshot
store and listens for notebook clients.

Examples:
  inkwell serve
  inkwell serve --addr=:9000
  inkwell serve --kernel=ws://localhost:8900/widgets`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configDir, addr, kernelURL)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from inkwell.json)")
	cmd.Flags().StringVarP(&kernelURL, "kernel", "k", "", "Kernel websocket URL (default from inkwell.json)")
	cmd.Flags().StringVarP(&configDir, "config-dir", "c", ".", "Directory containing inkwell.json")

	return cmd
}

func runServe(configDir, addr, kernelURL string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if kernelURL != "" {
		cfg.Kernel.URL = kernelURL
	}

	logger := buildLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openSnapshotStore(ctx, cfg.Snapshot)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	srv := server.New(buildServerConfig(cfg, logger), store)

	printBanner()
	info("listening on %s", cfg.Server.Addr)
	if cfg.Kernel.URL != "" {
		info("kernel at %s", cfg.Kernel.URL)
	} else {
		warn("no kernel configured, sessions run unlinked")
	}

	if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
		return inkerrors.New("E201").Wrap(err).
			WithSuggestion("Check that " + cfg.Server.Addr + " is free")
	}
	success("server stopped")
	return nil
}

func buildLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func buildServerConfig(cfg *config.Config, logger *slog.Logger) server.Config {
	sc := server.DefaultConfig()
	sc.Addr = cfg.Server.Addr
	sc.MaxSessions = cfg.Server.MaxSessions
	sc.KernelURL = cfg.Kernel.URL
	sc.SweepInterval = config.Duration(cfg.Server.SweepInterval)
	sc.Logger = logger

	sc.Session.Debounce = config.Duration(cfg.Session.Debounce)
	sc.Session.RemountTimeout = config.Duration(cfg.Session.RemountTimeout)
	sc.Session.IdleTimeout = config.Duration(cfg.Session.IdleTimeout)
	sc.Session.PingInterval = config.Duration(cfg.Session.PingInterval)
	sc.Session.EventQueueSize = cfg.Session.EventQueue
	sc.Session.DispatchQueueSize = cfg.Session.DispatchQueue
	sc.Session.Logger = logger
	return sc
}

func openSnapshotStore(ctx context.Context, cfg config.SnapshotConfig) (snapshot.Store, func(), error) {
	switch cfg.Backend {
	case "none":
		return nil, nil, nil
	case "bolt":
		store, err := snapshot.OpenBolt(cfg.Path)
		if err != nil {
			return nil, nil, inkerrors.New("E401").Wrap(err).
				WithSuggestion("Check permissions on " + cfg.Path)
		}
		return store, func() { _ = store.Close() }, nil
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, inkerrors.New("E401").Wrap(err).
				WithSuggestion("Check AWS credentials and region configuration")
		}
		client := s3.NewFromConfig(awsCfg)
		return snapshot.NewS3Store(client, cfg.Bucket, cfg.Prefix), nil, nil
	default:
		// Load already validated the backend; unreachable in practice.
		return nil, nil, inkerrors.New("E402").WithDetail("snapshot.backend = " + cfg.Backend)
	}
}
