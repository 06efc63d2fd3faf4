package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danmuck/assurance/internal/agent"
	"github.com/danmuck/assurance/internal/config"
	logs "github.com/danmuck/assurance/internal/logging"
	"github.com/danmuck/assurance/internal/presentation"
	"github.com/danmuck/assurance/internal/server"
	"github.com/danmuck/assurance/internal/store"
	"github.com/danmuck/assurance/internal/transport"
)

type runOptions struct {
	configPath string
	deepLink   string
	statePath  string
	addr       string
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the companion daemon and its admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, cfg, opts.deepLink)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "daemon config file (defaults when empty)")
	cmd.Flags().StringVar(&opts.deepLink, "deeplink", "", "launch URL to start a session with")
	cmd.Flags().StringVar(&opts.statePath, "state", "", "override state_path")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "override admin.addr")
	return cmd
}

func resolveConfig(opts runOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if opts.statePath != "" {
		cfg.StatePath = opts.statePath
	}
	if opts.addr != "" {
		cfg.Admin.Addr = opts.addr
	}
	return cfg, config.Validate(cfg)
}

func openStore(path string) (store.Store, error) {
	if path == "" {
		return store.NewMemoryStore(), nil
	}
	return store.OpenFile(path)
}

// runDaemon blocks until ctx is cancelled or the admin server fails.
func runDaemon(ctx context.Context, cfg config.Config, deepLink string) error {
	logs.ConfigureRuntimeLevel(cfg.LogLevel)

	st, err := openStore(cfg.StatePath)
	if err != nil {
		return err
	}
	ui := presentation.NewHeadless(cfg.PresentationConfig())
	a, err := agent.New(agent.Options{
		Config:       cfg.AgentConfig(),
		Store:        st,
		Transport:    transport.WebSocketFactory(cfg.Transport),
		Presentation: ui,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	stopTee := a.TeeLogs()
	defer stopTee()
	log.SetOutput(io.MultiWriter(os.Stderr, a.LogWriter()))
	defer log.SetOutput(os.Stderr)

	srv, err := server.New(cfg.Admin, a, ui)
	if err != nil {
		return err
	}

	a.Start()
	if deepLink != "" {
		if err := a.HandleDeepLink(deepLink); err != nil {
			return err
		}
	}
	logs.Infof("assurancectl.run name=%s addr=%s state=%q", cfg.Name, srv.Addr(), cfg.StatePath)
	return srv.Run(ctx)
}
