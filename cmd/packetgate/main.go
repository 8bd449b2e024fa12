package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/Versifine/packetgate/internal/config"
	"github.com/Versifine/packetgate/internal/debug"
	"github.com/Versifine/packetgate/internal/dispatch"
	"github.com/Versifine/packetgate/internal/event"
	"github.com/Versifine/packetgate/internal/hook"
	"github.com/Versifine/packetgate/internal/logger"
	"github.com/Versifine/packetgate/internal/proxy"
	"github.com/Versifine/packetgate/internal/session"
	"github.com/Versifine/packetgate/internal/transform"
	"github.com/Versifine/packetgate/internal/wrapper"
)

type options struct {
	configPath string
	logLevel   string
	listen     string
	backend    string
	console    bool
	// configSet is true when --config was given explicitly.
	configSet bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("packetgate", flag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "Config file (.yaml or .toml)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Override logging.level")
	fs.StringVarP(&opts.listen, "listen", "l", "", "Override listen address (host:port)")
	fs.StringVarP(&opts.backend, "backend", "b", "", "Override backend address (host:port)")
	fs.BoolVar(&opts.console, "console", false, "Start the operator console")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.configSet = fs.Changed("config")
	return opts, nil
}

// loadConfig reads the config file and applies flag overrides. A missing
// file at the default path falls back to defaults.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || opts.configSet {
			return nil, err
		}
		cfg = config.Default()
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.listen != "" {
		if err := cfg.Listen.Set(opts.listen); err != nil {
			return nil, fmt.Errorf("--listen: %w", err)
		}
	}
	if opts.backend != "" {
		if err := cfg.Backend.Set(opts.backend); err != nil {
			return nil, fmt.Errorf("--backend: %w", err)
		}
	}
	if opts.console {
		cfg.Console.Enabled = true
	}
	return cfg, cfg.Validate()
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}); err != nil {
		slog.Error("Failed to init logger", "error", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := run(cfg); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	platform, err := cfg.Protocol.Platform()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := transform.NewCatalog()
	catalog.RegisterAll(wrapper.StandardCorrections())

	bus := event.NewBus()
	bus.Subscribe(event.EventConnClosed, func(raw any) {
		if evt, ok := raw.(*event.ConnClosedEvent); ok {
			logger.With("session", evt.Session).Debug("Connection closed event", "remote", evt.Remote)
		}
	})
	injector := proxy.NewInjector(hook.NewChain(&hook.LogHook{}), bus)
	manager := dispatch.NewManager(
		session.NewRegistry[*proxy.Conn](cfg.Protocol.RegistryShards),
		transform.NewPipeline(catalog),
		injector,
		dispatch.WithPlatformVersion[*proxy.Conn](platform),
	)
	server := proxy.NewServer(cfg.Listen.Addr(), cfg.Backend.Addr(), manager, injector,
		proxy.WithMaxPacketSize(cfg.Protocol.MaxPacketSize),
	)

	if cfg.Console.Enabled {
		console := debug.NewConsole[*proxy.Conn](manager, injector)
		go func() {
			if err := console.Start(ctx); err != nil {
				slog.Error("Console stopped", "error", err)
				return
			}
			stop()
		}()
	}

	err = server.Start(ctx)
	bus.Wait()
	return err
}
