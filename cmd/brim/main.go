package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/germanamz/brim/cmd/brim/internal/app"
	"github.com/germanamz/brim/cmd/brim/internal/bridge"
	"github.com/germanamz/brim/cmd/brim/internal/format"
	"github.com/germanamz/brim/pkg/brimdir"
	"github.com/germanamz/brim/pkg/browser"
	"github.com/germanamz/brim/pkg/logging"
)

type options struct {
	configPath string
	dir        string
	envFile    string
	profile    bool
	urls       []string
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: brim [flags] [url ...]\n\nFlags:\n")
		flag.PrintDefaults()
	}

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to configuration file (default: <dir>/config.yaml)")
	flag.StringVar(&opts.dir, "dir", "", "path to the brim directory (default: user config dir)")
	flag.StringVar(&opts.envFile, "env", "", "path to .env file, ignored if missing (default: <dir>/.env)")
	flag.BoolVar(&opts.profile, "profile", false, "keep cookies and history in <dir>/local/profile")
	flag.Parse()
	opts.urls = flag.Args()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	dir, err := brimdir.Resolve(opts.dir)
	if err != nil {
		return err
	}
	if err := brimdir.EnsureStructure(dir); err != nil {
		return err
	}

	envFile := opts.envFile
	if envFile == "" {
		envFile = dir.EnvPath()
	}
	if err := loadDotEnv(envFile); err != nil {
		return err
	}

	configPath := opts.configPath
	if configPath == "" {
		configPath = dir.ConfigPath()
	}
	cfg, err := browser.LoadConfig(configPath)
	if err != nil {
		return err
	}
	applyDir(&cfg, dir, opts)

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Detect the background before bubbletea owns the terminal.
	format.IsDarkBG = lipgloss.HasDarkBackground()

	model := app.New(log.Named("tui"))
	b, err := browser.New(ctx, cfg, browser.WithLogger(log), browser.WithPresenter(model))
	if err != nil {
		return err
	}
	defer b.Close()
	model.Bind(b)
	defer model.Close()

	log.Info("brim started",
		zap.String("dir", dir.Root()),
		zap.String("config", configPath),
		zap.Bool("headless", cfg.Engine.Headless),
	)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	bridgeCtx, stopBridge := context.WithCancel(gctx)

	g.Go(func() error {
		return bridge.Run(bridgeCtx, b.Loop().Ready(), p)
	})
	g.Go(func() error {
		defer stopBridge()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})

	return g.Wait()
}

// applyDir points the unset paths of cfg into dir and lets urls on the command
// line replace the configured start URLs.
func applyDir(cfg *browser.Config, dir brimdir.Dir, opts options) {
	if cfg.ContentBlocking.RulesFile == "" && dir.HasRules() {
		cfg.ContentBlocking.RulesFile = dir.RulesPath()
	}
	if opts.profile && cfg.Engine.UserDataDir == "" {
		cfg.Engine.UserDataDir = dir.ProfileDir()
	}
	// The TUI owns the terminal, so the default stderr sink moves to a file.
	if len(cfg.Logging.OutputPaths) == 0 || (len(cfg.Logging.OutputPaths) == 1 && cfg.Logging.OutputPaths[0] == "stderr") {
		cfg.Logging.OutputPaths = []string{dir.LogPath()}
	}
	if len(opts.urls) > 0 {
		cfg.StartURLs = opts.urls
	}
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
