// Package chrome implements engine.Handle on top of Chrome via the DevTools
// protocol. One Chrome process serves every session; each session gets its
// own page target. The process is started by Start and torn down by Close.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/germanamz/brim/pkg/engine"
)

// ErrClosed is returned by requests made on a closed handle or engine.
var ErrClosed = errors.New("chrome: closed")

// Config controls how Chrome is launched or reached.
type Config struct {
	Headless          bool          `yaml:"headless" envconfig:"headless"`
	ExecPath          string        `yaml:"exec_path" envconfig:"exec_path"`
	RemoteURL         string        `yaml:"remote_url" envconfig:"remote_url"`
	UserDataDir       string        `yaml:"user_data_dir" envconfig:"user_data_dir"`
	UserAgent         string        `yaml:"user_agent" envconfig:"user_agent"`
	WindowWidth       int           `yaml:"window_width" envconfig:"window_width"`
	WindowHeight      int           `yaml:"window_height" envconfig:"window_height"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" envconfig:"navigation_timeout"`
}

// DefaultConfig returns a headless configuration with a 30s per-request
// timeout.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		WindowWidth:       1280,
		WindowHeight:      800,
		NavigationTimeout: 30 * time.Second,
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("chrome: config: navigation_timeout must be positive, got %s", c.NavigationTimeout)
	}
	if c.WindowWidth < 0 || c.WindowHeight < 0 {
		return fmt.Errorf("chrome: config: window size must not be negative")
	}
	if c.RemoteURL != "" && c.ExecPath != "" {
		return fmt.Errorf("chrome: config: remote_url and exec_path are mutually exclusive")
	}
	return nil
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	opts = append(opts, chromedp.Flag("disable-gpu", true))

	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	} else {
		opts = append(opts, chromedp.Flag("incognito", true))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	return opts
}

// Engine owns the Chrome process and hands out one Handle per session.
type Engine struct {
	cfg Config
	log *zap.Logger

	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	mu      sync.Mutex
	closed  bool
	handles map[*Handle]struct{}
}

var _ engine.Factory = (*Engine)(nil)

// Start launches Chrome, or connects to cfg.RemoteURL, and blocks until the
// browser is ready. Cancelling ctx tears Chrome down.
func Start(ctx context.Context, cfg Config, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	}

	sugar := log.Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(sugar.Errorf),
		chromedp.WithLogf(sugar.Debugf),
	)

	// Force Chrome to start by running a noop.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chrome: start: %w", err)
	}

	log.Info("chrome started", zap.Bool("headless", cfg.Headless), zap.Bool("remote", cfg.RemoteURL != ""))

	return &Engine{
		cfg:           cfg,
		log:           log,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		handles:       make(map[*Handle]struct{}),
	}, nil
}

// NewHandle opens a new page target. It never blocks: the target is created
// on the handle's command queue, ahead of any request made on it.
func (e *Engine) NewHandle() engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return closedHandle()
	}

	tabCtx, cancel := chromedp.NewContext(e.browserCtx)
	h := newHandle(tabCtx, cancel, e.cfg.NavigationTimeout, e.log.Named("tab"))
	h.onClose = func() {
		e.mu.Lock()
		delete(e.handles, h)
		e.mu.Unlock()
	}
	e.handles[h] = struct{}{}
	h.start()

	return h
}

// Close closes every open handle and shuts Chrome down.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	handles := make([]*Handle, 0, len(e.handles))
	for h := range e.handles {
		handles = append(handles, h)
	}
	e.mu.Unlock()

	for _, h := range handles {
		_ = h.Close()
	}

	e.browserCancel()
	e.allocCancel()
	e.log.Info("chrome stopped")
}
