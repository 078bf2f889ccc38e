// Package browser is the composition root. It assembles the rendering engine,
// the content-blocking compiler, the session registry and the shortcut
// router from configuration and exposes them through a frontend-agnostic API.
//
// Every Browser method runs on the owner context. Frontends either call
// Run, or drain Loop themselves from their own event loop.
package browser

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/germanamz/brim/pkg/contentblock"
	"github.com/germanamz/brim/pkg/engine"
	"github.com/germanamz/brim/pkg/engine/chrome"
	"github.com/germanamz/brim/pkg/owner"
	"github.com/germanamz/brim/pkg/session"
	"github.com/germanamz/brim/pkg/shortcut"
)

// Presenter is implemented by the frontend. Calls arrive on the owner
// context.
type Presenter interface {
	FocusAddressBar()
	BlurAddressBar()
	AddressBarFocused() bool
	Notify(msg string)
}

type nopPresenter struct{ focused bool }

func (p *nopPresenter) FocusAddressBar()        { p.focused = true }
func (p *nopPresenter) BlurAddressBar()         { p.focused = false }
func (p *nopPresenter) AddressBarFocused() bool { return p.focused }
func (p *nopPresenter) Notify(string)           {}

// Option configures a Browser.
type Option func(*Browser)

// WithLogger sets the root logger. Components get named children.
func WithLogger(log *zap.Logger) Option {
	return func(b *Browser) { b.log = log }
}

// WithFactory replaces the Chrome engine with f. The caller keeps ownership
// of f.
func WithFactory(f engine.Factory) Option {
	return func(b *Browser) { b.factory = f }
}

// WithPresenter connects the frontend.
func WithPresenter(p Presenter) Option {
	return func(b *Browser) { b.presenter = p }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(b *Browser) { b.copy = fn }
}

// Browser ties the core together and implements shortcut.Target.
type Browser struct {
	cfg       Config
	log       *zap.Logger
	loop      *owner.Loop
	factory   engine.Factory
	compiler  *contentblock.Compiler
	registry  *session.Registry
	router    *shortcut.Router
	presenter Presenter
	copy      func(string) error

	closeEngine func()
	unobserve   func()
}

var _ shortcut.Target = (*Browser)(nil)

// New creates a Browser from cfg. Unless WithFactory is given it starts
// Chrome, which blocks until the browser process is up. No tab is opened
// until Start.
func New(ctx context.Context, cfg Config, opts ...Option) (*Browser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Browser{
		cfg:         cfg,
		log:         zap.NewNop(),
		loop:        owner.NewLoop(),
		presenter:   &nopPresenter{},
		copy:        clipboard.WriteAll,
		closeEngine: func() {},
	}
	for _, o := range opts {
		o(b)
	}

	if cfg.ContentBlocking.Enabled {
		table, err := cfg.RuleTable()
		if err != nil {
			return nil, err
		}
		b.compiler = contentblock.NewCompiler(ctx, table,
			contentblock.WithLogger(b.log.Named("contentblock")))
	}

	if b.factory == nil {
		eng, err := chrome.Start(ctx, cfg.Engine, b.log.Named("chrome"))
		if err != nil {
			return nil, fmt.Errorf("browser: %w", err)
		}
		b.factory = eng
		b.closeEngine = eng.Close
	}

	regOpts := []session.Option{
		session.WithLogger(b.log.Named("registry")),
		session.WithBlurFunc(b.presenter.BlurAddressBar),
	}
	if b.compiler != nil {
		regOpts = append(regOpts, session.WithCompiler(b.compiler))
	}
	b.registry = session.New(b.factory, b.loop, regOpts...)
	b.router = shortcut.NewRouter(b.presenter.AddressBarFocused)

	b.unobserve = b.registry.Observe(func(c session.Change) {
		if c.Kind == session.ChangeNotice {
			b.presenter.Notify(c.Notice)
		}
	})

	return b, nil
}

// Start opens the startup tabs: one per configured start URL, or a single
// empty tab.
func (b *Browser) Start() {
	if len(b.cfg.StartURLs) == 0 {
		b.AddTab()
		return
	}
	for _, u := range b.cfg.StartURLs {
		b.Open(u)
	}
}

// Run makes the calling goroutine the owner until ctx is done.
func (b *Browser) Run(ctx context.Context) error {
	return b.loop.Run(ctx)
}

// Loop returns the owner queue.
func (b *Browser) Loop() *owner.Loop { return b.loop }

// Registry returns the session registry.
func (b *Browser) Registry() *session.Registry { return b.registry }

// Router returns the shortcut router.
func (b *Browser) Router() *shortcut.Router { return b.router }

// Config returns the configuration the browser was built with.
func (b *Browser) Config() Config { return b.cfg }

// HandleKey routes a key press. It reports whether the key was bound.
func (b *Browser) HandleKey(k fmt.Stringer) bool {
	return b.router.Route(k, b)
}

// Open adds a tab and loads input in it.
func (b *Browser) Open(input string) {
	b.registry.AddTab()
	b.registry.SetAddressBarText(input)
	b.registry.LoadCurrent()
}

// Close closes every session and shuts the engine down.
func (b *Browser) Close() {
	b.unobserve()
	b.registry.Close()
	b.closeEngine()
}

func (b *Browser) AddTab() {
	b.registry.AddTab()
	b.presenter.FocusAddressBar()
}

func (b *Browser) CloseCurrentTab() {
	if cur := b.registry.Current(); cur != nil {
		b.registry.CloseTab(cur.ID())
	}
}

func (b *Browser) FocusAddressBar() { b.presenter.FocusAddressBar() }

func (b *Browser) ReloadCurrent() {
	if cur := b.registry.Current(); cur != nil && cur.Target() != "" {
		cur.Nav().Reload()
	}
}

func (b *Browser) StopCurrent() {
	if cur := b.registry.Current(); cur != nil && cur.State().IsLoading {
		cur.Nav().Stop()
	}
}

func (b *Browser) GoBack() {
	if cur := b.registry.Current(); cur != nil {
		cur.Nav().GoBack()
	}
}

func (b *Browser) GoForward() {
	if cur := b.registry.Current(); cur != nil {
		cur.Nav().GoForward()
	}
}

func (b *Browser) NextTab()            { b.registry.NextTab() }
func (b *Browser) PreviousTab()        { b.registry.PreviousTab() }
func (b *Browser) SwitchToIndex(n int) { b.registry.SwitchToIndex(n) }

func (b *Browser) ZoomIn() {
	if cur := b.registry.Current(); cur != nil {
		cur.Nav().ZoomIn()
	}
}

func (b *Browser) ZoomOut() {
	if cur := b.registry.Current(); cur != nil {
		cur.Nav().ZoomOut()
	}
}

func (b *Browser) ResetZoom() {
	if cur := b.registry.Current(); cur != nil {
		cur.Nav().ResetZoom()
	}
}

// CopyCurrentURL writes the current session's target to the clipboard.
func (b *Browser) CopyCurrentURL() {
	cur := b.registry.Current()
	if cur == nil || cur.Target() == "" {
		return
	}

	if err := b.copy(cur.Target()); err != nil {
		b.log.Warn("copy url", zap.Error(err))
		b.presenter.Notify("Clipboard unavailable")
		return
	}
	b.presenter.Notify("Copied " + cur.Target())
}

// Submit commits the address bar to the current session.
func (b *Browser) Submit() { b.registry.LoadCurrent() }
