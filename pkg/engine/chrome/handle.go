package chrome

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/germanamz/brim/pkg/contentblock"
	"github.com/germanamz/brim/pkg/engine"
	"github.com/germanamz/brim/pkg/owner"
)

var errNoHistory = errors.New("chrome: no history entry in that direction")

// Handle is one Chrome page target. Requests are queued and executed in
// order on a per-handle worker goroutine; results come back as events.
type Handle struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	log     *zap.Logger
	bus     *engine.EventBus
	cmds    *owner.Loop
	ready   chan struct{}
	onClose func()

	mu        sync.Mutex
	closed    bool
	setupErr  error
	mainFrame cdp.FrameID
	docURL    string
	active    engine.Attempt
	title     string
	failed    engine.Attempt
	loaders   map[cdp.LoaderID]engine.Attempt
	documents map[network.RequestID]cdp.LoaderID
	back      bool
	forward   bool
	zoom      float64
	applied   float64
	rules     *contentblock.RuleSet
}

var _ engine.Handle = (*Handle)(nil)

func newHandle(ctx context.Context, cancel context.CancelFunc, timeout time.Duration, log *zap.Logger) *Handle {
	return &Handle{
		ctx:       ctx,
		cancel:    cancel,
		timeout:   timeout,
		log:       log,
		bus:       engine.NewEventBus(),
		cmds:      owner.NewLoop(),
		ready:     make(chan struct{}),
		onClose:   func() {},
		loaders:   make(map[cdp.LoaderID]engine.Attempt),
		documents: make(map[network.RequestID]cdp.LoaderID),
		zoom:      1,
		applied:   1,
	}
}

func closedHandle() *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newHandle(ctx, cancel, time.Second, zap.NewNop())
	h.closed = true
	h.setupErr = ErrClosed
	close(h.ready)
	return h
}

// start launches the worker and queues target creation ahead of every other
// request.
func (h *Handle) start() {
	chromedp.ListenTarget(h.ctx, h.onEvent)
	chromedp.ListenBrowser(h.ctx, h.onBrowserEvent)
	h.cmds.Post(h.setup)
	go func() { _ = h.cmds.Run(h.ctx) }()
}

func (h *Handle) setup() {
	defer close(h.ready)

	// The first Run creates the target; it must not use a derived context
	// or the target would die with it.
	err := chromedp.Run(h.ctx,
		page.Enable(),
		network.Enable(),
		cdpruntime.Enable(),
		page.SetLifecycleEventsEnabled(true),
	)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.setupErr = fmt.Errorf("chrome: open tab: %w", err)
		h.log.Error("open tab", zap.Error(err))
		return
	}
	if c := chromedp.FromContext(h.ctx); c != nil && c.Target != nil {
		h.mainFrame = cdp.FrameID(c.Target.TargetID)
	}
}

// run executes fn against the target with the per-request timeout.
func (h *Handle) run(fn func(ctx context.Context) error) error {
	h.mu.Lock()
	err := h.setupErr
	h.mu.Unlock()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.ActionFunc(fn))
}

func (h *Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// activate marks at as the attempt whose command is running on the worker.
// Loaders Chrome has not reported yet are bound to it when they first show up.
func (h *Handle) activate(at engine.Attempt) {
	h.mu.Lock()
	h.active = at
	h.mu.Unlock()
}

func (h *Handle) Navigate(at engine.Attempt, url string) error {
	if h.isClosed() {
		return ErrClosed
	}

	h.cmds.Post(func() {
		h.activate(at)
		var res page.NavigateReturns
		err := h.run(func(ctx context.Context) error {
			return cdp.Execute(ctx, page.CommandNavigate, page.Navigate(url), &res)
		})
		if err == nil && res.ErrorText != "" {
			err = errors.New(res.ErrorText)
		}
		if err != nil {
			h.fail(at, fmt.Errorf("chrome: navigate %s: %w", url, err))
			return
		}

		if res.LoaderID != "" {
			h.mu.Lock()
			h.loaders[res.LoaderID] = at
			h.mu.Unlock()
		}
	})
	return nil
}

func (h *Handle) GoBack(at engine.Attempt) error {
	return h.history(at, -1)
}

func (h *Handle) GoForward(at engine.Attempt) error {
	return h.history(at, 1)
}

func (h *Handle) history(at engine.Attempt, delta int64) error {
	if h.isClosed() {
		return ErrClosed
	}

	h.cmds.Post(func() {
		h.activate(at)
		err := h.run(func(ctx context.Context) error {
			idx, entries, err := page.GetNavigationHistory().Do(ctx)
			if err != nil {
				return err
			}
			next := idx + delta
			if next < 0 || next >= int64(len(entries)) {
				return errNoHistory
			}
			return page.NavigateToHistoryEntry(entries[next].ID).Do(ctx)
		})
		if err != nil {
			h.fail(at, fmt.Errorf("chrome: history: %w", err))
		}
	})
	return nil
}

func (h *Handle) Reload(at engine.Attempt) error {
	if h.isClosed() {
		return ErrClosed
	}

	h.cmds.Post(func() {
		h.activate(at)
		if err := h.run(page.Reload().Do); err != nil {
			h.fail(at, fmt.Errorf("chrome: reload: %w", err))
		}
	})
	return nil
}

// Stop bypasses the command queue so it can interrupt a navigation that is
// still waiting for a response.
func (h *Handle) Stop() error {
	if h.isClosed() {
		return ErrClosed
	}

	go func() {
		select {
		case <-h.ready:
		case <-h.ctx.Done():
			return
		}
		if err := h.run(page.StopLoading().Do); err != nil {
			h.log.Warn("stop loading", zap.Error(err))
		}
	}()
	return nil
}

func (h *Handle) CanGoBack() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.back
}

func (h *Handle) CanGoForward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.forward
}

func (h *Handle) Zoom() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.zoom
}

// SetZoom queues a page scale change. Zoom reports the requested level right
// away and falls back to the last applied one if Chrome rejects it.
func (h *Handle) SetZoom(level float64) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.zoom = level
	h.mu.Unlock()

	h.cmds.Post(func() {
		err := h.run(emulation.SetPageScaleFactor(level).Do)

		h.mu.Lock()
		defer h.mu.Unlock()
		if err == nil {
			h.applied = level
			return
		}
		h.log.Warn("set zoom", zap.Float64("level", level), zap.Error(err))
		if h.zoom == level {
			h.zoom = h.applied
		}
	})
	return nil
}

// AttachRules enables request interception for the rule set. Interception is
// queued before any later navigation on this handle.
func (h *Handle) AttachRules(rules *contentblock.RuleSet) error {
	if rules == nil {
		return nil
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.rules = rules
	h.mu.Unlock()

	patterns := requestPatterns(rules)
	h.cmds.Post(func() {
		if err := h.run(fetch.Enable().WithPatterns(patterns).Do); err != nil {
			h.log.Error("enable content blocking", zap.String("identifier", rules.Identifier()), zap.Error(err))
			return
		}
		h.log.Debug("content blocking enabled", zap.String("identifier", rules.Identifier()), zap.Int("patterns", len(patterns)))
	})
	return nil
}

func (h *Handle) Listen(fn engine.Listener) func() {
	return h.bus.Listen(fn)
}

// Close closes the page target and stops the worker.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	err := chromedp.Cancel(h.ctx)
	h.cancel()
	h.onClose()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("chrome: close tab: %w", err)
	}
	return nil
}

func (h *Handle) publish(e engine.Event) {
	h.bus.Publish(e)
}

// fail records at as failed and reports it. Later lifecycle activity for the
// same attempt, such as Chrome's error page, is ignored.
func (h *Handle) fail(at engine.Attempt, err error) {
	h.mu.Lock()
	h.failed = at
	h.mu.Unlock()

	h.refreshHistory()
	h.log.Debug("navigation failed", zap.Uint64("attempt", uint64(at)), zap.Error(err))
	h.publish(engine.Event{Kind: engine.EventNavigationFailed, Attempt: at, Err: err})
}

func (h *Handle) refreshHistory() {
	var back, forward bool
	err := h.run(func(ctx context.Context) error {
		idx, entries, err := page.GetNavigationHistory().Do(ctx)
		if err != nil {
			return err
		}
		back = idx > 0
		forward = idx < int64(len(entries))-1
		return nil
	})
	if err != nil {
		h.log.Debug("refresh history", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.back, h.forward = back, forward
	h.mu.Unlock()
}

func (h *Handle) fetchTitle(at engine.Attempt) {
	var title string
	if err := h.run(chromedp.Title(&title).Do); err != nil {
		h.log.Debug("read title", zap.Error(err))
		return
	}
	h.setTitle(at, title)
}

// setTitle publishes title unless it is the one last reported.
func (h *Handle) setTitle(at engine.Attempt, title string) {
	h.mu.Lock()
	same := h.title == title
	h.title = title
	h.mu.Unlock()
	if same {
		return
	}
	h.publish(engine.Event{Kind: engine.EventTitleChanged, Attempt: at, Title: title})
}
