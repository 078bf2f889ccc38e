package navstate

import (
	"math"

	"go.uber.org/zap"

	"github.com/germanamz/brim/pkg/engine"
	"github.com/germanamz/brim/pkg/owner"
)

// ChangeKind says what an adapter changed.
type ChangeKind int

const (
	ChangeState ChangeKind = iota
	ChangeTitle
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// WithTitleFunc sets the function that receives title changes. It runs on
// the owner context.
func WithTitleFunc(fn func(string)) Option {
	return func(a *Adapter) { a.onTitle = fn }
}

// WithChangeFunc sets the function notified after every applied change. It
// runs on the owner context.
func WithChangeFunc(fn func(ChangeKind)) Option {
	return func(a *Adapter) { a.onChange = fn }
}

// Adapter reconciles the events of one engine handle into a State. Every
// method must be called on the owner context.
type Adapter struct {
	handle   engine.Handle
	log      *zap.Logger
	onTitle  func(string)
	onChange func(ChangeKind)
	unlisten func()

	state   State
	phase   Phase
	attempt engine.Attempt
	lastErr error
	closed  bool
}

// NewAdapter subscribes to h and marshals its events through p before
// applying them.
func NewAdapter(h engine.Handle, p owner.Poster, opts ...Option) *Adapter {
	a := &Adapter{
		handle:   h,
		log:      zap.NewNop(),
		onTitle:  func(string) {},
		onChange: func(ChangeKind) {},
		state:    DefaultState(),
	}
	for _, o := range opts {
		o(a)
	}

	a.unlisten = h.Listen(func(e engine.Event) {
		p.Post(func() { a.apply(e) })
	})

	return a
}

// State returns a copy of the current navigation state.
func (a *Adapter) State() State { return a.state }

// Phase returns the current load phase.
func (a *Adapter) Phase() Phase { return a.phase }

// Attempt returns the id of the most recent navigation request.
func (a *Adapter) Attempt() engine.Attempt { return a.attempt }

// LastError returns the failure of the most recent attempt, if it failed.
func (a *Adapter) LastError() error { return a.lastErr }

// Handle returns the engine handle this adapter drives.
func (a *Adapter) Handle() engine.Handle { return a.handle }

// Navigate starts a new attempt loading url and returns its id. Any earlier
// attempt still in flight is superseded.
func (a *Adapter) Navigate(url string) engine.Attempt {
	return a.request("navigate", func(at engine.Attempt) error {
		return a.handle.Navigate(at, url)
	})
}

// GoBack starts a new attempt stepping back in history. It does nothing and
// returns false when the engine reports no back history.
func (a *Adapter) GoBack() bool {
	if !a.handle.CanGoBack() {
		return false
	}
	a.request("back", a.handle.GoBack)
	return true
}

// GoForward starts a new attempt stepping forward in history. It does nothing
// and returns false when the engine reports no forward history.
func (a *Adapter) GoForward() bool {
	if !a.handle.CanGoForward() {
		return false
	}
	a.request("forward", a.handle.GoForward)
	return true
}

// Reload starts a new attempt reloading the current page.
func (a *Adapter) Reload() engine.Attempt {
	return a.request("reload", a.handle.Reload)
}

// Stop asks the engine to stop loading. The engine reports the outcome
// through the usual finish or failure events.
func (a *Adapter) Stop() {
	if err := a.handle.Stop(); err != nil {
		a.log.Warn("stop loading", zap.Error(err))
	}
}

func (a *Adapter) request(op string, fn func(engine.Attempt) error) engine.Attempt {
	a.attempt++
	at := a.attempt
	a.lastErr = nil

	if err := fn(at); err != nil {
		a.log.Warn("engine request failed", zap.String("op", op), zap.Uint64("attempt", uint64(at)), zap.Error(err))
		a.fail(err)
	}

	return at
}

// ZoomIn raises the zoom level by one step.
func (a *Adapter) ZoomIn() { a.SetZoom(a.state.ZoomLevel + ZoomStep) }

// ZoomOut lowers the zoom level by one step, never below MinZoom.
func (a *Adapter) ZoomOut() { a.SetZoom(a.state.ZoomLevel - ZoomStep) }

// ResetZoom restores the default zoom level.
func (a *Adapter) ResetZoom() { a.SetZoom(DefaultZoom) }

// SetZoom applies level, clamped to MinZoom and rounded to two decimals. The
// state records the level once the engine accepted the request. Engines that
// apply it later may still reject it; the next navigation event picks up the
// level the engine reports.
func (a *Adapter) SetZoom(level float64) {
	level = math.Round(math.Max(MinZoom, level)*100) / 100
	if level == a.state.ZoomLevel {
		return
	}

	if err := a.handle.SetZoom(level); err != nil {
		a.log.Warn("set zoom", zap.Float64("level", level), zap.Error(err))
		return
	}

	a.state.ZoomLevel = level
	a.onChange(ChangeState)
}

// Close stops listening to the engine. Events already queued on the owner are
// ignored afterwards.
func (a *Adapter) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.unlisten()
}

func (a *Adapter) apply(e engine.Event) {
	if a.closed {
		return
	}

	switch e.Kind {
	case engine.EventTitleChanged:
		a.onTitle(e.Title)
		a.onChange(ChangeTitle)
		return
	case engine.EventConsoleMessage:
		a.log.Debug("console",
			zap.Stringer("level", e.Console.Level),
			zap.String("text", e.Console.Text),
			zap.Uint64("attempt", uint64(e.Attempt)))
		return
	}

	if e.Attempt != a.attempt {
		a.log.Debug("dropping stale engine event",
			zap.String("kind", string(e.Kind)),
			zap.Uint64("attempt", uint64(e.Attempt)),
			zap.Uint64("current", uint64(a.attempt)))
		return
	}

	switch e.Kind {
	case engine.EventNavigationStarted:
		a.phase = PhaseLoading
		a.lastErr = nil
		a.state.IsLoading = true
		a.refresh()
	case engine.EventProgressChanged:
		// Accepted in any phase, including after completion.
		a.state.Progress = clamp01(e.Progress)
	case engine.EventNavigationFinished:
		a.phase = PhaseFinished
		a.state.IsLoading = false
		a.refresh()
	case engine.EventNavigationFailed:
		a.fail(e.Err)
		return
	default:
		return
	}

	a.onChange(ChangeState)
}

// fail absorbs a navigation failure into the state. It never propagates.
func (a *Adapter) fail(err error) {
	a.phase = PhaseFailed
	a.lastErr = err
	a.state.IsLoading = false
	a.refresh()
	a.log.Info("navigation failed", zap.Uint64("attempt", uint64(a.attempt)), zap.Error(err))
	a.onChange(ChangeState)
}

// refresh copies the history flags and zoom level the engine reports.
func (a *Adapter) refresh() {
	a.state.CanGoBack = a.handle.CanGoBack()
	a.state.CanGoForward = a.handle.CanGoForward()
	a.state.ZoomLevel = a.handle.Zoom()
}

func clamp01(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Min(1, math.Max(0, p))
}
