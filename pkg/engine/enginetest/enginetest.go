// Package enginetest provides an in-memory engine.Handle for tests. It
// records every request and lets the test emit engine events explicitly, in
// any order, from any goroutine.
package enginetest

import (
	"sync"

	"github.com/germanamz/brim/pkg/contentblock"
	"github.com/germanamz/brim/pkg/engine"
)

// Call records one request made to a Handle.
type Call struct {
	Method  string
	Attempt engine.Attempt
	URL     string
	Zoom    float64
}

// Handle is a fake engine.Handle.
type Handle struct {
	bus *engine.EventBus

	mu       sync.Mutex
	calls    []Call
	back     bool
	forward  bool
	zoom     float64
	rules    *contentblock.RuleSet
	attached int
	closed   bool
	err      error
}

var _ engine.Handle = (*Handle)(nil)

// NewHandle creates a Handle with zoom 1.0 and no history.
func NewHandle() *Handle {
	return &Handle{bus: engine.NewEventBus(), zoom: 1}
}

// FailRequests makes every subsequent request method return err. Pass nil to
// restore normal behaviour.
func (h *Handle) FailRequests(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

func (h *Handle) record(c Call) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, c)
	return h.err
}

func (h *Handle) Navigate(attempt engine.Attempt, url string) error {
	return h.record(Call{Method: "navigate", Attempt: attempt, URL: url})
}

func (h *Handle) GoBack(attempt engine.Attempt) error {
	return h.record(Call{Method: "back", Attempt: attempt})
}

func (h *Handle) GoForward(attempt engine.Attempt) error {
	return h.record(Call{Method: "forward", Attempt: attempt})
}

func (h *Handle) Reload(attempt engine.Attempt) error {
	return h.record(Call{Method: "reload", Attempt: attempt})
}

func (h *Handle) Stop() error {
	return h.record(Call{Method: "stop"})
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

func (h *Handle) SetZoom(level float64) error {
	if err := h.record(Call{Method: "zoom", Zoom: level}); err != nil {
		return err
	}
	h.mu.Lock()
	h.zoom = level
	h.mu.Unlock()
	return nil
}

func (h *Handle) AttachRules(rules *contentblock.RuleSet) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rules = rules
	h.attached++
	return nil
}

func (h *Handle) Listen(fn engine.Listener) func() {
	return h.bus.Listen(fn)
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// SetHistory sets what CanGoBack and CanGoForward report.
func (h *Handle) SetHistory(back, forward bool) {
	h.mu.Lock()
	h.back, h.forward = back, forward
	h.mu.Unlock()
}

// SettleZoom sets what Zoom reports without recording a call, as an engine
// does when a level it accepted fails to apply.
func (h *Handle) SettleZoom(level float64) {
	h.mu.Lock()
	h.zoom = level
	h.mu.Unlock()
}

// Emit publishes e to all listeners on the calling goroutine.
func (h *Handle) Emit(e engine.Event) { h.bus.Publish(e) }

// Started emits a navigation start for attempt.
func (h *Handle) Started(attempt engine.Attempt) {
	h.Emit(engine.Event{Kind: engine.EventNavigationStarted, Attempt: attempt})
}

// Finished emits a navigation finish for attempt.
func (h *Handle) Finished(attempt engine.Attempt) {
	h.Emit(engine.Event{Kind: engine.EventNavigationFinished, Attempt: attempt})
}

// Failed emits a navigation failure for attempt.
func (h *Handle) Failed(attempt engine.Attempt, err error) {
	h.Emit(engine.Event{Kind: engine.EventNavigationFailed, Attempt: attempt, Err: err})
}

// Progress emits a progress update for attempt.
func (h *Handle) Progress(attempt engine.Attempt, p float64) {
	h.Emit(engine.Event{Kind: engine.EventProgressChanged, Attempt: attempt, Progress: p})
}

// Title emits a title change.
func (h *Handle) Title(attempt engine.Attempt, title string) {
	h.Emit(engine.Event{Kind: engine.EventTitleChanged, Attempt: attempt, Title: title})
}

// Console emits a console message.
func (h *Handle) Console(level engine.ConsoleLevel, text string) {
	h.Emit(engine.Event{Kind: engine.EventConsoleMessage, Console: engine.ConsoleMessage{Level: level, Text: text}})
}

// Calls returns a copy of all recorded requests.
func (h *Handle) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Call, len(h.calls))
	copy(out, h.calls)
	return out
}

// LastCall returns the most recent request, if any.
func (h *Handle) LastCall() (Call, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.calls) == 0 {
		return Call{}, false
	}
	return h.calls[len(h.calls)-1], true
}

// Navigations returns the URLs passed to Navigate, in order.
func (h *Handle) Navigations() []string {
	var urls []string
	for _, c := range h.Calls() {
		if c.Method == "navigate" {
			urls = append(urls, c.URL)
		}
	}
	return urls
}

// Rules returns the last attached rule set and how many times rules were
// attached.
func (h *Handle) Rules() (*contentblock.RuleSet, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rules, h.attached
}

// Closed reports whether Close was called.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Listeners returns the number of active event listeners.
func (h *Handle) Listeners() int { return h.bus.Len() }

// Factory hands out fake handles and remembers them in creation order.
type Factory struct {
	mu      sync.Mutex
	handles []*Handle
}

var _ engine.Factory = (*Factory)(nil)

// NewHandle creates and records a new Handle.
func (f *Factory) NewHandle() engine.Handle {
	h := NewHandle()
	f.mu.Lock()
	f.handles = append(f.handles, h)
	f.mu.Unlock()
	return h
}

// Handles returns every handle created so far.
func (f *Factory) Handles() []*Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Handle, len(f.handles))
	copy(out, f.handles)
	return out
}

// Last returns the most recently created handle or nil.
func (f *Factory) Last() *Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		return nil
	}
	return f.handles[len(f.handles)-1]
}
