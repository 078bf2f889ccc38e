package engine

import "github.com/germanamz/brim/pkg/contentblock"

// Handle is the control surface of one engine browsing context. Methods must
// not block on page loads: they issue the request and return, with progress
// reported through events. Errors returned here mean the request could not be
// issued at all.
type Handle interface {
	// Navigate loads url. Every event of this navigation carries attempt.
	Navigate(attempt Attempt, url string) error
	GoBack(attempt Attempt) error
	GoForward(attempt Attempt) error
	Reload(attempt Attempt) error
	Stop() error

	// CanGoBack and CanGoForward report the engine's current history
	// capabilities. They must be cheap and non-blocking.
	CanGoBack() bool
	CanGoForward() bool

	Zoom() float64
	SetZoom(level float64) error

	// AttachRules hands a compiled content-blocking rule set to the engine
	// configuration of this context.
	AttachRules(rules *contentblock.RuleSet) error

	// Listen subscribes fn to this handle's events.
	Listen(fn Listener) (cancel func())

	Close() error
}

// Factory creates one Handle per browsing session.
type Factory interface {
	NewHandle() Handle
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func() Handle

// NewHandle calls f.
func (f FactoryFunc) NewHandle() Handle { return f() }
