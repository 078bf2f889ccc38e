// Package navstate mirrors asynchronous engine navigation events onto one
// authoritative per-tab [State].
//
// Each navigation request takes a fresh attempt id from a per-tab counter and
// hands it to the engine. Start, progress, finish and failure events carrying
// any other attempt id are stale and dropped. Title changes are applied
// whenever they arrive. All mutation happens on the owner context: engine
// listeners only post work there.
package navstate

import "fmt"

// Zoom bounds and step, matching the page zoom controls of the shell.
const (
	DefaultZoom = 1.0
	MinZoom     = 0.25
	ZoomStep    = 0.1
)

// State is the observable navigation state of one tab.
//
// Progress is only meaningful while IsLoading is true. It is not reset when a
// load completes: the last reported value persists, as engines report it.
type State struct {
	IsLoading    bool
	Progress     float64
	CanGoBack    bool
	CanGoForward bool
	ZoomLevel    float64
}

// DefaultState is the state of a tab that has never navigated.
func DefaultState() State {
	return State{ZoomLevel: DefaultZoom}
}

// Phase is the position of a tab in the load cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseFinished
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseFinished:
		return "finished"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}
