// Package session holds the ordered set of open browsing sessions (tabs), the
// current selection and the address bar buffer. It routes submitted input
// through the address classifier to the current session's navigation adapter
// and attaches the compiled content-blocking rule set to every engine handle.
//
// A Registry is not safe for concurrent use. It lives on the owner context:
// engine events and compilation results reach it through an owner.Poster.
package session

import (
	"github.com/germanamz/brim/pkg/engine"
	"github.com/germanamz/brim/pkg/navstate"
)

// DefaultTitle is the title of a session that has not reported one yet.
const DefaultTitle = "Home"

// Session is one tab: an engine handle, its navigation state and the last
// target committed from the address bar.
type Session struct {
	id     string
	title  string
	target string
	handle engine.Handle
	nav    *navstate.Adapter
}

// ID returns the session identifier. It never changes and is never reused.
func (s *Session) ID() string { return s.id }

// Title returns the latest page title reported by the engine.
func (s *Session) Title() string { return s.title }

// Target returns the last URL this session was asked to load, or "" for a
// fresh session.
func (s *Session) Target() string { return s.target }

// State returns the current navigation state.
func (s *Session) State() navstate.State { return s.nav.State() }

// Nav returns the navigation adapter driving this session.
func (s *Session) Nav() *navstate.Adapter { return s.nav }

// Handle returns the engine handle backing this session.
func (s *Session) Handle() engine.Handle { return s.handle }
