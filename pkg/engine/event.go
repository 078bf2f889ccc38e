package engine

import (
	"sync"
	"time"
)

// EventKind identifies the type of engine event.
type EventKind string

const (
	EventNavigationStarted  EventKind = "navigation_started"
	EventNavigationFinished EventKind = "navigation_finished"
	EventNavigationFailed   EventKind = "navigation_failed"
	EventProgressChanged    EventKind = "progress_changed"
	EventTitleChanged       EventKind = "title_changed"
	EventConsoleMessage     EventKind = "console_message"
)

// Attempt identifies one navigation request on a handle. Attempts increase
// monotonically per handle; zero means no navigation has been requested yet.
type Attempt uint64

// ConsoleLevel is the severity of a page console message.
type ConsoleLevel int

const (
	ConsoleDebug ConsoleLevel = iota
	ConsoleLog
	ConsoleInfo
	ConsoleWarning
	ConsoleError
)

func (l ConsoleLevel) String() string {
	switch l {
	case ConsoleDebug:
		return "debug"
	case ConsoleLog:
		return "log"
	case ConsoleInfo:
		return "info"
	case ConsoleWarning:
		return "warning"
	case ConsoleError:
		return "error"
	default:
		return "unknown"
	}
}

// ConsoleMessage is a message written to the page console.
type ConsoleMessage struct {
	Level ConsoleLevel
	Text  string
}

// Event is an immutable notification of engine activity. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind      EventKind
	Attempt   Attempt
	Timestamp time.Time

	Progress float64        // EventProgressChanged
	Title    string         // EventTitleChanged
	Err      error          // EventNavigationFailed
	Console  ConsoleMessage // EventConsoleMessage
}

// Listener receives events. It is called on the publishing goroutine.
type Listener func(Event)

type subscription struct {
	fn Listener
}

// EventBus fans out events to all registered listeners. It is safe for
// concurrent use. Unlike a buffered channel it never drops events: a missed
// finish would leave a tab loading forever. Listeners must therefore return
// quickly.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*subscription]struct{}
}

// NewEventBus creates an EventBus ready for use.
func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[*subscription]struct{}),
	}
}

// Listen registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *EventBus) Listen(fn Listener) (cancel func()) {
	sub := &subscription{fn: fn}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
	}
}

// Len returns the number of registered listeners.
func (b *EventBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers e to every listener. A zero Timestamp is set to now.
func (b *EventBus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	fns := make([]Listener, 0, len(b.subs))
	for sub := range b.subs {
		fns = append(fns, sub.fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
