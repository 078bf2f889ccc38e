package session

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/germanamz/brim/pkg/address"
	"github.com/germanamz/brim/pkg/contentblock"
	"github.com/germanamz/brim/pkg/engine"
	"github.com/germanamz/brim/pkg/navstate"
	"github.com/germanamz/brim/pkg/owner"
)

// ChangeKind identifies what changed in a Registry.
type ChangeKind int

const (
	// ChangeTabs means sessions were added or removed.
	ChangeTabs ChangeKind = iota
	// ChangeSelection means the current session changed.
	ChangeSelection
	// ChangeAddressBar means the address bar text was replaced.
	ChangeAddressBar
	// ChangeNavigation means a session's navigation state changed.
	ChangeNavigation
	// ChangeTitle means a session's title changed.
	ChangeTitle
	// ChangeTarget means a session was asked to load a new target.
	ChangeTarget
	// ChangeNotice carries a user-facing message, such as rejected input.
	ChangeNotice
)

// Change is delivered to observers on the owner context.
type Change struct {
	Kind      ChangeKind
	SessionID string
	Notice    string
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithCompiler enables content blocking with c. Without a compiler no rules
// are attached.
func WithCompiler(c *contentblock.Compiler) Option {
	return func(r *Registry) { r.compiler = c }
}

// WithBlurFunc sets the hook used to ask the presentation layer to release
// focus from the address input after a load is committed.
func WithBlurFunc(fn func()) Option {
	return func(r *Registry) { r.blur = fn }
}

type observer struct {
	fn func(Change)
}

// Registry owns the ordered sessions and the current selection. All methods
// must be called on the owner context.
type Registry struct {
	factory  engine.Factory
	poster   owner.Poster
	log      *zap.Logger
	compiler *contentblock.Compiler
	blur     func()

	sessions       []*Session
	current        *Session
	addressBarText string

	rulesRequested bool
	rules          *contentblock.RuleSet

	observers []*observer
	closed    bool
}

// New creates an empty Registry. Engine handles come from factory and every
// asynchronous result is marshalled through poster.
func New(factory engine.Factory, poster owner.Poster, opts ...Option) *Registry {
	r := &Registry{
		factory: factory,
		poster:  poster,
		log:     zap.NewNop(),
		blur:    func() {},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// AddTab appends a fresh session, selects it and clears the address bar. The
// first call starts rule compilation; a rule set that is already compiled is
// attached before the session is returned.
func (r *Registry) AddTab() *Session {
	r.requestRules()

	h := r.factory.NewHandle()
	s := &Session{
		id:     uuid.NewString(),
		title:  DefaultTitle,
		handle: h,
	}
	if r.rules != nil {
		r.attach(s)
	}

	s.nav = navstate.NewAdapter(h, r.poster,
		navstate.WithLogger(r.log.Named("navstate").With(zap.String("session", s.id))),
		navstate.WithTitleFunc(func(title string) { s.title = title }),
		navstate.WithChangeFunc(func(k navstate.ChangeKind) {
			if k == navstate.ChangeTitle {
				r.notify(Change{Kind: ChangeTitle, SessionID: s.id})
				return
			}
			r.notify(Change{Kind: ChangeNavigation, SessionID: s.id})
		}),
	)

	r.sessions = append(r.sessions, s)
	r.current = s
	r.log.Debug("tab added", zap.String("session", s.id), zap.Int("tabs", len(r.sessions)))
	r.notify(Change{Kind: ChangeTabs, SessionID: s.id})

	r.setAddressBar("")
	r.notify(Change{Kind: ChangeSelection, SessionID: s.id})

	return s
}

// CloseTab removes the session with id and closes its engine handle. When it
// was current, the last remaining session becomes current and the address bar
// follows it. Unknown ids are ignored.
func (r *Registry) CloseTab(id string) {
	i := r.IndexOf(id)
	if i < 0 {
		return
	}

	s := r.sessions[i]
	r.sessions = slices.Delete(r.sessions, i, i+1)
	r.closeSession(s)

	wasCurrent := r.current == s
	text := ""
	if wasCurrent {
		r.current = nil
		if n := len(r.sessions); n > 0 {
			r.current = r.sessions[n-1]
			text = r.current.target
		}
	}

	// Observers only ever see a current session that is still listed.
	r.log.Debug("tab closed", zap.String("session", id), zap.Int("tabs", len(r.sessions)))
	r.notify(Change{Kind: ChangeTabs, SessionID: id})
	if !wasCurrent {
		return
	}

	r.setAddressBar(text)
	r.notify(Change{Kind: ChangeSelection, SessionID: r.CurrentID()})
}

// SwitchToTab selects the session with id and loads its target into the
// address bar. Unknown ids are ignored.
func (r *Registry) SwitchToTab(id string) {
	if s := r.Get(id); s != nil {
		r.selectSession(s)
	}
}

// SwitchToIndex selects the session at zero-based position n. Out of range
// positions are ignored.
func (r *Registry) SwitchToIndex(n int) {
	if n < 0 || n >= len(r.sessions) {
		return
	}
	r.SwitchToTab(r.sessions[n].id)
}

// NextTab selects the session after the current one, wrapping around.
func (r *Registry) NextTab() { r.step(1) }

// PreviousTab selects the session before the current one, wrapping around.
func (r *Registry) PreviousTab() { r.step(-1) }

func (r *Registry) step(delta int) {
	n := len(r.sessions)
	if n < 2 || r.current == nil {
		return
	}

	i := r.IndexOf(r.current.id)
	if i < 0 {
		return
	}
	r.SwitchToTab(r.sessions[(i+delta+n)%n].id)
}

func (r *Registry) selectSession(s *Session) {
	r.current = s
	r.setAddressBar(s.target)
	r.notify(Change{Kind: ChangeSelection, SessionID: s.id})
}

// LoadCurrent commits the address bar text to the current session: the text
// is trimmed, classified as a URL or a search, and handed to the navigation
// adapter. Empty input does nothing. Input that does not resolve to an
// absolute URL with a host is rejected with a ChangeNotice.
func (r *Registry) LoadCurrent() {
	s := r.current
	if s == nil {
		return
	}

	text := strings.TrimSpace(r.addressBarText)
	if text == "" {
		return
	}

	target := address.Classify(text)
	if err := address.Validate(target); err != nil {
		r.log.Info("rejected address input", zap.String("input", text), zap.Error(err))
		r.notify(Change{Kind: ChangeNotice, SessionID: s.id, Notice: "Cannot open " + text})
		return
	}

	s.target = target
	r.notify(Change{Kind: ChangeTarget, SessionID: s.id})

	attempt := s.nav.Navigate(target)
	r.log.Debug("navigating", zap.String("session", s.id), zap.String("target", target), zap.Uint64("attempt", uint64(attempt)))

	r.blur()
}

// SetAddressBarText replaces the address bar buffer without navigating.
func (r *Registry) SetAddressBarText(text string) { r.setAddressBar(text) }

// AddressBarText returns the address bar buffer.
func (r *Registry) AddressBarText() string { return r.addressBarText }

func (r *Registry) setAddressBar(text string) {
	if r.addressBarText == text {
		return
	}
	r.addressBarText = text
	r.notify(Change{Kind: ChangeAddressBar, SessionID: r.CurrentID()})
}

// Current returns the selected session, or nil when there are none.
func (r *Registry) Current() *Session { return r.current }

// CurrentID returns the selected session id, or "".
func (r *Registry) CurrentID() string {
	if r.current == nil {
		return ""
	}
	return r.current.id
}

// Sessions returns the sessions in display order. The slice is a copy.
func (r *Registry) Sessions() []*Session { return slices.Clone(r.sessions) }

// Len returns the number of open sessions.
func (r *Registry) Len() int { return len(r.sessions) }

// Get returns the session with id, or nil.
func (r *Registry) Get(id string) *Session {
	if i := r.IndexOf(id); i >= 0 {
		return r.sessions[i]
	}
	return nil
}

// IndexOf returns the display position of the session with id, or -1.
func (r *Registry) IndexOf(id string) int {
	return slices.IndexFunc(r.sessions, func(s *Session) bool { return s.id == id })
}

// Rules returns the attached content-blocking rule set, or nil while
// compilation is pending, failed or disabled.
func (r *Registry) Rules() *contentblock.RuleSet { return r.rules }

// Observe registers fn for every subsequent change. The returned function
// removes it.
func (r *Registry) Observe(fn func(Change)) (cancel func()) {
	o := &observer{fn: fn}
	r.observers = append(r.observers, o)
	return func() {
		r.observers = slices.DeleteFunc(r.observers, func(x *observer) bool { return x == o })
	}
}

func (r *Registry) notify(c Change) {
	for _, o := range slices.Clone(r.observers) {
		o.fn(c)
	}
}

// Close closes every session. Results still queued on the owner are ignored.
func (r *Registry) Close() {
	if r.closed {
		return
	}
	r.closed = true

	for _, s := range r.sessions {
		r.closeSession(s)
	}
	r.sessions = nil
	r.current = nil
	r.observers = nil
}

func (r *Registry) closeSession(s *Session) {
	s.nav.Close()
	if err := s.handle.Close(); err != nil {
		r.log.Warn("close engine handle", zap.String("session", s.id), zap.Error(err))
	}
}

func (r *Registry) requestRules() {
	if r.compiler == nil || r.rulesRequested {
		return
	}
	r.rulesRequested = true

	r.compiler.Start()
	r.compiler.OnReady(func(set *contentblock.RuleSet, err error) {
		r.poster.Post(func() { r.rulesReady(set, err) })
	})
}

func (r *Registry) rulesReady(set *contentblock.RuleSet, err error) {
	if r.closed {
		return
	}
	if err != nil {
		// The compiler already logged the cause. Navigation stays unblocked.
		r.log.Warn("content blocking disabled", zap.Error(err))
		return
	}

	r.rules = set
	for _, s := range r.sessions {
		r.attach(s)
	}
}

func (r *Registry) attach(s *Session) {
	if err := s.handle.AttachRules(r.rules); err != nil {
		r.log.Warn("attach content rules", zap.String("session", s.id), zap.Error(err))
	}
}
