// Package app is the bubbletea frontend of brim. The model doubles as the
// browser presenter: the address bar focus and the notice line live here.
//
// bubbletea's Update goroutine is the owner context. Engine work queued on
// the owner loop is drained from Update when the bridge delivers a
// msgs.DrainMsg, and key presses are routed to the browser from Update too,
// so nothing outside this goroutine touches the session registry.
package app

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/germanamz/brim/cmd/brim/internal/msgs"
	"github.com/germanamz/brim/cmd/brim/internal/styles"
	"github.com/germanamz/brim/pkg/browser"
	"github.com/germanamz/brim/pkg/session"
)

// NoticeTTL is how long a notice stays on screen.
const NoticeTTL = 4 * time.Second

type appKeys struct {
	Quit   key.Binding
	Help   key.Binding
	Cancel key.Binding
}

var keys = appKeys{
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+q", "quit")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "leave address bar")),
}

// Model is the root bubbletea model.
type Model struct {
	log     *zap.Logger
	browser *browser.Browser

	input    textinput.Model
	progress progress.Model
	help     help.Model

	width  int
	height int

	notice    string
	noticeSeq int

	home      string
	homeWidth int

	pending   []tea.Cmd
	unobserve func()
	quitting  bool
}

var _ browser.Presenter = (*Model)(nil)

// New creates an unbound model. Pass it to browser.WithPresenter, then call
// Bind with the resulting browser before starting the program.
func New(log *zap.Logger) *Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "Search or enter address"

	return &Model{
		log:       log,
		input:     ti,
		progress:  progress.New(progress.WithSolidFill(string(styles.ColorAccent)), progress.WithoutPercentage()),
		help:      help.New(),
		unobserve: func() {},
	}
}

// Bind connects the model to b and mirrors the registry's address bar into
// the text input.
func (m *Model) Bind(b *browser.Browser) {
	m.browser = b
	m.unobserve = b.Registry().Observe(func(c session.Change) {
		if c.Kind != session.ChangeAddressBar {
			return
		}
		if v := b.Registry().AddressBarText(); v != m.input.Value() {
			m.input.SetValue(v)
			m.input.CursorEnd()
		}
	})
}

// Close detaches the model from the registry.
func (m *Model) Close() {
	m.unobserve()
}

// FocusAddressBar implements browser.Presenter.
func (m *Model) FocusAddressBar() {
	m.pending = append(m.pending, m.input.Focus())
	m.input.CursorEnd()
}

// BlurAddressBar implements browser.Presenter.
func (m *Model) BlurAddressBar() {
	m.input.Blur()
}

// AddressBarFocused implements browser.Presenter.
func (m *Model) AddressBarFocused() bool {
	return m.input.Focused()
}

// Notify implements browser.Presenter. The notice is cleared after NoticeTTL
// unless a newer one replaces it first.
func (m *Model) Notify(msg string) {
	m.noticeSeq++
	m.notice = msg
	seq := m.noticeSeq
	m.pending = append(m.pending, tea.Tick(NoticeTTL, func(time.Time) tea.Msg {
		return msgs.NoticeExpiredMsg{Seq: seq}
	}))
}

// Notice returns the notice on screen, if any.
func (m *Model) Notice() string { return m.notice }

func (m *Model) Init() tea.Cmd {
	m.browser.Start()
	return tea.Batch(append(m.flush(), textinput.Blink)...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case msgs.DrainMsg:
		m.browser.Loop().Drain()

	case msgs.NoticeExpiredMsg:
		if msg.Seq == m.noticeSeq {
			m.notice = ""
		}

	case tea.KeyMsg:
		cmd = m.handleKey(msg)

	default:
		if m.input.Focused() {
			m.input, cmd = m.input.Update(msg)
		}
	}

	return m, tea.Batch(append(m.flush(), cmd)...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, keys.Quit) {
		m.log.Debug("quit requested")
		m.quitting = true
		return tea.Quit
	}

	if m.browser.HandleKey(msg) {
		return nil
	}

	if !m.input.Focused() {
		if key.Matches(msg, keys.Help) {
			m.help.ShowAll = !m.help.ShowAll
		}
		return nil
	}

	reg := m.browser.Registry()
	if key.Matches(msg, keys.Cancel) {
		if cur := reg.Current(); cur != nil {
			reg.SetAddressBarText(cur.Target())
		}
		m.BlurAddressBar()
		return nil
	}

	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != prev {
		reg.SetAddressBarText(v)
	}
	return cmd
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width-addressChrome, 8)
	m.progress.Width = width
	m.help.Width = width
}

func (m *Model) flush() []tea.Cmd {
	cmds := m.pending
	m.pending = nil
	return cmds
}

// keyMap merges the browser shortcuts with the frontend's own keys for the
// help view.
type keyMap struct {
	m *Model
}

func (k keyMap) ShortHelp() []key.Binding {
	return append(k.m.browser.Router().ShortHelp(), keys.Help, keys.Quit)
}

func (k keyMap) FullHelp() [][]key.Binding {
	return append(k.m.browser.Router().FullHelp(), []key.Binding{keys.Cancel, keys.Help, keys.Quit})
}
