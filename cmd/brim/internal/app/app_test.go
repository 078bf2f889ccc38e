package app

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/germanamz/brim/cmd/brim/internal/msgs"
	"github.com/germanamz/brim/pkg/browser"
	"github.com/germanamz/brim/pkg/engine/enginetest"
)

type fixture struct {
	m       *Model
	b       *browser.Browser
	factory *enginetest.Factory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := browser.DefaultConfig()
	cfg.ContentBlocking.Enabled = false

	f := &fixture{factory: &enginetest.Factory{}}
	f.m = New(zap.NewNop())
	b, err := browser.New(context.Background(), cfg,
		browser.WithFactory(f.factory),
		browser.WithPresenter(f.m),
		browser.WithClipboard(func(string) error { return nil }),
	)
	require.NoError(t, err)
	f.b = b
	f.m.Bind(b)
	t.Cleanup(func() {
		f.m.Close()
		b.Close()
	})

	f.m.Init()
	f.send(tea.WindowSizeMsg{Width: 100, Height: 30})
	return f
}

func (f *fixture) send(msg tea.Msg) tea.Cmd {
	_, cmd := f.m.Update(msg)
	return cmd
}

func (f *fixture) typeText(s string) {
	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (f *fixture) current(t *testing.T) *enginetest.Handle {
	t.Helper()
	cur := f.b.Registry().Current()
	require.NotNil(t, cur)
	h, ok := cur.Handle().(*enginetest.Handle)
	require.True(t, ok)
	return h
}

func TestInit_OpensFocusedTab(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, 1, f.b.Registry().Len())
	assert.True(t, f.m.AddressBarFocused())
	assert.Contains(t, f.m.View(), "Home")
}

func TestTypingMirrorsIntoRegistry(t *testing.T) {
	f := newFixture(t)

	f.typeText("example.com")

	assert.Equal(t, "example.com", f.b.Registry().AddressBarText())
	assert.Equal(t, "example.com", f.m.input.Value())
}

func TestSubmitNavigatesAndBlurs(t *testing.T) {
	f := newFixture(t)

	f.typeText("example.com")
	f.send(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"https://example.com"}, f.current(t).Navigations())
	assert.False(t, f.m.AddressBarFocused())
	assert.Equal(t, "example.com", f.m.input.Value())
}

func TestEnterIgnoredWhenBlurred(t *testing.T) {
	f := newFixture(t)
	f.typeText("example.com")
	f.m.BlurAddressBar()

	f.send(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, f.current(t).Navigations())
}

func TestEscapeRestoresTarget(t *testing.T) {
	f := newFixture(t)
	f.typeText("example.com")
	f.send(tea.KeyMsg{Type: tea.KeyEnter})

	f.send(tea.KeyMsg{Type: tea.KeyCtrlL})
	require.True(t, f.m.AddressBarFocused())
	f.typeText("/half typed")

	f.send(tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, f.m.AddressBarFocused())
	assert.Equal(t, "https://example.com", f.m.input.Value())
}

func TestShortcutsReachBrowser(t *testing.T) {
	f := newFixture(t)
	reg := f.b.Registry()
	first := reg.Current()

	f.send(tea.KeyMsg{Type: tea.KeyCtrlT})
	require.Equal(t, 2, reg.Len())
	assert.NotSame(t, first, reg.Current())

	f.m.BlurAddressBar()
	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}, Alt: true})
	assert.Same(t, first, reg.Current())

	f.send(tea.KeyMsg{Type: tea.KeyCtrlW})
	assert.Equal(t, 1, reg.Len())
}

func TestDrainAppliesEngineEvents(t *testing.T) {
	f := newFixture(t)
	f.typeText("example.com")
	f.send(tea.KeyMsg{Type: tea.KeyEnter})

	cur := f.b.Registry().Current()
	h := f.current(t)
	attempt := cur.Nav().Attempt()

	h.Started(attempt)
	h.Progress(attempt, 0.4)
	assert.False(t, cur.State().IsLoading, "events wait for the owner")

	f.send(msgs.DrainMsg{})
	assert.True(t, cur.State().IsLoading)
	assert.Contains(t, f.m.View(), "Loading 40%")

	h.Title(attempt, "Example Domain")
	h.Finished(attempt)
	f.send(msgs.DrainMsg{})

	view := f.m.View()
	assert.Contains(t, view, "Example Domain")
	assert.Contains(t, view, "Loaded")
}

func TestFailureShown(t *testing.T) {
	f := newFixture(t)
	f.typeText("example.com")
	f.send(tea.KeyMsg{Type: tea.KeyEnter})

	cur := f.b.Registry().Current()
	f.current(t).Failed(cur.Nav().Attempt(), errors.New("net::ERR_NAME_NOT_RESOLVED"))
	f.send(msgs.DrainMsg{})

	assert.Contains(t, f.m.View(), "ERR_NAME_NOT_RESOLVED")
}

func TestNoticeExpiresBySequence(t *testing.T) {
	f := newFixture(t)

	f.m.Notify("first")
	f.m.Notify("second")
	assert.Equal(t, "second", f.m.Notice())

	f.send(msgs.NoticeExpiredMsg{Seq: 1})
	assert.Equal(t, "second", f.m.Notice())

	f.send(msgs.NoticeExpiredMsg{Seq: 2})
	assert.Empty(t, f.m.Notice())
}

func TestMalformedInputShowsNotice(t *testing.T) {
	f := newFixture(t)
	f.typeText("http://")
	f.send(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "Cannot open http://", f.m.Notice())
	assert.Empty(t, f.current(t).Navigations())
}

func TestHelpToggleOnlyWhenBlurred(t *testing.T) {
	f := newFixture(t)

	f.typeText("?")
	assert.False(t, f.m.help.ShowAll)
	assert.Equal(t, "?", f.m.input.Value())

	f.m.BlurAddressBar()
	f.typeText("?")
	assert.True(t, f.m.help.ShowAll)
}

func TestQuit(t *testing.T) {
	f := newFixture(t)

	cmd := f.send(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Empty(t, f.m.View())
}

func TestHomeMarkdownListsShortcuts(t *testing.T) {
	f := newFixture(t)

	md := homeMarkdown(keyMap{f.m})
	assert.Contains(t, md, "`ctrl+t`")
	assert.Contains(t, md, "go to tab")
	assert.Contains(t, md, "`ctrl+q`")
}
