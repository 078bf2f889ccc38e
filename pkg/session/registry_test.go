package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/germanamz/brim/pkg/contentblock"
	"github.com/germanamz/brim/pkg/engine/enginetest"
	"github.com/germanamz/brim/pkg/navstate"
	"github.com/germanamz/brim/pkg/owner"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRegistry(t *testing.T, opts ...Option) (*Registry, *enginetest.Factory) {
	t.Helper()
	f := &enginetest.Factory{}
	r := New(f, owner.Inline, opts...)
	t.Cleanup(r.Close)
	return r, f
}

func handleOf(t *testing.T, s *Session) *enginetest.Handle {
	t.Helper()
	h, ok := s.Handle().(*enginetest.Handle)
	require.True(t, ok)
	return h
}

func ids(r *Registry) []string {
	var out []string
	for _, s := range r.Sessions() {
		out = append(out, s.ID())
	}
	return out
}

func TestRegistry_Empty(t *testing.T) {
	r, _ := newRegistry(t)

	assert.Nil(t, r.Current())
	assert.Equal(t, "", r.CurrentID())
	assert.Zero(t, r.Len())

	assert.NotPanics(t, func() {
		r.NextTab()
		r.PreviousTab()
		r.SwitchToIndex(0)
		r.SwitchToTab("missing")
		r.CloseTab("missing")
		r.LoadCurrent()
	})
}

func TestRegistry_AddTab(t *testing.T) {
	r, f := newRegistry(t)
	r.SetAddressBarText("leftover")

	s := r.AddTab()

	require.NotNil(t, s)
	assert.Same(t, s, r.Current())
	assert.Equal(t, DefaultTitle, s.Title())
	assert.Empty(t, s.Target())
	assert.Empty(t, r.AddressBarText())
	assert.Equal(t, navstate.DefaultState(), s.State())
	assert.Len(t, f.Handles(), 1)

	_, err := uuid.Parse(s.ID())
	assert.NoError(t, err)
}

func TestRegistry_IDsUnique(t *testing.T) {
	r, _ := newRegistry(t)

	seen := map[string]bool{}
	for range 20 {
		id := r.AddTab().ID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestRegistry_CloseCurrentSelectsLast(t *testing.T) {
	r, _ := newRegistry(t)
	a := r.AddTab()
	b := r.AddTab()
	c := r.AddTab()

	r.CloseTab(c.ID())

	assert.Equal(t, []string{a.ID(), b.ID()}, ids(r))
	assert.Same(t, b, r.Current())
}

func TestRegistry_CloseCurrentInMiddleSelectsLast(t *testing.T) {
	r, _ := newRegistry(t)
	a := r.AddTab()
	b := r.AddTab()
	c := r.AddTab()
	r.SwitchToTab(b.ID())

	r.CloseTab(b.ID())

	assert.Equal(t, []string{a.ID(), c.ID()}, ids(r))
	assert.Same(t, c, r.Current())
}

func TestRegistry_CloseCurrentRestoresAddressBar(t *testing.T) {
	r, _ := newRegistry(t)
	a := r.AddTab()
	r.SetAddressBarText("example.com")
	r.LoadCurrent()
	b := r.AddTab()
	r.SetAddressBarText("typing something")

	r.CloseTab(b.ID())

	assert.Same(t, a, r.Current())
	assert.Equal(t, "https://example.com", r.AddressBarText())
}

func TestRegistry_CloseNonCurrentKeepsSelection(t *testing.T) {
	r, _ := newRegistry(t)
	a := r.AddTab()
	b := r.AddTab()
	r.SetAddressBarText("draft")

	r.CloseTab(a.ID())

	assert.Same(t, b, r.Current())
	assert.Equal(t, "draft", r.AddressBarText())
}

func TestRegistry_CloseOnlyTab(t *testing.T) {
	r, _ := newRegistry(t)
	s := r.AddTab()
	h := handleOf(t, s)
	r.SetAddressBarText("draft")

	r.CloseTab(s.ID())

	assert.Nil(t, r.Current())
	assert.Zero(t, r.Len())
	assert.Empty(t, r.AddressBarText())
	assert.True(t, h.Closed())
	assert.Zero(t, h.Listeners())
}

func TestRegistry_CloseUnknownIsNoop(t *testing.T) {
	r, _ := newRegistry(t)
	s := r.AddTab()

	r.CloseTab("nope")

	assert.Equal(t, 1, r.Len())
	assert.Same(t, s, r.Current())
}

func TestRegistry_SwitchToTab(t *testing.T) {
	r, _ := newRegistry(t)
	a := r.AddTab()
	r.SetAddressBarText("example.com")
	r.LoadCurrent()
	r.AddTab()

	r.SwitchToTab(a.ID())

	assert.Same(t, a, r.Current())
	assert.Equal(t, "https://example.com", r.AddressBarText())
}

func TestRegistry_NextPreviousCycle(t *testing.T) {
	r, _ := newRegistry(t)
	a := r.AddTab()
	b := r.AddTab()
	c := r.AddTab()

	r.NextTab()
	assert.Same(t, a, r.Current())
	r.NextTab()
	assert.Same(t, b, r.Current())

	r.PreviousTab()
	assert.Same(t, a, r.Current())
	r.PreviousTab()
	assert.Same(t, c, r.Current())
}

func TestRegistry_NextTabCountTimesIsIdentity(t *testing.T) {
	for n := 1; n <= 5; n++ {
		r, _ := newRegistry(t)
		for range n {
			r.AddTab()
		}
		r.SwitchToIndex(n / 2)
		start := r.Current()

		for range n {
			r.NextTab()
		}
		assert.Same(t, start, r.Current(), "n=%d", n)

		for range n {
			r.PreviousTab()
		}
		assert.Same(t, start, r.Current(), "n=%d", n)
	}
}

func TestRegistry_SwitchToIndex(t *testing.T) {
	r, _ := newRegistry(t)
	a := r.AddTab()
	b := r.AddTab()

	r.SwitchToIndex(0)
	assert.Same(t, a, r.Current())

	r.SwitchToIndex(1)
	assert.Same(t, b, r.Current())

	r.SwitchToIndex(2)
	r.SwitchToIndex(-1)
	assert.Same(t, b, r.Current())
}

func TestRegistry_LoadCurrent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "host", input: "example.com", want: "https://example.com"},
		{name: "trimmed", input: "  example.com \n", want: "https://example.com"},
		{name: "full url", input: "http://example.com/a?b=c", want: "http://example.com/a?b=c"},
		{name: "search", input: "weather today", want: "https://duckduckgo.com/?q=weather%20today"},
		{name: "single word", input: "golang", want: "https://duckduckgo.com/?q=golang"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blurred := 0
			r, _ := newRegistry(t, WithBlurFunc(func() { blurred++ }))
			s := r.AddTab()
			r.SetAddressBarText(tt.input)

			r.LoadCurrent()

			assert.Equal(t, tt.want, s.Target())
			assert.Equal(t, []string{tt.want}, handleOf(t, s).Navigations())
			assert.Equal(t, 1, blurred)
			assert.Equal(t, tt.input, r.AddressBarText(), "address bar keeps the typed text")
		})
	}
}

func TestRegistry_LoadCurrentEmptyIsNoop(t *testing.T) {
	blurred := false
	r, _ := newRegistry(t, WithBlurFunc(func() { blurred = true }))
	s := r.AddTab()
	r.SetAddressBarText(" \t ")

	r.LoadCurrent()

	assert.Empty(t, s.Target())
	assert.Empty(t, handleOf(t, s).Calls())
	assert.False(t, blurred)
}

func TestRegistry_LoadCurrentMalformedEmitsNotice(t *testing.T) {
	r, _ := newRegistry(t)
	s := r.AddTab()

	var notices []Change
	r.Observe(func(c Change) {
		if c.Kind == ChangeNotice {
			notices = append(notices, c)
		}
	})

	r.SetAddressBarText("http://")
	r.LoadCurrent()

	assert.Empty(t, s.Target())
	assert.Empty(t, handleOf(t, s).Navigations())
	require.Len(t, notices, 1)
	assert.Equal(t, s.ID(), notices[0].SessionID)
	assert.Contains(t, notices[0].Notice, "http://")
}

func TestRegistry_LoadCurrentOnlyTouchesCurrent(t *testing.T) {
	r, _ := newRegistry(t)
	a := r.AddTab()
	b := r.AddTab()

	r.SetAddressBarText("example.org")
	r.LoadCurrent()

	assert.Empty(t, a.Target())
	assert.Empty(t, handleOf(t, a).Navigations())
	assert.Equal(t, "https://example.org", b.Target())
}

func TestRegistry_EngineEventsUpdateSession(t *testing.T) {
	loop := owner.NewLoop()
	f := &enginetest.Factory{}
	r := New(f, loop)
	t.Cleanup(r.Close)

	var kinds []ChangeKind
	r.Observe(func(c Change) { kinds = append(kinds, c.Kind) })

	s := r.AddTab()
	r.SetAddressBarText("example.com")
	r.LoadCurrent()
	h := handleOf(t, s)
	at := s.Nav().Attempt()

	h.Started(at)
	h.Title(at, "Example Domain")
	h.Finished(at)

	// Engine events only apply once the owner drains.
	assert.Equal(t, DefaultTitle, s.Title())
	loop.Drain()

	assert.Equal(t, "Example Domain", s.Title())
	assert.False(t, s.State().IsLoading)
	assert.Contains(t, kinds, ChangeNavigation)
	assert.Contains(t, kinds, ChangeTitle)
}

func TestRegistry_Observe(t *testing.T) {
	r, _ := newRegistry(t)

	var got []Change
	cancel := r.Observe(func(c Change) { got = append(got, c) })

	s := r.AddTab()
	require.NotEmpty(t, got)
	assert.Equal(t, Change{Kind: ChangeTabs, SessionID: s.ID()}, got[0])
	assert.Equal(t, Change{Kind: ChangeSelection, SessionID: s.ID()}, got[len(got)-1])

	cancel()
	n := len(got)
	r.AddTab()
	assert.Len(t, got, n)
}

func TestRegistry_TabsChangeSeesConsistentSelection(t *testing.T) {
	r, _ := newRegistry(t)

	var checked int
	r.Observe(func(c Change) {
		if c.Kind != ChangeTabs {
			return
		}
		checked++
		cur := r.Current()
		if r.Len() == 0 {
			assert.Nil(t, cur)
			return
		}
		require.NotNil(t, cur)
		assert.Contains(t, r.Sessions(), cur)
		assert.GreaterOrEqual(t, r.IndexOf(cur.ID()), 0)
	})

	a := r.AddTab()
	assert.Same(t, a, r.Current())
	b := r.AddTab()
	r.CloseTab(b.ID())
	r.CloseTab(a.ID())

	assert.Equal(t, 4, checked)
}

func TestRegistry_CloseClosesAllHandles(t *testing.T) {
	f := &enginetest.Factory{}
	r := New(f, owner.Inline)
	r.AddTab()
	r.AddTab()

	r.Close()
	r.Close()

	for _, h := range f.Handles() {
		assert.True(t, h.Closed())
	}
	assert.Nil(t, r.Current())
}

func TestRegistry_RulesAttachedWhenAlreadyCompiled(t *testing.T) {
	c := contentblock.NewCompiler(context.Background(), contentblock.DefaultTable())
	_, err := c.Wait(context.Background())
	require.NoError(t, err)

	r, _ := newRegistry(t, WithCompiler(c))
	s := r.AddTab()

	set, n := handleOf(t, s).Rules()
	assert.Equal(t, 1, n)
	require.NotNil(t, set)
	assert.Equal(t, contentblock.DefaultIdentifier, set.Identifier())
	assert.Same(t, set, r.Rules())
}

func TestRegistry_RulesAttachedToOpenAndLaterSessions(t *testing.T) {
	release := make(chan struct{})
	c := contentblock.NewCompiler(context.Background(), contentblock.DefaultTable(),
		contentblock.WithCompileFunc(func(ctx context.Context, id string, table contentblock.RuleTable) (*contentblock.RuleSet, error) {
			<-release
			return contentblock.Compile(ctx, id, table)
		}))

	loop := owner.NewLoop()
	r := New(&enginetest.Factory{}, loop, WithCompiler(c))
	t.Cleanup(r.Close)

	a := r.AddTab()
	b := r.AddTab()

	// Navigation is never held back by pending compilation.
	r.SetAddressBarText("example.com")
	r.LoadCurrent()
	assert.Equal(t, []string{"https://example.com"}, handleOf(t, b).Navigations())
	_, n := handleOf(t, a).Rules()
	assert.Zero(t, n)

	close(release)
	require.Eventually(t, func() bool {
		loop.Drain()
		return r.Rules() != nil
	}, time.Second, 5*time.Millisecond)

	for _, s := range []*Session{a, b} {
		set, n := handleOf(t, s).Rules()
		assert.Equal(t, 1, n)
		assert.Same(t, r.Rules(), set)
	}

	later := r.AddTab()
	_, n = handleOf(t, later).Rules()
	assert.Equal(t, 1, n)
}

func TestRegistry_CompileFailureStillNavigates(t *testing.T) {
	c := contentblock.NewCompiler(context.Background(), contentblock.DefaultTable(),
		contentblock.WithCompileFunc(func(context.Context, string, contentblock.RuleTable) (*contentblock.RuleSet, error) {
			return nil, errors.New("bad rules")
		}))

	loop := owner.NewLoop()
	r := New(&enginetest.Factory{}, loop, WithCompiler(c))
	t.Cleanup(r.Close)

	s := r.AddTab()
	<-c.Done()
	require.Eventually(t, func() bool {
		loop.Drain()
		return loop.Pending() == 0
	}, time.Second, 5*time.Millisecond)

	r.SetAddressBarText("example.com")
	r.LoadCurrent()

	h := handleOf(t, s)
	assert.Equal(t, []string{"https://example.com"}, h.Navigations())
	_, n := h.Rules()
	assert.Zero(t, n)
	assert.Nil(t, r.Rules())
}

func TestRegistry_CompilerStartedOnce(t *testing.T) {
	calls := 0
	c := contentblock.NewCompiler(context.Background(), contentblock.DefaultTable(),
		contentblock.WithCompileFunc(func(ctx context.Context, id string, table contentblock.RuleTable) (*contentblock.RuleSet, error) {
			calls++
			return contentblock.Compile(ctx, id, table)
		}))

	loop := owner.NewLoop()
	r := New(&enginetest.Factory{}, loop, WithCompiler(c))
	t.Cleanup(r.Close)

	select {
	case <-c.Done():
		t.Fatal("compilation started before the first tab")
	default:
	}

	r.AddTab()
	r.AddTab()
	<-c.Done()
	r.AddTab()
	require.Eventually(t, func() bool {
		loop.Drain()
		return r.Rules() != nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, calls)
}

func TestRegistry_HandleErrorsAbsorbed(t *testing.T) {
	r, _ := newRegistry(t)
	s := r.AddTab()
	handleOf(t, s).FailRequests(errors.New("target crashed"))

	r.SetAddressBarText("example.com")
	assert.NotPanics(t, r.LoadCurrent)

	assert.Equal(t, navstate.PhaseFailed, s.Nav().Phase())
	assert.Equal(t, "https://example.com", s.Target())
}
