package owner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoop_DrainFIFO(t *testing.T) {
	l := NewLoop()

	var order []int
	for i := range 5 {
		l.Post(func() { order = append(order, i) })
	}
	assert.Equal(t, 5, l.Pending())

	ran := l.Drain()
	assert.Equal(t, 5, ran)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Zero(t, l.Pending())
}

func TestLoop_DrainIncludesNestedPosts(t *testing.T) {
	l := NewLoop()

	var order []string
	l.Post(func() {
		order = append(order, "outer")
		l.Post(func() { order = append(order, "inner") })
	})
	l.Post(func() { order = append(order, "second") })

	assert.Equal(t, 3, l.Drain())
	assert.Equal(t, []string{"outer", "second", "inner"}, order)
}

func TestLoop_PostNil(t *testing.T) {
	l := NewLoop()
	l.Post(nil)
	assert.Zero(t, l.Pending())
}

func TestLoop_PostNeverBlocks(t *testing.T) {
	l := NewLoop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 10_000 {
			l.Post(func() {})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Post blocked without a consumer")
	}
	assert.Equal(t, 10_000, l.Drain())
}

func TestLoop_RunSerializesConcurrentPosts(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	runDone := make(chan error, 1)
	go func() { runDone <- l.Run(ctx) }()

	// counter is only touched by the owner, so no lock is needed.
	counter := 0
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				l.Post(func() { counter++ })
			}
		}()
	}
	wg.Wait()

	var got int
	require.NoError(t, l.Do(context.Background(), func() { got = counter }))
	assert.Equal(t, 1000, got)

	cancel()
	assert.ErrorIs(t, <-runDone, context.Canceled)
}

func TestLoop_DoContextDone(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, l.Pending())
}

func TestLoop_Ready(t *testing.T) {
	l := NewLoop()
	l.Post(func() {})
	l.Post(func() {})

	select {
	case <-l.Ready():
	default:
		t.Fatal("expected ready signal")
	}

	select {
	case <-l.Ready():
		t.Fatal("ready signal should coalesce")
	default:
	}
}

func TestInline(t *testing.T) {
	ran := false
	Inline.Post(func() { ran = true })
	assert.True(t, ran)
}
