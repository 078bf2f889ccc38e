package contentblock

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrNotReady is reported by [Compiler.Result] while compilation is pending or
// has not been started.
var ErrNotReady = errors.New("contentblock: rule set not ready")

// CompileFunc compiles a table. It is swappable so tests can simulate slow or
// failing compilation.
type CompileFunc func(ctx context.Context, id string, table RuleTable) (*RuleSet, error)

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used to report compilation results.
func WithLogger(log *zap.Logger) Option {
	return func(c *Compiler) { c.log = log }
}

// WithIdentifier overrides the rule list name.
func WithIdentifier(id string) Option {
	return func(c *Compiler) { c.id = id }
}

// WithCompileFunc replaces the compile step.
func WithCompileFunc(fn CompileFunc) Option {
	return func(c *Compiler) { c.compile = fn }
}

// Compiler is a process-wide, init-once rule compilation service. It is
// constructed explicitly and injected where needed. Compilation runs on its
// own goroutine; results are delivered through OnReady callbacks which are
// invoked from that goroutine, so receivers must marshal onto their owner
// context before touching shared state.
type Compiler struct {
	ctx     context.Context
	table   RuleTable
	id      string
	log     *zap.Logger
	compile CompileFunc

	once sync.Once
	done chan struct{}

	mu      sync.Mutex
	set     *RuleSet
	err     error
	waiters []func(*RuleSet, error)
}

// NewCompiler creates a Compiler for table. Nothing is compiled until Start.
// Cancelling ctx abandons an in-flight compilation.
func NewCompiler(ctx context.Context, table RuleTable, opts ...Option) *Compiler {
	c := &Compiler{
		ctx:     ctx,
		table:   table.Clone(),
		id:      DefaultIdentifier,
		log:     zap.NewNop(),
		compile: Compile,
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start begins compilation. Only the first call has an effect; it never
// blocks.
func (c *Compiler) Start() {
	c.once.Do(func() {
		go c.run()
	})
}

func (c *Compiler) run() {
	set, err := c.compile(c.ctx, c.id, c.table)

	if err != nil {
		c.log.Error("content rule compilation failed; navigation continues unblocked",
			zap.String("identifier", c.id), zap.Error(err))
	} else {
		c.log.Info("content rules compiled",
			zap.String("identifier", c.id), zap.Int("rules", set.Len()))
	}

	c.mu.Lock()
	c.set, c.err = set, err
	waiters := c.waiters
	c.waiters = nil
	close(c.done)
	c.mu.Unlock()

	for _, fn := range waiters {
		fn(set, err)
	}
}

// Done is closed once compilation has finished, successfully or not.
func (c *Compiler) Done() <-chan struct{} { return c.done }

// Result returns the compiled set without blocking. While compilation is
// pending it returns ErrNotReady.
func (c *Compiler) Result() (*RuleSet, error) {
	select {
	case <-c.done:
	default:
		return nil, ErrNotReady
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set, c.err
}

// OnReady registers fn to receive the compilation result exactly once. If
// compilation already finished, fn is called immediately on the caller's
// goroutine; otherwise it is called on the compiler goroutine.
func (c *Compiler) OnReady(fn func(*RuleSet, error)) {
	c.mu.Lock()
	select {
	case <-c.done:
		set, err := c.set, c.err
		c.mu.Unlock()
		fn(set, err)
		return
	default:
	}
	c.waiters = append(c.waiters, fn)
	c.mu.Unlock()
}

// Wait blocks until compilation finishes or ctx is done. It starts
// compilation if needed. Intended for tooling; the browser core never waits.
func (c *Compiler) Wait(ctx context.Context) (*RuleSet, error) {
	c.Start()

	select {
	case <-c.done:
		return c.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
