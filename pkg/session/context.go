package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/stacktester/internal/logging"
	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/observability"
	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/aretw0/stacktester/pkg/registry"
	"github.com/aretw0/stacktester/pkg/stack"
	"github.com/aretw0/stacktester/pkg/tuple"
)

// ErrPanic wraps a panic recovered from an instruction stream.
var ErrPanic = errors.New("instruction stream panicked")

// Status is the lifecycle stage of a Context.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusRunning     Status = "running"
	StatusDraining    Status = "draining"
	StatusTerminated  Status = "terminated"
)

// Executor consumes the instruction stream of a session.
type Executor interface {
	Execute(ctx context.Context, c *Context) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, c *Context) error

func (f ExecutorFunc) Execute(ctx context.Context, c *Context) error {
	return f(ctx, c)
}

// ExecutorFactory creates the Executor of a session bound to prefix.
type ExecutorFactory func(prefix []byte) Executor

// Option configures a Context. Options are inherited by child sessions.
type Option func(*Context)

// WithRegistry sets the transaction registry. Defaults to registry.Default.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Context) {
		c.registry = r
	}
}

// WithLogger configures a logger for the Context.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// WithMetrics records session activity in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Context) {
		c.metrics = m
	}
}

// Context is one independent instruction-execution unit.
type Context struct {
	db       ports.Database
	registry *registry.Registry
	executor Executor
	factory  ExecutorFactory
	logger   *slog.Logger
	metrics  *observability.Metrics
	opts     []Option

	stack  *stack.Stack
	prefix []byte
	label  string

	// InstructionIndex is the index of the instruction being executed.
	InstructionIndex int

	// NextKey and EndKey bound the part of the instruction range not yet consumed.
	NextKey domain.KeySelector
	EndKey  domain.KeySelector

	// LastVersion is the last read version observed by the instruction stream.
	LastVersion int64

	mu     sync.RWMutex
	trName string
	status Status

	childMu  sync.Mutex
	children []<-chan struct{}
}

// New creates a session bound to prefix and registers a fresh transaction under its name.
func New(db ports.Database, prefix []byte, factory ExecutorFactory, opts ...Option) (*Context, error) {
	begin, end := tuple.Tuple{prefix}.Range()
	c := &Context{
		db:       db,
		registry: registry.Default,
		factory:  factory,
		logger:   logging.NewNop(),
		opts:     opts,
		stack:    stack.New(),
		prefix:   append([]byte{}, prefix...),
		label:    tuple.Printable(prefix),
		trName:   tuple.Printable(prefix),
		NextKey:  domain.FirstGreaterOrEqual(begin),
		EndKey:   domain.FirstGreaterOrEqual(end),
		status:   StatusInitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.executor = factory(c.prefix)

	if _, err := c.NewTransaction(); err != nil {
		return nil, fmt.Errorf("failed to register transaction for session %s: %w", c.label, err)
	}
	return c, nil
}

// Run executes the instruction stream and then waits for every child session.
// Failures of the stream, including panics, are logged and never propagated.
func (c *Context) Run(ctx context.Context) {
	c.setStatus(StatusRunning)
	c.metrics.SessionStarted()
	c.logger.Debug("session started", "session", c.label)

	if err := c.execute(ctx); err != nil {
		c.metrics.SessionFailed()
		c.logger.Error("session failed",
			"session", c.label,
			"instruction", c.InstructionIndex,
			"err", err,
		)
	}

	c.setStatus(StatusDraining)
	c.drain()
	c.setStatus(StatusTerminated)
	c.metrics.SessionFinished()
	c.logger.Debug("session terminated", "session", c.label)
}

func (c *Context) execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return c.executor.Execute(ctx, c)
}

// drain joins children in spawn order until none is left.
func (c *Context) drain() {
	for {
		c.childMu.Lock()
		if len(c.children) == 0 {
			c.childMu.Unlock()
			return
		}
		done := c.children[0]
		c.childMu.Unlock()

		<-done

		c.childMu.Lock()
		c.children = c.children[1:]
		c.childMu.Unlock()
	}
}

// AddContext starts a child session bound to prefix on its own goroutine.
// The child inherits the database, executor factory and options of c.
func (c *Context) AddContext(ctx context.Context, prefix []byte) error {
	child, err := New(c.db, prefix, c.factory, c.opts...)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	c.childMu.Lock()
	c.children = append(c.children, done)
	c.childMu.Unlock()

	go func() {
		defer close(done)
		child.Run(ctx)
	}()
	c.logger.Debug("child session started", "session", c.label, "child", child.label)
	return nil
}

// Children returns the number of child sessions not yet joined.
func (c *Context) Children() int {
	c.childMu.Lock()
	defer c.childMu.Unlock()
	return len(c.children)
}

func (c *Context) setStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

// Status returns the lifecycle stage.
func (c *Context) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Name returns the current session name, the registry key of the active transaction.
func (c *Context) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trName
}

// Label returns the printable form of the prefix the session was created with.
func (c *Context) Label() string {
	return c.label
}

func (c *Context) Stack() *stack.Stack {
	return c.stack
}

func (c *Context) Database() ports.Database {
	return c.db
}

func (c *Context) Logger() *slog.Logger {
	return c.logger
}

func (c *Context) Metrics() *observability.Metrics {
	return c.metrics
}

// Push pushes value tagged with the current instruction index.
func (c *Context) Push(value any) {
	c.stack.Push(c.InstructionIndex, value)
}

// StreamingModeFromCode looks up a streaming mode by its wire code.
func (c *Context) StreamingModeFromCode(code int) (domain.StreamingMode, error) {
	return domain.StreamingModeFromCode(code)
}
