package stacktester

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/stacktester/internal/logging"
	"github.com/aretw0/stacktester/pkg/adapters/script"
	"github.com/aretw0/stacktester/pkg/observability"
	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/aretw0/stacktester/pkg/registry"
	"github.com/aretw0/stacktester/pkg/session"
	"github.com/aretw0/stacktester/pkg/tester"
)

// Version is the stacktester release. Overridden at build time with -ldflags.
var Version = "0.1.0-dev"

// Tester is the high-level entry point for running instruction streams.
type Tester struct {
	db           ports.Database
	registry     *registry.Registry
	logger       *slog.Logger
	metrics      *observability.Metrics
	executorOpts []tester.Option
}

// Option defines a functional option for configuring the Tester.
type Option func(*Tester)

// WithRegistry isolates the transactions of this Tester from registry.Default.
func WithRegistry(r *registry.Registry) Option {
	return func(t *Tester) {
		t.registry = r
	}
}

// WithLogger configures a logger for every session.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tester) {
		t.logger = logger
	}
}

// WithMetrics records session and instruction activity.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Tester) {
		t.metrics = m
	}
}

// WithBatchSize sets how many instructions a session reads per request.
func WithBatchSize(n int) Option {
	return func(t *Tester) {
		t.executorOpts = append(t.executorOpts, tester.WithBatchSize(n))
	}
}

// New creates a Tester running against db.
func New(db ports.Database, opts ...Option) *Tester {
	t := &Tester{
		db:       db,
		registry: registry.Default,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Registry returns the transaction registry shared by the sessions of t.
func (t *Tester) Registry() *registry.Registry {
	return t.registry
}

// Seed writes the instruction streams of s into the database.
func (t *Tester) Seed(ctx context.Context, s *script.Script) error {
	return script.Seed(ctx, t.db, s)
}

// Run executes the session bound to prefix and every session it starts.
// It returns once all of them have finished. Failures inside the streams
// are logged, not returned.
func (t *Tester) Run(ctx context.Context, prefix []byte) (*session.Context, error) {
	root, err := session.New(t.db, prefix, tester.Factory(t.executorOpts...),
		session.WithRegistry(t.registry),
		session.WithLogger(t.logger),
		session.WithMetrics(t.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	t.logger.Info("running session", "session", root.Label(), "store", t.db.Name())
	root.Run(ctx)
	return root, nil
}
