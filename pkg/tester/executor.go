package tester

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/aretw0/stacktester/pkg/session"
)

var (
	// ErrMalformedInstruction is returned for instructions that are not (op[, arg]) tuples.
	ErrMalformedInstruction = errors.New("malformed instruction")

	// ErrUnknownOperation is returned for operations outside the instruction set.
	ErrUnknownOperation = errors.New("unknown operation")
)

const defaultBatchSize = 100

// Executor runs the instruction stream of a session.
type Executor struct {
	batchSize int
}

// Option configures an Executor.
type Option func(*Executor)

// WithBatchSize sets how many instructions are read per range request.
func WithBatchSize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Factory returns a session.ExecutorFactory sharing one Executor across sessions.
func Factory(opts ...Option) session.ExecutorFactory {
	e := New(opts...)
	return func([]byte) session.Executor {
		return e
	}
}

var _ session.Executor = (*Executor)(nil)

// Execute implements session.Executor.
// A store error raised by an instruction is pushed as its encoding;
// any other failure ends the stream.
func (e *Executor) Execute(ctx context.Context, c *session.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := e.nextBatch(ctx, c)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		for _, row := range batch {
			inst, err := Decode(row.Value)
			if err != nil {
				return fmt.Errorf("instruction %d: %w", c.InstructionIndex, err)
			}
			if err := e.step(ctx, c, inst); err != nil {
				return err
			}
			c.InstructionIndex++
		}
		c.NextKey = domain.FirstGreaterThan(batch[len(batch)-1].Key)
	}
}

func (e *Executor) step(ctx context.Context, c *session.Context, inst Instruction) error {
	c.Logger().Debug("executing instruction",
		"session", c.Label(),
		"instruction", c.InstructionIndex,
		"op", inst.Op,
	)

	err := execute(ctx, c, inst)
	if err == nil {
		return nil
	}
	if se, ok := domain.AsStoreError(err); ok {
		c.Metrics().StoreError(se.Code)
		c.Push(se.Bytes())
		return nil
	}
	return fmt.Errorf("instruction %d (%s): %w", c.InstructionIndex, inst.Op, err)
}

// nextBatch reads the next instructions in a dedicated transaction.
func (e *Executor) nextBatch(ctx context.Context, c *session.Context) ([]domain.KeyValue, error) {
	tr, err := c.Database().CreateTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tr.Cancel()

	rows, err := tr.GetRange(c.NextKey, c.EndKey, ports.RangeOptions{
		Limit: e.batchSize,
		Mode:  domain.StreamingModeWantAll,
	}).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read instructions: %w", err)
	}
	return rows, nil
}
