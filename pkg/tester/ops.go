package tester

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/future"
	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/aretw0/stacktester/pkg/session"
	"github.com/aretw0/stacktester/pkg/tuple"
)

// GotReadVersion is pushed by GET_READ_VERSION.
var GotReadVersion = []byte("GOT_READ_VERSION")

const waitEmptyBackoff = 10 * time.Millisecond

type handler func(ctx context.Context, c *session.Context, inst Instruction) error

var handlers = map[string]handler{
	OpPush:           push,
	OpPop:            pop,
	OpDup:            dup,
	OpEmptyStack:     emptyStack,
	OpSwap:           swap,
	OpSub:            sub,
	OpConcat:         concat,
	OpLogStack:       logStack,
	OpNewTransaction: newTransaction,
	OpUseTransaction: useTransaction,
	OpOnError:        onError,
	OpGet:            get,
	OpSet:            set,
	OpClear:          clearKey,
	OpClearRange:     clearRange,
	OpGetRange:       getRange,
	OpGetReadVersion: getReadVersion,
	OpCommit:         commit,
	OpReset:          reset,
	OpCancel:         cancel,
	OpWaitFuture:     waitFuture,
	OpStartThread:    startThread,
	OpWaitEmpty:      waitEmpty,
}

func execute(ctx context.Context, c *session.Context, inst Instruction) error {
	h, ok := handlers[inst.Op]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, inst.Op)
	}
	c.Metrics().Instruction(inst.Op)
	return h(ctx, c, inst)
}

func params(ctx context.Context, c *session.Context, n int) ([]any, error) {
	return c.PopParams(n).Get(ctx)
}

func currentTransaction(c *session.Context) (ports.Transaction, error) {
	tr := c.CurrentTransaction()
	if tr == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoTransaction, c.Name())
	}
	return tr, nil
}

func push(_ context.Context, c *session.Context, inst Instruction) error {
	if !inst.HasArg {
		return fmt.Errorf("%w: PUSH needs an argument", ErrMalformedInstruction)
	}
	c.Push(inst.Arg)
	return nil
}

func pop(_ context.Context, c *session.Context, _ Instruction) error {
	_, err := c.Stack().Pop()
	return err
}

func dup(_ context.Context, c *session.Context, _ Instruction) error {
	return c.Stack().Dup()
}

func emptyStack(_ context.Context, c *session.Context, _ Instruction) error {
	c.Stack().Clear()
	return nil
}

func swap(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 1)
	if err != nil {
		return err
	}
	depth, err := asInt(p[0])
	if err != nil {
		return err
	}
	return c.Stack().Swap(int(depth))
}

func sub(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 2)
	if err != nil {
		return err
	}
	a, err := asInt(p[0])
	if err != nil {
		return err
	}
	b, err := asInt(p[1])
	if err != nil {
		return err
	}
	c.Push(a - b)
	return nil
}

func concat(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 2)
	if err != nil {
		return err
	}
	switch a := p[0].(type) {
	case string:
		b, ok := p[1].(string)
		if !ok {
			return fmt.Errorf("%w: cannot concatenate string and %T", domain.ErrInvalidArgument, p[1])
		}
		c.Push(a + b)
	case []byte:
		b, ok := p[1].([]byte)
		if !ok {
			return fmt.Errorf("%w: cannot concatenate bytes and %T", domain.ErrInvalidArgument, p[1])
		}
		c.Push(append(append([]byte{}, a...), b...))
	default:
		return fmt.Errorf("%w: cannot concatenate %T", domain.ErrInvalidArgument, p[0])
	}
	return nil
}

// logStack pops a prefix and then the whole stack, writing each value under
// prefix + (position, instruction index) with position 0 at the bottom.
func logStack(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 1)
	if err != nil {
		return err
	}
	prefix, err := asBytes(p[0])
	if err != nil {
		return err
	}

	items := c.Stack().Items()
	values, err := params(ctx, c, len(items))
	if err != nil {
		return err
	}

	tr, err := c.Database().CreateTransaction()
	if err != nil {
		return err
	}
	defer tr.Cancel()
	for i, v := range values {
		pos := len(items) - 1 - i
		key := append(append([]byte{}, prefix...), tuple.Pack(int64(pos), int64(items[pos].Index))...)
		value, err := packValue(v)
		if err != nil {
			return err
		}
		if err := tr.Set(key, value); err != nil {
			return err
		}
	}
	_, err = tr.Commit().Get(ctx)
	return err
}

func newTransaction(_ context.Context, c *session.Context, _ Instruction) error {
	_, err := c.NewTransaction()
	return err
}

func useTransaction(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 1)
	if err != nil {
		return err
	}
	name, err := asBytes(p[0])
	if err != nil {
		return err
	}
	return c.SwitchTransaction(name)
}

// onError pushes a future that completes once the transaction has been
// prepared for a retry and replaced by a fresh one.
func onError(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 1)
	if err != nil {
		return err
	}
	code, err := asInt(p[0])
	if err != nil {
		return err
	}
	tr, err := currentTransaction(c)
	if err != nil {
		return err
	}
	c.Push(future.Map(tr.OnError(domain.NewStoreError(int(code))), func(future.Void) (future.Void, error) {
		_, err := c.NewTransactionReplacing(tr)
		return future.Void{}, err
	}))
	return nil
}

func get(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 1)
	if err != nil {
		return err
	}
	key, err := asBytes(p[0])
	if err != nil {
		return err
	}
	tr, err := currentTransaction(c)
	if err != nil {
		return err
	}
	c.Push(tr.Get(key))
	return nil
}

func set(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 2)
	if err != nil {
		return err
	}
	key, err := asBytes(p[0])
	if err != nil {
		return err
	}
	value, err := asBytes(p[1])
	if err != nil {
		return err
	}
	tr, err := currentTransaction(c)
	if err != nil {
		return err
	}
	return tr.Set(key, value)
}

func clearKey(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 1)
	if err != nil {
		return err
	}
	key, err := asBytes(p[0])
	if err != nil {
		return err
	}
	tr, err := currentTransaction(c)
	if err != nil {
		return err
	}
	return tr.Clear(key)
}

func clearRange(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 2)
	if err != nil {
		return err
	}
	begin, err := asBytes(p[0])
	if err != nil {
		return err
	}
	end, err := asBytes(p[1])
	if err != nil {
		return err
	}
	tr, err := currentTransaction(c)
	if err != nil {
		return err
	}
	return tr.ClearRange(begin, end)
}

// getRange pops begin, end, limit, reverse and streaming mode and pushes a
// future of the rows packed as one flat tuple (k1, v1, k2, v2, ...).
func getRange(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 5)
	if err != nil {
		return err
	}
	begin, err := asBytes(p[0])
	if err != nil {
		return err
	}
	end, err := asBytes(p[1])
	if err != nil {
		return err
	}
	limit, err := asInt(p[2])
	if err != nil {
		return err
	}
	reverse, err := asInt(p[3])
	if err != nil {
		return err
	}
	code, err := asInt(p[4])
	if err != nil {
		return err
	}
	mode, err := c.StreamingModeFromCode(int(code))
	if err != nil {
		return err
	}
	tr, err := currentTransaction(c)
	if err != nil {
		return err
	}

	rows := tr.GetRange(domain.FirstGreaterOrEqual(begin), domain.FirstGreaterOrEqual(end), ports.RangeOptions{
		Limit:   int(limit),
		Reverse: reverse != 0,
		Mode:    mode,
	})
	c.Push(future.Map(rows, func(kvs []domain.KeyValue) ([]byte, error) {
		flat := make(tuple.Tuple, 0, 2*len(kvs))
		for _, kv := range kvs {
			flat = append(flat, kv.Key, kv.Value)
		}
		return flat.Pack(), nil
	}))
	return nil
}

func getReadVersion(ctx context.Context, c *session.Context, _ Instruction) error {
	tr, err := currentTransaction(c)
	if err != nil {
		return err
	}
	v, err := tr.GetReadVersion().Get(ctx)
	if err != nil {
		return err
	}
	c.LastVersion = v
	c.Push(GotReadVersion)
	return nil
}

func commit(_ context.Context, c *session.Context, _ Instruction) error {
	tr, err := currentTransaction(c)
	if err != nil {
		return err
	}
	c.Push(tr.Commit())
	return nil
}

func reset(_ context.Context, c *session.Context, _ Instruction) error {
	tr, err := currentTransaction(c)
	if err != nil {
		return err
	}
	tr.Reset()
	return nil
}

func cancel(_ context.Context, c *session.Context, _ Instruction) error {
	tr, err := currentTransaction(c)
	if err != nil {
		return err
	}
	tr.Cancel()
	return nil
}

func waitFuture(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 1)
	if err != nil {
		return err
	}
	c.Push(p[0])
	return nil
}

func startThread(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 1)
	if err != nil {
		return err
	}
	prefix, err := asBytes(p[0])
	if err != nil {
		return err
	}
	return c.AddContext(ctx, prefix)
}

// waitEmpty polls until no key starts with the popped prefix.
func waitEmpty(ctx context.Context, c *session.Context, _ Instruction) error {
	p, err := params(ctx, c, 1)
	if err != nil {
		return err
	}
	prefix, err := asBytes(p[0])
	if err != nil {
		return err
	}
	end := append(append([]byte{}, prefix...), 0xff)

	for {
		empty, err := rangeEmpty(ctx, c, prefix, end)
		if err != nil {
			return err
		}
		if empty {
			c.Push(domain.WaitedForEmpty)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitEmptyBackoff):
		}
	}
}

func rangeEmpty(ctx context.Context, c *session.Context, begin, end []byte) (bool, error) {
	tr, err := c.Database().CreateTransaction()
	if err != nil {
		return false, err
	}
	defer tr.Cancel()
	rows, err := tr.GetRange(domain.FirstGreaterOrEqual(begin), domain.FirstGreaterOrEqual(end), ports.RangeOptions{Limit: 1}).Get(ctx)
	if err != nil {
		return false, err
	}
	return len(rows) == 0, nil
}
