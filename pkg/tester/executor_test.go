package tester_test

import (
	"context"
	"testing"

	"github.com/aretw0/stacktester/internal/testutils"
	"github.com/aretw0/stacktester/pkg/adapters/memory"
	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/observability"
	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/aretw0/stacktester/pkg/registry"
	"github.com/aretw0/stacktester/pkg/session"
	"github.com/aretw0/stacktester/pkg/tester"
	"github.com/aretw0/stacktester/pkg/tuple"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seed   = testutils.SeedInstructions
	write  = testutils.Write
	run    = testutils.RunSession
	values = testutils.StackValues
)

func b(s string) []byte { return []byte(s) }

func TestExecute_StackOperations(t *testing.T) {
	db := memory.NewDatabase()
	seed(t, db, "root",
		tester.Push(int64(5)),
		tester.Push(int64(3)),
		tester.Op(tester.OpSub),
		tester.Push(b("ab")),
		tester.Push(b("cd")),
		tester.Op(tester.OpConcat),
		tester.Op(tester.OpDup),
		tester.Push("x"),
		tester.Op(tester.OpPop),
		tester.Push(int64(2)),
		tester.Op(tester.OpSwap),
	)

	c, _ := run(t, db, "root")

	assert.Equal(t, []any{b("cdab"), b("cdab"), int64(-2)}, values(c))
	assert.Equal(t, 11, c.InstructionIndex)
}

func TestExecute_EmptyStack(t *testing.T) {
	db := memory.NewDatabase()
	seed(t, db, "root", tester.Push("a"), tester.Push("b"), tester.Op(tester.OpEmptyStack))

	c, _ := run(t, db, "root")
	assert.Equal(t, 0, c.Stack().Len())
}

func TestExecute_SetCommitGet(t *testing.T) {
	db := memory.NewDatabase()
	seed(t, db, "root",
		tester.Push(b("v")),
		tester.Push(b("k")),
		tester.Op(tester.OpSet),
		tester.Op(tester.OpCommit),
		tester.Op(tester.OpWaitFuture),
		tester.Push(b("k")),
		tester.Op(tester.OpGet),
		tester.Push(b("missing")),
		tester.Op(tester.OpGet),
		tester.Op(tester.OpWaitFuture),
	)

	c, _ := run(t, db, "root")

	items := c.Stack().Items()
	require.Len(t, items, 3)
	assert.Equal(t, domain.ResultNotPresent, items[0].Value)
	assert.Equal(t, 4, items[0].Index, "WAIT_FUTURE pushes with its own index")

	params, err := c.PopParams(2).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{domain.ResultNotPresent, b("v")}, params)

	tr, err := db.CreateTransaction()
	require.NoError(t, err)
	v, err := tr.Get(b("k")).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, b("v"), v)
}

func TestExecute_StoreErrorsBecomeData(t *testing.T) {
	db := memory.NewDatabase()
	illegal := []byte{0xff, 'k'}
	seed(t, db, "root",
		tester.Push(b("v")),
		tester.Push(illegal),
		tester.Op(tester.OpSet),
		tester.Push(illegal),
		tester.Op(tester.OpGet),
		tester.Op(tester.OpWaitFuture),
		tester.Push("still running"),
	)

	c, _ := run(t, db, "root")

	outside := domain.NewStoreError(domain.CodeKeyOutsideLegalRange).Bytes()
	assert.Equal(t, []any{outside, outside, "still running"}, values(c))
}

func TestExecute_OnError(t *testing.T) {
	t.Run("retryable replaces the transaction", func(t *testing.T) {
		db := memory.NewDatabase()
		seed(t, db, "root",
			tester.Push(int64(domain.CodeNotCommitted)),
			tester.Op(tester.OpOnError),
			tester.Op(tester.OpWaitFuture),
		)
		reg := registry.NewRegistry()
		c, err := session.New(db, b("root"), tester.Factory(), session.WithRegistry(reg))
		require.NoError(t, err)
		before := c.CurrentTransaction()

		c.Run(context.Background())

		assert.Equal(t, []any{domain.ResultNotPresent}, values(c))
		assert.NotSame(t, before, c.CurrentTransaction())
	})

	t.Run("non-retryable is pushed as data", func(t *testing.T) {
		db := memory.NewDatabase()
		seed(t, db, "root",
			tester.Push(int64(domain.CodeInvertedRange)),
			tester.Op(tester.OpOnError),
			tester.Op(tester.OpWaitFuture),
		)
		c, _ := run(t, db, "root")
		assert.Equal(t, []any{domain.NewStoreError(domain.CodeInvertedRange).Bytes()}, values(c))
	})
}

func TestExecute_Conflict(t *testing.T) {
	db := memory.NewDatabase()
	write(t, db, "counter", "0")
	seed(t, db, "root",
		tester.Push(b("counter")),
		tester.Op(tester.OpGet),
		tester.Op(tester.OpWaitFuture),
		tester.Op(tester.OpPop),
		tester.Push(b("writer")),
		tester.Op(tester.OpStartThread),
		tester.Push(b("done")),
		tester.Op(tester.OpWaitEmpty),
		tester.Push(b("1")),
		tester.Push(b("counter")),
		tester.Op(tester.OpSet),
		tester.Op(tester.OpCommit),
		tester.Op(tester.OpWaitFuture),
	)
	write(t, db, "done", "pending")
	seed(t, db, "writer",
		tester.Push(b("2")),
		tester.Push(b("counter")),
		tester.Op(tester.OpSet),
		tester.Push(b("done")),
		tester.Op(tester.OpClear),
		tester.Op(tester.OpCommit),
		tester.Op(tester.OpWaitFuture),
	)

	c, _ := run(t, db, "root")

	assert.Equal(t, []any{
		domain.WaitedForEmpty,
		domain.NewStoreError(domain.CodeNotCommitted).Bytes(),
	}, values(c))
	assert.Equal(t, 0, c.Children())
}

func TestExecute_GetRange(t *testing.T) {
	db := memory.NewDatabase()
	write(t, db, "data/a", "1", "data/b", "2", "data/c", "3")
	seed(t, db, "root",
		tester.Push(int64(domain.StreamingModeWantAll.Code())),
		tester.Push(int64(1)),
		tester.Push(int64(2)),
		tester.Push([]byte("data/\xff")),
		tester.Push(b("data/")),
		tester.Op(tester.OpGetRange),
		tester.Op(tester.OpWaitFuture),
	)

	c, _ := run(t, db, "root")

	want := tuple.Pack(b("data/c"), b("3"), b("data/b"), b("2"))
	assert.Equal(t, []any{want}, values(c))
}

func TestExecute_GetRangeEmpty(t *testing.T) {
	db := memory.NewDatabase()
	write(t, db, "data/a", "1")
	seed(t, db, "root",
		tester.Push(int64(domain.StreamingModeWantAll.Code())),
		tester.Push(int64(0)),
		tester.Push(int64(0)),
		tester.Push(b("nothing/z")),
		tester.Push(b("nothing/a")),
		tester.Op(tester.OpGetRange),
		tester.Op(tester.OpWaitFuture),
	)

	c, _ := run(t, db, "root")

	got := values(c)
	require.Len(t, got, 1)
	packed, ok := got[0].([]byte)
	require.True(t, ok, "expected bytes, got %T", got[0])
	assert.NotNil(t, packed)
	assert.Empty(t, packed)
	assert.NotEqual(t, domain.ResultNotPresent, packed)
}

func TestExecute_GetRangeInvalidModeAborts(t *testing.T) {
	db := memory.NewDatabase()
	seed(t, db, "root",
		tester.Push(int64(99)),
		tester.Push(int64(0)),
		tester.Push(int64(0)),
		tester.Push(b("b")),
		tester.Push(b("a")),
		tester.Op(tester.OpGetRange),
		tester.Push("unreached"),
	)

	c, _ := run(t, db, "root")
	assert.Empty(t, values(c))
}

func TestExecute_ReadVersion(t *testing.T) {
	db := memory.NewDatabase()
	write(t, db, "a", "1")
	seed(t, db, "root", tester.Op(tester.OpGetReadVersion))

	c, _ := run(t, db, "root")

	assert.Equal(t, []any{tester.GotReadVersion}, values(c))
	assert.Equal(t, db.Version(), c.LastVersion)
}

func TestExecute_UseTransaction(t *testing.T) {
	db := memory.NewDatabase()
	seed(t, db, "root",
		tester.Push(b("shared")),
		tester.Op(tester.OpUseTransaction),
		tester.Op(tester.OpNewTransaction),
	)

	c, reg := run(t, db, "root")

	assert.Equal(t, "shared", c.Name())
	assert.ElementsMatch(t, []string{"root", "shared"}, reg.Names())
}

func TestExecute_CancelAndReset(t *testing.T) {
	db := memory.NewDatabase()
	seed(t, db, "root",
		tester.Op(tester.OpCancel),
		tester.Push(b("k")),
		tester.Op(tester.OpGet),
		tester.Op(tester.OpWaitFuture),
		tester.Op(tester.OpReset),
		tester.Push(b("k")),
		tester.Op(tester.OpGet),
		tester.Op(tester.OpWaitFuture),
	)

	c, _ := run(t, db, "root")

	assert.Equal(t, []any{
		domain.NewStoreError(domain.CodeTransactionCancelled).Bytes(),
		domain.ResultNotPresent,
	}, values(c))
}

func TestExecute_LogStack(t *testing.T) {
	db := memory.NewDatabase()
	seed(t, db, "root",
		tester.Push(b("a")),
		tester.Push(int64(7)),
		tester.Push(b("log/")),
		tester.Op(tester.OpLogStack),
	)

	c, _ := run(t, db, "root")
	assert.Equal(t, 0, c.Stack().Len())

	tr, err := db.CreateTransaction()
	require.NoError(t, err)
	rows, err := tr.GetRange(
		domain.FirstGreaterOrEqual(b("log/")),
		domain.FirstGreaterOrEqual([]byte("log/\xff")),
		ports.RangeOptions{},
	).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.KeyValue{
		{Key: append(b("log/"), tuple.Pack(int64(0), int64(0))...), Value: tuple.Pack(b("a"))},
		{Key: append(b("log/"), tuple.Pack(int64(1), int64(1))...), Value: tuple.Pack(int64(7))},
	}, rows)
}

func TestExecute_LogStackCancelsOnFailure(t *testing.T) {
	db := testutils.NewTrackingDB()
	seed(t, db, "root",
		tester.Push(b("a")),
		tester.Push([]byte("\xfflog/")),
		tester.Op(tester.OpLogStack),
	)

	c, _ := run(t, db, "root")

	assert.Equal(t, []any{domain.NewStoreError(domain.CodeKeyOutsideLegalRange).Bytes()}, values(c))
	created := db.Created()
	require.Greater(t, len(created), 2)
	assert.Same(t, created[1], c.CurrentTransaction())
	for i, tr := range created[2:] {
		assert.True(t, tr.Cancelled(), "transaction %d left open", i+2)
	}
}

func TestExecute_Batches(t *testing.T) {
	db := memory.NewDatabase()
	var insts []tester.Instruction
	for i := 0; i < 7; i++ {
		insts = append(insts, tester.Push(int64(i)))
	}
	seed(t, db, "root", insts...)

	c, _ := run(t, db, "root", tester.WithBatchSize(2))

	assert.Equal(t, 7, c.Stack().Len())
	assert.Equal(t, 7, c.InstructionIndex)
	top, err := c.Stack().Peek()
	require.NoError(t, err)
	assert.Equal(t, int64(6), top.Value)
	assert.Equal(t, 6, top.Index)
}

func TestExecute_UnknownOperationAborts(t *testing.T) {
	db := memory.NewDatabase()
	seed(t, db, "root",
		tester.Push("kept"),
		tester.Op("BOGUS"),
		tester.Push("unreached"),
	)
	m := observability.NewMetrics(prometheus.NewRegistry())
	c, err := session.New(db, b("root"), tester.Factory(),
		session.WithRegistry(registry.NewRegistry()),
		session.WithMetrics(m),
	)
	require.NoError(t, err)

	err = tester.New().Execute(context.Background(), c)
	assert.ErrorIs(t, err, tester.ErrUnknownOperation)
	assert.Equal(t, []any{"kept"}, values(c))

	// Only known ops become label values.
	assert.Equal(t, 1, testutil.CollectAndCount(m.Instructions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Instructions.WithLabelValues(tester.OpPush)))
}

func TestExecute_StopsOnCancelledContext(t *testing.T) {
	db := memory.NewDatabase()
	seed(t, db, "root", tester.Push("a"))
	c, err := session.New(db, b("root"), tester.Factory(), session.WithRegistry(registry.NewRegistry()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = tester.New().Execute(ctx, c)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Stack().Len())
}
