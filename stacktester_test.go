package stacktester_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stacktester"
	"github.com/aretw0/stacktester/pkg/adapters/memory"
	"github.com/aretw0/stacktester/pkg/adapters/script"
	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/observability"
	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/aretw0/stacktester/pkg/registry"
)

const threads = `
root: main
threads:
  main:
    - PUSH: worker-1
    - START_THREAD
    - PUSH: worker-2
    - START_THREAD
    - PUSH: shared
    - USE_TRANSACTION
    - PUSH: v
    - PUSH: k
    - SET
    - COMMIT
    - WAIT_FUTURE
  worker-1:
    - PUSH: shared
    - USE_TRANSACTION
  worker-2:
    - PUSH: shared
    - USE_TRANSACTION
`

func TestTester_RunWaitsForThreads(t *testing.T) {
	s, err := script.Parse([]byte(threads))
	require.NoError(t, err)

	db := memory.NewDatabase()
	reg := registry.NewRegistry()
	promReg := prometheus.NewRegistry()
	m := observability.NewMetrics(promReg)
	tst := stacktester.New(db, stacktester.WithRegistry(reg), stacktester.WithMetrics(m), stacktester.WithBatchSize(3))

	ctx := context.Background()
	require.NoError(t, tst.Seed(ctx, s))
	root, err := tst.Run(ctx, []byte(s.Root))
	require.NoError(t, err)

	assert.Equal(t, 0, root.Children())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsFinished))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsFailed))
	assert.ElementsMatch(t, []string{"main", "worker-1", "worker-2", "shared"}, reg.Names())
	assert.Same(t, reg, tst.Registry())

	items := root.Stack().Items()
	require.Len(t, items, 1)
	assert.Equal(t, domain.ResultNotPresent, items[0].Value)

	tr, err := db.CreateTransaction()
	require.NoError(t, err)
	v, err := tr.Get([]byte("k")).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

type brokenDB struct{}

func (brokenDB) CreateTransaction() (ports.Transaction, error) {
	return nil, errors.New("store offline")
}

func (brokenDB) Name() string { return "broken" }

func TestTester_RunFailsWithoutTransaction(t *testing.T) {
	tst := stacktester.New(brokenDB{}, stacktester.WithRegistry(registry.NewRegistry()))
	_, err := tst.Run(context.Background(), []byte("main"))
	assert.ErrorContains(t, err, "store offline")
}
