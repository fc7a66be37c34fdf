package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/aretw0/stacktester/pkg/registry"
	"github.com/aretw0/stacktester/pkg/session"
	"github.com/aretw0/stacktester/pkg/tester"
)

// RunTimeout bounds sessions started by RunSession.
const RunTimeout = 5 * time.Second

// SeedInstructions stores insts under (prefix, index) in one committed transaction.
// It fails the test immediately on error.
func SeedInstructions(t *testing.T, db ports.Database, prefix string, insts ...tester.Instruction) {
	t.Helper()
	tr, err := db.CreateTransaction()
	require.NoError(t, err)
	for i, inst := range insts {
		require.NoError(t, tr.Set(tester.Key([]byte(prefix), i), inst.Encode()))
	}
	_, err = tr.Commit().Get(context.Background())
	require.NoError(t, err, "Failed to seed instructions for %s", prefix)
}

// Write commits alternating key/value pairs.
func Write(t *testing.T, db ports.Database, kvs ...string) {
	t.Helper()
	require.Zero(t, len(kvs)%2, "Write needs key/value pairs")
	tr, err := db.CreateTransaction()
	require.NoError(t, err)
	for i := 0; i < len(kvs); i += 2 {
		require.NoError(t, tr.Set([]byte(kvs[i]), []byte(kvs[i+1])))
	}
	_, err = tr.Commit().Get(context.Background())
	require.NoError(t, err)
}

// RunSession runs the session bound to prefix with a private registry and
// returns it once it and its children have finished.
func RunSession(t *testing.T, db ports.Database, prefix string, opts ...tester.Option) (*session.Context, *registry.Registry) {
	t.Helper()
	reg := registry.NewRegistry()
	c, err := session.New(db, []byte(prefix), tester.Factory(opts...), session.WithRegistry(reg))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), RunTimeout)
	defer cancel()
	c.Run(ctx)
	return c, reg
}

// StackValues returns the values on the stack of c, bottom first.
func StackValues(c *session.Context) []any {
	var out []any
	for _, item := range c.Stack().Items() {
		out = append(out, item.Value)
	}
	return out
}
