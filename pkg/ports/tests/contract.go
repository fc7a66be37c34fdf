package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDatabaseContract runs a suite of tests to verify that a Database implementation
// adheres to the defined interface contract. db must start empty.
func RunDatabaseContract(t *testing.T, db ports.Database) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	newTr := func(t *testing.T) ports.Transaction {
		tr, err := db.CreateTransaction()
		require.NoError(t, err)
		return tr
	}
	commit := func(t *testing.T, tr ports.Transaction) {
		_, err := tr.Commit().Get(ctx)
		require.NoError(t, err)
	}
	requireCode := func(t *testing.T, err error, code int) {
		se, ok := domain.AsStoreError(err)
		require.True(t, ok, "expected store error %d, got %v", code, err)
		assert.Equal(t, code, se.Code)
	}

	t.Run("Set Commit Get", func(t *testing.T) {
		tr := newTr(t)
		require.NoError(t, tr.Set([]byte("a"), []byte("1")))
		commit(t, tr)

		v, err := newTr(t).Get([]byte("a")).Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), v)
	})

	t.Run("Get Absent", func(t *testing.T) {
		v, err := newTr(t).Get([]byte("absent")).Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("Read Your Writes", func(t *testing.T) {
		tr := newTr(t)
		require.NoError(t, tr.Set([]byte("ryw"), []byte("x")))
		v, err := tr.Get([]byte("ryw")).Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), v)

		require.NoError(t, tr.Clear([]byte("ryw")))
		v, err = tr.Get([]byte("ryw")).Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, v)
		tr.Cancel()
	})

	t.Run("Range Reads", func(t *testing.T) {
		tr := newTr(t)
		for _, k := range []string{"r/1", "r/2", "r/3", "r/4"} {
			require.NoError(t, tr.Set([]byte(k), []byte("v"+k)))
		}
		commit(t, tr)

		rows, err := newTr(t).GetRange(
			domain.FirstGreaterOrEqual([]byte("r/")),
			domain.FirstGreaterOrEqual([]byte("r0")),
			ports.RangeOptions{},
		).Get(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []byte("r/1"), rows[0].Key)

		rows, err = newTr(t).GetRange(
			domain.FirstGreaterThan([]byte("r/1")),
			domain.FirstGreaterOrEqual([]byte("r0")),
			ports.RangeOptions{Limit: 2, Reverse: true},
		).Get(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []byte("r/4"), rows[0].Key)
		assert.Equal(t, []byte("r/3"), rows[1].Key)

		rows, err = newTr(t).GetRange(
			domain.LastLessThan([]byte("r/3")),
			domain.FirstGreaterOrEqual([]byte("r/4")),
			ports.RangeOptions{},
		).Get(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []byte("r/2"), rows[0].Key)

		tr = newTr(t)
		require.NoError(t, tr.ClearRange([]byte("r/2"), []byte("r/4")))
		require.NoError(t, tr.Set([]byte("r/3"), []byte("again")))
		rows, err = tr.GetRange(
			domain.FirstGreaterOrEqual([]byte("r/")),
			domain.FirstGreaterOrEqual([]byte("r0")),
			ports.RangeOptions{},
		).Get(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []byte("again"), rows[1].Value)
		commit(t, tr)

		v, err := newTr(t).Get([]byte("r/2")).Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("Conflict", func(t *testing.T) {
		seed := newTr(t)
		require.NoError(t, seed.Set([]byte("c"), []byte("0")))
		commit(t, seed)

		tr1 := newTr(t)
		_, err := tr1.Get([]byte("c")).Get(ctx)
		require.NoError(t, err)

		tr2 := newTr(t)
		require.NoError(t, tr2.Set([]byte("c"), []byte("2")))
		commit(t, tr2)

		require.NoError(t, tr1.Set([]byte("c"), []byte("1")))
		_, err = tr1.Commit().Get(ctx)
		requireCode(t, err, domain.CodeNotCommitted)

		_, err = tr1.OnError(err).Get(ctx)
		require.NoError(t, err, "conflicts are retryable")

		v, err := tr1.Get([]byte("c")).Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), v)
	})

	t.Run("OnError Not Retryable", func(t *testing.T) {
		tr := newTr(t)
		_, err := tr.OnError(domain.NewStoreError(domain.CodeKeyOutsideLegalRange)).Get(ctx)
		requireCode(t, err, domain.CodeKeyOutsideLegalRange)
	})

	t.Run("Cancel", func(t *testing.T) {
		tr := newTr(t)
		tr.Cancel()
		_, err := tr.Get([]byte("a")).Get(ctx)
		requireCode(t, err, domain.CodeTransactionCancelled)
		requireCode(t, tr.Set([]byte("a"), []byte("b")), domain.CodeTransactionCancelled)
		_, err = tr.Commit().Get(ctx)
		requireCode(t, err, domain.CodeTransactionCancelled)
	})

	t.Run("Illegal Keys", func(t *testing.T) {
		tr := newTr(t)
		requireCode(t, tr.Set([]byte{0xff, 'x'}, []byte("v")), domain.CodeKeyOutsideLegalRange)
		requireCode(t, tr.ClearRange([]byte("b"), []byte("a")), domain.CodeInvertedRange)
		tr.Cancel()
	})

	t.Run("Read Version", func(t *testing.T) {
		tr := newTr(t)
		rv, err := tr.GetReadVersion().Get(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rv, int64(0))
		tr.Cancel()
	})
}
