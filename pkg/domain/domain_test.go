package domain_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/tuple"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreError_Bytes(t *testing.T) {
	err := domain.NewStoreError(domain.CodeNotCommitted)

	decoded, uerr := tuple.Unpack(err.Bytes())
	require.NoError(t, uerr)
	assert.Equal(t, tuple.Tuple{[]byte("ERROR"), []byte("1020")}, decoded)
	assert.Contains(t, err.Error(), "1020")
}

func TestStoreError_RootThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("commit: %w", fmt.Errorf("layer: %w", domain.NewStoreError(domain.CodeTransactionTooOld)))

	se, ok := domain.AsStoreError(wrapped)
	require.True(t, ok)
	assert.Equal(t, domain.CodeTransactionTooOld, se.Code)
	assert.True(t, se.IsRetryable())

	_, ok = domain.AsStoreError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestStoreError_Retryable(t *testing.T) {
	assert.False(t, domain.NewStoreError(domain.CodeTransactionCancelled).IsRetryable())
	assert.Equal(t, "Unknown error", domain.NewStoreError(4242).Description)
}

func TestStreamingModeFromCode(t *testing.T) {
	for code := -2; code <= 4; code++ {
		m, err := domain.StreamingModeFromCode(code)
		require.NoError(t, err)
		assert.Equal(t, code, m.Code())
	}

	_, err := domain.StreamingModeFromCode(99)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, "SERIAL", domain.StreamingModeSerial.String())
}

func TestSelectors(t *testing.T) {
	k := []byte("k")
	assert.Equal(t, domain.KeySelector{Key: k, OrEqual: false, Offset: 1}, domain.FirstGreaterOrEqual(k))
	assert.Equal(t, domain.KeySelector{Key: k, OrEqual: true, Offset: 1}, domain.FirstGreaterThan(k))
	assert.Equal(t, domain.KeySelector{Key: k, OrEqual: false, Offset: 0}, domain.LastLessThan(k))
	assert.Equal(t, domain.KeySelector{Key: k, OrEqual: true, Offset: 0}, domain.LastLessOrEqual(k))
}
