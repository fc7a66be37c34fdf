//go:build unix

package cli

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalContext_RecordsSignal(t *testing.T) {
	sc := NewSignalContext(context.Background(), syscall.SIGUSR1)
	defer sc.Cancel()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	select {
	case <-sc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by signal")
	}

	assert.Equal(t, syscall.SIGUSR1, sc.Signal())
	err := sc.Interrupted(nil)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorContains(t, err, "user defined signal 1")

	cause := errors.New("partial stack")
	assert.ErrorIs(t, sc.Interrupted(cause), cause)
}

func TestSignalContext_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sc := NewSignalContext(parent)
	defer sc.Cancel()

	cancel()
	<-sc.Done()

	assert.Nil(t, sc.Signal())
	cause := errors.New("boom")
	assert.Same(t, cause, sc.Interrupted(cause))
	assert.NoError(t, sc.Interrupted(nil))
}
