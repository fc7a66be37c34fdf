package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ErrInterrupted is reported when a signal stopped a command before it finished.
var ErrInterrupted = errors.New("interrupted")

// SignalContext is cancelled when one of its signals arrives and records which one.
type SignalContext struct {
	context.Context
	cancel context.CancelFunc

	mu  sync.Mutex
	sig os.Signal
}

// NewSignalContext watches signals, SIGINT and SIGTERM when none are given.
// The watch ends when the context is done.
func NewSignalContext(parent context.Context, signals ...os.Signal) *SignalContext {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, cancel: cancel}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			sc.mu.Lock()
			sc.sig = sig
			sc.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()
	return sc
}

// Cancel stops watching and cancels the context.
func (sc *SignalContext) Cancel() {
	sc.cancel()
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sig
}

// Interrupted returns err unchanged unless a signal arrived, in which case the
// result wraps ErrInterrupted and names the signal. Output printed after an
// interruption is partial.
func (sc *SignalContext) Interrupted(err error) error {
	sig := sc.Signal()
	if sig == nil {
		return err
	}
	return errors.Join(fmt.Errorf("%w by %v", ErrInterrupted, sig), err)
}
