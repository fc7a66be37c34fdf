// Package future provides a single-assignment asynchronous result.
//
// Continuations registered with Then run on their own goroutine once the
// result is set, so code that chains on a Future never runs on the goroutine
// that registered it.
package future

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyCompleted is returned when a Future is completed twice.
var ErrAlreadyCompleted = errors.New("future already completed")

// Void is the value type of futures that carry no result.
type Void = struct{}

// Pending is implemented by every Future regardless of its value type.
// It lets code that holds untyped values wait on them.
type Pending interface {
	// Subscribe registers fn to receive the result. fn runs on its own goroutine.
	Subscribe(fn func(value any, err error))
}

// Future is a value that becomes available later.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	value     T
	err       error
	callbacks []func(T, error)
}

// New creates an incomplete Future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a Future already completed with v.
func Resolved[T any](v T) *Future[T] {
	f := New[T]()
	_ = f.Complete(v)
	return f
}

// Failed returns a Future already completed with err.
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	_ = f.Fail(err)
	return f
}

// Go runs fn on a new goroutine and returns a Future of its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := New[T]()
	go func() {
		v, err := fn()
		if err != nil {
			_ = f.Fail(err)
			return
		}
		_ = f.Complete(v)
	}()
	return f
}

// Map returns a Future that completes with fn applied to the result of f.
// Failures of f are passed through without calling fn.
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := New[U]()
	f.Then(func(v T, err error) {
		if err != nil {
			_ = out.Fail(err)
			return
		}
		u, err := fn(v)
		if err != nil {
			_ = out.Fail(err)
			return
		}
		_ = out.Complete(u)
	})
	return out
}

// Complete sets the result of the Future.
func (f *Future[T]) Complete(v T) error {
	return f.set(v, nil)
}

// Fail sets the error of the Future.
func (f *Future[T]) Fail(err error) error {
	var zero T
	return f.set(zero, err)
}

func (f *Future[T]) set(v T, err error) error {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		return ErrAlreadyCompleted
	default:
	}
	f.value, f.err = v, err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		go cb(v, err)
	}
	return nil
}

// Then registers fn to run once the Future completes.
// If the Future is already complete, fn is scheduled immediately.
func (f *Future[T]) Then(fn func(T, error)) {
	f.mu.Lock()
	select {
	case <-f.done:
		v, err := f.value, f.err
		f.mu.Unlock()
		go fn(v, err)
		return
	default:
	}
	f.callbacks = append(f.callbacks, fn)
	f.mu.Unlock()
}

// Subscribe implements Pending.
func (f *Future[T]) Subscribe(fn func(any, error)) {
	f.Then(func(v T, err error) {
		fn(v, err)
	})
}

// Done is closed when the Future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the Future has completed.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get blocks until the Future completes or ctx is done.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
