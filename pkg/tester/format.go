package tester

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/future"
	"github.com/aretw0/stacktester/pkg/tuple"
)

// Resolve waits for a pending stack value. Store errors resolve to their
// encoding and absent results to ResultNotPresent.
func Resolve(ctx context.Context, v any) (any, error) {
	pending, ok := v.(future.Pending)
	if !ok {
		return v, nil
	}

	type result struct {
		v   any
		err error
	}
	ch := make(chan result, 1)
	pending.Subscribe(func(v any, err error) {
		ch <- result{v, err}
	})

	select {
	case r := <-ch:
		if r.err != nil {
			if se, ok := domain.AsStoreError(r.err); ok {
				return se.Bytes(), nil
			}
			return nil, r.err
		}
		switch x := r.v.(type) {
		case nil, future.Void:
			return domain.ResultNotPresent, nil
		case []byte:
			if x == nil {
				return domain.ResultNotPresent, nil
			}
		}
		return r.v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FormatValue renders a resolved stack value.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case []byte:
		if x == nil {
			x = domain.ResultNotPresent
		}
		return "b'" + tuple.Printable(x) + "'"
	case string:
		return "'" + tuple.Printable([]byte(x)) + "'"
	case future.Void:
		return "b'" + tuple.Printable(domain.ResultNotPresent) + "'"
	}
	return fmt.Sprint(v)
}

// IsSentinel reports whether v is one of the marker values pushed by the tester.
func IsSentinel(v any) bool {
	b, ok := v.([]byte)
	return ok && (bytes.Equal(b, domain.ResultNotPresent) ||
		bytes.Equal(b, domain.WaitedForEmpty) ||
		bytes.Equal(b, GotReadVersion))
}

// IsEncodedError reports whether v is an encoded store error.
func IsEncodedError(v any) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	t, err := tuple.Unpack(b)
	if err != nil || len(t) != 2 {
		return false
	}
	tag, ok := t[0].([]byte)
	return ok && string(tag) == "ERROR"
}
