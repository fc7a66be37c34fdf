package session

import (
	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/future"
)

// PopParams pops n values and resolves every pending one.
//
// Values are returned in pop order. A pending value that fails with a store
// error is replaced by the error's encoding and popping continues; any other
// failure fails the returned future and leaves the remaining values on the stack.
func (c *Context) PopParams(n int) *future.Future[[]any] {
	done := future.New[[]any]()
	c.popParams(n, make([]any, 0, n), done)
	return done
}

func (c *Context) popParams(n int, params []any, done *future.Future[[]any]) {
	for ; n > 0; n-- {
		item, err := c.stack.Pop()
		if err != nil {
			_ = done.Fail(err)
			return
		}
		pending, ok := item.Value.(future.Pending)
		if !ok {
			params = append(params, item.Value)
			continue
		}

		remaining := n - 1
		pending.Subscribe(func(v any, err error) {
			if err != nil {
				se, ok := domain.AsStoreError(err)
				if !ok {
					_ = done.Fail(err)
					return
				}
				c.metrics.StoreError(se.Code)
				params = append(params, se.Bytes())
			} else if absent(v) {
				params = append(params, domain.ResultNotPresent)
			} else {
				params = append(params, v)
			}
			c.popParams(remaining, params, done)
		})
		return
	}
	_ = done.Complete(params)
}

func absent(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []byte:
		return x == nil
	case future.Void:
		return true
	}
	return false
}
