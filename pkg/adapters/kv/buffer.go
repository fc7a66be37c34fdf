// Package kv holds the pieces shared by the transactional store adapters:
// the write buffer that gives transactions read-your-writes semantics and
// key selector resolution over a sorted snapshot.
package kv

import (
	"bytes"
	"sort"

	"github.com/aretw0/stacktester/pkg/domain"
)

// OpKind is the type of a buffered mutation.
type OpKind int

const (
	OpSet OpKind = iota
	OpClear
	OpClearRange
)

// Op is a buffered mutation. End is only used by OpClearRange.
type Op struct {
	Kind  OpKind
	Key   []byte
	End   []byte
	Value []byte
}

// Buffer records the writes of a transaction in issue order.
type Buffer struct {
	ops []Op
}

func (b *Buffer) Set(key, value []byte) {
	b.ops = append(b.ops, Op{Kind: OpSet, Key: clone(key), Value: clone(value)})
}

func (b *Buffer) Clear(key []byte) {
	b.ops = append(b.ops, Op{Kind: OpClear, Key: clone(key)})
}

func (b *Buffer) ClearRange(begin, end []byte) {
	b.ops = append(b.ops, Op{Kind: OpClearRange, Key: clone(begin), End: clone(end)})
}

// Ops returns the buffered mutations in issue order.
func (b *Buffer) Ops() []Op {
	return b.ops
}

func (b *Buffer) Len() int {
	return len(b.ops)
}

func (b *Buffer) Reset() {
	b.ops = nil
}

// Lookup returns the value the buffer holds for key.
// ok is false when no buffered write touches key; value is nil when key was cleared.
func (b *Buffer) Lookup(key []byte) (value []byte, ok bool) {
	for i := len(b.ops) - 1; i >= 0; i-- {
		op := b.ops[i]
		switch op.Kind {
		case OpSet:
			if bytes.Equal(op.Key, key) {
				return op.Value, true
			}
		case OpClear:
			if bytes.Equal(op.Key, key) {
				return nil, true
			}
		case OpClearRange:
			if InRange(key, op.Key, op.End) {
				return nil, true
			}
		}
	}
	return nil, false
}

// Overlay applies the buffered writes to a sorted snapshot and returns the merged, sorted rows.
func (b *Buffer) Overlay(base []domain.KeyValue) []domain.KeyValue {
	if len(b.ops) == 0 {
		return base
	}
	merged := make(map[string][]byte, len(base))
	for _, kv := range base {
		merged[string(kv.Key)] = kv.Value
	}
	for _, op := range b.ops {
		switch op.Kind {
		case OpSet:
			merged[string(op.Key)] = op.Value
		case OpClear:
			delete(merged, string(op.Key))
		case OpClearRange:
			for k := range merged {
				if InRange([]byte(k), op.Key, op.End) {
					delete(merged, k)
				}
			}
		}
	}
	out := make([]domain.KeyValue, 0, len(merged))
	for k, v := range merged {
		out = append(out, domain.KeyValue{Key: []byte(k), Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Key, out[j].Key) < 0
	})
	return out
}

// InRange reports whether begin <= key < end.
func InRange(key, begin, end []byte) bool {
	return bytes.Compare(key, begin) >= 0 && bytes.Compare(key, end) < 0
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
