package memory

import (
	"sync"

	"github.com/aretw0/stacktester/pkg/adapters/kv"
	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/future"
	"github.com/aretw0/stacktester/pkg/ports"
)

// Transaction implements ports.Transaction against a Database.
type Transaction struct {
	db     *Database
	status kv.Status

	mu          sync.Mutex
	readVersion int64
	hasVersion  bool
	buf         kv.Buffer
	reads       readSet
}

var _ ports.Transaction = (*Transaction)(nil)

// version must be called with t.mu held.
func (t *Transaction) version() int64 {
	if !t.hasVersion {
		t.readVersion = t.db.Version()
		t.hasVersion = true
	}
	return t.readVersion
}

// Get implements ports.Transaction.
func (t *Transaction) Get(key []byte) *future.Future[[]byte] {
	if err := t.status.Check(); err != nil {
		return future.Failed[[]byte](err)
	}
	if err := kv.ValidateKey(key); err != nil {
		return future.Failed[[]byte](err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.buf.Lookup(key); ok {
		return future.Resolved(v)
	}
	t.reads.keys = append(t.reads.keys, append([]byte{}, key...))
	return future.Resolved(t.db.valueAt(key, t.version()))
}

// GetRange implements ports.Transaction.
func (t *Transaction) GetRange(begin, end domain.KeySelector, opts ports.RangeOptions) *future.Future[[]domain.KeyValue] {
	if err := t.status.Check(); err != nil {
		return future.Failed[[]domain.KeyValue](err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	rows := t.buf.Overlay(t.db.snapshot(t.version()))
	res := kv.ReadRange(rows, begin, end, opts.Limit, opts.Reverse)
	t.reads.ranges = append(t.reads.ranges, [2][]byte{res.ConflictBegin, res.ConflictEnd})
	return future.Resolved(res.Rows)
}

// GetReadVersion implements ports.Transaction.
func (t *Transaction) GetReadVersion() *future.Future[int64] {
	if err := t.status.Check(); err != nil {
		return future.Failed[int64](err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return future.Resolved(t.version())
}

// Set implements ports.Transaction.
func (t *Transaction) Set(key, value []byte) error {
	if err := t.status.Check(); err != nil {
		return err
	}
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Set(key, value)
	return nil
}

// Clear implements ports.Transaction.
func (t *Transaction) Clear(key []byte) error {
	if err := t.status.Check(); err != nil {
		return err
	}
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Clear(key)
	return nil
}

// ClearRange implements ports.Transaction.
func (t *Transaction) ClearRange(begin, end []byte) error {
	if err := t.status.Check(); err != nil {
		return err
	}
	if err := kv.ValidateRange(begin, end); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.ClearRange(begin, end)
	return nil
}

// Commit implements ports.Transaction.
func (t *Transaction) Commit() *future.Future[future.Void] {
	if err := t.status.BeginCommit(); err != nil {
		return future.Failed[future.Void](err)
	}

	t.mu.Lock()
	rv := t.version()
	reads := t.reads
	ops := t.buf.Ops()
	t.mu.Unlock()

	return future.Go(func() (future.Void, error) {
		defer t.status.EndCommit()
		if _, err := t.db.commit(rv, reads, ops); err != nil {
			return future.Void{}, err
		}
		t.reset()
		return future.Void{}, nil
	})
}

// OnError implements ports.Transaction.
func (t *Transaction) OnError(err error) *future.Future[future.Void] {
	if cerr := t.status.Check(); cerr != nil {
		return future.Failed[future.Void](cerr)
	}
	se, ok := domain.AsStoreError(err)
	if !ok || !se.IsRetryable() {
		return future.Failed[future.Void](err)
	}
	t.Reset()
	return future.Resolved(future.Void{})
}

// Reset implements ports.Transaction.
func (t *Transaction) Reset() {
	t.status.Reset()
	t.reset()
}

func (t *Transaction) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Reset()
	t.reads = readSet{}
	t.hasVersion = false
}

// Cancel implements ports.Transaction.
func (t *Transaction) Cancel() {
	t.status.Cancel()
}
