package redis

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/aretw0/stacktester/pkg/adapters/kv"
	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/future"
	"github.com/aretw0/stacktester/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Transaction implements ports.Transaction against a Redis Database.
// Writes are buffered locally; reads go to Redis and record the versions they observed.
type Transaction struct {
	db     *Database
	status kv.Status

	mu           sync.Mutex
	buf          kv.Buffer
	pointReads   map[string]string // key -> per-key version observed
	rangeVersion string            // global version observed by the first range read
	readVersion  int64
	hasVersion   bool
}

var _ ports.Transaction = (*Transaction)(nil)

func (t *Transaction) observeVersion(v int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasVersion {
		t.readVersion = v
		t.hasVersion = true
	}
}

func parseVersion(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
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
	v, ok := t.buf.Lookup(key)
	t.mu.Unlock()
	if ok {
		return future.Resolved(v)
	}

	k := string(key)
	return future.Go(func() ([]byte, error) {
		ctx, cancel := t.db.context()
		defer cancel()

		var value, ver, version *backend.StringCmd
		_, err := t.db.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			value = pipe.HGet(ctx, t.db.dataKey(), k)
			ver = pipe.HGet(ctx, t.db.verKey(), k)
			version = pipe.Get(ctx, t.db.versionKey())
			return nil
		})
		if err != nil && !errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("failed to read from redis: %w", err)
		}
		if err := t.status.Check(); err != nil {
			return nil, err
		}

		observed := "0"
		if s, err := ver.Result(); err == nil {
			observed = s
		}
		t.mu.Lock()
		if _, seen := t.pointReads[k]; !seen {
			t.pointReads[k] = observed
		}
		t.mu.Unlock()
		t.observeVersion(parseVersion(version.Val()))

		s, err := value.Result()
		if errors.Is(err, backend.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get from redis: %w", err)
		}
		return []byte(s), nil
	})
}

// GetRange implements ports.Transaction.
func (t *Transaction) GetRange(begin, end domain.KeySelector, opts ports.RangeOptions) *future.Future[[]domain.KeyValue] {
	if err := t.status.Check(); err != nil {
		return future.Failed[[]domain.KeyValue](err)
	}

	t.mu.Lock()
	buf := t.buf
	t.mu.Unlock()

	return future.Go(func() ([]domain.KeyValue, error) {
		ctx, cancel := t.db.context()
		defer cancel()

		var all *backend.MapStringStringCmd
		var version *backend.StringCmd
		_, err := t.db.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			all = pipe.HGetAll(ctx, t.db.dataKey())
			version = pipe.Get(ctx, t.db.versionKey())
			return nil
		})
		if err != nil && !errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("failed to read range from redis: %w", err)
		}
		if err := t.status.Check(); err != nil {
			return nil, err
		}

		observed := version.Val()
		if observed == "" {
			observed = "0"
		}
		t.mu.Lock()
		if t.rangeVersion == "" {
			t.rangeVersion = observed
		}
		t.mu.Unlock()
		t.observeVersion(parseVersion(observed))

		rows := make([]domain.KeyValue, 0, len(all.Val()))
		for k, v := range all.Val() {
			rows = append(rows, domain.KeyValue{Key: []byte(k), Value: []byte(v)})
		}
		sort.Slice(rows, func(i, j int) bool {
			return bytes.Compare(rows[i].Key, rows[j].Key) < 0
		})
		return kv.ReadRange(buf.Overlay(rows), begin, end, opts.Limit, opts.Reverse).Rows, nil
	})
}

// GetReadVersion implements ports.Transaction.
func (t *Transaction) GetReadVersion() *future.Future[int64] {
	if err := t.status.Check(); err != nil {
		return future.Failed[int64](err)
	}
	t.mu.Lock()
	if t.hasVersion {
		v := t.readVersion
		t.mu.Unlock()
		return future.Resolved(v)
	}
	t.mu.Unlock()

	return future.Go(func() (int64, error) {
		ctx, cancel := t.db.context()
		defer cancel()
		s, err := t.db.client.Get(ctx, t.db.versionKey()).Result()
		if err != nil && !errors.Is(err, backend.Nil) {
			return 0, fmt.Errorf("failed to read version from redis: %w", err)
		}
		t.observeVersion(parseVersion(s))
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.readVersion, nil
	})
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
	args := commitArgs(t.pointReads, t.rangeVersion, t.buf.Ops())
	t.mu.Unlock()

	return future.Go(func() (future.Void, error) {
		defer t.status.EndCommit()
		ctx, cancel := t.db.context()
		defer cancel()

		keys := []string{t.db.dataKey(), t.db.indexKey(), t.db.verKey(), t.db.versionKey()}
		ok, err := commitScript.Run(ctx, t.db.client, keys, args...).Int64()
		if err != nil {
			return future.Void{}, fmt.Errorf("failed to commit to redis: %w", err)
		}
		if ok == 0 {
			return future.Void{}, domain.NewStoreError(domain.CodeNotCommitted)
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
	t.pointReads = make(map[string]string)
	t.rangeVersion = ""
	t.hasVersion = false
}

// Cancel implements ports.Transaction.
func (t *Transaction) Cancel() {
	t.status.Cancel()
}
