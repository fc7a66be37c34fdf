package memory

import (
	"bytes"
	"sort"
	"sync"

	"github.com/aretw0/stacktester/pkg/adapters/kv"
	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/ports"
)

type entry struct {
	version int64
	value   []byte // nil when the key was cleared at this version
}

// Database implements ports.Database in memory.
// Safe for concurrent use.
type Database struct {
	mu      sync.RWMutex
	version int64
	keys    [][]byte // every key ever written, sorted
	history map[string][]entry
}

var _ ports.Database = (*Database)(nil)

// NewDatabase creates an empty in-memory database.
func NewDatabase() *Database {
	return &Database{
		history: make(map[string][]entry),
	}
}

// Name implements ports.Database.
func (d *Database) Name() string {
	return "memory"
}

// CreateTransaction implements ports.Database.
func (d *Database) CreateTransaction() (ports.Transaction, error) {
	return &Transaction{db: d}, nil
}

// Version returns the latest committed version.
func (d *Database) Version() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

func (d *Database) valueAt(key []byte, rv int64) []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return visible(d.history[string(key)], rv)
}

func (d *Database) snapshot(rv int64) []domain.KeyValue {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rows := make([]domain.KeyValue, 0, len(d.keys))
	for _, k := range d.keys {
		if v := visible(d.history[string(k)], rv); v != nil {
			rows = append(rows, domain.KeyValue{Key: k, Value: v})
		}
	}
	return rows
}

func visible(h []entry, rv int64) []byte {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].version <= rv {
			if h[i].value == nil {
				return nil
			}
			return append([]byte{}, h[i].value...)
		}
	}
	return nil
}

type readSet struct {
	keys   [][]byte
	ranges [][2][]byte
}

// commit validates reads performed at rv and applies ops at a new version.
func (d *Database) commit(rv int64, reads readSet, ops []kv.Op) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conflicts(rv, reads) {
		return 0, domain.NewStoreError(domain.CodeNotCommitted)
	}
	if len(ops) == 0 {
		return d.version, nil
	}

	d.version++
	for _, op := range ops {
		switch op.Kind {
		case kv.OpSet:
			d.write(op.Key, op.Value)
		case kv.OpClear:
			if _, ok := d.history[string(op.Key)]; ok {
				d.write(op.Key, nil)
			}
		case kv.OpClearRange:
			lo := d.search(op.Key)
			for _, k := range d.keys[lo:] {
				if bytes.Compare(k, op.End) >= 0 {
					break
				}
				d.write(k, nil)
			}
		}
	}
	return d.version, nil
}

func (d *Database) conflicts(rv int64, reads readSet) bool {
	for _, k := range reads.keys {
		if lastVersion(d.history[string(k)]) > rv {
			return true
		}
	}
	for _, r := range reads.ranges {
		for _, k := range d.keys[d.search(r[0]):] {
			if bytes.Compare(k, r[1]) >= 0 {
				break
			}
			if lastVersion(d.history[string(k)]) > rv {
				return true
			}
		}
	}
	return false
}

func lastVersion(h []entry) int64 {
	if len(h) == 0 {
		return -1
	}
	return h[len(h)-1].version
}

func (d *Database) search(key []byte) int {
	return sort.Search(len(d.keys), func(i int) bool {
		return bytes.Compare(d.keys[i], key) >= 0
	})
}

// write must be called with d.mu held.
func (d *Database) write(key, value []byte) {
	sk := string(key)
	if _, ok := d.history[sk]; !ok {
		i := d.search(key)
		d.keys = append(d.keys, nil)
		copy(d.keys[i+1:], d.keys[i:])
		d.keys[i] = append([]byte{}, key...)
	}
	d.history[sk] = append(d.history[sk], entry{version: d.version, value: value})
}
