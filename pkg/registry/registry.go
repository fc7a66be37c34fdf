// Package registry maps session names to the transaction currently active under each name.
//
// Every mutation is a single atomic operation. Callers that race to install a
// transaction under the same name learn whether they won and must cancel the
// transaction they created when they lose.
package registry

import (
	"sort"
	"sync"

	"github.com/aretw0/stacktester/pkg/ports"
)

// Registry manages the active transaction of each session name.
// Safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	transactions map[string]ports.Transaction
}

// Default is the process-wide registry shared by sessions that are not given one.
var Default = NewRegistry()

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		transactions: make(map[string]ports.Transaction),
	}
}

// Get returns the transaction registered under name, or nil.
func (r *Registry) Get(name string) ports.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.transactions[name]
}

// Put installs tr under name unconditionally.
// The previous transaction, if any, is neither returned nor released.
func (r *Registry) Put(name string, tr ports.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions[name] = tr
}

// Replace installs newTr under name only if oldTr is still registered there.
// It reports whether the swap happened.
func (r *Registry) Replace(name string, oldTr, newTr ports.Transaction) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.transactions[name]
	if !ok || cur != oldTr {
		return false
	}
	r.transactions[name] = newTr
	return true
}

// PutIfAbsent installs tr under name unless an entry already exists.
// It returns the existing transaction and true when tr was not installed.
func (r *Registry) PutIfAbsent(name string, tr ports.Transaction) (ports.Transaction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.transactions[name]; ok {
		return cur, true
	}
	r.transactions[name] = tr
	return nil, false
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.transactions)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.transactions))
	for name := range r.transactions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
