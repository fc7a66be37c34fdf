package testutils

import (
	"sync"

	"github.com/aretw0/stacktester/pkg/adapters/memory"
	"github.com/aretw0/stacktester/pkg/ports"
)

// TrackingDB is a memory database that records every transaction it issues
// and whether it was cancelled.
type TrackingDB struct {
	*memory.Database

	mu      sync.Mutex
	created []*TrackedTransaction
}

// TrackedTransaction wraps a transaction issued by a TrackingDB.
type TrackedTransaction struct {
	ports.Transaction

	mu        sync.Mutex
	cancelled bool
}

// Cancel records the call and cancels the wrapped transaction.
func (t *TrackedTransaction) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
	t.Transaction.Cancel()
}

func (t *TrackedTransaction) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

func NewTrackingDB() *TrackingDB {
	return &TrackingDB{Database: memory.NewDatabase()}
}

// CreateTransaction implements ports.Database.
func (d *TrackingDB) CreateTransaction() (ports.Transaction, error) {
	tr, err := d.Database.CreateTransaction()
	if err != nil {
		return nil, err
	}
	tracked := &TrackedTransaction{Transaction: tr}
	d.mu.Lock()
	d.created = append(d.created, tracked)
	d.mu.Unlock()
	return tracked, nil
}

// Created returns the issued transactions in creation order.
func (d *TrackingDB) Created() []*TrackedTransaction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*TrackedTransaction{}, d.created...)
}
