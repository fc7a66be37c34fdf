package ports

import (
	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/future"
)

// Database issues transactions against a transactional key-value store.
type Database interface {
	// CreateTransaction starts a new transaction.
	CreateTransaction() (Transaction, error)

	// Name identifies the backend in logs.
	Name() string
}

// RangeOptions tunes a range read.
type RangeOptions struct {
	// Limit caps the number of rows returned. Zero means no limit.
	Limit   int
	Reverse bool
	Mode    domain.StreamingMode
}

// Transaction is an in-flight unit of work.
// Failures reported by the store are *domain.StoreError values.
type Transaction interface {
	// Get reads a key. The future yields nil when the key is absent.
	Get(key []byte) *future.Future[[]byte]

	// GetRange reads the rows between two key selectors, end exclusive.
	GetRange(begin, end domain.KeySelector, opts RangeOptions) *future.Future[[]domain.KeyValue]

	// GetReadVersion returns the version reads of this transaction observe.
	GetReadVersion() *future.Future[int64]

	Set(key, value []byte) error
	Clear(key []byte) error
	ClearRange(begin, end []byte) error

	// Commit applies the buffered writes atomically.
	// It fails with domain.CodeNotCommitted when a read conflicts with a concurrent commit.
	Commit() *future.Future[future.Void]

	// OnError resets the transaction when err is retryable and fails with err otherwise.
	OnError(err error) *future.Future[future.Void]

	// Reset discards buffered writes and the read version.
	Reset()

	// Cancel makes every pending and future operation fail with domain.CodeTransactionCancelled.
	Cancel()
}
