package kv

import (
	"bytes"
	"sync"

	"github.com/aretw0/stacktester/pkg/domain"
)

var maxKey = []byte{domain.SystemKeyPrefix}

// ValidateKey rejects keys in the reserved key space.
func ValidateKey(key []byte) error {
	if len(key) > 0 && key[0] == domain.SystemKeyPrefix {
		return domain.NewStoreError(domain.CodeKeyOutsideLegalRange)
	}
	return nil
}

// ValidateRange rejects inverted ranges and ranges reaching past the legal key space.
func ValidateRange(begin, end []byte) error {
	if err := ValidateKey(begin); err != nil {
		return err
	}
	if bytes.Compare(end, maxKey) > 0 {
		return domain.NewStoreError(domain.CodeKeyOutsideLegalRange)
	}
	if bytes.Compare(begin, end) > 0 {
		return domain.NewStoreError(domain.CodeInvertedRange)
	}
	return nil
}

// Status tracks whether a transaction still accepts operations.
type Status struct {
	mu         sync.Mutex
	cancelled  bool
	committing bool
}

// Check returns the store error an operation issued now would fail with, if any.
func (s *Status) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.cancelled:
		return domain.NewStoreError(domain.CodeTransactionCancelled)
	case s.committing:
		return domain.NewStoreError(domain.CodeUsedDuringCommit)
	}
	return nil
}

// BeginCommit marks the transaction as committing.
func (s *Status) BeginCommit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return domain.NewStoreError(domain.CodeTransactionCancelled)
	}
	if s.committing {
		return domain.NewStoreError(domain.CodeUsedDuringCommit)
	}
	s.committing = true
	return nil
}

// EndCommit clears the committing mark.
func (s *Status) EndCommit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committing = false
}

func (s *Status) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

// Reset makes a transaction usable again, including after Cancel.
func (s *Status) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committing = false
	s.cancelled = false
}
