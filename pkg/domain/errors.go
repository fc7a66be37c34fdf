package domain

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/aretw0/stacktester/pkg/tuple"
)

// ErrInvalidArgument is returned when an instruction supplies a value outside of its domain.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrNoTransaction is returned when a session has no transaction registered under its current name.
var ErrNoTransaction = errors.New("no transaction registered")

// Store error codes.
const (
	CodeTransactionTooOld      = 1007
	CodeFutureVersion          = 1009
	CodeNotCommitted           = 1020
	CodeCommitUnknownResult    = 1021
	CodeTransactionCancelled   = 1025
	CodeTransactionTimedOut    = 1031
	CodeClientInvalidOperation = 2000
	CodeKeyOutsideLegalRange   = 2004
	CodeInvertedRange          = 2005
	CodeUsedDuringCommit       = 2017
)

var descriptions = map[int]string{
	CodeTransactionTooOld:      "Transaction is too old to perform reads or be committed",
	CodeFutureVersion:          "Request for future version",
	CodeNotCommitted:           "Transaction not committed due to conflict with another transaction",
	CodeCommitUnknownResult:    "Transaction may or may not have committed",
	CodeTransactionCancelled:   "Operation aborted because the transaction was cancelled",
	CodeTransactionTimedOut:    "Operation aborted because the transaction timed out",
	CodeClientInvalidOperation: "Invalid API call",
	CodeKeyOutsideLegalRange:   "Key outside legal range",
	CodeInvertedRange:          "Range begin key larger than end key",
	CodeUsedDuringCommit:       "Operation issued while a commit was outstanding",
}

// StoreError is a failure reported by the transactional store.
type StoreError struct {
	Code        int
	Description string
}

// NewStoreError creates a StoreError with the standard description for code.
func NewStoreError(code int) *StoreError {
	desc, ok := descriptions[code]
	if !ok {
		desc = "Unknown error"
	}
	return &StoreError{Code: code, Description: desc}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Description, e.Code)
}

// IsRetryable reports whether a transaction that failed with this error may be retried.
func (e *StoreError) IsRetryable() bool {
	switch e.Code {
	case CodeTransactionTooOld, CodeFutureVersion, CodeNotCommitted, CodeCommitUnknownResult:
		return true
	}
	return false
}

// Bytes returns the canonical encoding of the error used as stack data.
func (e *StoreError) Bytes() []byte {
	return tuple.Pack([]byte("ERROR"), []byte(strconv.Itoa(e.Code)))
}

// AsStoreError finds the first StoreError in err's chain.
func AsStoreError(err error) (*StoreError, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
