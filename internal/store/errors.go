package store

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by *StorageError via errors.Is.
var (
	// ErrStorageUnavailable means the backing file could not be opened,
	// created or verified.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrTransactionFailed means a write or delete could not commit. The
	// transaction was rolled back.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrQueryFailed means a read failed on I/O or corruption. It is never
	// returned for "no matches".
	ErrQueryFailed = errors.New("query failed")
)

// Kind categorizes storage errors.
type Kind string

const (
	KindUnavailable       Kind = "STORAGE_UNAVAILABLE"
	KindTransactionFailed Kind = "TRANSACTION_FAILED"
	KindQueryFailed       Kind = "QUERY_FAILED"
)

// StorageError is the typed error returned by every Store operation that
// touches the database.
type StorageError struct {
	// Op is the failing operation, e.g. "write", "delete", "open".
	Op string

	// Kind identifies the error category.
	Kind Kind

	// Err is the underlying driver or I/O error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e's Kind.
func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrStorageUnavailable:
		return e.Kind == KindUnavailable
	case ErrTransactionFailed:
		return e.Kind == KindTransactionFailed
	case ErrQueryFailed:
		return e.Kind == KindQueryFailed
	}
	return false
}

func unavailable(op string, err error) error {
	return &StorageError{Op: op, Kind: KindUnavailable, Err: err}
}

func txFailed(op string, err error) error {
	return &StorageError{Op: op, Kind: KindTransactionFailed, Err: err}
}

func queryFailed(op string, err error) error {
	return &StorageError{Op: op, Kind: KindQueryFailed, Err: err}
}

// KindOf returns the Kind of a storage error, or "" if err is not one.
func KindOf(err error) Kind {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
