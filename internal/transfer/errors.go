package transfer

import "errors"

var (
	// ErrNotFound signals an unknown, expired or evicted PIN. Front ends must
	// not distinguish which of the three it was.
	ErrNotFound = errors.New("transfer not found")
	// ErrBlobMissing signals metadata whose payload bytes are gone. Rendered
	// as not-found externally; the lookup evicts the dangling record.
	ErrBlobMissing = errors.New("transfer payload missing")
	// ErrPINTaken signals an insert against a PIN already held by a record.
	ErrPINTaken = errors.New("pin already taken")
	// ErrAllocationExhausted signals that no free PIN was found within the
	// attempt budget; the keyspace is close to full.
	ErrAllocationExhausted = errors.New("pin keyspace exhausted")
	// ErrStorageUnavailable signals an I/O failure persisting or loading
	// state; the attempted update must not be assumed committed.
	ErrStorageUnavailable = errors.New("transfer storage unavailable")
	// ErrPathUnsafe signals a filename carrying path traversal syntax.
	ErrPathUnsafe = errors.New("unsafe filename")
	// ErrFileTooLarge signals that the upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")
)
