// Package blob persists raw transfer payloads addressed by opaque handles.
//
// Handles are generated by the store on write and never incorporate
// caller-supplied names, so no upload can influence where its bytes land.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrMissing signals that no payload exists for the given handle.
var ErrMissing = errors.New("blob not found")

// Store reads and writes payload bytes independent of transfer metadata.
type Store interface {
	// Write stores the reader's bytes and returns the opaque handle and the
	// number of bytes written.
	Write(ctx context.Context, r io.Reader) (string, int64, error)
	// Open returns a reader over the payload. Fails with ErrMissing if the
	// handle does not resolve to stored bytes.
	Open(ctx context.Context, handle string) (io.ReadCloser, error)
	// Stat reports whether the payload exists, with ErrMissing when it does not.
	Stat(ctx context.Context, handle string) error
	// Delete removes the payload. Deleting an absent payload is not an error.
	Delete(ctx context.Context, handle string) error
	// Sweep removes payloads whose handle is not in referenced and whose
	// last modification predates cutoff. Returns the number removed.
	Sweep(ctx context.Context, referenced map[string]struct{}, cutoff time.Time) (int, error)
}
