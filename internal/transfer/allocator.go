package transfer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/pindrop/pindrop/internal/metrics"
)

const (
	// keyspaceSize covers the full fixed-width range 0000-9999.
	keyspaceSize = 10000
	// maxAllocationAttempts bounds the random draw so a nearly full
	// keyspace surfaces as ErrAllocationExhausted instead of spinning.
	maxAllocationAttempts = 384
)

func formatPIN(n int) string {
	return fmt.Sprintf("%04d", n)
}

// allocate draws uniformly random 4-digit PINs and commits rec under the
// first free one. Allocation is expressed as insert-if-absent against
// the store, so the uniqueness check and the commit are one atomic step
// and two concurrent publishers can never be handed the same PIN.
func allocate(ctx context.Context, store Store, rec Record) (string, error) {
	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		rec.PIN = formatPIN(rand.IntN(keyspaceSize))

		err := store.Insert(ctx, rec)
		switch {
		case err == nil:
			return rec.PIN, nil
		case errors.Is(err, ErrPINTaken):
			metrics.PINCollisions.Inc()
			continue
		default:
			return "", err
		}
	}
	return "", ErrAllocationExhausted
}
