package transfer

import "context"

// Store is the durable PIN -> Record mapping. Implementations must make
// Insert an atomic check-and-commit: it succeeds only if the PIN was
// free, and two concurrent inserts of the same PIN cannot both succeed.
//
// Get treats expired records as absent. Remove is batched and reports
// how many of the given pins were actually present.
type Store interface {
	Load(ctx context.Context) (map[string]Record, error)
	Get(ctx context.Context, pin string) (Record, error)
	Insert(ctx context.Context, rec Record) error
	Remove(ctx context.Context, pins []string) (int, error)
}
