package transfer

import (
	"context"
	"errors"
	"testing"
	"time"
)

// insertFunc lets tests script the store's Insert behavior.
type insertFunc func(rec Record) error

func (f insertFunc) Load(ctx context.Context) (map[string]Record, error) { return nil, nil }

func (f insertFunc) Get(ctx context.Context, pin string) (Record, error) {
	return Record{}, ErrNotFound
}

func (f insertFunc) Insert(ctx context.Context, rec Record) error { return f(rec) }

func (f insertFunc) Remove(ctx context.Context, pins []string) (int, error) { return 0, nil }

func TestAllocateProducesFixedWidthPINs(t *testing.T) {
	for i := 0; i < 50; i++ {
		var got string
		store := insertFunc(func(rec Record) error {
			got = rec.PIN
			return nil
		})
		if _, err := allocate(context.Background(), store, Record{}); err != nil {
			t.Fatalf("allocate returned error: %v", err)
		}
		if !pinPattern.MatchString(got) {
			t.Fatalf("expected fixed-width 4-digit PIN, got %q", got)
		}
	}
}

func TestAllocateRetriesPastOccupiedPINs(t *testing.T) {
	attempts := 0
	store := insertFunc(func(rec Record) error {
		attempts++
		if attempts <= 5 {
			return ErrPINTaken
		}
		return nil
	})

	pin, err := allocate(context.Background(), store, Record{})
	if err != nil {
		t.Fatalf("allocate returned error: %v", err)
	}
	if attempts != 6 {
		t.Fatalf("expected 6 attempts, got %d", attempts)
	}
	if pin == "" {
		t.Fatalf("expected a PIN on the successful attempt")
	}
}

func TestAllocateBoundsAttemptsWhenKeyspaceFull(t *testing.T) {
	attempts := 0
	store := insertFunc(func(rec Record) error {
		attempts++
		return ErrPINTaken
	})

	_, err := allocate(context.Background(), store, Record{})
	if !errors.Is(err, ErrAllocationExhausted) {
		t.Fatalf("expected ErrAllocationExhausted, got %v", err)
	}
	if attempts != maxAllocationAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAllocationAttempts, attempts)
	}
}

func TestAllocateStopsOnStoreFailure(t *testing.T) {
	storeErr := errors.New("backend down")
	attempts := 0
	store := insertFunc(func(rec Record) error {
		attempts++
		return storeErr
	})

	_, err := allocate(context.Background(), store, Record{ExpiresAt: time.Now()})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store failure surfaced, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected no retries on non-collision failure, got %d attempts", attempts)
	}
}
