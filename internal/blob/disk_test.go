package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestDisk(t *testing.T) *Disk {
	t.Helper()
	disk, err := NewDisk(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("NewDisk returned error: %v", err)
	}
	return disk
}

func TestDiskWriteOpenRoundTrip(t *testing.T) {
	disk := newTestDisk(t)

	payloads := [][]byte{
		[]byte("some payload"),
		{},
		{0x00, 0x01, 0xff},
	}
	for _, payload := range payloads {
		handle, written, err := disk.Write(context.Background(), bytes.NewReader(payload))
		if err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
		if written != int64(len(payload)) {
			t.Fatalf("expected %d bytes written, got %d", len(payload), written)
		}
		if strings.ContainsAny(handle, `/\`) {
			t.Fatalf("handle %q carries path syntax", handle)
		}

		rc, err := disk.Open(context.Background(), handle)
		if err != nil {
			t.Fatalf("Open returned error: %v", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read payload: %v", err)
		}
		if !bytes.Equal(data, payload) {
			t.Fatalf("payload mismatch: got %v want %v", data, payload)
		}
	}
}

func TestDiskWriteLeavesNoTempFiles(t *testing.T) {
	disk := newTestDisk(t)

	if _, _, err := disk.Write(context.Background(), bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	entries, err := os.ReadDir(disk.root)
	if err != nil {
		t.Fatalf("read blob root: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), tempPrefix) {
			t.Fatalf("temp file %s left behind", entry.Name())
		}
	}
}

func TestDiskOpenMissing(t *testing.T) {
	disk := newTestDisk(t)

	if _, err := disk.Open(context.Background(), "nonexistent"); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	if err := disk.Stat(context.Background(), "nonexistent"); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing from Stat, got %v", err)
	}
}

func TestDiskDeleteIsIdempotent(t *testing.T) {
	disk := newTestDisk(t)

	handle, _, err := disk.Write(context.Background(), bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	if err := disk.Delete(context.Background(), handle); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := disk.Delete(context.Background(), handle); err != nil {
		t.Fatalf("second Delete returned error: %v", err)
	}
	if err := disk.Stat(context.Background(), handle); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected payload gone, got %v", err)
	}
}

func TestDiskRefusesPathSyntaxInHandles(t *testing.T) {
	disk := newTestDisk(t)

	outside := filepath.Join(filepath.Dir(disk.root), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o640); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	for _, handle := range []string{"../secret.txt", "a/b", `a\b`, ""} {
		if _, err := disk.Open(context.Background(), handle); !errors.Is(err, ErrMissing) {
			t.Fatalf("Open(%q): expected ErrMissing, got %v", handle, err)
		}
		if err := disk.Delete(context.Background(), handle); !errors.Is(err, ErrMissing) {
			t.Fatalf("Delete(%q): expected ErrMissing, got %v", handle, err)
		}
	}

	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside the root was touched: %v", err)
	}
}

func TestDiskSweepRemovesOnlyStaleUnreferenced(t *testing.T) {
	disk := newTestDisk(t)
	ctx := context.Background()

	referencedHandle, _, err := disk.Write(ctx, bytes.NewReader([]byte("referenced")))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	staleHandle, _, err := disk.Write(ctx, bytes.NewReader([]byte("orphan")))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	freshHandle, _, err := disk.Write(ctx, bytes.NewReader([]byte("fresh orphan")))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	// Age the referenced and stale blobs, plus an abandoned temp file.
	old := time.Now().Add(-2 * time.Hour)
	tempPath := filepath.Join(disk.root, tempPrefix+"abandoned")
	if err := os.WriteFile(tempPath, []byte("partial"), 0o640); err != nil {
		t.Fatalf("write temp fixture: %v", err)
	}
	for _, name := range []string{referencedHandle, staleHandle, tempPrefix + "abandoned"} {
		if err := os.Chtimes(filepath.Join(disk.root, name), old, old); err != nil {
			t.Fatalf("age %s: %v", name, err)
		}
	}

	referenced := map[string]struct{}{referencedHandle: {}}
	removed, err := disk.Sweep(ctx, referenced, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 files swept, got %d", removed)
	}

	if err := disk.Stat(ctx, referencedHandle); err != nil {
		t.Fatalf("referenced blob swept: %v", err)
	}
	if err := disk.Stat(ctx, staleHandle); !errors.Is(err, ErrMissing) {
		t.Fatalf("stale orphan not swept: %v", err)
	}
	if err := disk.Stat(ctx, freshHandle); err != nil {
		t.Fatalf("fresh orphan swept early: %v", err)
	}
	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Fatalf("abandoned temp file not swept")
	}
}
