package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const tempPrefix = ".tmp-"

// Disk stores payloads as flat files under a single root directory.
// Writes go to a temp file first and are renamed into place, so a
// crash mid-write never leaves a partially written payload under a
// live handle.
type Disk struct {
	root string
}

// NewDisk creates the storage root if needed and returns a disk store.
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}
	return &Disk{root: root}, nil
}

// Write streams r into a freshly named payload file.
func (d *Disk) Write(ctx context.Context, r io.Reader) (string, int64, error) {
	handle := uuid.NewString()
	tempPath := filepath.Join(d.root, tempPrefix+handle)

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("create blob temp file: %w", err)
	}

	written, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tempPath)
		return "", 0, fmt.Errorf("write blob: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return "", 0, fmt.Errorf("sync blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return "", 0, fmt.Errorf("close blob: %w", err)
	}

	if err := os.Rename(tempPath, filepath.Join(d.root, handle)); err != nil {
		os.Remove(tempPath)
		return "", 0, fmt.Errorf("commit blob: %w", err)
	}

	return handle, written, nil
}

// Open returns a reader over the payload file.
func (d *Disk) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	path, err := d.resolve(handle)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissing
		}
		return nil, fmt.Errorf("open blob %s: %w", handle, err)
	}
	return f, nil
}

// Stat reports payload existence without opening it.
func (d *Disk) Stat(ctx context.Context, handle string) error {
	path, err := d.resolve(handle)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrMissing
		}
		return fmt.Errorf("stat blob %s: %w", handle, err)
	}
	return nil
}

// Delete removes the payload file. Idempotent.
func (d *Disk) Delete(ctx context.Context, handle string) error {
	path, err := d.resolve(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", handle, err)
	}
	return nil
}

// Sweep removes unreferenced payload and temp files older than cutoff.
// Covers payloads orphaned by a crash between blob write and metadata
// commit, and abandoned temp files alike.
func (d *Disk) Sweep(ctx context.Context, referenced map[string]struct{}, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return 0, fmt.Errorf("scan blob root: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := referenced[entry.Name()]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(d.root, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// resolve maps a handle to its on-disk path. Handles are store-generated,
// but a handle carrying path syntax is refused rather than trusted.
func (d *Disk) resolve(handle string) (string, error) {
	if handle == "" || strings.ContainsAny(handle, `/\`) || handle != filepath.Base(handle) {
		return "", ErrMissing
	}
	return filepath.Join(d.root, handle), nil
}
