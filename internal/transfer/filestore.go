package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FileStore keeps the PIN -> Record mapping in a single JSON document.
//
// Every mutation runs a full load-modify-save cycle while holding one
// mutex, so two concurrent commits can never lose an update, and an
// insert's uniqueness check and the insert itself happen in one atomic
// step. Saves write a temp file and rename it over the canonical path;
// readers see either the previous or the next complete document, never
// a torn one. The lock is process-wide; multi-process deployments
// should use the postgres backend instead.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewFileStore ensures the document's directory exists and returns the store.
func NewFileStore(path string, logger zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create metadata dir: %w", err)
	}
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "filestore").Logger(),
	}, nil
}

// Load returns the current full mapping. A corrupt document is reported
// once and treated as empty rather than aborting the process.
func (s *FileStore) Load(ctx context.Context) (map[string]Record, error) {
	return s.load()
}

// Get returns the record for pin. Expired records are treated as absent.
func (s *FileStore) Get(ctx context.Context, pin string) (Record, error) {
	records, err := s.load()
	if err != nil {
		return Record{}, err
	}
	rec, ok := records[pin]
	if !ok || rec.Expired(time.Now().UTC()) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Insert commits rec under rec.PIN if and only if the PIN is free.
// The check and the commit run under the store mutex, so two concurrent
// publishers can never both claim the same PIN.
func (s *FileStore) Insert(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := records[rec.PIN]; ok {
		return ErrPINTaken
	}
	records[rec.PIN] = rec
	return s.save(records)
}

// Remove deletes the given pins in one batched save and returns how many
// were actually present.
func (s *FileStore) Remove(ctx context.Context, pins []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, pin := range pins {
		if _, ok := records[pin]; ok {
			delete(records, pin)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.save(records); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *FileStore) load() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Record{}, nil
		}
		return nil, fmt.Errorf("%w: read metadata document: %v", ErrStorageUnavailable, err)
	}

	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).
			Msg("metadata document corrupt, treating as empty")
		return map[string]Record{}, nil
	}
	if records == nil {
		records = map[string]Record{}
	}
	return records, nil
}

// save persists the full mapping atomically: marshal, write a temp file
// in the same directory, fsync, rename over the canonical path.
func (s *FileStore) save(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata document: %w", err)
	}

	tempPath := s.path + ".tmp-" + uuid.NewString()
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("%w: create metadata temp file: %v", ErrStorageUnavailable, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("%w: write metadata document: %v", ErrStorageUnavailable, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("%w: sync metadata document: %v", ErrStorageUnavailable, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: close metadata document: %v", ErrStorageUnavailable, err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: replace metadata document: %v", ErrStorageUnavailable, err)
	}
	return nil
}
