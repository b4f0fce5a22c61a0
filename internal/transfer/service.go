package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pindrop/pindrop/internal/blob"
	"github.com/pindrop/pindrop/internal/metrics"
)

// orphanGracePeriod protects blobs whose metadata commit may still be in
// flight from the orphan sweep.
const orphanGracePeriod = time.Hour

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// Service is the programmatic surface of the relay: publish a file and
// get a PIN, resolve or fetch a file by PIN, reap expired transfers.
// Any front end (HTTP, CLI) drives the relay through it.
type Service struct {
	store       Store
	blobs       blob.Store
	ttl         time.Duration
	maxFileSize int64
	logger      zerolog.Logger
}

// NewService constructs a transfer service.
func NewService(store Store, blobs blob.Store, ttl time.Duration, maxFileSize int64, logger zerolog.Logger) *Service {
	return &Service{
		store:       store,
		blobs:       blobs,
		ttl:         ttl,
		maxFileSize: maxFileSize,
		logger:      logger.With().Str("component", "transfer").Logger(),
	}
}

// Publish stores the payload, allocates a PIN and commits the record.
// All-or-nothing: the record is only committed after the bytes are
// durable, and the blob is deleted again if the commit fails.
func (s *Service) Publish(ctx context.Context, filename, contentType string, size int64, r io.Reader) (Record, error) {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return Record{}, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return Record{}, ErrFileTooLarge
	}

	handle, written, err := s.blobs.Write(ctx, r)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if s.maxFileSize > 0 && written > s.maxFileSize {
		s.discardBlob(ctx, handle)
		return Record{}, ErrFileTooLarge
	}

	now := time.Now().UTC()
	rec := Record{
		OriginalFilename: name,
		StoragePath:      handle,
		SizeBytes:        written,
		ContentType:      contentType,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.ttl),
	}

	pin, err := allocate(ctx, s.store, rec)
	if err != nil {
		s.discardBlob(ctx, handle)
		return Record{}, err
	}
	rec.PIN = pin

	metrics.Publishes.Inc()
	s.logger.Info().Str("pin", pin).Int64("size_bytes", written).
		Time("expires_at", rec.ExpiresAt).Msg("file published")
	return rec, nil
}

// Resolve returns the record for pin without its bytes. Unknown, expired
// and evicted PINs are indistinguishable to the caller.
func (s *Service) Resolve(ctx context.Context, pin string) (Record, error) {
	if !pinPattern.MatchString(pin) {
		return Record{}, ErrNotFound
	}

	rec, err := s.store.Get(ctx, pin)
	if err != nil {
		return Record{}, err
	}

	if err := s.blobs.Stat(ctx, rec.StoragePath); err != nil {
		if errors.Is(err, blob.ErrMissing) {
			s.evict(ctx, rec)
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return rec, nil
}

// Fetch returns the record and a reader over its bytes. The caller owns
// closing the reader.
func (s *Service) Fetch(ctx context.Context, pin string) (Record, io.ReadCloser, error) {
	if !pinPattern.MatchString(pin) {
		metrics.Fetches.WithLabelValues("miss").Inc()
		return Record{}, nil, ErrNotFound
	}

	rec, err := s.store.Get(ctx, pin)
	if err != nil {
		metrics.Fetches.WithLabelValues("miss").Inc()
		return Record{}, nil, err
	}

	rc, err := s.blobs.Open(ctx, rec.StoragePath)
	if err != nil {
		metrics.Fetches.WithLabelValues("miss").Inc()
		if errors.Is(err, blob.ErrMissing) {
			s.evict(ctx, rec)
			return Record{}, nil, ErrBlobMissing
		}
		return Record{}, nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	metrics.Fetches.WithLabelValues("hit").Inc()
	return rec, rc, nil
}

// Reap deletes the blobs of expired records, removes the records in one
// batch, then sweeps unreferenced blobs past the orphan grace period.
// Returns the number of records removed.
func (s *Service) Reap(ctx context.Context) (int, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var expired []string
	referenced := make(map[string]struct{}, len(records))
	for pin, rec := range records {
		if rec.Expired(now) {
			expired = append(expired, pin)
			continue
		}
		referenced[rec.StoragePath] = struct{}{}
	}

	for _, pin := range expired {
		if err := s.blobs.Delete(ctx, records[pin].StoragePath); err != nil {
			s.logger.Warn().Err(err).Str("pin", pin).Msg("failed to delete expired payload")
		}
	}

	removed, err := s.store.Remove(ctx, expired)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		metrics.Reaped.Add(float64(removed))
		s.logger.Info().Int("removed", removed).Msg("expired transfers reclaimed")
	}

	swept, err := s.blobs.Sweep(ctx, referenced, now.Add(-orphanGracePeriod))
	if err != nil {
		s.logger.Warn().Err(err).Msg("orphan blob sweep failed")
	} else if swept > 0 {
		s.logger.Info().Int("swept", swept).Msg("orphaned payloads removed")
	}

	return removed, nil
}

// evict removes a record whose payload disappeared out from under it, so
// the dangling entry is not served again.
func (s *Service) evict(ctx context.Context, rec Record) {
	metrics.Evictions.Inc()
	s.logger.Error().Str("pin", rec.PIN).Str("storage_path", rec.StoragePath).
		Msg("payload missing for stored record, evicting")
	if _, err := s.store.Remove(ctx, []string{rec.PIN}); err != nil {
		s.logger.Error().Err(err).Str("pin", rec.PIN).Msg("failed to evict dangling record")
	}
}

func (s *Service) discardBlob(ctx context.Context, handle string) {
	if err := s.blobs.Delete(ctx, handle); err != nil {
		s.logger.Warn().Err(err).Str("storage_path", handle).Msg("failed to roll back payload")
	}
}

// sanitizeFilename keeps the sender's name for display but refuses names
// carrying path syntax. The blob store never derives paths from it.
func sanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "upload", nil
	}
	if strings.ContainsAny(name, "/\\\x00") || name == "." || name == ".." {
		return "", ErrPathUnsafe
	}
	return name, nil
}
