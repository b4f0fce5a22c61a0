package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// MinIO adapts a minio.Client to the Store interface for S3-compatible
// deployments where payloads should not live on the relay host's disk.
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO constructs an object-storage backed blob store.
func NewMinIO(client *minio.Client, bucket string) *MinIO {
	return &MinIO{client: client, bucket: bucket}
}

func (s *MinIO) Write(ctx context.Context, r io.Reader) (string, int64, error) {
	handle := uuid.NewString()

	info, err := s.client.PutObject(ctx, s.bucket, handle, r, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", 0, fmt.Errorf("store object: %w", err)
	}
	return handle, info.Size, nil
}

func (s *MinIO) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, handle, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch object %s: %w", handle, err)
	}

	// GetObject is lazy; force the first round-trip so a missing key
	// surfaces here instead of on the first Read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrMissing
		}
		return nil, fmt.Errorf("stat object %s: %w", handle, err)
	}
	return obj, nil
}

func (s *MinIO) Stat(ctx context.Context, handle string) error {
	_, err := s.client.StatObject(ctx, s.bucket, handle, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ErrMissing
		}
		return fmt.Errorf("stat object %s: %w", handle, err)
	}
	return nil
}

func (s *MinIO) Delete(ctx context.Context, handle string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, handle, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object %s: %w", handle, err)
	}
	return nil
}

func (s *MinIO) Sweep(ctx context.Context, referenced map[string]struct{}, cutoff time.Time) (int, error) {
	removed := 0
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return removed, fmt.Errorf("list objects: %w", obj.Err)
		}
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err == nil {
			removed++
		}
	}
	return removed, nil
}
