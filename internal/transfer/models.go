package transfer

import "time"

// Record describes one published file awaiting pickup.
//
// StoragePath is an opaque blob store handle; the original filename
// lives only here, never in the handle.
type Record struct {
	PIN              string    `json:"pin"`
	OriginalFilename string    `json:"original_filename"`
	StoragePath      string    `json:"storage_path"`
	SizeBytes        int64     `json:"size_bytes"`
	ContentType      string    `json:"content_type"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Expired reports whether the record's time-to-live has elapsed at now.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
