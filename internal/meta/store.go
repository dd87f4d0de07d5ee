package meta

import (
	"context"
	"time"
)

// Store persists File Records. Implementations must make ReserveDownload
// atomic: concurrent callers may never obtain more reservations than
// DownloadLimit permits.
type Store interface {
	// Ping probes store liveness.
	Ping(ctx context.Context) error

	// Create inserts a new record. A duplicate id fails with
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, rec *Record) error

	// Get returns the record for id. Expired, download-exhausted and unknown
	// ids all fail with common.ErrorNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// ReserveDownload atomically takes one download slot and returns how
	// many remain afterwards. It fails closed with common.ErrorNotFound
	// when the record is absent, expired, or already at its limit.
	ReserveDownload(ctx context.Context, id string) (int, error)

	// DeleteOwned removes the record only when ownerToken matches; it fails
	// with common.ErrorUnauthorized on a mismatch and common.ErrorNotFound
	// when the record is absent.
	DeleteOwned(ctx context.Context, id, ownerToken string) error

	// Delete removes the record unconditionally. Deleting a missing id is
	// not an error.
	Delete(ctx context.Context, id string) error

	// ExpiredIDs returns up to limit ids whose expiry is at or before now.
	ExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error)

	// Close releases the underlying connection, if any.
	Close() error
}
