// Package storage is the byte-blob persistence seam of the transfer service.
// It defines one capability interface over two variants: a local filesystem
// directory and an S3-compatible object store. Callers never learn which
// variant they hold; capabilities a variant cannot provide (signed URLs and
// multipart on the filesystem) report ErrUnsupported instead of panicking,
// so control flow branches on errors.Is rather than on type assertions.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUnsupported is returned by signed-URL and multipart operations on
// backends that cannot provide them. Callers fall back to protocol-level
// streaming.
var ErrUnsupported = errors.New("operation not supported by storage backend")

// CompletedPart pairs an uploaded part number with the content tag the
// backend acknowledged for it.
type CompletedPart struct {
	Number int32
	Tag    string
}

// Backend persists encrypted blobs under server-generated ids. All methods
// are safe for concurrent use across distinct ids.
type Backend interface {
	// Ping probes backend liveness.
	Ping(ctx context.Context) error

	// Length returns the byte size of the stored object, or
	// common.ErrorNotFound when absent.
	Length(ctx context.Context, id string) (int64, error)

	// GetStream opens a fresh read of the object's bytes. Every call
	// restarts from the beginning. Returns common.ErrorNotFound when absent.
	GetStream(ctx context.Context, id string) (io.ReadCloser, error)

	// Set durably persists the reader's full content under id. The write is
	// atomic from the caller's perspective: either the whole object becomes
	// readable or none of it does. When r fails mid-write, the partial
	// object is removed and the reader's error is returned.
	Set(ctx context.Context, id string, r io.Reader) error

	// Del removes the object. Deleting a missing id is not an error.
	Del(ctx context.Context, id string) error

	// SignedDownloadURL returns a time-bounded direct GET URL, or
	// ErrUnsupported.
	SignedDownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error)

	// SignedUploadURL returns a time-bounded direct PUT URL, or
	// ErrUnsupported.
	SignedUploadURL(ctx context.Context, id string, expiry time.Duration) (string, error)

	// CreateMultipartUpload allocates a multipart transaction for id and
	// returns its upload handle, or ErrUnsupported.
	CreateMultipartUpload(ctx context.Context, id string) (string, error)

	// UploadPart stores one part and returns the backend's content tag.
	UploadPart(ctx context.Context, id, uploadID string, number int32, r io.Reader, size int64) (string, error)

	// SignedPartURL returns a time-bounded PUT URL for one part, or
	// ErrUnsupported.
	SignedPartURL(ctx context.Context, id, uploadID string, number int32, expiry time.Duration) (string, error)

	// CompleteMultipartUpload finalizes the transaction with the gapless,
	// ordered part list.
	CompleteMultipartUpload(ctx context.Context, id, uploadID string, parts []CompletedPart) error

	// AbortMultipartUpload releases backend-side multipart resources.
	// Aborting an unknown upload is not an error.
	AbortMultipartUpload(ctx context.Context, id, uploadID string) error
}
