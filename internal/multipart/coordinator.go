package multipart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/driftlabs/driftfile/internal/common"
	"github.com/driftlabs/driftfile/internal/ece"
	"github.com/driftlabs/driftfile/internal/logging"
	"github.com/driftlabs/driftfile/internal/storage"
)

const abortTimeout = 30 * time.Second

// Coordinator runs multipart uploads against a storage backend. It serves two
// callers: the streaming upload handler, which pushes a whole body through
// Upload, and the resumable client-driven path, which creates a Session and
// drives it part by part through signed URLs.
type Coordinator struct {
	backend  storage.Backend
	registry *Registry
	partSize int64
	window   time.Duration
	logger   logging.Logger
}

// NewCoordinator aligns targetPartSize down to a whole number of encrypted
// records so no record is ever split across storage parts.
func NewCoordinator(backend storage.Backend, targetPartSize int64, window time.Duration, logger logging.Logger) (*Coordinator, error) {
	partSize := ece.AlignedPartSize(targetPartSize)
	if partSize == 0 {
		return nil, fmt.Errorf("%w: part size %d is smaller than one encrypted record", common.ErrorValidation, targetPartSize)
	}
	return &Coordinator{
		backend:  backend,
		registry: NewRegistry(),
		partSize: partSize,
		window:   window,
		logger:   logger,
	}, nil
}

// PartSize returns the aligned part size in bytes.
func (c *Coordinator) PartSize() int64 {
	return c.partSize
}

// Upload streams the whole body from r as a sequence of parts and completes
// the upload at EOF. One part buffer is reused for the lifetime of the call,
// so at most one part is held in memory per active upload. Any failure aborts
// the multipart upload before the error is returned.
func (c *Coordinator) Upload(ctx context.Context, id string, r io.Reader) error {
	uploadID, err := c.backend.CreateMultipartUpload(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to create multipart upload: %w", err)
	}

	buf := make([]byte, c.partSize)
	var parts []storage.CompletedPart
	number := int32(0)
	for {
		if err := ctx.Err(); err != nil {
			c.abort(ctx, id, uploadID)
			return err
		}
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			number++
			tag, uerr := c.backend.UploadPart(ctx, id, uploadID, number, bytes.NewReader(buf[:n]), int64(n))
			if uerr != nil {
				c.abort(ctx, id, uploadID)
				return fmt.Errorf("failed to upload part %d: %w", number, uerr)
			}
			parts = append(parts, storage.CompletedPart{Number: number, Tag: tag})
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
				break
			}
			c.abort(ctx, id, uploadID)
			return rerr
		}
	}

	// an empty body still needs one part for the completion to be valid
	if len(parts) == 0 {
		tag, uerr := c.backend.UploadPart(ctx, id, uploadID, 1, bytes.NewReader(nil), 0)
		if uerr != nil {
			c.abort(ctx, id, uploadID)
			return fmt.Errorf("failed to upload part 1: %w", uerr)
		}
		parts = append(parts, storage.CompletedPart{Number: 1, Tag: tag})
	}

	if err := c.backend.CompleteMultipartUpload(ctx, id, uploadID, parts); err != nil {
		c.abort(ctx, id, uploadID)
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	return nil
}

// Create registers a resumable upload session for the declared size and
// returns it. The session expires after the coordinator's window.
func (c *Coordinator) Create(ctx context.Context, id string, size int64) (*Session, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: declared size must be positive", common.ErrorValidation)
	}
	uploadID, err := c.backend.CreateMultipartUpload(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart upload: %w", err)
	}
	sess := NewSession(id, uploadID, c.partSize, size, time.Now().Add(c.window))
	if err := c.registry.Add(sess); err != nil {
		c.abort(ctx, id, uploadID)
		return nil, err
	}
	return sess, nil
}

// Session looks up a live session by file id.
func (c *Coordinator) Session(id string) (*Session, bool) {
	return c.registry.Get(id)
}

// PartURL returns a signed URL the client can PUT one part to. The URL is
// valid until the session deadline.
func (c *Coordinator) PartURL(ctx context.Context, sess *Session, number int32) (string, error) {
	if sess.Failed() {
		return "", fmt.Errorf("%w: upload session is no longer valid", common.ErrorValidation)
	}
	if number < 1 || number > sess.PartCount() {
		return "", fmt.Errorf("%w: part number %d out of range", common.ErrorValidation, number)
	}
	remaining := time.Until(sess.Deadline)
	if remaining <= 0 {
		return "", fmt.Errorf("%w: upload session expired", common.ErrorValidation)
	}
	return c.backend.SignedPartURL(ctx, sess.ID, sess.UploadID, number, remaining)
}

// Ack records the backend acknowledgment tag for an uploaded part.
func (c *Coordinator) Ack(sess *Session, number int32, tag string) error {
	return sess.Ack(number, tag)
}

// Finish completes the upload. Every part must have been acknowledged.
func (c *Coordinator) Finish(ctx context.Context, sess *Session) error {
	if sess.Failed() {
		return fmt.Errorf("%w: upload session is no longer valid", common.ErrorValidation)
	}
	if !sess.Complete() {
		return fmt.Errorf("%w: upload is missing parts", common.ErrorValidation)
	}
	if err := c.backend.CompleteMultipartUpload(ctx, sess.ID, sess.UploadID, sess.Parts()); err != nil {
		c.Abort(ctx, sess)
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	c.registry.Remove(sess.ID)
	return nil
}

// Abort invalidates the session and drops the backend upload.
func (c *Coordinator) Abort(ctx context.Context, sess *Session) {
	sess.Fail()
	c.registry.Remove(sess.ID)
	c.abort(ctx, sess.ID, sess.UploadID)
}

// Expired returns live sessions past their deadline so the janitor can abort
// them.
func (c *Coordinator) Expired(now time.Time) []*Session {
	return c.registry.Expired(now)
}

// abort drops the backend upload on a context that survives cancellation of
// the calling request.
func (c *Coordinator) abort(ctx context.Context, id, uploadID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()
	if err := c.backend.AbortMultipartUpload(ctx, id, uploadID); err != nil {
		c.logger.Error(ctx, "failed to abort multipart upload", "id", id, "error", err)
	}
}
