// Package files serves the retrieval half of a file's life: download
// authorization, the atomically gated read itself, metadata lookups and
// owner-initiated deletion. The upload half lives in transfer.
package files

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/driftlabs/driftfile/internal/common"
	"github.com/driftlabs/driftfile/internal/logging"
	"github.com/driftlabs/driftfile/internal/meta"
	"github.com/driftlabs/driftfile/internal/storage"
)

const purgeTimeout = 30 * time.Second

// Service mediates every read and delete of stored files. Each download
// passes the record's atomic reservation gate before a single payload byte
// leaves the backend, so concurrent readers can never exceed the limit.
type Service struct {
	store           meta.Store
	backend         storage.Backend
	signedURLExpiry time.Duration
	logger          logging.Logger
}

func NewService(store meta.Store, backend storage.Backend, signedURLExpiry time.Duration, logger logging.Logger) *Service {
	return &Service{
		store:           store,
		backend:         backend,
		signedURLExpiry: signedURLExpiry,
		logger:          logger,
	}
}

// Stream is one granted download. It reads the object's bytes; closing it
// after the record's final permitted download purges both the object and
// the record.
type Stream struct {
	Size      int64
	Remaining int

	body    io.ReadCloser
	once    sync.Once
	cleanup func()
}

func (s *Stream) Read(p []byte) (int, error) { return s.body.Read(p) }

// Close releases the underlying read and, when this was the last permitted
// download, removes the object and its record.
func (s *Stream) Close() error {
	err := s.body.Close()
	if s.cleanup != nil {
		s.once.Do(s.cleanup)
	}
	return err
}

// Metadata returns the record for id. Expired, download-exhausted and
// unknown ids all fail with common.ErrorNotFound.
func (s *Service) Metadata(ctx context.Context, id string) (*meta.Record, error) {
	return s.store.Get(ctx, id)
}

// Size returns the stored object's byte length.
func (s *Service) Size(ctx context.Context, id string) (int64, error) {
	return s.backend.Length(ctx, id)
}

// Authorize checks a download authorization header against the record's
// auth key. The header carries "send-v1 <base64 signature>" where the
// signature is an HMAC-SHA256 over the record's nonce, keyed with the auth
// key registered at upload. Unencrypted records need no authorization.
func (s *Service) Authorize(rec *meta.Record, header string) error {
	if !rec.Encrypted {
		return nil
	}
	fields := strings.Fields(header)
	if len(fields) != 2 || fields[0] != common.AuthScheme {
		return common.ErrorUnauthorized
	}
	sig, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil {
		return common.ErrorUnauthorized
	}
	key, err := base64.StdEncoding.DecodeString(rec.AuthTag)
	if err != nil {
		return fmt.Errorf("stored auth key is not base64: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(rec.Nonce)
	if err != nil {
		return fmt.Errorf("stored nonce is not base64: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(nonce)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return common.ErrorUnauthorized
	}
	return nil
}

// Download grants one read of the object's bytes. The download slot is
// reserved first, then the backend read opened; a reservation whose read
// then fails is not refunded, keeping the gate fail-closed.
func (s *Service) Download(ctx context.Context, id string) (*Stream, error) {
	remaining, err := s.store.ReserveDownload(ctx, id)
	if err != nil {
		return nil, err
	}
	size, err := s.backend.Length(ctx, id)
	if err != nil {
		return nil, err
	}
	body, err := s.backend.GetStream(ctx, id)
	if err != nil {
		return nil, err
	}
	st := &Stream{Size: size, Remaining: remaining, body: body}
	if remaining == 0 {
		st.cleanup = func() { s.purge(ctx, id) }
	}
	s.logger.Info(ctx, "download granted", "id", id, "remaining", remaining)
	return st, nil
}

// SignedDownloadURL mints a direct GET URL for backends that support them,
// consuming one download slot. The mint precedes the reservation so a
// backend answering storage.ErrUnsupported costs nothing. Unlike Download
// the service cannot observe the read itself, so an exhausted record is
// left for the expiry sweep to reclaim instead of being purged here.
func (s *Service) SignedDownloadURL(ctx context.Context, id string) (string, error) {
	url, err := s.backend.SignedDownloadURL(ctx, id, s.signedURLExpiry)
	if err != nil {
		return "", err
	}
	remaining, err := s.store.ReserveDownload(ctx, id)
	if err != nil {
		return "", err
	}
	s.logger.Info(ctx, "signed download granted", "id", id, "remaining", remaining)
	return url, nil
}

// Delete removes a file at its owner's request. The record goes first,
// making the id unreachable, then the object. An object removal failure
// is logged and swallowed: the id can never serve another byte.
func (s *Service) Delete(ctx context.Context, id, ownerToken string) error {
	if err := s.store.DeleteOwned(ctx, id, ownerToken); err != nil {
		return err
	}
	if err := s.backend.Del(ctx, id); err != nil {
		s.logger.Error(ctx, "failed to delete object of removed file", "id", id, "error", err)
	}
	s.logger.Info(ctx, "file deleted by owner", "id", id)
	return nil
}

// purge removes the object and record of a file that served its last
// permitted download.
func (s *Service) purge(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), purgeTimeout)
	defer cancel()
	s.logger.Info(ctx, "purging exhausted file", "id", id)
	if err := s.backend.Del(ctx, id); err != nil {
		s.logger.Error(ctx, "failed to delete exhausted object", "id", id, "error", err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error(ctx, "failed to delete exhausted record", "id", id, "error", err)
	}
}
