package transfer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driftlabs/driftfile/internal/common"
	"github.com/driftlabs/driftfile/internal/limit"
	"github.com/driftlabs/driftfile/internal/logging"
	"github.com/driftlabs/driftfile/internal/meta"
	"github.com/driftlabs/driftfile/internal/multipart"
	"github.com/driftlabs/driftfile/internal/protocol"
	"github.com/driftlabs/driftfile/internal/server/auth"
	"github.com/driftlabs/driftfile/internal/storage"
)

// State tracks one connection through the upload lifecycle.
type State int

const (
	StateAwaitingHandshake State = iota
	StateValidating
	StateAccepted
	StateRejected
	StateStreaming
	StateCompleted
	StateFailed
	StateClosed
)

const cleanupTimeout = 30 * time.Second

const nonceSize = 16

var errClientGone = errors.New("client closed connection mid-upload")

// Options carries the limits and identity settings the handler enforces.
type Options struct {
	BaseURL            string
	MaxFileSize        int64
	MaxExpiry          time.Duration
	DefaultExpiry      time.Duration
	MaxDownloads       int
	DefaultDownloads   int
	MultipartThreshold int64
	RequireBearer      bool
	BearerSecret       []byte
}

// Handler drives exactly one connection. Handlers share no mutable state
// with each other; the stores they write to are safe for concurrent use
// across distinct ids.
type Handler struct {
	conn        Conn
	store       meta.Store
	backend     storage.Backend
	coordinator *multipart.Coordinator
	opts        Options
	logger      logging.Logger

	state State
}

func NewHandler(conn Conn, store meta.Store, backend storage.Backend, coordinator *multipart.Coordinator, opts Options, logger logging.Logger) *Handler {
	return &Handler{
		conn:        conn,
		store:       store,
		backend:     backend,
		coordinator: coordinator,
		opts:        opts,
		logger:      logger,
		state:       StateAwaitingHandshake,
	}
}

// State reports the handler's current lifecycle state.
func (h *Handler) State() State {
	return h.state
}

// Serve runs the connection to completion and closes it. The handshake,
// validation and streaming stages are strictly sequential; the body itself
// is a pipeline whose back-pressure is the pipe's, so a slow backend
// throttles the client instead of buffering frames.
func (h *Handler) Serve(ctx context.Context) {
	defer func() {
		_ = h.conn.Close()
		h.state = StateClosed
	}()

	_, raw, err := h.conn.ReadMessage()
	if err != nil {
		// transport died before its single handshake message
		return
	}

	h.state = StateValidating
	var req protocol.UploadRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.reject(ctx, protocol.CodeBadRequest)
		return
	}
	expiry, downloads, code := h.validate(&req)
	if code != 0 {
		h.reject(ctx, code)
		return
	}

	id, err := common.MakeRandHexString(8)
	if err != nil {
		h.logger.Error(ctx, "failed to generate file id", "error", err)
		h.fail(ctx, "", protocol.CodeServerError)
		return
	}
	// An unencrypted record carries no auth tag even when the client sent
	// one; Encrypted=false is the sentinel for passthrough payloads.
	var authTag string
	if req.Encrypted {
		authTag = authKey(req.Authorization)
	}
	now := time.Now()
	rec := &meta.Record{
		ID:            id,
		OwnerToken:    uuid.NewString(),
		Metadata:      req.FileMetadata,
		AuthTag:       authTag,
		Nonce:         base64.StdEncoding.EncodeToString(common.GenerateRandByteArray(nonceSize)),
		DownloadLimit: downloads,
		Encrypted:     req.Encrypted,
		CreatedAt:     now,
		ExpiresAt:     now.Add(expiry),
	}
	if err := h.store.Create(ctx, rec); err != nil {
		h.logger.Error(ctx, "failed to create file record", "id", id, "error", err)
		h.fail(ctx, "", protocol.CodeServerError)
		return
	}

	h.state = StateAccepted
	grant := protocol.Grant{
		URL:        fmt.Sprintf("%s/download/%s/", strings.TrimSuffix(h.opts.BaseURL, "/"), id),
		OwnerToken: rec.OwnerToken,
		ID:         id,
	}
	if err := h.conn.WriteJSON(grant); err != nil {
		h.cleanup(ctx, id)
		return
	}
	h.logger.Info(ctx, "upload accepted", "id", id, "declared_size", req.FileSize, "encrypted", req.Encrypted)

	h.state = StateStreaming
	received, err := h.stream(ctx, id, req.FileSize)
	switch {
	case err == nil:
		h.state = StateCompleted
		h.reply(ctx, protocol.Reply{OK: true})
		h.logger.Info(ctx, "upload completed", "id", id, "bytes", received)
	case errors.Is(err, errClientGone):
		// cancellation is not an error condition reported to the client
		h.state = StateFailed
		h.cleanup(ctx, id)
		h.logger.Debug(ctx, "upload canceled by client", "id", id, "bytes", received)
	case errors.Is(err, limit.ErrSizeLimit):
		h.state = StateFailed
		h.cleanup(ctx, id)
		h.reply(ctx, protocol.Reply{Error: protocol.CodePayloadTooLarge})
		h.logger.Info(ctx, "upload exceeded size limit", "id", id, "limit", h.opts.MaxFileSize)
	default:
		h.state = StateFailed
		h.cleanup(ctx, id)
		h.reply(ctx, protocol.Reply{Error: protocol.CodeServerError})
		h.logger.Error(ctx, "upload failed", "id", id, "error", err)
	}
}

// validate resolves defaults and bounds-checks the handshake. It returns the
// effective expiry and download limit, or a non-zero reject code.
func (h *Handler) validate(req *protocol.UploadRequest) (time.Duration, int, int) {
	if req.FileMetadata == "" {
		return 0, 0, protocol.CodeBadRequest
	}
	if req.Encrypted && req.Authorization == "" {
		return 0, 0, protocol.CodeBadRequest
	}

	expiry := time.Duration(req.TimeLimit) * time.Second
	if expiry == 0 {
		expiry = h.opts.DefaultExpiry
	}
	if expiry < 0 || expiry > h.opts.MaxExpiry {
		return 0, 0, protocol.CodeBadRequest
	}

	downloads := req.DownloadLimit
	if downloads == 0 {
		downloads = h.opts.DefaultDownloads
	}
	if downloads < 0 || downloads > h.opts.MaxDownloads {
		return 0, 0, protocol.CodeBadRequest
	}

	if req.FileSize < 0 || req.FileSize > h.opts.MaxFileSize {
		return 0, 0, protocol.CodeBadRequest
	}

	if h.opts.RequireBearer {
		if req.Bearer == "" {
			return 0, 0, protocol.CodeUnauthorized
		}
		if _, err := auth.GetUserIDFromToken(req.Bearer, h.opts.BearerSecret); err != nil {
			return 0, 0, protocol.CodeUnauthorized
		}
	}

	return expiry, downloads, 0
}

// authKey strips the auth scheme prefix from a handshake authorization
// value, keeping only the base64 verification key.
func authKey(authorization string) string {
	fields := strings.Fields(authorization)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// stream pumps body frames into the persistence pipeline until the
// end-of-body marker. It returns the byte count seen and nil on success,
// errClientGone on transport loss, limit.ErrSizeLimit on a limiter trip, or
// the backend's error. Exactly one persistence call is in flight; it is
// always unwound before stream returns.
func (h *Handler) stream(ctx context.Context, id string, declaredSize int64) (int64, error) {
	pr, pw := io.Pipe()
	limiter := limit.NewReader(pr, h.opts.MaxFileSize)

	storeErr := make(chan error, 1)
	go func() {
		err := h.persist(ctx, id, limiter, declaredSize)
		// unblock the frame loop if it is still writing
		pr.CloseWithError(err)
		storeErr <- err
	}()

	// SDK wrappers may bury the limiter's error, so the trip is checked
	// directly before classifying the persistence result.
	finish := func(serr error) error {
		if limiter.Exceeded() {
			return limit.ErrSizeLimit
		}
		return serr
	}

	for {
		_, frame, err := h.conn.ReadMessage()
		if err != nil {
			pw.CloseWithError(errClientGone)
			<-storeErr
			return limiter.N(), errClientGone
		}
		if protocol.IsEOFMarker(frame) {
			pw.Close()
			break
		}
		if _, err := pw.Write(frame); err != nil {
			// the consumer is gone: limiter trip or backend failure
			return limiter.N(), finish(<-storeErr)
		}
	}
	return limiter.N(), finish(<-storeErr)
}

// persist writes the body through the backend. Declared sizes above the
// multipart threshold go through the coordinator; backends without
// multipart support fall back to single-object storage.
func (h *Handler) persist(ctx context.Context, id string, r io.Reader, declaredSize int64) error {
	if h.coordinator != nil && declaredSize > h.opts.MultipartThreshold {
		err := h.coordinator.Upload(ctx, id, r)
		if err == nil || !errors.Is(err, storage.ErrUnsupported) {
			return err
		}
	}
	return h.backend.Set(ctx, id, r)
}

// reject sends the handshake error reply. No record exists yet.
func (h *Handler) reject(ctx context.Context, code int) {
	h.state = StateRejected
	h.reply(ctx, protocol.Reply{Error: code})
}

// fail replies with an error for a post-validation failure, cleaning up the
// record when one was created.
func (h *Handler) fail(ctx context.Context, id string, code int) {
	h.state = StateFailed
	if id != "" {
		h.cleanup(ctx, id)
	}
	h.reply(ctx, protocol.Reply{Error: code})
}

// reply sends a final JSON message. Only terminal states owe the client a
// reply; a connection the client already dropped fails the write, which is
// exactly the "no reply after abort" behavior the protocol wants.
func (h *Handler) reply(ctx context.Context, r protocol.Reply) {
	switch h.state {
	case StateRejected, StateCompleted, StateFailed:
		if err := h.conn.WriteJSON(r); err != nil {
			h.logger.Debug(ctx, "failed to send final reply", "error", err)
		}
	default:
	}
}

// cleanup removes the file record of an upload that will never complete.
// Partial objects are already gone: Set, the uploader and the coordinator
// each remove what they wrote before returning an error.
func (h *Handler) cleanup(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := h.store.Delete(ctx, id); err != nil {
		h.logger.Error(ctx, "failed to delete record of failed upload", "id", id, "error", err)
	}
}
