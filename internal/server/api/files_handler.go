package api

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/driftlabs/driftfile/internal/common"
	"github.com/driftlabs/driftfile/internal/logging"
	"github.com/driftlabs/driftfile/internal/meta"
	"github.com/driftlabs/driftfile/internal/server/files"
	"github.com/driftlabs/driftfile/internal/storage"
)

var idPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// FilesHandler serves the retrieval endpoints over the files service.
type FilesHandler struct {
	files  *files.Service
	logger logging.Logger
}

func NewFilesHandler(files *files.Service, logger logging.Logger) *FilesHandler {
	return &FilesHandler{files: files, logger: logger}
}

// --- DTOs ---

// MetadataResponse describes a retrievable file. TTL is milliseconds until
// expiry; FinalDownload tells the client the download it is about to start
// is the last one permitted.
type MetadataResponse struct {
	Metadata      string `json:"metadata"`
	Size          int64  `json:"size"`
	TTL           int64  `json:"ttl"`
	FinalDownload bool   `json:"finalDownload"`
}

// ExistsResponse is the unauthenticated probe answer.
type ExistsResponse struct {
	Encrypted bool `json:"encrypted"`
}

// DeleteRequest carries the owner token proving deletion rights.
type DeleteRequest struct {
	OwnerToken string `json:"owner_token" binding:"required"`
}

// --- helpers ---

// fileID validates the :id path parameter. Malformed ids read as absent
// files rather than validation errors, leaking nothing about id shape.
func fileID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !idPattern.MatchString(id) {
		abortWithError(c, http.StatusNotFound, "file not found")
		return "", false
	}
	return id, true
}

// challenge advertises the signing nonce for an encrypted record so the
// client can produce the download authorization header.
func challenge(c *gin.Context, rec *meta.Record) {
	if rec.Encrypted {
		c.Header("WWW-Authenticate", common.AuthScheme+" "+rec.Nonce)
	}
}

// authorize runs the service check and writes the 401/500 response on
// failure. It reports whether the request may proceed.
func (h *FilesHandler) authorize(c *gin.Context, rec *meta.Record) bool {
	err := h.files.Authorize(rec, c.GetHeader("Authorization"))
	if err == nil {
		return true
	}
	if errors.Is(err, common.ErrorUnauthorized) {
		challenge(c, rec)
		abortWithError(c, http.StatusUnauthorized, "missing or invalid authorization")
	} else {
		h.logger.Error(c.Request.Context(), "authorization check failed", "id", rec.ID, "error", err)
		abortWithError(c, http.StatusInternalServerError, "internal error")
	}
	return false
}

// --- handlers ---

// Exists answers whether id is still retrievable and, for encrypted files,
// hands out the signing nonce.
func (h *FilesHandler) Exists(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}
	rec, err := h.files.Metadata(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			abortWithError(c, http.StatusNotFound, "file not found")
		} else {
			h.logger.Error(c.Request.Context(), "metadata lookup failed", "id", id, "error", err)
			abortWithError(c, http.StatusInternalServerError, "internal error")
		}
		return
	}
	challenge(c, rec)
	c.JSON(http.StatusOK, ExistsResponse{Encrypted: rec.Encrypted})
}

// Metadata returns the client-supplied metadata blob plus size and expiry
// accounting. Encrypted files require the signed authorization header.
func (h *FilesHandler) Metadata(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	rec, err := h.files.Metadata(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			abortWithError(c, http.StatusNotFound, "file not found")
		} else {
			h.logger.Error(ctx, "metadata lookup failed", "id", id, "error", err)
			abortWithError(c, http.StatusInternalServerError, "internal error")
		}
		return
	}
	if !h.authorize(c, rec) {
		return
	}
	size, err := h.files.Size(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			abortWithError(c, http.StatusNotFound, "file not found")
		} else {
			h.logger.Error(ctx, "size lookup failed", "id", id, "error", err)
			abortWithError(c, http.StatusInternalServerError, "internal error")
		}
		return
	}
	c.JSON(http.StatusOK, MetadataResponse{
		Metadata:      rec.Metadata,
		Size:          size,
		TTL:           time.Until(rec.ExpiresAt).Milliseconds(),
		FinalDownload: rec.Remaining() == 1,
	})
}

// Download serves the payload. Backends with presigned GETs answer with a
// redirect; the filesystem backend streams through the server. Either way
// the download slot is reserved atomically before any byte or URL leaves.
func (h *FilesHandler) Download(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	rec, err := h.files.Metadata(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			abortWithError(c, http.StatusNotFound, "file not found")
		} else {
			h.logger.Error(ctx, "metadata lookup failed", "id", id, "error", err)
			abortWithError(c, http.StatusInternalServerError, "internal error")
		}
		return
	}
	if !h.authorize(c, rec) {
		return
	}

	url, err := h.files.SignedDownloadURL(ctx, id)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, url)
		return
	case errors.Is(err, storage.ErrUnsupported):
		// fall through to streaming
	case errors.Is(err, common.ErrorNotFound):
		abortWithError(c, http.StatusNotFound, "file not found")
		return
	default:
		h.logger.Error(ctx, "signed download failed", "id", id, "error", err)
		abortWithError(c, http.StatusInternalServerError, "internal error")
		return
	}

	st, err := h.files.Download(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			abortWithError(c, http.StatusNotFound, "file not found")
		} else {
			h.logger.Error(ctx, "download failed", "id", id, "error", err)
			abortWithError(c, http.StatusInternalServerError, "internal error")
		}
		return
	}
	defer st.Close()
	c.DataFromReader(http.StatusOK, st.Size, "application/octet-stream", st, nil)
}

// Delete removes a file at its owner's request.
func (h *FilesHandler) Delete(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "owner_token is required")
		return
	}
	ctx := c.Request.Context()
	if err := h.files.Delete(ctx, id, req.OwnerToken); err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			abortWithError(c, http.StatusNotFound, "file not found")
		case errors.Is(err, common.ErrorUnauthorized):
			abortWithError(c, http.StatusUnauthorized, "owner token does not match")
		default:
			h.logger.Error(ctx, "delete failed", "id", id, "error", err)
			abortWithError(c, http.StatusInternalServerError, "internal error")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
