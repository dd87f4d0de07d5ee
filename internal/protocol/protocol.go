// Package protocol defines the JSON messages and framing rules shared by the
// upload handler and the upload client: a single handshake message, a grant
// carrying the share URL, binary body frames terminated by a one-byte
// end-of-body marker, and a final ok/error reply.
package protocol

import (
	"errors"

	"github.com/driftlabs/driftfile/internal/common"
	"github.com/driftlabs/driftfile/internal/limit"
)

// Error codes carried in Reply.Error.
const (
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodePayloadTooLarge = 413
	CodeServerError     = 500
)

// UploadRequest is the one-shot handshake message opening an upload.
//
// FileMetadata is an opaque blob (encrypted by the client when Encrypted is
// set); the server stores it without parsing. Authorization carries the
// client's auth key and must be present when Encrypted is set. Bearer is an
// optional identity credential checked only when the server requires one.
// FileSize is the declared encrypted byte length; it selects the multipart
// path above the configured threshold and may be omitted (0), which forces
// single-object storage. TimeLimit is in seconds. A zero TimeLimit or
// DownloadLimit means "use the server default".
type UploadRequest struct {
	FileMetadata  string `json:"fileMetadata"`
	Authorization string `json:"authorization,omitempty"`
	Bearer        string `json:"bearer,omitempty"`
	FileSize      int64  `json:"fileSize,omitempty"`
	TimeLimit     int    `json:"timeLimit,omitempty"`
	DownloadLimit int    `json:"dlimit,omitempty"`
	Encrypted     bool   `json:"encrypted,omitempty"`
}

// Grant is the positive handshake reply. It is sent before any body byte is
// read so the client can recover the share link even if the transfer dies
// partway.
type Grant struct {
	URL        string `json:"url"`
	OwnerToken string `json:"ownerToken"`
	ID         string `json:"id"`
}

// Reply is the final acknowledgment of an upload, and also the shape of a
// rejected handshake.
type Reply struct {
	OK    bool `json:"ok,omitempty"`
	Error int  `json:"error,omitempty"`
}

// EOFMarker is the payload of the frame that ends the upload body. It is a
// single zero byte; zero-length frames remain ordinary (empty) body writes.
var EOFMarker = []byte{0}

// IsEOFMarker reports whether frame is the end-of-body marker.
func IsEOFMarker(frame []byte) bool {
	return len(frame) == 1 && frame[0] == 0
}

// ErrorCode maps an upload failure to the reply code sent to the client.
// Backend details never leak past this point: anything unclassified
// collapses to CodeServerError.
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrorIncorrectMetadata):
		return CodeBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return CodeUnauthorized
	case errors.Is(err, limit.ErrSizeLimit):
		return CodePayloadTooLarge
	default:
		return CodeServerError
	}
}
