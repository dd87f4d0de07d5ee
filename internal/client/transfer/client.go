// Package transfer implements the upload side of the wire protocol: one
// handshake message, binary body frames, the end-of-body marker and the
// final acknowledgment.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/driftlabs/driftfile/internal/protocol"
)

// FrameSize is how many payload bytes ride in one websocket frame.
const FrameSize = 64 * 1024

// Sentinel errors mapped from the server's reply codes.
var (
	ErrRejected     = errors.New("upload rejected")
	ErrUnauthorized = errors.New("upload unauthorized")
	ErrTooLarge     = errors.New("upload exceeds size limit")
	ErrServer       = errors.New("server error")
)

// Options carries the handshake fields of one upload. TimeLimit is in
// seconds; zero TimeLimit or DownloadLimit asks for the server default.
type Options struct {
	Metadata      string
	Authorization string
	Bearer        string
	FileSize      int64
	TimeLimit     int
	DownloadLimit int
	Encrypted     bool
}

// Client uploads payloads to one server.
type Client struct {
	serverURL string
	dialer    *websocket.Dialer
}

func NewClient(serverURL string) *Client {
	return &Client{serverURL: serverURL, dialer: websocket.DefaultDialer}
}

// wsEndpoint rewrites the server base URL into the websocket upload
// endpoint, mapping http(s) onto ws(s).
func (c *Client) wsEndpoint() (string, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/ws"
	return u.String(), nil
}

// Upload streams r through one protocol exchange. The grant arrives before
// the body is sent, so it is returned even when the transfer itself fails
// later; callers can keep the share link of a partial upload they intend to
// retry.
func (c *Client) Upload(ctx context.Context, r io.Reader, opts Options) (*protocol.Grant, error) {
	endpoint, err := c.wsEndpoint()
	if err != nil {
		return nil, err
	}
	conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	req := protocol.UploadRequest{
		FileMetadata:  opts.Metadata,
		Authorization: opts.Authorization,
		Bearer:        opts.Bearer,
		FileSize:      opts.FileSize,
		TimeLimit:     opts.TimeLimit,
		DownloadLimit: opts.DownloadLimit,
		Encrypted:     opts.Encrypted,
	}
	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("sending handshake: %w", err)
	}

	// The first reply is either the grant or a rejection.
	var hello struct {
		protocol.Grant
		Error int `json:"error"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		return nil, fmt.Errorf("reading grant: %w", err)
	}
	if hello.Error != 0 {
		return nil, replyError(hello.Error)
	}
	grant := hello.Grant

	buf := make([]byte, FrameSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return &grant, fmt.Errorf("sending body frame: %w", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return &grant, fmt.Errorf("reading payload: %w", rerr)
		}
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, protocol.EOFMarker); err != nil {
		return &grant, fmt.Errorf("sending end marker: %w", err)
	}

	var reply protocol.Reply
	if err := conn.ReadJSON(&reply); err != nil {
		return &grant, fmt.Errorf("reading final reply: %w", err)
	}
	if !reply.OK {
		return &grant, replyError(reply.Error)
	}
	return &grant, nil
}

func replyError(code int) error {
	switch code {
	case protocol.CodeBadRequest:
		return ErrRejected
	case protocol.CodeUnauthorized:
		return ErrUnauthorized
	case protocol.CodePayloadTooLarge:
		return ErrTooLarge
	default:
		return ErrServer
	}
}
