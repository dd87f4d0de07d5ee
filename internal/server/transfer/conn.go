// Package transfer implements the per-connection upload protocol: a one-shot
// JSON handshake, binary body frames ending in a single zero-byte marker, and
// a final ok/error reply. One Handler drives exactly one connection.
package transfer

// Conn is the slice of a websocket connection the handler needs. A
// *gorilla/websocket.Conn satisfies it directly; tests drive the state
// machine with an in-memory fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}
