// Package meta owns the File Record: the server-side row describing one
// stored blob and the rules deciding whether it may still be retrieved.
// Payload bytes never pass through here; records carry only opaque client
// metadata plus expiry and download-count accounting.
package meta

import "time"

// Record describes one stored blob.
//
// Metadata, AuthTag and Nonce are opaque client-supplied values; the server
// stores and returns them without parsing. AuthTag is empty exactly when
// Encrypted is false. ExpiresAt is fixed at creation and never extended.
// DownloadCount only ever increases, and a record with
// DownloadCount == DownloadLimit is logically absent for reads even while
// the backend object still exists.
type Record struct {
	ID            string
	OwnerToken    string
	Metadata      string
	AuthTag       string
	Nonce         string
	DownloadLimit int
	DownloadCount int
	Encrypted     bool
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Remaining returns how many downloads the record has left.
func (r *Record) Remaining() int {
	n := r.DownloadLimit - r.DownloadCount
	if n < 0 {
		return 0
	}
	return n
}
