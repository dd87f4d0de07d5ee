// Package ece describes the encrypted-content framing clients use when they
// stream files to the server. The server never encrypts or decrypts payload
// bytes; it only needs the record geometry so that multipart boundaries fall
// on whole encrypted records and resumed uploads never split a record across
// two storage parts.
package ece

const (
	// RecordSize is the number of plaintext bytes framed into one record.
	RecordSize = 64 * 1024

	// TagSize is the per-record authentication tag length in bytes.
	TagSize = 16

	// DelimiterSize is the single padding delimiter byte appended to each
	// record.
	DelimiterSize = 1

	// EncryptedRecordSize is the on-the-wire size of one full record.
	EncryptedRecordSize = RecordSize + TagSize + DelimiterSize
)

// AlignedPartSize returns the largest multiple of EncryptedRecordSize that
// does not exceed target. It returns 0 when target is smaller than a single
// encrypted record; callers validate their part-size configuration against
// that case.
func AlignedPartSize(target int64) int64 {
	if target < EncryptedRecordSize {
		return 0
	}
	return (target / EncryptedRecordSize) * EncryptedRecordSize
}

// EncryptedSize returns the framed size of an n-byte plaintext: every started
// record carries TagSize+DelimiterSize bytes of overhead, and an empty
// plaintext still produces one (padding-only) record.
func EncryptedSize(n int64) int64 {
	if n < 0 {
		return 0
	}
	records := n / RecordSize
	if n%RecordSize != 0 || n == 0 {
		records++
	}
	return n + records*(TagSize+DelimiterSize)
}
