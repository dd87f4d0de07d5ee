// Package limit enforces a byte ceiling on streamed uploads. The ceiling
// applies to the encrypted byte count, since the stored object is the
// encrypted representation and limits must bound actual storage consumption.
package limit

import (
	"errors"
	"io"
)

// ErrSizeLimit is the failure a stream reports once it attempts to carry
// more bytes than the configured ceiling.
var ErrSizeLimit = errors.New("size limit exceeded")

// Reader wraps an io.Reader and counts the bytes passing through. A chunk is
// forwarded unchanged only while the running total stays at or below max; the
// chunk that would cross the ceiling is discarded and Read fails with
// ErrSizeLimit, as does every Read after that. The check is per chunk and
// nothing is buffered.
type Reader struct {
	r       io.Reader
	max     int64
	n       int64
	tripped bool
}

// NewReader returns a Reader that fails the stream once more than max bytes
// have been read from r.
func NewReader(r io.Reader, max int64) *Reader {
	return &Reader{r: r, max: max}
}

func (l *Reader) Read(p []byte) (int, error) {
	if l.tripped {
		return 0, ErrSizeLimit
	}
	n, err := l.r.Read(p)
	if n > 0 {
		if l.n+int64(n) > l.max {
			l.tripped = true
			return 0, ErrSizeLimit
		}
		l.n += int64(n)
	}
	return n, err
}

// N reports the number of bytes forwarded so far.
func (l *Reader) N() int64 {
	return l.n
}

// Exceeded reports whether the ceiling was crossed. Consumers that wrap or
// replace the Read error (object-store SDKs do) can still classify the
// failure through this method.
func (l *Reader) Exceeded() bool {
	return l.tripped
}
