package multipart

import (
	"fmt"
	"sync"
	"time"

	"github.com/driftlabs/driftfile/internal/common"
	"github.com/driftlabs/driftfile/internal/storage"
)

// Session tracks one resumable multipart upload. Part numbers start at 1.
// Completed parts are applied strictly in order; acknowledgments that arrive
// ahead of their predecessors are buffered until the gap closes.
type Session struct {
	ID       string
	UploadID string
	PartSize int64
	Size     int64
	Deadline time.Time

	mu      sync.Mutex
	parts   []storage.CompletedPart
	pending map[int32]string
	failed  bool
}

func NewSession(id, uploadID string, partSize, size int64, deadline time.Time) *Session {
	return &Session{
		ID:       id,
		UploadID: uploadID,
		PartSize: partSize,
		Size:     size,
		Deadline: deadline,
		pending:  make(map[int32]string),
	}
}

// PartCount is the number of parts the declared size splits into.
func (s *Session) PartCount() int32 {
	return int32((s.Size + s.PartSize - 1) / s.PartSize)
}

// Ack records the backend acknowledgment for one uploaded part. The part is
// appended to the completed list once every lower-numbered part is there too.
func (s *Session) Ack(number int32, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed {
		return fmt.Errorf("%w: upload session is no longer valid", common.ErrorValidation)
	}
	if number < 1 || number > s.PartCount() {
		return fmt.Errorf("%w: part number %d out of range", common.ErrorValidation, number)
	}
	if int32(len(s.parts)) >= number {
		return fmt.Errorf("%w: part %d already completed", common.ErrorValidation, number)
	}
	if _, ok := s.pending[number]; ok {
		return fmt.Errorf("%w: part %d already acknowledged", common.ErrorValidation, number)
	}

	s.pending[number] = tag
	for {
		next := int32(len(s.parts)) + 1
		t, ok := s.pending[next]
		if !ok {
			break
		}
		delete(s.pending, next)
		s.parts = append(s.parts, storage.CompletedPart{Number: next, Tag: t})
	}
	return nil
}

// Complete reports whether every part has been acknowledged and applied.
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int32(len(s.parts)) == s.PartCount()
}

// Parts returns the completed parts applied so far, in part-number order.
func (s *Session) Parts() []storage.CompletedPart {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.CompletedPart, len(s.parts))
	copy(out, s.parts)
	return out
}

// Fail marks the session invalid. Subsequent acknowledgments are rejected.
func (s *Session) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = true
}

func (s *Session) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}
