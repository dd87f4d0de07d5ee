package meta

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/driftlabs/driftfile/internal/common"
)

// MemStore is an in-process Store used by tests and single-node development
// runs. Semantics mirror PostgresStore, including the atomic download
// reservation.
type MemStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]*Record)}
}

func (s *MemStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemStore) Close() error {
	return nil
}

func (s *MemStore) Create(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return common.ErrorAlreadyExists
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || !retrievable(rec, time.Now()) {
		return nil, common.ErrorNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemStore) ReserveDownload(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || !retrievable(rec, time.Now()) {
		return 0, common.ErrorNotFound
	}
	rec.DownloadCount++
	return rec.DownloadLimit - rec.DownloadCount, nil
}

func (s *MemStore) DeleteOwned(ctx context.Context, id, ownerToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return common.ErrorNotFound
	}
	if subtle.ConstantTimeCompare([]byte(rec.OwnerToken), []byte(ownerToken)) != 1 {
		return common.ErrorUnauthorized
	}
	delete(s.records, id)
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

func (s *MemStore) ExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, rec := range s.records {
		if len(ids) >= limit {
			break
		}
		if !rec.ExpiresAt.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func retrievable(rec *Record, now time.Time) bool {
	return rec.ExpiresAt.After(now) && rec.DownloadCount < rec.DownloadLimit
}
