// Package janitor reclaims dead state in the background: files whose
// records expired and multipart sessions whose resumption window lapsed.
package janitor

import (
	"context"
	"time"

	"github.com/driftlabs/driftfile/internal/logging"
	"github.com/driftlabs/driftfile/internal/meta"
	"github.com/driftlabs/driftfile/internal/multipart"
	"github.com/driftlabs/driftfile/internal/storage"
)

const sweepTimeout = 5 * time.Minute

// Janitor periodically removes expired files and aborts stale multipart
// sessions. Expiry of a record makes the file unreadable immediately; the
// janitor only reclaims the bytes.
type Janitor struct {
	store       meta.Store
	backend     storage.Backend
	coordinator *multipart.Coordinator
	interval    time.Duration
	batch       int
	logger      logging.Logger
}

func New(store meta.Store, backend storage.Backend, coordinator *multipart.Coordinator, interval time.Duration, batch int, logger logging.Logger) *Janitor {
	return &Janitor{
		store:       store,
		backend:     backend,
		coordinator: coordinator,
		interval:    interval,
		batch:       batch,
		logger:      logger,
	}
}

// Run sweeps on every interval tick until ctx is canceled. Each sweep gets
// its own deadline so shutdown never kills a deletion pair halfway.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			j.Sweep(sctx)
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

// Sweep removes up to the batch limit of expired files, object before
// record so a failed object deletion leaves the pair for the next sweep,
// then aborts multipart sessions past their deadline.
func (j *Janitor) Sweep(ctx context.Context) {
	now := time.Now()

	ids, err := j.store.ExpiredIDs(ctx, now, j.batch)
	if err != nil {
		j.logger.Error(ctx, "failed to list expired files", "error", err)
	}
	removed := 0
	for _, id := range ids {
		if err := j.backend.Del(ctx, id); err != nil {
			j.logger.Error(ctx, "failed to delete expired object", "id", id, "error", err)
			continue
		}
		if err := j.store.Delete(ctx, id); err != nil {
			j.logger.Error(ctx, "failed to delete expired record", "id", id, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		j.logger.Info(ctx, "expired files removed", "count", removed)
	}

	for _, sess := range j.coordinator.Expired(now) {
		j.coordinator.Abort(ctx, sess)
		j.logger.Info(ctx, "stale multipart session aborted", "id", sess.ID)
	}
}
