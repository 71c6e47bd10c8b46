package pypindex

import (
	"context"
	"log/slog"
)

// Reindexer consumes storage mutation notifications and rebuilds the cached
// root index page. Notifications carry no payload: whatever changed, the
// correct response is always a full recompute from current storage state,
// which makes redelivery and reordering harmless.
type Reindexer struct {
	service *Service
	events  chan struct{}
}

// NewReindexer creates a Reindexer over the given service.
func NewReindexer(service *Service) *Reindexer {
	return &Reindexer{
		service: service,
		// Capacity 1 coalesces bursts: one pending notification is enough,
		// since a single recompute covers every mutation before it.
		events: make(chan struct{}, 1),
	}
}

// Notify records that something changed in storage. It never blocks; a
// notification arriving while one is already pending is absorbed into it.
func (r *Reindexer) Notify() {
	select {
	case r.events <- struct{}{}:
	default:
	}
}

// Run consumes notifications until ctx is cancelled, rebuilding the root
// index page for each. A failed rebuild is logged and dropped; the page
// stays at its previous complete version and the event source's retry (or
// simply the next mutation) repairs it. Returns ctx.Err on cancellation.
func (r *Reindexer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.events:
			if err := r.service.Reindex(ctx); err != nil {
				slog.Error("reindex failed", "err", err)
			}
		}
	}
}
