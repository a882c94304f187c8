// Package datahub implements the single atomic handle through which the
// engine loop publishes snapshots and any number of readers observe them,
// per spec.md §4.3: exactly one writer, lock-free for readers.
package datahub

import (
	"sync/atomic"

	"github.com/edgehunter/kernel/internal/snapshot"
)

// DataHub holds the latest published Snapshot behind an atomic pointer.
// Zero value is ready to use; GetLatest returns nil until the first Publish.
type DataHub struct {
	latest atomic.Pointer[snapshot.Snapshot]
}

// New returns an empty DataHub.
func New() *DataHub { return &DataHub{} }

// Publish atomically replaces the current snapshot. The Snapshot must not be
// mutated by the caller after this call.
func (h *DataHub) Publish(s *snapshot.Snapshot) {
	h.latest.Store(s)
}

// GetLatest returns the most recently published snapshot, or nil if nothing
// has been published yet. The returned pointer is safe to read concurrently
// with further Publish calls: it always refers to a complete, immutable
// Snapshot value.
func (h *DataHub) GetLatest() *snapshot.Snapshot {
	return h.latest.Load()
}
