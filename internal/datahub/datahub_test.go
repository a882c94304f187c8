package datahub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgehunter/kernel/internal/snapshot"
)

func TestDataHub_GetLatestNilBeforePublish(t *testing.T) {
	h := New()
	assert.Nil(t, h.GetLatest())
}

func TestDataHub_PublishThenGetLatestReturnsSameValue(t *testing.T) {
	h := New()
	snap := &snapshot.Snapshot{SnapshotID: 1, RunID: "r1"}
	h.Publish(snap)
	assert.Same(t, snap, h.GetLatest())

	next := &snapshot.Snapshot{SnapshotID: 2, RunID: "r1"}
	h.Publish(next)
	assert.Equal(t, int64(2), h.GetLatest().SnapshotID)
}

func TestDataHub_ConcurrentPublishAndReadNeverObservesPartialState(t *testing.T) {
	h := New()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(1); i <= 200; i++ {
			h.Publish(&snapshot.Snapshot{SnapshotID: i, RunID: "r1"})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if snap := h.GetLatest(); snap != nil {
				assert.Equal(t, "r1", snap.RunID)
			}
		}
	}()

	wg.Wait()
	assert.Equal(t, int64(200), h.GetLatest().SnapshotID)
}
