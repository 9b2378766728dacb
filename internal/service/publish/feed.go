package publish

import (
	"context"
	"fmt"
	"sync"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// Feed keeps the newest snapshot of every list for the HTTP API.
type Feed struct {
	mu    sync.RWMutex
	snaps map[string]model.Snapshot
}

func NewFeed() *Feed {
	return &Feed{snaps: make(map[string]model.Snapshot)}
}

// Publish stores snap unless a snapshot with the same or a higher sequence
// number is already held for its list.
func (f *Feed) Publish(_ context.Context, snap model.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := snap.Key()
	if cur, ok := f.snaps[key]; ok && cur.Seq >= snap.Seq {
		return fmt.Errorf("%s seq %d, holding %d: %w", key, snap.Seq, cur.Seq, ErrStale)
	}
	f.snaps[key] = snap
	return nil
}

func (f *Feed) Snapshot(chain model.Chain, kind model.FeedKind) (model.Snapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snap, ok := f.snaps[model.FeedKey(chain, kind)]
	return snap, ok
}
