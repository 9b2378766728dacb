package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// StartArrivalFilter marks the rows of each snapshot that were not in the
// previous snapshot of the same list. The first snapshot of a list has no
// fresh rows. Snapshots older than one already passed are dropped.
func StartArrivalFilter(
	ctx context.Context,
	in <-chan model.Snapshot,
	logger zerolog.Logger,
) <-chan model.Snapshot {
	out := make(chan model.Snapshot, 100)

	go func() {
		defer close(out)

		previous := make(map[string]map[string]bool)
		lastSeq := make(map[string]uint64)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-in:
				if !ok {
					return
				}
				key := snap.Key()
				if seq, seen := lastSeq[key]; seen && snap.Seq <= seq {
					logger.Debug().Str("list", key).Uint64("seq", snap.Seq).Uint64("last", seq).Msg("dropping stale snapshot")
					continue
				}
				lastSeq[key] = snap.Seq

				ids := snap.IDs()
				prev, seen := previous[key]
				snap.Fresh = FreshIDs(prev, ids, seen)
				current := make(map[string]bool, len(ids))
				for _, id := range ids {
					current[id] = true
				}
				previous[key] = current

				select {
				case <-ctx.Done():
					return
				case out <- snap:
				}
			}
		}
	}()

	return out
}

// FreshIDs returns the ids missing from prev, in order. Nothing is fresh when
// there is no previous list to compare with.
func FreshIDs(prev map[string]bool, ids []string, hasPrev bool) []string {
	fresh := []string{}
	if !hasPrev {
		return fresh
	}
	for _, id := range ids {
		if !prev[id] {
			fresh = append(fresh, id)
		}
	}
	return fresh
}
