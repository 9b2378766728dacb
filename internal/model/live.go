package model

import "time"

// FeedKind names a list the live pipeline keeps fresh.
type FeedKind string

const (
	FeedBlocks       FeedKind = "blocks"
	FeedTransactions FeedKind = "transactions"
)

func ParseFeedKind(s string) (FeedKind, bool) {
	switch FeedKind(s) {
	case FeedBlocks, FeedTransactions:
		return FeedKind(s), true
	}
	return "", false
}

type (
	// RefreshJob asks the fetchers to reload one list. Seq grows per chain
	// so results can be ordered no matter which worker finishes first.
	RefreshJob struct {
		Chain Chain
		Kind  FeedKind
		Limit int
		Seq   uint64
	}

	// Snapshot is one reload of a list. Fresh holds the IDs that were not in
	// the previous snapshot of the same list.
	Snapshot struct {
		Chain        Chain         `json:"chain"`
		Kind         FeedKind      `json:"kind"`
		Seq          uint64        `json:"seq"`
		FetchedAt    time.Time     `json:"fetchedAt"`
		Blocks       []Block       `json:"blocks,omitempty"`
		Transactions []Transaction `json:"transactions,omitempty"`
		Fresh        []string      `json:"fresh"`
	}
)

func FeedKey(chain Chain, kind FeedKind) string {
	return string(chain) + "/" + string(kind)
}

func (j RefreshJob) Key() string { return FeedKey(j.Chain, j.Kind) }

func (s Snapshot) Key() string { return FeedKey(s.Chain, s.Kind) }

// IDs lists the identifiers of the rows in order.
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.Blocks)+len(s.Transactions))
	for _, b := range s.Blocks {
		ids = append(ids, b.ID())
	}
	for _, t := range s.Transactions {
		ids = append(ids, t.ID())
	}
	return ids
}

// IsFresh reports whether id arrived with this snapshot.
func (s Snapshot) IsFresh(id string) bool {
	for _, f := range s.Fresh {
		if f == id {
			return true
		}
	}
	return false
}
