package publish

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

func snapshot(seq uint64, ids ...string) model.Snapshot {
	snap := model.Snapshot{Chain: model.ChainBitcoin, Kind: model.FeedTransactions, Seq: seq}
	for _, id := range ids {
		snap.Transactions = append(snap.Transactions, model.Transaction{Hash: id})
	}
	return snap
}

func TestFeedKeepsNewest(t *testing.T) {
	feed := NewFeed()
	ctx := context.Background()

	if err := feed.Publish(ctx, snapshot(2, "b")); err != nil {
		t.Fatalf("Publish(2) error = %v", err)
	}
	if err := feed.Publish(ctx, snapshot(1, "a")); !errors.Is(err, ErrStale) {
		t.Errorf("Publish(1) error = %v, want ErrStale", err)
	}
	if err := feed.Publish(ctx, snapshot(2, "c")); !errors.Is(err, ErrStale) {
		t.Errorf("Publish(2 again) error = %v, want ErrStale", err)
	}

	got, ok := feed.Snapshot(model.ChainBitcoin, model.FeedTransactions)
	if !ok || got.Seq != 2 || got.Transactions[0].Hash != "b" {
		t.Errorf("Snapshot() = %+v, %v", got, ok)
	}
	if _, ok := feed.Snapshot(model.ChainEthereum, model.FeedBlocks); ok {
		t.Error("unexpected snapshot for ethereum blocks")
	}
}

type failing struct{ err error }

func (f failing) Publish(context.Context, model.Snapshot) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	feed := NewFeed()
	m := Multi{failing{boom}, feed}

	err := m.Publish(context.Background(), snapshot(1, "a"))
	if !errors.Is(err, boom) {
		t.Errorf("Multi.Publish() error = %v, want boom", err)
	}
	if _, ok := feed.Snapshot(model.ChainBitcoin, model.FeedTransactions); !ok {
		t.Error("feed skipped after a failing publisher")
	}
	if err := (Multi{feed}).Publish(context.Background(), snapshot(3, "a")); err != nil {
		t.Errorf("Multi.Publish() error = %v", err)
	}
}

func TestLogPublisherOnlyLogsFreshRows(t *testing.T) {
	var buf bytes.Buffer
	p := &LogPublisher{Logger: zerolog.New(&buf)}

	_ = p.Publish(context.Background(), snapshot(1, "a"))
	if buf.Len() != 0 {
		t.Errorf("logged without fresh rows: %s", buf.String())
	}

	snap := snapshot(2, "a", "b")
	snap.Fresh = []string{"b"}
	_ = p.Publish(context.Background(), snap)
	if !strings.Contains(buf.String(), `"fresh":["b"]`) {
		t.Errorf("log line = %s", buf.String())
	}
}
