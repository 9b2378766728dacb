package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/config"
	data_layer "github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/service/publish"
)

// fakeExplorer grows the chain by one block per LatestBlocks call.
type fakeExplorer struct {
	mu     sync.Mutex
	height int64
}

func (f *fakeExplorer) Chain() model.Chain { return model.ChainEthereum }

func (f *fakeExplorer) LatestHeight(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height, nil
}

func (f *fakeExplorer) LatestBlocks(_ context.Context, limit int) ([]model.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.height++
	var blocks []model.Block
	for i := 0; i < limit; i++ {
		blocks = append(blocks, model.Block{Chain: model.ChainEthereum, Height: f.height - int64(i)})
	}
	return blocks, nil
}

func (f *fakeExplorer) Block(context.Context, string) (model.Block, error) {
	return model.Block{}, nil
}

func (f *fakeExplorer) LatestTransactions(context.Context, int) ([]model.Transaction, error) {
	return []model.Transaction{{Hash: "0xabc"}}, nil
}

func (f *fakeExplorer) Transaction(context.Context, string) (model.Transaction, error) {
	return model.Transaction{}, nil
}

func (f *fakeExplorer) Address(context.Context, string) (model.Address, error) {
	return model.Address{}, nil
}

func (f *fakeExplorer) AddressTransactions(context.Context, string, int) ([]model.AddressTransaction, error) {
	return nil, nil
}

func TestRefreshCoordinatorSkipsInFlight(t *testing.T) {
	c := &RefreshCoordinator{
		Chain:  model.ChainBitcoin,
		Kinds:  []model.FeedKind{model.FeedBlocks, model.FeedTransactions},
		Limit:  5,
		Out:    make(chan model.RefreshJob, 10),
		Logger: zerolog.Nop(),
	}
	ctx := context.Background()

	c.emit(ctx)
	c.emit(ctx)
	if len(c.Out) != 2 {
		t.Fatalf("queued %d jobs, want 2", len(c.Out))
	}
	first := <-c.Out
	<-c.Out
	if first.Kind != model.FeedBlocks || first.Seq != 1 || first.Limit != 5 {
		t.Errorf("first job = %+v", first)
	}

	c.Done(first)
	c.emit(ctx)
	if len(c.Out) != 1 {
		t.Fatalf("queued %d jobs after Done, want 1", len(c.Out))
	}
	if job := <-c.Out; job.Kind != model.FeedBlocks || job.Seq != 3 {
		t.Errorf("job after Done = %+v", job)
	}
}

func TestArrivalFilterMarksNewRows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan model.Snapshot, 4)
	out := StartArrivalFilter(ctx, in, zerolog.Nop())

	blocks := func(seq uint64, heights ...int64) model.Snapshot {
		snap := model.Snapshot{Chain: model.ChainBitcoin, Kind: model.FeedBlocks, Seq: seq}
		for _, h := range heights {
			snap.Blocks = append(snap.Blocks, model.Block{Height: h})
		}
		return snap
	}
	in <- blocks(1, 10, 9)
	in <- blocks(3, 12, 11, 10)
	in <- blocks(2, 11, 10, 9)
	in <- blocks(4, 12, 11, 10)
	close(in)

	var got []model.Snapshot
	for snap := range out {
		got = append(got, snap)
	}
	if len(got) != 3 {
		t.Fatalf("got %d snapshots, want 3 (stale one dropped)", len(got))
	}
	if len(got[0].Fresh) != 0 {
		t.Errorf("first snapshot fresh = %v, want none", got[0].Fresh)
	}
	if fmt.Sprint(got[1].Fresh) != "[12 11]" {
		t.Errorf("second snapshot fresh = %v, want [12 11]", got[1].Fresh)
	}
	if len(got[2].Fresh) != 0 || !got[1].IsFresh("12") {
		t.Errorf("third snapshot fresh = %v", got[2].Fresh)
	}
}

func TestFreshIDs(t *testing.T) {
	prev := map[string]bool{"a": true, "b": true}
	if got := FreshIDs(prev, []string{"c", "a", "d"}, true); fmt.Sprint(got) != "[c d]" {
		t.Errorf("FreshIDs() = %v", got)
	}
	if got := FreshIDs(nil, []string{"a"}, false); got == nil || len(got) != 0 {
		t.Errorf("FreshIDs() without previous = %#v, want empty slice", got)
	}
}

func TestRunPipelinePublishesSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	feed := publish.NewFeed()
	chains := []ChainPipeline{{
		Explorer: &fakeExplorer{height: 100},
		Kinds:    []model.FeedKind{model.FeedBlocks, model.FeedTransactions},
		Limit:    3,
		Workers:  2,
		Interval: 5 * time.Millisecond,
	}}

	done := make(chan struct{})
	go func() {
		RunPipeline(ctx, feed, chains, zerolog.Nop())
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		snap, ok := feed.Snapshot(model.ChainEthereum, model.FeedBlocks)
		if ok && len(snap.Fresh) > 0 {
			if snap.Blocks[0].ID() != snap.Fresh[0] {
				t.Errorf("fresh = %v, newest block %s", snap.Fresh, snap.Blocks[0].ID())
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("no snapshot with fresh blocks published")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if _, ok := feed.Snapshot(model.ChainEthereum, model.FeedTransactions); !ok {
		t.Error("transactions snapshot missing")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancel")
	}
}

func TestPipelinesFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte("chains:\n  - chain: ethereum\n  - chain: bitcoin\n    list_limit: 25\n"))
	if err != nil {
		t.Fatal(err)
	}
	explorers := map[model.Chain]data_layer.ChainExplorer{model.ChainEthereum: &fakeExplorer{}}

	chains := PipelinesFromConfig(cfg, explorers, zerolog.Nop())
	if len(chains) != 1 {
		t.Fatalf("got %d pipelines, want 1", len(chains))
	}
	if chains[0].Limit != 10 || chains[0].Interval != 10*time.Second || len(chains[0].Kinds) != 2 {
		t.Errorf("pipeline = %+v", chains[0])
	}
}
