package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	data_layer "github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// StartChainFetcher runs workers that turn refresh jobs into snapshots. done is
// called for every job once it has been handled, successful or not. out is
// closed when all workers have stopped.
func StartChainFetcher(
	ctx context.Context,
	explorer data_layer.ChainExplorer,
	workerCount int,
	in <-chan model.RefreshJob,
	done func(model.RefreshJob),
	logger zerolog.Logger,
) <-chan model.Snapshot {
	out := make(chan model.Snapshot, 100)
	if workerCount <= 0 {
		workerCount = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			log := logger.With().Int("worker", id).Logger()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-in:
					if !ok {
						return
					}
					snap, err := fetchSnapshot(ctx, explorer, job)
					done(job)
					if err != nil {
						log.Warn().Err(err).Str("kind", string(job.Kind)).Uint64("seq", job.Seq).Msg("refresh failed")
						continue
					}
					log.Debug().Str("kind", string(job.Kind)).Uint64("seq", job.Seq).Int("rows", len(snap.IDs())).Msg("refresh done")
					select {
					case <-ctx.Done():
						return
					case out <- snap:
					}
				}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func fetchSnapshot(ctx context.Context, explorer data_layer.ChainExplorer, job model.RefreshJob) (model.Snapshot, error) {
	snap := model.Snapshot{Chain: job.Chain, Kind: job.Kind, Seq: job.Seq}
	var err error
	switch job.Kind {
	case model.FeedBlocks:
		snap.Blocks, err = explorer.LatestBlocks(ctx, job.Limit)
	case model.FeedTransactions:
		snap.Transactions, err = explorer.LatestTransactions(ctx, job.Limit)
	}
	snap.FetchedAt = time.Now()
	return snap, err
}
