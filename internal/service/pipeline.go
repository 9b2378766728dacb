package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/config"
	data_layer "github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/logging"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/service/publish"
)

type ChainPipeline struct {
	Explorer data_layer.ChainExplorer
	Kinds    []model.FeedKind
	Limit    int
	Workers  int
	Interval time.Duration
}

// PipelinesFromConfig pairs each configured chain with its explorer. Chains
// without an explorer are skipped.
func PipelinesFromConfig(cfg *config.AppConfig, explorers map[model.Chain]data_layer.ChainExplorer, logger zerolog.Logger) []ChainPipeline {
	var chains []ChainPipeline
	for _, c := range cfg.Chains {
		chain, err := model.ParseChain(c.Chain)
		if err != nil {
			logger.Warn().Err(err).Msg("skipping chain")
			continue
		}
		explorer, ok := explorers[chain]
		if !ok {
			logger.Warn().Str("chain", string(chain)).Msg("no explorer for chain, skipping")
			continue
		}
		chains = append(chains, ChainPipeline{
			Explorer: explorer,
			Kinds:    []model.FeedKind{model.FeedBlocks, model.FeedTransactions},
			Limit:    c.ListLimit,
			Workers:  c.Workers,
			Interval: c.Refresh,
		})
	}
	return chains
}

// RunPipeline refreshes every chain's lists until ctx is cancelled and hands
// each snapshot to publisher. It returns once all stages have stopped.
func RunPipeline(ctx context.Context, publisher publish.Publisher, chains []ChainPipeline, logger zerolog.Logger) {
	var wg sync.WaitGroup
	for _, cfg := range chains {
		chain := cfg.Explorer.Chain()
		log := logging.Component(logger, "pipeline").With().Str("chain", string(chain)).Logger()

		coordinator := &RefreshCoordinator{
			Chain:        chain,
			Kinds:        cfg.Kinds,
			Limit:        cfg.Limit,
			PollInterval: cfg.Interval,
			Out:          make(chan model.RefreshJob, 100),
			Logger:       log,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			coordinator.Run(ctx)
		}()

		snapshots := StartChainFetcher(ctx, cfg.Explorer, cfg.Workers, coordinator.Out, coordinator.Done, log)
		marked := StartArrivalFilter(ctx, snapshots, log)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for snap := range marked {
				err := publisher.Publish(ctx, snap)
				switch {
				case err == nil:
				case errors.Is(err, publish.ErrStale):
					log.Debug().Err(err).Msg("snapshot superseded")
				default:
					log.Error().Err(err).Str("kind", string(snap.Kind)).Msg("failed to publish snapshot")
				}
			}
		}()
	}
	wg.Wait()
}
