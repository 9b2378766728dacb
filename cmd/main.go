package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/archive"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/cache"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/config"
	data_layer "github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/crypto"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/dune"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/logging"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/resolve"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/search"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/server"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/service"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/service/explorer"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/service/publish"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/service/stats"
)

const defaultConfigPath = "cmd/config.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	logger := logging.New(cfg.Log)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := openCache(cfg.Cache.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open cache")
	}
	defer store.Close()
	resolver := resolve.New(store, logging.Component(logger, "resolve"))

	v := newVendors(cfg, logger)
	explorers := map[model.Chain]data_layer.ChainExplorer{}
	var eth *explorer.Ethereum

	if ch, ok := cfg.Chain(string(model.ChainEthereum)); ok {
		var node explorer.EthereumNode
		if ch.RPCUrl != "" {
			rpc := crypto.NewEthereumRPC(ch.RPCUrl, ch.APIKey)
			node = rpc
			v.stats.Ethereum = rpc
		}
		var moralis explorer.MoralisAPI
		if v.moralis != nil {
			moralis = v.moralis
		}
		eth = explorer.NewEthereum(moralis, node, v.runner, logging.Component(logger, "explorer"))
		explorers[model.ChainEthereum] = eth
	}
	if _, ok := cfg.Chain(string(model.ChainBitcoin)); ok {
		explorers[model.ChainBitcoin] = explorer.NewBitcoin(v.mempool, v.blockchair, v.blockcypher, v.runner, logging.Component(logger, "explorer"))
	}
	if ch, ok := cfg.Chain(string(model.ChainSolana)); ok {
		node := crypto.NewSolanaRPC(ch.RPCUrl, ch.APIKey)
		explorers[model.ChainSolana] = explorer.NewSolana(node, logging.Component(logger, "explorer"))
		v.stats.Solana = node
	}

	feed := publish.NewFeed()
	publishers := publish.Multi{feed, &publish.LogPublisher{Logger: logging.Component(logger, "live")}}
	if cfg.Archive.DSN != "" {
		db, err := archive.Open(ctx, cfg.Archive.DSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open archive")
		}
		defer db.Close()
		for chain := range explorers {
			if height, err := db.LatestHeight(ctx, chain); err == nil && height > 0 {
				logger.Info().Str("chain", string(chain)).Int64("height", height).Msg("archive resumes")
			}
		}
		publishers = append(publishers, &archive.Publisher{Store: db})
	}

	deps := server.Deps{
		Explorers: explorers,
		Stats:     stats.New(v.stats, resolver, logging.Component(logger, "stats")),
		Feed:      feed,
		Search:    search.New(explorers, 10),
	}
	if eth != nil {
		deps.Ethereum = eth
	}
	if v.coingecko != nil {
		deps.CoinGecko = v.coingecko
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		service.RunPipeline(ctx, publishers, service.PipelinesFromConfig(cfg, explorers, logger), logger)
	}()

	if err := server.New(deps, logger).ListenAndServe(ctx, cfg.Server.Listen); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		stop()
	}
	wg.Wait()
	logger.Info().Msg("shutdown complete")
}

func loadConfig() (*config.AppConfig, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return config.Default(), err
	}
	return cfg, nil
}

func openCache(path string) (cache.Store, error) {
	if path == "" {
		return cache.NewMemory(), nil
	}
	return cache.Open(path)
}

// vendors holds the configured clients. Clients that need a key are left nil
// without one so the fallback chains skip them.
type vendors struct {
	runner      dune.Runner
	moralis     *crypto.Moralis
	mempool     *crypto.Mempool
	blockchair  *crypto.Blockchair
	blockcypher *crypto.BlockCypher
	coingecko   *crypto.CoinGecko
	stats       stats.Vendors
}

func newVendors(cfg *config.AppConfig, logger zerolog.Logger) *vendors {
	vc := cfg.Vendors
	v := &vendors{
		mempool:     crypto.NewMempool(vc.Mempool.BaseURL),
		blockchair:  crypto.NewBlockchair(vc.Blockchair.BaseURL, vc.Blockchair.APIKey),
		blockcypher: crypto.NewBlockCypher(vc.BlockCypher.BaseURL, vc.BlockCypher.APIKey),
		coingecko:   crypto.NewCoinGecko(vc.CoinGecko.BaseURL, vc.CoinGecko.APIKey),
	}
	if vc.Dune.APIKey != "" {
		v.runner = dune.NewPoller(dune.NewClient(vc.Dune.BaseURL, vc.Dune.APIKey), cfg.Poller.Interval, cfg.Poller.MaxAttempts, logging.Component(logger, "dune"))
	}
	if vc.Moralis.APIKey != "" {
		v.moralis = crypto.NewMoralis(vc.Moralis.BaseURL, vc.Moralis.APIKey)
	}
	v.stats = stats.Vendors{
		Dune:        v.runner,
		CoinGecko:   v.coingecko,
		Mempool:     v.mempool,
		Blockchair:  v.blockchair,
		BlockCypher: v.blockcypher,
	}
	return v
}
