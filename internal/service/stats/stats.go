// Package stats builds the network status cards. Every field is resolved on
// its own so one failing vendor only degrades the fields it serves.
package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/crypto"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/dune"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/format"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/resolve"
)

// Literals shown when neither a vendor nor the cache can answer.
const (
	SolanaPrice   = 100.25
	SolanaSlot    = 200456789
	SolanaTxCost  = 0.000005
	SolanaTxCount = 1250

	BitcoinDifficulty = 72.33e12
	BitcoinHashrate   = 534.55e18
	BitcoinMempool    = 1423
)

var errNoPrice = errors.New("no price in response")

type PriceAPI interface {
	Price(ctx context.Context, id string) (model.PriceQuote, error)
	Coin(ctx context.Context, id string) (model.PriceQuote, error)
	Markets(ctx context.Context, vs string, limit int) ([]model.MarketCoin, error)
	MarketChart(ctx context.Context, id, vs string, days int) ([]model.PricePoint, error)
}

type EthereumNode interface {
	LatestBlockNumber(ctx context.Context) (int64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
}

type MempoolAPI interface {
	TipHeight(ctx context.Context) (int64, error)
	Mempool(ctx context.Context) (crypto.MempoolInfo, error)
	RecommendedFees(ctx context.Context) (crypto.RecommendedFees, error)
}

type BlockchairAPI interface {
	Stats(ctx context.Context) (crypto.BlockchairStats, error)
}

type BlockCypherAPI interface {
	ChainInfo(ctx context.Context) (crypto.ChainInfo, error)
}

type SolanaNode interface {
	Slot(ctx context.Context) (int64, error)
	TransactionCount(ctx context.Context) (int64, error)
}

// Vendors lists the clients the cards read from. Nil fields are skipped.
type Vendors struct {
	Dune        dune.Runner
	CoinGecko   PriceAPI
	Ethereum    EthereumNode
	Mempool     MempoolAPI
	Blockchair  BlockchairAPI
	BlockCypher BlockCypherAPI
	Solana      SolanaNode
}

type Service struct {
	vendors  Vendors
	resolver *resolve.Resolver
	logger   zerolog.Logger
	now      func() time.Time
}

func New(vendors Vendors, resolver *resolve.Resolver, logger zerolog.Logger) *Service {
	return &Service{
		vendors:  vendors,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// when returns fn only if the vendor it uses is configured, so Resolve skips it otherwise.
func when[T any](ok bool, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	if !ok {
		return nil
	}
	return fn
}

func (s *Service) duneValue(metric dune.Spec) func(context.Context) (float64, error) {
	return when(s.vendors.Dune != nil, func(ctx context.Context) (float64, error) {
		return dune.Value(ctx, s.vendors.Dune, metric, nil)
	})
}

func (s *Service) duneInt(spec dune.Spec) func(context.Context) (int64, error) {
	return when(s.vendors.Dune != nil, func(ctx context.Context) (int64, error) {
		v, err := dune.Value(ctx, s.vendors.Dune, spec, nil)
		return int64(v), err
	})
}

func fallbackInt(spec dune.Spec) *int64 {
	if spec.Fallback == nil {
		return nil
	}
	return resolve.Value(int64(*spec.Fallback))
}

// GasTrackerFor spreads a base gas price in gwei into the tracker tiers.
func GasTrackerFor(gwei int64) model.GasTracker {
	return model.GasTracker{
		Safe:    gwei,
		Propose: gwei + 5,
		Fast:    gwei + 10,
		BaseFee: gwei - 5,
	}
}

// concurrently runs each field resolver in its own goroutine, so a slow
// vendor delays only the fields it serves.
func concurrently(fns ...func()) {
	var wg sync.WaitGroup
	wg.Add(len(fns))
	for _, fn := range fns {
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	wg.Wait()
}

func (s *Service) EthereumStatus(ctx context.Context) model.EthereumStatus {
	var st model.EthereumStatus
	concurrently(
		func() { st.Price = s.EthereumPrice(ctx) },
		func() { st.LastBlock = s.EthereumLastBlock(ctx) },
		func() { st.TxCount = s.EthereumTxCount(ctx) },
		func() { st.Gas = s.EthereumGas(ctx) },
	)
	return st
}

func (s *Service) EthereumPrice(ctx context.Context) model.Sourced[float64] {
	v := s.vendors
	return resolve.Resolve(ctx, s.resolver, "eth:price", dune.EthPrice.Fallback,
		resolve.Source[float64]{Name: "dune", Fetch: s.duneValue(dune.EthPrice)},
		resolve.Source[float64]{Name: "coingecko", Fetch: when(v.CoinGecko != nil, func(ctx context.Context) (float64, error) {
			q, err := positive(v.CoinGecko.Price(ctx, model.ChainEthereum.CoinGeckoID()))
			return q.USD, err
		})},
	)
}

func (s *Service) EthereumLastBlock(ctx context.Context) model.Sourced[int64] {
	v := s.vendors
	return resolve.Resolve(ctx, s.resolver, "eth:last_block", fallbackInt(dune.EthLastBlock),
		resolve.Source[int64]{Name: "dune", Fetch: s.duneInt(dune.EthLastBlock)},
		resolve.Source[int64]{Name: "rpc", Fetch: when(v.Ethereum != nil, func(ctx context.Context) (int64, error) {
			return v.Ethereum.LatestBlockNumber(ctx)
		})},
	)
}

func (s *Service) EthereumTxCount(ctx context.Context) model.Sourced[int64] {
	return resolve.Resolve(ctx, s.resolver, "eth:tx_count", fallbackInt(dune.EthTxCount),
		resolve.Source[int64]{Name: "dune", Fetch: s.duneInt(dune.EthTxCount)},
	)
}

// EthereumGas reads the gas price in wei from Dune or the node and rounds it
// to whole gwei.
func (s *Service) EthereumGas(ctx context.Context) model.Sourced[model.GasTracker] {
	v := s.vendors
	return resolve.Resolve(ctx, s.resolver, "eth:gas", resolve.Value(GasTrackerFor(int64(*dune.EthGasPrice.Fallback))),
		resolve.Source[model.GasTracker]{Name: "dune", Fetch: when(v.Dune != nil, func(ctx context.Context) (model.GasTracker, error) {
			wei, err := dune.Value(ctx, v.Dune, dune.EthGasPrice, nil)
			return GasTrackerFor(int64(math.Round(wei / 1e9))), err
		})},
		resolve.Source[model.GasTracker]{Name: "rpc", Fetch: when(v.Ethereum != nil, func(ctx context.Context) (model.GasTracker, error) {
			wei, err := v.Ethereum.GasPrice(ctx)
			if err != nil {
				return model.GasTracker{}, err
			}
			return GasTrackerFor(format.GweiFromWei(decimal.NewFromBigInt(wei, 0)).Round(0).IntPart()), nil
		})},
	)
}

// blockchairStats is the Blockchair stats document fetched at most once per
// card; several Bitcoin fields read from it.
type blockchairStats func() (crypto.BlockchairStats, error)

func (s *Service) blockchairOnce(ctx context.Context) blockchairStats {
	if s.vendors.Blockchair == nil {
		return nil
	}
	return sync.OnceValues(func() (crypto.BlockchairStats, error) {
		return s.vendors.Blockchair.Stats(ctx)
	})
}

func (bc blockchairStats) pick(fn func(crypto.BlockchairStats) float64) func(context.Context) (float64, error) {
	return when(bc != nil, func(context.Context) (float64, error) {
		stats, err := bc()
		return fn(stats), err
	})
}

func (s *Service) BitcoinStatus(ctx context.Context) model.BitcoinStatus {
	bc := s.blockchairOnce(ctx)
	var st model.BitcoinStatus
	concurrently(
		func() { st.Price = s.BitcoinPrice(ctx) },
		func() { st.LastBlock = s.bitcoinLastBlock(ctx, bc) },
		func() { st.Tx24h = s.bitcoinTx24h(ctx, bc) },
		func() { st.AvgFee = s.bitcoinAvgFee(ctx, bc) },
		func() {
			st.Difficulty = resolve.Resolve(ctx, s.resolver, "btc:difficulty", resolve.Value(BitcoinDifficulty),
				resolve.Source[float64]{Name: "blockchair", Fetch: bc.pick(func(b crypto.BlockchairStats) float64 {
					return b.Difficulty
				})},
			)
		},
		func() {
			st.Hashrate = resolve.Resolve(ctx, s.resolver, "btc:hashrate", resolve.Value(BitcoinHashrate),
				resolve.Source[float64]{Name: "blockchair", Fetch: bc.pick(crypto.BlockchairStats.Hashrate)},
			)
		},
		func() { st.Mempool = s.bitcoinMempool(ctx, bc) },
	)
	return st
}

func (s *Service) BitcoinPrice(ctx context.Context) model.Sourced[model.PriceQuote] {
	return resolve.Resolve(ctx, s.resolver, "btc:price", nil, s.bitcoinPriceSources()...)
}

func (s *Service) BitcoinLastBlock(ctx context.Context) model.Sourced[int64] {
	return s.bitcoinLastBlock(ctx, s.blockchairOnce(ctx))
}

func (s *Service) BitcoinTx24h(ctx context.Context) model.Sourced[int64] {
	return s.bitcoinTx24h(ctx, s.blockchairOnce(ctx))
}

func (s *Service) BitcoinAvgFee(ctx context.Context) model.Sourced[float64] {
	return s.bitcoinAvgFee(ctx, s.blockchairOnce(ctx))
}

// BitcoinBlockCount is the number of blocks mined, which is the tip height plus one.
func (s *Service) BitcoinBlockCount(ctx context.Context) model.Sourced[int64] {
	v := s.vendors
	return resolve.Resolve(ctx, s.resolver, "btc:block_count", fallbackInt(dune.BtcBlockCount),
		resolve.Source[int64]{Name: "dune", Fetch: s.duneInt(dune.BtcBlockCount)},
		resolve.Source[int64]{Name: "mempool", Fetch: when(v.Mempool != nil, func(ctx context.Context) (int64, error) {
			h, err := v.Mempool.TipHeight(ctx)
			return h + 1, err
		})},
	)
}

func (s *Service) bitcoinLastBlock(ctx context.Context, bc blockchairStats) model.Sourced[int64] {
	v := s.vendors
	return resolve.Resolve(ctx, s.resolver, "btc:last_block", fallbackInt(dune.BtcLastBlock),
		resolve.Source[int64]{Name: "dune", Fetch: s.duneInt(dune.BtcLastBlock)},
		resolve.Source[int64]{Name: "mempool", Fetch: when(v.Mempool != nil, func(ctx context.Context) (int64, error) {
			return v.Mempool.TipHeight(ctx)
		})},
		resolve.Source[int64]{Name: "blockcypher", Fetch: when(v.BlockCypher != nil, func(ctx context.Context) (int64, error) {
			info, err := v.BlockCypher.ChainInfo(ctx)
			return info.Height, err
		})},
		resolve.Source[int64]{Name: "blockchair", Fetch: asInt(bc.pick(func(b crypto.BlockchairStats) float64 {
			return float64(b.BestBlockHeight)
		}))},
	)
}

func (s *Service) bitcoinTx24h(ctx context.Context, bc blockchairStats) model.Sourced[int64] {
	return resolve.Resolve(ctx, s.resolver, "btc:tx_24h", fallbackInt(dune.BtcTx24h),
		resolve.Source[int64]{Name: "dune", Fetch: s.duneInt(dune.BtcTx24h)},
		resolve.Source[int64]{Name: "blockchair", Fetch: asInt(bc.pick(func(b crypto.BlockchairStats) float64 {
			return float64(b.Transactions24h)
		}))},
	)
}

// bitcoinAvgFee is a fee rate in sat/vB.
func (s *Service) bitcoinAvgFee(ctx context.Context, bc blockchairStats) model.Sourced[float64] {
	v := s.vendors
	return resolve.Resolve(ctx, s.resolver, "btc:avg_fee", dune.BtcAvgFee.Fallback,
		resolve.Source[float64]{Name: "dune", Fetch: s.duneValue(dune.BtcAvgFee)},
		resolve.Source[float64]{Name: "mempool", Fetch: when(v.Mempool != nil, func(ctx context.Context) (float64, error) {
			fees, err := v.Mempool.RecommendedFees(ctx)
			return fees.Hour, err
		})},
		resolve.Source[float64]{Name: "blockchair", Fetch: bc.pick(func(b crypto.BlockchairStats) float64 {
			return b.SuggestedFeePerByte
		})},
	)
}

func (s *Service) bitcoinMempool(ctx context.Context, bc blockchairStats) model.Sourced[int64] {
	v := s.vendors
	return resolve.Resolve(ctx, s.resolver, "btc:mempool", resolve.Value(int64(BitcoinMempool)),
		resolve.Source[int64]{Name: "mempool", Fetch: when(v.Mempool != nil, func(ctx context.Context) (int64, error) {
			info, err := v.Mempool.Mempool(ctx)
			return info.Count, err
		})},
		resolve.Source[int64]{Name: "blockchair", Fetch: asInt(bc.pick(func(b crypto.BlockchairStats) float64 {
			return float64(b.MempoolTransactions)
		}))},
		resolve.Source[int64]{Name: "blockcypher", Fetch: when(v.BlockCypher != nil, func(ctx context.Context) (int64, error) {
			info, err := v.BlockCypher.ChainInfo(ctx)
			return info.UnconfirmedCount, err
		})},
	)
}

func asInt(fn func(context.Context) (float64, error)) func(context.Context) (int64, error) {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context) (int64, error) {
		f, err := fn(ctx)
		return int64(f), err
	}
}

// bitcoinPriceSources prefers CoinGecko coin data, then simple price, then the
// markets table, then Dune.
func (s *Service) bitcoinPriceSources() []resolve.Source[model.PriceQuote] {
	v := s.vendors
	id := model.ChainBitcoin.CoinGeckoID()
	cg := v.CoinGecko != nil
	return []resolve.Source[model.PriceQuote]{
		{Name: "coingecko coin", Fetch: when(cg, func(ctx context.Context) (model.PriceQuote, error) {
			return positive(v.CoinGecko.Coin(ctx, id))
		})},
		{Name: "coingecko price", Fetch: when(cg, func(ctx context.Context) (model.PriceQuote, error) {
			return positive(v.CoinGecko.Price(ctx, id))
		})},
		{Name: "coingecko markets", Fetch: when(cg, func(ctx context.Context) (model.PriceQuote, error) {
			coins, err := v.CoinGecko.Markets(ctx, "usd", 10)
			if err != nil {
				return model.PriceQuote{}, err
			}
			for _, c := range coins {
				if c.ID == id {
					return positive(model.PriceQuote{
						Coin:        id,
						USD:         c.CurrentPrice,
						EUR:         c.CurrentPrice * dune.EurPerUsd,
						USDChange24: c.Change24h,
						MarketCap:   c.MarketCap,
						Volume:      c.TotalVolume,
					}, nil)
				}
			}
			return model.PriceQuote{}, fmt.Errorf("%s not in markets: %w", id, errNoPrice)
		})},
		{Name: "dune", Fetch: when(v.Dune != nil, func(ctx context.Context) (model.PriceQuote, error) {
			rows, err := dune.Rows(ctx, v.Dune, dune.BtcPrice, nil)
			if err != nil {
				return model.PriceQuote{}, err
			}
			if len(rows) == 0 {
				return model.PriceQuote{}, dune.ErrNoRows
			}
			usd, _, ok := dune.Extract(rows[0], nil, dune.BtcPrice.Field)
			if !ok {
				return model.PriceQuote{}, dune.ErrNoValue
			}
			eur, ok := rows[0].Float("price_eur")
			if !ok {
				eur = usd * dune.EurPerUsd
			}
			return model.PriceQuote{Coin: id, USD: usd, EUR: eur}, nil
		})},
	}
}

func positive(q model.PriceQuote, err error) (model.PriceQuote, error) {
	if err == nil && q.USD <= 0 {
		err = errNoPrice
	}
	return q, err
}

func (s *Service) SolanaStatus(ctx context.Context) model.SolanaStatus {
	v := s.vendors
	// No vendor reports fees; the protocol base fee per signature is shown as a literal.
	st := model.SolanaStatus{
		TxCost: model.Sourced[float64]{
			Value:     format.LamportsToSOL(crypto.LamportsPerSignature).InexactFloat64(),
			Source:    model.SourceFallback,
			FetchedAt: s.now(),
		},
	}
	concurrently(
		func() {
			st.Price = resolve.Resolve(ctx, s.resolver, "sol:price", resolve.Value(SolanaPrice),
				resolve.Source[float64]{Name: "coingecko", Fetch: when(v.CoinGecko != nil, func(ctx context.Context) (float64, error) {
					q, err := positive(v.CoinGecko.Price(ctx, model.ChainSolana.CoinGeckoID()))
					return q.USD, err
				})},
			)
		},
		func() {
			st.Slot = resolve.Resolve(ctx, s.resolver, "sol:slot", resolve.Value(int64(SolanaSlot)),
				resolve.Source[int64]{Name: "rpc", Fetch: when(v.Solana != nil, func(ctx context.Context) (int64, error) {
					return v.Solana.Slot(ctx)
				})},
			)
		},
		func() {
			st.TxCount = resolve.Resolve(ctx, s.resolver, "sol:tx_count", resolve.Value(int64(SolanaTxCount)),
				resolve.Source[int64]{Name: "rpc", Fetch: when(v.Solana != nil, func(ctx context.Context) (int64, error) {
					return v.Solana.TransactionCount(ctx)
				})},
			)
		},
	)
	return st
}

// PriceHistory returns one price per day for the last days days, newest first
// when generated.
func (s *Service) PriceHistory(ctx context.Context, chain model.Chain, days int) model.Sourced[[]model.PricePoint] {
	days = clampDays(days)
	v := s.vendors
	var spec *dune.Spec
	base := SolanaPrice
	switch chain {
	case model.ChainEthereum:
		spec = &dune.EthPriceHistory
	case model.ChainBitcoin:
		spec = &dune.BtcPriceHistory
	}
	if spec != nil {
		base = *spec.Fallback
	}

	var sources []resolve.Source[[]model.PricePoint]
	if spec != nil {
		sources = append(sources, resolve.Source[[]model.PricePoint]{Name: "dune", Fetch: when(v.Dune != nil, func(ctx context.Context) ([]model.PricePoint, error) {
			rows, err := dune.Rows(ctx, v.Dune, *spec, map[string]any{"days": days})
			if err != nil {
				return nil, err
			}
			return historyFromRows(rows, days)
		})})
	}
	sources = append(sources, resolve.Source[[]model.PricePoint]{Name: "coingecko", Fetch: when(v.CoinGecko != nil, func(ctx context.Context) ([]model.PricePoint, error) {
		points, err := v.CoinGecko.MarketChart(ctx, chain.CoinGeckoID(), "usd", days)
		if err == nil && len(points) == 0 {
			err = errNoPrice
		}
		return points, err
	})})

	key := fmt.Sprintf("%s:price_history:%d", chain, days)
	return resolve.Resolve(ctx, s.resolver, key, resolve.Value(GeneratedHistory(base, days, s.now())), sources...)
}

func historyFromRows(rows []dune.Row, days int) ([]model.PricePoint, error) {
	out := make([]model.PricePoint, 0, len(rows))
	for _, row := range rows {
		t, ok := row.Time("day", "date", "datum", "time", "block_date", "minute")
		if !ok {
			continue
		}
		price, ok := row.Float("price", "cijena", "avg_price", "price_usd", "close")
		if !ok || price <= 0 {
			continue
		}
		out = append(out, model.PricePoint{Time: t, Price: price})
	}
	if len(out) == 0 {
		return nil, dune.ErrNoValue
	}
	if len(out) > days {
		out = out[:days]
	}
	return out, nil
}

// GeneratedHistory is the placeholder series: one point per day going back
// from now, within 5% of base. It is deterministic so repeated requests agree.
func GeneratedHistory(base float64, days int, now time.Time) []model.PricePoint {
	days = clampDays(days)
	out := make([]model.PricePoint, 0, days)
	for i := 0; i < days; i++ {
		variation := 0.05 * math.Sin(float64(i)*1.7)
		price := math.Round(base*(1+variation)*100) / 100
		out = append(out, model.PricePoint{Time: now.AddDate(0, 0, -i).UTC(), Price: price})
	}
	return out
}

// Markets proxies the CoinGecko markets table.
func (s *Service) Markets(ctx context.Context, limit int) ([]model.MarketCoin, error) {
	if s.vendors.CoinGecko == nil {
		return nil, fmt.Errorf("markets: %w", resolve.ErrUnavailable)
	}
	return s.vendors.CoinGecko.Markets(ctx, "usd", limit)
}

// MaxHistoryDays is the longest price history served; "max" maps to it.
const MaxHistoryDays = 365

func clampDays(days int) int {
	switch {
	case days <= 0:
		return 7
	case days > MaxHistoryDays:
		return MaxHistoryDays
	}
	return days
}

// ParseDays reads a days parameter, accepting "max" as a year. Larger values
// are capped at MaxHistoryDays.
func ParseDays(s string, def int) int {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "max" {
		return MaxHistoryDays
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return min(n, MaxHistoryDays)
}
