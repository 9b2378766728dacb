package explorer

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/dune"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// statsWindow is the number of recent transactions address statistics cover.
const statsWindow = 100

type MoralisAPI interface {
	Transaction(ctx context.Context, hash string) (model.Transaction, error)
	AddressTransactions(ctx context.Context, addr string, limit int) ([]model.AddressTransaction, error)
	Balance(ctx context.Context, addr string) (decimal.Decimal, error)
	TokenBalances(ctx context.Context, addr string) ([]model.Token, error)
	Block(ctx context.Context, id string) (model.Block, []model.Transaction, error)
	LatestBlockNumber(ctx context.Context) (int64, error)
}

type EthereumNode interface {
	LatestBlockNumber(ctx context.Context) (int64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	Block(ctx context.Context, number int64) (model.Block, []model.Transaction, error)
	BlockByHash(ctx context.Context, hash string) (model.Block, []model.Transaction, error)
	Transaction(ctx context.Context, hash string) (model.Transaction, error)
	Address(ctx context.Context, addr string) (model.Address, error)
	Nonce(ctx context.Context, addr string) (uint64, error)
}

// Ethereum serves Ethereum views from Moralis, a JSON-RPC node and Dune.
// Moralis and Dune are optional.
type Ethereum struct {
	moralis MoralisAPI
	node    EthereumNode
	dune    dune.Runner
	logger  zerolog.Logger
}

func NewEthereum(moralis MoralisAPI, node EthereumNode, runner dune.Runner, logger zerolog.Logger) *Ethereum {
	return &Ethereum{
		moralis: moralis,
		node:    node,
		dune:    runner,
		logger:  logger.With().Str("chain", string(model.ChainEthereum)).Logger(),
	}
}

func (e *Ethereum) Chain() model.Chain { return model.ChainEthereum }

func (e *Ethereum) LatestHeight(ctx context.Context) (int64, error) {
	return firstOf(ctx, e.logger, "eth latest height",
		step[int64]{name: "rpc", skip: e.node == nil, fn: func(ctx context.Context) (int64, error) {
			return e.node.LatestBlockNumber(ctx)
		}},
		step[int64]{name: "moralis", skip: e.moralis == nil, fn: func(ctx context.Context) (int64, error) {
			return e.moralis.LatestBlockNumber(ctx)
		}},
	)
}

// LatestBlocks walks down from the chain head; blocks that fail to load are
// left out.
func (e *Ethereum) LatestBlocks(ctx context.Context, limit int) ([]model.Block, error) {
	limit = clampLimit(limit)
	height, err := e.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	blocks := make([]model.Block, 0, limit)
	for i := 0; i < limit && height-int64(i) >= 0; i++ {
		b, _, err := e.block(ctx, strconv.FormatInt(height-int64(i), 10))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn().Err(err).Int64("height", height-int64(i)).Msg("skipping block")
			continue
		}
		blocks = append(blocks, b)
	}
	return notEmpty(blocks, nil)
}

func (e *Ethereum) Block(ctx context.Context, id string) (model.Block, error) {
	b, _, err := e.block(ctx, id)
	return b, err
}

type blockWithTxs struct {
	block model.Block
	txs   []model.Transaction
}

func (e *Ethereum) block(ctx context.Context, id string) (model.Block, []model.Transaction, error) {
	height, isHeight := parseHeight(id)
	if !isHeight && !model.IsEthTxHash(id) {
		return model.Block{}, nil, fmt.Errorf("block %q: %w", id, ErrInvalidID)
	}
	res, err := firstOf(ctx, e.logger, "eth block",
		step[blockWithTxs]{name: "moralis", skip: e.moralis == nil, fn: func(ctx context.Context) (blockWithTxs, error) {
			b, txs, err := e.moralis.Block(ctx, id)
			return blockWithTxs{b, txs}, err
		}},
		step[blockWithTxs]{name: "rpc", skip: e.node == nil, fn: func(ctx context.Context) (blockWithTxs, error) {
			if isHeight {
				b, txs, err := e.node.Block(ctx, height)
				return blockWithTxs{b, txs}, err
			}
			b, txs, err := e.node.BlockByHash(ctx, id)
			return blockWithTxs{b, txs}, err
		}},
	)
	return res.block, res.txs, err
}

// LatestTransactions prefers the Dune latest-transactions query and falls back
// to the transactions of the head block.
func (e *Ethereum) LatestTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	limit = clampLimit(limit)
	return firstOf(ctx, e.logger, "eth latest transactions",
		step[[]model.Transaction]{name: "dune", skip: e.dune == nil, fn: func(ctx context.Context) ([]model.Transaction, error) {
			rows, err := dune.Rows(ctx, e.dune, dune.EthLatestTxs, map[string]any{"limit": limit})
			if err != nil {
				return nil, err
			}
			return notEmpty(limitTo(plain(duneTransactions(model.ChainEthereum, rows, "")), limit), nil)
		}},
		step[[]model.Transaction]{name: "rpc", skip: e.node == nil, fn: func(ctx context.Context) ([]model.Transaction, error) {
			_, txs, err := e.node.Block(ctx, -1)
			return notEmpty(limitTo(txs, limit), err)
		}},
	)
}

func (e *Ethereum) Transaction(ctx context.Context, hash string) (model.Transaction, error) {
	if !model.IsEthTxHash(hash) {
		return model.Transaction{}, fmt.Errorf("tx %q: %w", hash, ErrInvalidID)
	}
	return firstOf(ctx, e.logger, "eth transaction",
		step[model.Transaction]{name: "moralis", skip: e.moralis == nil, fn: func(ctx context.Context) (model.Transaction, error) {
			return e.moralis.Transaction(ctx, hash)
		}},
		step[model.Transaction]{name: "rpc", skip: e.node == nil, fn: func(ctx context.Context) (model.Transaction, error) {
			return e.node.Transaction(ctx, hash)
		}},
	)
}

func (e *Ethereum) Address(ctx context.Context, addr string) (model.Address, error) {
	if !model.IsEthAddress(addr) {
		return model.Address{}, fmt.Errorf("address %q: %w", addr, ErrInvalidID)
	}
	return firstOf(ctx, e.logger, "eth address",
		step[model.Address]{name: "moralis", skip: e.moralis == nil, fn: func(ctx context.Context) (model.Address, error) {
			bal, err := e.moralis.Balance(ctx, addr)
			if err != nil {
				return model.Address{}, err
			}
			out := model.Address{Chain: model.ChainEthereum, Address: addr, Balance: bal}
			if e.node != nil {
				if nonce, err := e.node.Nonce(ctx, addr); err == nil {
					out.Nonce = nonce
				}
			}
			return out, nil
		}},
		step[model.Address]{name: "rpc", skip: e.node == nil, fn: func(ctx context.Context) (model.Address, error) {
			return e.node.Address(ctx, addr)
		}},
		step[model.Address]{name: "dune", skip: e.dune == nil, fn: func(ctx context.Context) (model.Address, error) {
			bal, err := dune.Value(ctx, e.dune, dune.EthBalance, map[string]any{"address": addr})
			if err != nil {
				return model.Address{}, err
			}
			return model.Address{
				Chain:   model.ChainEthereum,
				Address: addr,
				Balance: decimal.NewFromFloat(bal),
			}, nil
		}},
	)
}

func (e *Ethereum) AddressTransactions(ctx context.Context, addr string, limit int) ([]model.AddressTransaction, error) {
	limit = clampLimit(limit)
	if !model.IsEthAddress(addr) {
		return nil, fmt.Errorf("address %q: %w", addr, ErrInvalidID)
	}
	return firstOf(ctx, e.logger, "eth address transactions",
		step[[]model.AddressTransaction]{name: "moralis", skip: e.moralis == nil, fn: func(ctx context.Context) ([]model.AddressTransaction, error) {
			return e.moralis.AddressTransactions(ctx, addr, limit)
		}},
		step[[]model.AddressTransaction]{name: "dune", skip: e.dune == nil, fn: func(ctx context.Context) ([]model.AddressTransaction, error) {
			rows, err := dune.Rows(ctx, e.dune, dune.EthAddressTxs, map[string]any{"address": addr, "limit": limit})
			if err != nil {
				return nil, err
			}
			return limitTo(duneTransactions(model.ChainEthereum, rows, addr), limit), nil
		}},
	)
}

// Tokens returns the ERC-20 tokens held by addr, one entry per contract.
func (e *Ethereum) Tokens(ctx context.Context, addr string) ([]model.Token, error) {
	if !model.IsEthAddress(addr) {
		return nil, fmt.Errorf("address %q: %w", addr, ErrInvalidID)
	}
	if e.moralis == nil {
		return nil, fmt.Errorf("eth tokens: %w", ErrNoVendor)
	}
	tokens, err := e.moralis.TokenBalances(ctx, addr)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(tokens))
	out := make([]model.Token, 0, len(tokens))
	for _, t := range tokens {
		key := strings.ToLower(t.ContractAddress)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out, nil
}

// AddressStats summarizes the last transactions of addr: counts and ETH sent
// and received, average gas of sent transactions and gas spent in gwei.
func (e *Ethereum) AddressStats(ctx context.Context, addr string) (model.AddressStats, error) {
	txs, err := e.AddressTransactions(ctx, addr, statsWindow)
	if err != nil {
		return model.AddressStats{}, err
	}
	return ComputeAddressStats(addr, txs), nil
}

func ComputeAddressStats(addr string, txs []model.AddressTransaction) model.AddressStats {
	var stats model.AddressStats
	var totalGas uint64
	for _, tx := range txs {
		value, _ := tx.Value.Float64()
		switch {
		case strings.EqualFold(tx.From, addr):
			stats.SentCount++
			stats.SentEth += value
			totalGas += tx.Gas
			gwei, _ := tx.GasPrice.Shift(-9).Float64()
			stats.TotalGasGwei += float64(tx.Gas) * gwei
		case strings.EqualFold(tx.To, addr):
			stats.ReceivedCount++
			stats.ReceivedEth += value
		}
	}
	if stats.SentCount > 0 {
		stats.AvgGas = float64(totalGas) / float64(stats.SentCount)
	}
	return stats
}
