package explorer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/crypto"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/dune"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

type MempoolAPI interface {
	TipHeight(ctx context.Context) (int64, error)
	Blocks(ctx context.Context) ([]model.Block, error)
	Block(ctx context.Context, hash string) (model.Block, error)
	BlockHash(ctx context.Context, height int64) (string, error)
	Transaction(ctx context.Context, txid string) (model.Transaction, error)
	Address(ctx context.Context, addr string) (model.Address, error)
	AddressTransactions(ctx context.Context, addr string, limit int) ([]model.AddressTransaction, error)
	Mempool(ctx context.Context) (crypto.MempoolInfo, error)
	RecommendedFees(ctx context.Context) (crypto.RecommendedFees, error)
}

type BlockchairAPI interface {
	Stats(ctx context.Context) (crypto.BlockchairStats, error)
	Address(ctx context.Context, addr string, limit int) (model.Address, []model.AddressTransaction, error)
	Transaction(ctx context.Context, txid string) (model.Transaction, error)
	Block(ctx context.Context, id string) (model.Block, error)
	LatestBlocks(ctx context.Context, limit int) ([]model.Block, error)
	MempoolTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
}

type BlockCypherAPI interface {
	ChainInfo(ctx context.Context) (crypto.ChainInfo, error)
	Block(ctx context.Context, height int64) (model.Block, error)
	UnconfirmedTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
}

// Bitcoin serves Bitcoin views from Mempool.space, Blockchair, BlockCypher and
// Dune. Any of them may be nil.
type Bitcoin struct {
	mempool     MempoolAPI
	blockchair  BlockchairAPI
	blockcypher BlockCypherAPI
	dune        dune.Runner
	logger      zerolog.Logger
}

func NewBitcoin(mempool MempoolAPI, blockchair BlockchairAPI, blockcypher BlockCypherAPI, runner dune.Runner, logger zerolog.Logger) *Bitcoin {
	return &Bitcoin{
		mempool:     mempool,
		blockchair:  blockchair,
		blockcypher: blockcypher,
		dune:        runner,
		logger:      logger.With().Str("chain", string(model.ChainBitcoin)).Logger(),
	}
}

func (b *Bitcoin) Chain() model.Chain { return model.ChainBitcoin }

func (b *Bitcoin) LatestHeight(ctx context.Context) (int64, error) {
	return firstOf(ctx, b.logger, "btc latest height",
		step[int64]{name: "mempool", skip: b.mempool == nil, fn: func(ctx context.Context) (int64, error) {
			return b.mempool.TipHeight(ctx)
		}},
		step[int64]{name: "blockcypher", skip: b.blockcypher == nil, fn: func(ctx context.Context) (int64, error) {
			info, err := b.blockcypher.ChainInfo(ctx)
			return info.Height, err
		}},
		step[int64]{name: "blockchair", skip: b.blockchair == nil, fn: func(ctx context.Context) (int64, error) {
			stats, err := b.blockchair.Stats(ctx)
			return stats.BestBlockHeight, err
		}},
	)
}

func (b *Bitcoin) LatestBlocks(ctx context.Context, limit int) ([]model.Block, error) {
	limit = clampLimit(limit)
	return firstOf(ctx, b.logger, "btc latest blocks",
		step[[]model.Block]{name: "blockcypher", skip: b.blockcypher == nil, fn: b.blockCypherBlocks(limit)},
		step[[]model.Block]{name: "mempool", skip: b.mempool == nil, fn: func(ctx context.Context) ([]model.Block, error) {
			blocks, err := b.mempool.Blocks(ctx)
			return notEmpty(limitTo(blocks, limit), err)
		}},
		step[[]model.Block]{name: "blockchair", skip: b.blockchair == nil, fn: func(ctx context.Context) ([]model.Block, error) {
			return notEmpty(b.blockchair.LatestBlocks(ctx, limit))
		}},
		step[[]model.Block]{name: "dune", skip: b.dune == nil, fn: func(ctx context.Context) ([]model.Block, error) {
			rows, err := dune.Rows(ctx, b.dune, dune.BtcBlocks, map[string]any{"limit": limit})
			if err != nil {
				return nil, err
			}
			return notEmpty(limitTo(duneBlocks(rows), limit), nil)
		}},
	)
}

// blockCypherBlocks reads the chain head and walks down one height at a time.
func (b *Bitcoin) blockCypherBlocks(limit int) func(ctx context.Context) ([]model.Block, error) {
	return func(ctx context.Context) ([]model.Block, error) {
		info, err := b.blockcypher.ChainInfo(ctx)
		if err != nil {
			return nil, err
		}
		blocks := make([]model.Block, 0, limit)
		for i := int64(0); i < int64(limit) && info.Height-i >= 0; i++ {
			block, err := b.blockcypher.Block(ctx, info.Height-i)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)
		}
		return notEmpty(blocks, nil)
	}
}

func duneBlocks(rows []dune.Row) []model.Block {
	out := make([]model.Block, 0, len(rows))
	for _, row := range rows {
		height, ok := row.Int("height", "block_number", "number", "block_height")
		if !ok {
			continue
		}
		block := model.Block{
			Chain:  model.ChainBitcoin,
			Height: height,
			Hash:   row.String("hash", "block_hash"),
			Miner:  row.String("miner"),
		}
		block.Timestamp, _ = row.Time("time", "block_time", "timestamp")
		if n, ok := row.Int("transaction_count", "tx_count"); ok {
			block.TxCount = int(n)
		}
		if n, ok := row.Int("size"); ok {
			block.Size = n
		}
		out = append(out, block)
	}
	return out
}

// Block accepts a height or a block hash.
func (b *Bitcoin) Block(ctx context.Context, id string) (model.Block, error) {
	height, isHeight := parseHeight(id)
	if !isHeight && !model.IsBtcHash(id) {
		return model.Block{}, fmt.Errorf("block %q: %w", id, ErrInvalidID)
	}
	return firstOf(ctx, b.logger, "btc block",
		step[model.Block]{name: "blockchair", skip: b.blockchair == nil, fn: func(ctx context.Context) (model.Block, error) {
			return b.blockchair.Block(ctx, id)
		}},
		step[model.Block]{name: "mempool", skip: b.mempool == nil, fn: func(ctx context.Context) (model.Block, error) {
			hash := id
			if isHeight {
				var err error
				if hash, err = b.mempool.BlockHash(ctx, height); err != nil {
					return model.Block{}, err
				}
			}
			return b.mempool.Block(ctx, hash)
		}},
		step[model.Block]{name: "blockcypher", skip: b.blockcypher == nil || !isHeight, fn: func(ctx context.Context) (model.Block, error) {
			return b.blockcypher.Block(ctx, height)
		}},
	)
}

// LatestTransactions lists unconfirmed transactions, falling back to the Dune
// transaction list.
func (b *Bitcoin) LatestTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	limit = clampLimit(limit)
	return firstOf(ctx, b.logger, "btc latest transactions",
		step[[]model.Transaction]{name: "blockcypher", skip: b.blockcypher == nil, fn: func(ctx context.Context) ([]model.Transaction, error) {
			return notEmpty(b.blockcypher.UnconfirmedTransactions(ctx, limit))
		}},
		step[[]model.Transaction]{name: "blockchair", skip: b.blockchair == nil, fn: func(ctx context.Context) ([]model.Transaction, error) {
			return notEmpty(b.blockchair.MempoolTransactions(ctx, limit))
		}},
		step[[]model.Transaction]{name: "dune", skip: b.dune == nil, fn: func(ctx context.Context) ([]model.Transaction, error) {
			rows, err := dune.Rows(ctx, b.dune, dune.BtcTxList, map[string]any{"limit": limit})
			if err != nil {
				return nil, err
			}
			return notEmpty(limitTo(plain(duneTransactions(model.ChainBitcoin, rows, "")), limit), nil)
		}},
	)
}

func (b *Bitcoin) Transaction(ctx context.Context, txid string) (model.Transaction, error) {
	if !model.IsBtcHash(txid) {
		return model.Transaction{}, fmt.Errorf("tx %q: %w", txid, ErrInvalidID)
	}
	txid = strings.ToLower(txid)
	return firstOf(ctx, b.logger, "btc transaction",
		step[model.Transaction]{name: "blockchair", skip: b.blockchair == nil, fn: func(ctx context.Context) (model.Transaction, error) {
			return b.blockchair.Transaction(ctx, txid)
		}},
		step[model.Transaction]{name: "mempool", skip: b.mempool == nil, fn: func(ctx context.Context) (model.Transaction, error) {
			return b.mempool.Transaction(ctx, txid)
		}},
	)
}

func (b *Bitcoin) Address(ctx context.Context, addr string) (model.Address, error) {
	if err := checkBtcAddress(addr); err != nil {
		return model.Address{}, err
	}
	return firstOf(ctx, b.logger, "btc address",
		step[model.Address]{name: "blockchair", skip: b.blockchair == nil, fn: func(ctx context.Context) (model.Address, error) {
			a, _, err := b.blockchair.Address(ctx, addr, 0)
			return a, err
		}},
		step[model.Address]{name: "mempool", skip: b.mempool == nil, fn: func(ctx context.Context) (model.Address, error) {
			return b.mempool.Address(ctx, addr)
		}},
	)
}

func (b *Bitcoin) AddressTransactions(ctx context.Context, addr string, limit int) ([]model.AddressTransaction, error) {
	limit = clampLimit(limit)
	if err := checkBtcAddress(addr); err != nil {
		return nil, err
	}
	return firstOf(ctx, b.logger, "btc address transactions",
		step[[]model.AddressTransaction]{name: "blockchair", skip: b.blockchair == nil, fn: func(ctx context.Context) ([]model.AddressTransaction, error) {
			_, txs, err := b.blockchair.Address(ctx, addr, limit)
			return txs, err
		}},
		step[[]model.AddressTransaction]{name: "mempool", skip: b.mempool == nil, fn: func(ctx context.Context) ([]model.AddressTransaction, error) {
			return b.mempool.AddressTransactions(ctx, addr, limit)
		}},
		step[[]model.AddressTransaction]{name: "dune", skip: b.dune == nil, fn: func(ctx context.Context) ([]model.AddressTransaction, error) {
			rows, err := dune.Rows(ctx, b.dune, dune.BtcTxList, map[string]any{"address": addr, "limit": limit})
			if err != nil {
				return nil, err
			}
			return limitTo(duneTransactions(model.ChainBitcoin, rows, addr), limit), nil
		}},
	)
}

// checkBtcAddress only rejects what is obviously not an address; the vendors
// validate the checksum.
func checkBtcAddress(addr string) error {
	if len(addr) < 26 || len(addr) > 90 || strings.ContainsAny(addr, " /?#") {
		return fmt.Errorf("address %q: %w", addr, ErrInvalidID)
	}
	return nil
}
