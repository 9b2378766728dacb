package explorer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

type SolanaNode interface {
	Slot(ctx context.Context) (int64, error)
	TransactionCount(ctx context.Context) (int64, error)
	Block(ctx context.Context, slot int64) (model.Block, []model.Transaction, error)
	Transaction(ctx context.Context, signature string) (model.Transaction, error)
	Address(ctx context.Context, addr string) (model.Address, error)
	Signatures(ctx context.Context, addr string, limit int) ([]model.Transaction, error)
}

// Solana serves Solana views from a single JSON-RPC node.
type Solana struct {
	node   SolanaNode
	logger zerolog.Logger
}

func NewSolana(node SolanaNode, logger zerolog.Logger) *Solana {
	return &Solana{
		node:   node,
		logger: logger.With().Str("chain", string(model.ChainSolana)).Logger(),
	}
}

func (s *Solana) Chain() model.Chain { return model.ChainSolana }

func (s *Solana) LatestHeight(ctx context.Context) (int64, error) {
	if s.node == nil {
		return 0, fmt.Errorf("sol slot: %w", ErrNoVendor)
	}
	return s.node.Slot(ctx)
}

// LatestBlocks walks down from the current slot. Skipped slots have no block
// and are left out, so at most 2*limit slots are tried.
func (s *Solana) LatestBlocks(ctx context.Context, limit int) ([]model.Block, error) {
	limit = clampLimit(limit)
	slot, err := s.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	blocks := make([]model.Block, 0, limit)
	for i := int64(0); len(blocks) < limit && i < int64(2*limit) && slot-i >= 0; i++ {
		b, _, err := s.node.Block(ctx, slot-i)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug().Err(err).Int64("slot", slot-i).Msg("skipping slot")
			continue
		}
		blocks = append(blocks, b)
	}
	return notEmpty(blocks, nil)
}

func (s *Solana) Block(ctx context.Context, id string) (model.Block, error) {
	slot, ok := parseHeight(id)
	if !ok {
		return model.Block{}, fmt.Errorf("slot %q: %w", id, ErrInvalidID)
	}
	if s.node == nil {
		return model.Block{}, fmt.Errorf("sol block: %w", ErrNoVendor)
	}
	b, _, err := s.node.Block(ctx, slot)
	return b, err
}

// LatestTransactions returns the transactions of the newest block that has any.
func (s *Solana) LatestTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	limit = clampLimit(limit)
	slot, err := s.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for i := int64(0); i < 5 && slot-i >= 0; i++ {
		_, txs, err := s.node.Block(ctx, slot-i)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if len(txs) > 0 {
			return limitTo(txs, limit), nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("sol latest transactions: %w", lastErr)
	}
	return nil, fmt.Errorf("sol latest transactions from slot %d: %w", slot, ErrNotFound)
}

func (s *Solana) Transaction(ctx context.Context, signature string) (model.Transaction, error) {
	if s.node == nil {
		return model.Transaction{}, fmt.Errorf("sol transaction: %w", ErrNoVendor)
	}
	return s.node.Transaction(ctx, signature)
}

func (s *Solana) Address(ctx context.Context, addr string) (model.Address, error) {
	if s.node == nil {
		return model.Address{}, fmt.Errorf("sol address: %w", ErrNoVendor)
	}
	return s.node.Address(ctx, addr)
}

func (s *Solana) AddressTransactions(ctx context.Context, addr string, limit int) ([]model.AddressTransaction, error) {
	limit = clampLimit(limit)
	if s.node == nil {
		return nil, fmt.Errorf("sol address transactions: %w", ErrNoVendor)
	}
	txs, err := s.node.Signatures(ctx, addr, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.AddressTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, model.AddressTransaction{Transaction: tx, Address: addr})
	}
	return out, nil
}
