package data_layer

import (
	"context"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// ChainExplorer is the normalized read view of one chain. Identifiers are
// passed as strings: block heights or hashes, transaction hashes or signatures.
type ChainExplorer interface {
	Chain() model.Chain
	LatestHeight(ctx context.Context) (int64, error)
	LatestBlocks(ctx context.Context, limit int) ([]model.Block, error)
	Block(ctx context.Context, id string) (model.Block, error)
	LatestTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
	Transaction(ctx context.Context, id string) (model.Transaction, error)
	Address(ctx context.Context, addr string) (model.Address, error)
	AddressTransactions(ctx context.Context, addr string, limit int) ([]model.AddressTransaction, error)
}
