package explorer

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/crypto"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/dune"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

type fakeMempool struct {
	MempoolAPI
	tipErr error
	hashes map[int64]string
}

func (f *fakeMempool) TipHeight(context.Context) (int64, error) { return 840000, f.tipErr }

func (f *fakeMempool) BlockHash(_ context.Context, height int64) (string, error) {
	h, ok := f.hashes[height]
	if !ok {
		return "", crypto.ErrNotFound
	}
	return h, nil
}

func (f *fakeMempool) Block(_ context.Context, hash string) (model.Block, error) {
	return model.Block{Chain: model.ChainBitcoin, Hash: hash, Height: 840000}, nil
}

type fakeBlockCypher struct {
	BlockCypherAPI
	height int64
	txErr  error
}

func (f *fakeBlockCypher) ChainInfo(context.Context) (crypto.ChainInfo, error) {
	return crypto.ChainInfo{Height: f.height}, nil
}

func (f *fakeBlockCypher) Block(_ context.Context, height int64) (model.Block, error) {
	return model.Block{Chain: model.ChainBitcoin, Height: height}, nil
}

func (f *fakeBlockCypher) UnconfirmedTransactions(context.Context, int) ([]model.Transaction, error) {
	return nil, f.txErr
}

func TestBitcoinLatestHeightFallback(t *testing.T) {
	b := NewBitcoin(&fakeMempool{tipErr: errDown}, nil, &fakeBlockCypher{height: 840001}, nil, zerolog.Nop())
	h, err := b.LatestHeight(context.Background())
	if err != nil || h != 840001 {
		t.Errorf("LatestHeight() = %d, %v; want 840001", h, err)
	}
}

func TestBitcoinLatestBlocksWalksDown(t *testing.T) {
	b := NewBitcoin(nil, nil, &fakeBlockCypher{height: 840000}, nil, zerolog.Nop())
	blocks, err := b.LatestBlocks(context.Background(), 3)
	if err != nil {
		t.Fatalf("LatestBlocks() error = %v", err)
	}
	if len(blocks) != 3 || blocks[2].Height != 839998 {
		t.Errorf("LatestBlocks() = %+v", blocks)
	}
}

func TestBitcoinBlockByHeightViaMempool(t *testing.T) {
	m := &fakeMempool{hashes: map[int64]string{840000: btcHash}}
	b := NewBitcoin(m, nil, nil, nil, zerolog.Nop())

	block, err := b.Block(context.Background(), "840000")
	if err != nil || block.Hash != btcHash {
		t.Fatalf("Block() = %+v, %v", block, err)
	}
	if _, err := b.Block(context.Background(), "not-a-block"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("invalid id: err = %v", err)
	}
}

func TestBitcoinLatestTransactionsFromDune(t *testing.T) {
	runner := &fakeRunner{rows: map[string][]dune.Row{
		dune.BtcTxList.Name: {
			{"hash": btcHash, "value": 150000000.0, "fee": 2500.0, "block_height": 840000.0},
		},
	}}
	b := NewBitcoin(nil, nil, &fakeBlockCypher{txErr: errDown}, runner, zerolog.Nop())

	txs, err := b.LatestTransactions(context.Background(), 10)
	if err != nil {
		t.Fatalf("LatestTransactions() error = %v", err)
	}
	if len(txs) != 1 || txs[0].Value.String() != "1.5" || txs[0].Fee.String() != "0.000025" {
		t.Errorf("LatestTransactions() = %+v", txs)
	}
}

func TestBitcoinRejectsBadInput(t *testing.T) {
	b := NewBitcoin(&fakeMempool{}, nil, nil, nil, zerolog.Nop())
	if _, err := b.Transaction(context.Background(), "abc"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Transaction(abc) err = %v", err)
	}
	if _, err := b.Address(context.Background(), "bc1 q"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Address() err = %v", err)
	}
}

func TestDuneBlocks(t *testing.T) {
	blocks := duneBlocks([]dune.Row{
		{"height": 840000.0, "hash": btcHash, "transaction_count": 3050.0, "time": "2024-04-20 00:09:27.000 UTC"},
		{"hash": "missing height"},
	})
	if len(blocks) != 1 || blocks[0].TxCount != 3050 || blocks[0].Timestamp.IsZero() {
		t.Errorf("duneBlocks() = %+v", blocks)
	}
}
