package explorer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/dune"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

type fakeNode struct {
	EthereumNode
	head   int64
	failed map[int64]bool
	txCall int
}

func (f *fakeNode) LatestBlockNumber(context.Context) (int64, error) { return f.head, nil }

func (f *fakeNode) Block(_ context.Context, n int64) (model.Block, []model.Transaction, error) {
	if n < 0 {
		n = f.head
	}
	if f.failed[n] {
		return model.Block{}, nil, errDown
	}
	return model.Block{Chain: model.ChainEthereum, Height: n},
		[]model.Transaction{{Hash: "a"}, {Hash: "b"}, {Hash: "c"}}, nil
}

func (f *fakeNode) Transaction(_ context.Context, hash string) (model.Transaction, error) {
	f.txCall++
	return model.Transaction{Hash: hash}, nil
}

func (f *fakeNode) Nonce(context.Context, string) (uint64, error) { return 9, nil }

func (f *fakeNode) GasPrice(context.Context) (*big.Int, error) { return big.NewInt(30e9), nil }

type fakeMoralis struct {
	MoralisAPI
	balanceErr error
	tokens     []model.Token
	txLimit    int
}

func (f *fakeMoralis) AddressTransactions(_ context.Context, addr string, limit int) ([]model.AddressTransaction, error) {
	f.txLimit = limit
	return []model.AddressTransaction{
		{Transaction: model.Transaction{From: addr, To: "0xb", Value: decimal.NewFromInt(1)}},
	}, nil
}

func (f *fakeMoralis) Balance(context.Context, string) (decimal.Decimal, error) {
	return decimal.RequireFromString("2.5"), f.balanceErr
}

func (f *fakeMoralis) TokenBalances(context.Context, string) ([]model.Token, error) {
	return f.tokens, nil
}

func (f *fakeMoralis) Transaction(context.Context, string) (model.Transaction, error) {
	return model.Transaction{}, errDown
}

func TestEthereumLatestBlocksSkipsFailures(t *testing.T) {
	node := &fakeNode{head: 100, failed: map[int64]bool{99: true}}
	e := NewEthereum(nil, node, nil, zerolog.Nop())

	blocks, err := e.LatestBlocks(context.Background(), 3)
	if err != nil {
		t.Fatalf("LatestBlocks() error = %v", err)
	}
	if len(blocks) != 2 || blocks[0].Height != 100 || blocks[1].Height != 98 {
		t.Errorf("LatestBlocks() = %+v, want heights 100 and 98", blocks)
	}
}

func TestEthereumLatestBlocksBoundsLimit(t *testing.T) {
	e := NewEthereum(nil, &fakeNode{head: 1000}, nil, zerolog.Nop())

	blocks, err := e.LatestBlocks(context.Background(), 999999999999)
	if err != nil {
		t.Fatalf("LatestBlocks() error = %v", err)
	}
	if len(blocks) != MaxListLimit || blocks[len(blocks)-1].Height != 1000-MaxListLimit+1 {
		t.Errorf("LatestBlocks() returned %d blocks, want %d", len(blocks), MaxListLimit)
	}
}

func TestEthereumTransactionFallsBackToNode(t *testing.T) {
	node := &fakeNode{}
	e := NewEthereum(&fakeMoralis{}, node, nil, zerolog.Nop())

	tx, err := e.Transaction(context.Background(), ethHash)
	if err != nil || tx.Hash != ethHash {
		t.Fatalf("Transaction() = %+v, %v", tx, err)
	}

	_, err = e.Transaction(context.Background(), "0x1234")
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("short hash: err = %v, want ErrInvalidID", err)
	}
	if node.txCall != 1 {
		t.Errorf("node called %d times, want 1", node.txCall)
	}
}

func TestEthereumLatestTransactionsFromDune(t *testing.T) {
	runner := &fakeRunner{rows: map[string][]dune.Row{
		dune.EthLatestTxs.Name: {
			{"hash": "0x01", "value": "1000000000000000000", "block_number": 5.0},
			{"hash": "0x02", "value": "0", "block_number": 5.0},
			{"hash": "0x03", "value": "0", "block_number": 4.0},
		},
	}}
	e := NewEthereum(nil, &fakeNode{head: 10}, runner, zerolog.Nop())

	txs, err := e.LatestTransactions(context.Background(), 2)
	if err != nil {
		t.Fatalf("LatestTransactions() error = %v", err)
	}
	if len(txs) != 2 || txs[0].Hash != "0x01" || !txs[0].Value.Equal(decimal.NewFromInt(1)) {
		t.Errorf("LatestTransactions() = %+v", txs)
	}
	if runner.params[dune.EthLatestTxs.Name]["limit"] != 2 {
		t.Errorf("limit param = %v", runner.params[dune.EthLatestTxs.Name])
	}

	// Without Dune rows the head block is used.
	e = NewEthereum(nil, &fakeNode{head: 10}, &fakeRunner{}, zerolog.Nop())
	txs, err = e.LatestTransactions(context.Background(), 2)
	if err != nil || len(txs) != 2 || txs[0].Hash != "a" {
		t.Errorf("node fallback = %+v, %v", txs, err)
	}
}

func TestEthereumAddress(t *testing.T) {
	e := NewEthereum(&fakeMoralis{}, &fakeNode{}, nil, zerolog.Nop())
	addr, err := e.Address(context.Background(), ethAddr)
	if err != nil {
		t.Fatalf("Address() error = %v", err)
	}
	if !addr.Balance.Equal(decimal.RequireFromString("2.5")) || addr.Nonce != 9 {
		t.Errorf("Address() = %+v", addr)
	}

	runner := &fakeRunner{rows: map[string][]dune.Row{
		dune.EthBalance.Name: {{"balance": 1.25}},
	}}
	e = NewEthereum(&fakeMoralis{balanceErr: errDown}, nil, runner, zerolog.Nop())
	addr, err = e.Address(context.Background(), ethAddr)
	if err != nil || !addr.Balance.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("dune fallback = %+v, %v", addr, err)
	}
	if runner.params[dune.EthBalance.Name]["address"] != ethAddr {
		t.Errorf("address param = %v", runner.params[dune.EthBalance.Name])
	}

	if _, err := e.Address(context.Background(), "0xnothex"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("invalid address: err = %v", err)
	}
}

func TestEthereumTokensUniqueByContract(t *testing.T) {
	m := &fakeMoralis{tokens: []model.Token{
		{Symbol: "USDT", ContractAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7"},
		{Symbol: "USDT", ContractAddress: "0xdac17f958d2ee523a2206206994597c13d831ec7"},
		{Symbol: "LINK", ContractAddress: "0x514910771AF9Ca656af840dff83E8264EcF986CA"},
	}}
	e := NewEthereum(m, nil, nil, zerolog.Nop())

	tokens, err := e.Tokens(context.Background(), ethAddr)
	if err != nil {
		t.Fatalf("Tokens() error = %v", err)
	}
	if len(tokens) != 2 || tokens[1].Symbol != "LINK" {
		t.Errorf("Tokens() = %+v", tokens)
	}

	if _, err := NewEthereum(nil, nil, nil, zerolog.Nop()).Tokens(context.Background(), ethAddr); !errors.Is(err, ErrNoVendor) {
		t.Errorf("no moralis: err = %v", err)
	}
}

func TestEthereumAddressStatsCoversWindow(t *testing.T) {
	moralis := &fakeMoralis{}
	e := NewEthereum(moralis, nil, nil, zerolog.Nop())

	st, err := e.AddressStats(context.Background(), ethAddr)
	if err != nil {
		t.Fatalf("AddressStats() error = %v", err)
	}
	if moralis.txLimit != statsWindow || st.SentCount != 1 {
		t.Errorf("AddressStats() read %d txs and got %+v, want window %d", moralis.txLimit, st, statsWindow)
	}
}

func TestComputeAddressStats(t *testing.T) {
	txs := []model.AddressTransaction{
		{Transaction: model.Transaction{From: ethAddr, To: "0xb", Value: decimal.NewFromInt(1), Gas: 21000, GasPrice: decimal.NewFromInt(20e9)}},
		{Transaction: model.Transaction{From: "0x742D35CC6634C0532925A3B844BC454E4438F44E", To: "0xb", Value: decimal.NewFromInt(2), Gas: 50000, GasPrice: decimal.NewFromInt(10e9)}},
		{Transaction: model.Transaction{From: "0xb", To: ethAddr, Value: decimal.RequireFromString("0.5")}},
	}
	got := ComputeAddressStats(ethAddr, txs)
	want := model.AddressStats{
		SentCount:     2,
		ReceivedCount: 1,
		SentEth:       3,
		ReceivedEth:   0.5,
		AvgGas:        35500,
		TotalGasGwei:  21000*20 + 50000*10,
	}
	if got != want {
		t.Errorf("ComputeAddressStats() = %+v, want %+v", got, want)
	}
}
