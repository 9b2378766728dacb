package crypto

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/format"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// Blockchair reads Bitcoin dashboards and network stats from api.blockchair.com.
type Blockchair struct {
	client *resty.Client
}

func NewBlockchair(baseURL, apiKey string) *Blockchair {
	client := newRestClient(baseURL)
	if apiKey != "" {
		client.SetQueryParam("key", apiKey)
	}
	return &Blockchair{client: client}
}

// BlockchairStats is the subset of /stats the explorer shows.
type BlockchairStats struct {
	Blocks              int64   `json:"blocks"`
	BestBlockHeight     int64   `json:"best_block_height"`
	Transactions24h     int64   `json:"transactions_24h"`
	Difficulty          float64 `json:"difficulty"`
	Hashrate24h         string  `json:"hashrate_24h"`
	MempoolTransactions int64   `json:"mempool_transactions"`
	SuggestedFeePerByte float64 `json:"suggested_transaction_fee_per_byte_sat"`
	AverageFeeUSD24h    float64 `json:"average_transaction_fee_usd_24h"`
	MarketPriceUSD      float64 `json:"market_price_usd"`
}

type (
	blockchairBlock struct {
		ID               int64   `json:"id"`
		Hash             string  `json:"hash"`
		Time             string  `json:"time"`
		Size             int64   `json:"size"`
		Weight           int64   `json:"weight"`
		Version          int64   `json:"version"`
		MerkleRoot       string  `json:"merkle_root"`
		Nonce            int64   `json:"nonce"`
		Difficulty       float64 `json:"difficulty"`
		TransactionCount int     `json:"transaction_count"`
		GuessedMiner     string  `json:"guessed_miner"`
	}

	blockchairTx struct {
		BlockID     int64   `json:"block_id"`
		Hash        string  `json:"hash"`
		Time        string  `json:"time"`
		Size        int64   `json:"size"`
		Weight      int64   `json:"weight"`
		Fee         int64   `json:"fee"`
		InputCount  int     `json:"input_count"`
		OutputCount int     `json:"output_count"`
		InputTotal  int64   `json:"input_total"`
		OutputTotal int64   `json:"output_total"`
		FeePerKB    float64 `json:"fee_per_kb"`
	}

	blockchairIO struct {
		Recipient string `json:"recipient"`
		Value     int64  `json:"value"`
	}

	blockchairContext struct {
		State int64 `json:"state"`
	}
)

func (b *Blockchair) Stats(ctx context.Context) (BlockchairStats, error) {
	var res struct {
		Data BlockchairStats `json:"data"`
	}
	err := getJSON(ctx, "blockchair", b.client.R(), "/stats", &res)
	return res.Data, err
}

// Address returns the address summary and its latest transactions. Confirmations
// are counted against the chain tip reported with the response.
func (b *Blockchair) Address(ctx context.Context, addr string, limit int) (model.Address, []model.AddressTransaction, error) {
	var res struct {
		Data map[string]struct {
			Address struct {
				Balance            int64  `json:"balance"`
				Received           int64  `json:"received"`
				Spent              int64  `json:"spent"`
				TransactionCount   int64  `json:"transaction_count"`
				FirstSeenReceiving string `json:"first_seen_receiving"`
				LastSeenReceiving  string `json:"last_seen_receiving"`
				LastSeenSpending   string `json:"last_seen_spending"`
			} `json:"address"`
			Transactions []struct {
				BlockID       int64  `json:"block_id"`
				Hash          string `json:"hash"`
				Time          string `json:"time"`
				BalanceChange int64  `json:"balance_change"`
				Fee           int64  `json:"fee"`
			} `json:"transactions"`
		} `json:"data"`
		Context blockchairContext `json:"context"`
	}
	req := b.client.R().
		SetPathParam("addr", addr).
		SetQueryParam("transaction_details", "true").
		SetQueryParam("limit", strconv.Itoa(limit))
	if err := getJSON(ctx, "blockchair", req, "/dashboards/address/{addr}", &res); err != nil {
		return model.Address{}, nil, err
	}
	entry, ok := res.Data[addr]
	if !ok {
		return model.Address{}, nil, fmt.Errorf("blockchair address %s: %w", addr, ErrNotFound)
	}

	a := entry.Address
	out := model.Address{
		Chain:    model.ChainBitcoin,
		Address:  addr,
		Balance:  format.SatoshiToBTC(a.Balance),
		Received: format.SatoshiToBTC(a.Received),
		Spent:    format.SatoshiToBTC(a.Spent),
		TxCount:  a.TransactionCount,
	}
	if t, err := format.ParseTimestamp(a.FirstSeenReceiving); err == nil {
		out.FirstSeen = &t
	}
	last := a.LastSeenSpending
	if last < a.LastSeenReceiving {
		last = a.LastSeenReceiving
	}
	if t, err := format.ParseTimestamp(last); err == nil {
		out.LastSeen = &t
	}

	txs := make([]model.AddressTransaction, 0, len(entry.Transactions))
	for _, raw := range entry.Transactions {
		change := raw.BalanceChange
		incoming := change >= 0
		if change < 0 {
			change = -change
		}
		tx := model.Transaction{
			Chain:       model.ChainBitcoin,
			Hash:        raw.Hash,
			BlockNumber: raw.BlockID,
			Pending:     raw.BlockID <= 0,
			Value:       format.SatoshiToBTC(change),
			Fee:         format.SatoshiToBTC(raw.Fee),
		}
		tx.Timestamp, _ = format.ParseTimestamp(raw.Time)
		if raw.BlockID > 0 {
			tx.Confirmations = res.Context.State - raw.BlockID + 1
		}
		txs = append(txs, model.AddressTransaction{Transaction: tx, Address: addr, Incoming: incoming})
	}
	return out, txs, nil
}

func (b *Blockchair) Transaction(ctx context.Context, txid string) (model.Transaction, error) {
	var res struct {
		Data map[string]struct {
			Transaction blockchairTx   `json:"transaction"`
			Inputs      []blockchairIO `json:"inputs"`
			Outputs     []blockchairIO `json:"outputs"`
		} `json:"data"`
		Context blockchairContext `json:"context"`
	}
	req := b.client.R().SetPathParam("txid", txid)
	if err := getJSON(ctx, "blockchair", req, "/dashboards/transaction/{txid}", &res); err != nil {
		return model.Transaction{}, err
	}
	entry, ok := res.Data[txid]
	if !ok {
		return model.Transaction{}, fmt.Errorf("blockchair tx %s: %w", txid, ErrNotFound)
	}
	tx := entry.Transaction.toModel()
	if len(entry.Inputs) > 0 {
		tx.From = entry.Inputs[0].Recipient
	}
	if len(entry.Outputs) > 0 {
		tx.To = entry.Outputs[0].Recipient
	}
	if tx.BlockNumber > 0 {
		tx.Confirmations = res.Context.State - tx.BlockNumber + 1
	}
	return tx, nil
}

// Block looks a block up by hash when id is longer than ten characters and by
// height otherwise.
func (b *Blockchair) Block(ctx context.Context, id string) (model.Block, error) {
	path := "/dashboards/block-height/{id}"
	if len(id) > 10 {
		path = "/dashboards/block/{id}"
	}
	var res struct {
		Data map[string]struct {
			Block        blockchairBlock `json:"block"`
			Transactions []string        `json:"transactions"`
		} `json:"data"`
	}
	if err := getJSON(ctx, "blockchair", b.client.R().SetPathParam("id", id), path, &res); err != nil {
		return model.Block{}, err
	}
	for _, entry := range res.Data {
		if entry.Block.Hash == "" {
			continue
		}
		block := entry.Block.toModel()
		block.TxHashes = entry.Transactions
		return block, nil
	}
	return model.Block{}, fmt.Errorf("blockchair block %s: %w", id, ErrNotFound)
}

// LatestBlocks returns the newest blocks, highest first.
func (b *Blockchair) LatestBlocks(ctx context.Context, limit int) ([]model.Block, error) {
	var res struct {
		Data []blockchairBlock `json:"data"`
	}
	req := b.client.R().
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetQueryParam("s", "id(desc)")
	if err := getJSON(ctx, "blockchair", req, "/blocks", &res); err != nil {
		return nil, err
	}
	blocks := make([]model.Block, 0, len(res.Data))
	for _, raw := range res.Data {
		blocks = append(blocks, raw.toModel())
	}
	return blocks, nil
}

// MempoolTransactions returns the newest unconfirmed transactions.
func (b *Blockchair) MempoolTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	var res struct {
		Data []blockchairTx `json:"data"`
	}
	req := b.client.R().
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetQueryParam("s", "time(desc)")
	if err := getJSON(ctx, "blockchair", req, "/mempool/transactions", &res); err != nil {
		return nil, err
	}
	txs := make([]model.Transaction, 0, len(res.Data))
	for _, raw := range res.Data {
		txs = append(txs, raw.toModel())
	}
	return txs, nil
}

// Hashrate parses the hashrate Blockchair sends as a decimal string.
func (s BlockchairStats) Hashrate() float64 {
	f, _ := strconv.ParseFloat(s.Hashrate24h, 64)
	return f
}

func (b blockchairBlock) toModel() model.Block {
	block := model.Block{
		Chain:      model.ChainBitcoin,
		Height:     b.ID,
		Hash:       b.Hash,
		Miner:      b.GuessedMiner,
		Size:       b.Size,
		Weight:     b.Weight,
		TxCount:    b.TransactionCount,
		Difficulty: decimal.NewFromFloat(b.Difficulty).String(),
		Nonce:      strconv.FormatInt(b.Nonce, 10),
		MerkleRoot: b.MerkleRoot,
	}
	block.Timestamp, _ = format.ParseTimestamp(b.Time)
	return block
}

func (t blockchairTx) toModel() model.Transaction {
	tx := model.Transaction{
		Chain:       model.ChainBitcoin,
		Hash:        t.Hash,
		BlockNumber: t.BlockID,
		Pending:     t.BlockID <= 0,
		Value:       format.SatoshiToBTC(t.OutputTotal),
		Fee:         format.SatoshiToBTC(t.Fee),
		InputCount:  t.InputCount,
		OutputCount: t.OutputCount,
		InputTotal:  format.SatoshiToBTC(t.InputTotal),
		OutputTotal: format.SatoshiToBTC(t.OutputTotal),
		Size:        t.Size,
		Weight:      t.Weight,
	}
	if tx.Pending {
		tx.BlockNumber = 0
	}
	tx.Timestamp, _ = format.ParseTimestamp(t.Time)
	return tx
}
