package crypto

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/format"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// Mempool reads Bitcoin blocks, transactions and fee estimates from the
// Mempool.space REST API.
type Mempool struct {
	client *resty.Client
}

func NewMempool(baseURL string) *Mempool {
	return &Mempool{client: newRestClient(baseURL)}
}

type (
	mempoolBlock struct {
		ID                string  `json:"id"`
		Height            int64   `json:"height"`
		Timestamp         int64   `json:"timestamp"`
		TxCount           int     `json:"tx_count"`
		Size              int64   `json:"size"`
		Weight            int64   `json:"weight"`
		MerkleRoot        string  `json:"merkle_root"`
		PreviousBlockHash string  `json:"previousblockhash"`
		Nonce             int64   `json:"nonce"`
		Difficulty        float64 `json:"difficulty"`
	}

	mempoolTx struct {
		TxID string `json:"txid"`
		Vin  []struct {
			Prevout *struct {
				Value               int64  `json:"value"`
				ScriptPubKeyAddress string `json:"scriptpubkey_address"`
			} `json:"prevout"`
		} `json:"vin"`
		Vout []struct {
			Value               int64  `json:"value"`
			ScriptPubKeyAddress string `json:"scriptpubkey_address"`
		} `json:"vout"`
		Size   int64 `json:"size"`
		Weight int64 `json:"weight"`
		Fee    int64 `json:"fee"`
		Status struct {
			Confirmed   bool  `json:"confirmed"`
			BlockHeight int64 `json:"block_height"`
			BlockTime   int64 `json:"block_time"`
		} `json:"status"`
	}

	// MempoolInfo is the size of the unconfirmed transaction pool.
	MempoolInfo struct {
		Count    int64 `json:"count"`
		VSize    int64 `json:"vsize"`
		TotalFee int64 `json:"total_fee"`
	}

	// RecommendedFees are fee rates in sat/vB.
	RecommendedFees struct {
		Fastest  float64 `json:"fastestFee"`
		HalfHour float64 `json:"halfHourFee"`
		Hour     float64 `json:"hourFee"`
		Economy  float64 `json:"economyFee"`
		Minimum  float64 `json:"minimumFee"`
	}
)

func (m *Mempool) TipHeight(ctx context.Context) (int64, error) {
	resp, err := m.client.R().SetContext(ctx).Get("/blocks/tip/height")
	if err := checkResponse("mempool", resp, err); err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(resp.String()), 10, 64)
}

// Blocks returns the ten most recent blocks, newest first.
func (m *Mempool) Blocks(ctx context.Context) ([]model.Block, error) {
	var res []mempoolBlock
	if err := getJSON(ctx, "mempool", m.client.R(), "/blocks", &res); err != nil {
		return nil, err
	}
	blocks := make([]model.Block, 0, len(res))
	for _, b := range res {
		blocks = append(blocks, b.toModel())
	}
	return blocks, nil
}

func (m *Mempool) Block(ctx context.Context, hash string) (model.Block, error) {
	var res mempoolBlock
	req := m.client.R().SetPathParam("hash", hash)
	if err := getJSON(ctx, "mempool", req, "/block/{hash}", &res); err != nil {
		return model.Block{}, err
	}
	return res.toModel(), nil
}

func (m *Mempool) BlockHash(ctx context.Context, height int64) (string, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		SetPathParam("height", strconv.FormatInt(height, 10)).
		Get("/block-height/{height}")
	if err := checkResponse("mempool", resp, err); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.String()), nil
}

func (m *Mempool) Transaction(ctx context.Context, txid string) (model.Transaction, error) {
	var res mempoolTx
	req := m.client.R().SetPathParam("txid", txid)
	if err := getJSON(ctx, "mempool", req, "/tx/{txid}", &res); err != nil {
		return model.Transaction{}, err
	}
	return res.toModel(), nil
}

func (m *Mempool) Address(ctx context.Context, addr string) (model.Address, error) {
	type stats struct {
		Funded  int64 `json:"funded_txo_sum"`
		Spent   int64 `json:"spent_txo_sum"`
		TxCount int64 `json:"tx_count"`
	}
	var res struct {
		Address      string `json:"address"`
		ChainStats   stats  `json:"chain_stats"`
		MempoolStats stats  `json:"mempool_stats"`
	}
	req := m.client.R().SetPathParam("addr", addr)
	if err := getJSON(ctx, "mempool", req, "/address/{addr}", &res); err != nil {
		return model.Address{}, err
	}
	funded := res.ChainStats.Funded + res.MempoolStats.Funded
	spent := res.ChainStats.Spent + res.MempoolStats.Spent
	return model.Address{
		Chain:    model.ChainBitcoin,
		Address:  addr,
		Balance:  format.SatoshiToBTC(funded - spent),
		Received: format.SatoshiToBTC(funded),
		Spent:    format.SatoshiToBTC(spent),
		TxCount:  res.ChainStats.TxCount + res.MempoolStats.TxCount,
	}, nil
}

// AddressTransactions returns the latest transactions touching addr with the
// balance change they caused.
func (m *Mempool) AddressTransactions(ctx context.Context, addr string, limit int) ([]model.AddressTransaction, error) {
	var res []mempoolTx
	req := m.client.R().SetPathParam("addr", addr)
	if err := getJSON(ctx, "mempool", req, "/address/{addr}/txs", &res); err != nil {
		return nil, err
	}
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	out := make([]model.AddressTransaction, 0, len(res))
	for _, raw := range res {
		var change int64
		for _, in := range raw.Vin {
			if in.Prevout != nil && in.Prevout.ScriptPubKeyAddress == addr {
				change -= in.Prevout.Value
			}
		}
		for _, o := range raw.Vout {
			if o.ScriptPubKeyAddress == addr {
				change += o.Value
			}
		}
		at := model.AddressTransaction{Transaction: raw.toModel(), Address: addr, Incoming: change >= 0}
		if change < 0 {
			change = -change
		}
		at.Value = format.SatoshiToBTC(change)
		out = append(out, at)
	}
	return out, nil
}

func (m *Mempool) Mempool(ctx context.Context) (MempoolInfo, error) {
	var res MempoolInfo
	err := getJSON(ctx, "mempool", m.client.R(), "/mempool", &res)
	return res, err
}

func (m *Mempool) RecommendedFees(ctx context.Context) (RecommendedFees, error) {
	var res RecommendedFees
	err := getJSON(ctx, "mempool", m.client.R(), "/v1/fees/recommended", &res)
	return res, err
}

func (b mempoolBlock) toModel() model.Block {
	return model.Block{
		Chain:      model.ChainBitcoin,
		Height:     b.Height,
		Hash:       b.ID,
		ParentHash: b.PreviousBlockHash,
		Timestamp:  time.Unix(b.Timestamp, 0).UTC(),
		Size:       b.Size,
		Weight:     b.Weight,
		TxCount:    b.TxCount,
		Difficulty: strconv.FormatFloat(b.Difficulty, 'f', -1, 64),
		Nonce:      strconv.FormatInt(b.Nonce, 10),
		MerkleRoot: b.MerkleRoot,
	}
}

// toModel sums inputs and outputs; sender and receiver are the first input
// and output addresses.
func (t mempoolTx) toModel() model.Transaction {
	var totalVin, totalVout int64
	var from, to string
	for _, in := range t.Vin {
		if in.Prevout == nil {
			continue
		}
		totalVin += in.Prevout.Value
		if from == "" {
			from = in.Prevout.ScriptPubKeyAddress
		}
	}
	for _, out := range t.Vout {
		totalVout += out.Value
		if to == "" {
			to = out.ScriptPubKeyAddress
		}
	}

	tx := model.Transaction{
		Chain:       model.ChainBitcoin,
		Hash:        t.TxID,
		Pending:     !t.Status.Confirmed,
		From:        from,
		To:          to,
		Value:       format.SatoshiToBTC(totalVout),
		Fee:         format.SatoshiToBTC(t.Fee),
		InputCount:  len(t.Vin),
		OutputCount: len(t.Vout),
		InputTotal:  format.SatoshiToBTC(totalVin),
		OutputTotal: format.SatoshiToBTC(totalVout),
		Size:        t.Size,
		Weight:      t.Weight,
	}
	if t.Status.Confirmed {
		tx.BlockNumber = t.Status.BlockHeight
		tx.Timestamp = time.Unix(t.Status.BlockTime, 0).UTC()
	}
	return tx
}
