package crypto

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/format"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// BlockCypher reads chain info, blocks and unconfirmed transactions from
// api.blockcypher.com.
type BlockCypher struct {
	client *resty.Client
}

func NewBlockCypher(baseURL, token string) *BlockCypher {
	client := newRestClient(baseURL)
	if token != "" {
		client.SetQueryParam("token", token)
	}
	return &BlockCypher{client: client}
}

// ChainInfo is the chain endpoint summary; fees are in satoshi per kilobyte.
type ChainInfo struct {
	Name             string    `json:"name"`
	Height           int64     `json:"height"`
	Hash             string    `json:"hash"`
	Time             time.Time `json:"time"`
	PreviousHash     string    `json:"previous_hash"`
	UnconfirmedCount int64     `json:"unconfirmed_count"`
	HighFeePerKB     int64     `json:"high_fee_per_kb"`
	MediumFeePerKB   int64     `json:"medium_fee_per_kb"`
	LowFeePerKB      int64     `json:"low_fee_per_kb"`
}

type (
	blockCypherBlock struct {
		Hash       string    `json:"hash"`
		Height     int64     `json:"height"`
		Time       time.Time `json:"time"`
		PrevBlock  string    `json:"prev_block"`
		MerkleRoot string    `json:"mrkl_root"`
		NTx        int       `json:"n_tx"`
		Size       int64     `json:"size"`
		Nonce      int64     `json:"nonce"`
		TxIDs      []string  `json:"txids"`
	}

	blockCypherTx struct {
		Hash        string    `json:"hash"`
		BlockHeight int64     `json:"block_height"`
		Total       int64     `json:"total"`
		Fees        int64     `json:"fees"`
		Size        int64     `json:"size"`
		Received    time.Time `json:"received"`
		Confirmed   time.Time `json:"confirmed"`
		VinSize     int       `json:"vin_sz"`
		VoutSize    int       `json:"vout_sz"`
		Inputs      []struct {
			Addresses   []string `json:"addresses"`
			OutputValue int64    `json:"output_value"`
		} `json:"inputs"`
		Outputs []struct {
			Addresses []string `json:"addresses"`
			Value     int64    `json:"value"`
		} `json:"outputs"`
	}
)

func (b *BlockCypher) ChainInfo(ctx context.Context) (ChainInfo, error) {
	var res ChainInfo
	err := getJSON(ctx, "blockcypher", b.client.R(), "", &res)
	return res, err
}

func (b *BlockCypher) Block(ctx context.Context, height int64) (model.Block, error) {
	var res blockCypherBlock
	req := b.client.R().
		SetPathParam("height", strconv.FormatInt(height, 10)).
		SetQueryParam("limit", "20")
	if err := getJSON(ctx, "blockcypher", req, "/blocks/{height}", &res); err != nil {
		return model.Block{}, err
	}
	return model.Block{
		Chain:      model.ChainBitcoin,
		Height:     res.Height,
		Hash:       res.Hash,
		ParentHash: res.PrevBlock,
		Timestamp:  res.Time.UTC(),
		Size:       res.Size,
		TxCount:    res.NTx,
		TxHashes:   res.TxIDs,
		Nonce:      strconv.FormatInt(res.Nonce, 10),
		MerkleRoot: res.MerkleRoot,
	}, nil
}

// UnconfirmedTransactions returns the newest transactions waiting in the mempool.
func (b *BlockCypher) UnconfirmedTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	var res []blockCypherTx
	req := b.client.R().SetQueryParam("limit", strconv.Itoa(limit))
	if err := getJSON(ctx, "blockcypher", req, "/txs", &res); err != nil {
		return nil, err
	}
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	txs := make([]model.Transaction, 0, len(res))
	for _, raw := range res {
		txs = append(txs, raw.toModel())
	}
	return txs, nil
}

func (t blockCypherTx) toModel() model.Transaction {
	tx := model.Transaction{
		Chain:       model.ChainBitcoin,
		Hash:        t.Hash,
		Pending:     t.BlockHeight <= 0,
		Timestamp:   t.Received.UTC(),
		Value:       format.SatoshiToBTC(t.Total),
		Fee:         format.SatoshiToBTC(t.Fees),
		InputCount:  t.VinSize,
		OutputCount: t.VoutSize,
		OutputTotal: format.SatoshiToBTC(t.Total),
		Size:        t.Size,
	}
	if !tx.Pending {
		tx.BlockNumber = t.BlockHeight
		if !t.Confirmed.IsZero() {
			tx.Timestamp = t.Confirmed.UTC()
		}
	}
	if tx.InputCount == 0 {
		tx.InputCount = len(t.Inputs)
	}
	if tx.OutputCount == 0 {
		tx.OutputCount = len(t.Outputs)
	}
	var in int64
	for _, i := range t.Inputs {
		in += i.OutputValue
		if tx.From == "" && len(i.Addresses) > 0 {
			tx.From = i.Addresses[0]
		}
	}
	tx.InputTotal = format.SatoshiToBTC(in)
	for _, o := range t.Outputs {
		if len(o.Addresses) > 0 {
			tx.To = o.Addresses[0]
			break
		}
	}
	return tx
}
