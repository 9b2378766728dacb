package crypto

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/format"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// Moralis reads Ethereum data from the Moralis Web3 API.
type Moralis struct {
	client *resty.Client
}

func NewMoralis(baseURL, apiKey string) *Moralis {
	client := newRestClient(baseURL).SetQueryParam("chain", "eth")
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	return &Moralis{client: client}
}

type (
	moralisTx struct {
		Hash            string    `json:"hash"`
		BlockNumber     numString `json:"block_number"`
		BlockTimestamp  string    `json:"block_timestamp"`
		FromAddress     string    `json:"from_address"`
		ToAddress       string    `json:"to_address"`
		Value           string    `json:"value"`
		Gas             numString `json:"gas"`
		GasPrice        string    `json:"gas_price"`
		Input           string    `json:"input"`
		ReceiptGasUsed  numString `json:"receipt_gas_used"`
		ReceiptStatus   string    `json:"receipt_status"`
		ReceiptContract string    `json:"receipt_contract_address"`
		TransactionFee  string    `json:"transaction_fee"`
	}

	moralisBlock struct {
		Number           numString   `json:"number"`
		Hash             string      `json:"hash"`
		ParentHash       string      `json:"parent_hash"`
		Timestamp        string      `json:"timestamp"`
		Nonce            string      `json:"nonce"`
		Difficulty       string      `json:"difficulty"`
		GasLimit         numString   `json:"gas_limit"`
		GasUsed          numString   `json:"gas_used"`
		Miner            string      `json:"miner"`
		Size             numString   `json:"size"`
		TransactionCount numString   `json:"transaction_count"`
		Transactions     []moralisTx `json:"transactions"`
	}
)

func (m *Moralis) Transaction(ctx context.Context, hash string) (model.Transaction, error) {
	var res moralisTx
	req := m.client.R().SetPathParam("hash", hash)
	if err := getJSON(ctx, "moralis", req, "/transaction/{hash}", &res); err != nil {
		return model.Transaction{}, err
	}
	if res.Hash == "" {
		return model.Transaction{}, fmt.Errorf("moralis tx %s: %w", hash, ErrNotFound)
	}
	return res.toModel(), nil
}

// AddressTransactions returns the latest transactions sent or received by addr.
func (m *Moralis) AddressTransactions(ctx context.Context, addr string, limit int) ([]model.AddressTransaction, error) {
	var res struct {
		Result []moralisTx `json:"result"`
	}
	req := m.client.R().
		SetPathParam("addr", addr).
		SetQueryParam("limit", strconv.Itoa(limit))
	if err := getJSON(ctx, "moralis", req, "/{addr}/verbose", &res); err != nil {
		return nil, err
	}
	out := make([]model.AddressTransaction, 0, len(res.Result))
	for _, raw := range res.Result {
		out = append(out, model.AddressTransaction{
			Transaction: raw.toModel(),
			Address:     addr,
			Incoming:    strings.EqualFold(raw.ToAddress, addr),
		})
	}
	return out, nil
}

// Balance returns the ETH balance of addr.
func (m *Moralis) Balance(ctx context.Context, addr string) (decimal.Decimal, error) {
	var res struct {
		Balance string `json:"balance"`
	}
	req := m.client.R().SetPathParam("addr", addr)
	if err := getJSON(ctx, "moralis", req, "/{addr}/balance", &res); err != nil {
		return decimal.Zero, err
	}
	wei, err := format.ParseWei(res.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("moralis balance %s: %w", addr, err)
	}
	return format.WeiToEth(wei), nil
}

// TokenBalances returns the ERC-20 holdings of addr in token units.
func (m *Moralis) TokenBalances(ctx context.Context, addr string) ([]model.Token, error) {
	var res []struct {
		TokenAddress string    `json:"token_address"`
		Name         string    `json:"name"`
		Symbol       string    `json:"symbol"`
		Logo         string    `json:"logo"`
		Decimals     numString `json:"decimals"`
		Balance      string    `json:"balance"`
		PossibleSpam bool      `json:"possible_spam"`
	}
	req := m.client.R().SetPathParam("addr", addr)
	if err := getJSON(ctx, "moralis", req, "/{addr}/erc20", &res); err != nil {
		return nil, err
	}
	tokens := make([]model.Token, 0, len(res))
	for _, t := range res {
		if t.PossibleSpam {
			continue
		}
		decimals, _ := t.Decimals.Int64()
		raw, err := decimal.NewFromString(t.Balance)
		if err != nil {
			raw = decimal.Zero
		}
		tokens = append(tokens, model.Token{
			Name:            t.Name,
			Symbol:          t.Symbol,
			Decimals:        int(decimals),
			ContractAddress: t.TokenAddress,
			Balance:         raw.Shift(-int32(decimals)),
			Logo:            t.Logo,
		})
	}
	return tokens, nil
}

// Block returns a block by number or hash with its transactions.
func (m *Moralis) Block(ctx context.Context, id string) (model.Block, []model.Transaction, error) {
	var res moralisBlock
	req := m.client.R().SetPathParam("id", id)
	if err := getJSON(ctx, "moralis", req, "/block/{id}", &res); err != nil {
		return model.Block{}, nil, err
	}
	if res.Hash == "" {
		return model.Block{}, nil, fmt.Errorf("moralis block %s: %w", id, ErrNotFound)
	}

	height, _ := res.Number.Int64()
	block := model.Block{
		Chain:      model.ChainEthereum,
		Height:     height,
		Hash:       res.Hash,
		ParentHash: res.ParentHash,
		Miner:      res.Miner,
		Difficulty: res.Difficulty,
		Nonce:      res.Nonce,
	}
	block.Timestamp, _ = format.ParseTimestamp(res.Timestamp)
	block.Size, _ = res.Size.Int64()
	gasUsed, _ := res.GasUsed.Int64()
	gasLimit, _ := res.GasLimit.Int64()
	block.GasUsed, block.GasLimit = uint64(gasUsed), uint64(gasLimit)

	txs := make([]model.Transaction, 0, len(res.Transactions))
	for _, raw := range res.Transactions {
		tx := raw.toModel()
		block.TxHashes = append(block.TxHashes, tx.Hash)
		txs = append(txs, tx)
	}
	block.TxCount = len(txs)
	if n, err := res.TransactionCount.Int64(); err == nil && n > 0 {
		block.TxCount = int(n)
	}
	return block, txs, nil
}

// LatestBlockNumber asks Moralis for the block closest to the current time.
func (m *Moralis) LatestBlockNumber(ctx context.Context) (int64, error) {
	var res struct {
		Block int64 `json:"block"`
	}
	req := m.client.R().SetQueryParam("date", time.Now().UTC().Format(time.RFC3339))
	if err := getJSON(ctx, "moralis", req, "/dateToBlock", &res); err != nil {
		return 0, err
	}
	if res.Block == 0 {
		return 0, fmt.Errorf("moralis dateToBlock: %w", ErrNotFound)
	}
	return res.Block, nil
}

func (t moralisTx) toModel() model.Transaction {
	tx := model.Transaction{
		Chain:        model.ChainEthereum,
		Hash:         t.Hash,
		From:         t.FromAddress,
		To:           t.ToAddress,
		Value:        format.WeiStringToEth(t.Value),
		IsError:      t.ReceiptStatus == "0",
		ContractAddr: t.ReceiptContract,
	}
	if n, err := t.BlockNumber.Int64(); err == nil {
		tx.BlockNumber = n
	} else {
		tx.Pending = true
	}
	tx.Timestamp, _ = format.ParseTimestamp(t.BlockTimestamp)
	if gas, err := t.Gas.Int64(); err == nil {
		tx.Gas = uint64(gas)
	}
	if price, err := decimal.NewFromString(t.GasPrice); err == nil {
		tx.GasPrice = price
	}
	switch fee, err := decimal.NewFromString(t.TransactionFee); {
	case err == nil:
		tx.Fee = fee
	default:
		if used, err := t.ReceiptGasUsed.Int64(); err == nil {
			tx.Fee = tx.GasPrice.Mul(decimal.NewFromInt(used)).Shift(-18)
		}
	}
	if len(t.Input) >= 10 {
		tx.MethodID = t.Input[:10]
	}
	return tx
}
