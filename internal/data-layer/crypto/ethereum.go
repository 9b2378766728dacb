package crypto

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/format"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// EthereumRPC reads blocks, transactions and balances from an Ethereum JSON-RPC node.
type EthereumRPC struct {
	rpc *jsonRPC
}

func NewEthereumRPC(rpcURL, apiKey string) *EthereumRPC {
	return &EthereumRPC{rpc: newJSONRPC("ethereum-rpc", rpcURL, apiKey, 0)}
}

type ethRPCTx struct {
	Hash        common.Hash     `json:"hash"`
	BlockNumber *hexutil.Big    `json:"blockNumber"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	Value       *hexutil.Big    `json:"value"`
	Gas         hexutil.Uint64  `json:"gas"`
	GasPrice    *hexutil.Big    `json:"gasPrice"`
	Input       hexutil.Bytes   `json:"input"`
}

type ethRPCBlock struct {
	Number       *hexutil.Big   `json:"number"`
	Hash         common.Hash    `json:"hash"`
	ParentHash   common.Hash    `json:"parentHash"`
	Timestamp    hexutil.Uint64 `json:"timestamp"`
	Miner        common.Address `json:"miner"`
	Size         hexutil.Uint64 `json:"size"`
	GasUsed      hexutil.Uint64 `json:"gasUsed"`
	GasLimit     hexutil.Uint64 `json:"gasLimit"`
	Difficulty   *hexutil.Big   `json:"difficulty"`
	Nonce        string         `json:"nonce"`
	Transactions []ethRPCTx     `json:"transactions"`
}

type ethRPCReceipt struct {
	Status            hexutil.Uint64  `json:"status"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	EffectiveGasPrice *hexutil.Big    `json:"effectiveGasPrice"`
	ContractAddress   *common.Address `json:"contractAddress"`
}

func (e *EthereumRPC) LatestBlockNumber(ctx context.Context) (int64, error) {
	var height hexutil.Uint64
	if err := e.rpc.rpcCall(ctx, "eth_blockNumber", nil, &height); err != nil {
		return 0, err
	}
	return int64(height), nil
}

// GasPrice returns the node's suggested gas price in wei.
func (e *EthereumRPC) GasPrice(ctx context.Context) (*big.Int, error) {
	var price hexutil.Big
	if err := e.rpc.rpcCall(ctx, "eth_gasPrice", nil, &price); err != nil {
		return nil, err
	}
	return price.ToInt(), nil
}

// Block returns block number with its transactions. A negative number asks for
// the latest block.
func (e *EthereumRPC) Block(ctx context.Context, number int64) (model.Block, []model.Transaction, error) {
	tag := "latest"
	if number >= 0 {
		tag = hexutil.EncodeUint64(uint64(number))
	}
	var res ethRPCBlock
	if err := e.rpc.rpcCall(ctx, "eth_getBlockByNumber", []any{tag, true}, &res); err != nil {
		return model.Block{}, nil, err
	}
	return e.toBlock(res)
}

func (e *EthereumRPC) BlockByHash(ctx context.Context, hash string) (model.Block, []model.Transaction, error) {
	if !isHexHash(hash) {
		return model.Block{}, nil, fmt.Errorf("block hash %q: %w", hash, ErrInvalidInput)
	}
	var res ethRPCBlock
	if err := e.rpc.rpcCall(ctx, "eth_getBlockByHash", []any{hash, true}, &res); err != nil {
		return model.Block{}, nil, err
	}
	return e.toBlock(res)
}

func (e *EthereumRPC) toBlock(res ethRPCBlock) (model.Block, []model.Transaction, error) {
	if res.Number == nil {
		return model.Block{}, nil, fmt.Errorf("block without number: %w", ErrNotFound)
	}
	ts := time.Unix(int64(res.Timestamp), 0).UTC()
	block := model.Block{
		Chain:      model.ChainEthereum,
		Height:     res.Number.ToInt().Int64(),
		Hash:       res.Hash.Hex(),
		ParentHash: res.ParentHash.Hex(),
		Timestamp:  ts,
		Miner:      res.Miner.Hex(),
		Size:       int64(res.Size),
		TxCount:    len(res.Transactions),
		GasUsed:    uint64(res.GasUsed),
		GasLimit:   uint64(res.GasLimit),
		Nonce:      res.Nonce,
	}
	if res.Difficulty != nil {
		block.Difficulty = res.Difficulty.ToInt().String()
	}

	txs := make([]model.Transaction, 0, len(res.Transactions))
	for _, raw := range res.Transactions {
		tx := toEthTransaction(raw)
		tx.Timestamp = ts
		block.TxHashes = append(block.TxHashes, tx.Hash)
		txs = append(txs, tx)
	}
	return block, txs, nil
}

// Transaction returns a transaction with its receipt applied: fee, error flag
// and created contract. Pending transactions have no receipt.
func (e *EthereumRPC) Transaction(ctx context.Context, hash string) (model.Transaction, error) {
	if !isHexHash(hash) {
		return model.Transaction{}, fmt.Errorf("tx hash %q: %w", hash, ErrInvalidInput)
	}
	var raw ethRPCTx
	if err := e.rpc.rpcCall(ctx, "eth_getTransactionByHash", []any{hash}, &raw); err != nil {
		return model.Transaction{}, err
	}
	tx := toEthTransaction(raw)
	if tx.Pending {
		return tx, nil
	}

	var receipt ethRPCReceipt
	if err := e.rpc.rpcCall(ctx, "eth_getTransactionReceipt", []any{hash}, &receipt); err == nil {
		applyReceipt(&tx, receipt)
	}

	var header struct {
		Timestamp hexutil.Uint64 `json:"timestamp"`
	}
	tag := hexutil.EncodeUint64(uint64(tx.BlockNumber))
	if err := e.rpc.rpcCall(ctx, "eth_getBlockByNumber", []any{tag, false}, &header); err == nil {
		tx.Timestamp = time.Unix(int64(header.Timestamp), 0).UTC()
	}
	return tx, nil
}

// Balance returns the balance of addr in wei.
func (e *EthereumRPC) Balance(ctx context.Context, addr string) (*big.Int, error) {
	if !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("address %q: %w", addr, ErrInvalidInput)
	}
	var bal hexutil.Big
	if err := e.rpc.rpcCall(ctx, "eth_getBalance", []any{addr, "latest"}, &bal); err != nil {
		return nil, err
	}
	return bal.ToInt(), nil
}

func (e *EthereumRPC) Nonce(ctx context.Context, addr string) (uint64, error) {
	var nonce hexutil.Uint64
	if err := e.rpc.rpcCall(ctx, "eth_getTransactionCount", []any{addr, "latest"}, &nonce); err != nil {
		return 0, err
	}
	return uint64(nonce), nil
}

func (e *EthereumRPC) IsContract(ctx context.Context, addr string) (bool, error) {
	var code hexutil.Bytes
	if err := e.rpc.rpcCall(ctx, "eth_getCode", []any{addr, "latest"}, &code); err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// Address combines balance, nonce and code presence of addr.
func (e *EthereumRPC) Address(ctx context.Context, addr string) (model.Address, error) {
	bal, err := e.Balance(ctx, addr)
	if err != nil {
		return model.Address{}, err
	}
	out := model.Address{
		Chain:   model.ChainEthereum,
		Address: common.HexToAddress(addr).Hex(),
		Balance: format.WeiToEth(bal),
	}
	if nonce, err := e.Nonce(ctx, addr); err == nil {
		out.Nonce = nonce
	}
	if isContract, err := e.IsContract(ctx, addr); err == nil {
		out.IsContract = isContract
	}
	return out, nil
}

func toEthTransaction(raw ethRPCTx) model.Transaction {
	tx := model.Transaction{
		Chain: model.ChainEthereum,
		Hash:  raw.Hash.Hex(),
		From:  raw.From.Hex(),
		Gas:   uint64(raw.Gas),
	}
	if raw.To != nil {
		tx.To = raw.To.Hex()
	}
	if raw.BlockNumber == nil {
		tx.Pending = true
	} else {
		tx.BlockNumber = raw.BlockNumber.ToInt().Int64()
	}
	if raw.Value != nil {
		tx.Value = format.WeiToEth(raw.Value.ToInt())
	}
	if raw.GasPrice != nil {
		tx.GasPrice = decimal.NewFromBigInt(raw.GasPrice.ToInt(), 0)
	}
	if len(raw.Input) >= 4 {
		tx.MethodID = hexutil.Encode(raw.Input[:4])
	}
	return tx
}

func applyReceipt(tx *model.Transaction, r ethRPCReceipt) {
	price := tx.GasPrice
	if r.EffectiveGasPrice != nil {
		price = decimal.NewFromBigInt(r.EffectiveGasPrice.ToInt(), 0)
	}
	tx.Fee = price.Mul(decimal.NewFromInt(int64(r.GasUsed))).Shift(-18)
	tx.IsError = r.Status == 0
	if r.ContractAddress != nil {
		tx.ContractAddr = r.ContractAddress.Hex()
	}
}

func isHexHash(s string) bool {
	b, err := hexutil.Decode(s)
	return err == nil && len(b) == common.HashLength
}
