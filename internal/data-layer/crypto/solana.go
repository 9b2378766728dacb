package crypto

import (
	"context"
	"fmt"
	"time"

	"github.com/mr-tron/base58"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/format"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// LamportsPerSignature is the base fee of a transaction with one signature.
const LamportsPerSignature = 5000

// SolanaRPC reads slots, transactions and balances from a Solana JSON-RPC node.
type SolanaRPC struct {
	rpc *jsonRPC
}

func NewSolanaRPC(rpcURL, apiKey string) *SolanaRPC {
	// public endpoints allow roughly 5 requests per second
	return &SolanaRPC{rpc: newJSONRPC("solana-rpc", rpcURL, apiKey, 200*time.Millisecond)}
}

type solTx struct {
	Slot      int64  `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Fee          int64   `json:"fee"`
		Err          any     `json:"err"`
		PreBalances  []int64 `json:"preBalances"`
		PostBalances []int64 `json:"postBalances"`
	} `json:"meta"`
	Transaction struct {
		Signatures []string `json:"signatures"`
		Message    struct {
			AccountKeys []string `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

func (s *SolanaRPC) Slot(ctx context.Context) (int64, error) {
	var slot int64
	err := s.rpc.rpcCall(ctx, "getSlot", nil, &slot)
	return slot, err
}

func (s *SolanaRPC) TransactionCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.rpc.rpcCall(ctx, "getTransactionCount", nil, &n)
	return n, err
}

// Block returns the block produced in slot with its transactions.
func (s *SolanaRPC) Block(ctx context.Context, slot int64) (model.Block, []model.Transaction, error) {
	var res struct {
		Blockhash         string  `json:"blockhash"`
		PreviousBlockhash string  `json:"previousBlockhash"`
		BlockHeight       *int64  `json:"blockHeight"`
		BlockTime         *int64  `json:"blockTime"`
		Transactions      []solTx `json:"transactions"`
	}
	opts := map[string]any{
		"encoding":                       "json",
		"transactionDetails":             "full",
		"rewards":                        false,
		"maxSupportedTransactionVersion": 0,
	}
	if err := s.rpc.rpcCall(ctx, "getBlock", []any{slot, opts}, &res); err != nil {
		return model.Block{}, nil, err
	}

	block := model.Block{
		Chain:      model.ChainSolana,
		Height:     slot,
		Hash:       res.Blockhash,
		ParentHash: res.PreviousBlockhash,
		TxCount:    len(res.Transactions),
	}
	if res.BlockTime != nil {
		block.Timestamp = time.Unix(*res.BlockTime, 0).UTC()
	}

	txs := make([]model.Transaction, 0, len(res.Transactions))
	for _, raw := range res.Transactions {
		if len(raw.Transaction.Signatures) == 0 {
			continue
		}
		raw.Slot = slot
		raw.BlockTime = res.BlockTime
		tx := toSolTransaction(raw)
		block.TxHashes = append(block.TxHashes, tx.Hash)
		txs = append(txs, tx)
	}
	return block, txs, nil
}

func (s *SolanaRPC) Transaction(ctx context.Context, signature string) (model.Transaction, error) {
	if b, err := base58.Decode(signature); err != nil || len(b) != 64 {
		return model.Transaction{}, fmt.Errorf("signature %q: %w", signature, ErrInvalidInput)
	}
	var raw solTx
	opts := map[string]any{"encoding": "json", "maxSupportedTransactionVersion": 0}
	if err := s.rpc.rpcCall(ctx, "getTransaction", []any{signature, opts}, &raw); err != nil {
		return model.Transaction{}, err
	}
	return toSolTransaction(raw), nil
}

// Balance returns the balance of addr in lamports.
func (s *SolanaRPC) Balance(ctx context.Context, addr string) (int64, error) {
	if b, err := base58.Decode(addr); err != nil || len(b) != 32 {
		return 0, fmt.Errorf("address %q: %w", addr, ErrInvalidInput)
	}
	var res struct {
		Value int64 `json:"value"`
	}
	if err := s.rpc.rpcCall(ctx, "getBalance", []any{addr}, &res); err != nil {
		return 0, err
	}
	return res.Value, nil
}

// Signatures lists the latest transactions touching addr. Only the signature,
// slot, time and error flag are known at this point.
func (s *SolanaRPC) Signatures(ctx context.Context, addr string, limit int) ([]model.Transaction, error) {
	var res []struct {
		Signature string `json:"signature"`
		Slot      int64  `json:"slot"`
		BlockTime *int64 `json:"blockTime"`
		Err       any    `json:"err"`
	}
	if err := s.rpc.rpcCall(ctx, "getSignaturesForAddress", []any{addr, map[string]any{"limit": limit}}, &res); err != nil {
		return nil, err
	}
	txs := make([]model.Transaction, 0, len(res))
	for _, r := range res {
		tx := model.Transaction{
			Chain:       model.ChainSolana,
			Hash:        r.Signature,
			BlockNumber: r.Slot,
			IsError:     r.Err != nil,
		}
		if r.BlockTime != nil {
			tx.Timestamp = time.Unix(*r.BlockTime, 0).UTC()
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (s *SolanaRPC) Address(ctx context.Context, addr string) (model.Address, error) {
	lamports, err := s.Balance(ctx, addr)
	if err != nil {
		return model.Address{}, err
	}
	return model.Address{
		Chain:   model.ChainSolana,
		Address: addr,
		Balance: format.LamportsToSOL(lamports),
	}, nil
}

// toSolTransaction reads sender and receiver from the first two account keys
// and the amount from the fee payer's balance change net of the fee.
func toSolTransaction(raw solTx) model.Transaction {
	tx := model.Transaction{
		Chain:       model.ChainSolana,
		BlockNumber: raw.Slot,
	}
	if len(raw.Transaction.Signatures) > 0 {
		tx.Hash = raw.Transaction.Signatures[0]
	}
	if raw.BlockTime != nil {
		tx.Timestamp = time.Unix(*raw.BlockTime, 0).UTC()
	}
	keys := raw.Transaction.Message.AccountKeys
	if len(keys) > 0 {
		tx.From = keys[0]
	}
	if len(keys) > 1 {
		tx.To = keys[1]
	}
	if m := raw.Meta; m != nil {
		tx.Fee = format.LamportsToSOL(m.Fee)
		tx.IsError = m.Err != nil
		if len(m.PreBalances) > 0 && len(m.PostBalances) > 0 {
			diff := m.PreBalances[0] - m.PostBalances[0] - m.Fee
			if diff > 0 {
				tx.Value = format.LamportsToSOL(diff)
			}
		}
	}
	return tx
}
