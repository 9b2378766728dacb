// Package search recognises what a user typed into the search box and looks
// it up on the matching chain.
package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	data_layer "github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindEthAddress   Kind = "eth_address"
	KindEthTx        Kind = "eth_tx"
	KindBlockNumber  Kind = "block_number"
	KindBtcAddress   Kind = "btc_address"
	KindBtcHash      Kind = "btc_hash"
	KindSolAddress   Kind = "sol_address"
	KindSolSignature Kind = "sol_signature"
)

var (
	ErrUnrecognized = errors.New("unrecognized search query")
	ErrNoExplorer   = errors.New("chain not served")
)

var (
	blockNumberRe = regexp.MustCompile(`^\d{1,10}$`)
	bech32Re      = regexp.MustCompile(`^(bc1|tb1)[ac-hj-np-z02-9]{8,87}$`)
)

// Classify returns what q looks like. Hex forms are checked before base58,
// so a 64 character hex string is a Bitcoin hash even though it also decodes
// as base58.
func Classify(q string) Kind {
	q = strings.TrimSpace(q)
	switch {
	case q == "":
		return KindUnknown
	case model.IsEthTxHash(q):
		return KindEthTx
	case strings.HasPrefix(q, "0x") && common.IsHexAddress(q):
		return KindEthAddress
	case blockNumberRe.MatchString(q):
		return KindBlockNumber
	case model.IsBtcHash(q):
		return KindBtcHash
	case bech32Re.MatchString(strings.ToLower(q)) && (q == strings.ToLower(q) || q == strings.ToUpper(q)):
		return KindBtcAddress
	}

	raw, err := base58.Decode(q)
	if err != nil {
		return KindUnknown
	}
	switch {
	case len(raw) == 25 && (q[0] == '1' || q[0] == '3'):
		return KindBtcAddress
	case len(raw) == 32:
		return KindSolAddress
	case len(raw) == 64:
		return KindSolSignature
	}
	return KindUnknown
}

// Chain is the chain a query of kind k belongs to. Block numbers default to
// Ethereum unless hint names another chain.
func (k Kind) Chain(hint model.Chain) model.Chain {
	switch k {
	case KindEthAddress, KindEthTx:
		return model.ChainEthereum
	case KindBtcAddress, KindBtcHash:
		return model.ChainBitcoin
	case KindSolAddress, KindSolSignature:
		return model.ChainSolana
	case KindBlockNumber:
		if hint != "" {
			return hint
		}
		return model.ChainEthereum
	}
	return ""
}

type Result struct {
	Query        string                     `json:"query"`
	Kind         Kind                       `json:"kind"`
	Chain        model.Chain                `json:"chain"`
	Block        *model.Block               `json:"block,omitempty"`
	Transaction  *model.Transaction         `json:"transaction,omitempty"`
	Address      *model.Address             `json:"address,omitempty"`
	Transactions []model.AddressTransaction `json:"transactions,omitempty"`
}

type Searcher struct {
	explorers map[model.Chain]data_layer.ChainExplorer
	txLimit   int
}

func New(explorers map[model.Chain]data_layer.ChainExplorer, txLimit int) *Searcher {
	return &Searcher{explorers: explorers, txLimit: txLimit}
}

// Lookup classifies q and fetches the matching block, transaction or address.
func (s *Searcher) Lookup(ctx context.Context, q string, hint model.Chain) (Result, error) {
	q = strings.TrimSpace(q)
	kind := Classify(q)
	res := Result{Query: q, Kind: kind, Chain: kind.Chain(hint)}
	if kind == KindUnknown {
		return res, fmt.Errorf("%q: %w", q, ErrUnrecognized)
	}
	explorer, ok := s.explorers[res.Chain]
	if !ok {
		return res, fmt.Errorf("%s: %w", res.Chain, ErrNoExplorer)
	}

	switch kind {
	case KindBlockNumber:
		b, err := explorer.Block(ctx, q)
		if err != nil {
			return res, err
		}
		res.Block = &b
	case KindEthTx, KindSolSignature:
		tx, err := explorer.Transaction(ctx, q)
		if err != nil {
			return res, err
		}
		res.Transaction = &tx
	case KindBtcHash:
		// A 64 hex string is either a txid or a block hash.
		tx, txErr := explorer.Transaction(ctx, q)
		if txErr == nil {
			res.Transaction = &tx
			return res, nil
		}
		b, err := explorer.Block(ctx, q)
		if err != nil {
			return res, errors.Join(txErr, err)
		}
		res.Block = &b
	default:
		addr, err := explorer.Address(ctx, q)
		if err != nil {
			return res, err
		}
		res.Address = &addr
		if txs, err := explorer.AddressTransactions(ctx, q, s.txLimit); err == nil {
			res.Transactions = txs
		}
	}
	return res, nil
}
