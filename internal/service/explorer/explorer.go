// Package explorer builds the per-chain views the UI shows from the vendor
// clients, walking an ordered list of vendors until one answers.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/crypto"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/dune"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/format"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

var (
	// ErrInvalidID is returned for malformed addresses, hashes and heights.
	ErrInvalidID = crypto.ErrInvalidInput

	// ErrNoVendor is returned when no vendor is configured for an operation.
	ErrNoVendor = errors.New("no vendor configured")

	ErrNotFound = crypto.ErrNotFound
)

type step[T any] struct {
	name string
	skip bool
	fn   func(ctx context.Context) (T, error)
}

// firstOf runs steps in order and returns the first success. Invalid input and
// context cancellation stop the walk; other failures move on to the next vendor.
func firstOf[T any](ctx context.Context, logger zerolog.Logger, op string, steps ...step[T]) (T, error) {
	var zero T
	var errs []error
	for _, s := range steps {
		if s.skip {
			continue
		}
		v, err := s.fn(ctx)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, crypto.ErrInvalidInput) || ctx.Err() != nil {
			return zero, err
		}
		logger.Debug().Err(err).Str("op", op).Str("vendor", s.name).Msg("vendor failed")
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	if len(errs) == 0 {
		return zero, fmt.Errorf("%s: %w", op, ErrNoVendor)
	}
	return zero, fmt.Errorf("%s: %w", op, errors.Join(errs...))
}

// MaxListLimit bounds every list an explorer returns.
const (
	MaxListLimit     = 100
	defaultListLimit = 10
)

// clampLimit keeps a caller supplied list size within 1..MaxListLimit.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}

func notEmpty[T any](items []T, err error) ([]T, error) {
	if err == nil && len(items) == 0 {
		return nil, ErrNotFound
	}
	return items, err
}

func parseHeight(id string) (int64, bool) {
	if id == "" || len(id) > 10 {
		return 0, false
	}
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil && n >= 0
}

// duneTransaction maps a transaction row of the latest and per-address
// transaction queries. Values are in wei, or satoshi for Bitcoin rows.
func duneTransaction(chain model.Chain, row dune.Row) model.Transaction {
	tx := model.Transaction{
		Chain: chain,
		Hash:  row.String("hash", "txid", "tx_hash"),
		From:  row.String("from_address", "from"),
		To:    row.String("to_address", "to"),
	}
	if n, ok := row.Int("block_number", "blockHeight", "block_height", "block_id"); ok {
		tx.BlockNumber = n
	} else {
		tx.Pending = true
	}
	tx.Timestamp, _ = row.Time("block_time", "time", "timestamp")

	switch chain {
	case model.ChainBitcoin:
		if v, ok := row.Int("value", "output_total"); ok {
			tx.Value = format.SatoshiToBTC(v)
		}
		if v, ok := row.Int("fee"); ok {
			tx.Fee = format.SatoshiToBTC(v)
		}
	default:
		tx.Value = format.WeiStringToEth(row.String("value"))
		if gas, ok := row.Int("gas", "gas_used"); ok {
			tx.Gas = uint64(gas)
		}
		if wei, err := format.ParseWei(row.String("gas_price")); err == nil {
			tx.GasPrice = decimal.NewFromBigInt(wei, 0)
		}
	}
	return tx
}

func duneTransactions(chain model.Chain, rows []dune.Row, addr string) []model.AddressTransaction {
	out := make([]model.AddressTransaction, 0, len(rows))
	for _, row := range rows {
		tx := duneTransaction(chain, row)
		if tx.Hash == "" {
			continue
		}
		out = append(out, model.AddressTransaction{
			Transaction: tx,
			Address:     addr,
			Incoming:    addr != "" && strings.EqualFold(tx.To, addr),
		})
	}
	return out
}

func plain(txs []model.AddressTransaction) []model.Transaction {
	out := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.Transaction)
	}
	return out
}

func limitTo[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
