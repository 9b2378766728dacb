package dune

import "time"

// Spec is a saved Dune query together with where its metric lives in the result
// row and the literal shown when neither Dune nor the cache can answer.
type Spec struct {
	Name        string
	QueryID     int
	Field       Field
	Fallback    *float64
	Interval    time.Duration
	MaxAttempts int
}

// Query builds a poller request for s with the given parameters.
func (s Spec) Query(params map[string]any) Query {
	return Query{
		Name:        s.Name,
		ID:          s.QueryID,
		Params:      params,
		Interval:    s.Interval,
		MaxAttempts: s.MaxAttempts,
	}
}

func literal(v float64) *float64 { return &v }

var (
	EthPrice = Spec{
		Name:     "eth_price",
		QueryID:  2360237,
		Field:    Field{Keys: []string{"price"}, Contains: []string{"price"}},
		Fallback: literal(1805.97),
	}
	EthPriceHistory = Spec{
		Name:     "eth_price_history",
		QueryID:  2360242,
		Fallback: literal(1805.97),
	}
	EthLastBlock = Spec{
		Name:     "eth_last_block",
		QueryID:  2360238,
		Field:    Field{Keys: []string{"number"}, Contains: []string{"block"}},
		Fallback: literal(22417536),
	}
	EthTxCount = Spec{
		Name:     "eth_tx_count",
		QueryID:  2360239,
		Field:    Field{Keys: []string{"count"}, Contains: []string{"count"}},
		Fallback: literal(1250000000),
	}
	// EthGasPrice reports wei; the fallback is already in gwei.
	EthGasPrice = Spec{
		Name:     "eth_gas_price",
		QueryID:  2360240,
		Field:    Field{Keys: []string{"gas_price"}, Contains: []string{"gas"}},
		Fallback: literal(25),
	}
	EthLatestTxs = Spec{
		Name:    "eth_latest_txs",
		QueryID: 2360241,
	}
	EthAddressTxs = Spec{
		Name:    "eth_address_txs",
		QueryID: 2360243,
	}
	EthBalance = Spec{
		Name:    "eth_balance",
		QueryID: 2360244,
		Field:   Field{Keys: []string{"balance"}, Exact: true},
	}

	BtcAvgFee = Spec{
		Name:     "btc_avg_fee",
		QueryID:  5134500,
		Field:    Field{Keys: []string{"avg_fee", "fee", "fee_rate", "avg_fee_rate"}, Contains: []string{"fee"}},
		Fallback: literal(23.5),
	}
	BtcTx24h = Spec{
		Name:     "btc_tx_24h",
		QueryID:  5134423,
		Field:    Field{Keys: []string{"tx_count", "transactions", "count", "transaction_count"}, Contains: []string{"tx", "count", "transactions"}},
		Fallback: literal(345678),
	}
	BtcLastBlock = Spec{
		Name:     "btc_last_block",
		QueryID:  5134347,
		Field:    btcHeight,
		Fallback: literal(896683),
	}
	BtcPrice = Spec{
		Name:    "btc_price",
		QueryID: 5132855,
		Field:   Field{Keys: []string{"price_usd", "price", "current_price"}, Contains: []string{"price"}},
	}
	BtcPriceHistory = Spec{
		Name:     "btc_price_history",
		QueryID:  2538406,
		Fallback: literal(53748.92),
	}
	BtcBlockCount = Spec{
		Name:     "btc_block_count",
		QueryID:  2538410,
		Field:    btcHeight,
		Fallback: literal(790255),
	}
	BtcTxList = Spec{
		Name:    "btc_txlist",
		QueryID: 2538412,
	}
	BtcBlocks = Spec{
		Name:    "btc_blocks",
		QueryID: 2538415,
	}
)

var btcHeight = Field{Keys: []string{"height", "block_number", "number", "block", "latest_block"}, Contains: []string{"block", "height", "number"}}

// EurPerUsd converts a USD price when a query has no EUR column.
const EurPerUsd = 0.89
