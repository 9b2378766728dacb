package model

type (
	EthereumStatus struct {
		Price     Sourced[float64]    `json:"price"`
		LastBlock Sourced[int64]      `json:"lastBlock"`
		TxCount   Sourced[int64]      `json:"txCount"`
		Gas       Sourced[GasTracker] `json:"gas"`
	}

	BitcoinStatus struct {
		Price      Sourced[PriceQuote] `json:"price"`
		LastBlock  Sourced[int64]      `json:"lastBlock"`
		Tx24h      Sourced[int64]      `json:"transactions24h"`
		AvgFee     Sourced[float64]    `json:"averageFee"`
		Difficulty Sourced[float64]    `json:"difficulty"`
		Hashrate   Sourced[float64]    `json:"hashrate"`
		Mempool    Sourced[int64]      `json:"mempoolTransactions"`
	}

	SolanaStatus struct {
		Price   Sourced[float64] `json:"price"`
		Slot    Sourced[int64]   `json:"slot"`
		TxCost  Sourced[float64] `json:"transactionCost"`
		TxCount Sourced[int64]   `json:"transactionCount"`
	}
)
