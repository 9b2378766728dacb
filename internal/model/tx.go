package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Transaction is the normalized view of a transaction on any chain.
	// Value and Fee are in native units (ETH, BTC, SOL); GasPrice is in wei.
	Transaction struct {
		Chain         Chain           `json:"chain"`
		Hash          string          `json:"hash"`
		BlockNumber   int64           `json:"blockNumber"`
		Pending       bool            `json:"pending"`
		Timestamp     time.Time       `json:"timestamp"`
		From          string          `json:"from"`
		To            string          `json:"to"`
		Value         decimal.Decimal `json:"value"`
		Fee           decimal.Decimal `json:"fee"`
		Gas           uint64          `json:"gas,omitempty"`
		GasPrice      decimal.Decimal `json:"gasPrice"`
		IsError       bool            `json:"isError"`
		ContractAddr  string          `json:"contractAddress,omitempty"`
		MethodID      string          `json:"methodId,omitempty"`
		InputCount    int             `json:"inputCount,omitempty"`
		OutputCount   int             `json:"outputCount,omitempty"`
		InputTotal    decimal.Decimal `json:"inputTotal"`
		OutputTotal   decimal.Decimal `json:"outputTotal"`
		Size          int64           `json:"size,omitempty"`
		Weight        int64           `json:"weight,omitempty"`
		Confirmations int64           `json:"confirmations,omitempty"`
	}

	// AddressTransaction is a transaction seen from one address: Value is the absolute
	// balance change and Incoming tells its direction.
	AddressTransaction struct {
		Transaction
		Address  string `json:"address"`
		Incoming bool   `json:"incoming"`
	}
)

// ID returns the identifier used to diff transaction lists between refreshes.
func (t Transaction) ID() string {
	return t.Hash
}
