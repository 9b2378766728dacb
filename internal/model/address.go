package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Address holds balance and activity of an account in native units.
	Address struct {
		Chain              Chain           `json:"chain"`
		Address            string          `json:"address"`
		Balance            decimal.Decimal `json:"balance"`
		Received           decimal.Decimal `json:"received"`
		Spent              decimal.Decimal `json:"spent"`
		Nonce              uint64          `json:"nonce"`
		TxCount            int64           `json:"txCount"`
		FirstSeen          *time.Time      `json:"firstSeen,omitempty"`
		LastSeen           *time.Time      `json:"lastSeen,omitempty"`
		IsContract         bool            `json:"isContract"`
		ContractCreator    string          `json:"contractCreator,omitempty"`
		ContractCreationTx string          `json:"contractCreationTx,omitempty"`
	}

	// Token is an ERC-20 holding of an address.
	Token struct {
		Name            string          `json:"name"`
		Symbol          string          `json:"symbol"`
		Decimals        int             `json:"decimals"`
		ContractAddress string          `json:"contractAddress"`
		Balance         decimal.Decimal `json:"balance"`
		Logo            string          `json:"logo,omitempty"`
	}

	// AddressStats summarizes the recent activity of an Ethereum address.
	AddressStats struct {
		SentCount     int     `json:"sentCount"`
		ReceivedCount int     `json:"receivedCount"`
		SentEth       float64 `json:"sentEth"`
		ReceivedEth   float64 `json:"receivedEth"`
		AvgGas        float64 `json:"avgGas"`
		TotalGasGwei  float64 `json:"totalGasGwei"`
	}
)
