package model

import (
	"fmt"
	"strings"
)

const (
	ChainBitcoin  Chain = "bitcoin"
	ChainEthereum Chain = "ethereum"
	ChainSolana   Chain = "solana"
)

type (
	Chain string
)

// ParseChain accepts the full chain name or its ticker.
func ParseChain(s string) (Chain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bitcoin", "btc":
		return ChainBitcoin, nil
	case "ethereum", "eth":
		return ChainEthereum, nil
	case "solana", "sol":
		return ChainSolana, nil
	}
	return "", fmt.Errorf("unsupported chain: %q", s)
}

// Symbol returns the native coin ticker.
func (c Chain) Symbol() string {
	switch c {
	case ChainBitcoin:
		return "BTC"
	case ChainEthereum:
		return "ETH"
	case ChainSolana:
		return "SOL"
	}
	return ""
}

// CoinGeckoID returns the coin id used by CoinGecko for the chain's native asset.
func (c Chain) CoinGeckoID() string {
	return string(c)
}
