package model

import (
	"strconv"
	"time"
)

type (
	// Block is the normalized view of a block (or a Solana slot).
	Block struct {
		Chain      Chain     `json:"chain"`
		Height     int64     `json:"height"`
		Hash       string    `json:"hash"`
		ParentHash string    `json:"parentHash,omitempty"`
		Timestamp  time.Time `json:"timestamp"`
		Miner      string    `json:"miner,omitempty"`
		Size       int64     `json:"size,omitempty"`
		Weight     int64     `json:"weight,omitempty"`
		TxCount    int       `json:"txCount"`
		TxHashes   []string  `json:"transactions,omitempty"`
		GasUsed    uint64    `json:"gasUsed,omitempty"`
		GasLimit   uint64    `json:"gasLimit,omitempty"`
		Difficulty string    `json:"difficulty,omitempty"`
		Nonce      string    `json:"nonce,omitempty"`
		MerkleRoot string    `json:"merkleRoot,omitempty"`
	}
)

// ID returns the identifier used to diff block lists between refreshes.
func (b Block) ID() string {
	return strconv.FormatInt(b.Height, 10)
}
