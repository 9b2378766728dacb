package server

import (
	"time"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/format"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

const (
	displayHashChars = 8
	displayDecimals  = 6
)

// display carries the strings the explorer pages render, so a client can show
// them without its own formatting code.
type (
	blockDisplay struct {
		Hash string `json:"hash"`
		Size string `json:"size,omitempty"`
		Date string `json:"date"`
		Age  string `json:"age"`
	}

	blockView struct {
		model.Block
		Display blockDisplay `json:"display"`
	}

	addressDisplay struct {
		Balance   string `json:"balance"`
		TxCount   string `json:"txCount"`
		FirstSeen string `json:"firstSeen,omitempty"`
		LastSeen  string `json:"lastSeen,omitempty"`
	}
)

func viewBlock(b model.Block, now time.Time) blockView {
	d := blockDisplay{
		Hash: format.Hash(b.Hash, displayHashChars),
		Date: format.Date(b.Timestamp),
		Age:  format.RelativeTime(b.Timestamp, now),
	}
	if b.Size > 0 {
		d.Size = format.SizeOf(float64(b.Size))
	}
	return blockView{Block: b, Display: d}
}

func viewBlocks(blocks []model.Block, now time.Time) []blockView {
	out := make([]blockView, len(blocks))
	for i, b := range blocks {
		out[i] = viewBlock(b, now)
	}
	return out
}

func displayAddress(a model.Address, now time.Time) addressDisplay {
	d := addressDisplay{
		Balance: format.Amount(a.Balance.String(), displayDecimals) + " " + a.Chain.Symbol(),
		TxCount: format.Count(a.TxCount),
	}
	if a.FirstSeen != nil {
		d.FirstSeen = format.Date(*a.FirstSeen)
	}
	if a.LastSeen != nil {
		d.LastSeen = format.RelativeTime(*a.LastSeen, now)
	}
	return d
}
