package model

import "time"

// Source tells where a value shown to the user came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceCached   Source = "cached"
	SourceFallback Source = "fallback"
)

// Sourced wraps a value with its provenance so the UI can tell live data
// from a cached copy or a placeholder.
type Sourced[T any] struct {
	Value     T         `json:"value"`
	Source    Source    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
	Err       error     `json:"-"`
}

// OK reports whether a value is present.
func (s Sourced[T]) OK() bool {
	return s.Source != ""
}
