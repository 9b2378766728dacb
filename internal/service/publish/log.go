package publish

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/format"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// LogPublisher writes a line per snapshot that brought new rows.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (p *LogPublisher) Publish(_ context.Context, snap model.Snapshot) error {
	if len(snap.Fresh) == 0 {
		return nil
	}
	fresh := make([]string, len(snap.Fresh))
	for i, id := range snap.Fresh {
		fresh[i] = format.Hash(id, 6)
	}
	p.Logger.Info().
		Str("chain", string(snap.Chain)).
		Str("kind", string(snap.Kind)).
		Uint64("seq", snap.Seq).
		Int("rows", len(snap.Blocks)+len(snap.Transactions)).
		Strs("fresh", fresh).
		Msg("new rows")
	return nil
}
