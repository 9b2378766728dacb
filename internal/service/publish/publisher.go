package publish

import (
	"context"
	"errors"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// ErrStale is returned when a snapshot is older than the one already held.
var ErrStale = errors.New("stale snapshot")

type Publisher interface {
	Publish(ctx context.Context, snap model.Snapshot) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, snap model.Snapshot) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
