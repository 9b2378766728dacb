package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// RefreshCoordinator emits a refresh job per list on every tick. A list whose
// previous job has not finished yet is skipped for that tick.
type RefreshCoordinator struct {
	Chain        model.Chain
	Kinds        []model.FeedKind
	Limit        int
	PollInterval time.Duration
	Out          chan model.RefreshJob
	Logger       zerolog.Logger

	mu       sync.Mutex
	seq      uint64
	inFlight map[string]bool
}

func (c *RefreshCoordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	c.emit(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.emit(ctx)
		}
	}
}

func (c *RefreshCoordinator) emit(ctx context.Context) {
	for _, kind := range c.Kinds {
		job, ok := c.acquire(kind)
		if !ok {
			c.Logger.Debug().Str("kind", string(kind)).Msg("previous refresh still running, skipping")
			continue
		}
		select {
		case <-ctx.Done():
			c.Done(job)
			return
		case c.Out <- job:
			c.Logger.Debug().Str("kind", string(kind)).Uint64("seq", job.Seq).Msg("refresh scheduled")
		}
	}
}

func (c *RefreshCoordinator) acquire(kind model.FeedKind) (model.RefreshJob, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight == nil {
		c.inFlight = make(map[string]bool)
	}
	key := model.FeedKey(c.Chain, kind)
	if c.inFlight[key] {
		return model.RefreshJob{}, false
	}
	c.inFlight[key] = true
	c.seq++
	return model.RefreshJob{Chain: c.Chain, Kind: kind, Limit: c.Limit, Seq: c.seq}, true
}

// Done marks job as finished so its list can be scheduled again.
func (c *RefreshCoordinator) Done(job model.RefreshJob) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, job.Key())
}
