package dune

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 5
)

// Query is one execution request. Zero Interval or MaxAttempts fall back to the
// poller defaults.
type Query struct {
	Name        string
	ID          int
	Params      map[string]any
	Interval    time.Duration
	MaxAttempts int
}

// Poller runs queries to completion: execute, poll status at a fixed interval up
// to an attempt ceiling, then fetch results.
type Poller struct {
	exec        Executor
	interval    time.Duration
	maxAttempts int
	logger      zerolog.Logger
}

func NewPoller(exec Executor, interval time.Duration, maxAttempts int, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Poller{
		exec:        exec,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Run executes q and waits for its results. The status endpoint is called at
// most MaxAttempts times; ctx cancellation stops the wait between attempts.
func (p *Poller) Run(ctx context.Context, q Query) (*Result, error) {
	interval, attempts := p.interval, p.maxAttempts
	if q.Interval > 0 {
		interval = q.Interval
	}
	if q.MaxAttempts > 0 {
		attempts = q.MaxAttempts
	}

	logger := p.logger.With().Str("query", q.Name).Int("query_id", q.ID).Logger()

	executionID, err := p.exec.Execute(ctx, q.ID, q.Params)
	if err != nil {
		return nil, err
	}
	logger = logger.With().Str("execution_id", executionID).Logger()
	logger.Debug().Msg("query submitted")

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		state, err := p.exec.Status(ctx, executionID)
		if err != nil {
			return nil, err
		}
		logger.Debug().Int("attempt", attempt).Str("state", string(state)).Msg("execution status")

		switch {
		case state == StateCompleted:
			res, err := p.exec.Results(ctx, executionID)
			if err != nil {
				return nil, err
			}
			if len(res.Rows) == 0 {
				return nil, ErrNoRows
			}
			return res, nil
		case state.Failed():
			return nil, fmt.Errorf("%w: %s", ErrQueryFailed, state)
		}

		timer.Reset(interval)
	}

	return nil, fmt.Errorf("%w after %d status checks", ErrTimeout, attempts)
}

// FirstRow runs q and returns its first row with the column order.
func (p *Poller) FirstRow(ctx context.Context, q Query) (Row, []string, error) {
	res, err := p.Run(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	return res.Rows[0], res.Columns, nil
}

// Runner runs a query to completion. *Poller is the production Runner.
type Runner interface {
	Run(ctx context.Context, q Query) (*Result, error)
}

// Value runs the metric's query and extracts the value from the first row.
func Value(ctx context.Context, r Runner, metric Spec, params map[string]any) (float64, error) {
	res, err := r.Run(ctx, metric.Query(params))
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, ErrNoRows
	}
	v, _, ok := Extract(res.Rows[0], res.Columns, metric.Field)
	if !ok {
		return 0, fmt.Errorf("query %s: %w", metric.Name, ErrNoValue)
	}
	return v, nil
}

// Rows runs the metric's query and returns all result rows.
func Rows(ctx context.Context, r Runner, metric Spec, params map[string]any) ([]Row, error) {
	res, err := r.Run(ctx, metric.Query(params))
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}
