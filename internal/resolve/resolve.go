// Package resolve turns a list of live sources into one value tagged with
// where it came from: a live vendor, the last-known-good cache, or a literal.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/cache"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// ErrUnavailable is returned when no source, cache entry or literal could
// provide a value.
var ErrUnavailable = errors.New("value unavailable")

// Source is one live way of fetching a value.
type Source[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, error)
}

type Resolver struct {
	cache  cache.Store
	logger zerolog.Logger
	now    func() time.Time
}

func New(store cache.Store, logger zerolog.Logger) *Resolver {
	if store == nil {
		store = cache.NewMemory()
	}
	return &Resolver{cache: store, logger: logger, now: time.Now}
}

// Resolve tries sources in order. The first success is cached under key and
// returned as live; otherwise the cached value, then fallback, is returned.
// Sources with a nil Fetch are skipped.
func Resolve[T any](ctx context.Context, r *Resolver, key string, fallback *T, sources ...Source[T]) model.Sourced[T] {
	var errs []error
	for _, src := range sources {
		if src.Fetch == nil {
			continue
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		v, err := src.Fetch(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Str("key", key).Str("source", src.Name).Msg("source failed")
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}
		if err := r.cache.Put(key, v); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		return model.Sourced[T]{Value: v, Source: model.SourceLive, FetchedAt: r.now()}
	}

	joined := errors.Join(errs...)
	if joined == nil {
		joined = ErrUnavailable
	}

	var cached T
	if storedAt, err := r.cache.Get(key, &cached); err == nil {
		r.logger.Info().Str("key", key).Time("stored_at", storedAt).Msg("serving cached value")
		return model.Sourced[T]{Value: cached, Source: model.SourceCached, FetchedAt: storedAt, Err: joined}
	}

	if fallback != nil {
		r.logger.Info().Str("key", key).Msg("serving fallback value")
		return model.Sourced[T]{Value: *fallback, Source: model.SourceFallback, FetchedAt: r.now(), Err: joined}
	}

	return model.Sourced[T]{Err: fmt.Errorf("%s: %w: %w", key, ErrUnavailable, joined)}
}

// Value is a convenience for building a fallback literal.
func Value[T any](v T) *T {
	return &v
}
