package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/cache"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

var errDown = errors.New("vendor down")

func failing(name string) Source[float64] {
	return Source[float64]{Name: name, Fetch: func(context.Context) (float64, error) { return 0, errDown }}
}

func fixed(name string, v float64) Source[float64] {
	return Source[float64]{Name: name, Fetch: func(context.Context) (float64, error) { return v, nil }}
}

func TestResolveLiveFromSecondSource(t *testing.T) {
	r := New(cache.NewMemory(), zerolog.Nop())

	got := Resolve(context.Background(), r, "eth_price", Value(1805.97), failing("dune"), fixed("coingecko", 3012.5))
	if got.Source != model.SourceLive || got.Value != 3012.5 || got.Err != nil {
		t.Fatalf("Resolve() = %+v", got)
	}
}

func TestResolveCachedBeforeFallback(t *testing.T) {
	r := New(cache.NewMemory(), zerolog.Nop())
	ctx := context.Background()

	Resolve(ctx, r, "eth_price", Value(1805.97), fixed("dune", 2999.0))

	got := Resolve(ctx, r, "eth_price", Value(1805.97), failing("dune"))
	if got.Source != model.SourceCached || got.Value != 2999.0 {
		t.Fatalf("Resolve() = %+v, want cached 2999", got)
	}
	if !errors.Is(got.Err, errDown) {
		t.Errorf("Err = %v, want vendor error attached", got.Err)
	}
}

func TestResolveFallback(t *testing.T) {
	r := New(nil, zerolog.Nop())

	got := Resolve(context.Background(), r, "btc_avg_fee", Value(23.5), failing("dune"), failing("mempool"))
	if got.Source != model.SourceFallback || got.Value != 23.5 {
		t.Fatalf("Resolve() = %+v, want fallback 23.5", got)
	}
}

func TestResolveUnavailable(t *testing.T) {
	r := New(nil, zerolog.Nop())

	got := Resolve[float64](context.Background(), r, "btc_price", nil, failing("coingecko"))
	if got.OK() {
		t.Fatalf("Resolve() = %+v, want no value", got)
	}
	if !errors.Is(got.Err, ErrUnavailable) || !errors.Is(got.Err, errDown) {
		t.Errorf("Err = %v", got.Err)
	}
}

func TestResolveSkipsUnconfiguredSources(t *testing.T) {
	r := New(nil, zerolog.Nop())

	got := Resolve(context.Background(), r, "k", nil, Source[float64]{Name: "moralis"}, fixed("rpc", 7))
	if got.Value != 7 || got.Source != model.SourceLive {
		t.Fatalf("Resolve() = %+v", got)
	}
}
