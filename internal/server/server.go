// Package server exposes the explorer over HTTP: the action style endpoints
// the UI already calls plus REST style per-chain routes.
package server

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	data_layer "github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/logging"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/search"
)

const (
	defaultTimeout  = 45 * time.Second
	shutdownTimeout = 5 * time.Second
)

type EthereumExplorer interface {
	data_layer.ChainExplorer
	Tokens(ctx context.Context, addr string) ([]model.Token, error)
	AddressStats(ctx context.Context, addr string) (model.AddressStats, error)
}

type Stats interface {
	EthereumStatus(ctx context.Context) model.EthereumStatus
	EthereumPrice(ctx context.Context) model.Sourced[float64]
	EthereumLastBlock(ctx context.Context) model.Sourced[int64]
	EthereumTxCount(ctx context.Context) model.Sourced[int64]
	EthereumGas(ctx context.Context) model.Sourced[model.GasTracker]

	BitcoinStatus(ctx context.Context) model.BitcoinStatus
	BitcoinPrice(ctx context.Context) model.Sourced[model.PriceQuote]
	BitcoinLastBlock(ctx context.Context) model.Sourced[int64]
	BitcoinTx24h(ctx context.Context) model.Sourced[int64]
	BitcoinAvgFee(ctx context.Context) model.Sourced[float64]
	BitcoinBlockCount(ctx context.Context) model.Sourced[int64]

	SolanaStatus(ctx context.Context) model.SolanaStatus
	PriceHistory(ctx context.Context, chain model.Chain, days int) model.Sourced[[]model.PricePoint]
}

type CoinGecko interface {
	SimplePrice(ctx context.Context, ids, vs []string) (map[string]map[string]float64, error)
	Coin(ctx context.Context, id string) (model.PriceQuote, error)
	Markets(ctx context.Context, vs string, limit int) ([]model.MarketCoin, error)
	MarketChart(ctx context.Context, id, vs string, days int) ([]model.PricePoint, error)
	Global(ctx context.Context) (map[string]any, error)
}

type Feed interface {
	Snapshot(chain model.Chain, kind model.FeedKind) (model.Snapshot, bool)
}

type Searcher interface {
	Lookup(ctx context.Context, q string, hint model.Chain) (search.Result, error)
}

// Deps are the services behind the routes. Ethereum is also expected in
// Explorers; nil CoinGecko, Feed or Search disable their routes' data.
type Deps struct {
	Explorers map[model.Chain]data_layer.ChainExplorer
	Ethereum  EthereumExplorer
	Stats     Stats
	CoinGecko CoinGecko
	Feed      Feed
	Search    Searcher
}

type Server struct {
	deps    Deps
	logger  zerolog.Logger
	timeout time.Duration
}

func New(deps Deps, logger zerolog.Logger) *Server {
	return &Server{
		deps:    deps,
		logger:  logging.Component(logger, "server"),
		timeout: defaultTimeout,
	}
}

func (s *Server) Handler() fasthttp.RequestHandler {
	r := router.New()
	r.GlobalOPTIONS = preflight

	for _, route := range []struct {
		path    string
		handler fasthttp.RequestHandler
	}{
		{"/api/dune", s.handleEthereumAction},
		{"/api/dune/bitcoin", s.handleBitcoinAction},
		{"/api/coingecko", s.handleCoinGecko},
		{"/api/search", s.handleSearch},
	} {
		r.GET(route.path, route.handler)
		r.POST(route.path, route.handler)
	}

	r.GET("/api/live/{chain}/{kind}", s.handleLive)

	r.GET("/api/{chain}/status", s.handleStatus)
	r.GET("/api/{chain}/history", s.handleHistory)
	r.GET("/api/{chain}/blocks", s.handleBlocks)
	r.GET("/api/{chain}/transactions", s.handleTransactions)
	r.GET("/api/{chain}/block/{id}", s.handleBlock)
	r.GET("/api/{chain}/tx/{id}", s.handleTransaction)
	r.GET("/api/{chain}/address/{addr}", s.handleAddress)

	r.NotFound = func(rc *fasthttp.RequestCtx) {
		fail(rc, fasthttp.StatusNotFound, "Nije pronađeno")
	}

	return withCORS(r.Handler)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         "kripto-transakcije",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.timeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("server is starting")
		errCh <- srv.ListenAndServe(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info().Msg("server is shutting down")
		return srv.ShutdownWithContext(shutdownCtx)
	}
}

func withCORS(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(rc *fasthttp.RequestCtx) {
		rc.Response.Header.Set("Access-Control-Allow-Origin", "*")
		rc.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		rc.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		next(rc)
	}
}

func preflight(rc *fasthttp.RequestCtx) {
	rc.SetStatusCode(fasthttp.StatusNoContent)
}

// requestContext bounds a handler's vendor calls. fasthttp's RequestCtx is only
// cancelled on server shutdown, so each request gets its own deadline.
func (s *Server) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}
