package server

import (
	"time"

	"github.com/valyala/fasthttp"

	data_layer "github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/service/stats"
)

// chainExplorer resolves the {chain} path segment. It writes the error
// response itself and returns false when the chain is unknown.
func (s *Server) chainExplorer(rc *fasthttp.RequestCtx) (model.Chain, data_layer.ChainExplorer, bool) {
	chain, err := model.ParseChain(pathValue(rc, "chain"))
	if err != nil {
		fail(rc, fasthttp.StatusNotFound, "Nepoznat lanac")
		return "", nil, false
	}
	ex, found := s.deps.Explorers[chain]
	if !found {
		fail(rc, fasthttp.StatusServiceUnavailable, "Lanac nije konfiguriran: "+string(chain))
		return chain, nil, false
	}
	return chain, ex, true
}

func (s *Server) handleStatus(rc *fasthttp.RequestCtx) {
	chain, err := model.ParseChain(pathValue(rc, "chain"))
	if err != nil {
		fail(rc, fasthttp.StatusNotFound, "Nepoznat lanac")
		return
	}
	ctx, cancel := s.requestContext()
	defer cancel()

	switch chain {
	case model.ChainEthereum:
		ok(rc, s.deps.Stats.EthereumStatus(ctx))
	case model.ChainBitcoin:
		ok(rc, s.deps.Stats.BitcoinStatus(ctx))
	case model.ChainSolana:
		ok(rc, s.deps.Stats.SolanaStatus(ctx))
	}
}

func (s *Server) handleHistory(rc *fasthttp.RequestCtx) {
	chain, err := model.ParseChain(pathValue(rc, "chain"))
	if err != nil {
		fail(rc, fasthttp.StatusNotFound, "Nepoznat lanac")
		return
	}
	ctx, cancel := s.requestContext()
	defer cancel()

	days := stats.ParseDays(arg(rc, "days"), defaultHistoryDays)
	sourced(rc, s.deps.Stats.PriceHistory(ctx, chain, days), nil)
}

func (s *Server) handleBlocks(rc *fasthttp.RequestCtx) {
	_, ex, found := s.chainExplorer(rc)
	if !found {
		return
	}
	ctx, cancel := s.requestContext()
	defer cancel()

	blocks, err := ex.LatestBlocks(ctx, intArg(rc, "limit", defaultBlockLimit))
	s.reply(rc, viewBlocks(blocks, time.Now()), err)
}

func (s *Server) handleTransactions(rc *fasthttp.RequestCtx) {
	_, ex, found := s.chainExplorer(rc)
	if !found {
		return
	}
	ctx, cancel := s.requestContext()
	defer cancel()

	txs, err := ex.LatestTransactions(ctx, intArg(rc, "limit", defaultTxLimit))
	s.reply(rc, txs, err)
}

func (s *Server) handleBlock(rc *fasthttp.RequestCtx) {
	_, ex, found := s.chainExplorer(rc)
	if !found {
		return
	}
	ctx, cancel := s.requestContext()
	defer cancel()

	b, err := ex.Block(ctx, pathValue(rc, "id"))
	s.reply(rc, viewBlock(b, time.Now()), err)
}

func (s *Server) handleTransaction(rc *fasthttp.RequestCtx) {
	_, ex, found := s.chainExplorer(rc)
	if !found {
		return
	}
	ctx, cancel := s.requestContext()
	defer cancel()

	tx, err := ex.Transaction(ctx, pathValue(rc, "id"))
	s.reply(rc, tx, err)
}

type addressView struct {
	Address      model.Address              `json:"address"`
	Transactions []model.AddressTransaction `json:"transactions"`
	Stats        *model.AddressStats        `json:"stats,omitempty"`
	Tokens       []model.Token              `json:"tokens,omitempty"`
	Display      addressDisplay             `json:"display"`
}

// handleAddress returns the address with its recent transactions. Ethereum
// addresses also get statistics and token holdings when available.
func (s *Server) handleAddress(rc *fasthttp.RequestCtx) {
	chain, ex, found := s.chainExplorer(rc)
	if !found {
		return
	}
	ctx, cancel := s.requestContext()
	defer cancel()

	addr := pathValue(rc, "addr")
	a, err := ex.Address(ctx, addr)
	if err != nil {
		s.failErr(rc, err)
		return
	}
	view := addressView{Address: a, Display: displayAddress(a, time.Now())}
	view.Transactions, err = ex.AddressTransactions(ctx, addr, intArg(rc, "limit", defaultTxLimit))
	if err != nil {
		s.logger.Debug().Err(err).Str("address", addr).Msg("address transactions unavailable")
	}
	if chain == model.ChainEthereum && s.deps.Ethereum != nil {
		if st, err := s.deps.Ethereum.AddressStats(ctx, addr); err == nil {
			view.Stats = &st
		}
		if tokens, err := s.deps.Ethereum.Tokens(ctx, addr); err == nil {
			view.Tokens = tokens
		}
	}
	ok(rc, view)
}

func (s *Server) handleLive(rc *fasthttp.RequestCtx) {
	chain, err := model.ParseChain(pathValue(rc, "chain"))
	if err != nil {
		fail(rc, fasthttp.StatusNotFound, "Nepoznat lanac")
		return
	}
	kind, valid := model.ParseFeedKind(pathValue(rc, "kind"))
	if !valid {
		fail(rc, fasthttp.StatusNotFound, "Nepoznata lista")
		return
	}
	if s.deps.Feed == nil {
		fail(rc, fasthttp.StatusServiceUnavailable, "Osvježavanje nije pokrenuto")
		return
	}
	snap, found := s.deps.Feed.Snapshot(chain, kind)
	if !found {
		fail(rc, fasthttp.StatusNotFound, "Još nema podataka")
		return
	}
	ok(rc, snap)
}

func (s *Server) handleSearch(rc *fasthttp.RequestCtx) {
	q := arg(rc, "q")
	if q == "" {
		fail(rc, fasthttp.StatusBadRequest, "Nedostaje parametar: q")
		return
	}
	if s.deps.Search == nil {
		fail(rc, fasthttp.StatusServiceUnavailable, "Pretraga nije konfigurirana")
		return
	}
	var hint model.Chain
	if c, err := model.ParseChain(arg(rc, "chain")); err == nil {
		hint = c
	}
	ctx, cancel := s.requestContext()
	defer cancel()

	res, err := s.deps.Search.Lookup(ctx, q, hint)
	s.reply(rc, res, err)
}
