package server

import (
	"github.com/valyala/fasthttp"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/service/stats"
)

const (
	defaultBlockLimit     = 10
	defaultBtcHistoryDays = 30
)

func (s *Server) handleBitcoinAction(rc *fasthttp.RequestCtx) {
	ctx, cancel := s.requestContext()
	defer cancel()

	btc := s.deps.Explorers[model.ChainBitcoin]
	needExplorer := func() bool {
		if btc == nil {
			fail(rc, fasthttp.StatusServiceUnavailable, "Bitcoin explorer nije konfiguriran")
			return false
		}
		return true
	}

	switch arg(rc, "action") {
	case "avgfee":
		sourced(rc, s.deps.Stats.BitcoinAvgFee(ctx), formatFloat)
	case "transactions24h":
		sourced(rc, s.deps.Stats.BitcoinTx24h(ctx), formatInt)
	case "lastblock":
		sourced(rc, s.deps.Stats.BitcoinLastBlock(ctx), formatInt)
	case "price":
		sourced(rc, s.deps.Stats.BitcoinPrice(ctx), nil)
	case "pricehistory":
		days := stats.ParseDays(arg(rc, "days"), defaultBtcHistoryDays)
		sourced(rc, s.deps.Stats.PriceHistory(ctx, model.ChainBitcoin, days), nil)
	case "blockcount":
		sourced(rc, s.deps.Stats.BitcoinBlockCount(ctx), formatInt)
	case "txlist":
		if !needExplorer() {
			return
		}
		limit := intArg(rc, "limit", defaultTxLimit)
		if address := arg(rc, "address"); address != "" {
			txs, err := btc.AddressTransactions(ctx, address, limit)
			s.reply(rc, txs, err)
			return
		}
		txs, err := btc.LatestTransactions(ctx, limit)
		s.reply(rc, txs, err)
	case "blocks":
		if !needExplorer() {
			return
		}
		blocks, err := btc.LatestBlocks(ctx, intArg(rc, "limit", defaultBlockLimit))
		s.reply(rc, blocks, err)
	case "stats":
		ok(rc, s.deps.Stats.BitcoinStatus(ctx))
	default:
		fail(rc, fasthttp.StatusNotFound, msgUnknownAction)
	}
}
