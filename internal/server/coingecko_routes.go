package server

import (
	"github.com/valyala/fasthttp"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/service/stats"
)

type proxyError struct {
	Error string `json:"error"`
}

// handleCoinGecko proxies CoinGecko so the API key stays on the server. It
// answers with the vendor's data as is, without the envelope.
func (s *Server) handleCoinGecko(rc *fasthttp.RequestCtx) {
	action := arg(rc, "action")
	if action == "" {
		writeJSON(rc, fasthttp.StatusBadRequest, proxyError{Error: msgMissingAction})
		return
	}
	cg := s.deps.CoinGecko
	if cg == nil {
		writeJSON(rc, fasthttp.StatusServiceUnavailable, proxyError{Error: "CoinGecko nije konfiguriran"})
		return
	}

	ctx, cancel := s.requestContext()
	defer cancel()

	id := arg(rc, "id")
	if id == "" {
		id = model.ChainEthereum.CoinGeckoID()
	}
	vs := arg(rc, "vs_currency")
	if vs == "" {
		vs = "usd"
	}

	var (
		result any
		err    error
	)
	switch action {
	case "price":
		result, err = cg.SimplePrice(ctx, []string{id}, []string{"usd", "eur", "hrk"})
	case "market":
		result, err = cg.Coin(ctx, id)
	case "markets":
		result, err = cg.Markets(ctx, vs, intArg(rc, "per_page", defaultBlockLimit))
	case "chart":
		result, err = cg.MarketChart(ctx, id, vs, stats.ParseDays(arg(rc, "days"), defaultHistoryDays))
	case "global":
		result, err = cg.Global(ctx)
	default:
		writeJSON(rc, fasthttp.StatusBadRequest, proxyError{Error: msgUnknownAction})
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("coingecko proxy failed")
		writeJSON(rc, fasthttp.StatusBadGateway, proxyError{Error: err.Error()})
		return
	}
	writeJSON(rc, fasthttp.StatusOK, result)
}
