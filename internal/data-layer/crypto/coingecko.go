package crypto

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// misplacedDecimalAbove is where a CoinGecko quote is taken to have lost its
// decimal point; such quotes are divided by 1000.
const misplacedDecimalAbove = 100000

// CoinGecko reads prices and market data from api.coingecko.com.
type CoinGecko struct {
	client *resty.Client
}

func NewCoinGecko(baseURL, apiKey string) *CoinGecko {
	client := newRestClient(baseURL)
	if apiKey != "" {
		client.SetHeader("x-cg-demo-api-key", apiKey)
	}
	return &CoinGecko{client: client}
}

// SimplePrice returns prices keyed by coin id and then by currency. 24h change
// entries appear as "<currency>_24h_change".
func (c *CoinGecko) SimplePrice(ctx context.Context, ids, vs []string) (map[string]map[string]float64, error) {
	res := make(map[string]map[string]float64)
	req := c.client.R().
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetQueryParam("vs_currencies", strings.Join(vs, ",")).
		SetQueryParam("include_24hr_change", "true")
	if err := getJSON(ctx, "coingecko", req, "/simple/price", &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Price returns the USD and EUR quote of a coin from the simple price endpoint.
func (c *CoinGecko) Price(ctx context.Context, id string) (model.PriceQuote, error) {
	prices, err := c.SimplePrice(ctx, []string{id}, []string{"usd", "eur"})
	if err != nil {
		return model.PriceQuote{}, err
	}
	p, ok := prices[id]
	if !ok || p["usd"] == 0 {
		return model.PriceQuote{}, fmt.Errorf("coingecko price %s: %w", id, ErrNotFound)
	}
	return model.PriceQuote{
		Coin:        id,
		USD:         p["usd"],
		EUR:         p["eur"],
		USDChange24: p["usd_24h_change"],
		EURChange24: p["eur_24h_change"],
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// Coin returns the market data of a coin, correcting quotes that arrive
// without their decimal point.
func (c *CoinGecko) Coin(ctx context.Context, id string) (model.PriceQuote, error) {
	var res struct {
		MarketData *struct {
			CurrentPrice        map[string]float64 `json:"current_price"`
			Change24hInCurrency map[string]float64 `json:"price_change_percentage_24h_in_currency"`
			MarketCap           map[string]float64 `json:"market_cap"`
			TotalVolume         map[string]float64 `json:"total_volume"`
		} `json:"market_data"`
	}
	req := c.client.R().
		SetPathParam("id", id).
		SetQueryParams(map[string]string{
			"localization":   "false",
			"tickers":        "false",
			"market_data":    "true",
			"community_data": "false",
			"developer_data": "false",
			"sparkline":      "false",
		})
	if err := getJSON(ctx, "coingecko", req, "/coins/{id}", &res); err != nil {
		return model.PriceQuote{}, err
	}
	md := res.MarketData
	if md == nil || md.CurrentPrice["usd"] == 0 {
		return model.PriceQuote{}, fmt.Errorf("coingecko coin %s: no market data: %w", id, ErrNotFound)
	}
	return model.PriceQuote{
		Coin:        id,
		USD:         CorrectPrice(md.CurrentPrice["usd"]),
		EUR:         CorrectPrice(md.CurrentPrice["eur"]),
		USDChange24: md.Change24hInCurrency["usd"],
		EURChange24: md.Change24hInCurrency["eur"],
		MarketCap:   md.MarketCap["usd"],
		Volume:      md.TotalVolume["usd"],
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// CorrectPrice divides quotes above 100000 by 1000.
func CorrectPrice(p float64) float64 {
	if p > misplacedDecimalAbove {
		return p / 1000
	}
	return p
}

// Markets returns the top coins by market cap.
func (c *CoinGecko) Markets(ctx context.Context, vs string, limit int) ([]model.MarketCoin, error) {
	var res []model.MarketCoin
	req := c.client.R().SetQueryParams(map[string]string{
		"vs_currency":             vs,
		"order":                   "market_cap_desc",
		"per_page":                strconv.Itoa(limit),
		"page":                    "1",
		"sparkline":               "false",
		"price_change_percentage": "24h,7d,30d",
	})
	if err := getJSON(ctx, "coingecko", req, "/coins/markets", &res); err != nil {
		return nil, err
	}
	return res, nil
}

// MarketChart returns the price history of a coin over the last days.
func (c *CoinGecko) MarketChart(ctx context.Context, id, vs string, days int) ([]model.PricePoint, error) {
	var res struct {
		Prices [][2]float64 `json:"prices"`
	}
	req := c.client.R().
		SetPathParam("id", id).
		SetQueryParam("vs_currency", vs).
		SetQueryParam("days", strconv.Itoa(days))
	if days > 1 {
		req.SetQueryParam("interval", "daily")
	}
	if err := getJSON(ctx, "coingecko", req, "/coins/{id}/market_chart", &res); err != nil {
		return nil, err
	}
	points := make([]model.PricePoint, 0, len(res.Prices))
	for _, p := range res.Prices {
		points = append(points, model.PricePoint{
			Time:  time.UnixMilli(int64(p[0])).UTC(),
			Price: p[1],
		})
	}
	return points, nil
}

// Global returns the global market overview as CoinGecko sends it.
func (c *CoinGecko) Global(ctx context.Context) (map[string]any, error) {
	var res struct {
		Data map[string]any `json:"data"`
	}
	if err := getJSON(ctx, "coingecko", c.client.R(), "/global", &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}
