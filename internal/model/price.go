package model

import "time"

type (
	// PricePoint is one sample of a price time series.
	PricePoint struct {
		Time  time.Time `json:"datum"`
		Price float64   `json:"cijena"`
	}

	// PriceQuote is the current market data of a coin.
	PriceQuote struct {
		Coin        string    `json:"coin"`
		USD         float64   `json:"usd"`
		EUR         float64   `json:"eur"`
		USDChange24 float64   `json:"usd24hChange"`
		EURChange24 float64   `json:"eur24hChange"`
		MarketCap   float64   `json:"marketCap"`
		Volume      float64   `json:"totalVolume"`
		UpdatedAt   time.Time `json:"lastUpdated"`
	}

	// GasTracker holds gas price suggestions in gwei.
	GasTracker struct {
		Safe    int64 `json:"safeGasPrice"`
		Propose int64 `json:"proposeGasPrice"`
		Fast    int64 `json:"fastGasPrice"`
		BaseFee int64 `json:"suggestBaseFee"`
	}

	// MarketCoin is one row of the top coins table.
	MarketCoin struct {
		ID                string   `json:"id"`
		Symbol            string   `json:"symbol"`
		Name              string   `json:"name"`
		CurrentPrice      float64  `json:"current_price"`
		MarketCap         float64  `json:"market_cap"`
		MarketCapRank     int      `json:"market_cap_rank"`
		Change24h         float64  `json:"price_change_percentage_24h"`
		TotalVolume       float64  `json:"total_volume"`
		CirculatingSupply float64  `json:"circulating_supply"`
		MaxSupply         *float64 `json:"max_supply"`
		Image             string   `json:"image"`
	}
)
