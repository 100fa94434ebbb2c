package coinmarket

import (
	"encoding/json"
	"time"
)

// apiResponse is the response envelope shared by the aggregator's endpoints.
type apiResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data json.RawMessage `json:"data"` // delay decoding, shape varies per endpoint
}

// optTime decodes an optional RFC3339 timestamp. Missing or unparseable
// values decode to nil rather than failing the whole payload.
type optTime struct {
	Time *time.Time
}

func (o *optTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		o.Time = nil
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		o.Time = nil
		return nil
	}
	t = t.UTC()
	o.Time = &t
	return nil
}

// PlatformInfo identifies the chain a token is issued on.
type PlatformInfo struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	TokenAddress string `json:"token_address"`
}

// CurrencyListing is one ranked cryptocurrency from the listings endpoint.
type CurrencyListing struct {
	ExternalID  json.Number   `json:"id"`
	Name        string        `json:"name"`
	Symbol      string        `json:"symbol"`
	Slug        string        `json:"slug"`
	Rank        *int          `json:"cmc_rank"`
	Tags        []string      `json:"tags"`
	Platform    *PlatformInfo `json:"platform"`
	LastUpdated optTime       `json:"last_updated"`
}

// ExchangeListing is one exchange from the exchange listing endpoint.
type ExchangeListing struct {
	ExternalID  json.Number `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Rank        *int        `json:"rank"`
	Countries   []string    `json:"countries"`
	Fiats       []string    `json:"fiats"`
	LastUpdated optTime     `json:"last_updated"`
}

// MarketListing is one (base, quote) pair listed on an exchange.
type MarketListing struct {
	BaseSymbol  string `json:"market_pair_base"`
	QuoteSymbol string `json:"market_pair_quote"`
	FeeCategory string `json:"fee_type"`
}

// HistoricalBar is one daily OHLCV snapshot. The provider reports the
// moments the high and low printed; both are optional.
type HistoricalBar struct {
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	HighTime *time.Time
	LowTime  *time.Time
}
