// Package coinmarket provides the client for the market data aggregator:
// ranked currency listings, exchange listings, per-exchange market pairs
// and historical OHLCV snapshots.
package coinmarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPageSize is the limit used by the paginated listing endpoints.
const DefaultPageSize = 100

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL, apiKey string, timeout time.Duration, reqPerSec float64) *Client {
	var limiter *rate.Limiter
	if reqPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(reqPerSec), 1)
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

func (c *Client) getData(ctx context.Context, path string, query url.Values, data any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("aggregator error: %s", body)
	}

	var raw apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if raw.Status.ErrorCode != 0 {
		return fmt.Errorf("aggregator error %d: %s", raw.Status.ErrorCode, raw.Status.ErrorMessage)
	}

	if err := json.Unmarshal(raw.Data, data); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// CurrencyListings fetches one page of ranked currencies. start is 1-based.
func (c *Client) CurrencyListings(ctx context.Context, start, limit int) ([]CurrencyListing, error) {
	query := url.Values{}
	query.Set("start", strconv.Itoa(start))
	query.Set("limit", strconv.Itoa(limit))

	var listings []CurrencyListing
	if err := c.getData(ctx, "/v1/cryptocurrency/listings/latest", query, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// ExchangeListings fetches one page of exchanges. start is 1-based.
func (c *Client) ExchangeListings(ctx context.Context, start, limit int) ([]ExchangeListing, error) {
	query := url.Values{}
	query.Set("start", strconv.Itoa(start))
	query.Set("limit", strconv.Itoa(limit))

	var listings []ExchangeListing
	if err := c.getData(ctx, "/v1/exchange/listings/latest", query, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// MarketPairs fetches every market pair listed on an exchange, paging with
// start/limit until the provider returns an empty page.
func (c *Client) MarketPairs(ctx context.Context, exchangeSlug string) ([]MarketListing, error) {
	var all []MarketListing

	for start := 1; ; start += DefaultPageSize {
		query := url.Values{}
		query.Set("slug", exchangeSlug)
		query.Set("start", strconv.Itoa(start))
		query.Set("limit", strconv.Itoa(DefaultPageSize))

		var page struct {
			MarketPairs []MarketListing `json:"market_pairs"`
		}
		if err := c.getData(ctx, "/v1/exchange/market-pairs/latest", query, &page); err != nil {
			return nil, err
		}

		if len(page.MarketPairs) == 0 {
			return all, nil
		}
		all = append(all, page.MarketPairs...)
	}
}

// historicalQuote is the raw shape of one historical OHLCV entry.
type historicalQuote struct {
	TimeOpen optTime `json:"time_open"`
	TimeHigh optTime `json:"time_high"`
	TimeLow  optTime `json:"time_low"`
	Quote    map[string]struct {
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	} `json:"quote"`
}

// HistoricalBars fetches daily OHLCV snapshots for a currency between from
// and to, converted into the given quote symbol. Entries without a parseable
// open time are dropped; missing high/low times stay nil.
func (c *Client) HistoricalBars(ctx context.Context, symbol, convert string, from, to time.Time) ([]HistoricalBar, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("convert", convert)
	query.Set("time_start", from.UTC().Format(time.RFC3339))
	query.Set("time_end", to.UTC().Format(time.RFC3339))

	var data struct {
		Quotes []historicalQuote `json:"quotes"`
	}
	if err := c.getData(ctx, "/v1/cryptocurrency/ohlcv/historical", query, &data); err != nil {
		return nil, err
	}

	var bars []HistoricalBar
	for _, q := range data.Quotes {
		if q.TimeOpen.Time == nil {
			continue
		}
		quote, ok := q.Quote[convert]
		if !ok {
			continue
		}
		bars = append(bars, HistoricalBar{
			Time:     *q.TimeOpen.Time,
			Open:     quote.Open,
			High:     quote.High,
			Low:      quote.Low,
			Close:    quote.Close,
			Volume:   quote.Volume,
			HighTime: q.TimeHigh.Time,
			LowTime:  q.TimeLow.Time,
		})
	}
	return bars, nil
}
