package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// apiResponse is the response envelope used across the exchange's endpoints.
type apiResponse struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"` // delay decoding, payload varies per endpoint
	Time    int64           `json:"time"`
}

type klinesResult struct {
	Category string     `json:"category"`
	Symbol   string     `json:"symbol"`
	List     [][]string `json:"list"`
}

type instrumentsResult struct {
	Category string `json:"category"`
	List     []struct {
		Symbol    string `json:"symbol"`
		BaseCoin  string `json:"baseCoin"`
		QuoteCoin string `json:"quoteCoin"`
	} `json:"list"`
}

// RESTClient talks to the exchange's market data REST API. Requests are
// client-side rate limited; errors propagate without retry.
type RESTClient struct {
	baseURL    string
	category   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ BarClient = (*RESTClient)(nil)

// NewRESTClient creates the client. reqPerSec bounds the request rate; zero
// disables limiting.
func NewRESTClient(baseURL, category string, timeout time.Duration, reqPerSec float64) *RESTClient {
	var limiter *rate.Limiter
	if reqPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(reqPerSec), 1)
	}
	return &RESTClient{
		baseURL:    baseURL,
		category:   category,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

func (c *RESTClient) getResult(ctx context.Context, endpoint string, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("exchange error: %s", body)
	}

	var raw apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if raw.RetCode != 0 {
		return fmt.Errorf("exchange error %d: %s", raw.RetCode, raw.RetMsg)
	}

	if err := json.Unmarshal(raw.Result, result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// Symbols fetches the tradable pair symbols quoted in the given currency.
func (c *RESTClient) Symbols(ctx context.Context, quote string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/v5/market/instruments-info?category=%s&limit=1000", c.baseURL, c.category)

	var result instrumentsResult
	if err := c.getResult(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var symbols []string
	for _, inst := range result.List {
		if inst.QuoteCoin == quote && !seen[inst.Symbol] {
			symbols = append(symbols, inst.Symbol)
			seen[inst.Symbol] = true
		}
	}
	return symbols, nil
}

// FetchBars fetches bars for the symbol at the given timeframe from the
// since cursor onward, in ascending time order. The exchange bounds page
// size itself; an empty slice means no data at this cursor.
func (c *RESTClient) FetchBars(ctx context.Context, symbol, timeframeLabel string, since time.Time) ([]Bar, error) {
	meta, err := intervalFor(timeframeLabel)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf(
		"%s/v5/market/kline?category=%s&symbol=%s&interval=%s&start=%d",
		c.baseURL,
		c.category,
		symbol,
		meta.APIValue,
		since.UnixMilli(),
	)

	var result klinesResult
	if err := c.getResult(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	bars := parseBarRows(result.List)
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// parseBarRows converts the API's row format to Bars, skipping rows with
// missing or unparseable fields.
func parseBarRows(raw [][]string) []Bar {
	var out []Bar

	for _, row := range raw {
		if len(row) < 6 {
			continue // skip incomplete row
		}

		start, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		open, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			continue
		}
		high, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			continue
		}
		low, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			continue
		}
		closeVal, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			continue
		}
		volume, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			continue
		}

		out = append(out, Bar{
			Time:   time.UnixMilli(start).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeVal,
			Volume: volume,
		})
	}
	return out
}
