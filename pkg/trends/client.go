// Package trends provides the search-interest provider client and the
// granularity window rules its data must be fetched under.
package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Point is one search-interest datum. IsPartial marks a provisional value
// the provider may still revise.
type Point struct {
	Value     int
	IsPartial bool
}

// Result maps datum time to per-keyword points.
type Result map[time.Time]map[string]Point

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL string, timeout time.Duration, reqPerSec float64) *Client {
	var limiter *rate.Limiter
	if reqPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(reqPerSec), 1)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// Request is one prepared interest-over-time query.
type Request struct {
	client    *Client
	keywords  []string
	timeframe string
	geo       string
	category  int
	vertical  Vertical
}

// BuildQuery prepares a query for the given keywords over a provider
// timeframe string (see TimeframeString).
func (c *Client) BuildQuery(keywords []string, timeframeStr, geo string, category int, vertical Vertical) *Request {
	return &Request{
		client:    c,
		keywords:  keywords,
		timeframe: timeframeStr,
		geo:       geo,
		category:  category,
		vertical:  vertical,
	}
}

// timelinePayload is the provider's interest-over-time response shape.
type timelinePayload struct {
	Default struct {
		TimelineData []struct {
			Time      string `json:"time"` // unix seconds
			Value     []int  `json:"value"`
			IsPartial bool   `json:"isPartial"`
		} `json:"timelineData"`
	} `json:"default"`
}

// Fetch executes the query and returns one point per (time, keyword).
func (r *Request) Fetch(ctx context.Context) (Result, error) {
	if r.client.limiter != nil {
		if err := r.client.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	query := url.Values{}
	query.Set("q", strings.Join(r.keywords, ","))
	query.Set("timeframe", r.timeframe)
	query.Set("geo", r.geo)
	query.Set("cat", strconv.Itoa(r.category))
	query.Set("gprop", string(r.vertical))

	endpoint := r.client.baseURL + "/interest-over-time?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := r.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("trends error: %s", body)
	}

	var payload timelinePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := make(Result, len(payload.Default.TimelineData))
	for _, entry := range payload.Default.TimelineData {
		secs, err := strconv.ParseInt(entry.Time, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse datum time %q: %w", entry.Time, err)
		}
		at := time.Unix(secs, 0).UTC()

		points := make(map[string]Point, len(r.keywords))
		for i, kw := range r.keywords {
			if i >= len(entry.Value) {
				break
			}
			points[kw] = Point{Value: entry.Value[i], IsPartial: entry.IsPartial}
		}
		result[at] = points
	}
	return result, nil
}
