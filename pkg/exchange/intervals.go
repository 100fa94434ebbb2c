package exchange

import "fmt"

// intervalMeta holds the API value the exchange expects for a canonical
// timeframe label.
type intervalMeta struct {
	APIValue string
	Minutes  int
}

// supportedIntervals maps canonical timeframe labels to their exchange API
// representations.
var supportedIntervals = map[string]intervalMeta{
	"1m":  {APIValue: "1", Minutes: 1},
	"3m":  {APIValue: "3", Minutes: 3},
	"5m":  {APIValue: "5", Minutes: 5},
	"15m": {APIValue: "15", Minutes: 15},
	"30m": {APIValue: "30", Minutes: 30},
	"1h":  {APIValue: "60", Minutes: 60},
	"2h":  {APIValue: "120", Minutes: 120},
	"4h":  {APIValue: "240", Minutes: 240},
	"6h":  {APIValue: "360", Minutes: 360},
	"12h": {APIValue: "720", Minutes: 720},
	"1d":  {APIValue: "D", Minutes: 1440},
	"1w":  {APIValue: "W", Minutes: 10080},
	"1M":  {APIValue: "M", Minutes: 0}, // month length varies
}

// SupportsTimeframe reports whether the exchange accepts the canonical label.
func SupportsTimeframe(label string) bool {
	_, ok := supportedIntervals[label]
	return ok
}

func intervalFor(label string) (intervalMeta, error) {
	meta, ok := supportedIntervals[label]
	if !ok {
		return intervalMeta{}, fmt.Errorf("unsupported timeframe: %s", label)
	}
	return meta, nil
}
