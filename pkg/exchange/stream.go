package exchange

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// BarHandler receives one live candle. confirmed is true once the bucket
// has closed and the bar is final.
type BarHandler func(symbol, timeframeLabel string, bar Bar, confirmed bool)

// StreamClient handles the WebSocket connection for live candle topics.
type StreamClient struct {
	url     string
	topics  []string
	conn    *websocket.Conn
	handler BarHandler
	logger  *zap.Logger
}

func NewStreamClient(url string, logger *zap.Logger) *StreamClient {
	return &StreamClient{url: url, logger: logger}
}

// SetBarHandler sets the function to handle incoming candles.
func (c *StreamClient) SetBarHandler(h BarHandler) {
	c.handler = h
}

// Topic builds the candle subscription topic for a symbol and canonical
// timeframe label.
func Topic(symbol, timeframeLabel string) (string, error) {
	meta, err := intervalFor(timeframeLabel)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("kline.%s.%s", meta.APIValue, symbol), nil
}

// Connect establishes the WebSocket connection and subscribes to the given
// topics. It does not start the listener.
func (c *StreamClient) Connect(topics []string) error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.logger.Error("failed to connect to WebSocket", zap.String("url", c.url), zap.Error(err))
		return err
	}
	c.conn = conn
	c.topics = topics
	c.logger.Info("WebSocket connected", zap.String("url", c.url))

	return c.subscribe()
}

func (c *StreamClient) subscribe() error {
	subMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": c.topics,
	}
	if err := c.conn.WriteJSON(subMsg); err != nil {
		return fmt.Errorf("websocket subscribe failed: %w", err)
	}
	return nil
}

// Listen reads messages until the connection fails, then reconnects and
// resubscribes indefinitely.
func (c *StreamClient) Listen() {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Error("WebSocket read error", zap.Error(err))

			for {
				time.Sleep(3 * time.Second)
				if err := c.reconnect(); err != nil {
					c.logger.Warn("retrying reconnect...")
					continue
				}
				c.logger.Info("reconnected successfully")
				break
			}
			continue
		}

		c.dispatch(msg)
	}
}

func (c *StreamClient) reconnect() error {
	newConn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return err
	}

	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = newConn

	return c.subscribe()
}

// candleMessage is a WebSocket message carrying candle data for one topic.
type candleMessage struct {
	Topic string `json:"topic"` // e.g. "kline.60.BTCUSDT"
	Data  []struct {
		Start    int64  `json:"start"`
		Interval string `json:"interval"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
		Confirm  bool   `json:"confirm"`
	} `json:"data"`
	Ts   int64  `json:"ts"`
	Type string `json:"type"`
}

func (c *StreamClient) dispatch(msg []byte) {
	if c.handler == nil {
		return
	}

	// Extract the topic first to discard subscription acks cheaply.
	var meta struct {
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal(msg, &meta); err != nil {
		c.logger.Warn("failed to extract topic", zap.Error(err))
		return
	}
	if !strings.HasPrefix(meta.Topic, "kline.") {
		return
	}

	var parsed candleMessage
	if err := json.Unmarshal(msg, &parsed); err != nil {
		c.logger.Warn("failed to parse candle payload", zap.Error(err))
		return
	}

	symbol, label := splitTopic(parsed.Topic)
	if symbol == "" {
		return
	}

	for _, d := range parsed.Data {
		bar, err := barFromStrings(d.Start, d.Open, d.High, d.Low, d.Close, d.Volume)
		if err != nil {
			c.logger.Warn("failed to parse candle fields", zap.String("topic", parsed.Topic), zap.Error(err))
			continue
		}
		c.handler(symbol, label, bar, d.Confirm)
	}
}

// splitTopic parses "kline.60.BTCUSDT" into ("BTCUSDT", "1h").
func splitTopic(topic string) (symbol, label string) {
	parts := strings.Split(topic, ".")
	if len(parts) != 3 {
		return "", ""
	}
	for l, meta := range supportedIntervals {
		if meta.APIValue == parts[1] {
			return parts[2], l
		}
	}
	return "", ""
}

func barFromStrings(startMs int64, open, high, low, closeVal, volume string) (Bar, error) {
	o, err := strconv.ParseFloat(open, 64)
	if err != nil {
		return Bar{}, err
	}
	h, err := strconv.ParseFloat(high, 64)
	if err != nil {
		return Bar{}, err
	}
	l, err := strconv.ParseFloat(low, 64)
	if err != nil {
		return Bar{}, err
	}
	cl, err := strconv.ParseFloat(closeVal, 64)
	if err != nil {
		return Bar{}, err
	}
	v, err := strconv.ParseFloat(volume, 64)
	if err != nil {
		return Bar{}, err
	}

	return Bar{
		Time:   time.UnixMilli(startMs).UTC(),
		Open:   o,
		High:   h,
		Low:    l,
		Close:  cl,
		Volume: v,
	}, nil
}
