package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"marketsync/pkg/cache"
)

type Config struct {
	Log      LogConfig         `mapstructure:"log"`
	Postgres PostgresConfig    `mapstructure:"postgres"`
	Redis    cache.RedisConfig `mapstructure:"redis"`
	Exchange ExchangeConfig    `mapstructure:"exchange"`
	Market   MarketConfig      `mapstructure:"market"`
	Trends   TrendsConfig      `mapstructure:"trends"`
	Sync     SyncConfig        `mapstructure:"sync"`
}

// ExchangeConfig covers the exchange's REST kline endpoint and the
// optional live kline stream.
type ExchangeConfig struct {
	REST RESTConfig `mapstructure:"rest"`
	WS   WSConfig   `mapstructure:"ws"`
}

type RESTConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Category  string        `mapstructure:"category"`
	Timeout   time.Duration `mapstructure:"timeout"`
	ReqPerSec float64       `mapstructure:"req_per_sec"`
}

type WSConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Enabled bool          `mapstructure:"enabled"`
}

// MarketConfig covers the market-data aggregator API.
type MarketConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ReqPerSec    float64       `mapstructure:"req_per_sec"`
	ListingLimit int           `mapstructure:"listing_limit"`
}

// TrendsConfig covers the search-interest provider.
type TrendsConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	ReqPerSec float64       `mapstructure:"req_per_sec"`
	Geo       string        `mapstructure:"geo"`
	Category  int           `mapstructure:"category"`
}

// SyncConfig selects what the scheduler keeps up to date.
type SyncConfig struct {
	Pairs          []PairConfig  `mapstructure:"pairs"`
	CandleInterval time.Duration `mapstructure:"candle_interval"`
	ListingsDaily  bool          `mapstructure:"listings_daily"`
	WithMarkets    bool          `mapstructure:"with_markets"`
	Backfill       time.Duration `mapstructure:"backfill"`
}

type PairConfig struct {
	Base      string `mapstructure:"base"`
	Quote     string `mapstructure:"quote"`
	Timeframe string `mapstructure:"timeframe"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}

	// Support environment variables with dot notation (e.g., POSTGRES_HOST)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	if cfg.Postgres.Environment == "" {
		cfg.Postgres.Environment = cfg.Log.Environment
	}
	return &cfg
}
