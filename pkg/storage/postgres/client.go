package postgres

import (
	"context"
	"fmt"

	"marketsync/config"
	"marketsync/pkg/storage"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Client implements storage.DB on top of PostgreSQL.
type Client struct {
	DB *gorm.DB
}

var _ storage.DB = (*Client)(nil)

func NewClient(dsn string) (*Client, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &Client{DB: db}, nil
}

// InitializeAndMigrate connects to Postgres, optionally creates the DB, and
// runs AutoMigrate for every persisted entity.
func InitializeAndMigrate(cfg config.PostgresConfig, createDB bool) (*Client, error) {
	if createDB {
		if err := CreateDatabase(cfg); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	client, err := NewClient(cfg.DSN(cfg.Environment))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := client.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (c *Client) AutoMigrateAll() error {
	err := c.DB.AutoMigrate(
		&storage.Timeframe{},
		&storage.Source{},
		&storage.Currency{},
		&storage.Platform{},
		&storage.Tag{},
		&storage.CurrencyTag{},
		&storage.Country{},
		&storage.Exchange{},
		&storage.ExchangeCountry{},
		&storage.ExchangeCurrency{},
		&storage.ExchangeMarket{},
		&storage.OHLCVGroup{},
		&storage.OHLCVPull{},
		&storage.OHLCVCandle{},
		&storage.TrendsGroup{},
		&storage.TrendsPull{},
		&storage.TrendsStep{},
		&storage.TrendsPoint{},
		&storage.StrategyRecord{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func (c *Client) IsHealthy(ctx context.Context) bool {
	db, err := c.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (c *Client) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}

// Begin opens a transaction whose writes are staged until Commit.
func (c *Client) Begin(ctx context.Context) (storage.Tx, error) {
	tx := c.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return &txClient{Client{DB: tx}}, nil
}

type txClient struct {
	Client
}

func (t *txClient) Commit() error   { return t.DB.Commit().Error }
func (t *txClient) Rollback() error { return t.DB.Rollback().Error }
