package postgres

import (
	"context"

	"marketsync/pkg/storage"
)

func (c *Client) FindStrategyByName(ctx context.Context, name string) (*storage.StrategyRecord, error) {
	var s storage.StrategyRecord
	err := c.DB.WithContext(ctx).Where("name = ?", name).First(&s).Error
	if err != nil {
		return nil, orNotFound(err)
	}
	return &s, nil
}

func (c *Client) CreateStrategy(ctx context.Context, s *storage.StrategyRecord) error {
	return c.DB.WithContext(ctx).Create(s).Error
}

func (c *Client) SaveStrategy(ctx context.Context, s *storage.StrategyRecord) error {
	return c.DB.WithContext(ctx).Save(s).Error
}
