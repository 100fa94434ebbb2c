package postgres

import (
	"context"
	"time"

	"marketsync/pkg/storage"
)

func (c *Client) EnsureTrendsGroup(ctx context.Context, sourceID, currencyID, timeframeID uint, geo string, category int) (*storage.TrendsGroup, error) {
	var g storage.TrendsGroup
	err := c.DB.WithContext(ctx).
		Where("source_id = ? AND currency_id = ? AND timeframe_id = ? AND geo = ? AND category = ?",
			sourceID, currencyID, timeframeID, geo, category).
		Attrs(&storage.TrendsGroup{
			SourceID:    sourceID,
			CurrencyID:  currencyID,
			TimeframeID: timeframeID,
			Geo:         geo,
			Category:    category,
		}).
		FirstOrCreate(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) CreateTrendsPull(ctx context.Context, p *storage.TrendsPull) error {
	return c.DB.WithContext(ctx).Create(p).Error
}

func (c *Client) StepsCovering(ctx context.Context, groupID, timeframeID uint, from time.Time, to *time.Time) ([]storage.TrendsStep, error) {
	q := c.DB.WithContext(ctx).
		Where("group_id = ? AND timeframe_id = ? AND from_time = ?", groupID, timeframeID, from)
	if to == nil {
		q = q.Where("to_time IS NULL")
	} else {
		q = q.Where("to_time = ?", *to)
	}

	var steps []storage.TrendsStep
	if err := q.Order("id").Find(&steps).Error; err != nil {
		return nil, err
	}
	return steps, nil
}

func (c *Client) CreateStep(ctx context.Context, s *storage.TrendsStep) error {
	return c.DB.WithContext(ctx).Create(s).Error
}

func (c *Client) SaveStep(ctx context.Context, s *storage.TrendsStep) error {
	return c.DB.WithContext(ctx).Save(s).Error
}

func (c *Client) InsertPoints(ctx context.Context, points []storage.TrendsPoint) error {
	if len(points) == 0 {
		return nil
	}
	return c.DB.WithContext(ctx).Create(&points).Error
}
