package postgres

import (
	"context"
	"time"

	"marketsync/pkg/storage"
)

func (c *Client) EnsureOHLCVGroup(ctx context.Context, sourceID, baseID, quoteID, timeframeID uint) (*storage.OHLCVGroup, error) {
	var g storage.OHLCVGroup
	err := c.DB.WithContext(ctx).
		Where(&storage.OHLCVGroup{
			SourceID:    sourceID,
			BaseID:      baseID,
			QuoteID:     quoteID,
			TimeframeID: timeframeID,
		}).
		FirstOrCreate(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) CreatePull(ctx context.Context, p *storage.OHLCVPull) error {
	return c.DB.WithContext(ctx).Create(p).Error
}

func (c *Client) LastPull(ctx context.Context, groupID uint) (*storage.OHLCVPull, error) {
	var p storage.OHLCVPull
	err := c.DB.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("to_time DESC").
		First(&p).Error
	if err != nil {
		return nil, orNotFound(err)
	}
	return &p, nil
}

func (c *Client) CandleTimes(ctx context.Context, groupID uint, from, to time.Time) ([]time.Time, error) {
	var times []time.Time
	err := c.DB.WithContext(ctx).
		Model(&storage.OHLCVCandle{}).
		Where("group_id = ? AND bucket_time >= ? AND bucket_time <= ?", groupID, from, to).
		Order("bucket_time").
		Pluck("bucket_time", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}

func (c *Client) InsertCandles(ctx context.Context, candles []storage.OHLCVCandle) error {
	if len(candles) == 0 {
		return nil
	}
	return c.DB.WithContext(ctx).Create(&candles).Error
}
