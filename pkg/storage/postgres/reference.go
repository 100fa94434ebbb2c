package postgres

import (
	"context"
	"errors"

	"marketsync/pkg/storage"

	"gorm.io/gorm"
)

// orNotFound maps gorm's record-not-found to the (nil, nil) contract of the
// storage finder methods.
func orNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func (c *Client) EnsureTimeframe(ctx context.Context, unit string, amount int, label string) (*storage.Timeframe, error) {
	var tf storage.Timeframe
	err := c.DB.WithContext(ctx).
		Where(&storage.Timeframe{Unit: unit, Amount: amount}).
		Attrs(&storage.Timeframe{Label: label}).
		FirstOrCreate(&tf).Error
	if err != nil {
		return nil, err
	}
	return &tf, nil
}

func (c *Client) FindTimeframeByLabel(ctx context.Context, label string) (*storage.Timeframe, error) {
	var tf storage.Timeframe
	err := c.DB.WithContext(ctx).Where("label = ?", label).First(&tf).Error
	if err != nil {
		return nil, orNotFound(err)
	}
	return &tf, nil
}

func (c *Client) EnsureSource(ctx context.Context, name, kind string, parentID *uint) (*storage.Source, error) {
	var src storage.Source
	err := c.DB.WithContext(ctx).
		Where(&storage.Source{Name: name, Kind: kind}).
		Attrs(&storage.Source{ParentID: parentID}).
		FirstOrCreate(&src).Error
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (c *Client) FindCurrencyBySymbol(ctx context.Context, symbol string, kinds ...string) (*storage.Currency, error) {
	q := c.DB.WithContext(ctx).Where("symbol = ?", symbol)
	if len(kinds) > 0 {
		q = q.Where("kind IN ?", kinds)
	}

	var cur storage.Currency
	if err := q.Order("id").First(&cur).Error; err != nil {
		return nil, orNotFound(err)
	}
	return &cur, nil
}

func (c *Client) CreateCurrency(ctx context.Context, cur *storage.Currency) error {
	return c.DB.WithContext(ctx).Create(cur).Error
}

func (c *Client) SaveCurrency(ctx context.Context, cur *storage.Currency) error {
	return c.DB.WithContext(ctx).Save(cur).Error
}

func (c *Client) EnsureTag(ctx context.Context, name, slug string) (*storage.Tag, error) {
	var tag storage.Tag
	err := c.DB.WithContext(ctx).
		Where(&storage.Tag{Name: name}).
		Attrs(&storage.Tag{Slug: slug}).
		FirstOrCreate(&tag).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (c *Client) EnsurePlatform(ctx context.Context, name, symbol string, sourceID uint) (*storage.Platform, error) {
	var p storage.Platform
	err := c.DB.WithContext(ctx).
		Where(&storage.Platform{Name: name}).
		Attrs(&storage.Platform{Symbol: symbol, SourceID: sourceID}).
		FirstOrCreate(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) EnsureCountry(ctx context.Context, code, name string) (*storage.Country, error) {
	var country storage.Country
	err := c.DB.WithContext(ctx).
		Where(&storage.Country{Code: code}).
		Attrs(&storage.Country{Name: name}).
		FirstOrCreate(&country).Error
	if err != nil {
		return nil, err
	}
	return &country, nil
}

func (c *Client) TagLinks(ctx context.Context, currencyID uint) ([]storage.CurrencyTag, error) {
	var links []storage.CurrencyTag
	err := c.DB.WithContext(ctx).
		Where("currency_id = ?", currencyID).
		Order("id").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (c *Client) CreateTagLink(ctx context.Context, link *storage.CurrencyTag) error {
	return c.DB.WithContext(ctx).Create(link).Error
}

func (c *Client) SaveTagLink(ctx context.Context, link *storage.CurrencyTag) error {
	return c.DB.WithContext(ctx).Save(link).Error
}
