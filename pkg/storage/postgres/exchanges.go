package postgres

import (
	"context"

	"marketsync/pkg/storage"
)

func (c *Client) FindExchangeBySlug(ctx context.Context, slug string) (*storage.Exchange, error) {
	var e storage.Exchange
	err := c.DB.WithContext(ctx).Where("slug = ?", slug).First(&e).Error
	if err != nil {
		return nil, orNotFound(err)
	}
	return &e, nil
}

func (c *Client) CreateExchange(ctx context.Context, e *storage.Exchange) error {
	return c.DB.WithContext(ctx).Create(e).Error
}

func (c *Client) SaveExchange(ctx context.Context, e *storage.Exchange) error {
	return c.DB.WithContext(ctx).Save(e).Error
}

func (c *Client) CountryLinks(ctx context.Context, exchangeID uint) ([]storage.ExchangeCountry, error) {
	var links []storage.ExchangeCountry
	err := c.DB.WithContext(ctx).
		Where("exchange_id = ?", exchangeID).
		Order("id").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (c *Client) CreateCountryLink(ctx context.Context, link *storage.ExchangeCountry) error {
	return c.DB.WithContext(ctx).Create(link).Error
}

func (c *Client) SaveCountryLink(ctx context.Context, link *storage.ExchangeCountry) error {
	return c.DB.WithContext(ctx).Save(link).Error
}

func (c *Client) CurrencyLinks(ctx context.Context, exchangeID uint) ([]storage.ExchangeCurrency, error) {
	var links []storage.ExchangeCurrency
	err := c.DB.WithContext(ctx).
		Where("exchange_id = ?", exchangeID).
		Order("id").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (c *Client) CreateCurrencyLink(ctx context.Context, link *storage.ExchangeCurrency) error {
	return c.DB.WithContext(ctx).Create(link).Error
}

func (c *Client) SaveCurrencyLink(ctx context.Context, link *storage.ExchangeCurrency) error {
	return c.DB.WithContext(ctx).Save(link).Error
}

func (c *Client) Markets(ctx context.Context, exchangeID uint) ([]storage.ExchangeMarket, error) {
	var markets []storage.ExchangeMarket
	err := c.DB.WithContext(ctx).
		Where("exchange_id = ?", exchangeID).
		Order("id").
		Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

func (c *Client) CreateMarket(ctx context.Context, m *storage.ExchangeMarket) error {
	return c.DB.WithContext(ctx).Create(m).Error
}

func (c *Client) SaveMarket(ctx context.Context, m *storage.ExchangeMarket) error {
	return c.DB.WithContext(ctx).Save(m).Error
}
