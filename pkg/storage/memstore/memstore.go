// Package memstore is an in-memory storage.DB used by the engine tests and
// offline runs. Transactions share the underlying data and commit is a
// no-op; the single-writer assumption of the sync engine makes that safe
// for its tests, while rollback semantics are exercised against Postgres.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketsync/pkg/storage"
)

type Store struct {
	mu     sync.Mutex
	nextID uint

	timeframes map[uint]storage.Timeframe
	sources    map[uint]storage.Source
	currencies map[uint]storage.Currency
	platforms  map[uint]storage.Platform
	tags       map[uint]storage.Tag
	tagLinks   map[uint]storage.CurrencyTag
	countries  map[uint]storage.Country

	exchanges     map[uint]storage.Exchange
	countryLinks  map[uint]storage.ExchangeCountry
	currencyLinks map[uint]storage.ExchangeCurrency
	markets       map[uint]storage.ExchangeMarket

	ohlcvGroups  map[uint]storage.OHLCVGroup
	ohlcvPulls   map[uint]storage.OHLCVPull
	ohlcvCandles map[uint]storage.OHLCVCandle

	trendsGroups map[uint]storage.TrendsGroup
	trendsPulls  map[uint]storage.TrendsPull
	trendsSteps  map[uint]storage.TrendsStep
	trendsPoints map[uint]storage.TrendsPoint

	strategies map[uint]storage.StrategyRecord
}

var _ storage.DB = (*Store)(nil)

func New() *Store {
	return &Store{
		timeframes:    make(map[uint]storage.Timeframe),
		sources:       make(map[uint]storage.Source),
		currencies:    make(map[uint]storage.Currency),
		platforms:     make(map[uint]storage.Platform),
		tags:          make(map[uint]storage.Tag),
		tagLinks:      make(map[uint]storage.CurrencyTag),
		countries:     make(map[uint]storage.Country),
		exchanges:     make(map[uint]storage.Exchange),
		countryLinks:  make(map[uint]storage.ExchangeCountry),
		currencyLinks: make(map[uint]storage.ExchangeCurrency),
		markets:       make(map[uint]storage.ExchangeMarket),
		ohlcvGroups:   make(map[uint]storage.OHLCVGroup),
		ohlcvPulls:    make(map[uint]storage.OHLCVPull),
		ohlcvCandles:  make(map[uint]storage.OHLCVCandle),
		trendsGroups:  make(map[uint]storage.TrendsGroup),
		trendsPulls:   make(map[uint]storage.TrendsPull),
		trendsSteps:   make(map[uint]storage.TrendsStep),
		trendsPoints:  make(map[uint]storage.TrendsPoint),
		strategies:    make(map[uint]storage.StrategyRecord),
	}
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

// Begin returns a Tx view over the same data.
func (s *Store) Begin(_ context.Context) (storage.Tx, error) {
	return &memTx{s}, nil
}

type memTx struct {
	*Store
}

func (t *memTx) Commit() error   { return nil }
func (t *memTx) Rollback() error { return nil }

// sortedIDs yields deterministic iteration order, mirroring the id-ordered
// queries of the Postgres backend.
func sortedIDs[T any](m map[uint]T) []uint {
	ids := make([]uint, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) EnsureTimeframe(_ context.Context, unit string, amount int, label string) (*storage.Timeframe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedIDs(s.timeframes) {
		tf := s.timeframes[id]
		if tf.Unit == unit && tf.Amount == amount {
			return &tf, nil
		}
	}
	tf := storage.Timeframe{ID: s.id(), Unit: unit, Amount: amount, Label: label, CreatedAt: time.Now().UTC()}
	s.timeframes[tf.ID] = tf
	return &tf, nil
}

func (s *Store) FindTimeframeByLabel(_ context.Context, label string) (*storage.Timeframe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedIDs(s.timeframes) {
		tf := s.timeframes[id]
		if tf.Label == label {
			return &tf, nil
		}
	}
	return nil, nil
}

func (s *Store) EnsureSource(_ context.Context, name, kind string, parentID *uint) (*storage.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedIDs(s.sources) {
		src := s.sources[id]
		if src.Name == name && src.Kind == kind {
			return &src, nil
		}
	}
	src := storage.Source{ID: s.id(), Name: name, Kind: kind, ParentID: parentID, CreatedAt: time.Now().UTC()}
	s.sources[src.ID] = src
	return &src, nil
}

func (s *Store) FindCurrencyBySymbol(_ context.Context, symbol string, kinds ...string) (*storage.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedIDs(s.currencies) {
		c := s.currencies[id]
		if c.Symbol != symbol {
			continue
		}
		if len(kinds) == 0 {
			return &c, nil
		}
		for _, k := range kinds {
			if c.Kind == k {
				return &c, nil
			}
		}
	}
	return nil, nil
}

func (s *Store) CreateCurrency(_ context.Context, c *storage.Currency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.id()
	c.CreatedAt = time.Now().UTC()
	s.currencies[c.ID] = *c
	return nil
}

func (s *Store) SaveCurrency(_ context.Context, c *storage.Currency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.UpdatedAt = time.Now().UTC()
	s.currencies[c.ID] = *c
	return nil
}

func (s *Store) EnsureTag(_ context.Context, name, slug string) (*storage.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedIDs(s.tags) {
		t := s.tags[id]
		if t.Name == name {
			return &t, nil
		}
	}
	t := storage.Tag{ID: s.id(), Name: name, Slug: slug, CreatedAt: time.Now().UTC()}
	s.tags[t.ID] = t
	return &t, nil
}

func (s *Store) EnsurePlatform(_ context.Context, name, symbol string, sourceID uint) (*storage.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedIDs(s.platforms) {
		p := s.platforms[id]
		if p.Name == name {
			return &p, nil
		}
	}
	p := storage.Platform{ID: s.id(), Name: name, Symbol: symbol, SourceID: sourceID, CreatedAt: time.Now().UTC()}
	s.platforms[p.ID] = p
	return &p, nil
}

func (s *Store) EnsureCountry(_ context.Context, code, name string) (*storage.Country, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedIDs(s.countries) {
		c := s.countries[id]
		if c.Code == code {
			return &c, nil
		}
	}
	c := storage.Country{ID: s.id(), Code: code, Name: name, CreatedAt: time.Now().UTC()}
	s.countries[c.ID] = c
	return &c, nil
}

func (s *Store) TagLinks(_ context.Context, currencyID uint) ([]storage.CurrencyTag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var links []storage.CurrencyTag
	for _, id := range sortedIDs(s.tagLinks) {
		link := s.tagLinks[id]
		if link.CurrencyID == currencyID {
			links = append(links, link)
		}
	}
	return links, nil
}

func (s *Store) CreateTagLink(_ context.Context, link *storage.CurrencyTag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link.ID = s.id()
	link.CreatedAt = time.Now().UTC()
	s.tagLinks[link.ID] = *link
	return nil
}

func (s *Store) SaveTagLink(_ context.Context, link *storage.CurrencyTag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link.UpdatedAt = time.Now().UTC()
	s.tagLinks[link.ID] = *link
	return nil
}

func (s *Store) FindExchangeBySlug(_ context.Context, slug string) (*storage.Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedIDs(s.exchanges) {
		e := s.exchanges[id]
		if e.Slug == slug {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateExchange(_ context.Context, e *storage.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.id()
	e.CreatedAt = time.Now().UTC()
	s.exchanges[e.ID] = *e
	return nil
}

func (s *Store) SaveExchange(_ context.Context, e *storage.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.UpdatedAt = time.Now().UTC()
	s.exchanges[e.ID] = *e
	return nil
}

func (s *Store) CountryLinks(_ context.Context, exchangeID uint) ([]storage.ExchangeCountry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var links []storage.ExchangeCountry
	for _, id := range sortedIDs(s.countryLinks) {
		link := s.countryLinks[id]
		if link.ExchangeID == exchangeID {
			links = append(links, link)
		}
	}
	return links, nil
}

func (s *Store) CreateCountryLink(_ context.Context, link *storage.ExchangeCountry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link.ID = s.id()
	s.countryLinks[link.ID] = *link
	return nil
}

func (s *Store) SaveCountryLink(_ context.Context, link *storage.ExchangeCountry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.countryLinks[link.ID] = *link
	return nil
}

func (s *Store) CurrencyLinks(_ context.Context, exchangeID uint) ([]storage.ExchangeCurrency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var links []storage.ExchangeCurrency
	for _, id := range sortedIDs(s.currencyLinks) {
		link := s.currencyLinks[id]
		if link.ExchangeID == exchangeID {
			links = append(links, link)
		}
	}
	return links, nil
}

func (s *Store) CreateCurrencyLink(_ context.Context, link *storage.ExchangeCurrency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link.ID = s.id()
	s.currencyLinks[link.ID] = *link
	return nil
}

func (s *Store) SaveCurrencyLink(_ context.Context, link *storage.ExchangeCurrency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currencyLinks[link.ID] = *link
	return nil
}

func (s *Store) Markets(_ context.Context, exchangeID uint) ([]storage.ExchangeMarket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var markets []storage.ExchangeMarket
	for _, id := range sortedIDs(s.markets) {
		m := s.markets[id]
		if m.ExchangeID == exchangeID {
			markets = append(markets, m)
		}
	}
	return markets, nil
}

func (s *Store) CreateMarket(_ context.Context, m *storage.ExchangeMarket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = s.id()
	m.CreatedAt = time.Now().UTC()
	s.markets[m.ID] = *m
	return nil
}

func (s *Store) SaveMarket(_ context.Context, m *storage.ExchangeMarket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.UpdatedAt = time.Now().UTC()
	s.markets[m.ID] = *m
	return nil
}

func (s *Store) EnsureOHLCVGroup(_ context.Context, sourceID, baseID, quoteID, timeframeID uint) (*storage.OHLCVGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedIDs(s.ohlcvGroups) {
		g := s.ohlcvGroups[id]
		if g.SourceID == sourceID && g.BaseID == baseID && g.QuoteID == quoteID && g.TimeframeID == timeframeID {
			return &g, nil
		}
	}
	g := storage.OHLCVGroup{
		ID:          s.id(),
		SourceID:    sourceID,
		BaseID:      baseID,
		QuoteID:     quoteID,
		TimeframeID: timeframeID,
		CreatedAt:   time.Now().UTC(),
	}
	s.ohlcvGroups[g.ID] = g
	return &g, nil
}

func (s *Store) CreatePull(_ context.Context, p *storage.OHLCVPull) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.id()
	p.CreatedAt = time.Now().UTC()
	s.ohlcvPulls[p.ID] = *p
	return nil
}

func (s *Store) LastPull(_ context.Context, groupID uint) (*storage.OHLCVPull, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var last *storage.OHLCVPull
	for _, id := range sortedIDs(s.ohlcvPulls) {
		p := s.ohlcvPulls[id]
		if p.GroupID != groupID {
			continue
		}
		if last == nil || p.ToTime.After(last.ToTime) {
			cp := p
			last = &cp
		}
	}
	return last, nil
}

func (s *Store) CandleTimes(_ context.Context, groupID uint, from, to time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var times []time.Time
	for _, id := range sortedIDs(s.ohlcvCandles) {
		c := s.ohlcvCandles[id]
		if c.GroupID != groupID {
			continue
		}
		if c.BucketTime.Before(from) || c.BucketTime.After(to) {
			continue
		}
		times = append(times, c.BucketTime)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times, nil
}

func (s *Store) InsertCandles(_ context.Context, candles []storage.OHLCVCandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range candles {
		candles[i].ID = s.id()
		candles[i].CreatedAt = time.Now().UTC()
		s.ohlcvCandles[candles[i].ID] = candles[i]
	}
	return nil
}

func (s *Store) EnsureTrendsGroup(_ context.Context, sourceID, currencyID, timeframeID uint, geo string, category int) (*storage.TrendsGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedIDs(s.trendsGroups) {
		g := s.trendsGroups[id]
		if g.SourceID == sourceID && g.CurrencyID == currencyID && g.TimeframeID == timeframeID &&
			g.Geo == geo && g.Category == category {
			return &g, nil
		}
	}
	g := storage.TrendsGroup{
		ID:          s.id(),
		SourceID:    sourceID,
		CurrencyID:  currencyID,
		TimeframeID: timeframeID,
		Geo:         geo,
		Category:    category,
		CreatedAt:   time.Now().UTC(),
	}
	s.trendsGroups[g.ID] = g
	return &g, nil
}

func (s *Store) CreateTrendsPull(_ context.Context, p *storage.TrendsPull) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.id()
	p.CreatedAt = time.Now().UTC()
	s.trendsPulls[p.ID] = *p
	return nil
}

func (s *Store) StepsCovering(_ context.Context, groupID, timeframeID uint, from time.Time, to *time.Time) ([]storage.TrendsStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var steps []storage.TrendsStep
	for _, id := range sortedIDs(s.trendsSteps) {
		step := s.trendsSteps[id]
		if step.GroupID != groupID || step.TimeframeID != timeframeID {
			continue
		}
		if !step.FromTime.Equal(from) {
			continue
		}
		switch {
		case step.ToTime == nil && to == nil:
		case step.ToTime != nil && to != nil && step.ToTime.Equal(*to):
		default:
			continue
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (s *Store) CreateStep(_ context.Context, step *storage.TrendsStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	step.ID = s.id()
	step.CreatedAt = time.Now().UTC()
	s.trendsSteps[step.ID] = *step
	return nil
}

func (s *Store) SaveStep(_ context.Context, step *storage.TrendsStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	step.UpdatedAt = time.Now().UTC()
	s.trendsSteps[step.ID] = *step
	return nil
}

func (s *Store) InsertPoints(_ context.Context, points []storage.TrendsPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range points {
		points[i].ID = s.id()
		points[i].CreatedAt = time.Now().UTC()
		s.trendsPoints[points[i].ID] = points[i]
	}
	return nil
}

func (s *Store) FindStrategyByName(_ context.Context, name string) (*storage.StrategyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedIDs(s.strategies) {
		st := s.strategies[id]
		if st.Name == name {
			return &st, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateStrategy(_ context.Context, st *storage.StrategyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.ID = s.id()
	st.CreatedAt = time.Now().UTC()
	s.strategies[st.ID] = *st
	return nil
}

func (s *Store) SaveStrategy(_ context.Context, st *storage.StrategyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.UpdatedAt = time.Now().UTC()
	s.strategies[st.ID] = *st
	return nil
}
