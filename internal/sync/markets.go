package sync

import (
	"context"
	"fmt"

	"marketsync/pkg/storage"
)

// exchangeReconciler upserts exchange listings and their derived
// associations: country links, supported currencies and markets. All three
// follow the same rule as currency tags: rows absent from the latest
// snapshot are deactivated, reappearing rows are reactivated in place.
type exchangeReconciler struct {
	store    storage.Store
	sourceID uint

	countries  map[string]*storage.Country
	currencies *currencyReconciler
}

func newExchangeReconciler(store storage.Store, sourceID uint) *exchangeReconciler {
	return &exchangeReconciler{
		store:      store,
		sourceID:   sourceID,
		countries:  make(map[string]*storage.Country),
		currencies: newCurrencyReconciler(store, sourceID),
	}
}

func (r *exchangeReconciler) reconcile(ctx context.Context, snap ExchangeSnapshot, markets []MarketSnapshot) (*storage.Exchange, error) {
	exch, err := r.store.FindExchangeBySlug(ctx, snap.Slug)
	if err != nil {
		return nil, fmt.Errorf("lookup exchange %q: %w", snap.Slug, err)
	}

	if exch == nil {
		exch = &storage.Exchange{
			Slug:          snap.Slug,
			Name:          snap.Name,
			ExternalID:    snap.ExternalID,
			SourceID:      r.sourceID,
			Rank:          snap.Rank,
			LastSourcedAt: snap.SourcedAt,
		}
		if err := r.store.CreateExchange(ctx, exch); err != nil {
			return nil, fmt.Errorf("create exchange %q: %w", snap.Slug, err)
		}
	} else if newerThan(snap.SourcedAt, exch.LastSourcedAt) {
		if snap.Name != "" {
			exch.Name = snap.Name
		}
		if snap.ExternalID != "" {
			exch.ExternalID = snap.ExternalID
		}
		if snap.Rank != nil {
			exch.Rank = snap.Rank
		}
		exch.LastSourcedAt = snap.SourcedAt
		if err := r.store.SaveExchange(ctx, exch); err != nil {
			return nil, fmt.Errorf("update exchange %q: %w", snap.Slug, err)
		}
	}

	if err := r.reconcileCountries(ctx, exch, snap.Countries); err != nil {
		return nil, err
	}
	if err := r.reconcileFiats(ctx, exch, snap.Fiats); err != nil {
		return nil, err
	}
	if err := r.reconcileMarkets(ctx, exch, markets); err != nil {
		return nil, err
	}
	return exch, nil
}

func (r *exchangeReconciler) country(ctx context.Context, code string) (*storage.Country, error) {
	if c, ok := r.countries[code]; ok {
		return c, nil
	}
	c, err := r.store.EnsureCountry(ctx, code, "")
	if err != nil {
		return nil, fmt.Errorf("ensure country %q: %w", code, err)
	}
	r.countries[code] = c
	return c, nil
}

func (r *exchangeReconciler) reconcileCountries(ctx context.Context, exch *storage.Exchange, codes []string) error {
	wanted := make(map[uint]struct{}, len(codes))
	for _, code := range codes {
		c, err := r.country(ctx, code)
		if err != nil {
			return err
		}
		wanted[c.ID] = struct{}{}
	}

	links, err := r.store.CountryLinks(ctx, exch.ID)
	if err != nil {
		return fmt.Errorf("load country links for %q: %w", exch.Slug, err)
	}
	linked := make(map[uint]struct{}, len(links))
	for i := range links {
		link := &links[i]
		linked[link.CountryID] = struct{}{}

		_, want := wanted[link.CountryID]
		if want == link.IsActive {
			continue
		}
		link.IsActive = want
		if err := r.store.SaveCountryLink(ctx, link); err != nil {
			return fmt.Errorf("save country link for %q: %w", exch.Slug, err)
		}
	}
	for countryID := range wanted {
		if _, ok := linked[countryID]; ok {
			continue
		}
		link := &storage.ExchangeCountry{ExchangeID: exch.ID, CountryID: countryID, IsActive: true}
		if err := r.store.CreateCountryLink(ctx, link); err != nil {
			return fmt.Errorf("create country link for %q: %w", exch.Slug, err)
		}
	}
	return nil
}

// reconcileFiats maintains the exchange's supported-currency links for the
// fiat currencies the listing reports.
func (r *exchangeReconciler) reconcileFiats(ctx context.Context, exch *storage.Exchange, symbols []string) error {
	wanted := make(map[uint]struct{}, len(symbols))
	for _, symbol := range symbols {
		cur, err := r.currencies.reconcile(ctx, CurrencySnapshot{
			Symbol: symbol,
			Kind:   storage.CurrencyKindFiat,
		})
		if err != nil {
			return err
		}
		wanted[cur.ID] = struct{}{}
	}

	links, err := r.store.CurrencyLinks(ctx, exch.ID)
	if err != nil {
		return fmt.Errorf("load currency links for %q: %w", exch.Slug, err)
	}
	linked := make(map[uint]struct{}, len(links))
	for i := range links {
		link := &links[i]
		linked[link.CurrencyID] = struct{}{}

		_, want := wanted[link.CurrencyID]
		if want == link.IsActive {
			continue
		}
		link.IsActive = want
		if err := r.store.SaveCurrencyLink(ctx, link); err != nil {
			return fmt.Errorf("save currency link for %q: %w", exch.Slug, err)
		}
	}
	for currencyID := range wanted {
		if _, ok := linked[currencyID]; ok {
			continue
		}
		link := &storage.ExchangeCurrency{ExchangeID: exch.ID, CurrencyID: currencyID, IsActive: true}
		if err := r.store.CreateCurrencyLink(ctx, link); err != nil {
			return fmt.Errorf("create currency link for %q: %w", exch.Slug, err)
		}
	}
	return nil
}

type marketTriple struct {
	baseID      uint
	quoteID     uint
	feeCategory string
}

// reconcileMarkets upserts the exchange's (base, quote, fee category)
// listings. Pair symbols the store has never seen are created as
// kind-unknown currencies; a later richer snapshot promotes them.
func (r *exchangeReconciler) reconcileMarkets(ctx context.Context, exch *storage.Exchange, markets []MarketSnapshot) error {
	wanted := make(map[marketTriple]struct{}, len(markets))
	for _, m := range markets {
		base, err := r.currencies.reconcile(ctx, CurrencySnapshot{Symbol: m.BaseSymbol})
		if err != nil {
			return err
		}
		quote, err := r.currencies.reconcile(ctx, CurrencySnapshot{Symbol: m.QuoteSymbol})
		if err != nil {
			return err
		}
		wanted[marketTriple{base.ID, quote.ID, m.FeeCategory}] = struct{}{}
	}

	rows, err := r.store.Markets(ctx, exch.ID)
	if err != nil {
		return fmt.Errorf("load markets for %q: %w", exch.Slug, err)
	}
	existing := make(map[marketTriple]struct{}, len(rows))
	for i := range rows {
		row := &rows[i]
		triple := marketTriple{row.BaseID, row.QuoteID, row.FeeCategory}
		existing[triple] = struct{}{}

		_, want := wanted[triple]
		if want == row.IsActive {
			continue
		}
		row.IsActive = want
		if err := r.store.SaveMarket(ctx, row); err != nil {
			return fmt.Errorf("save market for %q: %w", exch.Slug, err)
		}
	}
	for triple := range wanted {
		if _, ok := existing[triple]; ok {
			continue
		}
		row := &storage.ExchangeMarket{
			ExchangeID:  exch.ID,
			BaseID:      triple.baseID,
			QuoteID:     triple.quoteID,
			FeeCategory: triple.feeCategory,
			IsActive:    true,
		}
		if err := r.store.CreateMarket(ctx, row); err != nil {
			return fmt.Errorf("create market for %q: %w", exch.Slug, err)
		}
	}
	return nil
}
