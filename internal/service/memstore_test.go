package service

import (
	"context"
	"time"

	"currency-sync-service/internal/adapter/postgres"
	"currency-sync-service/internal/entity"
)

type rateRow struct {
	entity.RateKey
	date time.Time
}

// memStore mimics the PostgreSQL repositories: unique currency codes, unique
// rate rows per key and date, and the same conflict handling as the SQL.
type memStore struct {
	currencies map[string]entity.Currency
	feeds      map[string]int64
	rates      map[rateRow]entity.CurrencyRate
	nextID     int64
	writes     int

	afterWrite func()
}

func newMemStore() *memStore {
	return &memStore{
		currencies: make(map[string]entity.Currency),
		feeds:      map[string]int64{"unknown": 0, "cbr": 1, "feedA": 2},
		rates:      make(map[rateRow]entity.CurrencyRate),
	}
}

func (m *memStore) wrote() {
	m.writes++
	if m.afterWrite != nil {
		m.afterWrite()
	}
}

func (m *memStore) FindCurrencyByCode(ctx context.Context, code string) (*entity.Currency, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := m.currencies[code]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) InsertCurrency(ctx context.Context, currency *entity.Currency) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.nextID++
	currency.ID = m.nextID
	m.currencies[currency.Code] = *currency
	m.wrote()
	return 1, nil
}

func (m *memStore) UpdateCurrency(ctx context.Context, currency *entity.Currency) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.currencies[currency.Code] = *currency
	m.wrote()
	return 1, nil
}

func (m *memStore) UpsertCurrencies(ctx context.Context, currencies []entity.Currency) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for _, c := range currencies {
		if existing, ok := m.currencies[c.Code]; ok {
			c.ID = existing.ID
		} else {
			m.nextID++
			c.ID = m.nextID
		}
		m.currencies[c.Code] = c
	}
	m.wrote()
	return int64(len(currencies)), nil
}

func (m *memStore) CurrencyIDs(ctx context.Context) (map[string]int64, error) {
	ids := make(map[string]int64, len(m.currencies))
	for code, c := range m.currencies {
		ids[code] = c.ID
	}
	return ids, nil
}

func (m *memStore) DataSourceIDs(ctx context.Context) (map[string]int64, error) {
	return m.feeds, nil
}

func (m *memStore) LatestRateDates(ctx context.Context) (map[entity.RateKey]time.Time, error) {
	latest := make(map[entity.RateKey]time.Time)
	for row := range m.rates {
		if row.date.After(latest[row.RateKey]) {
			latest[row.RateKey] = row.date
		}
	}
	return latest, nil
}

func (m *memStore) InsertRates(ctx context.Context, rates []entity.CurrencyRate) (int64, error) {
	var inserted int64
	for _, r := range rates {
		row := rateRow{r.Key(), r.RateDate}
		if _, ok := m.rates[row]; ok {
			continue
		}
		m.rates[row] = r
		inserted++
	}
	m.wrote()
	return inserted, nil
}

func (m *memStore) FindRate(ctx context.Context, source, target string, date time.Time) (*entity.CurrencyRate, error) {
	s, t := m.currencies[source], m.currencies[target]
	for row, r := range m.rates {
		if row.SourceCurrencyID == s.ID && row.CurrencyID == t.ID && row.date.Equal(date) {
			return &r, nil
		}
	}
	return nil, postgres.ErrNotFound
}

// memBulk is the bulk writer counterpart: the first row per key in a batch
// wins, and it replaces a row already stored.
type memBulk struct {
	store *memStore
}

func (b memBulk) Insert(ctx context.Context, rates []entity.CurrencyRate) (int64, error) {
	seen := make(map[rateRow]bool, len(rates))
	var written int64
	for _, r := range rates {
		row := rateRow{r.Key(), r.RateDate}
		if seen[row] {
			continue
		}
		seen[row] = true
		b.store.rates[row] = r
		written++
	}
	b.store.wrote()
	return written, nil
}

func (m *memStore) storedRates() map[rateRow]entity.CurrencyRate {
	out := make(map[rateRow]entity.CurrencyRate, len(m.rates))
	for k, v := range m.rates {
		out[k] = v
	}
	return out
}
