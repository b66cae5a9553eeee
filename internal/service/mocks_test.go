package service

import (
	"context"
	"time"

	"currency-sync-service/internal/entity"

	"github.com/stretchr/testify/mock"
)

type mockCurrencyRepo struct {
	mock.Mock
}

func (m *mockCurrencyRepo) FindCurrencyByCode(ctx context.Context, code string) (*entity.Currency, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Currency), args.Error(1)
}

func (m *mockCurrencyRepo) InsertCurrency(ctx context.Context, currency *entity.Currency) (int64, error) {
	args := m.Called(ctx, currency)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCurrencyRepo) UpdateCurrency(ctx context.Context, currency *entity.Currency) (int64, error) {
	args := m.Called(ctx, currency)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCurrencyRepo) UpsertCurrencies(ctx context.Context, currencies []entity.Currency) (int64, error) {
	args := m.Called(ctx, currencies)
	return args.Get(0).(int64), args.Error(1)
}

type mockRateRepo struct {
	mock.Mock
}

func (m *mockRateRepo) CurrencyIDs(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *mockRateRepo) DataSourceIDs(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *mockRateRepo) LatestRateDates(ctx context.Context) (map[entity.RateKey]time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entity.RateKey]time.Time), args.Error(1)
}

func (m *mockRateRepo) InsertRates(ctx context.Context, rates []entity.CurrencyRate) (int64, error) {
	args := m.Called(ctx, rates)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRateRepo) FindRate(ctx context.Context, source, target string, date time.Time) (*entity.CurrencyRate, error) {
	args := m.Called(ctx, source, target, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CurrencyRate), args.Error(1)
}

type mockBulkWriter struct {
	mock.Mock
}

func (m *mockBulkWriter) Insert(ctx context.Context, rates []entity.CurrencyRate) (int64, error) {
	args := m.Called(ctx, rates)
	return args.Get(0).(int64), args.Error(1)
}
