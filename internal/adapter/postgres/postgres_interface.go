package postgres

import (
	"context"
	"time"

	"currency-sync-service/internal/entity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type CurrencyRepository interface {
	FindCurrencyByCode(ctx context.Context, code string) (*entity.Currency, error)
	InsertCurrency(ctx context.Context, currency *entity.Currency) (int64, error)
	UpdateCurrency(ctx context.Context, currency *entity.Currency) (int64, error)
	UpsertCurrencies(ctx context.Context, currencies []entity.Currency) (int64, error)
}

type RateRepository interface {
	CurrencyIDs(ctx context.Context) (map[string]int64, error)
	DataSourceIDs(ctx context.Context) (map[string]int64, error)
	LatestRateDates(ctx context.Context) (map[entity.RateKey]time.Time, error)
	InsertRates(ctx context.Context, rates []entity.CurrencyRate) (int64, error)
	FindRate(ctx context.Context, source, target string, date time.Time) (*entity.CurrencyRate, error)
}

// BulkWriter writes a whole batch of rates in as few statements as possible,
// replacing rows that already exist for the same key.
type BulkWriter interface {
	Insert(ctx context.Context, rates []entity.CurrencyRate) (int64, error)
}

type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}
