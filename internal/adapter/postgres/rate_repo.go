package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"currency-sync-service/internal/entity"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

var rateColumns = []string{"source_currency_id", "currency_id", "data_source_id", "rate_date", "value"}

const rateConflictTarget = "(source_currency_id, currency_id, data_source_id, rate_date)"

type RateRepo struct {
	pool   Pool
	logger *logrus.Logger
}

func NewRateRepo(pool Pool, logger *logrus.Logger) *RateRepo {
	return &RateRepo{
		pool:   pool,
		logger: logger,
	}
}

// CurrencyIDs maps every known currency code to its ID.
func (r *RateRepo) CurrencyIDs(ctx context.Context) (map[string]int64, error) {
	return r.codeMap(ctx, "currencies")
}

// DataSourceIDs maps every known feed code to its ID.
func (r *RateRepo) DataSourceIDs(ctx context.Context) (map[string]int64, error) {
	return r.codeMap(ctx, "data_sources")
}

func (r *RateRepo) codeMap(ctx context.Context, table string) (map[string]int64, error) {
	query, args, err := psql.Select("code", "id").From(table).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select from %s: %w", table, err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Errorf("Failed to load %s", table)
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var (
			code string
			id   int64
		)
		if err := rows.Scan(&code, &id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		result[code] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}

	r.logger.Debugf("Loaded %d rows from %s", len(result), table)
	return result, nil
}

// LatestRateDates returns the newest rate date per currency pair and feed.
func (r *RateRepo) LatestRateDates(ctx context.Context) (map[entity.RateKey]time.Time, error) {
	query, args, err := psql.
		Select("source_currency_id", "currency_id", "data_source_id", "MAX(rate_date)").
		From("currency_rates").
		GroupBy("source_currency_id", "currency_id", "data_source_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest rate dates: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to load latest rate dates")
		return nil, fmt.Errorf("query latest rate dates: %w", err)
	}
	defer rows.Close()

	result := make(map[entity.RateKey]time.Time)
	for rows.Next() {
		var (
			key    entity.RateKey
			latest time.Time
		)
		if err := rows.Scan(&key.SourceCurrencyID, &key.CurrencyID, &key.DataSourceID, &latest); err != nil {
			return nil, fmt.Errorf("scan latest rate date: %w", err)
		}
		result[key] = latest
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest rate dates: %w", err)
	}

	return result, nil
}

// InsertRates appends rates inside one transaction. Rows that already exist for
// the same key are left untouched and not counted.
func (r *RateRepo) InsertRates(ctx context.Context, rates []entity.CurrencyRate) (int64, error) {
	if len(rates) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rate := range rates {
		query, args, err := psql.Insert("currency_rates").
			Columns(rateColumns...).
			Values(rate.SourceCurrencyID, rate.CurrencyID, rate.DataSourceID, rate.RateDate, rate.Value).
			Suffix("ON CONFLICT " + rateConflictTarget + " DO NOTHING").
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build insert for rate %d/%d on %s: %w",
				rate.SourceCurrencyID, rate.CurrencyID, rate.RateDate.Format("2006-01-02"), err)
		}
		batch.Queue(query, args...)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Failed to begin transaction for rates")
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	br := tx.SendBatch(ctx, batch)

	var batchErrs error
	var inserted int64
	for i := 0; i < batch.Len(); i++ {
		ct, err := br.Exec()
		if err != nil {
			batchErrs = multierr.Append(batchErrs, err)
			r.logger.WithError(err).Errorf("Failed batch exec for rate %d", i)
		} else {
			inserted += ct.RowsAffected()
		}
	}

	if err := br.Close(); err != nil {
		batchErrs = multierr.Append(batchErrs, err)
		r.logger.WithError(err).Error("Failed to close batch results for rates")
	}

	if batchErrs != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			r.logger.WithError(rbErr).Error("Failed to rollback rates tx")
		}
		return 0, fmt.Errorf("batch exec/close errors for rates: %w", batchErrs)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to commit rates tx")
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	r.logger.Infof("Stored %d of %d rates", inserted, len(rates))
	return inserted, nil
}

// FindRate looks up the rate for a currency pair on a date, from any feed.
func (r *RateRepo) FindRate(ctx context.Context, source, target string, date time.Time) (*entity.CurrencyRate, error) {
	fields := logrus.Fields{"source": source, "target": target, "date": date.Format("2006-01-02")}

	query, args, err := psql.
		Select("r.id", "r.source_currency_id", "r.currency_id", "r.data_source_id", "r.rate_date", "r.value::text").
		From("currency_rates r").
		Join("currencies s ON s.id = r.source_currency_id").
		Join("currencies t ON t.id = r.currency_id").
		Where(sq.Eq{"s.code": source, "t.code": target, "r.rate_date": date}).
		OrderBy("r.id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var (
		rate  entity.CurrencyRate
		value string
	)
	err = r.pool.QueryRow(ctx, query, args...).
		Scan(
			&rate.ID,
			&rate.SourceCurrencyID,
			&rate.CurrencyID,
			&rate.DataSourceID,
			&rate.RateDate,
			&value,
		)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WithFields(fields).Debug("Rate not found in DB")
			return nil, ErrNotFound
		}
		r.logger.WithError(err).WithFields(fields).Error("Failed to query rate")
		return nil, fmt.Errorf("query rate: %w", err)
	}

	if rate.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("parse rate value %q: %w", value, err)
	}

	return &rate, nil
}
