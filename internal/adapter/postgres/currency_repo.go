package postgres

import (
	"context"
	"errors"
	"fmt"

	"currency-sync-service/internal/entity"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

var (
	psql        = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	ErrNotFound = errors.New("not found")
)

const upsertCurrencySuffix = "ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description, updated_at = EXCLUDED.updated_at"

type CurrencyRepo struct {
	pool   Pool
	logger *logrus.Logger
}

func NewCurrencyRepo(pool Pool, logger *logrus.Logger) *CurrencyRepo {
	return &CurrencyRepo{
		pool:   pool,
		logger: logger,
	}
}

func (r *CurrencyRepo) FindCurrencyByCode(ctx context.Context, code string) (*entity.Currency, error) {
	query, args, err := psql.
		Select("id", "code", "description", "updated_at").
		From("currencies").
		Where(sq.Eq{"code": code}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var currency entity.Currency
	err = r.pool.QueryRow(ctx, query, args...).
		Scan(
			&currency.ID,
			&currency.Code,
			&currency.Description,
			&currency.UpdatedAt,
		)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.WithError(err).WithField("code", code).Error("Failed to query currency")
		return nil, fmt.Errorf("query currency %s: %w", code, err)
	}

	return &currency, nil
}

// InsertCurrency stores a new currency and sets its store-assigned ID.
func (r *CurrencyRepo) InsertCurrency(ctx context.Context, currency *entity.Currency) (int64, error) {
	query, args, err := psql.Insert("currencies").
		Columns("code", "description", "updated_at").
		Values(currency.Code, currency.Description, currency.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert for %s: %w", currency.Code, err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&currency.ID); err != nil {
		r.logger.WithError(err).WithField("code", currency.Code).Error("Failed to insert currency")
		return 0, fmt.Errorf("insert currency %s: %w", currency.Code, err)
	}

	r.logger.WithFields(logrus.Fields{"code": currency.Code, "id": currency.ID}).Debug("Inserted currency")
	return 1, nil
}

func (r *CurrencyRepo) UpdateCurrency(ctx context.Context, currency *entity.Currency) (int64, error) {
	query, args, err := psql.Update("currencies").
		Set("description", currency.Description).
		Set("updated_at", currency.UpdatedAt).
		Where(sq.Eq{"id": currency.ID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update for %s: %w", currency.Code, err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).WithField("code", currency.Code).Error("Failed to update currency")
		return 0, fmt.Errorf("update currency %s: %w", currency.Code, err)
	}

	r.logger.WithFields(logrus.Fields{"code": currency.Code, "id": currency.ID}).Debug("Updated currency")
	return ct.RowsAffected(), nil
}

// UpsertCurrencies inserts or updates all currencies in one statement. Codes
// must be unique within the slice.
func (r *CurrencyRepo) UpsertCurrencies(ctx context.Context, currencies []entity.Currency) (int64, error) {
	if len(currencies) == 0 {
		return 0, nil
	}

	builder := psql.Insert("currencies").Columns("code", "description", "updated_at")
	for _, c := range currencies {
		builder = builder.Values(c.Code, c.Description, c.UpdatedAt)
	}

	query, args, err := builder.Suffix(upsertCurrencySuffix).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build upsert: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Errorf("Failed to upsert %d currencies", len(currencies))
		return 0, fmt.Errorf("upsert currencies: %w", err)
	}

	r.logger.Infof("Upserted %d currencies", ct.RowsAffected())
	return ct.RowsAffected(), nil
}
