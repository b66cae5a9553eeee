package postgres

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"currency-sync-service/internal/entity"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupCurrencyRepo(t *testing.T) (*CurrencyRepo, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewCurrencyRepo(mock, discardLogger()), mock
}

func findCurrencyQuery(t *testing.T, code string) (string, []any) {
	query, args, err := psql.
		Select("id", "code", "description", "updated_at").
		From("currencies").
		Where(squirrel.Eq{"code": code}).
		Limit(1).
		ToSql()
	require.NoError(t, err)
	return query, args
}

func TestFindCurrencyByCode(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupCurrencyRepo(t)

	updated := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args := findCurrencyQuery(t, "USD")

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"id", "code", "description", "updated_at"}).
			AddRow(int64(7), "USD", "US Dollar", updated))

	result, err := repo.FindCurrencyByCode(ctx, "USD")
	require.NoError(t, err)
	assert.Equal(t, &entity.Currency{ID: 7, Code: "USD", Description: "US Dollar", UpdatedAt: updated}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCurrencyByCode_NotFound(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupCurrencyRepo(t)

	query, args := findCurrencyQuery(t, "XXX")
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(args...).
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.FindCurrencyByCode(ctx, "XXX")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCurrencyByCode_Error(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupCurrencyRepo(t)

	query, args := findCurrencyQuery(t, "USD")
	expectedErr := errors.New("database error")
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(args...).
		WillReturnError(expectedErr)

	result, err := repo.FindCurrencyByCode(ctx, "USD")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, expectedErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCurrency(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupCurrencyRepo(t)

	currency := &entity.Currency{Code: "USD", Description: "US Dollar", UpdatedAt: time.Now().UTC()}

	query, args, err := psql.Insert("currencies").
		Columns("code", "description", "updated_at").
		Values(currency.Code, currency.Description, currency.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	affected, err := repo.InsertCurrency(ctx, currency)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Equal(t, int64(42), currency.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCurrency_Error(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupCurrencyRepo(t)

	currency := &entity.Currency{Code: "USD", Description: "US Dollar", UpdatedAt: time.Now().UTC()}

	query, args, err := psql.Insert("currencies").
		Columns("code", "description", "updated_at").
		Values(currency.Code, currency.Description, currency.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	require.NoError(t, err)

	expectedErr := errors.New("unique violation")
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(args...).
		WillReturnError(expectedErr)

	affected, err := repo.InsertCurrency(ctx, currency)
	assert.Zero(t, affected)
	assert.ErrorIs(t, err, expectedErr)
	assert.Zero(t, currency.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCurrency(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupCurrencyRepo(t)

	currency := &entity.Currency{ID: 3, Code: "USD", Description: "US Dollar (updated)", UpdatedAt: time.Now().UTC()}

	query, args, err := psql.Update("currencies").
		Set("description", currency.Description).
		Set("updated_at", currency.UpdatedAt).
		Where(squirrel.Eq{"id": currency.ID}).
		ToSql()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	affected, err := repo.UpdateCurrency(ctx, currency)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCurrencies(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupCurrencyRepo(t)

	now := time.Now().UTC()
	currencies := []entity.Currency{
		{Code: "USD", Description: "US Dollar", UpdatedAt: now},
		{Code: "EUR", Description: "Euro", UpdatedAt: now},
	}

	query, args, err := psql.Insert("currencies").
		Columns("code", "description", "updated_at").
		Values("USD", "US Dollar", now).
		Values("EUR", "Euro", now).
		Suffix(upsertCurrencySuffix).
		ToSql()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	affected, err := repo.UpsertCurrencies(ctx, currencies)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCurrencies_Empty(t *testing.T) {
	repo, mock := setupCurrencyRepo(t)

	affected, err := repo.UpsertCurrencies(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
