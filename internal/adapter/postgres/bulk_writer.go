package postgres

import (
	"context"
	"fmt"

	"currency-sync-service/internal/entity"

	"github.com/sirupsen/logrus"
)

// PostgreSQL caps a statement at 65535 bind parameters.
const defaultBulkChunkSize = 1000

// BulkRateWriter inserts rates with multi-row INSERT statements, overwriting
// the value of rows that already exist for the same key.
type BulkRateWriter struct {
	pool      Pool
	logger    *logrus.Logger
	chunkSize int
}

func NewBulkRateWriter(pool Pool, logger *logrus.Logger) *BulkRateWriter {
	return &BulkRateWriter{
		pool:      pool,
		logger:    logger,
		chunkSize: defaultBulkChunkSize,
	}
}

func (w *BulkRateWriter) Insert(ctx context.Context, rates []entity.CurrencyRate) (int64, error) {
	if len(rates) == 0 {
		return 0, nil
	}

	rates = firstPerKey(rates)

	queries := make([]string, 0, len(rates)/w.chunkSize+1)
	argSets := make([][]any, 0, cap(queries))
	for start := 0; start < len(rates); start += w.chunkSize {
		end := min(start+w.chunkSize, len(rates))
		query, args, err := bulkInsertQuery(rates[start:end])
		if err != nil {
			return 0, err
		}
		queries = append(queries, query)
		argSets = append(argSets, args)
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		w.logger.WithError(err).Error("Failed to begin bulk insert tx")
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	var written int64
	for i, query := range queries {
		ct, err := tx.Exec(ctx, query, argSets[i]...)
		if err != nil {
			w.logger.WithError(err).Errorf("Failed bulk insert chunk %d", i)
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				w.logger.WithError(rbErr).Error("Failed to rollback bulk insert tx")
			}
			return 0, fmt.Errorf("bulk insert chunk %d: %w", i, err)
		}
		written += ct.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		w.logger.WithError(err).Error("Failed to commit bulk insert tx")
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	w.logger.Infof("Bulk wrote %d rates in %d statement(s)", written, len(queries))
	return written, nil
}

func bulkInsertQuery(rates []entity.CurrencyRate) (string, []any, error) {
	builder := psql.Insert("currency_rates").Columns(rateColumns...)
	for _, rate := range rates {
		builder = builder.Values(rate.SourceCurrencyID, rate.CurrencyID, rate.DataSourceID, rate.RateDate, rate.Value)
	}

	query, args, err := builder.
		Suffix("ON CONFLICT " + rateConflictTarget + " DO UPDATE SET value = EXCLUDED.value").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build bulk insert: %w", err)
	}
	return query, args, nil
}

// firstPerKey drops later duplicates of the same key and date, so a batch
// stores the same values as the DO NOTHING insert. One ON CONFLICT DO UPDATE
// statement cannot touch a row twice either.
func firstPerKey(rates []entity.CurrencyRate) []entity.CurrencyRate {
	type rowKey struct {
		entity.RateKey
		date string
	}

	seen := make(map[rowKey]struct{}, len(rates))
	result := make([]entity.CurrencyRate, 0, len(rates))
	for _, rate := range rates {
		key := rowKey{rate.Key(), rate.RateDate.Format("2006-01-02")}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, rate)
	}
	return result
}
