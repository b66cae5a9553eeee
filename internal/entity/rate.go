package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderDataSourceID marks a rate whose feed could not be resolved.
const PlaceholderDataSourceID int64 = 0

type CurrencyRate struct {
	ID               int64           `db:"id" json:"id,omitempty"`
	SourceCurrencyID int64           `db:"source_currency_id" json:"source_currency_id"`
	CurrencyID       int64           `db:"currency_id" json:"currency_id"`
	DataSourceID     int64           `db:"data_source_id" json:"data_source_id"`
	RateDate         time.Time       `db:"rate_date" json:"rate_date"`
	Value            decimal.Decimal `db:"value" json:"value"`
}

func (r CurrencyRate) Key() RateKey {
	return RateKey{
		SourceCurrencyID: r.SourceCurrencyID,
		CurrencyID:       r.CurrencyID,
		DataSourceID:     r.DataSourceID,
	}
}

// RateKey groups rates by currency pair and feed.
type RateKey struct {
	SourceCurrencyID int64
	CurrencyID       int64
	DataSourceID     int64
}

// RateObservation is a single time-stamped quote as delivered by a feed.
type RateObservation struct {
	Time   time.Time       `json:"time" binding:"required"`
	Source string          `json:"source" binding:"required"`
	Target string          `json:"target" binding:"required"`
	Value  decimal.Decimal `json:"value"`
	Feed   string          `json:"feed"`
}

// RateDate drops the time of day, keeping the calendar date the timestamp
// carries in its own location. The result is midnight UTC.
func RateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
