package usecase

import "github.com/shopspring/decimal"

type RateResponse struct {
	Source       string          `json:"source"`
	Target       string          `json:"target"`
	Date         string          `json:"date"`
	Value        decimal.Decimal `json:"value"`
	DataSourceID int64           `json:"data_source_id"`
}

type SyncResult struct {
	RunID      string `json:"run_id"`
	SheetDate  string `json:"sheet_date"`
	Currencies int64  `json:"currencies"`
	Rates      int64  `json:"rates"`
	Skipped    int    `json:"skipped"`
}
