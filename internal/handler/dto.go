package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

type CurrencyRequest struct {
	Code        string `json:"code" binding:"required"`
	Description string `json:"description"`
}

type RateRequest struct {
	Time   time.Time       `json:"time" binding:"required"`
	Source string          `json:"source" binding:"required"`
	Target string          `json:"target" binding:"required"`
	Value  decimal.Decimal `json:"value"`
	Feed   string          `json:"feed"`
}
