package entity

import "time"

type Currency struct {
	ID          int64     `db:"id" json:"id,omitempty"`
	Code        string    `db:"code" json:"code"`
	Description string    `db:"description" json:"description"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// CurrencyInfo is an incoming currency definition from a feed or API caller.
type CurrencyInfo struct {
	Code        string `json:"code" binding:"required"`
	Description string `json:"description"`
}
