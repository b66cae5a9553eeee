package cbr

import "context"

// CbrClient fetches the daily rate sheet; date uses RequestDateLayout.
type CbrClient interface {
	FetchRates(ctx context.Context, date string) (*ValCurs, error)
}

var _ CbrClient = (*Client)(nil)
