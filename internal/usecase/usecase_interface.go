package usecase

import (
	"context"
	"time"

	"currency-sync-service/internal/entity"
)

type RateUsecase interface {
	ImportCurrencies(ctx context.Context, infos []entity.CurrencyInfo) (int64, error)
	ImportRates(ctx context.Context, observations []entity.RateObservation) (int64, error)
	SyncFromCBR(ctx context.Context) (*SyncResult, error)
	GetRate(ctx context.Context, source, target string, date time.Time) (*RateResponse, error)
}

type CurrencyReconciler interface {
	AddOrUpdate(ctx context.Context, infos []entity.CurrencyInfo) (int64, error)
}

type RateIngestor interface {
	AddRates(ctx context.Context, observations []entity.RateObservation) (int64, error)
	GetRate(ctx context.Context, source, target string, date time.Time) (*entity.CurrencyRate, error)
}
