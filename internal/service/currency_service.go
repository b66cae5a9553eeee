package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"currency-sync-service/internal/adapter/postgres"
	"currency-sync-service/internal/entity"

	"github.com/sirupsen/logrus"
)

// CurrencyService reconciles incoming currency definitions with stored currencies.
type CurrencyService struct {
	repo        postgres.CurrencyRepository
	logger      *logrus.Logger
	batchUpsert bool
	now         func() time.Time
}

type CurrencyOption func(*CurrencyService)

// WithBatchUpsert makes AddOrUpdate write the whole batch with a single
// atomic upsert instead of one statement per definition.
func WithBatchUpsert() CurrencyOption {
	return func(s *CurrencyService) {
		s.batchUpsert = true
	}
}

func NewCurrencyService(repo postgres.CurrencyRepository, logger *logrus.Logger, opts ...CurrencyOption) (*CurrencyService, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: currency repository is nil", ErrInvalidArgument)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is nil", ErrInvalidArgument)
	}

	s := &CurrencyService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddOrUpdate inserts currencies with unseen codes and refreshes the
// description and timestamp of known ones. It returns the number of rows
// affected.
//
// In the default mode each definition is committed on its own. A failure or
// cancellation stops the loop before the next definition; rows already written
// stay, and their count is returned together with the error.
func (s *CurrencyService) AddOrUpdate(ctx context.Context, infos []entity.CurrencyInfo) (int64, error) {
	if len(infos) == 0 {
		return 0, nil
	}

	if s.batchUpsert {
		return s.upsertAll(ctx, infos)
	}

	var affected int64
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			s.logger.WithError(err).Warnf("Currency sync interrupted after %d rows", affected)
			return affected, fmt.Errorf("add or update currencies: %w", err)
		}

		n, err := s.addOrUpdate(ctx, info)
		if err != nil {
			return affected, err
		}
		affected += n
	}

	s.logger.Debugf("Added or updated %d currencies", affected)
	return affected, nil
}

func (s *CurrencyService) addOrUpdate(ctx context.Context, info entity.CurrencyInfo) (int64, error) {
	currency, err := s.repo.FindCurrencyByCode(ctx, info.Code)
	switch {
	case err == nil:
		currency.Description = info.Description
		currency.UpdatedAt = s.now().UTC()

		n, err := s.repo.UpdateCurrency(ctx, currency)
		if err != nil {
			return 0, fmt.Errorf("update currency %s: %w", info.Code, err)
		}
		return n, nil

	case errors.Is(err, postgres.ErrNotFound):
		currency = &entity.Currency{
			Code:        info.Code,
			Description: info.Description,
			UpdatedAt:   s.now().UTC(),
		}

		n, err := s.repo.InsertCurrency(ctx, currency)
		if err != nil {
			return 0, fmt.Errorf("insert currency %s: %w", info.Code, err)
		}
		s.logger.WithFields(logrus.Fields{"code": currency.Code, "id": currency.ID}).Info("New currency registered")
		return n, nil

	default:
		return 0, fmt.Errorf("find currency %s: %w", info.Code, err)
	}
}

func (s *CurrencyService) upsertAll(ctx context.Context, infos []entity.CurrencyInfo) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("add or update currencies: %w", err)
	}

	now := s.now().UTC()

	// a single upsert cannot touch the same code twice; the last definition wins
	position := make(map[string]int, len(infos))
	currencies := make([]entity.Currency, 0, len(infos))
	for _, info := range infos {
		c := entity.Currency{Code: info.Code, Description: info.Description, UpdatedAt: now}
		if i, ok := position[info.Code]; ok {
			currencies[i] = c
			continue
		}
		position[info.Code] = len(currencies)
		currencies = append(currencies, c)
	}

	affected, err := s.repo.UpsertCurrencies(ctx, currencies)
	if err != nil {
		return 0, fmt.Errorf("upsert currencies: %w", err)
	}

	s.logger.Debugf("Upserted %d currencies from %d definitions", affected, len(infos))
	return affected, nil
}
