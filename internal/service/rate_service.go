package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"currency-sync-service/internal/adapter/postgres"
	"currency-sync-service/internal/entity"

	"github.com/sirupsen/logrus"
)

// RateService ingests exchange-rate observations.
type RateService struct {
	repo      postgres.RateRepository
	bulk      postgres.BulkWriter
	logger    *logrus.Logger
	skipStale bool
}

type RateOption func(*RateService)

// WithStaleFilter drops observations that are not newer than the latest rate
// already stored for the same currency pair and feed.
func WithStaleFilter() RateOption {
	return func(s *RateService) {
		s.skipStale = true
	}
}

// NewRateService builds the ingestor. bulk may be nil, in which case rates are
// written through the repository's transactional insert.
func NewRateService(repo postgres.RateRepository, bulk postgres.BulkWriter, logger *logrus.Logger, opts ...RateOption) (*RateService, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: rate repository is nil", ErrInvalidArgument)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is nil", ErrInvalidArgument)
	}

	s := &RateService{
		repo:   repo,
		bulk:   bulk,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type ingestStats struct {
	unknownPair int
	unknownFeed int
	stale       int
}

// AddRates maps observations onto stored currencies and writes them. Pairs
// with an unknown currency code are logged and skipped. The returned count is
// rows inserted by the standard path, or rows inserted or replaced by the bulk
// writer.
func (s *RateService) AddRates(ctx context.Context, observations []entity.RateObservation) (int64, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	currencyIDs, err := s.repo.CurrencyIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load currencies: %w", err)
	}

	latest, err := s.repo.LatestRateDates(ctx)
	if err != nil {
		return 0, fmt.Errorf("load latest rate dates: %w", err)
	}

	feedIDs, err := s.repo.DataSourceIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load data sources: %w", err)
	}

	rates, stats := s.mapObservations(observations, currencyIDs, feedIDs, latest)

	s.logger.WithFields(logrus.Fields{
		"observations": len(observations),
		"mapped":       len(rates),
		"unknown_pair": stats.unknownPair,
		"unknown_feed": stats.unknownFeed,
		"stale":        stats.stale,
	}).Info("Mapped rate observations")

	if len(rates) == 0 {
		s.logger.Debug("Inserted 0 items.")
		return 0, nil
	}

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("add rates: %w", err)
	}

	var count int64
	if s.bulk == nil {
		count, err = s.repo.InsertRates(ctx, rates)
	} else {
		count, err = s.bulk.Insert(ctx, rates)
	}
	if err != nil {
		return 0, fmt.Errorf("store rates: %w", err)
	}

	s.logger.Debugf("Inserted %d items.", count)
	return count, nil
}

func (s *RateService) mapObservations(
	observations []entity.RateObservation,
	currencyIDs map[string]int64,
	feedIDs map[string]int64,
	latest map[entity.RateKey]time.Time,
) ([]entity.CurrencyRate, ingestStats) {
	var stats ingestStats
	warnedFeeds := make(map[string]bool)
	rates := make([]entity.CurrencyRate, 0, len(observations))

	for _, obs := range observations {
		sourceID, sourceOK := currencyIDs[obs.Source]
		targetID, targetOK := currencyIDs[obs.Target]
		if !sourceOK || !targetOK {
			s.logger.Warnf("Unknown currency pair: %s-%s", obs.Source, obs.Target)
			stats.unknownPair++
			continue
		}

		feedID, ok := feedIDs[obs.Feed]
		if !ok {
			feedID = entity.PlaceholderDataSourceID
			stats.unknownFeed++
			if !warnedFeeds[obs.Feed] {
				warnedFeeds[obs.Feed] = true
				s.logger.Warnf("Unknown data source %q, storing rates under placeholder id %d", obs.Feed, feedID)
			}
		}

		rate := entity.CurrencyRate{
			SourceCurrencyID: sourceID,
			CurrencyID:       targetID,
			DataSourceID:     feedID,
			RateDate:         entity.RateDate(obs.Time),
			Value:            obs.Value,
		}

		if s.skipStale {
			if last, ok := latest[rate.Key()]; ok && !rate.RateDate.After(last) {
				s.logger.Debugf("Skipping stale rate %s-%s on %s, latest stored %s",
					obs.Source, obs.Target, rate.RateDate.Format("2006-01-02"), last.Format("2006-01-02"))
				stats.stale++
				continue
			}
		}

		rates = append(rates, rate)
	}

	return rates, stats
}

// GetRate returns the stored rate for the pair on the calendar date of date.
func (s *RateService) GetRate(ctx context.Context, source, target string, date time.Time) (*entity.CurrencyRate, error) {
	source = strings.ToUpper(source)
	target = strings.ToUpper(target)

	rate, err := s.repo.FindRate(ctx, source, target, entity.RateDate(date))
	if err != nil {
		return nil, fmt.Errorf("get rate %s-%s: %w", source, target, err)
	}
	return rate, nil
}
