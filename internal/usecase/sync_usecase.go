package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"currency-sync-service/internal/adapter/cbr"
	"currency-sync-service/internal/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	BaseCurrencyCode        = "RUB"
	baseCurrencyDescription = "Российский рубль"
	CBRFeed                 = "cbr"
	dateLayout              = "2006-01-02"
)

var charCodeRegexp = regexp.MustCompile(`^[A-Z]{3}$`)

type SyncUsecase struct {
	currencies CurrencyReconciler
	rates      RateIngestor
	cbrClient  cbr.CbrClient
	logger     *logrus.Logger
	now        func() time.Time
}

func NewSyncUsecase(currencies CurrencyReconciler, rates RateIngestor, cbrClient cbr.CbrClient, logger *logrus.Logger) *SyncUsecase {
	return &SyncUsecase{
		currencies: currencies,
		rates:      rates,
		cbrClient:  cbrClient,
		logger:     logger,
		now:        time.Now,
	}
}

func normalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !charCodeRegexp.MatchString(code) {
		return "", fmt.Errorf("%w: invalid char code %q, expected 3 letters", ErrValidation, code)
	}
	return code, nil
}

func (uc *SyncUsecase) ImportCurrencies(ctx context.Context, infos []entity.CurrencyInfo) (int64, error) {
	if len(infos) == 0 {
		return 0, fmt.Errorf("%w: empty currency batch", ErrValidation)
	}

	normalized := make([]entity.CurrencyInfo, 0, len(infos))
	for i, info := range infos {
		code, err := normalizeCode(info.Code)
		if err != nil {
			return 0, fmt.Errorf("currency #%d: %w", i, err)
		}
		normalized = append(normalized, entity.CurrencyInfo{Code: code, Description: info.Description})
	}

	affected, err := uc.currencies.AddOrUpdate(ctx, normalized)
	if err != nil {
		uc.logger.WithError(err).Errorf("Failed to import currencies, %d rows committed", affected)
		return affected, err
	}

	uc.logger.Infof("Imported %d currencies", affected)
	return affected, nil
}

func (uc *SyncUsecase) ImportRates(ctx context.Context, observations []entity.RateObservation) (int64, error) {
	if len(observations) == 0 {
		return 0, fmt.Errorf("%w: empty rate batch", ErrValidation)
	}

	normalized := make([]entity.RateObservation, 0, len(observations))
	for i, obs := range observations {
		source, err := normalizeCode(obs.Source)
		if err != nil {
			return 0, fmt.Errorf("rate #%d: %w", i, err)
		}
		target, err := normalizeCode(obs.Target)
		if err != nil {
			return 0, fmt.Errorf("rate #%d: %w", i, err)
		}
		if obs.Time.IsZero() {
			return 0, fmt.Errorf("rate #%d: %w: missing time", i, ErrValidation)
		}
		if !obs.Value.IsPositive() {
			return 0, fmt.Errorf("rate #%d: %w: value must be positive", i, ErrValidation)
		}

		obs.Source = source
		obs.Target = target
		obs.Feed = strings.ToLower(strings.TrimSpace(obs.Feed))
		normalized = append(normalized, obs)
	}

	inserted, err := uc.rates.AddRates(ctx, normalized)
	if err != nil {
		uc.logger.WithError(err).Error("Failed to import rates")
		return 0, err
	}

	uc.logger.Infof("Imported %d rates from %d observations", inserted, len(observations))
	return inserted, nil
}

// SyncFromCBR pulls today's CBR sheet, registers every listed currency plus
// the rouble, and stores one rate per currency against RUB.
func (uc *SyncUsecase) SyncFromCBR(ctx context.Context) (*SyncResult, error) {
	runID := uuid.NewString()
	log := uc.logger.WithField("run_id", runID)

	requestDate := uc.now().Format(cbr.RequestDateLayout)
	log.Infof("Fetching CBR rates for %s", requestDate)

	sheet, err := uc.cbrClient.FetchRates(ctx, requestDate)
	if err != nil {
		log.WithError(err).Error("Failed to fetch CBR rates")
		return nil, fmt.Errorf("fetch cbr rates: %w", err)
	}

	sheetDate, err := sheet.SheetDate()
	if err != nil {
		log.WithError(err).Warnf("Bad sheet date %q, using request date", sheet.Date)
		sheetDate = uc.now()
	}

	infos, observations, skipped, err := convertSheet(sheet, sheetDate)
	if err != nil {
		log.WithError(err).Error("CBR sheet has no usable rates")
		return nil, err
	}
	if skipped > 0 {
		log.Warnf("Skipped %d CBR rows with unusable values", skipped)
	}

	currencies, err := uc.currencies.AddOrUpdate(ctx, infos)
	if err != nil {
		log.WithError(err).Error("Failed to reconcile CBR currencies")
		return nil, fmt.Errorf("reconcile cbr currencies: %w", err)
	}

	rates, err := uc.rates.AddRates(ctx, observations)
	if err != nil {
		log.WithError(err).Error("Failed to store CBR rates")
		return nil, fmt.Errorf("store cbr rates: %w", err)
	}

	log.WithFields(logrus.Fields{
		"currencies": currencies,
		"rates":      rates,
		"skipped":    skipped,
	}).Info("CBR sync finished")

	return &SyncResult{
		RunID:      runID,
		SheetDate:  sheetDate.Format(dateLayout),
		Currencies: currencies,
		Rates:      rates,
		Skipped:    skipped,
	}, nil
}

func convertSheet(sheet *cbr.ValCurs, sheetDate time.Time) ([]entity.CurrencyInfo, []entity.RateObservation, int, error) {
	infos := make([]entity.CurrencyInfo, 0, len(sheet.Valutes)+1)
	observations := make([]entity.RateObservation, 0, len(sheet.Valutes))
	var errs error

	for _, v := range sheet.Valutes {
		code := strings.ToUpper(strings.TrimSpace(v.CharCode))
		value, err := v.UnitValue()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", code, err))
			continue
		}
		if !value.IsPositive() {
			errs = multierr.Append(errs, fmt.Errorf("%s: non-positive value %s", code, v.Value))
			continue
		}

		infos = append(infos, entity.CurrencyInfo{Code: code, Description: v.Name})
		observations = append(observations, entity.RateObservation{
			Time:   sheetDate,
			Source: code,
			Target: BaseCurrencyCode,
			Value:  value,
			Feed:   CBRFeed,
		})
	}

	if len(observations) == 0 {
		if errs == nil {
			return nil, nil, 0, fmt.Errorf("cbr sheet %s is empty", sheet.Date)
		}
		return nil, nil, 0, fmt.Errorf("convert cbr sheet %s: %w", sheet.Date, errs)
	}

	infos = append(infos, entity.CurrencyInfo{Code: BaseCurrencyCode, Description: baseCurrencyDescription})
	return infos, observations, len(multierr.Errors(errs)), nil
}

func (uc *SyncUsecase) GetRate(ctx context.Context, source, target string, date time.Time) (*RateResponse, error) {
	source, err := normalizeCode(source)
	if err != nil {
		return nil, err
	}
	target, err = normalizeCode(target)
	if err != nil {
		return nil, err
	}

	today := entity.RateDate(uc.now())
	if date.IsZero() {
		date = today
		uc.logger.Debugf("No date provided, using today: %s", date.Format(dateLayout))
	}
	date = entity.RateDate(date)
	if date.After(today) {
		uc.logger.Warnf("Requested future date: %s", date.Format(dateLayout))
		return nil, fmt.Errorf("%w: cannot fetch rates for future dates", ErrValidation)
	}

	rate, err := uc.rates.GetRate(ctx, source, target, date)
	if err != nil {
		uc.logger.WithError(err).Errorf("Failed to get rate %s-%s for %s", source, target, date.Format(dateLayout))
		return nil, err
	}

	return &RateResponse{
		Source:       source,
		Target:       target,
		Date:         rate.RateDate.Format(dateLayout),
		Value:        rate.Value,
		DataSourceID: rate.DataSourceID,
	}, nil
}
