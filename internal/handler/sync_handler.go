package handler

import (
	"errors"
	"net/http"
	"time"

	"currency-sync-service/internal/entity"
	"currency-sync-service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SyncHandler struct {
	usecase usecase.RateUsecase
	logger  *logrus.Logger
}

func NewSyncHandler(usecase usecase.RateUsecase, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		usecase: usecase,
		logger:  logger,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *SyncHandler) ImportCurrencies(c *gin.Context) {
	var req []CurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Bad currency import body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	infos := make([]entity.CurrencyInfo, 0, len(req))
	for _, r := range req {
		infos = append(infos, entity.CurrencyInfo{Code: r.Code, Description: r.Description})
	}

	affected, err := h.usecase.ImportCurrencies(c.Request.Context(), infos)
	if err != nil {
		h.logger.WithError(err).Errorf("Failed to import %d currencies, %d rows committed", len(infos), affected)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"affected": affected})
}

func (h *SyncHandler) ImportRates(c *gin.Context) {
	var req []RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Bad rate import body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	observations := make([]entity.RateObservation, 0, len(req))
	for _, r := range req {
		observations = append(observations, entity.RateObservation{
			Time:   r.Time,
			Source: r.Source,
			Target: r.Target,
			Value:  r.Value,
			Feed:   r.Feed,
		})
	}

	inserted, err := h.usecase.ImportRates(c.Request.Context(), observations)
	if err != nil {
		h.logger.WithError(err).Errorf("Failed to import %d rates", len(observations))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"inserted": inserted})
}

func (h *SyncHandler) SyncFromCBR(c *gin.Context) {
	result, err := h.usecase.SyncFromCBR(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to fetch and store rates: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Rates successfully updated", "result": result})
}

func (h *SyncHandler) GetRate(c *gin.Context) {
	source := c.Query("source")
	target := c.Query("target")
	dateStr := c.Query("date")

	if source == "" || target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameters 'source' and 'target'"})
		return
	}

	var date time.Time
	if dateStr != "" {
		var err error
		date, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			h.logger.WithError(err).Errorf("Invalid date format: %s", dateStr)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, expected YYYY-MM-DD"})
			return
		}
	}

	result, err := h.usecase.GetRate(c.Request.Context(), source, target, date)
	if err != nil {
		h.logger.WithError(err).Errorf("Failed to get rate for %s-%s, date=%s", source, target, dateStr)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
