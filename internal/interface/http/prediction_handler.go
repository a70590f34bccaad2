package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pvforge/helios/internal/domain/predict"
	"github.com/pvforge/helios/internal/domain/solar"
	"github.com/pvforge/helios/pkg/metrics"
)

// PredictionHandler serves output forecasts, preferring stored predictions
// from the last training run and falling back to on-demand inference.
type PredictionHandler struct {
	predictor   *predict.Service
	predictions solar.PredictionRepository
	logger      *slog.Logger
}

// NewPredictionHandler constructs the prediction endpoints.
func NewPredictionHandler(predictor *predict.Service, predictions solar.PredictionRepository, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{
		predictor:   predictor,
		predictions: predictions,
		logger:      logger.With("component", "http.prediction"),
	}
}

// Hourly returns hour-by-hour output predictions starting now.
func (h *PredictionHandler) Hourly(c *gin.Context) {
	hours, httpErr := intQuery(c, "hours", 24)
	if httpErr != nil {
		abortWithError(c, httpErr)
		return
	}
	h.serve(c, solar.PredictionHourly, hours, h.predictor.PredictHourly)
}

// Daily returns day-by-day output predictions starting today.
func (h *PredictionHandler) Daily(c *gin.Context) {
	days, httpErr := intQuery(c, "days", 7)
	if httpErr != nil {
		abortWithError(c, httpErr)
		return
	}
	h.serve(c, solar.PredictionDaily, days, h.predictor.PredictDaily)
}

func (h *PredictionHandler) serve(c *gin.Context, pt solar.PredictionType, n int, liveFn func(context.Context, int) []solar.PredictionRecord) {
	stored, err := h.predictions.ListLatest(c.Request.Context(), pt, n)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Error retrieving predictions", errMessage(err), err))
		return
	}

	if len(stored) > 0 {
		reverseRecords(stored)
		metrics.PredictionsServed.WithLabelValues("stored").Add(float64(len(stored)))
		c.JSON(http.StatusOK, stored)
		return
	}

	records := liveFn(c.Request.Context(), n)
	metrics.PredictionsServed.WithLabelValues("live").Add(float64(len(records)))
	c.JSON(http.StatusOK, records)
}

// reverseRecords flips newest-first repository order into the chronological
// order clients chart.
func reverseRecords(records []solar.PredictionRecord) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}

func intQuery(c *gin.Context, name string, fallback int) (int, *HTTPError) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, NewHTTPError(http.StatusBadRequest, "Invalid query parameter",
			fmt.Sprintf("%s must be a positive integer", name), err)
	}
	return value, nil
}
