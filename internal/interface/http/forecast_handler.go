package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pvforge/helios/internal/domain/forecast"
	"github.com/pvforge/helios/internal/domain/geocode"
	apperrors "github.com/pvforge/helios/pkg/errors"
)

// ForecastHandler serves irradiance forecasts and location search.
type ForecastHandler struct {
	forecastSvc *forecast.Service
	geocodeSvc  *geocode.Service
	logger      *slog.Logger
}

// NewForecastHandler constructs the forecast endpoints.
func NewForecastHandler(forecastSvc *forecast.Service, geocodeSvc *geocode.Service, logger *slog.Logger) *ForecastHandler {
	return &ForecastHandler{
		forecastSvc: forecastSvc,
		geocodeSvc:  geocodeSvc,
		logger:      logger.With("component", "http.forecast"),
	}
}

// SolarForecast proxies the radiation provider for a coordinate pair.
func (h *ForecastHandler) SolarForecast(c *gin.Context) {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "Missing required parameters",
			"both lat and lon query parameters are required", nil))
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "Invalid coordinate format", errMessage(err), err))
		return
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "Invalid coordinate format", errMessage(err), err))
		return
	}

	payload, err := h.forecastSvc.Forecast(c.Request.Context(), lat, lon)
	if err != nil {
		abortWithError(c, forecastError(err))
		return
	}

	c.JSON(http.StatusOK, payload)
}

func forecastError(err error) *HTTPError {
	switch {
	case apperrors.IsCode(err, apperrors.CodeInvalidInput):
		return NewHTTPError(http.StatusBadRequest, "Coordinates out of valid range", apperrors.MessageOf(err), err)
	case apperrors.IsCode(err, apperrors.CodeNotConfigured):
		return NewHTTPError(http.StatusInternalServerError, "Forecast provider not configured", apperrors.MessageOf(err), err)
	case apperrors.IsCode(err, apperrors.CodeUpstreamError):
		return NewHTTPError(http.StatusBadGateway, "Forecast provider request failed", apperrors.MessageOf(err), err)
	case apperrors.IsCode(err, apperrors.CodeUpstreamData):
		return NewHTTPError(http.StatusBadGateway, "Invalid data received from forecast provider", apperrors.MessageOf(err), err)
	default:
		return NewHTTPError(http.StatusInternalServerError, "An unexpected error occurred", errMessage(err), err)
	}
}

// GeocodeSearch resolves a free text place query to coordinates.
func (h *ForecastHandler) GeocodeSearch(c *gin.Context) {
	results, err := h.geocodeSvc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeInvalidInput) {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "Invalid search query", apperrors.MessageOf(err), err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Geocoding failed", errMessage(err), err))
		return
	}
	if results == nil {
		results = []geocode.SearchResult{}
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
