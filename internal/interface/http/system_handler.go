package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pvforge/helios/internal/domain/predict"
	"github.com/pvforge/helios/internal/domain/solar"
)

// Pinger reports database connectivity. A nil Pinger means storage is
// in-process and always reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the dashboard aggregate and the health probe.
type SystemHandler struct {
	predictions solar.PredictionRepository
	production  solar.ProductionRepository
	models      solar.ModelVersionRepository
	predictor   *predict.Service
	db          Pinger
	logger      *slog.Logger
}

// NewSystemHandler constructs the dashboard and health endpoints.
func NewSystemHandler(
	predictions solar.PredictionRepository,
	production solar.ProductionRepository,
	models solar.ModelVersionRepository,
	predictor *predict.Service,
	db Pinger,
	logger *slog.Logger,
) *SystemHandler {
	return &SystemHandler{
		predictions: predictions,
		production:  production,
		models:      models,
		predictor:   predictor,
		db:          db,
		logger:      logger.With("component", "http.system"),
	}
}

// DashboardStats aggregates totals and recent activity for the frontend
// landing page.
func (h *SystemHandler) DashboardStats(c *gin.Context) {
	ctx := c.Request.Context()

	totalPredictions, err := h.predictions.Count(ctx)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Error loading dashboard", errMessage(err), err))
		return
	}
	totalProduction, err := h.production.SumEnergy(ctx)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Error loading dashboard", errMessage(err), err))
		return
	}
	active, ok, err := h.models.GetActive(ctx, defaultModelType)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Error loading dashboard", errMessage(err), err))
		return
	}
	recent, err := h.predictions.ListRecent(ctx, 10)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Error loading dashboard", errMessage(err), err))
		return
	}

	var activeModel *solar.ModelVersion
	if ok {
		activeModel = &active
	}
	if recent == nil {
		recent = []solar.PredictionRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_predictions":    totalPredictions,
		"total_production_kwh": totalProduction,
		"active_model":         activeModel,
		"recent_predictions":   recent,
	})
}

// HealthStatus reports database and model availability.
func (h *SystemHandler) HealthStatus(c *gin.Context) {
	database := "healthy"
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			h.logger.Warn("database ping failed", "error", err)
			database = "unhealthy"
		}
	}

	model := "not_loaded"
	if h.predictor.ModelLoaded(c.Request.Context()) {
		model = "available"
	}

	c.JSON(http.StatusOK, gin.H{
		"database":  database,
		"model":     model,
		"timestamp": solar.Now(),
	})
}
