package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pvforge/helios/internal/domain/predict"
	"github.com/pvforge/helios/internal/domain/solar"
	"github.com/pvforge/helios/internal/domain/train"
)

const defaultModelType = "regression"

// TrainingHandler runs the training pipeline synchronously and tracks job
// state through the pending, running and terminal transitions.
type TrainingHandler struct {
	trainer   *train.Pipeline
	jobs      solar.TrainingJobRepository
	predictor *predict.Service
	logger    *slog.Logger
}

// NewTrainingHandler constructs the training endpoints.
func NewTrainingHandler(trainer *train.Pipeline, jobs solar.TrainingJobRepository, predictor *predict.Service, logger *slog.Logger) *TrainingHandler {
	return &TrainingHandler{
		trainer:   trainer,
		jobs:      jobs,
		predictor: predictor,
		logger:    logger.With("component", "http.training"),
	}
}

type trainingRequest struct {
	ModelType string `json:"model_type"`
}

// Start trains a new model version and promotes it on success. The request
// body is optional; model_type defaults to regression.
func (h *TrainingHandler) Start(c *gin.Context) {
	req := trainingRequest{ModelType: defaultModelType}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "Invalid training request", errMessage(err), err))
			return
		}
		if req.ModelType == "" {
			req.ModelType = defaultModelType
		}
	}

	job := solar.TrainingJob{
		ID:        uuid.New(),
		Status:    solar.JobStatusPending,
		ModelType: req.ModelType,
		CreatedBy: uploaderID(c),
	}
	if err := h.jobs.Create(c.Request.Context(), job); err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Training failed",
			"could not record training job", err))
		return
	}

	started := time.Now().UTC()
	job.Status = solar.JobStatusRunning
	job.StartedAt = &started
	if err := h.jobs.Update(c.Request.Context(), job); err != nil {
		h.logger.Warn("training job update failed", "job_id", job.ID, "status", job.Status, "error", err)
	}

	result, err := h.trainer.Train(c.Request.Context(), req.ModelType)
	completed := time.Now().UTC()
	job.CompletedAt = &completed
	if err != nil {
		msg := errMessage(err)
		job.Status = solar.JobStatusFailed
		job.ErrorMessage = &msg
		if updateErr := h.jobs.Update(c.Request.Context(), job); updateErr != nil {
			h.logger.Warn("training job update failed", "job_id", job.ID, "status", job.Status, "error", updateErr)
		}
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Training failed", msg, err))
		return
	}

	job.Status = solar.JobStatusCompleted
	job.TrainingDataCount = result.TrainingSamples
	if updateErr := h.jobs.Update(c.Request.Context(), job); updateErr != nil {
		h.logger.Warn("training job update failed", "job_id", job.ID, "status", job.Status, "error", updateErr)
	}

	h.predictor.Invalidate()
	h.logger.Info("training run completed", "job_id", job.ID, "version", result.VersionName, "samples", result.TrainingSamples)

	c.JSON(http.StatusOK, gin.H{
		"message": "Training completed",
		"job_id":  job.ID,
		"results": result,
	})
}

// Status lists the ten most recent training jobs, newest first.
func (h *TrainingHandler) Status(c *gin.Context) {
	jobs, err := h.jobs.ListRecent(c.Request.Context(), 10)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "Error retrieving training status", errMessage(err), err))
		return
	}
	if jobs == nil {
		jobs = []solar.TrainingJob{}
	}
	c.JSON(http.StatusOK, jobs)
}
