// Package solar holds the telemetry entities shared by ingestion, training
// and prediction, plus the repository contracts their storage implements.
package solar

import (
	"time"

	"github.com/google/uuid"
)

// ModelTypeRegression is the only model family currently trained.
const ModelTypeRegression = "regression"

// PredictionType distinguishes hourly from daily records.
type PredictionType string

const (
	PredictionHourly PredictionType = "hourly"
	PredictionDaily  PredictionType = "daily"
)

// JobStatus tracks training job progress.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// WeatherRecord is one observed or forecast weather sample. Optional numerics
// are pointers at the storage boundary; ingestion always writes concrete
// values (absent or unparseable cells become 0), so nil only appears in rows
// produced by other writers and is treated as missing during training.
type WeatherRecord struct {
	ID              uuid.UUID `json:"id"`
	Timestamp       Timestamp `json:"timestamp"`
	Temperature     *float64  `json:"temperature"`
	Humidity        *float64  `json:"humidity"`
	WindSpeed       *float64  `json:"wind_speed"`
	CloudCover      *float64  `json:"cloud_cover"`
	SolarIrradiance *float64  `json:"solar_irradiance"`
	Precipitation   *float64  `json:"precipitation"`
	IsForecast      bool      `json:"is_forecast"`
	Location        string    `json:"location,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ProductionRecord is one measured energy output sample. EnergyOutputKWH is
// mandatory; the capacity and efficiency columns stay nil when the upload
// omitted them or the cells were not numeric.
type ProductionRecord struct {
	ID               uuid.UUID `json:"id"`
	Timestamp        Timestamp `json:"timestamp"`
	EnergyOutputKWH  float64   `json:"energy_output_kwh"`
	PanelID          string    `json:"panel_id,omitempty"`
	SystemCapacityKW *float64  `json:"system_capacity_kw"`
	Efficiency       *float64  `json:"efficiency"`
	CreatedAt        time.Time `json:"created_at"`
}

// WeatherFeatures is the snapshot stored alongside a prediction.
type WeatherFeatures struct {
	Temperature     float64 `json:"temperature"`
	SolarIrradiance float64 `json:"solar_irradiance"`
	CloudCover      float64 `json:"cloud_cover"`
}

// PredictionRecord is a stored or on-demand energy prediction.
// ActualOutputKWH is backfilled once the matching production sample arrives.
type PredictionRecord struct {
	ID                 uuid.UUID       `json:"id"`
	PredictionType     PredictionType  `json:"prediction_type"`
	Timestamp          Timestamp       `json:"timestamp"`
	PredictedOutputKWH float64         `json:"predicted_output_kwh"`
	ActualOutputKWH    *float64        `json:"actual_output_kwh"`
	ConfidenceScore    float64         `json:"confidence_score"`
	ModelVersion       string          `json:"model_version"`
	WeatherDataID      *uuid.UUID      `json:"weather_data_id"`
	WeatherFeatures    WeatherFeatures `json:"weather_features"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ModelVersion describes one trained artifact. At most one row per model
// type is active at a time.
type ModelVersion struct {
	ID                uuid.UUID  `json:"id"`
	VersionName       string     `json:"version_name"`
	ModelType         string     `json:"model_type"`
	FilePath          string     `json:"file_path"`
	AccuracyScore     float64    `json:"accuracy_score"`
	MSE               float64    `json:"mse"`
	IsActive          bool       `json:"is_active"`
	TrainingDataStart *Timestamp `json:"training_data_start,omitempty"`
	TrainingDataEnd   *Timestamp `json:"training_data_end,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// TrainingJob records one synchronous training run and its outcome.
type TrainingJob struct {
	ID                uuid.UUID  `json:"id"`
	Status            JobStatus  `json:"status"`
	ModelType         string     `json:"model_type"`
	TrainingDataCount int        `json:"training_data_count"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	CreatedBy         *int64     `json:"created_by,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// PanelImage is stored metadata for one uploaded panel photo.
type PanelImage struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"file_path"`
	PanelID    string    `json:"panel_id,omitempty"`
	UploadedBy *int64    `json:"uploaded_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
