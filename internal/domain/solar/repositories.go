package solar

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by ObjectStorage.Get for missing keys, so
// callers can degrade instead of failing.
var ErrObjectNotFound = errors.New("object not found")

// WeatherRepository persists weather samples.
type WeatherRepository interface {
	InsertBatch(ctx context.Context, records []WeatherRecord) (int, error)
	// ListAll returns every sample in ascending timestamp order.
	ListAll(ctx context.Context) ([]WeatherRecord, error)
	// FindAt looks up the sample matching an exact timestamp.
	FindAt(ctx context.Context, ts Timestamp) (WeatherRecord, bool, error)
}

// ProductionRepository persists measured energy output.
type ProductionRepository interface {
	InsertBatch(ctx context.Context, records []ProductionRecord) (int, error)
	ListAll(ctx context.Context) ([]ProductionRecord, error)
	// SumEnergy totals energy_output_kwh across all rows.
	SumEnergy(ctx context.Context) (float64, error)
}

// PredictionRepository persists model output for later retrieval.
type PredictionRepository interface {
	InsertBatch(ctx context.Context, records []PredictionRecord) error
	// ListLatest returns up to limit records of one type, newest first.
	ListLatest(ctx context.Context, pt PredictionType, limit int) ([]PredictionRecord, error)
	// ListRecent returns up to limit records of any type, newest first.
	ListRecent(ctx context.Context, limit int) ([]PredictionRecord, error)
	Count(ctx context.Context) (int64, error)
}

// ModelVersionRepository manages trained model metadata. SetActive must be
// atomic: deactivate every row of the version's model type and insert the new
// row as active, with no observable window where none is active.
type ModelVersionRepository interface {
	GetActive(ctx context.Context, modelType string) (ModelVersion, bool, error)
	SetActive(ctx context.Context, version ModelVersion) error
}

// TrainingJobRepository persists the training state machine.
type TrainingJobRepository interface {
	Create(ctx context.Context, job TrainingJob) error
	Update(ctx context.Context, job TrainingJob) error
	// ListRecent returns up to limit jobs, newest first.
	ListRecent(ctx context.Context, limit int) ([]TrainingJob, error)
}

// PanelImageRepository persists uploaded image metadata.
type PanelImageRepository interface {
	InsertBatch(ctx context.Context, images []PanelImage) error
}

// ObjectStorage abstracts blob storage (S3/minio, local disk, memory). Model
// artifacts and panel images go through it.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (StoredObject, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// StoredObject captures persisted blob metadata.
type StoredObject struct {
	Key      string
	Size     int64
	MimeType string
	ETag     string
}
