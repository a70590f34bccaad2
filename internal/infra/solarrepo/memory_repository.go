package solarrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pvforge/helios/internal/domain/solar"
)

// MemoryWeatherRepository keeps weather samples in memory for tests/dev.
type MemoryWeatherRepository struct {
	mu      sync.RWMutex
	records []solar.WeatherRecord
	byTime  map[string]int
}

// NewMemoryWeatherRepository constructs the repository.
func NewMemoryWeatherRepository() *MemoryWeatherRepository {
	return &MemoryWeatherRepository{byTime: make(map[string]int)}
}

func (r *MemoryWeatherRepository) InsertBatch(_ context.Context, records []solar.WeatherRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		key := rec.Timestamp.String()
		if _, exists := r.byTime[key]; !exists {
			r.byTime[key] = len(r.records)
		}
		r.records = append(r.records, rec)
	}
	return len(records), nil
}

func (r *MemoryWeatherRepository) ListAll(_ context.Context) ([]solar.WeatherRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]solar.WeatherRecord, len(r.records))
	copy(out, r.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp.Time)
	})
	return out, nil
}

func (r *MemoryWeatherRepository) FindAt(_ context.Context, ts solar.Timestamp) (solar.WeatherRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byTime[ts.String()]
	if !ok {
		return solar.WeatherRecord{}, false, nil
	}
	return r.records[idx], true, nil
}

var _ solar.WeatherRepository = (*MemoryWeatherRepository)(nil)

// MemoryProductionRepository keeps production samples in memory.
type MemoryProductionRepository struct {
	mu      sync.RWMutex
	records []solar.ProductionRecord
}

// NewMemoryProductionRepository constructs the repository.
func NewMemoryProductionRepository() *MemoryProductionRepository {
	return &MemoryProductionRepository{}
}

func (r *MemoryProductionRepository) InsertBatch(_ context.Context, records []solar.ProductionRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		r.records = append(r.records, rec)
	}
	return len(records), nil
}

func (r *MemoryProductionRepository) ListAll(_ context.Context) ([]solar.ProductionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]solar.ProductionRecord, len(r.records))
	copy(out, r.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp.Time)
	})
	return out, nil
}

func (r *MemoryProductionRepository) SumEnergy(_ context.Context) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total float64
	for _, rec := range r.records {
		total += rec.EnergyOutputKWH
	}
	return total, nil
}

var _ solar.ProductionRepository = (*MemoryProductionRepository)(nil)

// MemoryPredictionRepository keeps predictions in memory.
type MemoryPredictionRepository struct {
	mu      sync.RWMutex
	records []solar.PredictionRecord
}

// NewMemoryPredictionRepository constructs the repository.
func NewMemoryPredictionRepository() *MemoryPredictionRepository {
	return &MemoryPredictionRepository{}
}

func (r *MemoryPredictionRepository) InsertBatch(_ context.Context, records []solar.PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		r.records = append(r.records, rec)
	}
	return nil
}

func (r *MemoryPredictionRepository) ListLatest(_ context.Context, pt solar.PredictionType, limit int) ([]solar.PredictionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []solar.PredictionRecord
	for _, rec := range r.records {
		if rec.PredictionType == pt {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].Timestamp.Before(out[i].Timestamp.Time)
	})
	return clipLimit(out, limit), nil
}

func (r *MemoryPredictionRepository) ListRecent(_ context.Context, limit int) ([]solar.PredictionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]solar.PredictionRecord, len(r.records))
	copy(out, r.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].CreatedAt.Before(out[i].CreatedAt)
	})
	return clipLimit(out, limit), nil
}

func (r *MemoryPredictionRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.records)), nil
}

var _ solar.PredictionRepository = (*MemoryPredictionRepository)(nil)

// MemoryModelVersionRepository keeps model metadata in memory.
type MemoryModelVersionRepository struct {
	mu       sync.RWMutex
	versions []solar.ModelVersion
}

// NewMemoryModelVersionRepository constructs the repository.
func NewMemoryModelVersionRepository() *MemoryModelVersionRepository {
	return &MemoryModelVersionRepository{}
}

func (r *MemoryModelVersionRepository) GetActive(_ context.Context, modelType string) (solar.ModelVersion, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.versions) - 1; i >= 0; i-- {
		mv := r.versions[i]
		if mv.ModelType == modelType && mv.IsActive {
			return mv, true, nil
		}
	}
	return solar.ModelVersion{}, false, nil
}

// SetActive demotes prior versions and appends the new one under a single
// lock, so readers never observe a moment without an active version.
func (r *MemoryModelVersionRepository) SetActive(_ context.Context, version solar.ModelVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.versions {
		if r.versions[i].ModelType == version.ModelType {
			r.versions[i].IsActive = false
		}
	}
	version.IsActive = true
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}
	r.versions = append(r.versions, version)
	return nil
}

var _ solar.ModelVersionRepository = (*MemoryModelVersionRepository)(nil)

// MemoryTrainingJobRepository keeps training jobs in memory.
type MemoryTrainingJobRepository struct {
	mu    sync.RWMutex
	jobs  map[uuid.UUID]solar.TrainingJob
	order []uuid.UUID
}

// NewMemoryTrainingJobRepository constructs the repository.
func NewMemoryTrainingJobRepository() *MemoryTrainingJobRepository {
	return &MemoryTrainingJobRepository{jobs: make(map[uuid.UUID]solar.TrainingJob)}
}

func (r *MemoryTrainingJobRepository) Create(_ context.Context, job solar.TrainingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	r.jobs[job.ID] = job
	r.order = append(r.order, job.ID)
	return nil
}

func (r *MemoryTrainingJobRepository) Update(_ context.Context, job solar.TrainingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.jobs[job.ID]
	if !ok {
		return nil
	}
	job.CreatedAt = existing.CreatedAt
	r.jobs[job.ID] = job
	return nil
}

func (r *MemoryTrainingJobRepository) ListRecent(_ context.Context, limit int) ([]solar.TrainingJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]solar.TrainingJob, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.jobs[r.order[i]])
	}
	return clipLimit(out, limit), nil
}

var _ solar.TrainingJobRepository = (*MemoryTrainingJobRepository)(nil)

// MemoryPanelImageRepository keeps image metadata in memory.
type MemoryPanelImageRepository struct {
	mu     sync.RWMutex
	images []solar.PanelImage
}

// NewMemoryPanelImageRepository constructs the repository.
func NewMemoryPanelImageRepository() *MemoryPanelImageRepository {
	return &MemoryPanelImageRepository{}
}

func (r *MemoryPanelImageRepository) InsertBatch(_ context.Context, images []solar.PanelImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images = append(r.images, images...)
	return nil
}

// All returns stored metadata in insertion order.
func (r *MemoryPanelImageRepository) All() []solar.PanelImage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]solar.PanelImage, len(r.images))
	copy(out, r.images)
	return out
}

var _ solar.PanelImageRepository = (*MemoryPanelImageRepository)(nil)

func clipLimit[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
