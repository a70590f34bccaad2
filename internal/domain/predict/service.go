// Package predict serves energy output predictions from the active trained
// model, degrading to a fixed irradiance heuristic when no model is usable.
package predict

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pvforge/helios/internal/domain/solar"
	"github.com/pvforge/helios/internal/ml"
)

// defaultFeatures are average conditions used when no weather row matches a
// prediction timestamp: temperature, humidity, wind_speed, cloud_cover,
// solar_irradiance, precipitation.
var defaultFeatures = [6]float64{20.0, 50.0, 5.0, 30.0, 500.0, 0.0}

const (
	confidenceModel     = 0.85
	confidenceHeuristic = 0.5

	// heuristicFactor converts W/m² irradiance to an output estimate when
	// no trained model is available.
	heuristicFactor = 0.5
)

// Service generates on-demand predictions. The active model is loaded
// lazily and cached until Invalidate is called; a missing or unreadable
// artifact leaves the service in heuristic mode rather than failing.
type Service struct {
	models  solar.ModelVersionRepository
	weather solar.WeatherRepository
	store   solar.ObjectStorage
	log     *slog.Logger

	mu      sync.Mutex
	stale   bool
	loaded  bool
	forest  *ml.Forest
	version string
}

// NewService constructs the prediction service. The model is loaded on
// first use.
func NewService(models solar.ModelVersionRepository, weather solar.WeatherRepository, store solar.ObjectStorage, log *slog.Logger) *Service {
	return &Service{
		models:  models,
		weather: weather,
		store:   store,
		log:     log,
		stale:   true,
	}
}

// Invalidate forces a model reload on the next prediction, typically after
// a training run promoted a new version.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = true
}

// ModelLoaded reports whether a trained model is currently serving
// predictions.
func (s *Service) ModelLoaded(ctx context.Context) bool {
	_, _, loaded := s.activeModel(ctx)
	return loaded
}

// PredictHourly generates predictions for the next hours hour offsets from
// now, one record per hour starting at the current time.
func (s *Service) PredictHourly(ctx context.Context, hours int) []solar.PredictionRecord {
	forest, version, loaded := s.activeModel(ctx)

	now := solar.Now()
	records := make([]solar.PredictionRecord, 0, hours)
	for i := 0; i < hours; i++ {
		ts := now.AddHours(i)
		features, weatherID := s.featuresAt(ctx, ts)

		var output float64
		if loaded {
			output = forest.Predict(features)
		} else {
			output = math.Max(0, features[4]*heuristicFactor)
		}
		records = append(records, buildRecord(solar.PredictionHourly, ts, output, version, loaded, features, weatherID))
	}
	return records
}

// PredictDaily generates one prediction per day start for the next days
// days, scaling the hourly-equivalent estimate to a full day.
func (s *Service) PredictDaily(ctx context.Context, days int) []solar.PredictionRecord {
	forest, version, loaded := s.activeModel(ctx)

	today := solar.Now().DayStart()
	records := make([]solar.PredictionRecord, 0, days)
	for i := 0; i < days; i++ {
		ts := today.AddDays(i)
		features, weatherID := s.featuresAt(ctx, ts)

		var output float64
		if loaded {
			output = forest.Predict(features) * 24
		} else {
			output = math.Max(0, features[4]*heuristicFactor) * 24
		}
		records = append(records, buildRecord(solar.PredictionDaily, ts, output, version, loaded, features, weatherID))
	}
	return records
}

// activeModel returns the cached forest, reloading it first when stale.
func (s *Service) activeModel(ctx context.Context) (*ml.Forest, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		s.stale = false
		s.reload(ctx)
	}
	return s.forest, s.version, s.loaded
}

func (s *Service) reload(ctx context.Context) {
	s.loaded = false
	s.forest = nil
	s.version = ""

	mv, found, err := s.models.GetActive(ctx, solar.ModelTypeRegression)
	if err != nil {
		s.log.Warn("active model lookup failed", "error", err)
		return
	}
	if !found {
		s.log.Info("no active model, serving heuristic predictions")
		return
	}

	reader, err := s.store.Get(ctx, mv.FilePath)
	if err != nil {
		if errors.Is(err, solar.ErrObjectNotFound) {
			s.log.Warn("model artifact missing", "version", mv.VersionName, "path", mv.FilePath)
		} else {
			s.log.Warn("model artifact fetch failed", "version", mv.VersionName, "error", err)
		}
		return
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		s.log.Warn("model artifact read failed", "version", mv.VersionName, "error", err)
		return
	}
	forest, err := ml.DecodeForest(data)
	if err != nil {
		s.log.Warn("model artifact decode failed", "version", mv.VersionName, "error", err)
		return
	}

	s.forest = forest
	s.version = mv.VersionName
	s.loaded = true
	s.log.Info("model loaded", "version", mv.VersionName)
}

// featuresAt returns the feature vector for an exact timestamp plus the ID
// of the weather row that supplied it, falling back to average conditions
// per field (and a nil ID) when the row is missing or sparse.
func (s *Service) featuresAt(ctx context.Context, ts solar.Timestamp) ([]float64, *uuid.UUID) {
	features := make([]float64, len(defaultFeatures))
	copy(features, defaultFeatures[:])

	rec, found, err := s.weather.FindAt(ctx, ts)
	if err != nil {
		s.log.Warn("weather lookup failed", "timestamp", ts.String(), "error", err)
		return features, nil
	}
	if !found {
		return features, nil
	}
	fill := func(idx int, v *float64) {
		if v != nil {
			features[idx] = *v
		}
	}
	fill(0, rec.Temperature)
	fill(1, rec.Humidity)
	fill(2, rec.WindSpeed)
	fill(3, rec.CloudCover)
	fill(4, rec.SolarIrradiance)
	fill(5, rec.Precipitation)
	id := rec.ID
	return features, &id
}

func buildRecord(pt solar.PredictionType, ts solar.Timestamp, output float64, version string, loaded bool, features []float64, weatherID *uuid.UUID) solar.PredictionRecord {
	confidence := confidenceHeuristic
	if loaded {
		confidence = confidenceModel
	}
	return solar.PredictionRecord{
		ID:                 uuid.New(),
		PredictionType:     pt,
		Timestamp:          ts,
		PredictedOutputKWH: output,
		ConfidenceScore:    confidence,
		ModelVersion:       version,
		WeatherDataID:      weatherID,
		WeatherFeatures: solar.WeatherFeatures{
			Temperature:     features[0],
			SolarIrradiance: features[4],
			CloudCover:      features[3],
		},
		CreatedAt: time.Now().UTC(),
	}
}
