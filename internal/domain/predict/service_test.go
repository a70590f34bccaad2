package predict

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pvforge/helios/internal/domain/solar"
	"github.com/pvforge/helios/internal/ml"
)

type stubModels struct {
	getActiveFn func(ctx context.Context, modelType string) (solar.ModelVersion, bool, error)
	calls       int
}

func (s *stubModels) GetActive(ctx context.Context, modelType string) (solar.ModelVersion, bool, error) {
	s.calls++
	if s.getActiveFn == nil {
		return solar.ModelVersion{}, false, nil
	}
	return s.getActiveFn(ctx, modelType)
}

func (s *stubModels) SetActive(context.Context, solar.ModelVersion) error { return nil }

type stubWeather struct {
	findAtFn func(ctx context.Context, ts solar.Timestamp) (solar.WeatherRecord, bool, error)
}

func (s *stubWeather) InsertBatch(context.Context, []solar.WeatherRecord) (int, error) {
	return 0, nil
}

func (s *stubWeather) ListAll(context.Context) ([]solar.WeatherRecord, error) { return nil, nil }

func (s *stubWeather) FindAt(ctx context.Context, ts solar.Timestamp) (solar.WeatherRecord, bool, error) {
	if s.findAtFn == nil {
		return solar.WeatherRecord{}, false, nil
	}
	return s.findAtFn(ctx, ts)
}

type stubStore struct {
	getFn func(ctx context.Context, key string) (io.ReadCloser, error)
}

func (s *stubStore) Put(context.Context, string, []byte, string) (solar.StoredObject, error) {
	return solar.StoredObject{}, nil
}

func (s *stubStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.getFn == nil {
		return nil, solar.ErrObjectNotFound
	}
	return s.getFn(ctx, key)
}

func (s *stubStore) Delete(context.Context, string) error { return nil }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func trainedForestBytes(t *testing.T) []byte {
	t.Helper()
	features := make([][]float64, 0, 60)
	targets := make([]float64, 0, 60)
	for i := 0; i < 60; i++ {
		irr := float64(i * 20)
		features = append(features, []float64{20, 50, 5, 30, irr, 0})
		targets = append(targets, irr*0.5)
	}
	forest, err := ml.FitForest(features, targets, ml.ForestConfig{Trees: 20, MaxDepth: 8, Seed: 7})
	require.NoError(t, err)
	data, err := forest.Encode()
	require.NoError(t, err)
	return data
}

func TestPredictHourlyHeuristicWithoutModel(t *testing.T) {
	svc := NewService(&stubModels{}, &stubWeather{}, &stubStore{}, newTestLogger())

	records := svc.PredictHourly(context.Background(), 3)
	require.Len(t, records, 3)

	for _, rec := range records {
		require.Equal(t, solar.PredictionHourly, rec.PredictionType)
		require.Equal(t, 250.0, rec.PredictedOutputKWH)
		require.Equal(t, 0.5, rec.ConfidenceScore)
		require.Empty(t, rec.ModelVersion)
		require.Equal(t, 20.0, rec.WeatherFeatures.Temperature)
		require.Equal(t, 500.0, rec.WeatherFeatures.SolarIrradiance)
		require.Equal(t, 30.0, rec.WeatherFeatures.CloudCover)
		require.NotEqual(t, uuid.Nil, rec.ID)
	}

	require.WithinDuration(t, time.Now(), records[0].Timestamp.Time, 5*time.Second)
	require.Equal(t, records[0].Timestamp.AddHours(1), records[1].Timestamp)
	require.Equal(t, records[0].Timestamp.AddHours(2), records[2].Timestamp)
}

func TestPredictHourlyUsesTrainedModel(t *testing.T) {
	artifact := trainedForestBytes(t)
	models := &stubModels{
		getActiveFn: func(context.Context, string) (solar.ModelVersion, bool, error) {
			return solar.ModelVersion{VersionName: "model_20250601_120000", FilePath: "models/model_20250601_120000.gob"}, true, nil
		},
	}
	store := &stubStore{
		getFn: func(_ context.Context, key string) (io.ReadCloser, error) {
			require.Equal(t, "models/model_20250601_120000.gob", key)
			return io.NopCloser(bytes.NewReader(artifact)), nil
		},
	}

	svc := NewService(models, &stubWeather{}, store, newTestLogger())
	records := svc.PredictHourly(context.Background(), 2)
	require.Len(t, records, 2)

	for _, rec := range records {
		require.Equal(t, 0.85, rec.ConfidenceScore)
		require.Equal(t, "model_20250601_120000", rec.ModelVersion)
		require.InDelta(t, 250.0, rec.PredictedOutputKWH, 40.0)
	}
	require.True(t, svc.ModelLoaded(context.Background()))
	require.Equal(t, 1, models.calls)
}

func TestPredictFallsBackWhenArtifactMissing(t *testing.T) {
	models := &stubModels{
		getActiveFn: func(context.Context, string) (solar.ModelVersion, bool, error) {
			return solar.ModelVersion{VersionName: "model_x", FilePath: "models/gone.gob"}, true, nil
		},
	}
	svc := NewService(models, &stubWeather{}, &stubStore{}, newTestLogger())

	records := svc.PredictHourly(context.Background(), 1)
	require.Len(t, records, 1)
	require.Equal(t, 0.5, records[0].ConfidenceScore)
	require.False(t, svc.ModelLoaded(context.Background()))
}

func TestPredictFallsBackOnCorruptArtifact(t *testing.T) {
	models := &stubModels{
		getActiveFn: func(context.Context, string) (solar.ModelVersion, bool, error) {
			return solar.ModelVersion{VersionName: "model_y", FilePath: "models/bad.gob"}, true, nil
		},
	}
	store := &stubStore{
		getFn: func(context.Context, string) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte("not a model"))), nil
		},
	}
	svc := NewService(models, &stubWeather{}, store, newTestLogger())

	records := svc.PredictHourly(context.Background(), 1)
	require.Equal(t, 0.5, records[0].ConfidenceScore)
	require.Empty(t, records[0].ModelVersion)
}

func TestFeaturesFillPerFieldDefaults(t *testing.T) {
	irradiance := 800.0
	weatherID := uuid.New()
	weather := &stubWeather{
		findAtFn: func(context.Context, solar.Timestamp) (solar.WeatherRecord, bool, error) {
			return solar.WeatherRecord{ID: weatherID, SolarIrradiance: &irradiance}, true, nil
		},
	}
	svc := NewService(&stubModels{}, weather, &stubStore{}, newTestLogger())

	records := svc.PredictHourly(context.Background(), 1)
	require.Len(t, records, 1)
	require.Equal(t, 400.0, records[0].PredictedOutputKWH)
	require.Equal(t, 20.0, records[0].WeatherFeatures.Temperature)
	require.Equal(t, 800.0, records[0].WeatherFeatures.SolarIrradiance)
	require.Equal(t, 30.0, records[0].WeatherFeatures.CloudCover)
	require.NotNil(t, records[0].WeatherDataID)
	require.Equal(t, weatherID, *records[0].WeatherDataID)
}

func TestPredictionsWithoutWeatherRowCarryNoWeatherID(t *testing.T) {
	svc := NewService(&stubModels{}, &stubWeather{}, &stubStore{}, newTestLogger())

	records := svc.PredictHourly(context.Background(), 1)
	require.Len(t, records, 1)
	require.Nil(t, records[0].WeatherDataID)
	require.Nil(t, records[0].ActualOutputKWH)
}

func TestFeaturesSurviveWeatherLookupError(t *testing.T) {
	weather := &stubWeather{
		findAtFn: func(context.Context, solar.Timestamp) (solar.WeatherRecord, bool, error) {
			return solar.WeatherRecord{}, false, errors.New("connection refused")
		},
	}
	svc := NewService(&stubModels{}, weather, &stubStore{}, newTestLogger())

	records := svc.PredictHourly(context.Background(), 1)
	require.Len(t, records, 1)
	require.Equal(t, 250.0, records[0].PredictedOutputKWH)
}

func TestPredictDailyScalesToFullDay(t *testing.T) {
	svc := NewService(&stubModels{}, &stubWeather{}, &stubStore{}, newTestLogger())

	records := svc.PredictDaily(context.Background(), 3)
	require.Len(t, records, 3)

	for _, rec := range records {
		require.Equal(t, solar.PredictionDaily, rec.PredictionType)
		require.Equal(t, 6000.0, rec.PredictedOutputKWH)
		require.Equal(t, 0, rec.Timestamp.Hour())
		require.Equal(t, 0, rec.Timestamp.Minute())
	}
	require.Equal(t, records[0].Timestamp.AddDays(1), records[1].Timestamp)
}

func TestInvalidateForcesReload(t *testing.T) {
	artifact := trainedForestBytes(t)
	var haveModel bool
	models := &stubModels{
		getActiveFn: func(context.Context, string) (solar.ModelVersion, bool, error) {
			if !haveModel {
				return solar.ModelVersion{}, false, nil
			}
			return solar.ModelVersion{VersionName: "model_v2", FilePath: "models/model_v2.gob"}, true, nil
		},
	}
	store := &stubStore{
		getFn: func(context.Context, string) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(artifact)), nil
		},
	}
	svc := NewService(models, &stubWeather{}, store, newTestLogger())

	records := svc.PredictHourly(context.Background(), 1)
	require.Equal(t, 0.5, records[0].ConfidenceScore)

	haveModel = true
	records = svc.PredictHourly(context.Background(), 1)
	require.Equal(t, 0.5, records[0].ConfidenceScore, "cached miss should not requery")
	require.Equal(t, 1, models.calls)

	svc.Invalidate()
	records = svc.PredictHourly(context.Background(), 1)
	require.Equal(t, 0.85, records[0].ConfidenceScore)
	require.Equal(t, "model_v2", records[0].ModelVersion)
	require.Equal(t, 2, models.calls)
}
