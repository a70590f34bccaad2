package train

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pvforge/helios/internal/domain/solar"
	"github.com/pvforge/helios/internal/ml"
)

type fakeWeather struct {
	rows []solar.WeatherRecord
	err  error
}

func (f *fakeWeather) InsertBatch(context.Context, []solar.WeatherRecord) (int, error) {
	return 0, nil
}

func (f *fakeWeather) ListAll(context.Context) ([]solar.WeatherRecord, error) {
	return f.rows, f.err
}

func (f *fakeWeather) FindAt(context.Context, solar.Timestamp) (solar.WeatherRecord, bool, error) {
	return solar.WeatherRecord{}, false, nil
}

type fakeProduction struct {
	rows []solar.ProductionRecord
}

func (f *fakeProduction) InsertBatch(context.Context, []solar.ProductionRecord) (int, error) {
	return 0, nil
}

func (f *fakeProduction) ListAll(context.Context) ([]solar.ProductionRecord, error) {
	return f.rows, nil
}

func (f *fakeProduction) SumEnergy(context.Context) (float64, error) { return 0, nil }

type fakeModels struct {
	active      *solar.ModelVersion
	setActiveFn func(solar.ModelVersion) error
}

func (f *fakeModels) GetActive(context.Context, string) (solar.ModelVersion, bool, error) {
	if f.active == nil {
		return solar.ModelVersion{}, false, nil
	}
	return *f.active, true, nil
}

func (f *fakeModels) SetActive(_ context.Context, mv solar.ModelVersion) error {
	if f.setActiveFn != nil {
		if err := f.setActiveFn(mv); err != nil {
			return err
		}
	}
	mv.IsActive = true
	f.active = &mv
	return nil
}

type fakeStore struct {
	objects map[string][]byte
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(_ context.Context, key string, data []byte, mimeType string) (solar.StoredObject, error) {
	if f.putErr != nil {
		return solar.StoredObject{}, f.putErr
	}
	f.objects[key] = data
	return solar.StoredObject{Key: key, Size: int64(len(data)), MimeType: mimeType}, nil
}

func (f *fakeStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, solar.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) Delete(context.Context, string) error { return nil }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ts(t *testing.T, value string) solar.Timestamp {
	t.Helper()
	parsed, err := solar.ParseTimestamp(value)
	require.NoError(t, err)
	return parsed
}

func ptr(v float64) *float64 { return &v }

var versionPattern = regexp.MustCompile(`^model_\d{8}_\d{6}$`)

func TestTrainSynthesizesWhenNoData(t *testing.T) {
	models := &fakeModels{}
	store := newFakeStore()
	pipeline := NewPipeline(&fakeWeather{}, &fakeProduction{}, models, store, newTestLogger())

	result, err := pipeline.Train(context.Background(), solar.ModelTypeRegression)
	require.NoError(t, err)

	require.Equal(t, 800, result.TrainingSamples)
	require.Equal(t, 200, result.TestSamples)
	require.Regexp(t, versionPattern, result.VersionName)
	require.Equal(t, "models/"+result.VersionName+".gob", result.ModelPath)
	require.Greater(t, result.R2Score, 0.5)
	require.Greater(t, result.MSE, 0.0)

	require.NotNil(t, models.active)
	require.Equal(t, result.VersionName, models.active.VersionName)
	require.Equal(t, result.R2Score, models.active.AccuracyScore)
	require.Nil(t, models.active.TrainingDataStart)
	require.Nil(t, models.active.TrainingDataEnd)

	artifact, ok := store.objects[result.ModelPath]
	require.True(t, ok)
	forest, err := ml.DecodeForest(artifact)
	require.NoError(t, err)
	require.Equal(t, 6, forest.NumFeatures)
}

func TestTrainUsesJoinedHistory(t *testing.T) {
	var weatherRows []solar.WeatherRecord
	var productionRows []solar.ProductionRecord
	hours := []string{"08", "09", "10", "11", "12", "13", "14", "15", "16", "17"}
	for i, h := range hours {
		irr := float64(100 * (i + 1))
		weatherRows = append(weatherRows, solar.WeatherRecord{
			ID:              uuid.New(),
			Timestamp:       ts(t, "2025-06-01T"+h+":15:00"),
			Temperature:     ptr(20),
			Humidity:        ptr(50),
			WindSpeed:       ptr(5),
			CloudCover:      ptr(30),
			SolarIrradiance: ptr(irr),
			Precipitation:   ptr(0),
		})
		productionRows = append(productionRows, solar.ProductionRecord{
			ID:              uuid.New(),
			Timestamp:       ts(t, "2025-06-01T"+h+":45:00"),
			EnergyOutputKWH: irr * 0.5,
		})
	}
	// No weather partner for this row, so it drops out of the join.
	productionRows = append(productionRows, solar.ProductionRecord{
		ID:              uuid.New(),
		Timestamp:       ts(t, "2025-06-02T08:00:00"),
		EnergyOutputKWH: 999,
	})

	models := &fakeModels{}
	store := newFakeStore()
	pipeline := NewPipeline(&fakeWeather{rows: weatherRows}, &fakeProduction{rows: productionRows}, models, store, newTestLogger())

	result, err := pipeline.Train(context.Background(), solar.ModelTypeRegression)
	require.NoError(t, err)

	require.Equal(t, 8, result.TrainingSamples)
	require.Equal(t, 2, result.TestSamples)

	require.NotNil(t, models.active.TrainingDataStart)
	require.NotNil(t, models.active.TrainingDataEnd)
	require.Equal(t, "2025-06-01T08:00:00", models.active.TrainingDataStart.String())
	require.Equal(t, "2025-06-01T17:00:00", models.active.TrainingDataEnd.String())
}

func TestTrainingDataFirstRowPerHourWins(t *testing.T) {
	weatherRows := []solar.WeatherRecord{
		{ID: uuid.New(), Timestamp: ts(t, "2025-06-01T10:05:00"), SolarIrradiance: ptr(600)},
		{ID: uuid.New(), Timestamp: ts(t, "2025-06-01T10:40:00"), SolarIrradiance: ptr(100)},
	}
	productionRows := []solar.ProductionRecord{
		{ID: uuid.New(), Timestamp: ts(t, "2025-06-01T10:30:00"), EnergyOutputKWH: 3.0},
	}
	pipeline := NewPipeline(&fakeWeather{rows: weatherRows}, &fakeProduction{rows: productionRows}, &fakeModels{}, newFakeStore(), newTestLogger())

	features, targets, start, end := pipeline.trainingData(context.Background())
	require.Len(t, features, 1)
	require.Equal(t, []float64{3.0}, targets)
	require.Equal(t, 600.0, features[0][4])
	require.True(t, math.IsNaN(features[0][0]), "missing temperature should mark as NaN")
	require.Equal(t, "2025-06-01T10:00:00", start.String())
	require.Equal(t, "2025-06-01T10:00:00", end.String())
}

func TestTrainingDataDegradesOnFetchError(t *testing.T) {
	pipeline := NewPipeline(&fakeWeather{err: errors.New("connection refused")}, &fakeProduction{}, &fakeModels{}, newFakeStore(), newTestLogger())

	features, targets, start, end := pipeline.trainingData(context.Background())
	require.Nil(t, features)
	require.Nil(t, targets)
	require.Nil(t, start)
	require.Nil(t, end)
}

func TestImputeMediansFillsMissing(t *testing.T) {
	features := [][]float64{
		{1, math.NaN(), 10, 0, 100, math.NaN()},
		{math.NaN(), math.NaN(), 20, 0, 200, math.NaN()},
		{3, math.NaN(), 30, 0, 300, math.NaN()},
	}
	imputeMedians(features)

	require.Equal(t, 1.0, features[1][0], "median of observed column values")
	for _, row := range features {
		require.Equal(t, 0.0, row[1], "all-missing column imputes to zero")
		require.Equal(t, 0.0, row[5])
		for _, v := range row {
			require.False(t, math.IsNaN(v))
		}
	}
}

func TestSplitIsDeterministicAndComplete(t *testing.T) {
	features := make([][]float64, 10)
	targets := make([]float64, 10)
	for i := range features {
		features[i] = []float64{float64(i)}
		targets[i] = float64(i)
	}

	trainX1, trainY1, testX1, testY1 := split(features, targets)
	trainX2, _, testX2, _ := split(features, targets)

	require.Len(t, testX1, 2)
	require.Len(t, trainX1, 8)
	require.Equal(t, trainX1, trainX2)
	require.Equal(t, testX1, testX2)

	seen := make(map[float64]bool)
	for _, y := range append(append([]float64{}, trainY1...), testY1...) {
		seen[y] = true
	}
	require.Len(t, seen, 10)
}

func TestEvaluateMetrics(t *testing.T) {
	features := make([][]float64, 50)
	targets := make([]float64, 50)
	for i := range features {
		features[i] = []float64{20, 50, 5, 30, float64(i * 10), 0}
		targets[i] = float64(i * 10 / 2)
	}
	forest, err := ml.FitForest(features, targets, ml.ForestConfig{Trees: 30, MaxDepth: 10, Seed: 1})
	require.NoError(t, err)

	mse, mae, r2 := evaluate(forest, features, targets)
	require.Greater(t, r2, 0.8)
	require.GreaterOrEqual(t, mse, 0.0)
	require.GreaterOrEqual(t, mae, 0.0)
	require.LessOrEqual(t, mae*mae, mse+1e-9)
}

func TestTrainSurfacesStorageFailure(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("bucket unavailable")
	pipeline := NewPipeline(&fakeWeather{}, &fakeProduction{}, &fakeModels{}, store, newTestLogger())

	_, err := pipeline.Train(context.Background(), solar.ModelTypeRegression)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to store model artifact")
}

func TestTrainSurfacesPromotionFailure(t *testing.T) {
	models := &fakeModels{
		setActiveFn: func(solar.ModelVersion) error { return errors.New("deadlock detected") },
	}
	pipeline := NewPipeline(&fakeWeather{}, &fakeProduction{}, models, newFakeStore(), newTestLogger())

	_, err := pipeline.Train(context.Background(), solar.ModelTypeRegression)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to promote model version")
}
