package solarrepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pvforge/helios/internal/domain/solar"
)

// PostgresWeatherRepository persists weather samples in Postgres.
type PostgresWeatherRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresWeatherRepository constructs the repository.
func NewPostgresWeatherRepository(pool *pgxpool.Pool) *PostgresWeatherRepository {
	return &PostgresWeatherRepository{pool: pool}
}

func (r *PostgresWeatherRepository) InsertBatch(ctx context.Context, records []solar.WeatherRecord) (int, error) {
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO weather_data (id, timestamp, temperature, humidity, wind_speed, cloud_cover, solar_irradiance, precipitation, is_forecast, location, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		`, rec.ID, rec.Timestamp.Time, rec.Temperature, rec.Humidity, rec.WindSpeed, rec.CloudCover, rec.SolarIrradiance, rec.Precipitation, rec.IsForecast, rec.Location)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (r *PostgresWeatherRepository) ListAll(ctx context.Context) ([]solar.WeatherRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, timestamp, temperature, humidity, wind_speed, cloud_cover, solar_irradiance, precipitation, is_forecast, location, created_at
		FROM weather_data
		ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []solar.WeatherRecord
	for rows.Next() {
		rec, err := scanWeather(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresWeatherRepository) FindAt(ctx context.Context, ts solar.Timestamp) (solar.WeatherRecord, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, timestamp, temperature, humidity, wind_speed, cloud_cover, solar_irradiance, precipitation, is_forecast, location, created_at
		FROM weather_data
		WHERE timestamp = $1
		LIMIT 1
	`, ts.Time)
	rec, err := scanWeather(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return solar.WeatherRecord{}, false, nil
		}
		return solar.WeatherRecord{}, false, err
	}
	return rec, true, nil
}

func scanWeather(row rowScanner) (solar.WeatherRecord, error) {
	var (
		rec     solar.WeatherRecord
		ts      time.Time
		created time.Time
	)
	if err := row.Scan(&rec.ID, &ts, &rec.Temperature, &rec.Humidity, &rec.WindSpeed, &rec.CloudCover, &rec.SolarIrradiance, &rec.Precipitation, &rec.IsForecast, &rec.Location, &created); err != nil {
		return solar.WeatherRecord{}, err
	}
	rec.Timestamp = solar.NewTimestamp(ts)
	rec.CreatedAt = created.UTC()
	return rec, nil
}

var _ solar.WeatherRepository = (*PostgresWeatherRepository)(nil)

// PostgresProductionRepository persists measured energy output in Postgres.
type PostgresProductionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresProductionRepository constructs the repository.
func NewPostgresProductionRepository(pool *pgxpool.Pool) *PostgresProductionRepository {
	return &PostgresProductionRepository{pool: pool}
}

func (r *PostgresProductionRepository) InsertBatch(ctx context.Context, records []solar.ProductionRecord) (int, error) {
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO production_data (id, timestamp, energy_output_kwh, panel_id, system_capacity_kw, efficiency, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
		`, rec.ID, rec.Timestamp.Time, rec.EnergyOutputKWH, rec.PanelID, rec.SystemCapacityKW, rec.Efficiency)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (r *PostgresProductionRepository) ListAll(ctx context.Context) ([]solar.ProductionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, timestamp, energy_output_kwh, panel_id, system_capacity_kw, efficiency, created_at
		FROM production_data
		ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []solar.ProductionRecord
	for rows.Next() {
		var (
			rec     solar.ProductionRecord
			ts      time.Time
			created time.Time
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.EnergyOutputKWH, &rec.PanelID, &rec.SystemCapacityKW, &rec.Efficiency, &created); err != nil {
			return nil, err
		}
		rec.Timestamp = solar.NewTimestamp(ts)
		rec.CreatedAt = created.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresProductionRepository) SumEnergy(ctx context.Context) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(energy_output_kwh), 0)
		FROM production_data
	`).Scan(&total)
	return total, err
}

var _ solar.ProductionRepository = (*PostgresProductionRepository)(nil)

// PostgresPredictionRepository persists model output in Postgres.
type PostgresPredictionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPredictionRepository constructs the repository.
func NewPostgresPredictionRepository(pool *pgxpool.Pool) *PostgresPredictionRepository {
	return &PostgresPredictionRepository{pool: pool}
}

func (r *PostgresPredictionRepository) InsertBatch(ctx context.Context, records []solar.PredictionRecord) error {
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO predictions (id, prediction_type, timestamp, predicted_output_kwh, actual_output_kwh, confidence_score, model_version, weather_data_id, temperature, solar_irradiance, cloud_cover, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		`, rec.ID, rec.PredictionType, rec.Timestamp.Time, rec.PredictedOutputKWH, rec.ActualOutputKWH, rec.ConfidenceScore, rec.ModelVersion,
			rec.WeatherDataID, rec.WeatherFeatures.Temperature, rec.WeatherFeatures.SolarIrradiance, rec.WeatherFeatures.CloudCover)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *PostgresPredictionRepository) ListLatest(ctx context.Context, pt solar.PredictionType, limit int) ([]solar.PredictionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, prediction_type, timestamp, predicted_output_kwh, actual_output_kwh, confidence_score, model_version, weather_data_id, temperature, solar_irradiance, cloud_cover, created_at
		FROM predictions
		WHERE prediction_type = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, pt, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPredictions(rows)
}

func (r *PostgresPredictionRepository) ListRecent(ctx context.Context, limit int) ([]solar.PredictionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, prediction_type, timestamp, predicted_output_kwh, actual_output_kwh, confidence_score, model_version, weather_data_id, temperature, solar_irradiance, cloud_cover, created_at
		FROM predictions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPredictions(rows)
}

func (r *PostgresPredictionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&count)
	return count, err
}

func collectPredictions(rows pgx.Rows) ([]solar.PredictionRecord, error) {
	var records []solar.PredictionRecord
	for rows.Next() {
		var (
			rec     solar.PredictionRecord
			ts      time.Time
			created time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.PredictionType, &ts, &rec.PredictedOutputKWH, &rec.ActualOutputKWH, &rec.ConfidenceScore, &rec.ModelVersion,
			&rec.WeatherDataID, &rec.WeatherFeatures.Temperature, &rec.WeatherFeatures.SolarIrradiance, &rec.WeatherFeatures.CloudCover, &created); err != nil {
			return nil, err
		}
		rec.Timestamp = solar.NewTimestamp(ts)
		rec.CreatedAt = created.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

var _ solar.PredictionRepository = (*PostgresPredictionRepository)(nil)

// PostgresModelVersionRepository persists trained model metadata.
type PostgresModelVersionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresModelVersionRepository constructs the repository.
func NewPostgresModelVersionRepository(pool *pgxpool.Pool) *PostgresModelVersionRepository {
	return &PostgresModelVersionRepository{pool: pool}
}

func (r *PostgresModelVersionRepository) GetActive(ctx context.Context, modelType string) (solar.ModelVersion, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, version_name, model_type, file_path, accuracy_score, mse, is_active, training_data_start, training_data_end, created_at
		FROM model_versions
		WHERE model_type = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT 1
	`, modelType)
	mv, err := scanModelVersion(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return solar.ModelVersion{}, false, nil
		}
		return solar.ModelVersion{}, false, err
	}
	return mv, true, nil
}

// SetActive demotes every version of the model type and inserts the new one
// as active inside a single transaction.
func (r *PostgresModelVersionRepository) SetActive(ctx context.Context, version solar.ModelVersion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE model_versions
		SET is_active = FALSE
		WHERE model_type = $1 AND is_active
	`, version.ModelType); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO model_versions (id, version_name, model_type, file_path, accuracy_score, mse, is_active, training_data_start, training_data_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8, NOW())
	`, version.ID, version.VersionName, version.ModelType, version.FilePath, version.AccuracyScore, version.MSE,
		timestampOrNil(version.TrainingDataStart), timestampOrNil(version.TrainingDataEnd)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanModelVersion(row rowScanner) (solar.ModelVersion, error) {
	var (
		mv      solar.ModelVersion
		start   *time.Time
		end     *time.Time
		created time.Time
	)
	if err := row.Scan(&mv.ID, &mv.VersionName, &mv.ModelType, &mv.FilePath, &mv.AccuracyScore, &mv.MSE, &mv.IsActive, &start, &end, &created); err != nil {
		return solar.ModelVersion{}, err
	}
	if start != nil {
		ts := solar.NewTimestamp(*start)
		mv.TrainingDataStart = &ts
	}
	if end != nil {
		ts := solar.NewTimestamp(*end)
		mv.TrainingDataEnd = &ts
	}
	mv.CreatedAt = created.UTC()
	return mv, nil
}

func timestampOrNil(ts *solar.Timestamp) any {
	if ts == nil {
		return nil
	}
	return ts.Time
}

var _ solar.ModelVersionRepository = (*PostgresModelVersionRepository)(nil)

// PostgresTrainingJobRepository persists the training state machine.
type PostgresTrainingJobRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTrainingJobRepository constructs the repository.
func NewPostgresTrainingJobRepository(pool *pgxpool.Pool) *PostgresTrainingJobRepository {
	return &PostgresTrainingJobRepository{pool: pool}
}

func (r *PostgresTrainingJobRepository) Create(ctx context.Context, job solar.TrainingJob) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO training_jobs (id, status, model_type, training_data_count, error_message, created_by, started_at, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`, job.ID, job.Status, job.ModelType, job.TrainingDataCount, job.ErrorMessage, job.CreatedBy, job.StartedAt, job.CompletedAt)
	return err
}

func (r *PostgresTrainingJobRepository) Update(ctx context.Context, job solar.TrainingJob) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE training_jobs
		SET status = $1, training_data_count = $2, error_message = $3, started_at = $4, completed_at = $5
		WHERE id = $6
	`, job.Status, job.TrainingDataCount, job.ErrorMessage, job.StartedAt, job.CompletedAt, job.ID)
	return err
}

func (r *PostgresTrainingJobRepository) ListRecent(ctx context.Context, limit int) ([]solar.TrainingJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, status, model_type, training_data_count, error_message, created_by, started_at, completed_at, created_at
		FROM training_jobs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []solar.TrainingJob
	for rows.Next() {
		var (
			job     solar.TrainingJob
			created time.Time
		)
		if err := rows.Scan(&job.ID, &job.Status, &job.ModelType, &job.TrainingDataCount, &job.ErrorMessage, &job.CreatedBy, &job.StartedAt, &job.CompletedAt, &created); err != nil {
			return nil, err
		}
		job.CreatedAt = created.UTC()
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

var _ solar.TrainingJobRepository = (*PostgresTrainingJobRepository)(nil)

// PostgresPanelImageRepository persists uploaded image metadata.
type PostgresPanelImageRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPanelImageRepository constructs the repository.
func NewPostgresPanelImageRepository(pool *pgxpool.Pool) *PostgresPanelImageRepository {
	return &PostgresPanelImageRepository{pool: pool}
}

func (r *PostgresPanelImageRepository) InsertBatch(ctx context.Context, images []solar.PanelImage) error {
	batch := &pgx.Batch{}
	for _, img := range images {
		batch.Queue(`
			INSERT INTO panel_images (id, filename, file_path, panel_id, uploaded_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, img.ID, img.Filename, img.FilePath, img.PanelID, img.UploadedBy, img.CreatedAt)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

var _ solar.PanelImageRepository = (*PostgresPanelImageRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}
