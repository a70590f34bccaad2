// Package ingest turns uploaded files into stored telemetry. Tabular data
// (CSV, XLSX, PDF) flows through format parsers into a common row set before
// column mapping; images are decode-validated and handed to blob storage.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pvforge/helios/internal/domain/solar"
	apperrors "github.com/pvforge/helios/pkg/errors"
	"github.com/pvforge/helios/pkg/metrics"
)

// DefaultMaxUploadBytes caps upload size when the config does not.
const DefaultMaxUploadBytes = 20 << 20

// Upload is one received file.
type Upload struct {
	Filename string
	Data     []byte
}

// weatherColumns are the optional numeric columns, in feature order. Absent
// or unparseable cells become 0 so stored rows never carry nulls.
var weatherColumns = []string{
	"temperature",
	"humidity",
	"wind_speed",
	"cloud_cover",
	"solar_irradiance",
	"precipitation",
}

// Service ingests telemetry uploads.
type Service struct {
	weather    solar.WeatherRepository
	production solar.ProductionRepository
	images     solar.PanelImageRepository
	store      solar.ObjectStorage
	maxBytes   int64
	log        *slog.Logger
}

// NewService builds the ingestion service. maxBytes <= 0 selects the default
// 20MB cap.
func NewService(
	weather solar.WeatherRepository,
	production solar.ProductionRepository,
	images solar.PanelImageRepository,
	store solar.ObjectStorage,
	maxBytes int64,
	log *slog.Logger,
) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Service{
		weather:    weather,
		production: production,
		images:     images,
		store:      store,
		maxBytes:   maxBytes,
		log:        log.With("component", "ingest.service"),
	}
}

// IngestWeather parses and stores a weather upload, returning the number of
// records written.
func (s *Service) IngestWeather(ctx context.Context, upload Upload) (int, error) {
	rs, err := s.parseTable(upload)
	if err != nil {
		metrics.UploadFailures.WithLabelValues("weather").Inc()
		return 0, err
	}

	records, err := mapWeatherRows(rs)
	if err != nil {
		metrics.UploadFailures.WithLabelValues("weather").Inc()
		return 0, err
	}

	count, err := s.weather.InsertBatch(ctx, records)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeStorageError, "store weather records", err)
	}
	metrics.RecordsIngested.WithLabelValues("weather").Add(float64(count))
	s.log.Info("weather upload ingested", "filename", upload.Filename, "records", count)
	return count, nil
}

// IngestProduction parses and stores a production upload, returning the
// number of records written.
func (s *Service) IngestProduction(ctx context.Context, upload Upload) (int, error) {
	rs, err := s.parseTable(upload)
	if err != nil {
		metrics.UploadFailures.WithLabelValues("production").Inc()
		return 0, err
	}

	records, err := mapProductionRows(rs)
	if err != nil {
		metrics.UploadFailures.WithLabelValues("production").Inc()
		return 0, err
	}

	count, err := s.production.InsertBatch(ctx, records)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeStorageError, "store production records", err)
	}
	metrics.RecordsIngested.WithLabelValues("production").Add(float64(count))
	s.log.Info("production upload ingested", "filename", upload.Filename, "records", count)
	return count, nil
}

func (s *Service) parseTable(upload Upload) (rowSet, error) {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	parser, ok := parserFor(ext)
	if !ok {
		return rowSet{}, apperrors.Wrap(apperrors.CodeUnsupportedFormat,
			fmt.Sprintf("unsupported file format %q, expected .csv, .xlsx, .xls or .pdf", ext), nil)
	}
	if int64(len(upload.Data)) > s.maxBytes {
		return rowSet{}, apperrors.Wrap(apperrors.CodeFileTooLarge,
			fmt.Sprintf("file exceeds the %dMB limit", s.maxBytes>>20), nil)
	}
	return parser.parse(upload.Data)
}

func mapWeatherRows(rs rowSet) ([]solar.WeatherRecord, error) {
	tsCol := rs.columnIndex("timestamp")
	if tsCol < 0 {
		return nil, apperrors.Wrap(apperrors.CodeSchemaError,
			fmt.Sprintf("missing required column \"timestamp\", found: %s", strings.Join(rs.header, ", ")), nil)
	}

	cols := make([]int, len(weatherColumns))
	for i, name := range weatherColumns {
		cols[i] = rs.columnIndex(name)
	}
	forecastCol := rs.columnIndex("is_forecast")
	locationCol := rs.columnIndex("location")

	records := make([]solar.WeatherRecord, 0, len(rs.rows))
	for i, row := range rs.rows {
		ts, err := solar.ParseTimestamp(rs.cell(row, tsCol))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidTimestamp,
				fmt.Sprintf("row %d has an invalid timestamp", i+1), err)
		}

		values := make([]float64, len(weatherColumns))
		for j, col := range cols {
			values[j] = coerceNumeric(rs.cell(row, col))
		}

		records = append(records, solar.WeatherRecord{
			ID:              uuid.New(),
			Timestamp:       ts,
			Temperature:     &values[0],
			Humidity:        &values[1],
			WindSpeed:       &values[2],
			CloudCover:      &values[3],
			SolarIrradiance: &values[4],
			Precipitation:   &values[5],
			IsForecast:      coerceBool(rs.cell(row, forecastCol)),
			Location:        strings.TrimSpace(rs.cell(row, locationCol)),
		})
	}
	return records, nil
}

func mapProductionRows(rs rowSet) ([]solar.ProductionRecord, error) {
	tsCol := rs.columnIndex("timestamp")
	energyCol := rs.columnIndex("energy_output_kwh")
	if tsCol < 0 || energyCol < 0 {
		return nil, apperrors.Wrap(apperrors.CodeSchemaError,
			fmt.Sprintf("missing required columns \"timestamp\" and \"energy_output_kwh\", found: %s",
				strings.Join(rs.header, ", ")), nil)
	}
	panelCol := rs.columnIndex("panel_id")
	capacityCol := rs.columnIndex("system_capacity_kw")
	efficiencyCol := rs.columnIndex("efficiency")

	records := make([]solar.ProductionRecord, 0, len(rs.rows))
	for i, row := range rs.rows {
		ts, err := solar.ParseTimestamp(rs.cell(row, tsCol))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidTimestamp,
				fmt.Sprintf("row %d has an invalid timestamp", i+1), err)
		}

		// Energy output is strict: one bad cell rejects the whole batch.
		energy, err := strconv.ParseFloat(rs.cell(row, energyCol), 64)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidInput,
				fmt.Sprintf("energy_output_kwh contains a non-numeric value at row %d", i+1), nil)
		}

		records = append(records, solar.ProductionRecord{
			ID:               uuid.New(),
			Timestamp:        ts,
			EnergyOutputKWH:  energy,
			PanelID:          rs.cell(row, panelCol),
			SystemCapacityKW: optionalNumeric(rs.cell(row, capacityCol)),
			Efficiency:       optionalNumeric(rs.cell(row, efficiencyCol)),
		})
	}
	return records, nil
}

// coerceBool is the lenient flag parse for is_forecast: anything strconv
// does not recognize (including an absent column) is false.
func coerceBool(cell string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(cell))
	if err != nil {
		return false
	}
	return v
}

// coerceNumeric implements the weather policy: anything unparseable is 0.
func coerceNumeric(cell string) float64 {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0
	}
	return v
}

// optionalNumeric implements the production policy for optional columns:
// anything unparseable is null.
func optionalNumeric(cell string) *float64 {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	return &v
}

// imageKey builds the storage key for an uploaded image.
func imageKey(filename string, now time.Time) string {
	return "images/" + now.Format("20060102_150405") + "_" + filepath.Base(filename)
}
