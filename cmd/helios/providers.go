package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pvforge/helios/internal/domain/auth"
	"github.com/pvforge/helios/internal/domain/forecast"
	"github.com/pvforge/helios/internal/domain/geocode"
	"github.com/pvforge/helios/internal/domain/ingest"
	"github.com/pvforge/helios/internal/domain/predict"
	"github.com/pvforge/helios/internal/domain/solar"
	"github.com/pvforge/helios/internal/domain/train"
	"github.com/pvforge/helios/internal/infra/blob"
	"github.com/pvforge/helios/internal/infra/config"
	"github.com/pvforge/helios/internal/infra/nominatim"
	"github.com/pvforge/helios/internal/infra/solarrepo"
	"github.com/pvforge/helios/internal/infra/solcast"
	"github.com/pvforge/helios/internal/infra/userrepo"
	httpiface "github.com/pvforge/helios/internal/interface/http"
)

// repositories groups every persistence dependency so the Postgres pool is
// created once and the memory fallback switches all stores together.
type repositories struct {
	weather     solar.WeatherRepository
	production  solar.ProductionRepository
	predictions solar.PredictionRepository
	models      solar.ModelVersionRepository
	jobs        solar.TrainingJobRepository
	images      solar.PanelImageRepository
	users       auth.Repository
	pinger      httpiface.Pinger
}

func provideRepositories(cfg *config.Config, logger *slog.Logger) *repositories {
	pool := connectPool(cfg, logger)
	if pool == nil {
		return &repositories{
			weather:     solarrepo.NewMemoryWeatherRepository(),
			production:  solarrepo.NewMemoryProductionRepository(),
			predictions: solarrepo.NewMemoryPredictionRepository(),
			models:      solarrepo.NewMemoryModelVersionRepository(),
			jobs:        solarrepo.NewMemoryTrainingJobRepository(),
			images:      solarrepo.NewMemoryPanelImageRepository(),
			users:       userrepo.NewMemoryRepository(),
		}
	}
	return &repositories{
		weather:     solarrepo.NewPostgresWeatherRepository(pool),
		production:  solarrepo.NewPostgresProductionRepository(pool),
		predictions: solarrepo.NewPostgresPredictionRepository(pool),
		models:      solarrepo.NewPostgresModelVersionRepository(pool),
		jobs:        solarrepo.NewPostgresTrainingJobRepository(pool),
		images:      solarrepo.NewPostgresPanelImageRepository(pool),
		users:       userrepo.NewPostgresRepository(pool),
		pinger:      pool,
	}
}

func connectPool(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	dsn := strings.TrimSpace(cfg.Database.DSN)
	if dsn == "" {
		logger.Info("database dsn not set, using memory repositories")
		return nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repositories", "error", err)
		return nil
	}
	if cfg.Database.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.MinConns > 0 {
		poolConfig.MinConns = cfg.Database.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repositories", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repositories", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("postgres repositories enabled")
	return pool
}

func provideWeatherRepository(r *repositories) solar.WeatherRepository { return r.weather }

func provideProductionRepository(r *repositories) solar.ProductionRepository { return r.production }

func providePredictionRepository(r *repositories) solar.PredictionRepository { return r.predictions }

func provideModelVersionRepository(r *repositories) solar.ModelVersionRepository { return r.models }

func provideTrainingJobRepository(r *repositories) solar.TrainingJobRepository { return r.jobs }

func providePanelImageRepository(r *repositories) solar.PanelImageRepository { return r.images }

func provideUserRepository(r *repositories) auth.Repository { return r.users }

func provideDBPinger(r *repositories) httpiface.Pinger { return r.pinger }

func provideObjectStorage(cfg *config.Config, logger *slog.Logger) (solar.ObjectStorage, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendS3:
		return blob.NewS3Storage(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey,
			cfg.Storage.Bucket, cfg.Storage.Region, logger)
	case config.StorageBackendMemory:
		return blob.NewMemoryStorage(), nil
	default:
		return blob.NewLocalStorage(cfg.Storage.LocalDir)
	}
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{Secret: cfg.Auth.JWTSecret, TokenTTL: cfg.Auth.TokenTTL}
}

func provideRadiationClient(cfg *config.Config) *solcast.Client {
	return solcast.NewClient(cfg.Forecast.BaseURL, cfg.Forecast.APIKey)
}

func provideGeocodeClient(cfg *config.Config) *nominatim.Client {
	limiter := geocode.NewIntervalLimiter(cfg.Geocode.MinInterval)
	return nominatim.NewClient(cfg.Geocode.BaseURL, cfg.Geocode.UserAgent, cfg.Geocode.Email, limiter)
}

func provideForecastService(cfg *config.Config, client *solcast.Client, locator *geocode.Service, logger *slog.Logger) *forecast.Service {
	cache := forecast.NewCache(cfg.Forecast.CacheTTL)
	return forecast.NewService(client, locator, cache, cfg.Forecast.MaxHours, logger)
}

func providePredictService(models solar.ModelVersionRepository, weather solar.WeatherRepository, store solar.ObjectStorage, logger *slog.Logger) *predict.Service {
	return predict.NewService(models, weather, store, logger)
}

func provideTrainPipeline(weather solar.WeatherRepository, production solar.ProductionRepository, models solar.ModelVersionRepository, store solar.ObjectStorage, logger *slog.Logger) *train.Pipeline {
	return train.NewPipeline(weather, production, models, store, logger)
}

func provideIngestService(cfg *config.Config, weather solar.WeatherRepository, production solar.ProductionRepository, images solar.PanelImageRepository, store solar.ObjectStorage, logger *slog.Logger) *ingest.Service {
	return ingest.NewService(weather, production, images, store, cfg.Uploads.MaxBytes, logger)
}
