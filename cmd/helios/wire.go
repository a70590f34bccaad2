//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/pvforge/helios/internal/bootstrap"
	"github.com/pvforge/helios/internal/domain/auth"
	"github.com/pvforge/helios/internal/domain/geocode"
	"github.com/pvforge/helios/internal/infra/config"
	"github.com/pvforge/helios/internal/infra/nominatim"
	httpiface "github.com/pvforge/helios/internal/interface/http"
	"github.com/pvforge/helios/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideRepositories,
		provideWeatherRepository,
		provideProductionRepository,
		providePredictionRepository,
		provideModelVersionRepository,
		provideTrainingJobRepository,
		providePanelImageRepository,
		provideUserRepository,
		provideDBPinger,
		provideObjectStorage,
		provideAuthConfig,
		auth.NewService,
		provideRadiationClient,
		provideGeocodeClient,
		geocode.NewService,
		provideForecastService,
		providePredictService,
		provideTrainPipeline,
		provideIngestService,
		wire.Bind(new(geocode.Provider), new(*nominatim.Client)),
		httpiface.NewAuthHandler,
		httpiface.NewForecastHandler,
		httpiface.NewUploadHandler,
		httpiface.NewPredictionHandler,
		httpiface.NewTrainingHandler,
		httpiface.NewSystemHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
