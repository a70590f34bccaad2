package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pvforge/helios/internal/domain/auth"
	"github.com/pvforge/helios/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(
	cfg *config.Config,
	authHandler *AuthHandler,
	forecastHandler *ForecastHandler,
	uploadHandler *UploadHandler,
	predictionHandler *PredictionHandler,
	trainingHandler *TrainingHandler,
	systemHandler *SystemHandler,
	authSvc auth.Service,
	logger *slog.Logger,
) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	// errorHandlingMiddleware renders aborted errors on the way back out, so
	// it must sit above every middleware and handler that calls abortWithError.
	router.Use(
		gin.CustomRecovery(recoveryHandler(logger)),
		requestLogger(logger),
		errorHandlingMiddleware(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
	)

	requireAuth := authMiddleware(authSvc)

	api := router.Group("/api/v1")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		api.GET("/forecast/solar", forecastHandler.SolarForecast)
		api.GET("/geocode/search", forecastHandler.GeocodeSearch)

		uploads := api.Group("/upload", requireAuth)
		{
			uploads.POST("/weather", uploadHandler.Weather)
			uploads.POST("/production", uploadHandler.Production)
			uploads.POST("/images", uploadHandler.Images)
		}

		api.GET("/predictions/hourly", predictionHandler.Hourly)
		api.GET("/predictions/daily", predictionHandler.Daily)

		api.POST("/training", requireAuth, trainingHandler.Start)
		api.GET("/training/status", trainingHandler.Status)

		api.GET("/dashboard/stats", systemHandler.DashboardStats)
		api.GET("/health/status", systemHandler.HealthStatus)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
