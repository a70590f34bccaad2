// Package forecast aggregates provider irradiance data into the dashboard
// payload, caching results per rounded coordinate pair.
package forecast

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/pvforge/helios/internal/domain/geocode"
	apperrors "github.com/pvforge/helios/pkg/errors"
	"github.com/pvforge/helios/pkg/metrics"
)

const (
	// panelEfficiencyFactor converts irradiance (W/m²) into an estimated PV
	// output: kw = ghi * factor / 1000.
	panelEfficiencyFactor = 0.2

	// providerMaxHours is the hard ceiling accepted by the radiation API.
	providerMaxHours = 336

	hourlyEntryLimit = 48
	dailySummaryDays = 7
)

// LocationResolver annotates coordinates with place names. Implemented by the
// geocode service; failures must degrade, never propagate.
type LocationResolver interface {
	Reverse(ctx context.Context, lat, lon float64) geocode.LocationMeta
}

// Service builds forecast payloads.
type Service struct {
	provider RadiationProvider
	locator  LocationResolver
	cache    *Cache
	maxHours int
	log      *slog.Logger
}

// NewService builds the aggregator. maxHours is clamped to the provider
// ceiling; non-positive values take the ceiling.
func NewService(provider RadiationProvider, locator LocationResolver, cache *Cache, maxHours int, log *slog.Logger) *Service {
	if maxHours <= 0 || maxHours > providerMaxHours {
		maxHours = providerMaxHours
	}
	return &Service{
		provider: provider,
		locator:  locator,
		cache:    cache,
		maxHours: maxHours,
		log:      log.With("component", "forecast.service"),
	}
}

// Forecast returns the aggregated payload for a coordinate pair, serving from
// cache when a fresh entry exists.
func (s *Service) Forecast(ctx context.Context, lat, lon float64) (*Payload, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "latitude must be between -90 and 90", nil)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "longitude must be between -180 and 180", nil)
	}

	if cached, expiresAt, ok := s.cache.Lookup(lat, lon); ok {
		metrics.ForecastCacheHits.Inc()
		cached.Cache = CacheInfo{Source: SourceCache, ExpiresAt: formatExpiry(expiresAt)}
		return cached, nil
	}
	metrics.ForecastCacheMisses.Inc()

	samples, err := s.provider.Forecasts(ctx, lat, lon, s.maxHours)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamData, "forecast provider returned no data", nil)
	}

	payload := s.buildPayload(ctx, lat, lon, samples)
	expiresAt := s.cache.Store(lat, lon, payload)
	payload.Cache = CacheInfo{Source: SourceOrigin, ExpiresAt: formatExpiry(expiresAt)}
	return payload, nil
}

func (s *Service) buildPayload(ctx context.Context, lat, lon float64, samples []RadiationSample) *Payload {
	hourly := make([]HourlyEntry, 0, hourlyEntryLimit)
	for _, sample := range samples[:min(len(samples), hourlyEntryLimit)] {
		if sample.PeriodEnd == "" {
			continue
		}
		entry := HourlyEntry{
			Time:         sample.PeriodEnd,
			GHI:          clonePtr(sample.GHI),
			AirTemp:      clonePtr(sample.AirTemp),
			CloudOpacity: clonePtr(sample.CloudOpacity),
		}
		if sample.GHI != nil {
			pv := GHIToKilowatts(*sample.GHI)
			entry.PVKW = &pv
		}
		hourly = append(hourly, entry)
	}

	first := samples[0]
	meta := s.locator.Reverse(ctx, lat, lon)

	return &Payload{
		Location: LocationBlock{
			Lat:         lat,
			Lon:         lon,
			DisplayName: meta.DisplayName,
			City:        meta.City,
			Country:     meta.Country,
		},
		CurrentConditions: CurrentBlock{
			GHI:          clonePtr(first.GHI),
			AirTemp:      clonePtr(first.AirTemp),
			CloudOpacity: clonePtr(first.CloudOpacity),
			PeriodEnd:    first.PeriodEnd,
		},
		HourlyForecast: hourly,
		DailySummary:   summarizeDaily(samples),
		ForecastLength: min(len(samples), s.maxHours),
	}
}

// GHIToKilowatts derives the PV output estimate from irradiance, rounded to
// three decimals.
func GHIToKilowatts(ghi float64) float64 {
	return round3(ghi * panelEfficiencyFactor / 1000)
}

// summarizeDaily folds samples into per-day kWh/m² totals: irradiance
// divided by 1000, summed over the calendar-day prefix of period_end, first
// seven days in ascending order. Samples without a GHI reading are skipped,
// so a day whose every sample lacks GHI never appears in the summary.
func summarizeDaily(samples []RadiationSample) []DailySummary {
	totals := make(map[string]float64)
	for _, sample := range samples {
		if sample.GHI == nil {
			continue
		}
		day, ok := dayPrefix(sample.PeriodEnd)
		if !ok {
			continue
		}
		totals[day] += *sample.GHI / 1000
	}

	days := make([]string, 0, len(totals))
	for day := range totals {
		days = append(days, day)
	}
	sort.Strings(days)
	if len(days) > dailySummaryDays {
		days = days[:dailySummaryDays]
	}

	summary := make([]DailySummary, 0, len(days))
	for _, day := range days {
		summary = append(summary, DailySummary{Date: day, KWhPerM2: round2(totals[day])})
	}
	return summary
}

func dayPrefix(periodEnd string) (string, bool) {
	for i, r := range periodEnd {
		if r == 'T' {
			return periodEnd[:i], true
		}
	}
	return "", false
}

func formatExpiry(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
