package forecast

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pvforge/helios/internal/domain/geocode"
	apperrors "github.com/pvforge/helios/pkg/errors"
)

type stubProvider struct {
	calls   int
	samples []RadiationSample
	err     error
}

func (s *stubProvider) Forecasts(context.Context, float64, float64, int) ([]RadiationSample, error) {
	s.calls++
	return s.samples, s.err
}

type stubLocator struct {
	meta geocode.LocationMeta
}

func (s *stubLocator) Reverse(context.Context, float64, float64) geocode.LocationMeta {
	return s.meta
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// hourlySamples generates n consecutive samples starting at base with the
// given GHI for each.
func hourlySamples(base time.Time, n int, ghi float64) []RadiationSample {
	samples := make([]RadiationSample, 0, n)
	for i := 0; i < n; i++ {
		g := ghi
		samples = append(samples, RadiationSample{
			PeriodEnd: base.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04:05.0000000Z"),
			GHI:       &g,
		})
	}
	return samples
}

func TestForecastRejectsOutOfRangeCoordinates(t *testing.T) {
	svc := NewService(&stubProvider{}, &stubLocator{}, NewCache(time.Minute), 336, newTestLogger())

	cases := []struct{ lat, lon float64 }{
		{90.0001, 0},
		{-90.0001, 0},
		{0, 180.0001},
		{0, -180.0001},
	}
	for _, tc := range cases {
		_, err := svc.Forecast(context.Background(), tc.lat, tc.lon)
		require.Error(t, err, "lat=%v lon=%v", tc.lat, tc.lon)
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	}
}

func TestForecastAcceptsBoundaryCoordinates(t *testing.T) {
	provider := &stubProvider{samples: hourlySamples(time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), 4, 100)}
	svc := NewService(provider, &stubLocator{}, NewCache(time.Minute), 336, newTestLogger())

	for _, tc := range []struct{ lat, lon float64 }{{90, 180}, {-90, -180}, {0, 0}} {
		_, err := svc.Forecast(context.Background(), tc.lat, tc.lon)
		require.NoError(t, err, "lat=%v lon=%v", tc.lat, tc.lon)
	}
}

func TestForecastBuildsPayload(t *testing.T) {
	base := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	samples := hourlySamples(base, 72, 500)
	samples[1].GHI = nil // provider gap: pv must stay null
	city := "San Francisco"
	country := "United States"
	display := "San Francisco, California, United States"

	provider := &stubProvider{samples: samples}
	svc := NewService(provider, &stubLocator{meta: geocode.LocationMeta{
		DisplayName: &display, City: &city, Country: &country,
	}}, NewCache(time.Minute), 336, newTestLogger())

	payload, err := svc.Forecast(context.Background(), 37.7749, -122.4194)
	require.NoError(t, err)

	require.Equal(t, 37.7749, payload.Location.Lat)
	require.Equal(t, "San Francisco", *payload.Location.City)

	require.Len(t, payload.HourlyForecast, 48)
	require.Equal(t, samples[0].PeriodEnd, payload.HourlyForecast[0].Time)
	require.NotNil(t, payload.HourlyForecast[0].PVKW)
	require.Equal(t, 0.1, *payload.HourlyForecast[0].PVKW) // 500 * 0.2 / 1000
	require.Nil(t, payload.HourlyForecast[1].PVKW)
	require.Nil(t, payload.HourlyForecast[1].GHI)

	require.Equal(t, 500.0, *payload.CurrentConditions.GHI)
	require.Equal(t, samples[0].PeriodEnd, payload.CurrentConditions.PeriodEnd)

	require.Equal(t, 72, payload.ForecastLength)
	require.Equal(t, SourceOrigin, payload.Cache.Source)
	_, parseErr := time.Parse(time.RFC3339, payload.Cache.ExpiresAt)
	require.NoError(t, parseErr)
}

func TestForecastSkipsEntriesWithoutPeriodEnd(t *testing.T) {
	base := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	samples := hourlySamples(base, 10, 500)
	samples[3].PeriodEnd = ""

	svc := NewService(&stubProvider{samples: samples}, &stubLocator{}, NewCache(time.Minute), 336, newTestLogger())
	payload, err := svc.Forecast(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, payload.HourlyForecast, 9)
}

func TestForecastDailySummary(t *testing.T) {
	samples := []RadiationSample{
		{PeriodEnd: "2024-01-02T10:00:00Z", GHI: floatPtr(500)},
		{PeriodEnd: "2024-01-02T11:00:00Z", GHI: floatPtr(250)},
		{PeriodEnd: "2024-01-01T10:00:00Z", GHI: floatPtr(1000)},
		{PeriodEnd: "2024-01-01T11:00:00Z", GHI: nil}, // skipped
		{PeriodEnd: "2024-01-03T10:00:00Z", GHI: floatPtr(333)},
	}

	svc := NewService(&stubProvider{samples: samples}, &stubLocator{}, NewCache(time.Minute), 336, newTestLogger())
	payload, err := svc.Forecast(context.Background(), 1, 2)
	require.NoError(t, err)

	require.Equal(t, []DailySummary{
		{Date: "2024-01-01", KWhPerM2: 1.0},
		{Date: "2024-01-02", KWhPerM2: 0.75},
		{Date: "2024-01-03", KWhPerM2: 0.33},
	}, payload.DailySummary)
}

func TestForecastDailySummarySkipsDaysWithoutIrradiance(t *testing.T) {
	samples := []RadiationSample{
		{PeriodEnd: "2024-01-01T10:00:00Z", GHI: floatPtr(400)},
		{PeriodEnd: "2024-01-02T10:00:00Z", GHI: nil},
		{PeriodEnd: "2024-01-02T11:00:00Z", GHI: nil},
		{PeriodEnd: "2024-01-03T10:00:00Z", GHI: floatPtr(600)},
	}

	svc := NewService(&stubProvider{samples: samples}, &stubLocator{}, NewCache(time.Minute), 336, newTestLogger())
	payload, err := svc.Forecast(context.Background(), 1, 2)
	require.NoError(t, err)

	// A day whose every sample lacks GHI is absent, not reported as 0.00.
	require.Equal(t, []DailySummary{
		{Date: "2024-01-01", KWhPerM2: 0.4},
		{Date: "2024-01-03", KWhPerM2: 0.6},
	}, payload.DailySummary)
}

func TestForecastDailySummaryCapsAtSevenDays(t *testing.T) {
	var samples []RadiationSample
	for day := 1; day <= 9; day++ {
		g := 100.0
		samples = append(samples, RadiationSample{
			PeriodEnd: fmt.Sprintf("2024-01-%02dT12:00:00Z", day),
			GHI:       &g,
		})
	}

	svc := NewService(&stubProvider{samples: samples}, &stubLocator{}, NewCache(time.Minute), 336, newTestLogger())
	payload, err := svc.Forecast(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, payload.DailySummary, 7)
	require.Equal(t, "2024-01-01", payload.DailySummary[0].Date)
	require.Equal(t, "2024-01-07", payload.DailySummary[6].Date)
}

func TestSecondForecastRequestHitsCache(t *testing.T) {
	provider := &stubProvider{samples: hourlySamples(time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), 4, 100)}
	svc := NewService(provider, &stubLocator{}, NewCache(time.Minute), 336, newTestLogger())

	first, err := svc.Forecast(context.Background(), 37.7749, -122.4194)
	require.NoError(t, err)
	require.Equal(t, SourceOrigin, first.Cache.Source)

	// Nearby coordinates that round to the same key also hit.
	second, err := svc.Forecast(context.Background(), 37.77491, -122.41941)
	require.NoError(t, err)
	require.Equal(t, SourceCache, second.Cache.Source)
	require.Equal(t, 1, provider.calls)

	// The served copy is independent of the cached one.
	*second.HourlyForecast[0].GHI = -1
	third, err := svc.Forecast(context.Background(), 37.7749, -122.4194)
	require.NoError(t, err)
	require.Equal(t, 100.0, *third.HourlyForecast[0].GHI)
}

func TestForecastWithCachingDisabledAlwaysCallsProvider(t *testing.T) {
	provider := &stubProvider{samples: hourlySamples(time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), 4, 100)}
	svc := NewService(provider, &stubLocator{}, NewCache(0), 336, newTestLogger())

	for i := 0; i < 3; i++ {
		payload, err := svc.Forecast(context.Background(), 1, 2)
		require.NoError(t, err)
		require.Equal(t, SourceOrigin, payload.Cache.Source)
	}
	require.Equal(t, 3, provider.calls)
}

func TestForecastEmptyProviderDataFails(t *testing.T) {
	svc := NewService(&stubProvider{samples: nil}, &stubLocator{}, NewCache(time.Minute), 336, newTestLogger())

	_, err := svc.Forecast(context.Background(), 1, 2)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeUpstreamData))
}

func TestForecastPropagatesProviderErrorCodes(t *testing.T) {
	svc := NewService(&stubProvider{
		err: apperrors.Wrap(apperrors.CodeNotConfigured, "forecast provider is not configured", nil),
	}, &stubLocator{}, NewCache(time.Minute), 336, newTestLogger())

	_, err := svc.Forecast(context.Background(), 1, 2)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotConfigured))
}

func TestGHIToKilowatts(t *testing.T) {
	require.Equal(t, 0.1, GHIToKilowatts(500))
	require.Equal(t, 0.2, GHIToKilowatts(1000))
	require.Equal(t, 0.067, GHIToKilowatts(333.3))
	require.Equal(t, 0.0, GHIToKilowatts(0))
}
