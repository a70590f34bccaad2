package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func samplePayload() *Payload {
	name := "Testville"
	return &Payload{
		Location: LocationBlock{Lat: 37.7749, Lon: -122.4194, DisplayName: &name},
		HourlyForecast: []HourlyEntry{
			{Time: "2024-01-01T01:00:00Z", GHI: floatPtr(500), PVKW: floatPtr(0.1)},
		},
		DailySummary:   []DailySummary{{Date: "2024-01-01", KWhPerM2: 1.5}},
		ForecastLength: 48,
	}
}

func TestCacheKeyRoundsToFourDecimals(t *testing.T) {
	require.Equal(t, "37.7749:-122.4194", CacheKey(37.7749, -122.4194))
	require.Equal(t, CacheKey(37.7749, -122.4194), CacheKey(37.77491, -122.41941))
	require.NotEqual(t, CacheKey(37.7749, -122.4194), CacheKey(37.7750, -122.4194))
}

func TestLookupMissesOnEmptyCache(t *testing.T) {
	cache := NewCache(time.Minute)
	_, _, ok := cache.Lookup(1, 2)
	require.False(t, ok)
}

func TestLookupReturnsIndependentCopy(t *testing.T) {
	cache := NewCache(time.Minute)
	cache.Store(37.7749, -122.4194, samplePayload())

	got, _, ok := cache.Lookup(37.7749, -122.4194)
	require.True(t, ok)

	// Mutate everything reachable on the returned copy.
	*got.HourlyForecast[0].GHI = -1
	got.HourlyForecast[0].Time = "mutated"
	got.DailySummary[0].KWhPerM2 = -1
	*got.Location.DisplayName = "mutated"

	again, _, ok := cache.Lookup(37.7749, -122.4194)
	require.True(t, ok)
	require.Equal(t, 500.0, *again.HourlyForecast[0].GHI)
	require.Equal(t, "2024-01-01T01:00:00Z", again.HourlyForecast[0].Time)
	require.Equal(t, 1.5, again.DailySummary[0].KWhPerM2)
	require.Equal(t, "Testville", *again.Location.DisplayName)
}

func TestStoreCopiesItsInput(t *testing.T) {
	cache := NewCache(time.Minute)
	payload := samplePayload()
	cache.Store(1, 2, payload)

	*payload.HourlyForecast[0].GHI = -1
	payload.DailySummary[0].Date = "mutated"

	got, _, ok := cache.Lookup(1, 2)
	require.True(t, ok)
	require.Equal(t, 500.0, *got.HourlyForecast[0].GHI)
	require.Equal(t, "2024-01-01", got.DailySummary[0].Date)
}

func TestStoreOverwritesExistingEntry(t *testing.T) {
	cache := NewCache(time.Minute)
	cache.Store(1, 2, samplePayload())

	replacement := samplePayload()
	replacement.ForecastLength = 7
	cache.Store(1, 2, replacement)

	got, _, ok := cache.Lookup(1, 2)
	require.True(t, ok)
	require.Equal(t, 7, got.ForecastLength)
	require.Equal(t, 1, cache.Len())
}

func TestExpiredEntriesAreDroppedOnLookup(t *testing.T) {
	cache := NewCache(20 * time.Millisecond)
	cache.Store(1, 2, samplePayload())

	time.Sleep(40 * time.Millisecond)

	_, _, ok := cache.Lookup(1, 2)
	require.False(t, ok)
	require.Equal(t, 0, cache.Len())
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	cache := NewCache(0)
	cache.Store(1, 2, samplePayload())

	require.Equal(t, 0, cache.Len())
	_, _, ok := cache.Lookup(1, 2)
	require.False(t, ok)
}
