package forecast

import "context"

// RadiationSample is one provider forecast interval. PeriodEnd stays in the
// provider's own string form; daily grouping works on its date prefix.
// Pointer fields are nil when the provider omitted the value.
type RadiationSample struct {
	PeriodEnd    string
	GHI          *float64
	AirTemp      *float64
	CloudOpacity *float64
}

// RadiationProvider fetches irradiance forecasts for a coordinate pair.
type RadiationProvider interface {
	Forecasts(ctx context.Context, lat, lon float64, hours int) ([]RadiationSample, error)
}

// Payload is the aggregated forecast response. Instances move through the
// cache as deep copies only; Clone guards both directions.
type Payload struct {
	Location          LocationBlock  `json:"location"`
	CurrentConditions CurrentBlock   `json:"current_conditions"`
	HourlyForecast    []HourlyEntry  `json:"hourly_forecast"`
	DailySummary      []DailySummary `json:"daily_summary"`
	ForecastLength    int            `json:"forecast_length"`
	Cache             CacheInfo      `json:"cache"`
}

// LocationBlock echoes the request coordinates plus reverse-geocoded names,
// which stay null when the lookup degraded.
type LocationBlock struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName *string `json:"display_name"`
	City        *string `json:"city"`
	Country     *string `json:"country"`
}

// CurrentBlock mirrors the first provider sample.
type CurrentBlock struct {
	GHI          *float64 `json:"ghi"`
	AirTemp      *float64 `json:"air_temp"`
	CloudOpacity *float64 `json:"cloud_opacity"`
	PeriodEnd    string   `json:"period_end"`
}

// HourlyEntry is one hour of forecast with the derived PV estimate.
type HourlyEntry struct {
	Time         string   `json:"time"`
	GHI          *float64 `json:"ghi"`
	PVKW         *float64 `json:"pv_kw"`
	AirTemp      *float64 `json:"air_temp"`
	CloudOpacity *float64 `json:"cloud_opacity"`
}

// DailySummary is the per-day irradiance total.
type DailySummary struct {
	Date     string  `json:"date"`
	KWhPerM2 float64 `json:"kwh_per_m2"`
}

// CacheInfo annotates where the payload came from.
type CacheInfo struct {
	Source    string `json:"source"`
	ExpiresAt string `json:"expires_at"`
}

// Cache source annotations.
const (
	SourceCache  = "cache"
	SourceOrigin = "origin"
)

// Clone returns a deep copy; mutations on either side stay invisible to the
// other.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	out := *p
	out.Location.DisplayName = clonePtr(p.Location.DisplayName)
	out.Location.City = clonePtr(p.Location.City)
	out.Location.Country = clonePtr(p.Location.Country)
	out.CurrentConditions.GHI = clonePtr(p.CurrentConditions.GHI)
	out.CurrentConditions.AirTemp = clonePtr(p.CurrentConditions.AirTemp)
	out.CurrentConditions.CloudOpacity = clonePtr(p.CurrentConditions.CloudOpacity)
	out.HourlyForecast = make([]HourlyEntry, len(p.HourlyForecast))
	for i, entry := range p.HourlyForecast {
		entry.GHI = clonePtr(entry.GHI)
		entry.PVKW = clonePtr(entry.PVKW)
		entry.AirTemp = clonePtr(entry.AirTemp)
		entry.CloudOpacity = clonePtr(entry.CloudOpacity)
		out.HourlyForecast[i] = entry
	}
	out.DailySummary = append([]DailySummary(nil), p.DailySummary...)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
