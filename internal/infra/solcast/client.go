// Package solcast implements forecast.RadiationProvider against a Solcast
// compatible radiation API.
package solcast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pvforge/helios/internal/domain/forecast"
	apperrors "github.com/pvforge/helios/pkg/errors"
	"github.com/pvforge/helios/pkg/metrics"
)

// maxHours is the largest window the API accepts.
const maxHours = 336

// Client calls the radiation forecast API. Construction never fails; missing
// configuration surfaces per-request so the rest of the service keeps
// working without a provider account.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds an API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Forecasts fetches up to hours of irradiance samples for a coordinate pair.
func (c *Client) Forecasts(ctx context.Context, lat, lon float64, hours int) ([]forecast.RadiationSample, error) {
	if c.baseURL == "" || c.apiKey == "" {
		return nil, apperrors.Wrap(apperrors.CodeNotConfigured,
			"solar forecast provider is not configured", nil)
	}
	if hours <= 0 || hours > maxHours {
		hours = maxHours
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "json")
	params.Set("api_key", c.apiKey)
	params.Set("hours", strconv.Itoa(hours))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamError, "build forecast request", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ProviderLatency.WithLabelValues("solcast").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderCallsTotal.WithLabelValues("solcast", "error").Inc()
		return nil, apperrors.Wrap(apperrors.CodeUpstreamError, "forecast provider unreachable", err)
	}
	defer resp.Body.Close()
	metrics.ProviderCallsTotal.WithLabelValues("solcast", strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, apperrors.Wrap(apperrors.CodeUpstreamError,
			fmt.Sprintf("forecast provider returned status %d", resp.StatusCode),
			fmt.Errorf("body=%s", string(payload)))
	}

	var raw apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamData, "decode forecast response", err)
	}

	// Some API tiers answer under "forecasts", others under "radiation".
	records := raw.Forecasts
	if len(records) == 0 {
		records = raw.Radiation
	}
	if len(records) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamData,
			"forecast provider returned no data", nil)
	}

	samples := make([]forecast.RadiationSample, 0, len(records))
	for _, rec := range records {
		samples = append(samples, forecast.RadiationSample{
			PeriodEnd:    rec.PeriodEnd,
			GHI:          rec.GHI,
			AirTemp:      rec.AirTemp,
			CloudOpacity: rec.CloudOpacity,
		})
	}
	return samples, nil
}

type apiResponse struct {
	Forecasts []record `json:"forecasts"`
	Radiation []record `json:"radiation"`
}

type record struct {
	PeriodEnd    string   `json:"period_end"`
	GHI          *float64 `json:"ghi"`
	AirTemp      *float64 `json:"air_temp"`
	CloudOpacity *float64 `json:"cloud_opacity"`
}
