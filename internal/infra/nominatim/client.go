// Package nominatim implements geocode.Provider against a Nominatim
// compatible HTTP API. Every request first passes through the shared rate
// limiter, honoring the provider's usage policy.
package nominatim

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

	"github.com/pvforge/helios/internal/domain/geocode"
	"github.com/pvforge/helios/pkg/metrics"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "helios-solar-dashboard/1.0"

	// zoom 10 resolves to city level on reverse lookups.
	reverseZoom = 10
)

// Client calls the Nominatim API.
type Client struct {
	baseURL    string
	userAgent  string
	email      string
	limiter    geocode.Limiter
	httpClient *http.Client
}

// NewClient builds an API client. email is optional and forwarded to the
// provider as a contact parameter when set.
func NewClient(baseURL, userAgent, email string, limiter geocode.Limiter) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = defaultBaseURL
	}
	agent := strings.TrimSpace(userAgent)
	if agent == "" {
		agent = defaultUserAgent
	}
	return &Client{
		baseURL:   strings.TrimRight(base, "/"),
		userAgent: agent,
		email:     strings.TrimSpace(email),
		limiter:   limiter,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Reverse resolves coordinates to a place.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (geocode.Place, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "jsonv2")
	params.Set("zoom", strconv.Itoa(reverseZoom))
	params.Set("addressdetails", "1")

	var raw placeResponse
	if err := c.get(ctx, "/reverse", params, &raw); err != nil {
		return geocode.Place{}, err
	}
	if raw.Error != "" {
		return geocode.Place{}, fmt.Errorf("nominatim: %s", raw.Error)
	}
	return raw.toPlace(), nil
}

// Search performs free-text forward geocoding.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]geocode.Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("addressdetails", "1")

	var raw []placeResponse
	if err := c.get(ctx, "/search", params, &raw); err != nil {
		return nil, err
	}
	places := make([]geocode.Place, 0, len(raw))
	for _, item := range raw {
		places = append(places, item.toPlace())
	}
	return places, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.email != "" {
		params.Set("email", c.email)
	}
	endpoint := c.baseURL + path + "?" + params.Encode()

	c.limiter.Acquire()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ProviderLatency.WithLabelValues("nominatim").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderCallsTotal.WithLabelValues("nominatim", "error").Inc()
		return fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.ProviderCallsTotal.WithLabelValues("nominatim", strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("geocode request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode geocode response: %w", err)
	}
	return nil
}

type placeResponse struct {
	DisplayName string          `json:"display_name"`
	Lat         json.Number     `json:"lat"`
	Lon         json.Number     `json:"lon"`
	Type        string          `json:"type"`
	Importance  float64         `json:"importance"`
	Address     addressResponse `json:"address"`
	Error       string          `json:"error"`
}

type addressResponse struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
	Country string `json:"country"`
}

func (p placeResponse) toPlace() geocode.Place {
	lat, _ := p.Lat.Float64()
	lon, _ := p.Lon.Float64()
	return geocode.Place{
		DisplayName: p.DisplayName,
		Lat:         lat,
		Lon:         lon,
		Type:        p.Type,
		Importance:  p.Importance,
		Address: geocode.Address{
			City:    p.Address.City,
			Town:    p.Address.Town,
			Village: p.Address.Village,
			Country: p.Address.Country,
		},
	}
}
