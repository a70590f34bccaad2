// Package geocode proxies a Nominatim-compatible provider behind a shared
// minimum-interval rate limiter, degrading instead of failing wherever a
// caller can live without the answer.
package geocode

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	apperrors "github.com/pvforge/helios/pkg/errors"
)

const (
	minQueryLength = 3
	searchLimit    = 5
)

// Service wraps the provider with validation and degradation policy.
type Service struct {
	provider Provider
	log      *slog.Logger
}

// NewService builds the geocoding service.
func NewService(provider Provider, log *slog.Logger) *Service {
	return &Service{
		provider: provider,
		log:      log.With("component", "geocode.service"),
	}
}

// Reverse resolves coordinates into display name, city and country. It never
// fails: provider errors produce an all-nil LocationMeta so forecasts keep
// flowing without location annotation.
func (s *Service) Reverse(ctx context.Context, lat, lon float64) LocationMeta {
	place, err := s.provider.Reverse(ctx, lat, lon)
	if err != nil {
		s.log.Warn("reverse geocode degraded", "lat", lat, "lon", lon, "error", err)
		return LocationMeta{}
	}
	return LocationMeta{
		DisplayName: optional(place.DisplayName),
		City:        optional(place.Address.CityName()),
		Country:     optional(place.Address.Country),
	}
}

// Search forwards a free-text query to the provider. Queries shorter than
// three characters are rejected; provider failures yield an empty result set
// rather than an error.
func (s *Service) Search(ctx context.Context, query string) ([]SearchResult, error) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < minQueryLength {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput,
			"query must be at least 3 characters long", nil)
	}

	places, err := s.provider.Search(ctx, q, searchLimit)
	if err != nil {
		s.log.Warn("geocode search degraded", "query", q, "error", err)
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(places))
	for _, p := range places {
		results = append(results, SearchResult{
			DisplayName: p.DisplayName,
			Lat:         p.Lat,
			Lon:         p.Lon,
			City:        p.Address.CityName(),
			Country:     p.Address.Country,
			Type:        p.Type,
			Importance:  p.Importance,
		})
	}
	return results, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
