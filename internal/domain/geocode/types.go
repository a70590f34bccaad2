package geocode

import "context"

// Provider is the upstream geocoding API (Nominatim-compatible).
type Provider interface {
	Reverse(ctx context.Context, lat, lon float64) (Place, error)
	Search(ctx context.Context, query string, limit int) ([]Place, error)
}

// Place is a raw provider result.
type Place struct {
	DisplayName string
	Lat         float64
	Lon         float64
	Type        string
	Importance  float64
	Address     Address
}

// Address carries the provider's structured address fields.
type Address struct {
	City    string
	Town    string
	Village string
	Country string
}

// CityName resolves the most specific populated-place name available.
func (a Address) CityName() string {
	switch {
	case a.City != "":
		return a.City
	case a.Town != "":
		return a.Town
	default:
		return a.Village
	}
}

// LocationMeta is the reduced reverse-geocoding shape embedded in forecast
// payloads. Fields are nil when the lookup degraded.
type LocationMeta struct {
	DisplayName *string `json:"display_name"`
	City        *string `json:"city"`
	Country     *string `json:"country"`
}

// SearchResult is the reduced shape returned by the search endpoint.
type SearchResult struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Type        string  `json:"type,omitempty"`
	Importance  float64 `json:"importance,omitempty"`
}
