package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/pvforge/helios/pkg/errors"
)

type stubProvider struct {
	reverseFn func(ctx context.Context, lat, lon float64) (Place, error)
	searchFn  func(ctx context.Context, query string, limit int) ([]Place, error)
}

func (s *stubProvider) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	return s.reverseFn(ctx, lat, lon)
}

func (s *stubProvider) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	return s.searchFn(ctx, query, limit)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReverseNeverFails(t *testing.T) {
	svc := NewService(&stubProvider{
		reverseFn: func(context.Context, float64, float64) (Place, error) {
			return Place{}, errors.New("provider down")
		},
	}, newTestLogger())

	meta := svc.Reverse(context.Background(), 37.7749, -122.4194)
	require.Nil(t, meta.DisplayName)
	require.Nil(t, meta.City)
	require.Nil(t, meta.Country)
}

func TestReverseResolvesCityFallbackChain(t *testing.T) {
	cases := []struct {
		name    string
		address Address
		want    string
	}{
		{"city wins", Address{City: "San Francisco", Town: "T", Village: "V"}, "San Francisco"},
		{"town next", Address{Town: "Wandiligong", Village: "V"}, "Wandiligong"},
		{"village last", Address{Village: "Smallsville"}, "Smallsville"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(&stubProvider{
				reverseFn: func(context.Context, float64, float64) (Place, error) {
					return Place{DisplayName: "somewhere", Address: tc.address}, nil
				},
			}, newTestLogger())

			meta := svc.Reverse(context.Background(), 1, 2)
			require.NotNil(t, meta.City)
			require.Equal(t, tc.want, *meta.City)
		})
	}
}

func TestReverseOmitsEmptyFields(t *testing.T) {
	svc := NewService(&stubProvider{
		reverseFn: func(context.Context, float64, float64) (Place, error) {
			return Place{DisplayName: "open ocean"}, nil
		},
	}, newTestLogger())

	meta := svc.Reverse(context.Background(), 0, 0)
	require.NotNil(t, meta.DisplayName)
	require.Equal(t, "open ocean", *meta.DisplayName)
	require.Nil(t, meta.City)
	require.Nil(t, meta.Country)
}

func TestSearchRejectsShortQueries(t *testing.T) {
	svc := NewService(&stubProvider{
		searchFn: func(context.Context, string, int) ([]Place, error) {
			t.Fatal("provider must not be called")
			return nil, nil
		},
	}, newTestLogger())

	for _, q := range []string{"", "ab", "  ab  ", "\t\n"} {
		_, err := svc.Search(context.Background(), q)
		require.Error(t, err, "query %q", q)
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput), "query %q", q)
	}
}

func TestSearchDegradesToEmptyOnProviderFailure(t *testing.T) {
	svc := NewService(&stubProvider{
		searchFn: func(context.Context, string, int) ([]Place, error) {
			return nil, errors.New("timeout")
		},
	}, newTestLogger())

	results, err := svc.Search(context.Background(), "melbourne")
	require.NoError(t, err)
	require.Empty(t, results)
	require.NotNil(t, results)
}

func TestSearchMapsProviderResults(t *testing.T) {
	svc := NewService(&stubProvider{
		searchFn: func(_ context.Context, query string, limit int) ([]Place, error) {
			require.Equal(t, "melbourne", query)
			require.Equal(t, 5, limit)
			return []Place{
				{
					DisplayName: "Melbourne, Victoria, Australia",
					Lat:         -37.8136, Lon: 144.9631,
					Type: "city", Importance: 0.9,
					Address: Address{City: "Melbourne", Country: "Australia"},
				},
				{
					DisplayName: "Melbourne, FL, USA",
					Lat:         28.0836, Lon: -80.6081,
					Type: "city", Importance: 0.6,
					Address: Address{Town: "Melbourne", Country: "United States"},
				},
			}, nil
		},
	}, newTestLogger())

	results, err := svc.Search(context.Background(), "  melbourne  ")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "Melbourne, Victoria, Australia", results[0].DisplayName)
	require.Equal(t, -37.8136, results[0].Lat)
	require.Equal(t, 144.9631, results[0].Lon)
	require.Equal(t, "Melbourne", results[0].City)
	require.Equal(t, "Australia", results[0].Country)
	require.Equal(t, "city", results[0].Type)
	require.Equal(t, "Melbourne", results[1].City)
	require.Equal(t, "United States", results[1].Country)
}
