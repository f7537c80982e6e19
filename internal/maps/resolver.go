package maps

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/singleflight"
)

const (
	defaultRadiusMeters = 5000
	minRadiusMeters     = 2000
	maxRadiusMeters     = 50000

	earthRadiusMeters = 6371000
)

// countryMarkers are recognized country/region markers; when the area
// text already mentions one, no default country qualifier is appended.
var countryMarkers = []string{
	"việt nam", "vietnam",
	"france", "pháp",
	"usa", "mỹ",
	"japan", "nhật",
}

// Resolver turns a free-text area name into a search center and radius.
type Resolver struct {
	client *Client
	logger *slog.Logger
	group  singleflight.Group
}

// NewResolver creates an area resolver backed by the provider client.
func NewResolver(client *Client, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: client, logger: logger}
}

// Resolve geocodes an area name. The boolean reports whether the area
// was found; lookup failures are logged and reported as not found so
// the search pipeline degrades to an empty result instead of erroring.
// Concurrent lookups for the same query share a single upstream call.
func (r *Resolver) Resolve(ctx context.Context, area string) (*GeoPoint, bool) {
	query := qualifyArea(area)

	v, err, _ := r.group.Do(query, func() (interface{}, error) {
		return r.client.Geocode(ctx, query)
	})
	if err != nil {
		r.logger.Warn("geocode lookup failed", "area", area, "error", err)
		return nil, false
	}

	result, _ := v.(*geocodeResult)
	if result == nil {
		r.logger.Warn("area not geocodable", "area", area)
		return nil, false
	}

	loc := result.Geometry.Location
	point := &GeoPoint{
		Latitude:  loc.Lat,
		Longitude: loc.Lng,
		Radius:    defaultRadiusMeters,
	}

	if vp := result.Geometry.Viewport; vp != nil && vp.Northeast != nil {
		d := haversine(loc.Lat, loc.Lng, vp.Northeast.Lat, vp.Northeast.Lng)
		point.Radius = clampRadius(d * 1.2)
	}

	return point, true
}

// qualifyArea appends the default country unless the text already
// contains a recognized country marker.
func qualifyArea(area string) string {
	lower := strings.ToLower(area)
	for _, marker := range countryMarkers {
		if strings.Contains(lower, marker) {
			return area
		}
	}
	return area + ", Việt Nam"
}

func clampRadius(r float64) float64 {
	if r < minRadiusMeters {
		return minRadiusMeters
	}
	if r > maxRadiusMeters {
		return maxRadiusMeters
	}
	return r
}

// haversine returns the great-circle distance in meters between two
// coordinates given in degrees.
func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
