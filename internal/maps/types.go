// Package maps implements the mapping-provider client, area resolution,
// and paginated place search for placechat.
package maps

// GeoPoint is a resolved search center: coordinate plus radius in meters.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
}

// LatLng is a bare coordinate pair in degrees.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PlaceRecord is one normalized place returned by the search provider.
// Records are created per search call and never mutated afterwards.
type PlaceRecord struct {
	PlaceID          string   `json:"placeId"`
	Name             string   `json:"name"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal int      `json:"userRatingsTotal"`
	FormattedAddress string   `json:"formattedAddress"`
	Types            []string `json:"types"`
	PrimaryType      string   `json:"primaryType,omitempty"`
	Location         *LatLng  `json:"location,omitempty"`
}
