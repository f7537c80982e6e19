package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultGeocodeURL    = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultTextSearchURL = "https://places.googleapis.com/v1/places:searchText"

	// Field mask for text search; nextPageToken is required for pagination.
	textSearchFieldMask = "places.id,places.displayName,places.formattedAddress,places.rating,places.userRatingCount,places.types,places.primaryType,places.location,nextPageToken"

	maxResponseSize int64 = 4 * 1024 * 1024
)

// Client talks to the mapping provider's geocoding and place-search APIs.
type Client struct {
	apiKey        string
	geocodeURL    string
	textSearchURL string
	httpClient    *http.Client
}

// ClientOption configures the provider client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(m *Client) { m.httpClient = c }
}

// WithGeocodeURL overrides the geocoding endpoint.
func WithGeocodeURL(u string) ClientOption {
	return func(m *Client) { m.geocodeURL = u }
}

// WithTextSearchURL overrides the text-search endpoint.
func WithTextSearchURL(u string) ClientOption {
	return func(m *Client) { m.textSearchURL = u }
}

// NewClient creates a mapping-provider client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:        apiKey,
		geocodeURL:    defaultGeocodeURL,
		textSearchURL: defaultTextSearchURL,
		httpClient:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- geocoding wire types ---

type geocodeResponse struct {
	Status  string          `json:"status"`
	Results []geocodeResult `json:"results"`
}

type geocodeResult struct {
	Geometry geocodeGeometry `json:"geometry"`
}

type geocodeGeometry struct {
	Location geocodeLatLng    `json:"location"`
	Viewport *geocodeViewport `json:"viewport,omitempty"`
}

type geocodeViewport struct {
	Northeast *geocodeLatLng `json:"northeast,omitempty"`
}

type geocodeLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocode looks up a free-text address. A non-OK status or empty result
// set is reported as a nil result, not an error.
func (c *Client) Geocode(ctx context.Context, address string) (*geocodeResult, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.apiKey)
	q.Set("language", "vi")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.geocodeURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: HTTP %d", resp.StatusCode)
	}

	var data geocodeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&data); err != nil {
		return nil, fmt.Errorf("geocode: decode response: %w", err)
	}

	if data.Status != "OK" || len(data.Results) == 0 {
		return nil, nil
	}
	return &data.Results[0], nil
}

// --- text search wire types ---

type textSearchRequest struct {
	TextQuery      string        `json:"textQuery"`
	MaxResultCount int           `json:"maxResultCount"`
	LanguageCode   string        `json:"languageCode"`
	RegionCode     string        `json:"regionCode"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
	PageToken      string        `json:"pageToken,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type textSearchResponse struct {
	Places        []rawPlace `json:"places"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

type rawPlace struct {
	ID               string       `json:"id"`
	DisplayName      *displayName `json:"displayName,omitempty"`
	FormattedAddress string       `json:"formattedAddress"`
	Rating           *float64     `json:"rating,omitempty"`
	UserRatingCount  int          `json:"userRatingCount"`
	Types            []string     `json:"types"`
	PrimaryType      string       `json:"primaryType"`
	Location         *LatLng      `json:"location,omitempty"`
}

type displayName struct {
	Text string `json:"text"`
}

// SearchText issues one text-search page request.
func (c *Client) SearchText(ctx context.Context, req textSearchRequest) (*textSearchResponse, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, fmt.Errorf("text search: api key not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("text search: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.textSearchURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("text search: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", textSearchFieldMask)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("text search: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("text search: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("text search: HTTP %d: %s", resp.StatusCode, truncateForLog(raw))
	}

	var data textSearchResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("text search: decode response: %w", err)
	}
	return &data, nil
}

func truncateForLog(b []byte) string {
	const max = 500
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "…"
}

func mapRawPlace(p rawPlace) PlaceRecord {
	name := ""
	if p.DisplayName != nil {
		name = p.DisplayName.Text
	}
	return PlaceRecord{
		PlaceID:          p.ID,
		Name:             name,
		Rating:           p.Rating,
		UserRatingsTotal: p.UserRatingCount,
		FormattedAddress: p.FormattedAddress,
		Types:            p.Types,
		PrimaryType:      p.PrimaryType,
		Location:         p.Location,
	}
}
