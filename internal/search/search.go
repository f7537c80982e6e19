// Package search composes area resolution and place aggregation into
// the area+keyword search operation.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/placechat/placechat/internal/maps"
)

// Query is a validated search request. Area is required; Keyword is
// optional and empty means "any place".
type Query struct {
	Area    string `json:"area"`
	Keyword string `json:"keyword,omitempty"`
}

// Place is one formatted entry of a search result.
type Place struct {
	PlaceID          string       `json:"placeId"`
	Name             string       `json:"name"`
	Rating           *float64     `json:"rating,omitempty"`
	UserRatingsTotal int          `json:"userRatingsTotal"`
	Address          string       `json:"address"`
	Types            []string     `json:"types"`
	PrimaryType      string       `json:"primaryType,omitempty"`
	Location         *maps.LatLng `json:"location,omitempty"`
}

// Result is the outcome of one search call. An unresolvable area yields
// TotalCount 0 and a nil Center rather than an error.
type Result struct {
	Area       string         `json:"area"`
	Keyword    string         `json:"keyword,omitempty"`
	Places     []Place        `json:"places"`
	TotalCount int            `json:"totalCount"`
	Center     *maps.GeoPoint `json:"centerLocation"`
}

// Orchestrator runs the resolve → search → rank-and-format pipeline.
type Orchestrator struct {
	resolver   *maps.Resolver
	aggregator *maps.Aggregator
	logger     *slog.Logger
}

// NewOrchestrator creates a search orchestrator.
func NewOrchestrator(resolver *maps.Resolver, aggregator *maps.Aggregator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{resolver: resolver, aggregator: aggregator, logger: logger}
}

// Run executes a search. "Area not found" and "no results" are both
// reported as an empty Result, never as an error.
func (o *Orchestrator) Run(ctx context.Context, q Query) (*Result, error) {
	result := &Result{
		Area:    q.Area,
		Keyword: q.Keyword,
		Places:  []Place{},
	}

	center, found := o.resolver.Resolve(ctx, q.Area)
	if !found {
		return result, nil
	}

	records := o.aggregator.Search(ctx, q.Area, q.Keyword, *center)

	places := make([]Place, 0, len(records))
	for _, rec := range records {
		types := rec.Types
		if types == nil {
			types = []string{}
		}
		places = append(places, Place{
			PlaceID:          rec.PlaceID,
			Name:             rec.Name,
			Rating:           rec.Rating,
			UserRatingsTotal: rec.UserRatingsTotal,
			Address:          FormatAddress(rec.FormattedAddress, q.Area),
			Types:            types,
			PrimaryType:      rec.PrimaryType,
			Location:         rec.Location,
		})
	}

	sort.SliceStable(places, func(i, j int) bool {
		return places[i].UserRatingsTotal > places[j].UserRatingsTotal
	})

	result.Places = places
	result.TotalCount = len(places)
	result.Center = center

	o.logger.Info("search completed", "area", q.Area, "keyword", q.Keyword, "total", result.TotalCount)
	return result, nil
}

// localeMarkers are city/region names whose presence marks an address
// as already self-describing. Matching is diacritic-insensitive.
var localeMarkers = []string{
	"viet nam", "vietnam",
	"ho chi minh", "hcm", "tp.hcm",
	"ha noi", "hn",
	"da lat", "lam dong",
	"vung tau", "ba ria",
	"da nang",
	"can tho",
	"hue", "thua thien",
}

// FormatAddress keeps a provider address as-is when it already names a
// recognizable locale; otherwise it appends the search area and the
// default country so the address stays self-describing.
func FormatAddress(address, area string) string {
	if strings.TrimSpace(address) == "" {
		return "N/A"
	}

	folded := foldDiacritics(strings.ToLower(address))
	for _, marker := range localeMarkers {
		if strings.Contains(folded, marker) {
			return address
		}
	}

	if area == "" {
		return address
	}
	return address + ", " + area + ", Việt Nam"
}

// diacriticFold maps Vietnamese accented letters onto their base Latin
// letter. Input is expected to be lowercased first.
var diacriticFold = map[rune]rune{}

func init() {
	groups := map[rune]string{
		'a': "àáạảãâầấậẩẫăằắặẳẵ",
		'e': "èéẹẻẽêềếệểễ",
		'i': "ìíịỉĩ",
		'o': "òóọỏõôồốộổỗơờớợởỡ",
		'u': "ùúụủũưừứựửữ",
		'y': "ỳýỵỷỹ",
		'd': "đ",
	}
	for base, variants := range groups {
		for _, r := range variants {
			diacriticFold[r] = base
		}
	}
}

func foldDiacritics(s string) string {
	return strings.Map(func(r rune) rune {
		if base, ok := diacriticFold[r]; ok {
			return base
		}
		return r
	}, s)
}
