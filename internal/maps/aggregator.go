package maps

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// pageTokenDelay is how long the provider needs before a freshly issued
// continuation token becomes usable.
const pageTokenDelay = 2 * time.Second

// Aggregator pages through a text search, deduplicating results by
// provider id and normalizing them to PlaceRecords.
type Aggregator struct {
	client    *Client
	logger    *slog.Logger
	pageDelay time.Duration
}

// NewAggregator creates a place-search aggregator.
func NewAggregator(client *Client, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		client:    client,
		logger:    logger,
		pageDelay: pageTokenDelay,
	}
}

// Search collects every page of a text search biased toward center.
// Page errors abort the loop but return whatever has accumulated;
// a repeating token or a page with no new results also terminates.
func (a *Aggregator) Search(ctx context.Context, area, keyword string, center GeoPoint) []PlaceRecord {
	textQuery := strings.TrimSpace(keyword + " " + area)
	regionCode := regionCodeFor(area)

	var (
		results   []PlaceRecord
		seen      = make(map[string]struct{})
		pageToken string
	)

	for {
		page, err := a.client.SearchText(ctx, textSearchRequest{
			TextQuery:      textQuery,
			MaxResultCount: 20,
			LanguageCode:   "vi",
			RegionCode:     regionCode,
			LocationBias: &locationBias{
				Circle: circle{
					Center: LatLng{Latitude: center.Latitude, Longitude: center.Longitude},
					Radius: center.Radius,
				},
			},
			PageToken: pageToken,
		})
		if err != nil {
			a.logger.Warn("place search page failed", "query", textQuery, "error", err, "collected", len(results))
			return results
		}
		if len(page.Places) == 0 {
			return results
		}

		added := 0
		for _, raw := range page.Places {
			rec := mapRawPlace(raw)
			if rec.PlaceID == "" {
				continue
			}
			if _, dup := seen[rec.PlaceID]; dup {
				continue
			}
			seen[rec.PlaceID] = struct{}{}
			results = append(results, rec)
			added++
		}

		next := strings.TrimSpace(page.NextPageToken)
		if next == "" || next == pageToken || added == 0 {
			return results
		}
		pageToken = next

		// Continuation tokens need a moment to activate.
		select {
		case <-ctx.Done():
			a.logger.Warn("place search canceled", "query", textQuery, "collected", len(results))
			return results
		case <-time.After(a.pageDelay):
		}
	}
}

func regionCodeFor(area string) string {
	lower := strings.ToLower(area)
	if strings.Contains(lower, "france") || strings.Contains(lower, "pháp") {
		return "FR"
	}
	return "VN"
}
