package maps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func place(id, name string, ratings int) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"displayName":      map[string]string{"text": name},
		"formattedAddress": name + " street",
		"userRatingCount":  ratings,
	}
}

func newTestAggregator(srvURL string) *Aggregator {
	a := NewAggregator(NewClient("k", WithTextSearchURL(srvURL)), nil)
	a.pageDelay = time.Millisecond
	return a
}

func TestAggregatorSearch(t *testing.T) {
	center := GeoPoint{Latitude: 10.8, Longitude: 106.7, Radius: 5000}

	t.Run("paginates and deduplicates", func(t *testing.T) {
		var tokens []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req textSearchRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			tokens = append(tokens, req.PageToken)

			switch req.PageToken {
			case "":
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"places":        []interface{}{place("a", "A", 10), place("b", "B", 20)},
					"nextPageToken": "page2",
				})
			case "page2":
				// "b" repeats across the page boundary and must be dropped.
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"places": []interface{}{place("b", "B", 20), place("c", "C", 30)},
				})
			}
		}))
		defer srv.Close()

		got := newTestAggregator(srv.URL).Search(context.Background(), "Quận 1", "cafe", center)

		if len(got) != 3 {
			t.Fatalf("expected 3 unique places, got %d", len(got))
		}
		seen := map[string]bool{}
		for _, p := range got {
			if seen[p.PlaceID] {
				t.Errorf("duplicate place id %q", p.PlaceID)
			}
			seen[p.PlaceID] = true
		}
		if len(tokens) != 2 || tokens[1] != "page2" {
			t.Errorf("unexpected token sequence %v", tokens)
		}
	})

	t.Run("stops on repeating token", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"places":        []interface{}{place("x", "X", 1), place("y", "Y", 2)},
				"nextPageToken": "same",
			})
		}))
		defer srv.Close()

		got := newTestAggregator(srv.URL).Search(context.Background(), "Quận 1", "", center)

		// First page with token "", second page repeats token "same":
		// dedup yields no new results, which terminates the loop.
		if calls != 2 {
			t.Errorf("expected 2 page requests, got %d", calls)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 places, got %d", len(got))
		}
	})

	t.Run("page error returns partial results", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"places":        []interface{}{place("a", "A", 5)},
					"nextPageToken": "page2",
				})
				return
			}
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		got := newTestAggregator(srv.URL).Search(context.Background(), "Quận 1", "cafe", center)
		if len(got) != 1 || got[0].PlaceID != "a" {
			t.Errorf("expected partial result [a], got %+v", got)
		}
	})

	t.Run("empty first page", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"places": []interface{}{}})
		}))
		defer srv.Close()

		got := newTestAggregator(srv.URL).Search(context.Background(), "Quận 1", "cafe", center)
		if len(got) != 0 {
			t.Errorf("expected no places, got %d", len(got))
		}
	})

	t.Run("blank place ids are skipped", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"places": []interface{}{place("", "Anonymous", 1), place("ok", "OK", 2)},
			})
		}))
		defer srv.Close()

		got := newTestAggregator(srv.URL).Search(context.Background(), "Quận 1", "", center)
		if len(got) != 1 || got[0].PlaceID != "ok" {
			t.Errorf("expected only the id-bearing place, got %+v", got)
		}
	})

	t.Run("combined query and region code", func(t *testing.T) {
		var got textSearchRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"places": []interface{}{}})
		}))
		defer srv.Close()

		newTestAggregator(srv.URL).Search(context.Background(), "Paris, Pháp", "bánh mì", center)
		if got.TextQuery != "bánh mì Paris, Pháp" {
			t.Errorf("textQuery = %q", got.TextQuery)
		}
		if got.RegionCode != "FR" {
			t.Errorf("regionCode = %q, want FR", got.RegionCode)
		}
		if got.LocationBias == nil || got.LocationBias.Circle.Radius != 5000 {
			t.Errorf("unexpected location bias %+v", got.LocationBias)
		}
	})

	t.Run("keyword optional", func(t *testing.T) {
		var got textSearchRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"places": []interface{}{}})
		}))
		defer srv.Close()

		newTestAggregator(srv.URL).Search(context.Background(), "Quận 1", "", center)
		if got.TextQuery != "Quận 1" {
			t.Errorf("textQuery = %q, want bare area", got.TextQuery)
		}
	})
}
