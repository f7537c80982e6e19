package maps

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func geocodeServer(t *testing.T, handler func(r *http.Request) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(handler(r))
	}))
}

func TestResolverResolve(t *testing.T) {
	t.Run("appends country qualifier", func(t *testing.T) {
		var gotAddress string
		srv := geocodeServer(t, func(r *http.Request) interface{} {
			gotAddress = r.URL.Query().Get("address")
			return map[string]interface{}{
				"status": "OK",
				"results": []map[string]interface{}{
					{"geometry": map[string]interface{}{"location": map[string]float64{"lat": 10.8, "lng": 106.7}}},
				},
			}
		})
		defer srv.Close()

		r := NewResolver(NewClient("k", WithGeocodeURL(srv.URL)), nil)
		if _, ok := r.Resolve(context.Background(), "Thủ Đức"); !ok {
			t.Fatal("expected area to resolve")
		}
		if gotAddress != "Thủ Đức, Việt Nam" {
			t.Errorf("address = %q, want country qualifier appended", gotAddress)
		}
	})

	t.Run("keeps existing country marker", func(t *testing.T) {
		var gotAddress string
		srv := geocodeServer(t, func(r *http.Request) interface{} {
			gotAddress = r.URL.Query().Get("address")
			return map[string]interface{}{
				"status": "OK",
				"results": []map[string]interface{}{
					{"geometry": map[string]interface{}{"location": map[string]float64{"lat": 48.85, "lng": 2.35}}},
				},
			}
		})
		defer srv.Close()

		r := NewResolver(NewClient("k", WithGeocodeURL(srv.URL)), nil)
		r.Resolve(context.Background(), "Paris, France")
		if gotAddress != "Paris, France" {
			t.Errorf("address = %q, want unchanged", gotAddress)
		}
	})

	t.Run("default radius without viewport", func(t *testing.T) {
		srv := geocodeServer(t, func(r *http.Request) interface{} {
			return map[string]interface{}{
				"status": "OK",
				"results": []map[string]interface{}{
					{"geometry": map[string]interface{}{"location": map[string]float64{"lat": 10.8, "lng": 106.7}}},
				},
			}
		})
		defer srv.Close()

		r := NewResolver(NewClient("k", WithGeocodeURL(srv.URL)), nil)
		point, ok := r.Resolve(context.Background(), "Quận 1")
		if !ok {
			t.Fatal("expected area to resolve")
		}
		if point.Radius != defaultRadiusMeters {
			t.Errorf("radius = %v, want exactly %v", point.Radius, defaultRadiusMeters)
		}
	})

	t.Run("viewport radius is derived and clamped", func(t *testing.T) {
		srv := geocodeServer(t, func(r *http.Request) interface{} {
			return map[string]interface{}{
				"status": "OK",
				"results": []map[string]interface{}{
					{"geometry": map[string]interface{}{
						"location": map[string]float64{"lat": 10.0, "lng": 106.0},
						// NE corner ~2 degrees away, far beyond the 50km cap.
						"viewport": map[string]interface{}{
							"northeast": map[string]float64{"lat": 12.0, "lng": 108.0},
						},
					}},
				},
			}
		})
		defer srv.Close()

		r := NewResolver(NewClient("k", WithGeocodeURL(srv.URL)), nil)
		point, ok := r.Resolve(context.Background(), "Đà Lạt")
		if !ok {
			t.Fatal("expected area to resolve")
		}
		if point.Radius != maxRadiusMeters {
			t.Errorf("radius = %v, want clamped to %v", point.Radius, maxRadiusMeters)
		}
	})

	t.Run("tiny viewport clamps up to minimum", func(t *testing.T) {
		srv := geocodeServer(t, func(r *http.Request) interface{} {
			return map[string]interface{}{
				"status": "OK",
				"results": []map[string]interface{}{
					{"geometry": map[string]interface{}{
						"location": map[string]float64{"lat": 10.0, "lng": 106.0},
						"viewport": map[string]interface{}{
							"northeast": map[string]float64{"lat": 10.001, "lng": 106.001},
						},
					}},
				},
			}
		})
		defer srv.Close()

		r := NewResolver(NewClient("k", WithGeocodeURL(srv.URL)), nil)
		point, _ := r.Resolve(context.Background(), "Phường nhỏ")
		if point.Radius != minRadiusMeters {
			t.Errorf("radius = %v, want clamped to %v", point.Radius, minRadiusMeters)
		}
	})

	t.Run("non-OK status is not found", func(t *testing.T) {
		srv := geocodeServer(t, func(r *http.Request) interface{} {
			return map[string]interface{}{"status": "ZERO_RESULTS", "results": []interface{}{}}
		})
		defer srv.Close()

		r := NewResolver(NewClient("k", WithGeocodeURL(srv.URL)), nil)
		if _, ok := r.Resolve(context.Background(), "Nơi không tồn tại"); ok {
			t.Error("expected not found")
		}
	})

	t.Run("transport error is not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		r := NewResolver(NewClient("k", WithGeocodeURL(srv.URL)), nil)
		if _, ok := r.Resolve(context.Background(), "Quận 1"); ok {
			t.Error("expected not found on upstream failure")
		}
	})
}

func TestHaversine(t *testing.T) {
	// Hà Nội → Hồ Chí Minh City is roughly 1140-1160 km.
	d := haversine(21.0278, 105.8342, 10.8231, 106.6297)
	if d < 1.10e6 || d > 1.20e6 {
		t.Errorf("haversine = %v m, want ~1.14e6", d)
	}

	if d := haversine(10, 106, 10, 106); math.Abs(d) > 1e-9 {
		t.Errorf("zero distance = %v, want 0", d)
	}
}

func TestClampRadius(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{100, minRadiusMeters},
		{2000, 2000},
		{12345, 12345},
		{50000, 50000},
		{90000, maxRadiusMeters},
	}
	for _, tt := range tests {
		if got := clampRadius(tt.in); got != tt.want {
			t.Errorf("clampRadius(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
