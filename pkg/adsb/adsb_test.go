package adsb

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

// TestNewSkyAwareClient tests client construction.
func TestNewSkyAwareClient(t *testing.T) {
	client := NewSkyAwareClient("http://receiver.local/skyaware/data/aircraft.json")

	if client == nil {
		t.Fatal("Expected client, got nil")
	}
	if client.url != "http://receiver.local/skyaware/data/aircraft.json" {
		t.Errorf("Unexpected url: %s", client.url)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", client.httpClient.Timeout)
	}
}

// TestGetAircraft tests fetching and parsing the feed.
func TestGetAircraft(t *testing.T) {
	t.Run("Successful request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			response := skyAwareResponse{
				Now: 1735000000.5,
				Aircraft: []skyAwareAircraft{
					{
						Hex:          "a12345",
						Flight:       strPtr("UAL123  "),
						Registration: strPtr("N12345"),
						TypeCode:     strPtr("B738"),
						Lat:          floatPtr(27.98),
						Lon:          floatPtr(-82.50),
						AltBaro:      30000.0,
						Gs:           floatPtr(450.0),
						Track:        floatPtr(90.0),
						BaroRate:     floatPtr(-500.0),
						Seen:         floatPtr(2.5),
					},
					{
						// No position fix: must be skipped
						Hex:     "b67890",
						AltBaro: 12000.0,
					},
				},
			}
			json.NewEncoder(w).Encode(response)
		}))
		defer server.Close()

		client := NewSkyAwareClient(server.URL)
		aircraft, err := client.GetAircraft()

		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(aircraft) != 1 {
			t.Fatalf("Expected 1 aircraft (positionless skipped), got %d", len(aircraft))
		}

		ac := aircraft[0]
		if ac.ICAO != "A12345" {
			t.Errorf("Expected ICAO A12345, got %s", ac.ICAO)
		}
		if ac.Callsign != "UAL123" {
			t.Errorf("Expected trimmed callsign UAL123, got %q", ac.Callsign)
		}
		if ac.Registration != "N12345" {
			t.Errorf("Expected registration N12345, got %s", ac.Registration)
		}
		if ac.TypeCode != "B738" {
			t.Errorf("Expected type code B738, got %s", ac.TypeCode)
		}
		if ac.Altitude != 30000.0 {
			t.Errorf("Expected altitude 30000, got %f", ac.Altitude)
		}
		if ac.VerticalRate != -500.0 {
			t.Errorf("Expected vertical rate -500, got %f", ac.VerticalRate)
		}
	})

	t.Run("Ground altitude string", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			response := skyAwareResponse{
				Aircraft: []skyAwareAircraft{
					{
						Hex:     "a11111",
						Lat:     floatPtr(27.97),
						Lon:     floatPtr(-82.45),
						AltBaro: "ground",
					},
				},
			}
			json.NewEncoder(w).Encode(response)
		}))
		defer server.Close()

		client := NewSkyAwareClient(server.URL)
		aircraft, err := client.GetAircraft()
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(aircraft) != 1 {
			t.Fatalf("Expected 1 aircraft, got %d", len(aircraft))
		}
		if aircraft[0].Altitude != 0 {
			t.Errorf("Expected altitude 0 for ground, got %f", aircraft[0].Altitude)
		}
	})

	t.Run("Empty callsign falls back to hex", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			response := skyAwareResponse{
				Aircraft: []skyAwareAircraft{
					{
						Hex: "abcdef",
						Lat: floatPtr(28.0),
						Lon: floatPtr(-82.4),
					},
				},
			}
			json.NewEncoder(w).Encode(response)
		}))
		defer server.Close()

		client := NewSkyAwareClient(server.URL)
		aircraft, err := client.GetAircraft()
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if aircraft[0].Callsign != "ABCDEF" {
			t.Errorf("Expected callsign fallback ABCDEF, got %s", aircraft[0].Callsign)
		}
	})

	t.Run("Server error with no snapshot", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewSkyAwareClient(server.URL)
		if _, err := client.GetAircraft(); err == nil {
			t.Error("Expected error when feed fails with no snapshot")
		}
	})
}

// TestSnapshotFallback tests that a failed fetch serves the last good snapshot.
func TestSnapshotFallback(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		response := skyAwareResponse{
			Aircraft: []skyAwareAircraft{
				{
					Hex:    "a12345",
					Flight: strPtr("DAL456"),
					Lat:    floatPtr(27.9),
					Lon:    floatPtr(-82.4),
				},
			},
		}
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := NewSkyAwareClient(server.URL)

	// First fetch succeeds and populates the snapshot
	first, err := client.GetAircraft()
	if err != nil {
		t.Fatalf("Expected no error on first fetch, got: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("Expected 1 aircraft, got %d", len(first))
	}

	if _, ok := client.SnapshotAge(); !ok {
		t.Error("Expected snapshot to exist after successful fetch")
	}

	// Second fetch fails; the snapshot must be served instead
	fail.Store(true)
	second, err := client.GetAircraft()
	if err != nil {
		t.Fatalf("Expected snapshot fallback without error, got: %v", err)
	}
	if len(second) != 1 || second[0].Callsign != "DAL456" {
		t.Errorf("Expected snapshot contents, got %+v", second)
	}
}
