package adsb

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SkyAwareClient implements the DataSource interface for a local
// dump1090/SkyAware receiver serving aircraft.json.
//
// The receiver republishes its full aircraft table roughly once per
// second. Because the receiver is on the local network and occasionally
// restarts, the client keeps the last good snapshot and serves it when a
// fetch fails, so a momentary receiver outage does not blank the display.
type SkyAwareClient struct {
	// url is the full aircraft.json endpoint
	url string

	// httpClient is the HTTP client used for feed requests
	httpClient *http.Client

	mu sync.Mutex

	// lastSnapshot is the most recent successfully parsed aircraft set
	lastSnapshot []Aircraft

	// lastSnapshotTime is when lastSnapshot was fetched
	lastSnapshotTime time.Time
}

// NewSkyAwareClient creates a client for a SkyAware aircraft.json endpoint.
// url should be the full endpoint, e.g.
// "http://192.168.1.30/skyaware/data/aircraft.json".
func NewSkyAwareClient(url string) *SkyAwareClient {
	return &SkyAwareClient{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetAircraft returns all aircraft currently reported by the receiver.
//
// On fetch or parse failure the previous snapshot is returned instead,
// if one exists; only a failure with no snapshot available is an error.
func (c *SkyAwareClient) GetAircraft() ([]Aircraft, error) {
	aircraft, err := c.fetch()
	if err != nil {
		c.mu.Lock()
		snapshot := c.lastSnapshot
		c.mu.Unlock()

		if snapshot != nil {
			return snapshot, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.lastSnapshot = aircraft
	c.lastSnapshotTime = time.Now().UTC()
	c.mu.Unlock()

	return aircraft, nil
}

// SnapshotAge returns how old the cached aircraft snapshot is.
// Returns false if no snapshot has been fetched yet.
func (c *SkyAwareClient) SnapshotAge() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastSnapshotTime.IsZero() {
		return 0, false
	}
	return time.Since(c.lastSnapshotTime), true
}

// Close cleanly shuts down the client.
// For SkyAware, this is a no-op as there are no persistent connections.
func (c *SkyAwareClient) Close() error {
	return nil
}

// fetch performs one feed request and parses the response.
func (c *SkyAwareClient) fetch() ([]Aircraft, error) {
	resp, err := c.httpClient.Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch aircraft data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var feed skyAwareResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed response: %w", err)
	}

	aircraft := make([]Aircraft, 0, len(feed.Aircraft))
	for _, ac := range feed.Aircraft {
		// Skip aircraft without a position fix
		if ac.Lat == nil || ac.Lon == nil {
			continue
		}
		aircraft = append(aircraft, convertSkyAwareAircraft(ac))
	}

	return aircraft, nil
}

// skyAwareResponse represents the aircraft.json document published by
// dump1090/SkyAware.
type skyAwareResponse struct {
	// Now is the feed timestamp (Unix seconds, fractional)
	Now float64 `json:"now"`

	// Messages is the total Mode S message count
	Messages int64 `json:"messages"`

	// Aircraft is the array of currently tracked aircraft
	Aircraft []skyAwareAircraft `json:"aircraft"`
}

// skyAwareAircraft represents a single aircraft entry in aircraft.json.
// Field reference: https://github.com/flightaware/dump1090/blob/master/README-json.md
type skyAwareAircraft struct {
	// Hex is the ICAO Mode S hex code (e.g., "a12345")
	Hex string `json:"hex"`

	// Flight is the callsign/flight number, space padded
	Flight *string `json:"flight"`

	// Registration (tail number) when known
	Registration *string `json:"r"`

	// TypeCode is the ICAO aircraft type designator when known
	TypeCode *string `json:"t"`

	// Lat is latitude in decimal degrees
	Lat *float64 `json:"lat"`

	// Lon is longitude in decimal degrees
	Lon *float64 `json:"lon"`

	// AltBaro is barometric altitude in feet
	// Note: Can be string "ground" or float
	AltBaro interface{} `json:"alt_baro"`

	// AltGeom is geometric (GPS) altitude in feet
	// Note: Can be string "ground" or float
	AltGeom interface{} `json:"alt_geom"`

	// Gs is ground speed in knots
	Gs *float64 `json:"gs"`

	// Track is ground track in degrees (0-360)
	Track *float64 `json:"track"`

	// BaroRate is barometric vertical rate in feet/minute
	BaroRate *float64 `json:"baro_rate"`

	// Seen is seconds since the last message
	Seen *float64 `json:"seen"`
}

// convertSkyAwareAircraft converts a feed entry to our Aircraft type.
func convertSkyAwareAircraft(ac skyAwareAircraft) Aircraft {
	aircraft := Aircraft{
		ICAO: strings.ToUpper(strings.TrimSpace(ac.Hex)),
	}

	// Callsign (feed pads with trailing spaces); fall back to the hex
	// address so every aircraft has a display identifier
	if ac.Flight != nil {
		aircraft.Callsign = strings.TrimSpace(*ac.Flight)
	}
	if aircraft.Callsign == "" {
		aircraft.Callsign = aircraft.ICAO
	}

	if ac.Registration != nil {
		aircraft.Registration = strings.TrimSpace(*ac.Registration)
	}
	if ac.TypeCode != nil {
		aircraft.TypeCode = strings.TrimSpace(*ac.TypeCode)
	}

	// Position
	if ac.Lat != nil {
		aircraft.Latitude = *ac.Lat
	}
	if ac.Lon != nil {
		aircraft.Longitude = *ac.Lon
	}

	// Altitude - prefer barometric, fall back to geometric.
	// Handle interface{} which can be float64 or string ("ground").
	if alt := parseAltitude(ac.AltBaro); alt != nil {
		aircraft.Altitude = *alt
	} else if alt := parseAltitude(ac.AltGeom); alt != nil {
		aircraft.Altitude = *alt
	}

	// Velocity
	if ac.Gs != nil {
		aircraft.GroundSpeed = *ac.Gs
	}
	if ac.Track != nil {
		aircraft.Track = *ac.Track
	}
	if ac.BaroRate != nil {
		aircraft.VerticalRate = *ac.BaroRate
	}

	// Timestamp - calculate from "seen" seconds ago
	if ac.Seen != nil {
		seenDuration := time.Duration(*ac.Seen * float64(time.Second))
		aircraft.LastSeen = time.Now().UTC().Add(-seenDuration)
	} else {
		aircraft.LastSeen = time.Now().UTC()
	}

	return aircraft
}

// parseAltitude safely extracts altitude from interface{} which can be float64 or string.
// "ground" maps to altitude 0; anything else unexpected returns nil.
func parseAltitude(val interface{}) *float64 {
	if val == nil {
		return nil
	}

	switch v := val.(type) {
	case float64:
		return &v
	case string:
		if v == "ground" {
			zero := 0.0
			return &zero
		}
		return nil
	default:
		return nil
	}
}
