// Package flightaware provides a client for the FlightAware AeroAPI v4.
//
// The AeroAPI provides access to flight tracking data, flight plans,
// aircraft information, and more. This client focuses on per-callsign
// flight lookups used to enrich live aircraft with origin, destination
// and aircraft type.
//
// API Documentation: https://www.flightaware.com/aeroapi/portal/documentation
// Rate Limits: Free tier allows 500 requests/month, paid tiers offer higher limits.
package flightaware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the FlightAware AeroAPI v4 base URL
	BaseURL = "https://aeroapi.flightaware.com/aeroapi"

	// DefaultTimeout for API requests
	DefaultTimeout = 5 * time.Second
)

// Client represents a FlightAware AeroAPI client.
//
// The built-in limiter is a transport-level floor that spaces requests
// out; daily and monthly spend policy is enforced by the caller.
type Client struct {
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
}

// Config contains configuration for the FlightAware client.
type Config struct {
	APIKey          string
	RequestsPerHour int
	Timeout         time.Duration

	// BaseURL overrides the production endpoint (used in tests)
	BaseURL string
}

// NewClient creates a new FlightAware AeroAPI client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.RequestsPerHour == 0 {
		// Conservative default for metered accounts
		cfg.RequestsPerHour = 20
	}

	// Convert requests per hour to rate limiter (allows burst of 1)
	requestsPerSecond := float64(cfg.RequestsPerHour) / 3600.0
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), 1)

	return &Client{
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: limiter,
		baseURL:     cfg.BaseURL,
	}
}

// Airport identifies an airport in a flight record.
type Airport struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Flight represents one flight entry returned by the AeroAPI
// /flights/{ident} endpoint.
type Flight struct {
	// Ident is the flight identifier (callsign)
	Ident string `json:"ident"`

	// Origin and Destination airports. The API nests the airport code
	// under "code" (e.g., "KTPA").
	Origin      Airport `json:"origin"`
	Destination Airport `json:"destination"`

	// AircraftType is the ICAO type designator (e.g., "B738").
	// Different API versions have reported the type under different
	// keys, hence the fallbacks below.
	AircraftType string `json:"aircraft_type"`

	Aircraft struct {
		Type string `json:"type"`
	} `json:"aircraft"`

	Type string `json:"type"`

	// Status is the flight status (e.g., "Scheduled", "Active", "Arrived")
	Status string `json:"status"`
}

// TypeDesignator returns the aircraft type, checking the fields the API
// has used across versions: aircraft_type, then aircraft.type, then type.
func (f *Flight) TypeDesignator() string {
	if f.AircraftType != "" {
		return f.AircraftType
	}
	if f.Aircraft.Type != "" {
		return f.Aircraft.Type
	}
	return f.Type
}

// GetFlightByCallsign retrieves the current flight for a given callsign.
//
// The callsign should be the aircraft's identifier (e.g., "UAL123").
// If multiple flights exist, this returns the most recent one.
//
// Returns nil, nil if no flight is found (not an error).
// Returns error for API failures or network issues.
func (c *Client) GetFlightByCallsign(ctx context.Context, callsign string) (*Flight, error) {
	// Wait for rate limiter
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	// AeroAPI endpoint: /flights/{ident}
	url := fmt.Sprintf("%s/flights/%s", c.baseURL, callsign)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// Handle HTTP errors
	if resp.StatusCode == 404 {
		return nil, nil // No flight found, not an error
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	// The endpoint normally returns {"flights": [...]}, but some
	// responses are a single flat object.
	var response struct {
		Flights []Flight `json:"flights"`
	}

	if err := json.Unmarshal(body, &response); err == nil && len(response.Flights) > 0 {
		return &response.Flights[0], nil
	}

	var single Flight
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if single.Ident == "" && single.TypeDesignator() == "" && single.Origin.Code == "" {
		return nil, nil // Empty response, no flight data
	}

	return &single, nil
}
