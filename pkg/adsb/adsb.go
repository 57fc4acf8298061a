package adsb

import "time"

// Aircraft represents an aircraft observed via ADS-B.
// All position data is in WGS84 coordinate system.
type Aircraft struct {
	// ICAO is the unique 24-bit ICAO aircraft address (e.g., "A12345")
	ICAO string

	// Callsign is the flight number or aircraft registration.
	// Falls back to the ICAO address when the transponder sends none.
	Callsign string

	// Registration is the airframe registration when the feed reports it
	// (e.g., "N12345")
	Registration string

	// TypeCode is the ICAO aircraft type designator when the feed
	// reports it (e.g., "B738")
	TypeCode string

	// Latitude in decimal degrees (-90 to +90)
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64

	// Altitude in feet above mean sea level (MSL).
	// Aircraft on the ground report 0.
	Altitude float64

	// GroundSpeed in knots
	GroundSpeed float64

	// Track is the ground track (heading) in degrees (0-359)
	// 0 = North, 90 = East, 180 = South, 270 = West
	Track float64

	// VerticalRate in feet per minute (positive = climbing, negative = descending)
	VerticalRate float64

	// LastSeen is the timestamp of the last position update
	LastSeen time.Time
}

// HasPosition reports whether the aircraft carries a usable position fix.
func (a Aircraft) HasPosition() bool {
	return !(a.Latitude == 0 && a.Longitude == 0)
}

// DataSource is the interface that ADS-B feed providers must implement.
// This abstraction allows switching between a local SkyAware/dump1090
// receiver and other feed formats.
type DataSource interface {
	// GetAircraft returns all aircraft currently reported by the feed.
	GetAircraft() ([]Aircraft, error)

	// Close cleanly shuts down the data source connection.
	Close() error
}
