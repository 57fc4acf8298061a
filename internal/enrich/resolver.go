package enrich

import (
	"context"
	"log"
	"time"

	"github.com/unklstewy/skygrid/internal/registry"
	"github.com/unklstewy/skygrid/pkg/flightaware"
)

// Record source labels.
const (
	SourceOfflineDB = "offline_db"
	SourceAPI       = "api"
	SourceUnknown   = "unknown"
)

// Record is the resolved metadata for one aircraft. Fields that could
// not be determined hold "Unknown".
type Record struct {
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	AircraftType string `json:"aircraft_type"`
	Registration string `json:"registration,omitempty"`
	Operator     string `json:"operator,omitempty"`
	Source       string `json:"source,omitempty"`
}

// unknownRecord returns a Record with the given aircraft type and
// everything else unresolved.
func unknownRecord(aircraftType string) Record {
	return Record{
		Origin:       "Unknown",
		Destination:  "Unknown",
		AircraftType: aircraftType,
		Source:       SourceUnknown,
	}
}

// AircraftLookup is the slice of the offline registry the resolver
// needs.
type AircraftLookup interface {
	LookupICAO24(ctx context.Context, icao24 string) (*registry.Aircraft, error)
	LookupRegistration(ctx context.Context, registration string) (*registry.Aircraft, error)
}

// FlightAPI is the slice of the AeroAPI client the resolver needs.
type FlightAPI interface {
	GetFlightByCallsign(ctx context.Context, callsign string) (*flightaware.Flight, error)
}

// Resolver turns callsigns and hex addresses into Records at
// controlled cost: offline registry first, then eligibility and
// budget gates, then the local cache, and only then a paid API call.
// Resolve never returns an error; a failed lookup degrades to the
// free callsign category.
type Resolver struct {
	Registry AircraftLookup // nil disables offline lookups
	API      FlightAPI      // nil when no API key is configured
	Cache    *Cache
	Budget   *Budget
	Elig     Eligibility

	// Enabled gates all API activity; offline lookups still run
	Enabled bool

	// CacheTTL bounds the age of cached Records
	CacheTTL time.Duration
}

// Resolve returns the best available metadata for an aircraft. The
// icao24 hex address may be empty; callsign drives the API path.
func (r *Resolver) Resolve(ctx context.Context, callsign, icao24 string) Record {
	category := r.Elig.Categorize(callsign)

	// Offline registry is free, so it always goes first and never
	// touches the budget
	if r.Registry != nil && icao24 != "" {
		if info := r.lookupOffline(ctx, icao24, callsign); info != nil {
			rec := Record{
				Origin:       "Unknown",
				Destination:  "Unknown",
				AircraftType: info.TypeDescription(),
				Registration: info.Registration,
				Operator:     info.Operator,
				Source:       SourceOfflineDB,
			}
			if rec.AircraftType == "" {
				rec.AircraftType = category
			}
			return rec
		}
	}

	if !r.Enabled || r.API == nil {
		return unknownRecord(category)
	}
	if !r.Elig.WorthFetching(callsign) {
		return unknownRecord(category)
	}
	if !r.Budget.Allow() {
		return unknownRecord(category)
	}

	cacheKey := "flight_plan_" + callsign
	var cached Record
	if r.Cache != nil && r.Cache.Get(cacheKey, r.CacheTTL, &cached) {
		return cached
	}

	flight, err := r.API.GetFlightByCallsign(ctx, callsign)
	if err != nil {
		log.Printf("enrich: flight plan fetch failed for %s: %v", callsign, err)
		return unknownRecord("Unknown")
	}
	if flight == nil {
		return unknownRecord("Unknown")
	}

	rec := Record{
		Origin:       valueOr(flight.Origin.Code, "Unknown"),
		Destination:  valueOr(flight.Destination.Code, "Unknown"),
		AircraftType: valueOr(flight.TypeDesignator(), "Unknown"),
		Source:       SourceAPI,
	}
	if r.Cache != nil {
		if err := r.Cache.Set(cacheKey, rec); err != nil {
			log.Printf("enrich: failed to cache flight plan for %s: %v", callsign, err)
		}
	}
	r.Budget.Record()
	log.Printf("enrich: fetched flight plan for %s: %s -> %s (%s)",
		callsign, rec.Origin, rec.Destination, rec.AircraftType)
	return rec
}

// IsCached reports whether a fresh Record exists for the callsign.
// Used by callers to avoid queueing work that would only hit cache.
func (r *Resolver) IsCached(callsign string) bool {
	if r.Cache == nil {
		return false
	}
	var rec Record
	return r.Cache.Get("flight_plan_"+callsign, r.CacheTTL, &rec)
}

// lookupOffline tries the registry by hex address, then by the
// callsign in case it is a tail number.
func (r *Resolver) lookupOffline(ctx context.Context, icao24, callsign string) *registry.Aircraft {
	info, err := r.Registry.LookupICAO24(ctx, icao24)
	if err != nil {
		log.Printf("enrich: registry lookup failed for %s: %v", icao24, err)
		return nil
	}
	if info == nil && callsign != "" {
		info, err = r.Registry.LookupRegistration(ctx, callsign)
		if err != nil {
			log.Printf("enrich: registry lookup failed for %s: %v", callsign, err)
			return nil
		}
	}
	return info
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
