// Package enrich resolves aircraft identifiers to flight details at
// controlled cost: a free offline registry first, then a spend-capped
// FlightAware AeroAPI fallback, with deferred lookups drained by a
// background queue.
package enrich

import "strings"

// Built-in callsign prefix tiers. API lookups are restricted to
// operators likely to have filed flight plans; everything else gets the
// free category heuristic only.
var (
	// majorUSAirlines are ICAO/IATA prefixes of major US carriers
	majorUSAirlines = []string{
		"AAL", "UAL", "DAL", "SWA", "JBU", "B6", "WN", "AA", "UA", "DL",
		"ASQ", "ENY", "FFT", "NKS", "F9", "G4",
	}

	// internationalAirlines are prefixes of major non-US carriers
	internationalAirlines = []string{
		"BAW", "AFR", "LUF", "KLM", "SAS", "IBE", "EZY", "RYR", "WZZ",
		"EIN", "DLH", "AUA", "SWR", "AZA", "IBB", "VLG", "TAP",
	}

	// cargoAirlines are prefixes of cargo carriers
	cargoAirlines = []string{
		"UPS", "FDX", "GTI", "ABX", "CPZ", "DHL", "TNT", "QFA", "SIA", "CAL",
		"CARGO",
	}

	// countryRegistrations are registration prefixes of non-US
	// registries, which often indicate international routes
	countryRegistrations = []string{
		"G-", "F-", "D-", "I-", "HB-", "OE-", "PH-", "SE-", "LN-", "OY-",
		"VH-", "C-G", "C-F", "JA-", "B-", "HL-", "9V-", "A6-", "VT-",
		"PK-", "HS-", "RP-", "ZS-", "4X-", "SU-", "RA-", "UR-", "EW-",
		"S7-", "U6-", "FV-", "DP-",
	}

	// militaryPrefixes identify military traffic
	militaryPrefixes = []string{
		"C-", "CF-", "AF-", "NATO-", "USAF-", "USN-", "USMC-", "USCG-",
		"RAZOR", "VADER", "SPIRIT",
	}
)

// Eligibility decides which callsigns justify a paid API lookup and
// assigns free category labels from callsign patterns.
type Eligibility struct {
	// MinCallsignLength filters out short/garbage callsigns
	MinCallsignLength int

	// ExtraPrefixes adds operator prefixes beyond the built-in tiers
	ExtraPrefixes []string
}

// hasAnyPrefix reports whether s starts with any of the prefixes.
func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// WorthFetching reports whether a callsign justifies spending an API
// call. Airline, cargo and foreign-registered traffic qualifies;
// private N-numbers and military traffic does not.
func (e Eligibility) WorthFetching(callsign string) bool {
	minLen := e.MinCallsignLength
	if minLen <= 0 {
		minLen = 4
	}
	if len(callsign) < minLen {
		return false
	}

	cs := strings.ToUpper(callsign)

	if hasAnyPrefix(cs, majorUSAirlines) {
		return true
	}
	if hasAnyPrefix(cs, internationalAirlines) {
		return true
	}
	if hasAnyPrefix(cs, cargoAirlines) {
		return true
	}
	if hasAnyPrefix(cs, e.upperExtra()) {
		return true
	}
	if hasAnyPrefix(cs, countryRegistrations) {
		return true
	}

	// Everything else (N-numbers, military, unrecognized) is skipped
	// to keep spend on traffic with filed plans
	return false
}

// Categorize assigns a coarse traffic category from callsign patterns.
// Used as the zero-cost aircraft type when no better source resolves.
func (e Eligibility) Categorize(callsign string) string {
	if callsign == "" {
		return "Unknown"
	}

	cs := strings.ToUpper(callsign)

	if hasAnyPrefix(cs, militaryPrefixes) {
		return "Military"
	}
	if hasAnyPrefix(cs, cargoAirlines) {
		return "Cargo"
	}
	if hasAnyPrefix(cs, majorUSAirlines) || hasAnyPrefix(cs, internationalAirlines) {
		return "Airline"
	}
	if hasAnyPrefix(cs, e.upperExtra()) {
		return "Airline"
	}
	if hasAnyPrefix(cs, countryRegistrations) {
		return "International"
	}

	// N-registered: longer callsigns tend to be commercial operators,
	// short ones private owners
	if strings.HasPrefix(cs, "N") && len(cs) >= 4 {
		if len(cs) >= 6 {
			return "Commercial"
		}
		return "Private"
	}

	if len(cs) >= 4 {
		// Digits anywhere suggest a flight number
		if strings.ContainsAny(cs, "123456789") {
			if len(cs) >= 6 {
				return "Commercial"
			}
			return "General Aviation"
		}
		// Alphabetic callsigns of airline length
		if cs[0] >= 'A' && cs[0] <= 'Z' {
			if len(cs) >= 5 {
				return "Commercial"
			}
			return "General Aviation"
		}
	}

	if len(cs) <= 3 {
		return "Unknown"
	}
	return "General Aviation"
}

// upperExtra returns the configured extra prefixes upper-cased.
func (e Eligibility) upperExtra() []string {
	if len(e.ExtraPrefixes) == 0 {
		return nil
	}
	out := make([]string, len(e.ExtraPrefixes))
	for i, p := range e.ExtraPrefixes {
		out[i] = strings.ToUpper(p)
	}
	return out
}
