// Package projection provides the geographic math for the map overlay:
// Web-Mercator tile indexing, great-circle distance and bearing, and the
// geographic-to-display-pixel transform.
//
// All functions are pure and safe for concurrent use. Latitudes and
// longitudes are decimal degrees (WGS84), distances are statute miles.
package projection

import "math"

const (
	// EarthRadiusMiles is the mean Earth radius in statute miles,
	// used by the haversine distance calculation.
	EarthRadiusMiles = 3959.0

	// TileSize is the pixel size of a standard slippy-map tile.
	TileSize = 256
)

// TileXY converts a geographic coordinate to Web-Mercator tile indices
// at the given zoom level.
//
// Standard slippy-map formulas:
//
//	x = floor((lon + 180) / 360 * 2^zoom)
//	y = floor((1 - asinh(tan(lat_rad)) / π) / 2 * 2^zoom)
//
// Results are clamped to the valid tile range [0, 2^zoom - 1] so that
// coordinates at the poles or antimeridian still map to a real tile.
func TileXY(lat, lon float64, zoom int) (x, y int) {
	n := float64(int(1) << uint(zoom))

	x = int((lon + 180.0) / 360.0 * n)

	latRad := lat * math.Pi / 180.0
	y = int((1.0 - math.Asinh(math.Tan(latRad))/math.Pi) / 2.0 * n)

	// Clamp to valid range
	maxTile := int(n) - 1
	if x < 0 {
		x = 0
	} else if x > maxTile {
		x = maxTile
	}
	if y < 0 {
		y = 0
	} else if y > maxTile {
		y = maxTile
	}
	return x, y
}

// TileLon returns the longitude of the north-west corner of tile column x
// at the given zoom level.
//
//	lon = x / 2^zoom * 360 - 180
func TileLon(x, zoom int) float64 {
	n := float64(int(1) << uint(zoom))
	return float64(x)/n*360.0 - 180.0
}

// TileLat returns the latitude of the north-west corner of tile row y
// at the given zoom level.
//
//	lat = atan(sinh(π · (1 - 2y / 2^zoom)))
func TileLat(y, zoom int) float64 {
	n := float64(int(1) << uint(zoom))
	latRad := math.Atan(math.Sinh(math.Pi * (1.0 - 2.0*float64(y)/n)))
	return latRad * 180.0 / math.Pi
}

// DistanceMiles calculates the great-circle distance between two points
// using the haversine formula.
//
//	a = sin²(Δlat/2) + cos(lat1)·cos(lat2)·sin²(Δlon/2)
//	d = 2R · atan2(√a, √(1−a))
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	deltaLat := (lat2 - lat1) * math.Pi / 180.0
	deltaLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// Bearing calculates the initial great-circle bearing from point 1 to
// point 2, in radians measured clockwise from true north.
//
//	θ = atan2(sin(Δlon)·cos(lat2), cos(lat1)·sin(lat2) − sin(lat1)·cos(lat2)·cos(Δlon))
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	deltaLon := (lon2 - lon1) * math.Pi / 180.0

	y := math.Sin(deltaLon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) -
		math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLon)

	return math.Atan2(y, x)
}

// View describes a display viewport centered on a geographic point.
// The viewport shows a circle of RadiusMiles around the center, optionally
// magnified by ZoomFactor (1.0 = no magnification, 2.0 = 2x zoom in).
type View struct {
	// CenterLat is the viewport center latitude in decimal degrees
	CenterLat float64

	// CenterLon is the viewport center longitude in decimal degrees
	CenterLon float64

	// RadiusMiles is the tracked radius in statute miles
	RadiusMiles float64

	// ZoomFactor magnifies the view: the effective visible radius is
	// RadiusMiles / ZoomFactor
	ZoomFactor float64

	// Width and Height are the display dimensions in pixels
	Width  int
	Height int
}

// EffectiveRadius returns the visible radius in miles after applying the
// zoom factor. A zero or negative zoom factor is treated as 1.0.
func (v View) EffectiveRadius() float64 {
	zf := v.ZoomFactor
	if zf <= 0 {
		zf = 1.0
	}
	return v.RadiusMiles / zf
}

// PixelsPerMile returns the display scale. The display width spans twice
// the effective radius, so:
//
//	pixelsPerMile = width / (2 · radius / zoomFactor)
func (v View) PixelsPerMile() float64 {
	diameter := 2.0 * v.EffectiveRadius()
	if diameter <= 0 {
		return 0
	}
	return float64(v.Width) / diameter
}

// GeoToPixel converts a geographic coordinate to a display pixel position
// within the view. North is up.
//
// The transform is distance/bearing based rather than Mercator based, so
// it is free of projection stretching at any latitude:
//
//	dx = distance · sin(bearing)   (east offset in miles)
//	dy = −distance · cos(bearing)  (screen-down offset in miles)
//
// Returns ok=false when the point falls outside the display bounds.
func GeoToPixel(lat, lon float64, v View) (x, y int, ok bool) {
	distance := DistanceMiles(v.CenterLat, v.CenterLon, lat, lon)
	bearing := Bearing(v.CenterLat, v.CenterLon, lat, lon)

	ppm := v.PixelsPerMile()

	// Offset from center in pixels; screen y grows downward so north
	// (bearing 0) must decrease y.
	dx := distance * math.Sin(bearing) * ppm
	dy := -distance * math.Cos(bearing) * ppm

	x = v.Width/2 + int(math.Round(dx))
	y = v.Height/2 + int(math.Round(dy))

	if x < 0 || x >= v.Width || y < 0 || y >= v.Height {
		return x, y, false
	}
	return x, y, true
}
