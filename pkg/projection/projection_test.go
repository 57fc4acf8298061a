package projection

import (
	"math"
	"testing"
)

// TestTileXY tests Web-Mercator tile index calculation.
func TestTileXY(t *testing.T) {
	t.Run("Known location", func(t *testing.T) {
		// Tampa, FL at zoom 11
		x, y := TileXY(27.9506, -82.4572, 11)
		if x != 554 {
			t.Errorf("Expected tile x 554, got %d", x)
		}
		if y != 858 {
			t.Errorf("Expected tile y 858, got %d", y)
		}
	})

	t.Run("Origin at zoom 0", func(t *testing.T) {
		x, y := TileXY(0.0, 0.0, 0)
		if x != 0 || y != 0 {
			t.Errorf("Expected (0,0), got (%d,%d)", x, y)
		}
	})

	t.Run("Clamps out-of-range coordinates", func(t *testing.T) {
		x, y := TileXY(89.9, 180.0, 4)
		if x < 0 || x > 15 || y < 0 || y > 15 {
			t.Errorf("Expected clamped indices in [0,15], got (%d,%d)", x, y)
		}
	})
}

// TestTileRoundTrip verifies that converting to a tile and back gives a
// coordinate within one tile's span of the original.
func TestTileRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon float64
		zoom     int
	}{
		{"Tampa", 27.9506, -82.4572, 11},
		{"London", 51.5074, -0.1278, 10},
		{"Sydney", -33.8688, 151.2093, 12},
		{"Anchorage", 61.2181, -149.9003, 8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x, y := TileXY(tc.lat, tc.lon, tc.zoom)

			// Tile NW corner and the next tile's corner bracket the point
			lonW := TileLon(x, tc.zoom)
			lonE := TileLon(x+1, tc.zoom)
			latN := TileLat(y, tc.zoom)
			latS := TileLat(y+1, tc.zoom)

			if tc.lon < lonW || tc.lon > lonE {
				t.Errorf("Longitude %f not within tile span [%f, %f]", tc.lon, lonW, lonE)
			}
			if tc.lat > latN || tc.lat < latS {
				t.Errorf("Latitude %f not within tile span [%f, %f]", tc.lat, latS, latN)
			}
		})
	}
}

// TestDistanceMiles tests the haversine distance calculation.
func TestDistanceMiles(t *testing.T) {
	t.Run("Zero distance", func(t *testing.T) {
		d := DistanceMiles(27.95, -82.45, 27.95, -82.45)
		if d != 0 {
			t.Errorf("Expected 0, got %f", d)
		}
	})

	t.Run("Tampa to Orlando", func(t *testing.T) {
		// Roughly 80 miles
		d := DistanceMiles(27.9506, -82.4572, 28.5383, -81.3792)
		if d < 75 || d > 90 {
			t.Errorf("Expected ~80 miles, got %f", d)
		}
	})

	t.Run("One degree of latitude", func(t *testing.T) {
		// 1° of latitude ≈ 69.1 miles
		d := DistanceMiles(30.0, -80.0, 31.0, -80.0)
		if math.Abs(d-69.1) > 0.5 {
			t.Errorf("Expected ~69.1 miles, got %f", d)
		}
	})
}

// TestBearing tests initial great-circle bearing calculation.
func TestBearing(t *testing.T) {
	t.Run("Due north", func(t *testing.T) {
		b := Bearing(30.0, -80.0, 31.0, -80.0)
		if math.Abs(b) > 0.001 {
			t.Errorf("Expected bearing 0 (north), got %f rad", b)
		}
	})

	t.Run("Due east", func(t *testing.T) {
		b := Bearing(0.0, -80.0, 0.0, -79.0)
		if math.Abs(b-math.Pi/2) > 0.001 {
			t.Errorf("Expected bearing π/2 (east), got %f rad", b)
		}
	})

	t.Run("Due south", func(t *testing.T) {
		b := Bearing(31.0, -80.0, 30.0, -80.0)
		if math.Abs(math.Abs(b)-math.Pi) > 0.001 {
			t.Errorf("Expected bearing ±π (south), got %f rad", b)
		}
	})
}

// TestGeoToPixel tests the geographic-to-display-pixel transform.
func TestGeoToPixel(t *testing.T) {
	view := View{
		CenterLat:   27.9506,
		CenterLon:   -82.4572,
		RadiusMiles: 10.0,
		ZoomFactor:  1.0,
		Width:       800,
		Height:      480,
	}

	t.Run("Center maps to display center", func(t *testing.T) {
		x, y, ok := GeoToPixel(view.CenterLat, view.CenterLon, view)
		if !ok {
			t.Fatal("Expected center to be visible")
		}
		if x < 399 || x > 401 {
			t.Errorf("Expected x ~400, got %d", x)
		}
		if y < 239 || y > 241 {
			t.Errorf("Expected y ~240, got %d", y)
		}
	})

	t.Run("Point north of center moves up", func(t *testing.T) {
		// ~3.5 miles north
		x, y, ok := GeoToPixel(view.CenterLat+0.05, view.CenterLon, view)
		if !ok {
			t.Fatal("Expected point to be visible")
		}
		if y >= 240 {
			t.Errorf("Expected y < 240 for northern point, got %d", y)
		}
		if x < 395 || x > 405 {
			t.Errorf("Expected x near center for due-north point, got %d", x)
		}
	})

	t.Run("Point east of center moves right", func(t *testing.T) {
		x, _, ok := GeoToPixel(view.CenterLat, view.CenterLon+0.05, view)
		if !ok {
			t.Fatal("Expected point to be visible")
		}
		if x <= 400 {
			t.Errorf("Expected x > 400 for eastern point, got %d", x)
		}
	})

	t.Run("Point outside display reports not ok", func(t *testing.T) {
		// 1° north is ~69 miles, far beyond the 10 mile radius
		_, _, ok := GeoToPixel(view.CenterLat+1.0, view.CenterLon, view)
		if ok {
			t.Error("Expected out-of-view point to report ok=false")
		}
	})

	t.Run("Zoom factor magnifies offsets", func(t *testing.T) {
		zoomed := view
		zoomed.ZoomFactor = 2.0

		_, y1, _ := GeoToPixel(view.CenterLat+0.02, view.CenterLon, view)
		_, y2, _ := GeoToPixel(view.CenterLat+0.02, view.CenterLon, zoomed)

		off1 := 240 - y1
		off2 := 240 - y2
		if off2 <= off1 {
			t.Errorf("Expected larger offset at 2x zoom: %d vs %d", off2, off1)
		}
	})
}

// TestPixelsPerMile verifies the display scale formula.
func TestPixelsPerMile(t *testing.T) {
	v := View{RadiusMiles: 10, ZoomFactor: 1.0, Width: 800, Height: 480}

	// 800 px across 20 miles = 40 px/mile
	if ppm := v.PixelsPerMile(); math.Abs(ppm-40.0) > 0.001 {
		t.Errorf("Expected 40 px/mile, got %f", ppm)
	}

	v.ZoomFactor = 2.0
	// Effective radius 5 miles, 800 px across 10 miles = 80 px/mile
	if ppm := v.PixelsPerMile(); math.Abs(ppm-80.0) > 0.001 {
		t.Errorf("Expected 80 px/mile, got %f", ppm)
	}
}
