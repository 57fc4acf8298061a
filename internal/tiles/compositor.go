package tiles

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"log"
	"math"
	"sync"

	"github.com/nfnt/resize"

	"github.com/unklstewy/skygrid/pkg/projection"
)

// maxGridTiles caps the tile grid per axis. A 4x4 grid (16 tiles) is
// enough to cover any display at the zoom levels the breakpoint table
// produces, and bounds the cost of a cold composite.
const maxGridTiles = 4

// ZoomLevel picks the tile zoom level for a visible radius in miles.
//
// Zoom controls tile detail only; the geographic area shown is set by
// the radius and enforced by the crop, so the breakpoints just keep the
// crop within a sane share of the fetched grid.
func ZoomLevel(effectiveRadiusMiles float64) int {
	switch {
	case effectiveRadiusMiles <= 5:
		return 12 // High detail for very local areas
	case effectiveRadiusMiles <= 25:
		return 11 // Good detail for city/regional areas
	case effectiveRadiusMiles <= 100:
		return 10 // Regional detail
	case effectiveRadiusMiles <= 300:
		return 9 // State-level detail
	case effectiveRadiusMiles <= 600:
		return 8 // Multi-state detail
	case effectiveRadiusMiles <= 1200:
		return 7 // Country-level detail
	default:
		return 6 // Continental detail
	}
}

// TileSource yields tile images. Satisfied by *Fetcher; tests use stubs.
type TileSource interface {
	Fetch(ctx context.Context, x, y, zoom int) ([]byte, error)
}

// Appearance holds the post-composite image adjustments, applied in
// order: fade, brightness, contrast, saturation. Each is a no-op at 1.0.
type Appearance struct {
	FadeIntensity float64
	Brightness    float64
	Contrast      float64
	Saturation    float64
}

// Compositor assembles provider tiles into a distortion-free,
// display-sized map background.
//
// Composites are memoized on (center rounded to 4 decimals, zoom).
// The radius is deliberately not part of the key: zoom is itself a
// function of the effective radius, and radius changes that cross a
// zoom breakpoint already miss. A radius change within one zoom band
// reuses the previous crop until Invalidate is called.
type Compositor struct {
	source TileSource
	store  *Store
	look   Appearance

	mu sync.Mutex

	// enabled is the session kill switch; flipped off permanently when
	// most of a composite's tiles fail
	enabled bool

	cached     image.Image
	lastCenter [2]float64
	lastZoom   int
}

// NewCompositor creates a compositor pulling tiles from source.
// store may be nil; when present it contributes the cache-error
// disable signal.
func NewCompositor(source TileSource, store *Store, look Appearance) *Compositor {
	return &Compositor{
		source:  source,
		store:   store,
		look:    look,
		enabled: true,
	}
}

// Enabled reports whether backgrounds are still being produced.
func (c *Compositor) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Invalidate drops the memoized composite so the next Background call
// rebuilds it.
func (c *Compositor) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

// Background returns the map background for a view, building it from
// tiles if the memoized composite does not match. Returns ok=false when
// backgrounds are unavailable; the caller renders markers on black.
func (c *Compositor) Background(ctx context.Context, view projection.View) (image.Image, bool) {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return nil, false
	}
	c.mu.Unlock()

	if c.store != nil && c.store.Disabled() {
		log.Printf("Map background disabled after %d consecutive cache errors", c.store.ErrorCount())
		return nil, false
	}

	zoom := ZoomLevel(view.EffectiveRadius())
	center := [2]float64{
		math.Round(view.CenterLat*10000) / 10000,
		math.Round(view.CenterLon*10000) / 10000,
	}

	// Reuse the memoized composite when the view matches
	c.mu.Lock()
	if c.cached != nil && c.lastCenter == center && c.lastZoom == zoom {
		img := c.cached
		c.mu.Unlock()
		return img, true
	}
	c.mu.Unlock()

	img, ok := c.build(ctx, view, zoom)
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	c.cached = img
	c.lastCenter = center
	c.lastZoom = zoom
	c.mu.Unlock()

	return img, true
}

// build fetches the tile grid and produces the final adjusted image.
func (c *Compositor) build(ctx context.Context, view projection.View, zoom int) (image.Image, bool) {
	effectiveRadius := view.EffectiveRadius()
	centerX, centerY := projection.TileXY(view.CenterLat, view.CenterLon, zoom)

	// Degrees spanned by the visible diameter; 1° of latitude is
	// ~69 miles, longitude shrinks by cos(lat)
	latDegrees := (effectiveRadius * 2) / 69.0
	lonDegrees := latDegrees / math.Cos(view.CenterLat*math.Pi/180.0)

	n := float64(int(1) << uint(zoom))
	baseTilesX := int(lonDegrees * n / 360.0 * 2)
	baseTilesY := int(latDegrees * n / 360.0 * 2)
	tilesX := clampGrid(baseTilesX + 2)
	tilesY := clampGrid(baseTilesY + 2)

	startX := centerX - tilesX/2
	startY := centerY - tilesY/2

	const tileSize = projection.TileSize
	composite := image.NewRGBA(image.Rect(0, 0, tilesX*tileSize, tilesY*tileSize))

	fetched := 0
	failed := 0
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			data, err := c.source.Fetch(ctx, startX+tx, startY+ty, zoom)
			if err != nil {
				// Failed tile leaves its region blank
				failed++
				continue
			}
			tile, _, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				failed++
				continue
			}

			target := image.Rect(tx*tileSize, ty*tileSize, (tx+1)*tileSize, (ty+1)*tileSize)
			draw.Draw(composite, target, tile, tile.Bounds().Min, draw.Src)
			fetched++
		}
	}

	if fetched == 0 {
		log.Printf("No map tiles could be fetched at zoom %d", zoom)
		return nil, false
	}

	// A mostly-failed grid means the provider is down or blocking us;
	// stop producing backgrounds for the rest of the session
	if failureRate := float64(failed) / float64(tilesX*tilesY); failureRate > 0.5 {
		log.Printf("High tile failure rate (%.0f%%), disabling map background", failureRate*100)
		c.mu.Lock()
		c.enabled = false
		c.mu.Unlock()
		return nil, false
	}

	return c.cropAndAdjust(composite, view, zoom, startX, startY, centerX, centerY), true
}

// cropAndAdjust cuts the exact geographic window out of the tile grid,
// scales it to the display, and applies the appearance adjustments.
func (c *Compositor) cropAndAdjust(composite *image.RGBA, view projection.View, zoom, startX, startY, centerX, centerY int) image.Image {
	const tileSize = projection.TileSize
	effectiveRadius := view.EffectiveRadius()
	n := float64(int(1) << uint(zoom))

	// Native tile scale at this zoom and latitude
	worldPixels := tileSize * n
	pixelsPerDegreeLon := worldPixels / 360.0
	milesPerDegreeLon := 69.0 * math.Cos(view.CenterLat*math.Pi/180.0)
	pixelsPerMile := pixelsPerDegreeLon / milesPerDegreeLon

	// Crop size for the desired miles wide, height following the
	// display aspect ratio so the later resize does not stretch
	desiredMilesWide := effectiveRadius * 2
	cropW := int(desiredMilesWide * pixelsPerMile)
	cropH := cropW * view.Height / view.Width

	// Sub-tile position of the center point, by linear interpolation
	// within the center tile's lon/lat span
	lonW := projection.TileLon(centerX, zoom)
	lonE := projection.TileLon(centerX+1, zoom)
	latN := projection.TileLat(centerY, zoom)
	latS := projection.TileLat(centerY+1, zoom)

	fracX := (view.CenterLon - lonW) / (lonE - lonW)
	fracY := (latN - view.CenterLat) / (latN - latS)

	centerPx := int((float64(centerX-startX) + fracX) * tileSize)
	centerPy := int((float64(centerY-startY) + fracY) * tileSize)

	bounds := composite.Bounds()
	left := centerPx - cropW/2
	top := centerPy - cropH/2
	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	right := left + cropW
	bottom := top + cropH
	if right > bounds.Max.X {
		right = bounds.Max.X
	}
	if bottom > bounds.Max.Y {
		bottom = bounds.Max.Y
	}

	cropped := composite.SubImage(image.Rect(left, top, right, bottom))

	// Lanczos keeps street detail readable at small display sizes
	scaled := resize.Resize(uint(view.Width), uint(view.Height), cropped, resize.Lanczos3)

	out := toRGBA(scaled)
	applyFade(out, c.look.FadeIntensity)
	applyBrightness(out, c.look.Brightness)
	applyContrast(out, c.look.Contrast)
	applySaturation(out, c.look.Saturation)
	return out
}

// clampGrid bounds a per-axis tile count to [2, maxGridTiles].
func clampGrid(tiles int) int {
	if tiles < 2 {
		return 2
	}
	if tiles > maxGridTiles {
		return maxGridTiles
	}
	return tiles
}
