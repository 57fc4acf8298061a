package main

import (
	"context"
	"flag"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/unklstewy/skygrid/internal/tiles"
	"github.com/unklstewy/skygrid/pkg/projection"
)

// render-map composes one map background and writes it as a PNG.
// Useful for checking tile providers, cache behavior and viewport
// math without running the full service.
func main() {
	lat := flag.Float64("lat", 27.9506, "Center latitude in decimal degrees")
	lon := flag.Float64("lon", -82.4572, "Center longitude in decimal degrees")
	radius := flag.Float64("radius", 10, "View radius in statute miles")
	zoomFactor := flag.Float64("zoom", 1.0, "Zoom factor (1.0 = none)")
	width := flag.Int("width", 800, "Output width in pixels")
	height := flag.Int("height", 480, "Output height in pixels")
	provider := flag.String("provider", "osm", "Tile provider (osm, carto, carto_dark, stamen, esri)")
	server := flag.String("server", "", "Custom tile server base URL (overrides -provider)")
	cacheDir := flag.String("cache", "", "Tile cache directory (default: user cache dir)")
	fade := flag.Float64("fade", 1.0, "Fade toward black (0 = black, 1 = unchanged)")
	out := flag.String("out", "map.png", "Output PNG path")
	flag.Parse()

	store, err := tiles.NewStore(*cacheDir, 8760*time.Hour, false)
	if err != nil {
		log.Fatalf("Failed to open tile cache: %v", err)
	}
	log.Printf("Tile cache: %s", store.Dir())

	p := tiles.ForName(*provider)
	if *server != "" {
		p = tiles.Custom(*server)
	}
	log.Printf("Provider: %s", p.Name)

	fetcher := tiles.NewFetcher(store, p, 10*time.Second)
	compositor := tiles.NewCompositor(fetcher, store, tiles.Appearance{
		FadeIntensity: *fade,
		Brightness:    1.0,
		Contrast:      1.0,
		Saturation:    1.0,
	})

	view := projection.View{
		CenterLat:   *lat,
		CenterLon:   *lon,
		RadiusMiles: *radius,
		ZoomFactor:  *zoomFactor,
		Width:       *width,
		Height:      *height,
	}
	log.Printf("View: %.4f, %.4f radius %.0f mi -> zoom level %d",
		*lat, *lon, *radius, tiles.ZoomLevel(view.EffectiveRadius()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	img, ok := compositor.Background(ctx, view)
	if !ok {
		log.Fatal("No background could be composed (all tile fetches failed?)")
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		log.Fatalf("Failed to encode PNG: %v", err)
	}
	log.Printf("Wrote %dx%d map to %s", *width, *height, *out)
}
