package tiles

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // tile decoding
	_ "image/png"  // tile decoding
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// minTileBytes rejects bodies too small to be a real tile; error
	// pages from overloaded mirrors are typically a few hundred bytes
	minTileBytes = 2000

	// minTilePixels rejects images too small to be a real tile
	minTilePixels = 100

	// solidColorFraction is the single-color sample fraction above
	// which a tile is treated as a rendered error page
	solidColorFraction = 0.8

	// solidColorStride is the pixel sampling stride for the
	// solid-color check; sampling keeps validation cheap
	solidColorStride = 100
)

// Fetcher retrieves tiles with cache-first semantics and mirror
// fallthrough. Concurrent requests for the same tile are collapsed into
// a single download.
type Fetcher struct {
	store      *Store
	provider   Provider
	httpClient *http.Client
	group      singleflight.Group
}

// NewFetcher creates a tile fetcher for the given provider backed by
// the given store. timeout bounds a single endpoint request; a stuck
// mirror then falls through to the next one instead of stalling the
// whole composite.
func NewFetcher(store *Store, provider Provider, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		store:    store,
		provider: provider,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Provider returns the provider this fetcher pulls from.
func (f *Fetcher) Provider() Provider {
	return f.provider
}

// Fetch returns the tile image for the given coordinates.
//
// A fresh cache hit is returned without touching the network. On a miss
// the provider endpoints are tried in order; the first response that
// passes validation wins and is persisted. A persistence failure is
// logged but the tile is still returned from memory. Only when every
// endpoint fails does Fetch return an error.
func (f *Fetcher) Fetch(ctx context.Context, x, y, zoom int) ([]byte, error) {
	if data, ok := f.store.Get(f.provider.Name, x, y, zoom); ok {
		return data, nil
	}

	key := fmt.Sprintf("%s/%d/%d/%d", f.provider.Name, zoom, x, y)
	result, err, _ := f.group.Do(key, func() (interface{}, error) {
		// Re-check the cache: another flight may have just filled it
		if data, ok := f.store.Get(f.provider.Name, x, y, zoom); ok {
			return data, nil
		}
		return f.download(ctx, x, y, zoom)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// download tries each provider endpoint in order until one yields a
// valid tile.
func (f *Fetcher) download(ctx context.Context, x, y, zoom int) ([]byte, error) {
	urls := f.provider.URLs(x, y, zoom)

	var lastErr error
	for _, url := range urls {
		data, err := f.fetchURL(ctx, url)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		// Persist; a failure here is non-fatal since we have the bytes
		if err := f.store.Put(f.provider.Name, x, y, zoom, data); err != nil {
			log.Printf("Tile %d/%d/%d: %v", zoom, x, y, err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("all %d endpoints failed for tile %d/%d/%d: %w", len(urls), zoom, x, y, lastErr)
}

// fetchURL downloads and validates a single tile URL.
func (f *Fetcher) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	// Servers under load return HTML error pages with status 200
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "text/html") || strings.Contains(contentType, "text/plain") {
		return nil, fmt.Errorf("non-image content type %q", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if err := validateTile(data); err != nil {
		return nil, err
	}
	return data, nil
}

// validateTile applies heuristics that catch error responses disguised
// as tiles: tiny bodies, tiny images, and near-solid-color images.
func validateTile(data []byte) error {
	if len(data) < minTileBytes {
		return fmt.Errorf("response too small (%d bytes)", len(data))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("undecodable image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() < minTilePixels || bounds.Dy() < minTilePixels {
		return fmt.Errorf("image too small (%dx%d)", bounds.Dx(), bounds.Dy())
	}

	if isMostlySolid(img) {
		return fmt.Errorf("image is near-solid color")
	}
	return nil
}

// isMostlySolid samples grayscale values across the image and reports
// whether a single value dominates beyond solidColorFraction.
func isMostlySolid(img image.Image) bool {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	total := width * height
	if total == 0 {
		return true
	}

	counts := make(map[uint8]int)
	samples := 0
	for i := 0; i < total; i += solidColorStride {
		px := bounds.Min.X + i%width
		py := bounds.Min.Y + i/width
		r, g, b, _ := img.At(px, py).RGBA()

		// ITU-R 601 luma from 16-bit channels
		gray := uint8((299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000)
		counts[gray]++
		samples++
	}

	maxCount := 0
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}
	return float64(maxCount) > float64(samples)*solidColorFraction
}
