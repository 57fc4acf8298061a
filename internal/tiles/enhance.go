package tiles

import (
	"image"
	"image/color"
)

// clamp8 limits a float channel value to [0, 255].
func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// applyFade blends the image toward black. fade 1.0 leaves the image
// untouched, 0.0 yields black; values in between dim the map so overlay
// markers stay readable on top of it.
func applyFade(img *image.RGBA, fade float64) {
	if fade >= 1.0 {
		return
	}
	if fade < 0 {
		fade = 0
	}

	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i+0] = clamp8(float64(pix[i+0]) * fade)
		pix[i+1] = clamp8(float64(pix[i+1]) * fade)
		pix[i+2] = clamp8(float64(pix[i+2]) * fade)
	}
}

// applyBrightness scales all channels by factor. 1.0 is a no-op.
func applyBrightness(img *image.RGBA, factor float64) {
	if factor == 1.0 {
		return
	}

	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i+0] = clamp8(float64(pix[i+0]) * factor)
		pix[i+1] = clamp8(float64(pix[i+1]) * factor)
		pix[i+2] = clamp8(float64(pix[i+2]) * factor)
	}
}

// applyContrast interpolates each channel between the image's mean
// luminance and its original value. 1.0 is a no-op, 0.0 yields a flat
// gray image at the mean.
func applyContrast(img *image.RGBA, factor float64) {
	if factor == 1.0 {
		return
	}

	pix := img.Pix
	if len(pix) == 0 {
		return
	}

	// Mean luminance over the whole image
	var sum float64
	count := 0
	for i := 0; i < len(pix); i += 4 {
		sum += luma(pix[i], pix[i+1], pix[i+2])
		count++
	}
	mean := sum / float64(count)

	for i := 0; i < len(pix); i += 4 {
		pix[i+0] = clamp8(mean + (float64(pix[i+0])-mean)*factor)
		pix[i+1] = clamp8(mean + (float64(pix[i+1])-mean)*factor)
		pix[i+2] = clamp8(mean + (float64(pix[i+2])-mean)*factor)
	}
}

// applySaturation interpolates each pixel between its grayscale value
// and its original color. 1.0 is a no-op, 0.0 yields grayscale.
func applySaturation(img *image.RGBA, factor float64) {
	if factor == 1.0 {
		return
	}

	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		gray := luma(pix[i], pix[i+1], pix[i+2])
		pix[i+0] = clamp8(gray + (float64(pix[i+0])-gray)*factor)
		pix[i+1] = clamp8(gray + (float64(pix[i+1])-gray)*factor)
		pix[i+2] = clamp8(gray + (float64(pix[i+2])-gray)*factor)
	}
}

// luma returns the ITU-R 601 luminance of an RGB triple.
func luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// toRGBA converts any image to RGBA, copying pixels if needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x, y, color.RGBAModel.Convert(img.At(x, y)))
		}
	}
	return rgba
}
