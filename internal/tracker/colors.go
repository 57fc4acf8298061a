package tracker

import "image/color"

// altitudeBreakpoint pairs an altitude in feet with its marker color.
type altitudeBreakpoint struct {
	feet float64
	c    color.RGBA
}

// altitudeScale is the standard aviation altitude color gradient,
// warm near the ground shading through green and blue to magenta at
// the ceiling.
var altitudeScale = []altitudeBreakpoint{
	{0, color.RGBA{255, 100, 0, 255}},
	{500, color.RGBA{255, 120, 0, 255}},
	{1000, color.RGBA{255, 140, 0, 255}},
	{2000, color.RGBA{255, 200, 0, 255}},
	{4000, color.RGBA{255, 255, 0, 255}},
	{6000, color.RGBA{200, 255, 0, 255}},
	{8000, color.RGBA{0, 255, 0, 255}},
	{10000, color.RGBA{0, 200, 150, 255}},
	{20000, color.RGBA{0, 150, 255, 255}},
	{30000, color.RGBA{0, 0, 200, 255}},
	{40000, color.RGBA{150, 0, 200, 255}},
	{45000, color.RGBA{200, 0, 150, 255}},
}

// AltitudeColor maps an altitude in feet to a marker color by linear
// interpolation along the altitude scale. Altitudes below the first
// breakpoint or above the last clamp to the end colors.
func AltitudeColor(feet float64) color.RGBA {
	if feet <= altitudeScale[0].feet {
		return altitudeScale[0].c
	}
	last := altitudeScale[len(altitudeScale)-1]
	if feet >= last.feet {
		return last.c
	}

	for i := 0; i < len(altitudeScale)-1; i++ {
		lo, hi := altitudeScale[i], altitudeScale[i+1]
		if feet < lo.feet || feet > hi.feet {
			continue
		}
		ratio := (feet - lo.feet) / (hi.feet - lo.feet)
		return color.RGBA{
			R: lerp8(lo.c.R, hi.c.R, ratio),
			G: lerp8(lo.c.G, hi.c.G, ratio),
			B: lerp8(lo.c.B, hi.c.B, ratio),
			A: 255,
		}
	}
	return color.RGBA{255, 255, 255, 255}
}

func lerp8(a, b uint8, ratio float64) uint8 {
	v := float64(a) + (float64(b)-float64(a))*ratio
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}
