package imageio

import (
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"
)

type colorStop struct {
	pos float64
	c   colorful.Color
}

// hot approximates matplotlib's "hot" colormap.
var hot = []colorStop{
	{0, colorful.Color{R: 0, G: 0, B: 0}},
	{0.375, colorful.Color{R: 1, G: 0, B: 0}},
	{0.75, colorful.Color{R: 1, G: 1, B: 0}},
	{1, colorful.Color{R: 1, G: 1, B: 1}},
}

// Heatmap renders m with the hot colormap, stretched between its minimum and
// maximum. A constant matrix renders black.
func Heatmap(m mat.Matrix) *image.NRGBA {
	r, c := m.Dims()
	lo, hi := math.Inf(1), math.Inf(-1)
	for y := 0; y < r; y++ {
		for x := 0; x < c; x++ {
			v := m.At(y, x)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, c, r))
	for y := 0; y < r; y++ {
		for x := 0; x < c; x++ {
			t := 0.0
			if hi > lo {
				t = (m.At(y, x) - lo) / (hi - lo)
			}
			img.Set(x, y, hotColor(t))
		}
	}
	return img
}

func hotColor(t float64) colorful.Color {
	t = math.Max(0, math.Min(1, t))
	for i := 1; i < len(hot); i++ {
		if t <= hot[i].pos {
			a, b := hot[i-1], hot[i]
			return a.c.BlendRgb(b.c, (t-a.pos)/(b.pos-a.pos)).Clamped()
		}
	}
	return hot[len(hot)-1].c
}
