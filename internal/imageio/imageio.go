// Package imageio turns image files into square intensity matrices for the
// simulator and renders matrices back to PNG.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"
)

// Scale selects the intensity range of loaded objects. One scale is used for
// a whole run.
type Scale string

const (
	ScaleUnit Scale = "unit" // [0, 1]
	ScaleByte Scale = "byte" // [0, 255]
)

func (s Scale) max() (float64, error) {
	switch s {
	case ScaleUnit, "":
		return 1, nil
	case ScaleByte:
		return 255, nil
	}
	return 0, fmt.Errorf("unknown intensity scale: %s", s)
}

// Load decodes the image at path, converts it to grayscale and resizes it to
// px×px.
func Load(path string, px int, scale Scale) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img, px, scale)
}

// FromImage converts img to a px×px intensity matrix. Luma follows ITU-R 601
// (the same weights as PIL's "L" mode) and resizing is bilinear.
func FromImage(img image.Image, px int, scale Scale) (*mat.Dense, error) {
	if px <= 0 {
		return nil, fmt.Errorf("resolution must be positive, got %d", px)
	}
	peak, err := scale.max()
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)

	small := image.NewGray(image.Rect(0, 0, px, px))
	draw.BiLinear.Scale(small, small.Bounds(), gray, bounds, draw.Src, nil)

	object := mat.NewDense(px, px, nil)
	for y := 0; y < px; y++ {
		for x := 0; x < px; x++ {
			object.Set(y, x, float64(small.GrayAt(x, y).Y)/255*peak)
		}
	}
	return object, nil
}

// Mask renders a binary pattern: zero is black, anything else white.
func Mask(m mat.Matrix) *image.Gray {
	r, c := m.Dims()
	img := image.NewGray(image.Rect(0, 0, c, r))
	for y := 0; y < r; y++ {
		for x := 0; x < c; x++ {
			if m.At(y, x) != 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return f.Close()
}
