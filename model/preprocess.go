package model

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Layout is the memory order of the image input tensor.
type Layout int

const (
	LayoutNHWC Layout = iota
	LayoutNCHW
)

// InputSpec describes the image tensor an embedding model expects.
type InputSpec struct {
	Shape  []int64
	Layout Layout
	Width  int
	Height int
}

// NewInputSpec derives the image geometry from a model input shape. Dynamic
// spatial dimensions are fixed to size.
func NewInputSpec(dims []int64, size int) (InputSpec, error) {
	if len(dims) != 4 {
		return InputSpec{}, fmt.Errorf("expected a rank-4 image input, got shape %v", dims)
	}
	shape := concreteShape(dims, int64(size))

	spec := InputSpec{Shape: shape, Layout: LayoutNHWC}
	if shape[1] == 3 {
		spec.Layout = LayoutNCHW
		spec.Height, spec.Width = int(shape[2]), int(shape[3])
	} else {
		if shape[3] != 3 {
			return InputSpec{}, fmt.Errorf("expected 3 colour channels, got shape %v", dims)
		}
		spec.Height, spec.Width = int(shape[1]), int(shape[2])
	}
	return spec, nil
}

// Size returns the number of float32 elements of the input tensor.
func (s InputSpec) Size() int {
	return int(elementCount(s.Shape))
}

// LoadImage decodes an image file in any registered raster format.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Preprocess resizes img to the input geometry and writes RGB values scaled
// to [0,1] into a new slice ordered by spec.Layout.
func Preprocess(img image.Image, spec InputSpec) []float32 {
	resized := resize.Resize(uint(spec.Width), uint(spec.Height), img, resize.Lanczos3)
	bounds := resized.Bounds()

	w, h := spec.Width, spec.Height
	plane := w * h
	data := make([]float32, spec.Size())

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rn := float32(r) / 65535.0
			gn := float32(g) / 65535.0
			bn := float32(b) / 65535.0

			idx := y*w + x
			if spec.Layout == LayoutNCHW {
				data[idx] = rn
				data[plane+idx] = gn
				data[2*plane+idx] = bn
			} else {
				data[idx*3] = rn
				data[idx*3+1] = gn
				data[idx*3+2] = bn
			}
		}
	}
	return data
}
