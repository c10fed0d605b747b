package model

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNewInputSpec_Layouts(t *testing.T) {
	nhwc, err := NewInputSpec([]int64{-1, 448, 448, 3}, 224)
	require.NoError(t, err)
	require.Equal(t, LayoutNHWC, nhwc.Layout)
	require.Equal(t, 448, nhwc.Width)
	require.Equal(t, 1*448*448*3, nhwc.Size())

	nchw, err := NewInputSpec([]int64{1, 3, -1, -1}, 224)
	require.NoError(t, err)
	require.Equal(t, LayoutNCHW, nchw.Layout)
	require.Equal(t, 224, nchw.Height)
	require.Equal(t, []int64{1, 3, 224, 224}, nchw.Shape)
}

func TestNewInputSpec_Rejects(t *testing.T) {
	_, err := NewInputSpec([]int64{1, 6144}, 224)
	require.Error(t, err)

	_, err = NewInputSpec([]int64{1, 224, 224, 4}, 224)
	require.Error(t, err)
}

func TestPreprocess_NHWC(t *testing.T) {
	spec, err := NewInputSpec([]int64{1, 4, 4, 3}, 0)
	require.NoError(t, err)

	data := Preprocess(solidImage(8, 8, color.RGBA{R: 255, G: 0, B: 255, A: 255}), spec)
	require.Len(t, data, 48)
	require.InDelta(t, 1.0, data[0], 1e-3)
	require.InDelta(t, 0.0, data[1], 1e-3)
	require.InDelta(t, 1.0, data[2], 1e-3)
}

func TestPreprocess_NCHW(t *testing.T) {
	spec, err := NewInputSpec([]int64{1, 3, 2, 2}, 0)
	require.NoError(t, err)

	data := Preprocess(solidImage(5, 3, color.RGBA{R: 0, G: 255, B: 0, A: 255}), spec)
	require.Len(t, data, 12)
	for i := 0; i < 4; i++ {
		require.InDelta(t, 0.0, data[i], 1e-3)
		require.InDelta(t, 1.0, data[4+i], 1e-3)
		require.InDelta(t, 0.0, data[8+i], 1e-3)
	}
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skin.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solidImage(3, 2, color.White)))
	require.NoError(t, f.Close())

	img, err := LoadImage(path)
	require.NoError(t, err)
	require.Equal(t, 3, img.Bounds().Dx())

	bad := filepath.Join(t.TempDir(), "skin.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = LoadImage(bad)
	require.Error(t, err)
}
