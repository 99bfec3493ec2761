//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, fill color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeImage_RGB(t *testing.T) {
	data := encodePNG(t, 4, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 128})

	tensor, err := decodeImage(data, 3)
	require.NoError(t, err)
	require.Equal(t, []int{2, 4, 3}, tensor.Shape())

	pixels := tensor.Pixels()
	require.Len(t, pixels, 2*4*3)
	require.Equal(t, []uint8{10, 20, 30}, pixels[:3])

	tensor.Dispose()
	require.Nil(t, tensor.Pixels())
	tensor.Dispose()
}

func TestDecodeImage_Gray(t *testing.T) {
	data := encodePNG(t, 3, 3, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	tensor, err := decodeImage(data, 1)
	require.NoError(t, err)
	require.Equal(t, []int{3, 3, 1}, tensor.Shape())
	require.Equal(t, uint8(255), tensor.Pixels()[0])
}

func TestDecodeImage_Invalid(t *testing.T) {
	_, err := decodeImage([]byte("definitely not an image"), 3)
	require.Error(t, err)

	_, err = decodeImage(encodePNG(t, 1, 1, color.NRGBA{A: 255}), 4)
	require.Error(t, err)
}
