//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"objdetect-node/internal/domain/port"
)

// imageTensor тензор HWC в памяти Go
type imageTensor struct {
	shape  []int
	pixels []uint8
}

func (t *imageTensor) Shape() []int    { return t.shape }
func (t *imageTensor) Pixels() []uint8 { return t.pixels }

// Dispose отпускает буфер пикселей
func (t *imageTensor) Dispose() {
	t.pixels = nil
}

// decodeImage декодирует jpeg/png/gif/bmp/tiff/webp с учётом EXIF-ориентации.
// Альфа-канал отбрасывается.
func decodeImage(data []byte, channels int) (port.Tensor, error) {
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	nrgba := imaging.Clone(img)
	w, h := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	pixels := make([]uint8, 0, w*h*channels)
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for x := 0; x < w; x++ {
			r, g, b := row[x*4], row[x*4+1], row[x*4+2]
			if channels == 1 {
				pixels = append(pixels, luma(r, g, b))
				continue
			}
			pixels = append(pixels, r, g, b)
		}
	}

	return &imageTensor{
		shape:  []int{h, w, channels},
		pixels: pixels,
	}, nil
}

// luma яркость по ITU-R BT.601
func luma(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b) + 500) / 1000)
}
